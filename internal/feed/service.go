// Package feed runs the aggregation pipeline: load the input documents,
// normalize them, resolve chart artifacts, merge the news window and hand
// the assembled document to the publisher.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/marketfeed/internal/charts"
	"github.com/bobmcallan/marketfeed/internal/common"
	"github.com/bobmcallan/marketfeed/internal/config"
	"github.com/bobmcallan/marketfeed/internal/interfaces"
	"github.com/bobmcallan/marketfeed/internal/mirror"
	"github.com/bobmcallan/marketfeed/internal/models"
	"github.com/bobmcallan/marketfeed/internal/news"
	"github.com/bobmcallan/marketfeed/internal/normalize"
	"github.com/bobmcallan/marketfeed/internal/publish"
)

// Input document locations relative to the docs dir and the mirror roots.
const (
	catalogPath = "index.json"
	listingPath = "filelist.json"
	newsPath    = "news/news.json"
)

// Service drives one pipeline invocation end to end.
type Service struct {
	cfg       *config.Config
	logger    *common.Logger
	resolver  *mirror.Resolver
	publisher *publish.Publisher
	kv        interfaces.KeyValueStorage
	runID     string
	now       func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the pipeline service. The run identifier comes from
// config when set, otherwise a fresh UUID is generated per service.
func NewService(logger *common.Logger, cfg *config.Config, resolver *mirror.Resolver, publisher *publish.Publisher, kv interfaces.KeyValueStorage, opts ...ServiceOption) *Service {
	runID := cfg.Feed.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	s := &Service{
		cfg:       cfg,
		logger:    logger,
		resolver:  resolver,
		publisher: publisher,
		kv:        kv,
		runID:     runID,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one invocation. In soft mode any input failure degrades to a
// diagnostics entry and publication proceeds; in strict mode a run with no
// usable catalog (or no mirrors configured) aborts before touching the
// published outputs.
func (s *Service) Run(ctx context.Context) error {
	var missing []string
	mirrors := s.cfg.MirrorSet()

	if len(mirrors) == 0 {
		if s.cfg.Feed.Strict {
			return errors.New("no mirrors configured")
		}
		missing = append(missing, "no mirrors configured")
	}

	catalogDoc, diag := s.loadInput(ctx, catalogPath)
	if diag != "" {
		missing = append(missing, diag)
	}
	listingDoc, diag := s.loadInput(ctx, listingPath)
	if diag != "" {
		missing = append(missing, diag)
	}
	newsDoc, diag := s.loadInput(ctx, newsPath)
	if diag != "" {
		missing = append(missing, diag)
	}

	records, catalogOK := normalize.Catalog(catalogDoc, s.tolerance())
	if catalogDoc != nil && !catalogOK {
		missing = append(missing, catalogPath+": unrecognized document shape")
	}
	if !catalogOK && s.cfg.Feed.Strict {
		return errors.New("no usable ticker catalog from any source")
	}

	paths := normalize.Listing(listingDoc)
	if listingDoc != nil && len(paths) == 0 {
		missing = append(missing, listingPath+": no artifact paths recognized")
	}

	freshNews := normalize.News(newsDoc)

	universe := s.universe(records, paths)
	chartSets := charts.Select(paths, universe, s.chartURL(ctx))

	tickers := make([]models.TickerRecord, 0, len(universe))
	for _, symbol := range universe {
		rec, ok := records[symbol]
		if !ok {
			rec = models.TickerRecord{Symbol: symbol}
		}
		if set, ok := chartSets[symbol]; ok {
			rec.Charts = set
		}
		tickers = append(tickers, rec)
	}

	var previousNews []models.NewsItem
	if prev := s.publisher.PreviousFeed(); prev != nil {
		previousNews = prev.News
	}
	merged := news.Merge(freshNews, previousNews, s.cfg.News.MaxItems)

	if missing == nil {
		missing = []string{}
	}
	doc := &models.FeedDocument{
		Spec:      models.FeedSpecVersion,
		Generated: s.now().UTC(),
		RunID:     s.runID,
		Mirrors:   mirrorMap(mirrors),
		Tickers:   tickers,
		News:      merged,
		Missing:   missing,
	}

	s.logger.Info().
		Str("run_id", s.runID).
		Int("tickers", len(tickers)).
		Int("news", len(merged)).
		Int("missing", len(missing)).
		Msg("feed assembled")

	return s.publisher.Publish(doc)
}

func (s *Service) tolerance() float64 {
	if s.cfg.Feed.ExtremeTolerance > 0 {
		return s.cfg.Feed.ExtremeTolerance
	}
	return 0.001
}

// universe returns the sorted instrument set for this run: the configured
// symbol list when present, otherwise the union of catalog symbols and
// symbols discovered in the chart listing.
func (s *Service) universe(records map[string]models.TickerRecord, paths []string) []string {
	if len(s.cfg.Feed.Symbols) > 0 {
		symbols := make([]string, len(s.cfg.Feed.Symbols))
		copy(symbols, s.cfg.Feed.Symbols)
		sort.Strings(symbols)
		return symbols
	}

	seen := make(map[string]struct{}, len(records))
	for symbol := range records {
		seen[symbol] = struct{}{}
	}
	for _, symbol := range charts.Symbols(paths) {
		seen[symbol] = struct{}{}
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// chartURL resolves a listed chart path against the mirrors and appends the
// run identifier as a cache-buster. Unresolvable charts yield an empty URL
// and are omitted from the record.
func (s *Service) chartURL(ctx context.Context) func(rel string) string {
	return func(rel string) string {
		url, err := s.resolver.Resolve(ctx, rel)
		if err != nil {
			s.logger.Debug().Str("path", rel).Str("error", err.Error()).Msg("chart not resolvable")
			return ""
		}
		if s.runID != "" {
			url += "?v=" + s.runID
		}
		return url
	}
}

// loadInput reads one input document from the docs dir. When the local file
// is absent or not valid JSON, a recovery fetch from the mirrors is
// attempted. The returned diagnostic is empty only for a clean local read.
func (s *Service) loadInput(ctx context.Context, rel string) (any, string) {
	path := filepath.Join(s.cfg.Site.DocsDir, rel)
	data, err := os.ReadFile(path)
	if err == nil {
		var doc any
		if jsonErr := json.Unmarshal(data, &doc); jsonErr == nil {
			return doc, ""
		}
		s.logger.Warn().Str("path", path).Msg("local document not valid JSON, trying mirror recovery")
	}
	return s.recoverInput(ctx, rel)
}

// recoverInput fetches rel from the mirrors, using validators persisted in
// the state store for conditional requests. A NotModified answer replays
// the cached copy from the previous recovery.
func (s *Service) recoverInput(ctx context.Context, rel string) (any, string) {
	var validator mirror.Validator
	if s.kv != nil {
		if raw, err := s.kv.Get(ctx, "validator:"+rel); err == nil {
			if err := json.Unmarshal([]byte(raw), &validator); err != nil {
				validator = mirror.Validator{}
			}
		}
	}

	body, v, outcome, err := s.resolver.Fetch(ctx, rel, validator)
	switch outcome {
	case mirror.Fetched:
		var doc any
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, rel + ": mirror copy not valid JSON"
		}
		s.storeRecovery(ctx, rel, v, body)
		return doc, rel + ": recovered from mirror"
	case mirror.NotModified:
		if s.kv != nil {
			if raw, kvErr := s.kv.Get(ctx, "recovery:"+rel); kvErr == nil {
				var doc any
				if jsonErr := json.Unmarshal([]byte(raw), &doc); jsonErr == nil {
					return doc, rel + ": recovered from prior mirror copy"
				}
			}
		}
		return nil, rel + ": unchanged on mirror but no cached copy"
	default:
		return nil, fmt.Sprintf("%s: %v", rel, err)
	}
}

func (s *Service) storeRecovery(ctx context.Context, rel string, v mirror.Validator, body []byte) {
	if s.kv == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		if err := s.kv.Set(ctx, "validator:"+rel, string(data)); err != nil {
			s.logger.Warn().Str("path", rel).Str("error", err.Error()).Msg("failed to persist validator")
		}
	}
	if err := s.kv.Set(ctx, "recovery:"+rel, string(body)); err != nil {
		s.logger.Warn().Str("path", rel).Str("error", err.Error()).Msg("failed to persist recovered copy")
	}
}

func mirrorMap(mirrors []models.Mirror) map[string]string {
	m := make(map[string]string, len(mirrors))
	for _, entry := range mirrors {
		m[entry.Name] = entry.BaseURL
	}
	return m
}
