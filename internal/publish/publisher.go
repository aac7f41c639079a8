package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobmcallan/marketfeed/internal/common"
	"github.com/bobmcallan/marketfeed/internal/models"
)

// Publisher writes the run's output documents into the docs directory.
// It always attempts every output: a failure on one document does not stop
// the others, and all failures are reported together.
type Publisher struct {
	docsDir string
	version string
	logger  *common.Logger
}

// NewPublisher creates a publisher rooted at docsDir. version is recorded
// in the heartbeat document.
func NewPublisher(logger *common.Logger, docsDir, version string) *Publisher {
	return &Publisher{
		docsDir: docsDir,
		version: version,
		logger:  logger,
	}
}

func (p *Publisher) path(name string) string {
	return filepath.Join(p.docsDir, name)
}

// Publish writes feed.json, report.json, report.md, report_table.html, the
// updated index.html and heartbeat.json. Every document lands via
// write-then-rename, so readers never see partial state.
func (p *Publisher) Publish(doc *models.FeedDocument) error {
	var errs []error

	if err := WriteJSONAtomic(p.path("feed.json"), doc); err != nil {
		errs = append(errs, fmt.Errorf("feed.json: %w", err))
	}

	report := models.ReportDocument{
		Generated: doc.Generated,
		Spec:      doc.Spec,
		Assets:    sortedTickers(doc),
		News:      doc.News,
	}
	if err := WriteJSONAtomic(p.path("report.json"), report); err != nil {
		errs = append(errs, fmt.Errorf("report.json: %w", err))
	}

	if err := WriteFileAtomic(p.path("report.md"), []byte(RenderMarkdown(doc))); err != nil {
		errs = append(errs, fmt.Errorf("report.md: %w", err))
	}

	fragment := RenderHTMLFragment(doc)
	if err := WriteFileAtomic(p.path("report_table.html"), []byte(fragment)); err != nil {
		errs = append(errs, fmt.Errorf("report_table.html: %w", err))
	}

	if err := p.updateIndexPage(fragment); err != nil {
		errs = append(errs, fmt.Errorf("index.html: %w", err))
	}

	heartbeat := models.Heartbeat{
		LastRun: doc.Generated,
		RunID:   doc.RunID,
		Version: p.version,
	}
	if err := WriteJSONAtomic(p.path("heartbeat.json"), heartbeat); err != nil {
		errs = append(errs, fmt.Errorf("heartbeat.json: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	p.logger.Info().
		Str("dir", p.docsDir).
		Int("tickers", len(doc.Tickers)).
		Int("news", len(doc.News)).
		Int("missing", len(doc.Missing)).
		Msg("published feed documents")
	return nil
}

func (p *Publisher) updateIndexPage(fragment string) error {
	existing, err := os.ReadFile(p.path("index.html"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing page: %w", err)
	}
	updated := UpdatePage(string(existing), fragment)
	return WriteFileAtomic(p.path("index.html"), []byte(updated))
}

// PreviousFeed loads the last published feed document, for merging the news
// window across runs. A missing or unreadable document yields nil.
func (p *Publisher) PreviousFeed() *models.FeedDocument {
	data, err := os.ReadFile(p.path("feed.json"))
	if err != nil {
		return nil
	}
	var doc models.FeedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		p.logger.Warn().Str("error", err.Error()).Msg("previous feed.json unreadable, starting fresh")
		return nil
	}
	return &doc
}
