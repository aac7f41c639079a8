// Package mirror resolves relative artifact paths against an ordered set of
// equivalent hosting mirrors, and fetches documents from them with
// conditional-request support.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/marketfeed/internal/common"
	"github.com/bobmcallan/marketfeed/internal/models"
)

const (
	// DefaultTimeout is the default per-request HTTP timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries bounds retry attempts per mirror.
	DefaultMaxRetries = 3

	// DefaultProbeRate is the default probe rate (requests per second).
	DefaultProbeRate = 5

	cacheTTL        = 10 * time.Minute
	cacheMaxEntries = 512
)

// ErrUnavailable reports that no configured mirror currently serves the
// requested artifact. Callers record it as a diagnostic, not a failure.
var ErrUnavailable = errors.New("artifact unavailable on all mirrors")

// ErrNoMirrors reports an empty mirror set.
var ErrNoMirrors = errors.New("no mirrors configured")

// Outcome classifies the result of a conditional fetch.
type Outcome int

const (
	Failed Outcome = iota
	Fetched
	NotModified
)

// Validator carries the entity tag and modification time observed on a
// previous fetch, for conditional requests on the next run.
type Validator struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// IsZero reports whether no validator fields are set.
func (v Validator) IsZero() bool {
	return v.ETag == "" && v.LastModified == ""
}

// Resolver probes an ordered mirror set for artifact availability and
// fetches documents from the first mirror that serves them.
type Resolver struct {
	mirrors        []models.Mirror
	httpClient     *http.Client
	logger         *common.Logger
	limiter        *rate.Limiter
	maxRetries     int
	backoffInitial time.Duration
	backoffMax     time.Duration
	cache          *ResolveCache
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger *common.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithRateLimit sets a custom probe rate limit.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(r *Resolver) {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithRetry sets the per-mirror retry bound and backoff window.
func WithRetry(maxRetries int, initial, ceiling time.Duration) Option {
	return func(r *Resolver) {
		r.maxRetries = maxRetries
		r.backoffInitial = initial
		r.backoffMax = ceiling
	}
}

// NewResolver creates a resolver over the given mirror set. Mirror order
// defines probe priority.
func NewResolver(mirrors []models.Mirror, opts ...Option) *Resolver {
	r := &Resolver{
		mirrors: mirrors,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:         common.NewSilentLogger(),
		limiter:        rate.NewLimiter(rate.Limit(DefaultProbeRate), DefaultProbeRate),
		maxRetries:     DefaultMaxRetries,
		backoffInitial: 500 * time.Millisecond,
		backoffMax:     5 * time.Second,
		cache:          NewCache(cacheTTL, cacheMaxEntries),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// URLFor joins a mirror base URL with a relative artifact path.
func URLFor(base, rel string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}

// Resolve returns the absolute URL of the first mirror, in priority order,
// that answers an existence probe for rel. A mirror failing its probe is
// skipped; mirrors get one pass each. Returns ErrUnavailable when none
// respond.
func (r *Resolver) Resolve(ctx context.Context, rel string) (string, error) {
	if len(r.mirrors) == 0 {
		return "", ErrNoMirrors
	}

	if url, ok := r.cache.Get(rel); ok {
		if url == "" {
			return "", ErrUnavailable
		}
		return url, nil
	}

	for _, m := range r.mirrors {
		url := URLFor(m.BaseURL, rel)
		ok, err := r.probe(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			r.logger.Debug().Str("mirror", m.Name).Str("url", url).Str("error", err.Error()).Msg("mirror probe failed")
			continue
		}
		if ok {
			r.cache.Set(rel, url)
			return url, nil
		}
		r.logger.Debug().Str("mirror", m.Name).Str("url", url).Msg("artifact not on mirror")
	}

	r.cache.Set(rel, "")
	return "", ErrUnavailable
}

// Fetch retrieves the document at rel from the first mirror that serves it.
// When validator carries state from a previous fetch, a conditional request
// is issued and a 304 answer yields NotModified with no body, so the caller
// can keep prior content. Transport and server-side errors on one mirror
// fall through to the next.
func (r *Resolver) Fetch(ctx context.Context, rel string, validator Validator) ([]byte, Validator, Outcome, error) {
	if len(r.mirrors) == 0 {
		return nil, Validator{}, Failed, ErrNoMirrors
	}

	for _, m := range r.mirrors {
		url := URLFor(m.BaseURL, rel)
		body, v, outcome, err := r.fetchOne(ctx, url, validator)
		if outcome == Fetched || outcome == NotModified {
			return body, v, outcome, nil
		}
		if ctx.Err() != nil {
			return nil, Validator{}, Failed, err
		}
		if err != nil {
			r.logger.Debug().Str("mirror", m.Name).Str("url", url).Str("error", err.Error()).Msg("mirror fetch failed")
		}
	}

	return nil, Validator{}, Failed, ErrUnavailable
}

type fetchResult struct {
	body     []byte
	status   int
	etag     string
	modified string
}

// probe issues a HEAD request with bounded retry on retriable outcomes.
func (r *Resolver) probe(ctx context.Context, url string) (bool, error) {
	result, err := backoff.RetryWithData(func() (fetchResult, error) {
		return r.attempt(ctx, http.MethodHead, url, Validator{})
	}, r.newBackoff(ctx))
	if err != nil {
		return false, err
	}
	return result.status >= 200 && result.status < 400, nil
}

func (r *Resolver) fetchOne(ctx context.Context, url string, validator Validator) ([]byte, Validator, Outcome, error) {
	result, err := backoff.RetryWithData(func() (fetchResult, error) {
		return r.attempt(ctx, http.MethodGet, url, validator)
	}, r.newBackoff(ctx))
	if err != nil {
		return nil, Validator{}, Failed, err
	}

	switch {
	case result.status == http.StatusNotModified:
		return nil, validator, NotModified, nil
	case result.status >= 200 && result.status < 300:
		return result.body, Validator{ETag: result.etag, LastModified: result.modified}, Fetched, nil
	default:
		return nil, Validator{}, Failed, fmt.Errorf("unexpected status %d", result.status)
	}
}

// attempt performs one HTTP request. Retriable outcomes (rate limiting,
// server-side errors, transport errors) return a plain error; client errors
// and success are final.
func (r *Resolver) attempt(ctx context.Context, method, url string, validator Validator) (fetchResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return fetchResult{}, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fetchResult{}, backoff.Permanent(err)
	}
	if validator.ETag != "" {
		req.Header.Set("If-None-Match", validator.ETag)
	}
	if validator.LastModified != "" {
		req.Header.Set("If-Modified-Since", validator.LastModified)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fetchResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return fetchResult{}, fmt.Errorf("retriable status %d", resp.StatusCode)
	}

	result := fetchResult{
		status:   resp.StatusCode,
		etag:     resp.Header.Get("ETag"),
		modified: resp.Header.Get("Last-Modified"),
	}
	if method == http.MethodGet && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fetchResult{}, fmt.Errorf("failed to read response body: %w", err)
		}
		result.body = body
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return result, nil
}

func (r *Resolver) newBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.backoffInitial
	b.MaxInterval = r.backoffMax
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)
}
