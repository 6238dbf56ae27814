// internal/importer/importer.go
package importer

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/monitoring"
	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/utils"
)

// Batch limits
const (
	DefaultMaxURLs = 50
	DefaultDelay   = 800 * time.Millisecond
)

var (
	// ErrEmptyBatch is returned for a batch without URLs
	ErrEmptyBatch = stderrors.New("no URLs to import")
	// ErrBatchTooLarge is returned when a batch exceeds the URL limit
	ErrBatchTooLarge = stderrors.New("too many URLs in batch")
)

// Extractor turns one URL into a product. Both extraction pipelines
// satisfy it.
type Extractor interface {
	Import(ctx context.Context, rawURL string) (product.Product, error)
}

// DraftSaver persists imported drafts
type DraftSaver interface {
	Save(ctx context.Context, draft *product.Draft) error
}

// Config holds batch import configuration
type Config struct {
	MaxURLs int           `yaml:"max_urls" json:"max_urls"`
	Delay   time.Duration `yaml:"delay" json:"delay"`
}

// Result is the outcome of one URL of a batch
type Result struct {
	URL   string         `json:"url"`
	Draft *product.Draft `json:"draft,omitempty"`
	Err   error          `json:"-"`
}

// Success reports whether the URL produced a draft
func (r Result) Success() bool {
	return r.Err == nil && r.Draft != nil
}

// Message returns the user-facing reason of a failed result
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return errors.UserMessage(r.Err)
}

// Stats tracks importer totals across batches
type Stats struct {
	ProcessedCount  int64         `json:"processed_count"`
	SuccessCount    int64         `json:"success_count"`
	ErrorCount      int64         `json:"error_count"`
	TotalTime       time.Duration `json:"total_time"`
	AverageTime     time.Duration `json:"average_time"`
	LastProcessedAt time.Time     `json:"last_processed_at"`
}

// Importer drives an Extractor over single URLs and throttled batches.
// Calls are spaced by the configured delay across all batches.
type Importer struct {
	extractor Extractor
	config    Config
	limiter   *utils.RateLimiter
	store     DraftSaver
	logger    utils.Logger
	metrics   *monitoring.MetricsManager
	now       func() time.Time

	mu    sync.RWMutex
	stats Stats
}

// Option configures an Importer
type Option func(*Importer)

// WithStore persists every successful draft
func WithStore(store DraftSaver) Option {
	return func(im *Importer) {
		im.store = store
	}
}

// WithLogger sets the importer logger
func WithLogger(logger utils.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// WithMetrics enables batch metrics
func WithMetrics(metrics *monitoring.MetricsManager) Option {
	return func(im *Importer) {
		im.metrics = metrics
	}
}

// WithClock overrides the clock used for draft timestamps
func WithClock(now func() time.Time) Option {
	return func(im *Importer) {
		if now != nil {
			im.now = now
		}
	}
}

// New creates an importer. Zero config values take the defaults; a
// negative delay disables throttling.
func New(extractor Extractor, config Config, opts ...Option) *Importer {
	if config.MaxURLs <= 0 {
		config.MaxURLs = DefaultMaxURLs
	}
	if config.Delay == 0 {
		config.Delay = DefaultDelay
	}

	im := &Importer{
		extractor: extractor,
		config:    config,
		limiter:   utils.NewIntervalLimiter(config.Delay),
		logger:    utils.NewNopLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	im.logger = im.logger.WithField("component", "importer")
	return im
}

// ImportOne extracts a single URL into a new draft and saves it when a
// store is configured.
func (im *Importer) ImportOne(ctx context.Context, rawURL string) (*product.Draft, error) {
	start := time.Now()
	draft, err := im.importOne(ctx, rawURL)
	im.record(err, time.Since(start))
	return draft, err
}

func (im *Importer) importOne(ctx context.Context, rawURL string) (*product.Draft, error) {
	prod, err := im.extractor.Import(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	draft := product.NewDraft(prod, im.now())
	if im.store != nil {
		if err := im.store.Save(ctx, draft); err != nil {
			return nil, fmt.Errorf("save draft: %w", err)
		}
	}
	return draft, nil
}

// ImportBatch imports every URL in order, waiting the configured delay
// between calls. A failed URL is recorded and the batch continues, so the
// result has one entry per input URL. If ctx ends, the remaining URLs are
// reported with the context error.
func (im *Importer) ImportBatch(ctx context.Context, urls []string) ([]Result, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(urls) > im.config.MaxURLs {
		return nil, fmt.Errorf("%w: %d given, at most %d allowed", ErrBatchTooLarge, len(urls), im.config.MaxURLs)
	}

	im.metrics.RecordBatch(len(urls))
	im.logger.Infof("importing batch of %d URLs", len(urls))

	results := make([]Result, len(urls))
	for i, rawURL := range urls {
		results[i].URL = rawURL

		if err := im.limiter.Wait(ctx); err != nil {
			for j := i; j < len(urls); j++ {
				results[j] = Result{URL: urls[j], Err: err}
				im.metrics.RecordBatchURL(monitoring.OutcomeError)
			}
			return results, err
		}

		draft, err := im.ImportOne(ctx, rawURL)
		results[i].Draft, results[i].Err = draft, err

		entry := im.logger.WithFields(map[string]interface{}{
			"url":      rawURL,
			"position": i + 1,
		})
		if err != nil {
			im.metrics.RecordBatchURL(monitoring.OutcomeError)
			entry.WithField("error", err.Error()).Info("import failed")
			continue
		}
		im.metrics.RecordBatchURL(monitoring.OutcomeSuccess)
		entry.WithField("id", draft.ID).Info("import succeeded")
	}
	return results, nil
}

// GetStats returns a copy of the importer totals
func (im *Importer) GetStats() Stats {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.stats
}

func (im *Importer) record(err error, duration time.Duration) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.stats.ProcessedCount++
	im.stats.LastProcessedAt = im.now()
	im.stats.TotalTime += duration
	if err != nil {
		im.stats.ErrorCount++
	} else {
		im.stats.SuccessCount++
	}
	im.stats.AverageTime = im.stats.TotalTime / time.Duration(im.stats.ProcessedCount)
}

// ParseURLList splits pasted text into URLs, one per line. Blank lines and
// lines not starting with http:// or https:// are dropped.
func ParseURLList(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			urls = append(urls, line)
		}
	}
	return urls
}
