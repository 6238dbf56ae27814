// internal/extract/pipeline.go
package extract

import (
	"context"
	stderrors "errors"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/monitoring"
	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/utils"
)

// Pipeline names used in logs and metrics
const (
	PipelineGeneral     = "general"
	PipelineMarketplace = "marketplace"
)

// Fetcher retrieves the document behind a product URL
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Pipeline turns a product URL or page into a complete Product. It holds
// no per-call state and is safe for concurrent use.
type Pipeline struct {
	name       string
	narrow     bool
	fetcher    Fetcher
	structured *StructuredData
	meta       *MetaTags
	heuristic  *Heuristic
	logger     utils.Logger
	metrics    *monitoring.MetricsManager
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(logger utils.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics enables metrics recording
func WithMetrics(metrics *monitoring.MetricsManager) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// NewGeneral creates the any-site pipeline
func NewGeneral(fetcher Fetcher, opts ...Option) *Pipeline {
	return newPipeline(PipelineGeneral, false, fetcher, opts)
}

// NewMarketplace creates the pipeline restricted to Alibaba, AliExpress
// and 1688, with per-site fallbacks.
func NewMarketplace(fetcher Fetcher, opts ...Option) *Pipeline {
	return newPipeline(PipelineMarketplace, true, fetcher, opts)
}

func newPipeline(name string, narrow bool, fetcher Fetcher, opts []Option) *Pipeline {
	p := &Pipeline{
		name:      name,
		narrow:    narrow,
		fetcher:   fetcher,
		meta:      NewMetaTags(),
		heuristic: NewHeuristic(),
		logger:    utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("pipeline", name)
	p.structured = NewStructuredData(p.logger)
	return p
}

// Name returns the pipeline name
func (p *Pipeline) Name() string { return p.name }

// Import validates rawURL, retrieves the page and extracts the product.
// No request is made for an invalid or unsupported URL.
func (p *Pipeline) Import(ctx context.Context, rawURL string) (product.Product, error) {
	start := time.Now()
	rawURL = strings.TrimSpace(rawURL)

	host, source, err := p.admit(rawURL)
	if err != nil {
		return product.Product{}, p.fail(rawURL, source, start, err)
	}

	if p.fetcher == nil {
		return product.Product{}, p.fail(rawURL, source, start,
			errors.New(errors.KindFetchFailed, errors.StageFetching, rawURL, "no retrieval client configured"))
	}

	p.logStage(rawURL, source, errors.StageFetching)
	html, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		var ee *errors.ExtractionError
		if !stderrors.As(err, &ee) {
			err = errors.Wrap(errors.KindFetchFailed, errors.StageFetching, rawURL, err)
		}
		return product.Product{}, p.fail(rawURL, source, start, err)
	}

	prod, err := p.run(ctx, html, rawURL, host)
	if err != nil {
		return product.Product{}, p.fail(rawURL, source, start, err)
	}
	p.metrics.RecordExtraction(p.name, source.Name, monitoring.OutcomeSuccess, time.Since(start))
	return prod, nil
}

// Extract runs extraction over an already retrieved document
func (p *Pipeline) Extract(ctx context.Context, html, rawURL string) (product.Product, error) {
	start := time.Now()
	rawURL = strings.TrimSpace(rawURL)

	host, source, err := p.admit(rawURL)
	if err != nil {
		return product.Product{}, p.fail(rawURL, source, start, err)
	}

	prod, err := p.run(ctx, html, rawURL, host)
	if err != nil {
		return product.Product{}, p.fail(rawURL, source, start, err)
	}
	p.metrics.RecordExtraction(p.name, source.Name, monitoring.OutcomeSuccess, time.Since(start))
	return prod, nil
}

// admit covers the validating and source detection stages
func (p *Pipeline) admit(rawURL string) (string, Source, error) {
	p.logStage(rawURL, Source{}, errors.StageValidating)
	if rawURL == "" {
		return "", Source{}, errors.New(errors.KindInvalidURL, errors.StageValidating, rawURL, "URL is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", Source{}, errors.New(errors.KindInvalidURL, errors.StageValidating, rawURL, "")
	}

	host := strings.ToLower(u.Hostname())
	source := DetectSource(host)
	p.logStage(rawURL, source, errors.StageDetecting)

	if p.narrow && !IsNarrowSource(source) {
		return host, source, errors.New(errors.KindUnsupportedSource, errors.StageDetecting, rawURL, "")
	}
	return host, source, nil
}

// run covers extracting, merging and synthesizing. Panics are converted
// to InternalError so callers always receive a structured failure.
func (p *Pipeline) run(ctx context.Context, html, rawURL, host string) (prod product.Product, err error) {
	stage := errors.StageExtracting
	defer func() {
		if r := recover(); r != nil {
			err = errors.FromPanic(stage, rawURL, r)
		}
	}()

	doc := NewDocument(html, rawURL, host)
	p.logStage(rawURL, doc.Source, stage)

	partials, err := p.extractAll(ctx, doc)
	if err != nil {
		return product.Product{}, err
	}

	stage = errors.StageMerging
	p.logStage(rawURL, doc.Source, stage)
	prod = product.Merge(partials...)

	stage = errors.StageSynthesizing
	p.logStage(rawURL, doc.Source, stage)
	finalize(&prod, doc.Source)

	p.logStage(rawURL, doc.Source, errors.StageDone)
	return prod, nil
}

// extractAll runs the extractors concurrently over the shared document and
// returns their partials in merge precedence order.
func (p *Pipeline) extractAll(ctx context.Context, doc *Document) ([]product.Partial, error) {
	extractors := []Extractor{p.structured}
	if site := SiteExtractor(doc.Source, p.narrow); site != nil {
		extractors = append(extractors, site)
	}
	extractors = append(extractors, p.meta, p.heuristic)

	results := make([]product.Partial, len(extractors))
	g, gctx := errgroup.WithContext(ctx)
	for i, ex := range extractors {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.WithFields(map[string]interface{}{
						"extractor": ex.Name(),
						"panic":     r,
					}).Error("extractor panicked")
					err = errors.FromPanic(errors.StageExtracting, doc.SourceURL, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return errors.Wrap(errors.KindInternal, errors.StageExtracting, doc.SourceURL, err)
			}
			results[i] = ex.Extract(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	partials := make([]product.Partial, 0, len(results)+2)
	partials = append(partials, product.Partial{SourceURL: doc.SourceURL, Source: doc.Source.Name})
	partials = append(partials, results...)
	if p.narrow {
		for i := range partials {
			partials[i].Images = keepAlicdnImages(partials[i].Images)
		}
		partials = append(partials, siteDefaults(doc.Source))
	}
	return partials, nil
}

// finalize synthesizes shipping methods and restores the output
// invariants after merging.
func finalize(prod *product.Product, source Source) {
	if len(prod.ShippingMethods) == 0 {
		prod.ShippingMethods = SynthesizeShipping(source.Family, prod.ShippingCost, prod.FreeShipping)
	}
	if prod.ShippingCost == 0 && !prod.FreeShipping && len(prod.ShippingMethods) > 0 {
		prod.ShippingCost = prod.ShippingMethods[0].Cost
	}
	if len(prod.Tags) == 0 {
		prod.Tags = product.DeriveTags(prod.Title)
	}
	product.EnforcePriceFloor(prod)
}

// siteDefaults is the lowest-ranked partial of the marketplace pipeline
func siteDefaults(source Source) product.Partial {
	switch source.Name {
	case "Alibaba":
		return product.Partial{Price: 12.99, Supplier: "Alibaba Supplier", ShippingTime: "15-45 days"}
	case "AliExpress":
		return product.Partial{Price: 9.99, Supplier: "AliExpress Seller", ShippingTime: "15-30 days"}
	case "1688":
		return product.Partial{Price: 5.99, Supplier: "1688 Supplier", MinOrder: 2, ShippingTime: "20-45 days"}
	default:
		return product.Partial{}
	}
}

func (p *Pipeline) logStage(rawURL string, source Source, stage errors.Stage) {
	p.logger.WithFields(map[string]interface{}{
		"url":    rawURL,
		"source": source.Name,
		"stage":  string(stage),
	}).Debug("pipeline stage")
}

func (p *Pipeline) fail(rawURL string, source Source, start time.Time, err error) error {
	kind := errors.KindOf(err)
	p.logger.WithFields(map[string]interface{}{
		"url":    rawURL,
		"source": source.Name,
		"kind":   string(kind),
		"error":  err.Error(),
	}).Warn("extraction failed")
	p.metrics.RecordExtraction(p.name, source.Name, monitoring.OutcomeError, time.Since(start))
	p.metrics.RecordExtractionError(p.name, string(kind))
	return err
}
