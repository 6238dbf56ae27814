// pkg/api/api.go
package api

import (
	"context"
	"time"

	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/extract"
	"github.com/valpere/DropScrapexter/internal/fetch"
	"github.com/valpere/DropScrapexter/internal/product"
)

// Document-only pipelines never fetch, so they need no retrieval client
var (
	documentGeneral     = extract.NewGeneral(nil)
	documentMarketplace = extract.NewMarketplace(nil)
)

// Extract builds a product from an already retrieved HTML document. url is
// the page address; it decides the source and resolves site extractors.
func Extract(document, url string) (Product, error) {
	return documentGeneral.Extract(context.Background(), document, url)
}

// ExtractMarketplace is Extract restricted to Alibaba, AliExpress and 1688,
// with their per-site fallbacks applied.
func ExtractMarketplace(document, url string) (Product, error) {
	return documentMarketplace.Extract(context.Background(), document, url)
}

// NewDraft wraps a product as a new draft ready for review
func NewDraft(p Product) *Draft {
	return product.NewDraft(p, time.Now().UTC())
}

// UserMessage returns the short reason to show for a failed call
func UserMessage(err error) string {
	return errors.UserMessage(err)
}

// Client retrieves and extracts products by URL. It is safe for concurrent
// use.
type Client struct {
	general     *extract.Pipeline
	marketplace *extract.Pipeline
}

// NewClient creates a client. A zero FetchConfig uses the default proxy
// endpoints and timeouts.
func NewClient(config FetchConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	fetcher := fetch.NewClient(config)
	return &Client{
		general:     extract.NewGeneral(fetcher),
		marketplace: extract.NewMarketplace(fetcher.WithMinContentLength(1000)),
	}, nil
}

// Import fetches url and extracts the product from any site
func (c *Client) Import(ctx context.Context, url string) (Product, error) {
	return c.general.Import(ctx, url)
}

// ImportMarketplace fetches url and extracts a marketplace product
func (c *Client) ImportMarketplace(ctx context.Context, url string) (Product, error) {
	return c.marketplace.Import(ctx, url)
}
