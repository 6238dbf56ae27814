package extract

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/monitoring"
	"github.com/valpere/DropScrapexter/internal/product"
)

type fakeFetcher struct {
	html  string
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls.Add(1)
	return f.html, f.err
}

const earbudsPage = `<html><head>
<meta property="og:title" content="Wireless Earbuds">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","offers":{"@type":"AggregateOffer","price":"19.99","highPrice":"29.99","priceCurrency":"USD"}}</script>
</head><body><p>Great sound.</p></body></html>`

func TestPipeline_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{html: earbudsPage}
	p := NewGeneral(fetcher)

	prod, err := p.Import(context.Background(), "https://shop.example.com/p/earbuds")
	require.NoError(t, err)

	assert.Equal(t, "Wireless Earbuds", prod.Title)
	assert.Equal(t, 19.99, prod.Price)
	assert.Equal(t, 29.99, prod.OriginalPrice)
	assert.Equal(t, []string{}, prod.Images)
	assert.Equal(t, 0.0, prod.Rating)
	assert.Len(t, prod.ShippingMethods, 2)

	assert.Equal(t, "USD", prod.Currency)
	assert.Equal(t, product.DefaultDescription, prod.Description)
	assert.Equal(t, "https://shop.example.com/p/earbuds", prod.SourceURL)
	assert.Equal(t, "shop", prod.Source)
	assert.Equal(t, []string{"wireless", "earbuds"}, prod.Tags)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestPipeline_OutputInvariants(t *testing.T) {
	pages := []string{
		earbudsPage,
		`<html><body>nothing useful</body></html>`,
		`<script type="application/ld+json">{"@type":"Product","name":"Odd","offers":{"price":"40","highPrice":"10"},"aggregateRating":{"ratingValue":"9"}}</script>`,
		`not even html <<<>>>`,
	}
	p := NewGeneral(nil)

	for i, page := range pages {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			prod, err := p.Extract(context.Background(), page, "https://www.amazon.com/dp/B08N5WRWNW")
			require.NoError(t, err)

			assert.NotEmpty(t, prod.Title)
			assert.NotEmpty(t, prod.Description)
			assert.NotEmpty(t, prod.Currency)
			assert.GreaterOrEqual(t, prod.OriginalPrice, prod.Price)
			assert.GreaterOrEqual(t, prod.Rating, 0.0)
			assert.LessOrEqual(t, prod.Rating, product.MaxRating)
			assert.LessOrEqual(t, len(prod.Images), product.MaxImages)
			assert.Len(t, prod.ShippingMethods, 2)
			assert.NotNil(t, prod.Images)
			assert.NotNil(t, prod.Tags)
			assert.NotNil(t, prod.Variants)
		})
	}
}

func TestPipeline_FreeShipping(t *testing.T) {
	page := `<h1>Desk Organizer</h1><div class="price">$14.00</div><p>Free shipping on every order</p>`
	prod, err := NewGeneral(nil).Extract(context.Background(), page, "https://shop.example.com/p/1")
	require.NoError(t, err)

	assert.True(t, prod.FreeShipping)
	assert.Equal(t, 0.0, prod.ShippingCost)
	assert.Equal(t, FreeShippingName, prod.ShippingMethods[0].Name)
	assert.Equal(t, 0.0, prod.ShippingMethods[0].Cost)
}

func TestPipeline_DetectedShippingCost(t *testing.T) {
	page := `<h1>Desk Organizer</h1><p>Shipping: $4.99</p>`
	prod, err := NewGeneral(nil).Extract(context.Background(), page, "https://shop.example.com/p/1")
	require.NoError(t, err)

	assert.False(t, prod.FreeShipping)
	assert.Equal(t, 4.99, prod.ShippingCost)
	assert.Equal(t, 4.99, prod.ShippingMethods[0].Cost)
	assert.Equal(t, 12.48, prod.ShippingMethods[1].Cost)
}

func TestPipeline_UnknownShippingIsNotFree(t *testing.T) {
	prod, err := NewGeneral(nil).Extract(context.Background(), `<h1>Cable</h1>`, "https://www.amazon.com/dp/B08N5WRWNW")
	require.NoError(t, err)

	assert.False(t, prod.FreeShipping)
	assert.Equal(t, 5.99, prod.ShippingCost)
	for _, m := range prod.ShippingMethods {
		assert.NotEqual(t, FreeShippingName, m.Name)
	}
	assert.Equal(t, "B08N5WRWNW", prod.SKU)
	assert.Equal(t, "Amazon", prod.Source)
}

func TestPipeline_InvalidURLMakesNoRequest(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "ftp://example.com/file", "https:///path-only"} {
		t.Run(raw, func(t *testing.T) {
			fetcher := &fakeFetcher{html: earbudsPage}
			_, err := NewGeneral(fetcher).Import(context.Background(), raw)
			require.Error(t, err)
			assert.Equal(t, errors.KindInvalidURL, errors.KindOf(err))
			assert.Zero(t, fetcher.calls.Load())
		})
	}
}

func TestPipeline_MarketplaceRejectsOtherSites(t *testing.T) {
	fetcher := &fakeFetcher{html: earbudsPage}
	_, err := NewMarketplace(fetcher).Import(context.Background(), "https://www.amazon.com/dp/B08N5WRWNW")

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnsupportedSource)
	assert.Zero(t, fetcher.calls.Load())
}

func TestPipeline_FetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("connection reset")}
	_, err := NewGeneral(fetcher).Import(context.Background(), "https://shop.example.com/p/1")

	require.Error(t, err)
	assert.Equal(t, errors.KindFetchFailed, errors.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")

	_, err = NewGeneral(nil).Import(context.Background(), "https://shop.example.com/p/1")
	assert.Equal(t, errors.KindFetchFailed, errors.KindOf(err))
}

func TestPipeline_FetchFailureKeepsKind(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New(errors.KindFetchFailed, errors.StageFetching, "u", "all endpoints failed")}
	_, err := NewGeneral(fetcher).Import(context.Background(), "https://shop.example.com/p/1")

	var ee *errors.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "all endpoints failed", ee.Message)
}

func TestPipeline_MarketplaceDefaults(t *testing.T) {
	tests := []struct {
		url      string
		source   string
		price    float64
		supplier string
		minOrder int
		time     string
	}{
		{"https://www.alibaba.com/product-detail/x.html", "Alibaba", 12.99, "Alibaba Supplier", 1, "15-45 days"},
		{"https://www.aliexpress.com/item/1.html", "AliExpress", 9.99, "AliExpress Seller", 1, "15-30 days"},
		{"https://detail.1688.com/offer/1.html", "1688", 5.99, "1688 Supplier", 2, "20-45 days"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			prod, err := NewMarketplace(nil).Extract(context.Background(), `<html><body></body></html>`, tt.url)
			require.NoError(t, err)

			assert.Equal(t, tt.source, prod.Source)
			assert.Equal(t, tt.price, prod.Price)
			assert.Equal(t, product.Markup(tt.price), prod.OriginalPrice)
			assert.Equal(t, tt.supplier, prod.Supplier)
			assert.Equal(t, tt.minOrder, prod.MinOrder)
			assert.Equal(t, tt.time, prod.ShippingTime)
			assert.Equal(t, product.DefaultTitle, prod.Title)
			assert.Equal(t, 3.50, prod.ShippingMethods[0].Cost)
			assert.Equal(t, 3.50, prod.ShippingCost)
		})
	}
}

func TestPipeline_MarketplaceExtractedValuesOutrankDefaults(t *testing.T) {
	page := `<script>{"subject":"Mini Folding Drone","formattedPrice":"US $42.00"}</script>`
	prod, err := NewMarketplace(nil).Extract(context.Background(), page, "https://www.aliexpress.com/item/1.html")
	require.NoError(t, err)

	assert.Equal(t, "Mini Folding Drone", prod.Title)
	assert.Equal(t, 42.0, prod.Price)
	assert.Equal(t, "AliExpress Seller", prod.Supplier)
}

func TestPipeline_MarketplaceKeepsOnlyAlicdnImages(t *testing.T) {
	tests := []struct {
		name string
		page string
		want []string
	}{
		{
			name: "no cdn images",
			page: `<html><head><meta property="og:image" content="https://tracker.example.net/banner.jpg"></head>
<body><img src="https://tracker.example.net/pixel.jpg"></body></html>`,
			want: []string{},
		},
		{
			name: "meta image on cdn",
			page: `<html><head><meta property="og:image" content="https://ae01.alicdn.com/kf/Hmain.jpg?width=800"></head></html>`,
			want: []string{"https://ae01.alicdn.com/kf/Hmain.jpg"},
		},
		{
			name: "structured image off cdn",
			page: `<html><head>
<script type="application/ld+json">{"@type":"Product","name":"Mini Drone","image":"https://tracker.example.net/banner.jpg"}</script>
</head><body><img src="https://ae01.alicdn.com/kf/Hdrone.jpg"></body></html>`,
			want: []string{"https://ae01.alicdn.com/kf/Hdrone.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prod, err := NewMarketplace(nil).Extract(context.Background(), tt.page, "https://www.aliexpress.com/item/1.html")
			require.NoError(t, err)
			assert.Equal(t, tt.want, prod.Images)
		})
	}
}

func TestPipeline_GeneralKeepsOtherImages(t *testing.T) {
	page := `<html><head><meta property="og:image" content="https://img.example.net/earbuds.jpg"></head></html>`
	prod, err := NewGeneral(nil).Extract(context.Background(), page, "https://shop.example.com/p/earbuds")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://img.example.net/earbuds.jpg"}, prod.Images)
}

func TestPipeline_GeneralHasNoMarketplaceDefaults(t *testing.T) {
	prod, err := NewGeneral(nil).Extract(context.Background(), `<html></html>`, "https://www.alibaba.com/product-detail/x.html")
	require.NoError(t, err)

	assert.Equal(t, 0.0, prod.Price)
	assert.Equal(t, product.DefaultSupplier, prod.Supplier)
}

func TestPipeline_ConcurrentUse(t *testing.T) {
	p := NewGeneral(&fakeFetcher{html: earbudsPage})
	want, err := p.Import(context.Background(), "https://shop.example.com/p/earbuds")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]product.Product, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = p.Import(context.Background(), "https://shop.example.com/p/earbuds")
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestPipeline_RecordsMetrics(t *testing.T) {
	metrics := monitoring.NewMetricsManager(monitoring.MetricsConfig{})
	p := NewMarketplace(&fakeFetcher{}, WithMetrics(metrics))

	_, err := p.Import(context.Background(), "https://www.ebay.com/itm/1")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(metrics.Registry(), "dropscrapexter_extractor_extraction_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
