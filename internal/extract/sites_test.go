package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteExtractor_Selection(t *testing.T) {
	assert.IsType(t, &AlibabaFamily{}, SiteExtractor(DetectSource("www.alibaba.com"), false))
	assert.IsType(t, &Amazon{}, SiteExtractor(DetectSource("www.amazon.de"), false))
	assert.Nil(t, SiteExtractor(DetectSource("www.ebay.com"), false))
	assert.Nil(t, SiteExtractor(DetectSource("shop.example.com"), true))
}

func TestAlibabaFamily_ImagesSupplierMOQ(t *testing.T) {
	html := `<script>
var data = {"companyName":"Shenzhen Audio Co., Ltd.","minOrderQuantity": 50,
"imageUrl":"https://img.alicdn.com/imgextra/i1/main_800"};
</script>
<img src="https://ae01.alicdn.com/kf/S1a2b3.jpg_640x640.jpg?width=640">
<img src="https://ae01.alicdn.com/kf/S1a2b3.jpg_640x640.jpg">
<img src="https://ae01.alicdn.com/kf/store-logo.png">
<img src="https://other-cdn.com/kf/x.jpg">`

	general := (&AlibabaFamily{}).Extract(docFor(html, "https://www.alibaba.com/product-detail/x.html", "www.alibaba.com"))
	assert.Equal(t, "Shenzhen Audio Co., Ltd.", general.Supplier)
	assert.Equal(t, 50, general.MinOrder)
	assert.Equal(t, []string{"https://ae01.alicdn.com/kf/S1a2b3.jpg_640x640.jpg"}, general.Images)
	assert.Empty(t, general.Title)

	narrow := (&AlibabaFamily{narrow: true}).Extract(docFor(html, "https://www.alibaba.com/product-detail/x.html", "www.alibaba.com"))
	assert.Equal(t, []string{
		"https://ae01.alicdn.com/kf/S1a2b3.jpg_640x640.jpg",
		"https://img.alicdn.com/imgextra/i1/main_800",
	}, narrow.Images)
}

func TestAlibabaFamily_AlibabaNarrow(t *testing.T) {
	html := `<html><head><title>Portable Waterproof Speaker - Alibaba.com</title></head><body>
<h1 class="product-title">Portable Waterproof Bluetooth Speaker - Alibaba.com</h1>
<div class="price">$3.50 - $5.20</div>
<script>{"rating": "4.6", "category": "Consumer Electronics"}</script>
</body></html>`

	p := (&AlibabaFamily{narrow: true}).Extract(docFor(html, "https://www.alibaba.com/product-detail/x.html", "www.alibaba.com"))
	assert.Equal(t, "Portable Waterproof Bluetooth Speaker", p.Title)
	assert.Equal(t, 3.50, p.Price)
	assert.Equal(t, 5.20, p.OriginalPrice)
	assert.Equal(t, 4.6, p.Rating)
	assert.Equal(t, "Consumer Electronics", p.Category)
}

func TestAlibabaFamily_AliExpressNarrow(t *testing.T) {
	html := `<script>window.runParams = {"subject":"Mini Folding Drone - AliExpress","formattedPrice":"US $12.34","averageStar":"4.7"};</script>`

	p := (&AlibabaFamily{narrow: true}).Extract(docFor(html, "https://www.aliexpress.com/item/1005.html", "www.aliexpress.com"))
	assert.Equal(t, "Mini Folding Drone", p.Title)
	assert.Equal(t, 12.34, p.Price)
	assert.Equal(t, 4.7, p.Rating)
}

func TestAlibabaFamily_1688Narrow(t *testing.T) {
	html := `<html><head><title>Cotton T-Shirt Wholesale - 1688.com</title></head><body><span>¥35</span></body></html>`

	p := (&AlibabaFamily{narrow: true}).Extract(docFor(html, "https://detail.1688.com/offer/1.html", "detail.1688.com"))
	assert.Equal(t, "Cotton T-Shirt Wholesale", p.Title)
	assert.Equal(t, 4.9, p.Price)
}

func TestAmazon_Extract(t *testing.T) {
	html := `<html><body>
<a id="bylineInfo" href="/stores/Anker">Visit the Anker Store</a>
<script>
'colorImages': { 'initial': [
 {"hiRes":"https://m.media-amazon.com/images/I/71a.jpg","large":"https://m.media-amazon.com/images/I/41a.jpg"},
 {"hiRes":"https://m.media-amazon.com/images/I/71b.jpg","large":"https://m.media-amazon.com/images/I/41b.jpg"},
 {"hiRes":"https://m.media-amazon.com/images/I/71a.jpg"}
]}
</script></body></html>`

	p := (&Amazon{}).Extract(docFor(html, "https://www.amazon.com/Anker-Charger/dp/B08N5WRWNW?ref=sr_1", "www.amazon.com"))
	assert.Equal(t, "B08N5WRWNW", p.SKU)
	assert.Equal(t, []string{
		"https://m.media-amazon.com/images/I/71a.jpg",
		"https://m.media-amazon.com/images/I/71b.jpg",
	}, p.Images)
	assert.Equal(t, "Anker", p.Supplier)
}

func TestAmazon_Fallbacks(t *testing.T) {
	html := `<div id="bylineInfo">Brand: Sony</div>
<script>{"asin":"B0C1234567","large":"https://m.media-amazon.com/images/I/41z.jpg"}</script>`

	p := (&Amazon{}).Extract(docFor(html, "https://www.amazon.com/s?k=sony", "www.amazon.com"))
	assert.Equal(t, "B0C1234567", p.SKU)
	require.Len(t, p.Images, 1)
	assert.Equal(t, "https://m.media-amazon.com/images/I/41z.jpg", p.Images[0])
	assert.Equal(t, "Sony", p.Supplier)

	p = (&Amazon{}).Extract(docFor(`{"brand":"Logitech"}`, "https://www.amazon.com/x", "www.amazon.com"))
	assert.Equal(t, "Logitech", p.Supplier)
	assert.Empty(t, p.SKU)
}

func TestAlibabaFamily_1688PriceKey(t *testing.T) {
	html := `<html><head><title>Cotton T-Shirt Wholesale - 1688.com</title></head><body>
<script>var offer = {"price":"35.00"};</script></body></html>`

	p := (&AlibabaFamily{narrow: true}).Extract(docFor(html, "https://detail.1688.com/offer/1.html", "detail.1688.com"))
	assert.Equal(t, 4.9, p.Price)

	prod, err := NewMarketplace(nil).Extract(context.Background(), html, "https://detail.1688.com/offer/1.html")
	require.NoError(t, err)
	assert.Equal(t, 4.9, prod.Price)
}
