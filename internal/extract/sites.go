// internal/extract/sites.go
package extract

import (
	"regexp"
	"strings"

	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/utils"
)

// CNY to USD rate applied to prices read from 1688 pages
const yuanToUSD = 0.14

var (
	alicdnImageRegex  = regexp.MustCompile(`(?i)https://[a-z0-9]+\.alicdn\.com/[^"'\s<>]+\.(?:jpg|jpeg|png|webp)`)
	aliImageKeyRegex  = regexp.MustCompile(`"(?:imageUrl|originalImageURI)"\s*:\s*"(https://[^"]+)"`)
	aliImageBlocklist = []string{"logo", "icon", "avatar"}

	aliSupplierCascade = Cascade{
		rule(`"companyName"\s*:\s*"([^"]+)"`),
		rule(`"supplierName"\s*:\s*"([^"]+)"`),
		rule(`(?i)class="[^"]*company-name[^"]*"[^>]*>([^<]+)<`),
		rule(`"sellerName"\s*:\s*"([^"]+)"`),
	}.accepting(minLength(1))

	aliMOQCascade = Cascade{
		rule(`"minOrderQuantity"\s*:\s*(\d+)`),
		rule(`(?i)Min\.?\s*Order[^:<]{0,20}:\s*(\d+)`),
		rule(`(?i)MOQ[^:<]{0,20}:\s*(\d+)`),
		rule(`(?i)(\d+)\s*(?:Pieces?|Sets?|Units?)\s*\(Min`),
	}.accepting(positiveNumber)

	alibabaTitleCascade = Cascade{
		rule(`(?i)<h1[^>]*class="[^"]*title[^"]*"[^>]*>([^<]+)<`),
		rule(`(?i)<title[^>]*>([^<|]+)`),
		rule(`"subject"\s*:\s*"([^"]+)"`),
	}.accepting(minLength(10))

	alibabaPriceRangeRegex = regexp.MustCompile(`\$(\d[\d,]*(?:\.\d+)?)\s*-\s*\$(\d[\d,]*(?:\.\d+)?)`)
	alibabaPriceCascade    = Cascade{
		rule(`"priceRange"\s*:\s*\{\s*"min"\s*:\s*(\d+(?:\.\d+)?)`),
		rule(`data-price="(\d+(?:\.\d+)?)"`),
		rule(`"minPrice"\s*:\s*"?(\d+(?:\.\d+)?)`),
	}.accepting(numberBetween(0.1, 50000))

	alibabaRatingCascade = Cascade{
		rule(`"rating"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
	}
	alibabaCategoryCascade = Cascade{
		rule(`"category"\s*:\s*"([^"]+)"`),
		rule(`(?i)breadcrumb[^>]*>([^<]+)<`),
	}.accepting(func(s string) bool { return strings.TrimSpace(s) != "" })

	aliexpressTitleCascade = Cascade{
		rule(`"subject"\s*:\s*"([^"]+)"`),
	}
	aliexpressPriceCascade = Cascade{
		rule(`"formattedPrice"\s*:\s*"US\s*\$\s*(\d[\d,]*(?:\.\d+)?)"`),
		rule(`"minPrice"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
		rule(`"discountPrice"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
	}.accepting(positiveNumber)
	aliexpressRatingCascade = Cascade{
		rule(`"averageStar"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
	}

	yuanPriceCascade = Cascade{
		rule(`(?:&yen;|¥|￥)\s*(\d+(?:\.\d+)?)`),
		rule(`"price"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
	}.accepting(positiveNumber)

	titleSuffixRegex = regexp.MustCompile(`(?i)\s*(?:-\s*Alibaba\.com|\|\s*Alibaba|-\s*AliExpress(?:\.com)?|-\s*1688\.com)\s*$`)

	asinURLRegex     = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)
	asinKeyRegex     = regexp.MustCompile(`"asin"\s*:\s*"([A-Z0-9]{10})"`)
	amazonHiResRegex = regexp.MustCompile(`"hiRes"\s*:\s*"(https://[^"]+)"`)
	amazonLargeRegex = regexp.MustCompile(`"large"\s*:\s*"(https://[^"]+)"`)
	bylineRegex      = regexp.MustCompile(`(?i)^(?:Visit the\s+|Brand:\s*)?(.+?)(?:\s+Store)?$`)
	brandKeyCascade  = Cascade{rule(`"brand"\s*:\s*"([^"]+)"`)}
)

// SiteExtractor returns the marketplace-specific extractor for source,
// or nil when the source has none. narrow enables the per-site price,
// title and rating patterns used by the marketplace pipeline.
func SiteExtractor(source Source, narrow bool) Extractor {
	switch {
	case IsNarrowSource(source):
		return &AlibabaFamily{narrow: narrow}
	case source.Family == FamilyAmazon:
		return &Amazon{}
	default:
		return nil
	}
}

// AlibabaFamily reads Alibaba, AliExpress and 1688 pages
type AlibabaFamily struct {
	narrow bool
}

// Name implements Extractor
func (a *AlibabaFamily) Name() string { return "alibaba_family" }

// Extract implements Extractor
func (a *AlibabaFamily) Extract(doc *Document) product.Partial {
	html := doc.HTML
	var p product.Partial

	p.Images = alicdnImages(html, a.narrow)

	if v, ok := aliSupplierCascade.First(html); ok {
		p.Supplier = utils.CleanText(v)
	}
	if v, ok := aliMOQCascade.First(html); ok {
		p.MinOrder, _ = utils.ParseInt(v)
	}

	if !a.narrow {
		return p
	}

	switch doc.Source.Name {
	case "Alibaba":
		a.alibaba(html, &p)
	case "AliExpress":
		a.aliexpress(html, &p)
	case "1688":
		a.site1688(doc, &p)
	}
	p.Title = cleanTitleSuffix(p.Title)
	return p
}

func (a *AlibabaFamily) alibaba(html string, p *product.Partial) {
	if v, ok := alibabaTitleCascade.First(html); ok {
		p.Title = v
	}
	if v, ok := alibabaPriceCascade.FirstNumber(html); ok {
		p.Price = v
	} else if m := alibabaPriceRangeRegex.FindStringSubmatch(html); m != nil {
		lo, okLo := utils.ParseNumber(m[1])
		hi, okHi := utils.ParseNumber(m[2])
		if okLo && lo > 0.1 && lo < 50000 {
			p.Price = lo
			if okHi && hi >= lo {
				p.OriginalPrice = hi
			}
		}
	}
	if v, ok := alibabaRatingCascade.FirstNumber(html); ok {
		p.Rating = v
	}
	if v, ok := alibabaCategoryCascade.First(html); ok {
		p.Category = utils.CleanText(v)
	}
}

func (a *AlibabaFamily) aliexpress(html string, p *product.Partial) {
	if v, ok := aliexpressTitleCascade.First(html); ok {
		p.Title = v
	}
	if v, ok := aliexpressPriceCascade.FirstNumber(html); ok {
		p.Price = v
	}
	if v, ok := aliexpressRatingCascade.FirstNumber(html); ok {
		p.Rating = v
	}
}

func (a *AlibabaFamily) site1688(doc *Document, p *product.Partial) {
	p.Title = doc.Find("title").First().Text()
	if v, ok := yuanPriceCascade.FirstNumber(doc.HTML); ok {
		p.Price = product.Multiply(v, yuanToUSD)
	}
}

// alicdnImages collects CDN product images with query strings removed,
// skipping storefront chrome such as logos and avatars.
func alicdnImages(html string, includeKeys bool) []string {
	var images []string
	add := func(img string) bool {
		if img, ok := alicdnImage(img); ok && !contains(images, img) {
			images = append(images, img)
		}
		return len(images) < product.MaxImages
	}

	for _, m := range alicdnImageRegex.FindAllString(html, -1) {
		if !add(m) {
			return images
		}
	}
	if includeKeys {
		for _, m := range aliImageKeyRegex.FindAllStringSubmatch(html, -1) {
			if !add(m[1]) {
				return images
			}
		}
	}
	return images
}

// alicdnImage strips the query from img and reports whether it is a
// product image on the Alibaba CDN
func alicdnImage(img string) (string, bool) {
	img = utils.StripQuery(strings.TrimSpace(img))
	lower := strings.ToLower(img)
	if !strings.Contains(lower, "alicdn") {
		return "", false
	}
	for _, b := range aliImageBlocklist {
		if strings.Contains(lower, b) {
			return "", false
		}
	}
	return img, true
}

// keepAlicdnImages narrows a partial's images to alicdn product images.
// A result with nothing left is nil so lower-ranked partials can supply
// images instead.
func keepAlicdnImages(images []string) []string {
	var kept []string
	for _, img := range images {
		if img, ok := alicdnImage(img); ok && !contains(kept, img) {
			kept = append(kept, img)
		}
	}
	return kept
}

func cleanTitleSuffix(title string) string {
	return utils.CleanText(titleSuffixRegex.ReplaceAllString(utils.CleanText(title), ""))
}

// Amazon reads Amazon storefront pages
type Amazon struct{}

// Name implements Extractor
func (a *Amazon) Name() string { return "amazon" }

// Extract implements Extractor
func (a *Amazon) Extract(doc *Document) product.Partial {
	html := doc.HTML
	var p product.Partial

	if m := asinURLRegex.FindStringSubmatch(doc.SourceURL); m != nil {
		p.SKU = m[1]
	} else if m := asinURLRegex.FindStringSubmatch(html); m != nil {
		p.SKU = m[1]
	} else if m := asinKeyRegex.FindStringSubmatch(html); m != nil {
		p.SKU = m[1]
	}

	p.Images = uniqueCaptures(amazonHiResRegex, html, product.MaxImages)
	if len(p.Images) == 0 {
		p.Images = uniqueCaptures(amazonLargeRegex, html, product.MaxImages)
	}

	if byline := utils.CleanText(doc.Find("#bylineInfo").First().Text()); byline != "" {
		if m := bylineRegex.FindStringSubmatch(byline); m != nil {
			p.Supplier = strings.TrimSpace(m[1])
		}
	}
	if p.Supplier == "" {
		if v, ok := brandKeyCascade.First(html); ok {
			p.Supplier = utils.CleanText(v)
		}
	}
	return p
}

func uniqueCaptures(re *regexp.Regexp, text string, limit int) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if contains(out, m[1]) {
			continue
		}
		out = append(out, m[1])
		if len(out) == limit {
			break
		}
	}
	return out
}
