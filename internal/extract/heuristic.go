// internal/extract/heuristic.go
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/utils"
)

const (
	maxKeywordTags    = 10
	maxVariantOptions = 10
)

// Field cascades, tried in order. Label-prefixed captures bound the label
// tail and require plausible content so inline CSS such as font-size or
// font-weight is not read as a product attribute.
var (
	priceCascade = Cascade{
		rule(`"(?:price|offerPrice|salePrice|currentPrice)"\s*:\s*"?\$?(\d[\d,]*(?:\.\d+)?)"?`),
		rule(`(?i)class="[^"]*price[^"]*"[^>]*>\s*\$?\s*(\d[\d,]*(?:\.\d+)?)`),
		rule(`\$\s?(\d[\d,]*(?:\.\d+)?)`),
		rule(`(?i)US\s*\$\s*(\d[\d,]*(?:\.\d+)?)`),
		rule(`(?i)(\d[\d,]*(?:\.\d+)?)\s*USD`),
	}.accepting(numberBetween(0.01, 100000))

	ratingCascade = Cascade{
		rule(`(?i)(\d+(?:\.\d+)?)\s*(?:out of|/)\s*5\b`).accepting(numberBetween(0, 5.000001)),
		rule(`"ratingValue"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
		rule(`"averageRating"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
	}

	reviewsCascade = Cascade{
		rule(`(?i)(\d[\d,]*)\s*(?:reviews?|ratings?|evaluations?|opiniones|opinión|reseñas?)\b`),
		rule(`"reviewCount"\s*:\s*"?(\d[\d,]*)"?`),
	}

	weightCascade = Cascade{
		rule(`(?i)(?:weight|peso)[^:<]{0,20}:\s*([^<,\n]{2,30})`).accepting(hasWeightUnit),
		wholeRule(`(?i)\b\d+(?:\.\d+)?\s*(?:kg|lbs?|oz|g)\b`),
	}

	dimensionsCascade = Cascade{
		rule(`(?i)(?:dimensions?|size)[^:<]{0,20}:\s*([^<,\n]{2,50})`).accepting(hasDimensionUnit),
		wholeRule(`(?i)\d+(?:\.\d+)?\s*x\s*\d+(?:\.\d+)?(?:\s*x\s*\d+(?:\.\d+)?)?\s*(?:cm|in|mm)\b`),
	}

	shippingCostCascade = Cascade{
		rule(`(?i)(?:shipping|delivery|env[ií]o)[^:<]{0,20}:\s*\$?\s*(\d+(?:\.\d+)?)`),
		rule(`"shippingPrice"\s*:\s*"?\$?(\d+(?:\.\d+)?)"?`),
		rule(`(?i)shipping[^>]*>\s*\$?(\d+(?:\.\d+)?)`),
	}.accepting(positiveNumber)

	shippingTimeCascade = Cascade{
		rule(`(?i)(\d+)\s*(?:-|–|to)\s*(\d+)\s*(?:business\s+days?|days?|d[ií]as)`),
	}

	brandCascade = Cascade{
		rule(`"brand"\s*:\s*"([^"]+)"`),
		rule(`(?i)(?:brand|marca|sold by|seller)[^:<"]{0,20}:\s*([^<,\n"{}]{2,50})`),
	}.accepting(minLength(1))

	colorArrayRegex = regexp.MustCompile(`(?i)"(?:color|colour)s?"\s*:\s*\[([^\]]+)\]`)
	sizeArrayRegex  = regexp.MustCompile(`(?i)"(?:size|talla|taille)s?"\s*:\s*\[([^\]]+)\]`)
	quotedRegex     = regexp.MustCompile(`"([^"]+)"`)

	freeShippingRegex = regexp.MustCompile(`(?i)free\s*shipping|env[ií]o\s*(?:gratis|gratuito)`)
	titleSepRegex     = regexp.MustCompile(`\s*\|\s*|\s+[-–—]\s+`)
	imageExtRegex     = regexp.MustCompile(`(?i)^https?://\S+\.(?:jpe?g|png|webp)(?:[?#]\S*)?$`)
	weightUnitRegex   = regexp.MustCompile(`(?i)\d\s*(?:kg|g|lbs?|oz|pounds?|grams?|kilograms?)\b`)
	dimUnitRegex      = regexp.MustCompile(`(?i)\d\s*(?:x|×|cm|mm|in\b|inch|")`)

	imageBlocklist = []string{"icon", "logo", "sprite", "pixel", "1x1"}
)

// accepting attaches one validator to every rule of a cascade
func (c Cascade) accepting(accept func(string) bool) Cascade {
	out := make(Cascade, len(c))
	for i, r := range c {
		out[i] = r.accepting(accept)
	}
	return out
}

// Heuristic scans raw markup for fields that structured sources did not
// provide. Every field is best effort and independent of the others.
type Heuristic struct{}

// NewHeuristic creates the heuristic extractor
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Name implements Extractor
func (h *Heuristic) Name() string { return "heuristic" }

// Extract implements Extractor
func (h *Heuristic) Extract(doc *Document) product.Partial {
	html := doc.HTML
	var p product.Partial

	p.Title = headingTitle(doc)

	if v, ok := priceCascade.FirstNumber(html); ok {
		p.Price = v
	}

	p.Images = markupImages(doc)

	if v, ok := ratingCascade.FirstNumber(html); ok {
		p.Rating = v
	}
	if v, ok := reviewsCascade.First(html); ok {
		p.Reviews, _ = utils.ParseInt(v)
	}
	if v, ok := weightCascade.First(html); ok {
		p.Weight = utils.CleanText(v)
	}
	if v, ok := dimensionsCascade.First(html); ok {
		p.Dimensions = utils.CleanText(v)
	}

	if v, ok := shippingCostCascade.FirstNumber(html); ok {
		p.ShippingCost = product.Cost(v)
	}
	// a free-shipping phrase anywhere overrides any numeric match
	if freeShippingRegex.MatchString(html) {
		p.ShippingCost = product.Cost(0)
		p.FreeShipping = true
	}

	if m, ok := shippingTimeCascade.FirstMatch(html); ok {
		p.ShippingTime = fmt.Sprintf("%s-%s days", m[1], m[2])
	}

	p.Tags = keywordTags(doc)

	if v, ok := brandCascade.First(html); ok {
		p.Supplier = utils.CleanText(v)
	}

	p.Variants = variants(doc)
	return p
}

// headingTitle returns the first h1, else the <title> cut at the first
// site-name separator.
func headingTitle(doc *Document) string {
	if h1 := utils.CleanText(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	title := utils.CleanText(doc.Find("title").First().Text())
	if loc := titleSepRegex.FindStringIndex(title); loc != nil && loc[0] > 0 {
		title = title[:loc[0]]
	}
	return strings.TrimSpace(title)
}

func markupImages(doc *Document) []string {
	var images []string
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if !imageExtRegex.MatchString(src) || blocked(src) {
			return true
		}
		images = append(images, src)
		return len(images) < product.MaxImages
	})
	return images
}

func blocked(src string) bool {
	lower := strings.ToLower(src)
	for _, b := range imageBlocklist {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

func keywordTags(doc *Document) []string {
	var tags []string
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if metaKey(sel) != "keywords" {
			return true
		}
		for _, kw := range strings.Split(sel.AttrOr("content", ""), ",") {
			kw = utils.Lower(utils.CleanText(kw))
			if len([]rune(kw)) <= 1 {
				continue
			}
			tags = append(tags, kw)
			if len(tags) == maxKeywordTags {
				break
			}
		}
		return false
	})
	return tags
}

func variants(doc *Document) []product.Variant {
	var out []product.Variant

	colors := quotedOptions(colorArrayRegex, doc.HTML)
	if len(colors) == 0 {
		colors = optionBlock(doc, "color", "colour")
	}
	if len(colors) > 0 {
		out = append(out, product.Variant{ID: "color", Name: "Color", Options: colors})
	}

	if sizes := quotedOptions(sizeArrayRegex, doc.HTML); len(sizes) > 0 {
		out = append(out, product.Variant{ID: "size", Name: "Size", Options: sizes})
	}
	return out
}

// quotedOptions reads the string literals of the first JSON array matched
func quotedOptions(re *regexp.Regexp, html string) []string {
	m := re.FindStringSubmatch(html)
	if m == nil {
		return nil
	}
	var options []string
	for _, q := range quotedRegex.FindAllStringSubmatch(m[1], -1) {
		options = appendOption(options, q[1])
	}
	return options
}

// optionBlock reads a data-option-name selector block, preferring
// data-value attributes over element text.
func optionBlock(doc *Document, names ...string) []string {
	var options []string
	doc.Find("[data-option-name]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name := strings.ToLower(sel.AttrOr("data-option-name", ""))
		if !contains(names, name) {
			return true
		}
		sel.Find("[data-value]").Each(func(_ int, opt *goquery.Selection) {
			options = appendOption(options, opt.AttrOr("data-value", ""))
		})
		if len(options) == 0 {
			sel.Children().Each(func(_ int, opt *goquery.Selection) {
				options = appendOption(options, opt.Text())
			})
		}
		return len(options) == 0
	})
	return options
}

func appendOption(options []string, option string) []string {
	option = utils.CleanText(option)
	if option == "" || len(options) >= maxVariantOptions || contains(options, option) {
		return options
	}
	return append(options, option)
}

func hasWeightUnit(s string) bool {
	return weightUnitRegex.MatchString(s)
}

func hasDimensionUnit(s string) bool {
	return dimUnitRegex.MatchString(s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
