// internal/extract/source.go
package extract

import (
	"strings"
)

// Family groups marketplaces that share shipping conventions and
// site-specific extraction rules.
type Family string

const (
	FamilyCrossBorder Family = "cross_border"
	FamilyAmazon      Family = "amazon"
	FamilyEBay        Family = "ebay"
	FamilyWalmart     Family = "walmart"
	FamilyBudget      Family = "budget"
	FamilyGeneric     Family = "generic"
)

// Source is a detected marketplace
type Source struct {
	Name   string `json:"name"`
	Family Family `json:"family"`
}

type domainEntry struct {
	domain string
	name   string
	family Family
}

var knownDomains = []domainEntry{
	{"alibaba.com", "Alibaba", FamilyCrossBorder},
	{"aliexpress.com", "AliExpress", FamilyCrossBorder},
	{"aliexpress.us", "AliExpress", FamilyCrossBorder},
	{"aliexpress.", "AliExpress", FamilyCrossBorder},
	{"1688.com", "1688", FamilyCrossBorder},
	{"dhgate.com", "DHgate", FamilyCrossBorder},
	{"made-in-china.com", "Made-in-China", FamilyCrossBorder},
	{"banggood.com", "Banggood", FamilyCrossBorder},
	{"gearbest.com", "GearBest", FamilyCrossBorder},
	{"amazon.com", "Amazon", FamilyAmazon},
	{"amazon.co.uk", "Amazon UK", FamilyAmazon},
	{"amazon.de", "Amazon DE", FamilyAmazon},
	{"amazon.es", "Amazon ES", FamilyAmazon},
	{"amazon.com.mx", "Amazon MX", FamilyAmazon},
	{"ebay.com", "eBay", FamilyEBay},
	{"walmart.com", "Walmart", FamilyWalmart},
	{"temu.com", "Temu", FamilyBudget},
	{"shein.com", "Shein", FamilyBudget},
	{"wish.com", "Wish", FamilyBudget},
	{"etsy.com", "Etsy", FamilyGeneric},
	{"target.com", "Target", FamilyGeneric},
	{"bestbuy.com", "Best Buy", FamilyGeneric},
	{"newegg.com", "Newegg", FamilyGeneric},
	{"homedepot.com", "Home Depot", FamilyGeneric},
	{"wayfair.com", "Wayfair", FamilyGeneric},
	{"overstock.com", "Overstock", FamilyGeneric},
	{"costco.com", "Costco", FamilyGeneric},
	{"zappos.com", "Zappos", FamilyGeneric},
}

// narrowSources are the only hosts the marketplace pipeline accepts
var narrowSources = map[string]bool{
	"Alibaba":    true,
	"AliExpress": true,
	"1688":       true,
}

// DetectSource maps a hostname to a marketplace. The longest matching
// domain wins, so amazon.com.mx is never reported as amazon.com. Unknown
// hosts are named after their first label other than "www".
func DetectSource(hostname string) Source {
	host := strings.ToLower(strings.TrimSpace(hostname))

	var best *domainEntry
	for i := range knownDomains {
		entry := &knownDomains[i]
		if !strings.Contains(host, entry.domain) {
			continue
		}
		if best == nil || len(entry.domain) > len(best.domain) {
			best = entry
		}
	}
	if best != nil {
		return Source{Name: best.name, Family: best.family}
	}

	return Source{Name: labelFromHost(host), Family: FamilyGeneric}
}

// IsNarrowSource reports whether the marketplace pipeline supports source
func IsNarrowSource(source Source) bool {
	return narrowSources[source.Name]
}

func labelFromHost(host string) string {
	for _, label := range strings.Split(host, ".") {
		if label == "" || label == "www" {
			continue
		}
		return label
	}
	return host
}
