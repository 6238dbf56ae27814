// internal/extract/shipping.go
package extract

import (
	"github.com/valpere/DropScrapexter/internal/product"
)

const FreeShippingName = "Free Shipping"

// methodTemplate describes one synthesized option. A detected base cost
// replaces DefaultCost for UsesBaseCost methods and is scaled by
// Multiplier for the others; with neither set the cost is fixed.
type methodTemplate struct {
	ID            string
	Name          string
	DefaultCost   float64
	UsesBaseCost  bool
	Multiplier    float64
	EstimatedDays string
	Carrier       string
}

var shippingCatalog = map[Family][2]methodTemplate{
	FamilyCrossBorder: {
		{ID: "sm-std", Name: "ePacket / Standard", DefaultCost: 3.50, UsesBaseCost: true, EstimatedDays: "15-30", Carrier: "China Post"},
		{ID: "sm-exp", Name: "Express Shipping", DefaultCost: 15.00, Multiplier: 3, EstimatedDays: "5-10", Carrier: "DHL/FedEx"},
	},
	FamilyAmazon: {
		{ID: "sm-std", Name: "Standard Shipping", DefaultCost: 5.99, UsesBaseCost: true, EstimatedDays: "5-8", Carrier: "USPS"},
		{ID: "sm-prime", Name: "Priority/Prime", DefaultCost: 0, EstimatedDays: "1-3", Carrier: "Amazon Logistics"},
	},
	FamilyEBay: {
		{ID: "sm-std", Name: "Standard", DefaultCost: 4.99, UsesBaseCost: true, EstimatedDays: "5-10", Carrier: "USPS/UPS"},
		{ID: "sm-exp", Name: "Expedited", DefaultCost: 12.99, Multiplier: 2, EstimatedDays: "2-5", Carrier: "UPS"},
	},
	FamilyWalmart: {
		{ID: "sm-std", Name: "Standard", DefaultCost: 0, UsesBaseCost: true, EstimatedDays: "3-7", Carrier: "FedEx/USPS"},
		{ID: "sm-exp", Name: "Express", DefaultCost: 9.99, Multiplier: 2, EstimatedDays: "1-3", Carrier: "FedEx"},
	},
	FamilyBudget: {
		{ID: "sm-std", Name: "Standard Shipping", DefaultCost: 0, UsesBaseCost: true, EstimatedDays: "7-15", Carrier: "Standard"},
		{ID: "sm-exp", Name: "Express", DefaultCost: 8.99, Multiplier: 2.5, EstimatedDays: "3-7", Carrier: "Express"},
	},
	FamilyGeneric: {
		{ID: "sm-std", Name: "Standard Shipping", DefaultCost: 5.00, UsesBaseCost: true, EstimatedDays: "5-15", Carrier: "Standard"},
		{ID: "sm-exp", Name: "Express Shipping", DefaultCost: 15.00, Multiplier: 2.5, EstimatedDays: "2-5", Carrier: "Express"},
	},
}

// SynthesizeShipping returns exactly two shipping methods for the source
// family. baseCost is the detected shipping cost (zero when unknown).
// freeShipping is the explicit free signal; only it, never a bare zero
// cost, turns the first method into "Free Shipping".
func SynthesizeShipping(family Family, baseCost float64, freeShipping bool) []product.ShippingMethod {
	templates, ok := shippingCatalog[family]
	if !ok {
		templates = shippingCatalog[FamilyGeneric]
	}

	methods := make([]product.ShippingMethod, 0, len(templates))
	for _, t := range templates {
		cost := t.DefaultCost
		switch {
		case baseCost <= 0:
		case t.UsesBaseCost:
			cost = baseCost
		case t.Multiplier > 0:
			cost = product.Multiply(baseCost, t.Multiplier)
		}
		methods = append(methods, product.ShippingMethod{
			ID:            t.ID,
			Name:          t.Name,
			Cost:          product.RoundMoney(cost),
			EstimatedDays: t.EstimatedDays,
			Carrier:       t.Carrier,
		})
	}

	if freeShipping && baseCost == 0 {
		methods[0].Cost = 0
		methods[0].Name = FreeShippingName
	}
	return methods
}
