package product

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePartials() []Partial {
	return []Partial{
		{SourceURL: "https://www.amazon.com/dp/B0TEST", Source: "Amazon"},
		{Title: "Structured Title", Price: 19.99, Images: []string{"https://img.example.com/a.jpg?w=100"}},
		{Supplier: "Acme", MinOrder: 2},
		{Title: "Meta Title", Images: []string{"https://img.example.com/b.jpg"}},
		{Title: "Heuristic Title", Price: 25, Rating: 4.5, Reviews: 120},
	}
}

func TestMerge_Deterministic(t *testing.T) {
	first, err := json.Marshal(Merge(samplePartials()...))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := json.Marshal(Merge(samplePartials()...))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMerge_PriorityOrdering(t *testing.T) {
	p := Merge(samplePartials()...)

	assert.Equal(t, "Structured Title", p.Title)
	assert.Equal(t, 19.99, p.Price)
	assert.Equal(t, "Acme", p.Supplier)
	assert.Equal(t, 2, p.MinOrder)
	assert.Equal(t, 4.5, p.Rating)
	assert.Equal(t, 120, p.Reviews)
	assert.Equal(t, []string{"https://img.example.com/a.jpg?w=100"}, p.Images)
	assert.Equal(t, "Amazon", p.Source)
}

func TestMerge_SkipsTrivialValues(t *testing.T) {
	p := Merge(
		Partial{Price: 0, Title: "", Images: []string{}},
		Partial{Price: 12.5, Title: "Lower Priority", Images: []string{"https://x.com/1.png"}},
	)

	assert.Equal(t, 12.5, p.Price)
	assert.Equal(t, "Lower Priority", p.Title)
	assert.Len(t, p.Images, 1)
}

func TestMerge_Defaults(t *testing.T) {
	p := Merge()

	assert.Equal(t, DefaultTitle, p.Title)
	assert.Equal(t, DefaultDescription, p.Description)
	assert.Equal(t, 0.0, p.Price)
	assert.Equal(t, 0.0, p.OriginalPrice)
	assert.Equal(t, DefaultCurrency, p.Currency)
	assert.Equal(t, DefaultCategory, p.Category)
	assert.Equal(t, DefaultSupplier, p.Supplier)
	assert.Equal(t, 1, p.MinOrder)
	assert.Equal(t, DefaultShippingTime, p.ShippingTime)
	assert.NotNil(t, p.Images)
	assert.NotNil(t, p.Tags)
	assert.NotNil(t, p.Variants)
	assert.NotNil(t, p.ShippingMethods)
}

func TestMerge_OriginalPriceInvariant(t *testing.T) {
	tests := []struct {
		name     string
		partials []Partial
		want     float64
	}{
		{"derived from price", []Partial{{Price: 10}}, 13},
		{"kept when higher", []Partial{{Price: 19.99, OriginalPrice: 29.99}}, 29.99},
		{"repaired when lower", []Partial{{Price: 50, OriginalPrice: 20}}, 65},
		{"rounded to cents", []Partial{{Price: 9.99}}, 12.99},
		{"no price", []Partial{{OriginalPrice: 5}}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Merge(tt.partials...)
			assert.Equal(t, tt.want, p.OriginalPrice)
			assert.GreaterOrEqual(t, p.OriginalPrice, p.Price)
		})
	}
}

func TestMerge_RatingClamp(t *testing.T) {
	assert.Equal(t, 5.0, Merge(Partial{Rating: 7.5}).Rating)
	assert.Equal(t, 0.0, Merge(Partial{Rating: -1}).Rating)
	assert.Equal(t, 3.2, Merge(Partial{Rating: 3.2}).Rating)
}

func TestMerge_ImageDedup(t *testing.T) {
	p := Merge(Partial{Images: []string{
		"https://cdn.example.com/a.jpg?size=large",
		"https://cdn.example.com/b.jpg",
		"https://cdn.example.com/a.jpg?size=small",
		"https://cdn.example.com/b.jpg#zoom",
	}})

	assert.Equal(t, []string{
		"https://cdn.example.com/a.jpg?size=large",
		"https://cdn.example.com/b.jpg",
	}, p.Images)
}

func TestMerge_ImageCap(t *testing.T) {
	images := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		images = append(images, "https://cdn.example.com/"+string(rune('a'+i))+".jpg")
	}
	assert.Len(t, Merge(Partial{Images: images}).Images, MaxImages)
}

func TestMerge_ShippingSignals(t *testing.T) {
	t.Run("explicit free", func(t *testing.T) {
		p := Merge(Partial{}, Partial{ShippingCost: Cost(0), FreeShipping: true})
		assert.True(t, p.FreeShipping)
		assert.Equal(t, 0.0, p.ShippingCost)
	})

	t.Run("higher ranked priced shipping wins", func(t *testing.T) {
		p := Merge(Partial{ShippingCost: Cost(4.99)}, Partial{ShippingCost: Cost(0), FreeShipping: true})
		assert.False(t, p.FreeShipping)
		assert.Equal(t, 4.99, p.ShippingCost)
	})

	t.Run("zero without signal is unset", func(t *testing.T) {
		p := Merge(Partial{ShippingCost: Cost(0)}, Partial{ShippingCost: Cost(6)})
		assert.False(t, p.FreeShipping)
		assert.Equal(t, 6.0, p.ShippingCost)
	})

	t.Run("higher ranked free signal wins", func(t *testing.T) {
		p := Merge(Partial{ShippingCost: Cost(0), FreeShipping: true}, Partial{ShippingCost: Cost(6)})
		assert.True(t, p.FreeShipping)
		assert.Equal(t, 0.0, p.ShippingCost)
	})
}

func TestCombine_KeepsUnsetShippingCost(t *testing.T) {
	c := Combine(Partial{Title: "a"}, Partial{ShippingCost: Cost(0)})
	assert.Nil(t, c.ShippingCost)
	assert.False(t, c.FreeShipping)
	assert.Equal(t, "a", c.Title)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	in := Partial{Tags: []string{"one"}}
	p := Merge(in)
	p.Tags[0] = "changed"
	assert.Equal(t, "one", in.Tags[0])
}

func TestDeriveTags(t *testing.T) {
	assert.Equal(t,
		[]string{"wireless", "bluetooth50", "earbuds", "with", "charging", "case"},
		DeriveTags("Wireless Bluetooth-5.0 Earbuds with Charging Case, Go!"),
	)
	assert.Len(t, DeriveTags("alpha bravo charlie delta echo foxtrot golf hotel india juliet"), MaxTags)
	assert.Empty(t, DeriveTags(""))
}

func TestMultiply(t *testing.T) {
	assert.Equal(t, 10.5, Multiply(3.5, 3))
	assert.Equal(t, 0.3, Multiply(0.1, 3))
}

func TestMerge_NegativeCountsDoNotShadow(t *testing.T) {
	p := Merge(
		Partial{MinOrder: -3, Reviews: -42},
		Partial{MinOrder: 10, Reviews: 42},
	)

	assert.Equal(t, 10, p.MinOrder)
	assert.Equal(t, 42, p.Reviews)
}

func TestMerge_VariantsAreCopied(t *testing.T) {
	source := Partial{Variants: []Variant{{ID: "color", Name: "Color", Options: []string{"Black", "White"}}}}

	p := Merge(source)
	p.Variants[0].Options[0] = "Red"
	p.Variants[0].Name = "Colour"

	assert.Equal(t, "Black", source.Variants[0].Options[0])
	assert.Equal(t, "Color", source.Variants[0].Name)
}
