package api_test

import (
	"fmt"

	"github.com/valpere/DropScrapexter/pkg/api"
)

func ExampleExtract() {
	page := `<html><head>
<meta property="og:title" content="Wireless Earbuds">
<meta property="product:price:amount" content="19.99">
<meta property="product:price:currency" content="USD">
</head><body></body></html>`

	prod, err := api.Extract(page, "https://shop.example.com/p/earbuds")
	if err != nil {
		fmt.Println(api.UserMessage(err))
		return
	}
	fmt.Printf("%s %.2f %s\n", prod.Title, prod.Price, prod.Currency)
}

func ExampleExtractMarketplace() {
	_, err := api.ExtractMarketplace("<html></html>", "https://shop.example.com/p/earbuds")
	fmt.Println(err != nil)
	// Output: true
}
