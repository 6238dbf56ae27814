// pkg/api/types.go
package api

import (
	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/fetch"
	"github.com/valpere/DropScrapexter/internal/product"
)

// Re-export types from internal packages for public API
type (
	Product        = product.Product
	ShippingMethod = product.ShippingMethod
	Variant        = product.Variant
	Draft          = product.Draft
	Status         = product.Status

	// Error is the structured failure returned by every extraction call
	Error = errors.ExtractionError
	Kind  = errors.Kind

	// FetchConfig configures retrieval through proxy endpoints
	FetchConfig = fetch.ClientConfig
)

// Draft statuses
const (
	StatusDraft     = product.StatusDraft
	StatusReady     = product.StatusReady
	StatusPublished = product.StatusPublished
)

// Failure kinds
const (
	KindInvalidURL        = errors.KindInvalidURL
	KindUnsupportedSource = errors.KindUnsupportedSource
	KindFetchFailed       = errors.KindFetchFailed
	KindInternal          = errors.KindInternal
)

// Sentinels for errors.Is
var (
	ErrInvalidURL        = errors.ErrInvalidURL
	ErrUnsupportedSource = errors.ErrUnsupportedSource
	ErrFetchFailed       = errors.ErrFetchFailed
	ErrInternal          = errors.ErrInternal
)
