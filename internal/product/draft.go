// internal/product/draft.go
package product

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the editorial state of an imported product
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReady     Status = "ready"
	StatusPublished Status = "published"
)

// ValidStatuses returns all valid status values
func ValidStatuses() []Status {
	return []Status{StatusDraft, StatusReady, StatusPublished}
}

// IsValid checks if the status is a valid value
func (s Status) IsValid() bool {
	for _, valid := range ValidStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// ParseStatus converts user input to a Status
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status %q: must be one of draft, ready, published", s)
	}
	return status, nil
}

// Draft is an extracted product accepted into the catalog
type Draft struct {
	ID        string    `json:"id" yaml:"id"`
	Status    Status    `json:"status" yaml:"status"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
	Product   `yaml:",inline"`
}

// NewDraft assigns identity and timestamps to an extracted product
func NewDraft(p Product, now time.Time) *Draft {
	now = now.UTC()
	return &Draft{
		ID:        uuid.NewString(),
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
		Product:   p,
	}
}

// SetStatus moves the draft to status and bumps UpdatedAt
func (d *Draft) SetStatus(status Status, now time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid status %q", status)
	}
	d.Status = status
	d.UpdatedAt = now.UTC()
	return nil
}

// Margin returns the absolute and percentage gap between the compare-at
// price and the selling price.
func (p *Product) Margin() (amount, percent float64) {
	amount = RoundMoney(p.OriginalPrice - p.Price)
	if p.OriginalPrice <= 0 {
		return amount, 0
	}
	return amount, RoundMoney(amount / p.OriginalPrice * 100)
}
