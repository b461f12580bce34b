package cart

import (
	"time"

	"github.com/decantory/backend-decantory/internal/bundle"
)

// Kind discriminates the cart line union.
type Kind string

const (
	// KindItem is a single variant purchase.
	KindItem Kind = "item"
	// KindFixedSet is a curated set referenced by configuration only; its
	// contents are resolved from the configuration at order time.
	KindFixedSet Kind = "fixed_set"
	// KindCustomSet is a customer-composed set carrying the captured slot
	// selections.
	KindCustomSet Kind = "custom_set"
)

// Display carries the cached fields used to render an item line without
// requerying the catalog.
type Display struct {
	Title     string `json:"title"`
	Brand     string `json:"brand,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	SizeLabel string `json:"sizeLabel,omitempty"`
}

// Line is one cart entry. The kind-specific field groups are mutually
// exclusive, discriminated by Kind.
type Line struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Qty  int    `json:"qty"`

	// item
	ProductID string  `json:"productId,omitempty"`
	VariantID string  `json:"variantId,omitempty"`
	Display   Display `json:"display,omitempty"`

	// fixed_set and custom_set
	ConfigID   string             `json:"configId,omitempty"`
	Selections []bundle.Selection `json:"selections,omitempty"`

	// UnitPrice is the price cached when the line was added. Item lines are
	// charged at this price; set lines carry the configuration's flat base
	// price, which is re-read from the catalog at order time.
	UnitPrice int64 `json:"unitPrice"`
}

// Subtotal returns the preview line total in minor units.
func (l Line) Subtotal() int64 {
	if l.Qty <= 0 {
		return 0
	}
	return int64(l.Qty) * l.UnitPrice
}

// IsSet reports whether the line references a bundle configuration.
func (l Line) IsSet() bool {
	return l.Kind == KindFixedSet || l.Kind == KindCustomSet
}

// Cart is the full client cart state. It is always persisted and reloaded
// as a whole.
type Cart struct {
	ID        string    `json:"id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}
