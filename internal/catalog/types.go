package catalog

import (
	"context"
	"errors"
)

// ErrConfigNotFound indicates the requested bundle configuration does not exist.
var ErrConfigNotFound = errors.New("bundle configuration not found")

// Variant is one purchasable size of a product, joined with the parent
// product's display fields.
type Variant struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Brand     string `json:"brand,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	VolumeML  int32  `json:"volumeMl"`
	SizeLabel string `json:"sizeLabel"`
	Price     int64  `json:"price"`
}

// SlotAssociation fixes one slot of a curated set to a variant.
type SlotAssociation struct {
	SlotIndex int    `json:"slotIndex"`
	VariantID string `json:"variantId"`
}

// BundleConfig is the catalog-manager template for a sample set: a fixed
// number of slots at one sample volume, sold at a flat base price that is
// independent of the constituent samples.
type BundleConfig struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	TotalSlots   int               `json:"totalSlots"`
	VolumeML     int32             `json:"volumeMl"`
	BasePrice    int64             `json:"basePrice"`
	Customizable bool              `json:"customizable"`
	Active       bool              `json:"active"`
	FixedSlots   []SlotAssociation `json:"fixedSlots,omitempty"`
}

// Lookup is the read-side catalog collaborator used by cart and checkout.
// All lookups are batched; a reference that cannot be matched is absent from
// the result rather than an error.
type Lookup interface {
	VariantsByIDs(ctx context.Context, ids []string) (map[string]Variant, error)
	// VariantsByProduct resolves each product id to its variant at the given
	// sample volume, keyed by product id.
	VariantsByProduct(ctx context.Context, productIDs []string, volumeML int32) (map[string]Variant, error)
	BundleConfig(ctx context.Context, id string) (BundleConfig, error)
}
