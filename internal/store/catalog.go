package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Variant joins a purchasable variant with its parent product display fields.
type Variant struct {
	ID        pgtype.UUID
	ProductID pgtype.UUID
	Title     string
	Brand     pgtype.Text
	ImageURL  pgtype.Text
	VolumeML  int32
	SizeLabel string
	Price     int64
}

// BundleConfig is a catalog-manager owned sample set template.
type BundleConfig struct {
	ID             pgtype.UUID
	Name           string
	TotalSlots     int32
	VolumeML       int32
	BasePrice      int64
	IsCustomizable bool
	IsActive       bool
}

// BundleConfigSlot fixes one slot of a curated set to a variant.
type BundleConfigSlot struct {
	ConfigID  pgtype.UUID
	SlotIndex int32
	VariantID pgtype.UUID
}

const variantColumns = `v.id, v.product_id, p.title, b.name, p.image_url, v.volume_ml, v.size_label, v.price`

const variantJoins = `
FROM product_variants v
JOIN products p ON p.id = v.product_id
LEFT JOIN brands b ON b.id = p.brand_id`

// ListVariantsByIDs resolves variants for the given variant ids in one round
// trip. Unknown ids are simply absent from the result.
func (s *Store) ListVariantsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Variant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+variantColumns+variantJoins+`
WHERE v.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVariants(rows)
}

// ListVariantsByProducts resolves, for each product id, the variant whose
// volume matches volumeML. Products without a matching size are absent.
func (s *Store) ListVariantsByProducts(ctx context.Context, productIDs []pgtype.UUID, volumeML int32) ([]Variant, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+variantColumns+variantJoins+`
WHERE v.product_id = ANY($1) AND v.volume_ml = $2`, productIDs, volumeML)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVariants(rows)
}

// GetBundleConfig loads one configuration row. Callers translate
// pgx.ErrNoRows themselves.
func (s *Store) GetBundleConfig(ctx context.Context, id pgtype.UUID) (BundleConfig, error) {
	row := s.db.QueryRow(ctx, `SELECT id, name, total_slots, volume_ml, base_price, is_customizable, is_active
FROM bundle_configurations
WHERE id = $1`, id)
	var cfg BundleConfig
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.TotalSlots, &cfg.VolumeML, &cfg.BasePrice, &cfg.IsCustomizable, &cfg.IsActive)
	return cfg, err
}

// ListBundleConfigSlots returns the fixed slot associations for a curated
// set, ordered by slot index.
func (s *Store) ListBundleConfigSlots(ctx context.Context, configID pgtype.UUID) ([]BundleConfigSlot, error) {
	rows, err := s.db.Query(ctx, `SELECT config_id, slot_index, variant_id
FROM bundle_configuration_slots
WHERE config_id = $1
ORDER BY slot_index`, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BundleConfigSlot
	for rows.Next() {
		var slot BundleConfigSlot
		if err := rows.Scan(&slot.ConfigID, &slot.SlotIndex, &slot.VariantID); err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

// ListActiveBundleConfigs returns configurations offered in the storefront.
func (s *Store) ListActiveBundleConfigs(ctx context.Context) ([]BundleConfig, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, total_slots, volume_ml, base_price, is_customizable, is_active
FROM bundle_configurations
WHERE is_active
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BundleConfig
	for rows.Next() {
		var cfg BundleConfig
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.TotalSlots, &cfg.VolumeML, &cfg.BasePrice, &cfg.IsCustomizable, &cfg.IsActive); err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func scanVariants(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Variant, error) {
	var out []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Title, &v.Brand, &v.ImageURL, &v.VolumeML, &v.SizeLabel, &v.Price); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
