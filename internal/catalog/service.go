package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/decantory/backend-decantory/internal/store"
)

// Reader is the subset of store queries the catalog service depends on.
type Reader interface {
	ListVariantsByIDs(ctx context.Context, ids []pgtype.UUID) ([]store.Variant, error)
	ListVariantsByProducts(ctx context.Context, productIDs []pgtype.UUID, volumeML int32) ([]store.Variant, error)
	GetBundleConfig(ctx context.Context, id pgtype.UUID) (store.BundleConfig, error)
	ListBundleConfigSlots(ctx context.Context, configID pgtype.UUID) ([]store.BundleConfigSlot, error)
	ListActiveBundleConfigs(ctx context.Context) ([]store.BundleConfig, error)
}

// Service implements Lookup over the database, with a read-through cache for
// bundle configurations.
type Service struct {
	Store Reader
	Cache *Cache
}

// VariantsByIDs resolves the given variant ids in one batched query.
func (s *Service) VariantsByIDs(ctx context.Context, ids []string) (map[string]Variant, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	uuids := store.ToUUIDs(ids)
	rows, err := s.Store.ListVariantsByIDs(ctx, uuids)
	if err != nil {
		return nil, fmt.Errorf("variants by id: %w", err)
	}
	out := make(map[string]Variant, len(rows))
	for _, row := range rows {
		v := fromRow(row)
		out[v.ID] = v
	}
	return out, nil
}

// VariantsByProduct resolves each product id to its variant at volumeML.
func (s *Service) VariantsByProduct(ctx context.Context, productIDs []string, volumeML int32) (map[string]Variant, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	uuids := store.ToUUIDs(productIDs)
	rows, err := s.Store.ListVariantsByProducts(ctx, uuids, volumeML)
	if err != nil {
		return nil, fmt.Errorf("variants by product: %w", err)
	}
	out := make(map[string]Variant, len(rows))
	for _, row := range rows {
		v := fromRow(row)
		out[v.ProductID] = v
	}
	return out, nil
}

// BundleConfig loads a configuration together with its fixed slot
// associations, cached under its id.
func (s *Service) BundleConfig(ctx context.Context, id string) (BundleConfig, error) {
	if s == nil || s.Store == nil {
		return BundleConfig{}, errors.New("catalog service not configured")
	}
	key := "catalog:bundle:" + id
	var cached BundleConfig
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	cfgID, err := store.ToUUID(id)
	if err != nil {
		return BundleConfig{}, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}
	row, err := s.Store.GetBundleConfig(ctx, cfgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BundleConfig{}, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
		}
		return BundleConfig{}, err
	}
	slots, err := s.Store.ListBundleConfigSlots(ctx, cfgID)
	if err != nil {
		return BundleConfig{}, err
	}
	cfg := fromConfigRow(row)
	cfg.FixedSlots = make([]SlotAssociation, 0, len(slots))
	for _, slot := range slots {
		cfg.FixedSlots = append(cfg.FixedSlots, SlotAssociation{
			SlotIndex: int(slot.SlotIndex),
			VariantID: store.UUIDString(slot.VariantID),
		})
	}
	_ = s.Cache.SetJSON(ctx, key, cfg)
	return cfg, nil
}

// ActiveBundleConfigs lists configurations offered in the storefront.
func (s *Service) ActiveBundleConfigs(ctx context.Context) ([]BundleConfig, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	rows, err := s.Store.ListActiveBundleConfigs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BundleConfig, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromConfigRow(row))
	}
	return out, nil
}

func fromRow(row store.Variant) Variant {
	return Variant{
		ID:        store.UUIDString(row.ID),
		ProductID: store.UUIDString(row.ProductID),
		Title:     row.Title,
		Brand:     row.Brand.String,
		ImageURL:  row.ImageURL.String,
		VolumeML:  row.VolumeML,
		SizeLabel: row.SizeLabel,
		Price:     row.Price,
	}
}

func fromConfigRow(row store.BundleConfig) BundleConfig {
	return BundleConfig{
		ID:           store.UUIDString(row.ID),
		Name:         row.Name,
		TotalSlots:   int(row.TotalSlots),
		VolumeML:     row.VolumeML,
		BasePrice:    row.BasePrice,
		Customizable: row.IsCustomizable,
		Active:       row.IsActive,
	}
}
