package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/decantory/backend-decantory/internal/store"
)

type stubReader struct {
	configs     map[string]store.BundleConfig
	slots       map[string][]store.BundleConfigSlot
	configReads int
}

func (s *stubReader) ListVariantsByIDs(_ context.Context, ids []pgtype.UUID) ([]store.Variant, error) {
	return nil, nil
}

func (s *stubReader) ListVariantsByProducts(_ context.Context, _ []pgtype.UUID, _ int32) ([]store.Variant, error) {
	return nil, nil
}

func (s *stubReader) GetBundleConfig(_ context.Context, id pgtype.UUID) (store.BundleConfig, error) {
	s.configReads++
	cfg, ok := s.configs[store.UUIDString(id)]
	if !ok {
		return store.BundleConfig{}, pgx.ErrNoRows
	}
	return cfg, nil
}

func (s *stubReader) ListBundleConfigSlots(_ context.Context, configID pgtype.UUID) ([]store.BundleConfigSlot, error) {
	return s.slots[store.UUIDString(configID)], nil
}

func (s *stubReader) ListActiveBundleConfigs(_ context.Context) ([]store.BundleConfig, error) {
	var out []store.BundleConfig
	for _, cfg := range s.configs {
		if cfg.IsActive {
			out = append(out, cfg)
		}
	}
	return out, nil
}

const cfgID = "6f1b7d2e-58c4-4a3b-9a52-2b6f4f3f8e01"
const slotVariantID = "5d0a6c1b-47e3-49d2-8c31-1a5e4d3c2b10"

func newCatalogService(t *testing.T) (*Service, *stubReader) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	id, err := store.ToUUID(cfgID)
	require.NoError(t, err)
	varID, err := store.ToUUID(slotVariantID)
	require.NoError(t, err)

	reader := &stubReader{
		configs: map[string]store.BundleConfig{
			cfgID: {ID: id, Name: "House Classics", TotalSlots: 2, VolumeML: 5, BasePrice: 3900, IsActive: true},
		},
		slots: map[string][]store.BundleConfigSlot{
			cfgID: {{ConfigID: id, SlotIndex: 0, VariantID: varID}},
		},
	}
	return &Service{Store: reader, Cache: NewCache(client, time.Minute)}, reader
}

func TestBundleConfigReadThroughCache(t *testing.T) {
	svc, reader := newCatalogService(t)
	ctx := context.Background()

	cfg, err := svc.BundleConfig(ctx, cfgID)
	require.NoError(t, err)
	require.Equal(t, "House Classics", cfg.Name)
	require.Len(t, cfg.FixedSlots, 1)
	require.Equal(t, slotVariantID, cfg.FixedSlots[0].VariantID)
	require.Equal(t, 1, reader.configReads)

	// second read is served from the cache
	cfg2, err := svc.BundleConfig(ctx, cfgID)
	require.NoError(t, err)
	require.Equal(t, cfg, cfg2)
	require.Equal(t, 1, reader.configReads)
}

func TestBundleConfigNotFound(t *testing.T) {
	svc, _ := newCatalogService(t)

	_, err := svc.BundleConfig(context.Background(), "0e0e0e0e-0e0e-4e0e-8e0e-0e0e0e0e0e0e")
	require.ErrorIs(t, err, ErrConfigNotFound)
}

func TestBundleConfigMalformedID(t *testing.T) {
	svc, _ := newCatalogService(t)

	_, err := svc.BundleConfig(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrConfigNotFound)
}
