package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/decantory/backend-decantory/internal/bundle"
	"github.com/decantory/backend-decantory/internal/catalog"
)

type memStore struct {
	carts map[string]Cart
}

func newMemStore() *memStore { return &memStore{carts: map[string]Cart{}} }

func (m *memStore) Load(_ context.Context, id string) (Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) Save(_ context.Context, c Cart) error {
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	c.Lines = lines
	m.carts[c.ID] = c
	return nil
}

type fakeCatalog struct {
	variants map[string]catalog.Variant
	configs  map[string]catalog.BundleConfig
}

func (f *fakeCatalog) VariantsByIDs(_ context.Context, ids []string) (map[string]catalog.Variant, error) {
	out := map[string]catalog.Variant{}
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeCatalog) VariantsByProduct(_ context.Context, productIDs []string, volumeML int32) (map[string]catalog.Variant, error) {
	out := map[string]catalog.Variant{}
	for _, v := range f.variants {
		if v.VolumeML != volumeML {
			continue
		}
		for _, pid := range productIDs {
			if v.ProductID == pid {
				out[pid] = v
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) BundleConfig(_ context.Context, id string) (catalog.BundleConfig, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return catalog.BundleConfig{}, catalog.ErrConfigNotFound
	}
	return cfg, nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	cat := &fakeCatalog{
		variants: map[string]catalog.Variant{
			"var-1": {ID: "var-1", ProductID: "prod-1", Title: "Vetiver Extraordinaire", Brand: "Maison Test", VolumeML: 5, SizeLabel: "5ml", Price: 1200},
			"var-2": {ID: "var-2", ProductID: "prod-2", Title: "Ambre Nuit", VolumeML: 5, SizeLabel: "5ml", Price: 1500},
		},
		configs: map[string]catalog.BundleConfig{
			"cfg-1": {ID: "cfg-1", Name: "Discovery Trio", TotalSlots: 3, VolumeML: 5, BasePrice: 4500, Customizable: true, Active: true},
			"cfg-2": {ID: "cfg-2", Name: "Retired Set", TotalSlots: 3, VolumeML: 5, BasePrice: 4500, Active: false},
		},
	}
	svc := &Service{
		Store:   store,
		Catalog: cat,
		Now:     func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return svc, store
}

func TestAddItemCoalesces(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, c.ID, "prod-1", "var-1", 1)
	require.NoError(t, err)
	got, err := svc.AddItem(ctx, c.ID, "prod-1", "var-1", 2)
	require.NoError(t, err)

	require.Len(t, got.Lines, 1)
	require.Equal(t, 3, got.Lines[0].Qty)
	require.Equal(t, "Vetiver Extraordinaire", got.Lines[0].Display.Title)
	require.Equal(t, int64(1200), got.Lines[0].UnitPrice)
}

func TestAddItemDistinctVariantsStaySeparate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, c.ID, "prod-1", "var-1", 1)
	require.NoError(t, err)
	got, err := svc.AddItem(ctx, c.ID, "prod-2", "var-2", 1)
	require.NoError(t, err)

	require.Len(t, got.Lines, 2)
}

func TestAddItemUnknownVariant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, c.ID, "prod-1", "missing", 1)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCustomSetsNeverCoalesce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	build := func() *bundle.Builder {
		b, err := bundle.New(catalog.BundleConfig{ID: "cfg-1", TotalSlots: 3, VolumeML: 5, Customizable: true})
		require.NoError(t, err)
		for i, ref := range []string{"var-1", "var-2", "prod-1"} {
			require.NoError(t, b.Assign(i, ref))
		}
		return b
	}

	_, err = svc.AddCustomSet(ctx, c.ID, build(), 1)
	require.NoError(t, err)
	got, err := svc.AddCustomSet(ctx, c.ID, build(), 1)
	require.NoError(t, err)

	// identical selections still mean two independent compositions
	require.Len(t, got.Lines, 2)
	require.Equal(t, int64(4500), got.Lines[0].UnitPrice)
	require.Equal(t, int64(4500), got.Lines[1].UnitPrice)
}

func TestAddLineRepeatedIDMerges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	line := Line{ID: "line-abc", Kind: KindFixedSet, Qty: 1, ConfigID: "cfg-1", UnitPrice: 4500}
	_, err = svc.AddLine(ctx, c.ID, line)
	require.NoError(t, err)
	got, err := svc.AddLine(ctx, c.ID, line)
	require.NoError(t, err)

	require.Len(t, got.Lines, 1)
	require.Equal(t, 2, got.Lines[0].Qty)
}

func TestAddCustomSetIncompleteBuilder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	b, err := bundle.New(catalog.BundleConfig{ID: "cfg-1", TotalSlots: 3, VolumeML: 5, Customizable: true})
	require.NoError(t, err)
	require.NoError(t, b.Assign(0, "var-1"))

	_, err = svc.AddCustomSet(ctx, c.ID, b, 1)
	require.ErrorIs(t, err, bundle.ErrIncomplete)
}

func TestAddFixedSetInactiveConfig(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddFixedSet(ctx, c.ID, "cfg-2", 1)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateQtyAndRemove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	got, err := svc.AddItem(ctx, c.ID, "prod-1", "var-1", 1)
	require.NoError(t, err)
	lineID := got.Lines[0].ID

	got, err = svc.UpdateQty(ctx, c.ID, lineID, 5)
	require.NoError(t, err)
	require.Equal(t, 5, got.Lines[0].Qty)

	got, err = svc.RemoveLine(ctx, c.ID, lineID)
	require.NoError(t, err)
	require.Empty(t, got.Lines)

	_, err = svc.RemoveLine(ctx, c.ID, lineID)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRemoveItemByVariant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, c.ID, "prod-1", "var-1", 2)
	require.NoError(t, err)
	_, err = svc.AddFixedSet(ctx, c.ID, "cfg-1", 1)
	require.NoError(t, err)

	got, err := svc.RemoveItem(ctx, c.ID, "prod-1", "var-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.Equal(t, KindFixedSet, got.Lines[0].Kind)
}

func TestClearKeepsCartID(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, c.ID, "prod-1", "var-1", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, c.ID))

	got, err := store.Load(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, got.Lines)
}

func TestClearMissingCartIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Clear(context.Background(), "nope"))
}

func TestAddLineRejectsNonPositiveQty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, c.ID, Line{Kind: KindItem, Qty: 0, ProductID: "prod-1", VariantID: "var-1"})
	require.ErrorIs(t, err, ErrInvalidInput)
}
