package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/decantory/backend-decantory/internal/bundle"
	"github.com/decantory/backend-decantory/internal/cart"
	"github.com/decantory/backend-decantory/internal/catalog"
	"github.com/decantory/backend-decantory/internal/order"
)

type fakeCatalog struct {
	variants        map[string]catalog.Variant
	configs         map[string]catalog.BundleConfig
	productsQueried []string
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
	f.productsQueried = append(f.productsQueried, productIDs...)
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

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		variants: map[string]catalog.Variant{
			"var-rose-5":  {ID: "var-rose-5", ProductID: "prod-rose", Title: "Rose Absolue", VolumeML: 5, SizeLabel: "5ml", Price: 1100},
			"var-rose-10": {ID: "var-rose-10", ProductID: "prod-rose", Title: "Rose Absolue", VolumeML: 10, SizeLabel: "10ml", Price: 1900},
			"var-oud-5":   {ID: "var-oud-5", ProductID: "prod-oud", Title: "Oud Royal", VolumeML: 5, SizeLabel: "5ml", Price: 2400},
			"var-iris-5":  {ID: "var-iris-5", ProductID: "prod-iris", Title: "Iris Poudre", VolumeML: 5, SizeLabel: "5ml", Price: 1600},
		},
		configs: map[string]catalog.BundleConfig{
			"cfg-custom": {ID: "cfg-custom", Name: "Build Your Trio", TotalSlots: 3, VolumeML: 5, BasePrice: 4500, Customizable: true, Active: true},
			"cfg-fixed": {ID: "cfg-fixed", Name: "House Classics", TotalSlots: 2, VolumeML: 5, BasePrice: 3900, Active: true,
				FixedSlots: []catalog.SlotAssociation{
					{SlotIndex: 0, VariantID: "var-rose-5"},
					{SlotIndex: 1, VariantID: "var-gone"},
				}},
		},
	}
}

func newResolver(cat *fakeCatalog) Resolver {
	return Resolver{Catalog: cat, Logger: zerolog.Nop()}
}

func decodeSet(t *testing.T, body []byte) order.SetSnapshot {
	t.Helper()
	var snap order.SetSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	return snap
}

func customSetLine(selections []bundle.Selection) cart.Line {
	return cart.Line{
		ID:         "line-1",
		Kind:       cart.KindCustomSet,
		Qty:        1,
		ConfigID:   "cfg-custom",
		Selections: selections,
		UnitPrice:  4500,
	}
}

func TestResolveCustomSetVariantIDWinsOverProductID(t *testing.T) {
	cat := testCatalog()
	// a ref that is a valid variant id never reaches the product pass,
	// even if a product with the same id could also match
	r := newResolver(cat)

	res, err := r.resolveLine(context.Background(), customSetLine([]bundle.Selection{
		{SlotIndex: 0, Ref: "var-rose-5"},
		{SlotIndex: 1, Ref: "var-oud-5"},
		{SlotIndex: 2, Ref: "var-iris-5"},
	}))
	require.NoError(t, err)

	snap := decodeSet(t, res.Snapshot)
	require.Len(t, snap.Slots, 3)
	for _, s := range snap.Slots {
		require.True(t, s.Resolved())
	}
	require.Equal(t, "var-rose-5", snap.Slots[0].Item.VariantID)
	require.Empty(t, cat.productsQueried)
}

func TestResolveCustomSetProductRefResolvesAtConfigVolume(t *testing.T) {
	cat := testCatalog()
	r := newResolver(cat)

	res, err := r.resolveLine(context.Background(), customSetLine([]bundle.Selection{
		{SlotIndex: 0, Ref: "prod-rose"},
		{SlotIndex: 1, Ref: "var-oud-5"},
		{SlotIndex: 2, Ref: "prod-iris"},
	}))
	require.NoError(t, err)

	snap := decodeSet(t, res.Snapshot)
	require.Len(t, snap.Slots, 3)
	// the product ref picks the 5ml variant, not the 10ml one
	require.Equal(t, "var-rose-5", snap.Slots[0].Item.VariantID)
	require.Equal(t, "5ml", snap.Slots[0].Item.SizeLabel)
	require.Equal(t, "var-iris-5", snap.Slots[2].Item.VariantID)
	require.ElementsMatch(t, []string{"prod-rose", "prod-iris"}, cat.productsQueried)
}

func TestResolveCustomSetUnresolvedRefKept(t *testing.T) {
	r := newResolver(testCatalog())

	res, err := r.resolveLine(context.Background(), customSetLine([]bundle.Selection{
		{SlotIndex: 0, Ref: "var-rose-5"},
		{SlotIndex: 1, Ref: "discontinued-thing"},
		{SlotIndex: 2, Ref: "var-oud-5"},
	}))
	require.NoError(t, err)

	snap := decodeSet(t, res.Snapshot)
	require.Len(t, snap.Slots, 3)
	require.False(t, snap.Slots[1].Resolved())
	require.Equal(t, "discontinued-thing", snap.Slots[1].Ref)
	require.Nil(t, snap.Slots[1].Item)
}

func TestResolveCustomSetSlotsAscending(t *testing.T) {
	r := newResolver(testCatalog())

	res, err := r.resolveLine(context.Background(), customSetLine([]bundle.Selection{
		{SlotIndex: 2, Ref: "var-iris-5"},
		{SlotIndex: 0, Ref: "var-rose-5"},
		{SlotIndex: 1, Ref: "var-oud-5"},
	}))
	require.NoError(t, err)

	snap := decodeSet(t, res.Snapshot)
	require.Equal(t, []int{0, 1, 2}, []int{snap.Slots[0].SlotIndex, snap.Slots[1].SlotIndex, snap.Slots[2].SlotIndex})
}

func TestResolveCustomSetFlatBasePrice(t *testing.T) {
	r := newResolver(testCatalog())

	// constituent prices sum to 5100 but the set sells at the flat 4500
	res, err := r.resolveLine(context.Background(), customSetLine([]bundle.Selection{
		{SlotIndex: 0, Ref: "var-rose-5"},
		{SlotIndex: 1, Ref: "var-oud-5"},
		{SlotIndex: 2, Ref: "var-iris-5"},
	}))
	require.NoError(t, err)
	require.Equal(t, int64(4500), res.UnitPrice)
}

func TestResolveFixedSetDropsVanishedSlot(t *testing.T) {
	r := newResolver(testCatalog())

	res, err := r.resolveLine(context.Background(), cart.Line{
		ID: "line-2", Kind: cart.KindFixedSet, Qty: 1, ConfigID: "cfg-fixed", UnitPrice: 3900,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3900), res.UnitPrice)

	snap := decodeSet(t, res.Snapshot)
	require.Equal(t, "House Classics", snap.Name)
	require.Len(t, snap.Slots, 1)
	require.Equal(t, "var-rose-5", snap.Slots[0].Item.VariantID)
}

func TestResolveItemSnapshotsFromCachedDisplay(t *testing.T) {
	r := newResolver(testCatalog())

	// no requery: the snapshot reflects what the customer saw at add time,
	// even for a variant that has since left the catalog
	res, err := r.resolveLine(context.Background(), cart.Line{
		ID: "line-4", Kind: cart.KindItem, Qty: 1,
		ProductID: "prod-old", VariantID: "var-old",
		UnitPrice: 1500,
		Display:   cart.Display{Title: "Archived Blend", SizeLabel: "5ml"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1500), res.UnitPrice)

	var snap order.ItemSnapshot
	require.NoError(t, json.Unmarshal(res.Snapshot, &snap))
	require.Equal(t, "Archived Blend", snap.Title)
	require.Equal(t, "5ml", snap.SizeLabel)
	require.Equal(t, int64(1500), snap.UnitPrice)
}

// erroringCatalog fails every lookup, standing in for a catalog that is
// unreachable at submission time.
type erroringCatalog struct{}

func (erroringCatalog) VariantsByIDs(context.Context, []string) (map[string]catalog.Variant, error) {
	return nil, errors.New("catalog unavailable")
}

func (erroringCatalog) VariantsByProduct(context.Context, []string, int32) (map[string]catalog.Variant, error) {
	return nil, errors.New("catalog unavailable")
}

func (erroringCatalog) BundleConfig(context.Context, string) (catalog.BundleConfig, error) {
	return catalog.BundleConfig{}, errors.New("catalog unavailable")
}

func TestResolveCustomSetDegradesWhenCatalogUnavailable(t *testing.T) {
	r := Resolver{Catalog: erroringCatalog{}, Logger: zerolog.Nop()}

	// lookup failures leave every slot unresolved at the cached price; they
	// never abort the line
	res, err := r.resolveLine(context.Background(), customSetLine([]bundle.Selection{
		{SlotIndex: 0, Ref: "var-rose-5"},
		{SlotIndex: 1, Ref: "prod-iris"},
	}))
	require.NoError(t, err)
	require.Equal(t, int64(4500), res.UnitPrice)

	snap := decodeSet(t, res.Snapshot)
	require.Len(t, snap.Slots, 2)
	for _, s := range snap.Slots {
		require.False(t, s.Resolved())
		require.Nil(t, s.Item)
	}
	require.Equal(t, "var-rose-5", snap.Slots[0].Ref)
	require.Equal(t, "prod-iris", snap.Slots[1].Ref)
}

func TestResolveFixedSetDegradesWhenCatalogUnavailable(t *testing.T) {
	r := Resolver{Catalog: erroringCatalog{}, Logger: zerolog.Nop()}

	res, err := r.resolveLine(context.Background(), cart.Line{
		ID: "line-5", Kind: cart.KindFixedSet, Qty: 1, ConfigID: "cfg-fixed", UnitPrice: 3900,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3900), res.UnitPrice)

	snap := decodeSet(t, res.Snapshot)
	require.Equal(t, "cfg-fixed", snap.ConfigID)
	require.Empty(t, snap.Slots)
}

func TestResolveLineRejectsUnknownKind(t *testing.T) {
	r := newResolver(testCatalog())

	_, err := r.resolveLine(context.Background(), cart.Line{ID: "line-9", Kind: cart.Kind("mystery"), Qty: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown kind")
}

func TestToItemParamsComputesLineTotal(t *testing.T) {
	p := toItemParams(resolved{Kind: "item", Qty: 3, UnitPrice: 1200})
	require.Equal(t, int64(3600), p.LineTotal)
	require.False(t, p.VariantID.Valid)
	require.False(t, p.ConfigID.Valid)
}
