package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/decantory/backend-decantory/internal/cart"
	"github.com/decantory/backend-decantory/internal/catalog"
	"github.com/decantory/backend-decantory/internal/obs"
	"github.com/decantory/backend-decantory/internal/order"
	"github.com/decantory/backend-decantory/internal/store"
)

// Resolver turns cart lines into immutable order snapshots at submission
// time. Slot references are ambiguous on purpose: the storefront may record
// either a variant id or a product id, and the distinction is only settled
// here. Catalog failures degrade to unresolved slots instead of failing the
// order; the customer's picks are always preserved verbatim.
type Resolver struct {
	Catalog catalog.Lookup
	Logger  zerolog.Logger
}

// resolved is one order line ready for persistence, price settled.
type resolved struct {
	Kind      string
	Qty       int32
	UnitPrice int64
	VariantID string
	ConfigID  string
	Snapshot  []byte
}

func (r Resolver) resolveLine(ctx context.Context, l cart.Line) (resolved, error) {
	switch l.Kind {
	case cart.KindItem:
		return r.resolveItem(ctx, l)
	case cart.KindFixedSet:
		return r.resolveFixedSet(ctx, l)
	case cart.KindCustomSet:
		return r.resolveCustomSet(ctx, l)
	default:
		return resolved{}, fmt.Errorf("line %s: unknown kind %q", l.ID, l.Kind)
	}
}

// resolveItem snapshots a variant line from the display fields and price
// cached when the line was added. The variant was validated then; no catalog
// requery is needed here, so later catalog edits cannot bleed into the order.
func (r Resolver) resolveItem(_ context.Context, l cart.Line) (resolved, error) {
	snap := order.ItemSnapshot{
		ProductID: l.ProductID,
		VariantID: l.VariantID,
		Title:     l.Display.Title,
		Brand:     l.Display.Brand,
		ImageURL:  l.Display.ImageURL,
		SizeLabel: l.Display.SizeLabel,
		UnitPrice: l.UnitPrice,
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return resolved{}, err
	}
	return resolved{
		Kind:      string(l.Kind),
		Qty:       int32(l.Qty),
		UnitPrice: snap.UnitPrice,
		VariantID: snap.VariantID,
		Snapshot:  body,
	}, nil
}

// resolveFixedSet expands a curated set from its configuration. A slot whose
// variant no longer exists is dropped from the snapshot with a warning; the
// flat base price is unaffected by the contents.
func (r Resolver) resolveFixedSet(ctx context.Context, l cart.Line) (resolved, error) {
	cfg, err := r.Catalog.BundleConfig(ctx, l.ConfigID)
	if err != nil {
		r.Logger.Warn().Err(err).Str("config_id", l.ConfigID).Msg("set configuration lookup failed, snapshotting without contents")
		return r.marshalSet(l, order.SetSnapshot{ConfigID: l.ConfigID}, l.UnitPrice)
	}
	snap := order.SetSnapshot{
		ConfigID: cfg.ID,
		Name:     cfg.Name,
		VolumeML: cfg.VolumeML,
		Slots:    make([]order.SlotSnapshot, 0, len(cfg.FixedSlots)),
	}
	ids := make([]string, 0, len(cfg.FixedSlots))
	for _, s := range cfg.FixedSlots {
		ids = append(ids, s.VariantID)
	}
	variants := map[string]catalog.Variant{}
	if len(ids) > 0 {
		variants, err = r.Catalog.VariantsByIDs(ctx, ids)
		if err != nil {
			r.Logger.Warn().Err(err).Str("config_id", cfg.ID).Msg("fixed slot lookup failed")
			variants = map[string]catalog.Variant{}
		}
	}
	for _, s := range cfg.FixedSlots {
		v, ok := variants[s.VariantID]
		if !ok {
			r.Logger.Warn().
				Str("config_id", cfg.ID).
				Int("slot", s.SlotIndex).
				Str("variant_id", s.VariantID).
				Msg("fixed slot variant gone, dropping slot from snapshot")
			r.countSlot("dropped", "fixed")
			continue
		}
		snap.Slots = append(snap.Slots, order.SlotSnapshot{
			SlotIndex: s.SlotIndex,
			Ref:       s.VariantID,
			Item:      slotItem(v),
		})
		r.countSlot("resolved", "fixed")
	}
	sortSlots(snap.Slots)
	return r.marshalSet(l, snap, cfg.BasePrice)
}

// resolveCustomSet disambiguates the captured slot references in two batched
// passes: first every ref is tried as a variant id, then the misses are tried
// as product ids at the configuration's sample volume. A direct variant match
// always wins over a product-level match for the same ref. A ref matching
// neither stays in the snapshot unresolved.
func (r Resolver) resolveCustomSet(ctx context.Context, l cart.Line) (resolved, error) {
	basePrice := l.UnitPrice
	var volumeML int32
	snap := order.SetSnapshot{ConfigID: l.ConfigID}

	cfg, err := r.Catalog.BundleConfig(ctx, l.ConfigID)
	if err != nil {
		r.Logger.Warn().Err(err).Str("config_id", l.ConfigID).Msg("set configuration lookup failed, using cached price")
	} else {
		basePrice = cfg.BasePrice
		volumeML = cfg.VolumeML
		snap.Name = cfg.Name
		snap.VolumeML = cfg.VolumeML
	}

	refs := make([]string, 0, len(l.Selections))
	for _, sel := range l.Selections {
		refs = append(refs, sel.Ref)
	}

	byVariant, err := r.Catalog.VariantsByIDs(ctx, refs)
	if err != nil {
		r.Logger.Warn().Err(err).Str("config_id", l.ConfigID).Msg("variant-id pass failed")
		byVariant = map[string]catalog.Variant{}
	}

	// only refs the first pass missed are worth a product-level query
	var misses []string
	for _, ref := range refs {
		if _, ok := byVariant[ref]; !ok {
			misses = append(misses, ref)
		}
	}
	byProduct := map[string]catalog.Variant{}
	if len(misses) > 0 && volumeML > 0 {
		byProduct, err = r.Catalog.VariantsByProduct(ctx, misses, volumeML)
		if err != nil {
			r.Logger.Warn().Err(err).Str("config_id", l.ConfigID).Msg("product-id pass failed")
			byProduct = map[string]catalog.Variant{}
		}
	}

	snap.Slots = make([]order.SlotSnapshot, 0, len(l.Selections))
	for _, sel := range l.Selections {
		slot := order.SlotSnapshot{SlotIndex: sel.SlotIndex, Ref: sel.Ref}
		if v, ok := byVariant[sel.Ref]; ok {
			slot.Item = slotItem(v)
			r.countSlot("resolved", "variant")
		} else if v, ok := byProduct[sel.Ref]; ok {
			slot.Item = slotItem(v)
			r.countSlot("resolved", "product")
		} else {
			r.Logger.Warn().
				Str("config_id", l.ConfigID).
				Int("slot", sel.SlotIndex).
				Str("ref", sel.Ref).
				Msg("slot reference unresolved")
			r.countSlot("unresolved", "none")
		}
		snap.Slots = append(snap.Slots, slot)
	}
	sortSlots(snap.Slots)
	return r.marshalSet(l, snap, basePrice)
}

func (r Resolver) marshalSet(l cart.Line, snap order.SetSnapshot, unitPrice int64) (resolved, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return resolved{}, err
	}
	return resolved{
		Kind:      string(l.Kind),
		Qty:       int32(l.Qty),
		UnitPrice: unitPrice,
		ConfigID:  l.ConfigID,
		Snapshot:  body,
	}, nil
}

func (r Resolver) countSlot(result, phase string) {
	if obs.SlotResolutionTotal != nil {
		obs.SlotResolutionTotal.WithLabelValues(result, phase).Inc()
	}
}

func slotItem(v catalog.Variant) *order.SlotItem {
	return &order.SlotItem{
		ProductID: v.ProductID,
		VariantID: v.ID,
		Title:     v.Title,
		Brand:     v.Brand,
		ImageURL:  v.ImageURL,
		SizeLabel: v.SizeLabel,
	}
}

func sortSlots(slots []order.SlotSnapshot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotIndex < slots[j].SlotIndex })
}

// toItemParams converts a resolved line into insert parameters. Unparseable
// ids are stored as NULL references; the snapshot still carries the original.
func toItemParams(res resolved) store.CreateOrderItemParams {
	p := store.CreateOrderItemParams{
		Kind:      res.Kind,
		Qty:       res.Qty,
		UnitPrice: res.UnitPrice,
		LineTotal: int64(res.Qty) * res.UnitPrice,
		Snapshot:  res.Snapshot,
	}
	if res.VariantID != "" {
		if id, err := store.ToUUID(res.VariantID); err == nil {
			p.VariantID = id
		}
	}
	if res.ConfigID != "" {
		if id, err := store.ToUUID(res.ConfigID); err == nil {
			p.ConfigID = id
		}
	}
	return p
}
