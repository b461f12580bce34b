package bundle

import (
	"errors"
	"fmt"

	"github.com/decantory/backend-decantory/internal/catalog"
)

var (
	// ErrSlotOutOfRange is returned when a slot index falls outside the configuration.
	ErrSlotOutOfRange = errors.New("slot index out of range")
	// ErrNoFreeSlot is returned by AutoAssign when every slot is occupied.
	ErrNoFreeSlot = errors.New("no slots remain")
	// ErrIncomplete is returned by Complete while any slot is still empty.
	ErrIncomplete = errors.New("bundle incomplete")
	// ErrNotCustomizable is returned when the configuration does not allow custom sets.
	ErrNotCustomizable = errors.New("bundle is not customizable")
)

// Selection pins one catalog reference to a slot. The reference is recorded
// exactly as the storefront supplied it; it may be a variant id or a product
// id and is only disambiguated at order time.
type Selection struct {
	SlotIndex int    `json:"slotIndex"`
	Ref       string `json:"ref"`
}

// Builder tracks slot assignments for one bundle configuration. The slots
// are a fixed-size arena indexed by slot position; assignment is
// last-write-wins with no history.
type Builder struct {
	ConfigID   string    `json:"configId"`
	TotalSlots int       `json:"totalSlots"`
	VolumeML   int32     `json:"volumeMl"`
	Slots      []*string `json:"slots"`
}

// New starts an empty builder for a customizable configuration.
func New(cfg catalog.BundleConfig) (*Builder, error) {
	if !cfg.Customizable {
		return nil, ErrNotCustomizable
	}
	if cfg.TotalSlots < 1 {
		return nil, fmt.Errorf("configuration %s has no slots", cfg.ID)
	}
	return &Builder{
		ConfigID:   cfg.ID,
		TotalSlots: cfg.TotalSlots,
		VolumeML:   cfg.VolumeML,
		Slots:      make([]*string, cfg.TotalSlots),
	}, nil
}

// Assign places ref into the given slot, replacing any existing occupant.
func (b *Builder) Assign(slot int, ref string) error {
	if slot < 0 || slot >= b.TotalSlots {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot)
	}
	r := ref
	b.Slots[slot] = &r
	return nil
}

// AutoAssign places ref into the lowest-indexed empty slot and returns the
// chosen index.
func (b *Builder) AutoAssign(ref string) (int, error) {
	for i, s := range b.Slots {
		if s == nil {
			r := ref
			b.Slots[i] = &r
			return i, nil
		}
	}
	return 0, ErrNoFreeSlot
}

// Remove clears the given slot.
func (b *Builder) Remove(slot int) error {
	if slot < 0 || slot >= b.TotalSlots {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot)
	}
	b.Slots[slot] = nil
	return nil
}

// Filled returns the number of occupied slots.
func (b *Builder) Filled() int {
	n := 0
	for _, s := range b.Slots {
		if s != nil {
			n++
		}
	}
	return n
}

// IsComplete reports whether every slot is occupied. Completion gates adding
// the set to the cart.
func (b *Builder) IsComplete() bool {
	return b.Filled() == b.TotalSlots
}

// Complete returns the selections in slot order, or ErrIncomplete when any
// slot is still empty.
func (b *Builder) Complete() ([]Selection, error) {
	if !b.IsComplete() {
		return nil, fmt.Errorf("%w: %d of %d slots filled", ErrIncomplete, b.Filled(), b.TotalSlots)
	}
	out := make([]Selection, 0, b.TotalSlots)
	for i, s := range b.Slots {
		out = append(out, Selection{SlotIndex: i, Ref: *s})
	}
	return out, nil
}
