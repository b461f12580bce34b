package order

// ItemSnapshot freezes the display and price of a single-variant line at
// order time. Later catalog edits never change what the customer sees on
// their order.
type ItemSnapshot struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
	Brand     string `json:"brand,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	SizeLabel string `json:"sizeLabel,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
}

// SlotItem is the resolved occupant of one set slot.
type SlotItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
	Brand     string `json:"brand,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	SizeLabel string `json:"sizeLabel,omitempty"`
}

// SlotSnapshot is one slot of a set snapshot. The original reference is kept
// even when resolution failed, so the order record always shows what the
// customer picked; Item is nil for an unresolved slot.
type SlotSnapshot struct {
	SlotIndex int       `json:"slotIndex"`
	Ref       string    `json:"ref,omitempty"`
	Item      *SlotItem `json:"item"`
}

// Resolved reports whether the slot reference was matched to a variant.
func (s SlotSnapshot) Resolved() bool { return s.Item != nil }

// SetSnapshot freezes a set line: the configuration identity plus every slot,
// always in ascending slot order.
type SetSnapshot struct {
	ConfigID string         `json:"configId"`
	Name     string         `json:"name"`
	VolumeML int32          `json:"volumeMl"`
	Slots    []SlotSnapshot `json:"slots"`
}
