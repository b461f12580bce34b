package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/decantory/backend-decantory/internal/bundle"
	"github.com/decantory/backend-decantory/internal/catalog"
	"github.com/decantory/backend-decantory/internal/common"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Service encapsulates cart operations over an explicit store. The service
// owns persistence timing: every mutation ends with one full-state save.
type Service struct {
	Store   Store
	Catalog catalog.Lookup
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create starts an empty cart and persists it.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c := Cart{ID: uuid.NewString(), UpdatedAt: s.now()}
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get rehydrates the cart from the store.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	return s.Store.Load(ctx, id)
}

// AddLine merges a line into the cart. Item lines coalesce on
// (product, variant): an existing match gains the incoming quantity instead
// of a duplicate row. Set lines never coalesce with each other, since two
// customizations are not fungible, except when the incoming line repeats an
// existing line id exactly.
func (s *Service) AddLine(ctx context.Context, cartID string, line Line) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if line.Qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	c, err := s.Store.Load(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	merged := false
	for i := range c.Lines {
		if !linesCoalesce(c.Lines[i], line) {
			continue
		}
		c.Lines[i].Qty += line.Qty
		merged = true
		break
	}
	if !merged {
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		c.Lines = append(c.Lines, line)
	}
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func linesCoalesce(existing, incoming Line) bool {
	if existing.Kind != incoming.Kind {
		return false
	}
	if incoming.IsSet() {
		// set lines: only an exact repeat of the identical line merges
		return incoming.ID != "" && existing.ID == incoming.ID
	}
	return existing.ProductID == incoming.ProductID && existing.VariantID == incoming.VariantID
}

// AddItem resolves a variant, caches its display fields on the line and
// merges it into the cart.
func (s *Service) AddItem(ctx context.Context, cartID, productID, variantID string, qty int) (Cart, error) {
	if s == nil || s.Catalog == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	variants, err := s.Catalog.VariantsByIDs(ctx, []string{variantID})
	if err != nil {
		return Cart{}, err
	}
	v, ok := variants[variantID]
	if !ok {
		return Cart{}, fmt.Errorf("variant not found: %w", ErrInvalidInput)
	}
	if productID != "" && v.ProductID != productID {
		return Cart{}, fmt.Errorf("variant does not belong to product: %w", ErrInvalidInput)
	}
	return s.AddLine(ctx, cartID, Line{
		Kind:      KindItem,
		Qty:       qty,
		ProductID: v.ProductID,
		VariantID: v.ID,
		UnitPrice: v.Price,
		Display: Display{
			Title:     v.Title,
			Brand:     v.Brand,
			ImageURL:  v.ImageURL,
			SizeLabel: v.SizeLabel,
		},
	})
}

// AddFixedSet adds a curated set line. Only the configuration id is stored;
// the constituent variants are resolved at order time.
func (s *Service) AddFixedSet(ctx context.Context, cartID, configID string, qty int) (Cart, error) {
	if s == nil || s.Catalog == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	cfg, err := s.Catalog.BundleConfig(ctx, configID)
	if err != nil {
		return Cart{}, err
	}
	if !cfg.Active {
		return Cart{}, common.NewAppError("SET_UNAVAILABLE", "set is not available", http.StatusConflict, ErrInvalidInput)
	}
	return s.AddLine(ctx, cartID, Line{
		Kind:      KindFixedSet,
		Qty:       qty,
		ConfigID:  cfg.ID,
		UnitPrice: cfg.BasePrice,
	})
}

// AddCustomSet adds a completed composition as a cart line. The builder must
// have every slot filled; an incomplete set is rejected explicitly.
func (s *Service) AddCustomSet(ctx context.Context, cartID string, b *bundle.Builder, qty int) (Cart, error) {
	if s == nil || s.Catalog == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	selections, err := b.Complete()
	if err != nil {
		return Cart{}, err
	}
	cfg, err := s.Catalog.BundleConfig(ctx, b.ConfigID)
	if err != nil {
		return Cart{}, err
	}
	return s.AddLine(ctx, cartID, Line{
		Kind:       KindCustomSet,
		Qty:        qty,
		ConfigID:   cfg.ID,
		Selections: selections,
		UnitPrice:  cfg.BasePrice,
	})
}

// UpdateQty sets the quantity of an existing line.
func (s *Service) UpdateQty(ctx context.Context, cartID, lineID string, qty int) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	c, err := s.Store.Load(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines[i].Qty = qty
			c.UpdatedAt = s.now()
			if err := s.Store.Save(ctx, c); err != nil {
				return Cart{}, err
			}
			return c, nil
		}
	}
	return Cart{}, fmt.Errorf("line not found: %w", ErrInvalidInput)
}

// RemoveLine deletes the line with the given id.
func (s *Service) RemoveLine(ctx context.Context, cartID, lineID string) (Cart, error) {
	return s.removeWhere(ctx, cartID, func(l Line) bool { return l.ID == lineID })
}

// RemoveItem deletes the item line exactly matching product and variant.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID, variantID string) (Cart, error) {
	return s.removeWhere(ctx, cartID, func(l Line) bool {
		return l.Kind == KindItem && l.ProductID == productID && l.VariantID == variantID
	})
}

func (s *Service) removeWhere(ctx context.Context, cartID string, match func(Line) bool) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.Load(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	kept := c.Lines[:0]
	removed := false
	for _, l := range c.Lines {
		if !removed && match(l) {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	if !removed {
		return Cart{}, fmt.Errorf("line not found: %w", ErrInvalidInput)
	}
	c.Lines = kept
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Clear empties the cart while keeping its id valid.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	c, err := s.Store.Load(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	c.Lines = nil
	c.UpdatedAt = s.now()
	return s.Store.Save(ctx, c)
}
