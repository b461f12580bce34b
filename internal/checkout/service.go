package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/decantory/backend-decantory/internal/cart"
	"github.com/decantory/backend-decantory/internal/lock"
	"github.com/decantory/backend-decantory/internal/notify"
	"github.com/decantory/backend-decantory/internal/obs"
	"github.com/decantory/backend-decantory/internal/pricing"
	"github.com/decantory/backend-decantory/internal/shipping"
	"github.com/decantory/backend-decantory/internal/store"
)

var (
	// ErrSubmitting means the cart is already mid-submission.
	ErrSubmitting = errors.New("cart submission already in progress")
	// ErrEmptyCart means there is nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
)

// Contact identifies the customer on the order.
type Contact struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

// Address is the delivery address. Free-form region and postal code keep
// international addresses representable.
type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=120"`
	Region     string `json:"region" validate:"omitempty,max=120"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// Input is a checkout submission.
type Input struct {
	CartID       string  `json:"cartId" validate:"required"`
	Contact      Contact `json:"contact" validate:"required"`
	Address      Address `json:"address" validate:"required"`
	ShippingCode string  `json:"shippingCode" validate:"required"`
	Notes        string  `json:"notes" validate:"omitempty,max=500"`
}

// Persister writes the order header and all items atomically.
type Persister interface {
	CreateOrderWithItems(ctx context.Context, p store.CreateOrderParams, items []store.CreateOrderItemParams) (store.Order, error)
}

// Notifier schedules the post-commit confirmation.
type Notifier interface {
	OrderConfirmation(ctx context.Context, p notify.OrderConfirmationPayload)
}

// Service coordinates the submission pipeline: lock the cart, resolve every
// line to an immutable snapshot, price the order, persist it atomically, then
// clear the cart and schedule the confirmation.
type Service struct {
	Carts       *cart.Service
	Resolver    Resolver
	Orders      Persister
	Locks       lock.Locker
	Validate    *validator.Validate
	Notify      Notifier
	Logger      zerolog.Logger
	Currency    string
	TaxBps      int
	Concurrency int
	LockTTL     time.Duration
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 30 * time.Second
	}
	return s.LockTTL
}

func (s *Service) concurrency() int {
	if s.Concurrency <= 0 {
		return 4
	}
	return s.Concurrency
}

// Create submits the cart as an order. A second submission for the same cart
// while the first is in flight is rejected with ErrSubmitting rather than
// queued; the cart is cleared only after the order has committed.
func (s *Service) Create(ctx context.Context, in Input) (store.Order, error) {
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			s.countSubmission("invalid")
			return store.Order{}, err
		}
	}
	method, err := shipping.ByCode(in.ShippingCode)
	if err != nil {
		s.countSubmission("invalid")
		return store.Order{}, err
	}

	release, err := s.Locks.TryLock(ctx, "checkout:"+in.CartID, s.lockTTL())
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.countSubmission("busy")
			return store.Order{}, ErrSubmitting
		}
		s.countSubmission("error")
		return store.Order{}, err
	}
	defer release()

	c, err := s.Carts.Get(ctx, in.CartID)
	if err != nil {
		s.countSubmission("error")
		return store.Order{}, err
	}
	if len(c.Lines) == 0 {
		s.countSubmission("empty")
		return store.Order{}, ErrEmptyCart
	}

	// Resolution and persistence run to completion even if the client
	// disconnects mid-submission; a half-created order is worse than a
	// slightly late response.
	opCtx := context.WithoutCancel(ctx)

	start := time.Now()
	items, err := s.resolveAll(opCtx, c.Lines)
	if err != nil {
		s.countSubmission("error")
		return store.Order{}, err
	}
	if obs.OrderResolutionLatency != nil {
		obs.OrderResolutionLatency.Observe(obs.DurationMillis(time.Since(start)))
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{Qty: int(it.Qty), UnitPrice: it.UnitPrice})
	}
	sum := pricing.Compute(lines, method.Fee, s.TaxBps)

	contact, err := json.Marshal(in.Contact)
	if err != nil {
		s.countSubmission("error")
		return store.Order{}, err
	}
	address, err := json.Marshal(in.Address)
	if err != nil {
		s.countSubmission("error")
		return store.Order{}, err
	}

	params := store.CreateOrderParams{
		Status:         "CREATED",
		Currency:       s.Currency,
		Subtotal:       sum.Subtotal,
		Shipping:       sum.Shipping,
		Total:          sum.Total,
		TaxIncluded:    sum.TaxIncluded,
		ShippingMethod: method.Code,
		Contact:        contact,
		Address:        address,
	}
	if in.Notes != "" {
		params.Notes = pgtype.Text{String: in.Notes, Valid: true}
	}

	ord, err := s.Orders.CreateOrderWithItems(opCtx, params, items)
	if err != nil {
		s.countSubmission("error")
		return store.Order{}, err
	}

	if err := s.Carts.Clear(opCtx, in.CartID); err != nil {
		// the order exists; an uncleaned cart is only a nuisance
		s.Logger.Warn().Err(err).Str("cart_id", in.CartID).Msg("clear cart after checkout failed")
	}
	if s.Notify != nil {
		s.Notify.OrderConfirmation(opCtx, notify.OrderConfirmationPayload{
			OrderID:  store.UUIDString(ord.ID),
			Email:    in.Contact.Email,
			Total:    ord.Total,
			Currency: ord.Currency,
		})
	}
	s.countSubmission("created")
	s.Logger.Info().
		Str("order_id", store.UUIDString(ord.ID)).
		Str("cart_id", in.CartID).
		Int64("total", ord.Total).
		Int("lines", len(items)).
		Msg("order created")
	return ord, nil
}

// resolveAll resolves every cart line concurrently, preserving line order.
func (s *Service) resolveAll(ctx context.Context, lines []cart.Line) ([]store.CreateOrderItemParams, error) {
	out := make([]store.CreateOrderItemParams, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, l := range lines {
		g.Go(func() error {
			res, err := s.Resolver.resolveLine(gctx, l)
			if err != nil {
				return err
			}
			out[i] = toItemParams(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) countSubmission(result string) {
	if obs.CheckoutSubmissionTotal != nil {
		obs.CheckoutSubmissionTotal.WithLabelValues(result).Inc()
	}
}
