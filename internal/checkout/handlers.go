package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/decantory/backend-decantory/internal/cart"
	"github.com/decantory/backend-decantory/internal/common"
	"github.com/decantory/backend-decantory/internal/shipping"
	"github.com/decantory/backend-decantory/internal/store"
)

// Handler exposes the checkout submission endpoint.
type Handler struct {
	Checkout *Service
}

// Create submits a cart as an order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	ord, err := h.Checkout.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"id":             store.UUIDString(ord.ID),
		"status":         ord.Status,
		"currency":       ord.Currency,
		"subtotal":       ord.Subtotal,
		"shipping":       ord.Shipping,
		"total":          ord.Total,
		"taxIncluded":    ord.TaxIncluded,
		"shippingMethod": ord.ShippingMethod,
		"createdAt":      ord.CreatedAt.Time,
	}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid checkout payload", details)
	case errors.Is(err, ErrSubmitting):
		common.JSONError(w, http.StatusConflict, "SUBMISSION_IN_PROGRESS", "cart is already being submitted", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, shipping.ErrUnknownMethod):
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_SHIPPING_METHOD", "unknown shipping method", nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}
