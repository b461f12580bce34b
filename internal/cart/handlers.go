package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/decantory/backend-decantory/internal/bundle"
	"github.com/decantory/backend-decantory/internal/catalog"
	"github.com/decantory/backend-decantory/internal/common"
	"github.com/decantory/backend-decantory/internal/pricing"
)

// Handler wires cart operations to HTTP. The handler also consumes builder
// sessions when a finished composition is added, so the bundle package never
// has to know about carts.
type Handler struct {
	Carts    *Service
	Sessions bundle.Sessions
	TaxBps   int
}

// Create starts a new empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Create(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to create cart", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.view(c)})
}

// Get returns the cart with a pricing preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Get(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// AddItem adds a single-variant line, coalescing with an existing line for
// the same variant.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Qty       int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Qty == 0 {
		payload.Qty = 1
	}
	c, err := h.Carts.AddItem(r.Context(), chi.URLParam(r, "cartId"), payload.ProductID, payload.VariantID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// AddFixedSet adds a curated set line by configuration id.
func (h *Handler) AddFixedSet(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConfigID string `json:"configId"`
		Qty      int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Qty == 0 {
		payload.Qty = 1
	}
	c, err := h.Carts.AddFixedSet(r.Context(), chi.URLParam(r, "cartId"), payload.ConfigID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// AddCustomSet consumes a completed builder session and adds the composition
// as a cart line. The session is deleted only after the cart save succeeds.
func (h *Handler) AddCustomSet(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BuilderID string `json:"builderId"`
		Qty       int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.BuilderID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "builderId is required", nil)
		return
	}
	if payload.Qty == 0 {
		payload.Qty = 1
	}
	builder, err := h.Sessions.Get(r.Context(), payload.BuilderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Carts.AddCustomSet(r.Context(), chi.URLParam(r, "cartId"), builder, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// the line is already in the cart; an orphaned session just expires
	_ = h.Sessions.Delete(r.Context(), payload.BuilderID)
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// UpdateLine sets the quantity of a line.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Carts.UpdateQty(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "lineId"), payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// RemoveLine deletes a line from the cart.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.RemoveLine(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "lineId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.Clear(r.Context(), chi.URLParam(r, "cartId")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lineView decorates a line with its preview total for the storefront.
type lineView struct {
	Line
	LineTotal int64 `json:"lineTotal"`
}

func (h *Handler) view(c Cart) map[string]any {
	lines := make([]lineView, 0, len(c.Lines))
	priced := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, lineView{Line: l, LineTotal: l.Subtotal()})
		priced = append(priced, pricing.Line{Qty: l.Qty, UnitPrice: l.UnitPrice})
	}
	sum := pricing.Compute(priced, 0, h.TaxBps)
	return map[string]any{
		"id":        c.ID,
		"lines":     lines,
		"updatedAt": c.UpdatedAt,
		"preview": map[string]any{
			"subtotal":    sum.Subtotal,
			"taxIncluded": sum.TaxIncluded,
		},
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case common.IsAppError(err):
		common.WriteError(w, err)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, bundle.ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "builder session not found", nil)
	case errors.Is(err, bundle.ErrIncomplete):
		common.JSONError(w, http.StatusConflict, "INCOMPLETE_SET", err.Error(), nil)
	case errors.Is(err, catalog.ErrConfigNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "set not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
