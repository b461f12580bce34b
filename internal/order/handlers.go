package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/decantory/backend-decantory/internal/common"
	"github.com/decantory/backend-decantory/internal/store"
)

// Reader is the order read surface the handlers depend on.
type Reader interface {
	GetOrderByID(ctx context.Context, id pgtype.UUID) (store.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]store.OrderItem, error)
	ListOrders(ctx context.Context, limit, offset int32) ([]store.Order, error)
	CountOrders(ctx context.Context) (int64, error)
}

// Handler serves the order read endpoints. Orders are immutable once
// created; there is no write surface here.
type Handler struct {
	Orders Reader
}

// List returns recent orders, newest first, with pagination metadata.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	offset := (page - 1) * perPage

	total, err := h.Orders.CountOrders(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to count orders", nil)
		return
	}
	rows, err := h.Orders.ListOrders(r.Context(), int32(perPage), int32(offset))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list orders", nil)
		return
	}

	views := make([]map[string]any, 0, len(rows))
	for _, o := range rows {
		views = append(views, headerView(o))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": views,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns one order with its items and their frozen snapshots.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := store.ToUUID(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Orders.GetOrderByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load order", nil)
		return
	}
	items, err := h.Orders.ListOrderItemsByOrder(r.Context(), o.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load order items", nil)
		return
	}

	view := headerView(o)
	itemViews := make([]map[string]any, 0, len(items))
	for _, it := range items {
		iv := map[string]any{
			"id":        store.UUIDString(it.ID),
			"kind":      it.Kind,
			"qty":       it.Qty,
			"unitPrice": it.UnitPrice,
			"lineTotal": it.LineTotal,
			"snapshot":  json.RawMessage(it.Snapshot),
		}
		if it.VariantID.Valid {
			iv["variantId"] = store.UUIDString(it.VariantID)
		}
		if it.ConfigID.Valid {
			iv["configId"] = store.UUIDString(it.ConfigID)
		}
		itemViews = append(itemViews, iv)
	}
	view["items"] = itemViews
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func headerView(o store.Order) map[string]any {
	v := map[string]any{
		"id":             store.UUIDString(o.ID),
		"status":         o.Status,
		"currency":       o.Currency,
		"subtotal":       o.Subtotal,
		"shipping":       o.Shipping,
		"total":          o.Total,
		"taxIncluded":    o.TaxIncluded,
		"shippingMethod": o.ShippingMethod,
		"contact":        json.RawMessage(o.Contact),
		"address":        json.RawMessage(o.Address),
		"createdAt":      o.CreatedAt.Time,
	}
	if o.Notes.Valid {
		v["notes"] = o.Notes.String
	}
	return v
}
