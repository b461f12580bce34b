package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/decantory/backend-decantory/internal/catalog"
	"github.com/decantory/backend-decantory/internal/common"
)

// Catalog is the catalog surface the builder handlers depend on.
type Catalog interface {
	BundleConfig(ctx context.Context, id string) (catalog.BundleConfig, error)
	ActiveBundleConfigs(ctx context.Context) ([]catalog.BundleConfig, error)
}

// Handler wires builder sessions to HTTP.
type Handler struct {
	Catalog  Catalog
	Sessions Sessions
}

// ListSets returns the active bundle configurations.
func (h *Handler) ListSets(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	configs, err := h.Catalog.ActiveBundleConfigs(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list sets", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": configs})
}

// GetSet returns one configuration with its fixed slot associations.
func (h *Handler) GetSet(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	cfg, err := h.Catalog.BundleConfig(r.Context(), chi.URLParam(r, "configId"))
	if err != nil {
		if errors.Is(err, catalog.ErrConfigNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "set not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load set", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
}

// CreateBuilder starts a composition session for a customizable set.
func (h *Handler) CreateBuilder(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	cfg, err := h.Catalog.BundleConfig(r.Context(), chi.URLParam(r, "configId"))
	if err != nil {
		if errors.Is(err, catalog.ErrConfigNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "set not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load set", nil)
		return
	}
	builder, err := New(cfg)
	if err != nil {
		if errors.Is(err, ErrNotCustomizable) {
			common.JSONError(w, http.StatusBadRequest, "NOT_CUSTOMIZABLE", "set cannot be customized", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	id, err := h.Sessions.Create(r.Context(), builder)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to start builder", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": builderView(id, builder)})
}

// GetBuilder returns the current slot assignments.
func (h *Handler) GetBuilder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "builderId")
	builder, err := h.Sessions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": builderView(id, builder)})
}

// AssignSlot places a reference into an explicit slot, replacing any occupant.
func (h *Handler) AssignSlot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "builderId")
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid slot index", nil)
		return
	}
	ref, ok := decodeRef(w, r)
	if !ok {
		return
	}
	builder, err := h.Sessions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := builder.Assign(slot, ref); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Sessions.Save(r.Context(), id, builder); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": builderView(id, builder)})
}

// AutoAssign fills the lowest-indexed empty slot, the storefront grid's
// "add" action without an explicit slot.
func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "builderId")
	ref, ok := decodeRef(w, r)
	if !ok {
		return
	}
	builder, err := h.Sessions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	slot, err := builder.AutoAssign(ref)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Sessions.Save(r.Context(), id, builder); err != nil {
		h.writeError(w, err)
		return
	}
	view := builderView(id, builder)
	view["assignedSlot"] = slot
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// ClearSlot removes the occupant of a slot.
func (h *Handler) ClearSlot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "builderId")
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid slot index", nil)
		return
	}
	builder, err := h.Sessions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := builder.Remove(slot); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Sessions.Save(r.Context(), id, builder); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": builderView(id, builder)})
}

func decodeRef(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload struct {
		Ref string `json:"ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return "", false
	}
	payload.Ref = strings.TrimSpace(payload.Ref)
	if payload.Ref == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "ref is required", nil)
		return "", false
	}
	return payload.Ref, true
}

func builderView(id string, b *Builder) map[string]any {
	return map[string]any{
		"builderId":  id,
		"configId":   b.ConfigID,
		"totalSlots": b.TotalSlots,
		"volumeMl":   b.VolumeML,
		"slots":      b.Slots,
		"filled":     b.Filled(),
		"complete":   b.IsComplete(),
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "builder session not found", nil)
	case errors.Is(err, ErrSlotOutOfRange):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNoFreeSlot):
		common.JSONError(w, http.StatusConflict, "NO_FREE_SLOT", "no slots remain", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
