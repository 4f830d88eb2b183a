package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-borong/internal/common"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

// Create creates a cart. Authenticated callers get their persistent cart;
// anonymous callers get a fresh one.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var userID *string
	if uID, ok := common.UserID(r.Context()); ok && strings.TrimSpace(uID) != "" {
		userID = &uID
	}
	cart, err := h.Svc.EnsureCart(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"cartId": UUIDString(cart.ID)},
	})
}

// Get returns cart contents with snapshot totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := h.Svc.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem adds or increments a cart line item, snapshotting the current
// bracket price.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload struct {
		ProductID string  `json:"productId"`
		VariantID *string `json:"variantId"`
		Qty       int     `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.ProductID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "productId is required", nil)
		return
	}
	if payload.Qty <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "qty must be positive", nil)
		return
	}
	if _, err := h.Svc.AddItem(r.Context(), cartID, payload.ProductID, payload.VariantID, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// UpdateItem updates the quantity for a cart line item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemId")
	var payload struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Qty <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "qty must be positive", nil)
		return
	}
	if _, err := h.Svc.UpdateQty(r.Context(), cartID, itemID, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// RemoveItem deletes a cart item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemId")
	if err := h.Svc.RemoveItem(r.Context(), cartID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// Merge merges a guest cart into the authenticated user's cart.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload struct {
		CartID string `json:"cartId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.CartID = strings.TrimSpace(payload.CartID)
	if payload.CartID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cartId is required", nil)
		return
	}
	mergedID, err := h.Svc.Merge(r.Context(), payload.CartID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"cartId": mergedID}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
