package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/common"
	"github.com/noah-isme/backend-borong/internal/db"
)

type orderLookup interface {
	GetOrderByID(ctx context.Context, id pgtype.UUID) (db.Order, error)
}

// Handler exposes HTTP endpoints for payment intents and status polling.
type Handler struct {
	Svc *Service
	Q   orderLookup
}

type intentReq struct {
	OrderID string `json:"orderId"`
	Channel string `json:"channel"`
}

// Intent creates (or reuses) a payment intent for the authenticated user's order.
func (h *Handler) Intent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil || h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req intentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderId is required", nil)
		return
	}
	if !h.ownsOrder(w, r, req.OrderID) {
		return
	}
	intent, err := h.Svc.CreateIntent(r.Context(), req.OrderID, req.Channel)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusGatewayTimeout
		}
		common.JSONError(w, status, "INTENT_FAILED", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": intent})
}

// Status reports the consolidated payment status for an order belonging to the
// authenticated user.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil || h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderId is required", nil)
		return
	}
	if !h.ownsOrder(w, r, orderID) {
		return
	}
	status, err := h.Svc.ConsolidatedStatus(r.Context(), orderID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "STATUS_ERROR", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": status}})
}

func (h *Handler) ownsOrder(w http.ResponseWriter, r *http.Request, orderID string) bool {
	userID, ok := common.UserID(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "login required", nil)
		return false
	}
	orderUUID, err := cart.ToUUID(orderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderId", nil)
		return false
	}
	userUUID, err := cart.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user", nil)
		return false
	}
	ord, err := h.Q.GetOrderByID(r.Context(), orderUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
			return false
		}
		common.JSONError(w, http.StatusInternalServerError, "ORDER_FETCH_ERROR", "failed to load order", nil)
		return false
	}
	if !cart.UUIDEqual(ord.UserID, userUUID) {
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		return false
	}
	return true
}
