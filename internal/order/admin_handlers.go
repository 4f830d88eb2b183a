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

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/common"
	"github.com/noah-isme/backend-borong/internal/db"
)

type adminQuerier interface {
	ListOrders(ctx context.Context, arg db.ListOrdersParams) ([]db.Order, error)
	GetOrderByID(ctx context.Context, id pgtype.UUID) (db.Order, error)
	TransitionOrderStatus(ctx context.Context, arg db.TransitionOrderStatusParams) (db.Order, error)
}

// AdminHandler provides administrative order management endpoints.
type AdminHandler struct {
	Q adminQuerier
}

type patchStatusRequest struct {
	Status string `json:"status"`
}

// List returns orders across all users, optionally filtered by status.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	if perPage > 200 {
		perPage = 200
	}
	status := r.URL.Query().Get("status")
	if status != "" && statusRank(status) == -2 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status filter", nil)
		return
	}
	orders, err := h.Q.ListOrders(r.Context(), db.ListOrdersParams{
		Status: status,
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, ord := range orders {
		row := orderSummary(ord)
		row["userId"] = cart.UUIDString(ord.UserID)
		response = append(response, row)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(response)))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: len(response),
		},
	})
}

// PatchStatus moves an order forward through the fulfilment states. Backward
// moves are rejected, and the update itself is a compare-and-set against the
// status the admin saw.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	oID, err := cart.ToUUID(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if req.Status == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "status is required", nil)
		return
	}
	if !isAdminTarget(req.Status) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", nil)
		return
	}
	current, err := h.Q.GetOrderByID(r.Context(), oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if req.Status == StatusCanceled && current.Status != StatusPendingPayment {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "only pending orders can be canceled", nil)
		return
	}
	if req.Status != StatusCanceled && statusRank(current.Status) >= statusRank(req.Status) {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "cannot transition to equal or previous state", nil)
		return
	}
	if _, err := h.Q.TransitionOrderStatus(r.Context(), db.TransitionOrderStatusParams{
		ID:   oID,
		From: current.Status,
		To:   req.Status,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order state changed, retry", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update order status", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
