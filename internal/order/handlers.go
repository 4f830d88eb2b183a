package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/common"
	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/events"
)

type querier interface {
	CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error)
	ListOrdersByUser(ctx context.Context, arg db.ListOrdersByUserParams) ([]db.Order, error)
	GetOrderByID(ctx context.Context, id pgtype.UUID) (db.Order, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]db.OrderItem, error)
	TransitionOrderStatus(ctx context.Context, arg db.TransitionOrderStatusParams) (db.Order, error)
}

// Handler serves the customer-facing order endpoints.
type Handler struct {
	Q      querier
	Events *events.Bus
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	uID, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	total, err := h.Q.CountOrdersByUser(r.Context(), uID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Q.ListOrdersByUser(r.Context(), db.ListOrdersByUserParams{
		UserID: uID,
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, ord := range orders {
		response = append(response, orderSummary(ord))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	uID, ok := h.actor(w, r)
	if !ok {
		return
	}
	ord, ok := h.ownedOrder(w, r, uID)
	if !ok {
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), ord.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	responseItems := make([]map[string]any, 0, len(items))
	for _, it := range items {
		responseItems = append(responseItems, map[string]any{
			"id":          cart.UUIDString(it.ID),
			"productId":   cart.UUIDString(it.ProductID),
			"variantId":   nullableUUID(it.VariantID),
			"title":       it.Title,
			"qty":         it.Qty,
			"unitBooking": it.UnitBooking,
			"unitPrice":   it.UnitPrice,
			"subtotal":    int64(it.Qty) * it.UnitBooking,
		})
	}
	detail := orderSummary(ord)
	detail["items"] = responseItems
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Cancel lets a customer abandon an order that has not been paid yet. The
// transition is a compare-and-set so a webhook settling the same order at the
// same moment wins or loses cleanly.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	uID, ok := h.actor(w, r)
	if !ok {
		return
	}
	ord, ok := h.ownedOrder(w, r, uID)
	if !ok {
		return
	}
	if ord.Status != StatusPendingPayment {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "only pending orders can be canceled", nil)
		return
	}
	updated, err := h.Q.TransitionOrderStatus(r.Context(), db.TransitionOrderStatusParams{
		ID:   ord.ID,
		From: StatusPendingPayment,
		To:   StatusCanceled,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order state changed, retry", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to cancel order", nil)
		return
	}
	if h.Events != nil {
		_, _ = h.Events.Emit(r.Context(), events.TopicOrderCanceled, map[string]any{
			"orderId": cart.UUIDString(updated.ID),
			"reason":  "user_canceled",
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": updated.Status}})
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (pgtype.UUID, bool) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return pgtype.UUID{}, false
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return pgtype.UUID{}, false
	}
	uID, err := cart.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return pgtype.UUID{}, false
	}
	return uID, true
}

func (h *Handler) ownedOrder(w http.ResponseWriter, r *http.Request, uID pgtype.UUID) (db.Order, bool) {
	oID, err := cart.ToUUID(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return db.Order{}, false
	}
	ord, err := h.Q.GetOrderByID(r.Context(), oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return db.Order{}, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return db.Order{}, false
	}
	if !cart.UUIDEqual(ord.UserID, uID) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return db.Order{}, false
	}
	return ord, true
}

func orderSummary(ord db.Order) map[string]any {
	return map[string]any{
		"id":        cart.UUIDString(ord.ID),
		"status":    ord.Status,
		"subtotal":  ord.Subtotal,
		"tax":       ord.Tax,
		"shipping":  ord.Shipping,
		"total":     ord.Total,
		"currency":  ord.Currency,
		"createdAt": ord.CreatedAt.Time,
	}
}

func nullableUUID(v pgtype.UUID) *string {
	if !v.Valid {
		return nil
	}
	s := cart.UUIDString(v)
	return &s
}
