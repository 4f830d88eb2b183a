package order

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/common"
	"github.com/noah-isme/backend-borong/internal/db"
)

type fakeOrderQueries struct {
	orders map[string]db.Order
	items  map[string][]db.OrderItem
}

func newFakeOrderQueries() *fakeOrderQueries {
	return &fakeOrderQueries{
		orders: map[string]db.Order{},
		items:  map[string][]db.OrderItem{},
	}
}

func newID(t *testing.T) pgtype.UUID {
	t.Helper()
	var id pgtype.UUID
	u := uuid.New()
	require.NoError(t, id.Scan(u.String()))
	return id
}

func (f *fakeOrderQueries) CountOrdersByUser(_ context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if cart.UUIDEqual(o.UserID, userID) {
			n++
		}
	}
	return n, nil
}

func (f *fakeOrderQueries) ListOrdersByUser(_ context.Context, arg db.ListOrdersByUserParams) ([]db.Order, error) {
	var out []db.Order
	for _, o := range f.orders {
		if cart.UUIDEqual(o.UserID, arg.UserID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderQueries) ListOrders(_ context.Context, arg db.ListOrdersParams) ([]db.Order, error) {
	var out []db.Order
	for _, o := range f.orders {
		if arg.Status == "" || o.Status == arg.Status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderQueries) GetOrderByID(_ context.Context, id pgtype.UUID) (db.Order, error) {
	o, ok := f.orders[cart.UUIDString(id)]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeOrderQueries) ListOrderItems(_ context.Context, orderID pgtype.UUID) ([]db.OrderItem, error) {
	return f.items[cart.UUIDString(orderID)], nil
}

func (f *fakeOrderQueries) TransitionOrderStatus(_ context.Context, arg db.TransitionOrderStatusParams) (db.Order, error) {
	key := cart.UUIDString(arg.ID)
	o, ok := f.orders[key]
	if !ok || o.Status != arg.From {
		return db.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.To
	f.orders[key] = o
	return o, nil
}

func seedOrder(t *testing.T, f *fakeOrderQueries, userID pgtype.UUID, status string) db.Order {
	t.Helper()
	o := db.Order{
		ID:       newID(t),
		UserID:   userID,
		Status:   status,
		Subtotal: 150000,
		Tax:      16500,
		Shipping: 10000,
		Total:    176500,
		Currency: "IDR",
	}
	f.orders[cart.UUIDString(o.ID)] = o
	f.items[cart.UUIDString(o.ID)] = []db.OrderItem{{
		ID:          newID(t),
		OrderID:     o.ID,
		ProductID:   newID(t),
		Title:       "Powerbank 20000mAh",
		Qty:         3,
		UnitBooking: 50000,
		UnitPrice:   200000,
	}}
	return o
}

func authedRequest(t *testing.T, method, target string, body []byte, userID pgtype.UUID, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := common.WithActor(req.Context(), common.Actor{UserID: cart.UUIDString(userID), Role: "user"})
	if len(params) > 0 {
		routeCtx := chi.NewRouteContext()
		for k, v := range params {
			routeCtx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func TestListOrdersScopedToUser(t *testing.T) {
	f := newFakeOrderQueries()
	me := newID(t)
	other := newID(t)
	seedOrder(t, f, me, StatusPaid)
	seedOrder(t, f, other, StatusPaid)

	h := &Handler{Q: f}
	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/api/v1/orders", nil, me, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	var body struct {
		Data []struct {
			Status string `json:"status"`
			Total  int64  `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, StatusPaid, body.Data[0].Status)
	require.EqualValues(t, 176500, body.Data[0].Total)
}

func TestGetOrderIncludesBookingLines(t *testing.T) {
	f := newFakeOrderQueries()
	me := newID(t)
	ord := seedOrder(t, f, me, StatusPendingPayment)

	h := &Handler{Q: f}
	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(t, http.MethodGet, "/api/v1/orders/"+cart.UUIDString(ord.ID), nil, me, map[string]string{"orderId": cart.UUIDString(ord.ID)}))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Items []struct {
				Qty         int32 `json:"qty"`
				UnitBooking int64 `json:"unitBooking"`
				UnitPrice   int64 `json:"unitPrice"`
				Subtotal    int64 `json:"subtotal"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	require.EqualValues(t, 50000, body.Data.Items[0].UnitBooking)
	require.EqualValues(t, 200000, body.Data.Items[0].UnitPrice)
	require.EqualValues(t, 150000, body.Data.Items[0].Subtotal)
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	f := newFakeOrderQueries()
	owner := newID(t)
	stranger := newID(t)
	ord := seedOrder(t, f, owner, StatusPaid)

	h := &Handler{Q: f}
	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(t, http.MethodGet, "/api/v1/orders/"+cart.UUIDString(ord.ID), nil, stranger, map[string]string{"orderId": cart.UUIDString(ord.ID)}))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelPendingOrder(t *testing.T) {
	f := newFakeOrderQueries()
	me := newID(t)
	ord := seedOrder(t, f, me, StatusPendingPayment)

	h := &Handler{Q: f}
	rec := httptest.NewRecorder()
	h.Cancel(rec, authedRequest(t, http.MethodPost, "/api/v1/orders/"+cart.UUIDString(ord.ID)+"/cancel", nil, me, map[string]string{"orderId": cart.UUIDString(ord.ID)}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, StatusCanceled, f.orders[cart.UUIDString(ord.ID)].Status)
}

func TestCancelPaidOrderRejected(t *testing.T) {
	f := newFakeOrderQueries()
	me := newID(t)
	ord := seedOrder(t, f, me, StatusPaid)

	h := &Handler{Q: f}
	rec := httptest.NewRecorder()
	h.Cancel(rec, authedRequest(t, http.MethodPost, "/api/v1/orders/"+cart.UUIDString(ord.ID)+"/cancel", nil, me, map[string]string{"orderId": cart.UUIDString(ord.ID)}))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, StatusPaid, f.orders[cart.UUIDString(ord.ID)].Status)
}

func TestAdminPatchStatusForwardOnly(t *testing.T) {
	f := newFakeOrderQueries()
	me := newID(t)
	ord := seedOrder(t, f, me, StatusPaid)
	h := &AdminHandler{Q: f}

	body, _ := json.Marshal(patchStatusRequest{Status: StatusPacked})
	rec := httptest.NewRecorder()
	h.PatchStatus(rec, authedRequest(t, http.MethodPatch, "/api/v1/admin/orders/"+cart.UUIDString(ord.ID), body, me, map[string]string{"orderId": cart.UUIDString(ord.ID)}))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, StatusPacked, f.orders[cart.UUIDString(ord.ID)].Status)

	// "paid" belongs to payment settlement, not the admin endpoint.
	body, _ = json.Marshal(patchStatusRequest{Status: StatusPaid})
	rec = httptest.NewRecorder()
	h.PatchStatus(rec, authedRequest(t, http.MethodPatch, "/api/v1/admin/orders/"+cart.UUIDString(ord.ID), body, me, map[string]string{"orderId": cart.UUIDString(ord.ID)}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, StatusPacked, f.orders[cart.UUIDString(ord.ID)].Status)

	// Backward moves between fulfilment states are rejected.
	shipped := seedOrder(t, f, me, StatusShipped)
	body, _ = json.Marshal(patchStatusRequest{Status: StatusPacked})
	rec = httptest.NewRecorder()
	h.PatchStatus(rec, authedRequest(t, http.MethodPatch, "/api/v1/admin/orders/"+cart.UUIDString(shipped.ID), body, me, map[string]string{"orderId": cart.UUIDString(shipped.ID)}))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, StatusShipped, f.orders[cart.UUIDString(shipped.ID)].Status)
}

func TestAdminCancelOnlyFromPending(t *testing.T) {
	f := newFakeOrderQueries()
	me := newID(t)
	ord := seedOrder(t, f, me, StatusShipped)
	h := &AdminHandler{Q: f}

	body, _ := json.Marshal(patchStatusRequest{Status: StatusCanceled})
	rec := httptest.NewRecorder()
	h.PatchStatus(rec, authedRequest(t, http.MethodPatch, "/api/v1/admin/orders/"+cart.UUIDString(ord.ID), body, me, map[string]string{"orderId": cart.UUIDString(ord.ID)}))
	require.Equal(t, http.StatusConflict, rec.Code)
}
