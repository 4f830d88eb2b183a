package payment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/order"
	"github.com/noah-isme/backend-borong/internal/pricing"
)

type fakeSettleQueries struct {
	webhookSeen map[string]bool
	payments    map[string]db.Payment
	orders      map[string]db.Order
	items       map[string][]db.OrderItem
	products    map[string]db.Product
	variants    map[string]db.ProductVariant
}

func newFakeSettleQueries() *fakeSettleQueries {
	return &fakeSettleQueries{
		webhookSeen: map[string]bool{},
		payments:    map[string]db.Payment{},
		orders:      map[string]db.Order{},
		items:       map[string][]db.OrderItem{},
		products:    map[string]db.Product{},
		variants:    map[string]db.ProductVariant{},
	}
}

func mustID(t *testing.T) pgtype.UUID {
	t.Helper()
	var id pgtype.UUID
	require.NoError(t, id.Scan(uuid.NewString()))
	return id
}

func (f *fakeSettleQueries) InsertWebhookEvent(_ context.Context, arg db.InsertWebhookEventParams) (int64, error) {
	key := arg.Provider + ":" + arg.EventID
	if f.webhookSeen[key] {
		return 0, nil
	}
	f.webhookSeen[key] = true
	return 1, nil
}

func (f *fakeSettleQueries) GetPaymentByOrder(_ context.Context, orderID pgtype.UUID) (db.Payment, error) {
	p, ok := f.payments[cart.UUIDString(orderID)]
	if !ok {
		return db.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeSettleQueries) UpdatePaymentStatus(_ context.Context, arg db.UpdatePaymentStatusParams) (db.Payment, error) {
	for key, p := range f.payments {
		if cart.UUIDEqual(p.ID, arg.ID) {
			p.Status = arg.Status
			p.Payload = arg.Payload
			f.payments[key] = p
			return p, nil
		}
	}
	return db.Payment{}, pgx.ErrNoRows
}

func (f *fakeSettleQueries) GetOrderByID(_ context.Context, id pgtype.UUID) (db.Order, error) {
	o, ok := f.orders[cart.UUIDString(id)]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeSettleQueries) TransitionOrderStatus(_ context.Context, arg db.TransitionOrderStatusParams) (db.Order, error) {
	key := cart.UUIDString(arg.ID)
	o, ok := f.orders[key]
	if !ok || o.Status != arg.From {
		return db.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.To
	f.orders[key] = o
	return o, nil
}

func (f *fakeSettleQueries) ListOrderItems(_ context.Context, orderID pgtype.UUID) ([]db.OrderItem, error) {
	return f.items[cart.UUIDString(orderID)], nil
}

func (f *fakeSettleQueries) GetProductByID(_ context.Context, id pgtype.UUID) (db.Product, error) {
	p, ok := f.products[cart.UUIDString(id)]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeSettleQueries) GetVariantByID(_ context.Context, id pgtype.UUID) (db.ProductVariant, error) {
	v, ok := f.variants[cart.UUIDString(id)]
	if !ok {
		return db.ProductVariant{}, pgx.ErrNoRows
	}
	return v, nil
}

func (f *fakeSettleQueries) AddProductDemand(_ context.Context, arg db.AddProductDemandParams) (int64, error) {
	key := cart.UUIDString(arg.ID)
	p, ok := f.products[key]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	p.Demand += arg.Qty
	f.products[key] = p
	return p.Demand, nil
}

func (f *fakeSettleQueries) AddVariantDemand(_ context.Context, arg db.AddVariantDemandParams) (int64, error) {
	key := cart.UUIDString(arg.ID)
	v, ok := f.variants[key]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	v.Demand += arg.Qty
	f.variants[key] = v
	return v.Demand, nil
}

func bracketsJSON(t *testing.T, brackets []pricing.Bracket) []byte {
	t.Helper()
	raw, err := json.Marshal(brackets)
	require.NoError(t, err)
	return raw
}

func maxQty(v int64) *int64 { return &v }

// seedPendingOrder creates a pending order for qty units of a simple product
// with brackets 1-9@10000, 10+@8000 and the given starting demand.
func seedPendingOrder(t *testing.T, f *fakeSettleQueries, qty int32, startDemand int64) (db.Order, db.Product) {
	t.Helper()
	product := db.Product{
		ID:            mustID(t),
		Slug:          "tumbler-besar",
		Title:         "Tumbler Besar",
		BookingAmount: 5000,
		Demand:        startDemand,
		Brackets: bracketsJSON(t, []pricing.Bracket{
			{MinQty: 1, MaxQty: maxQty(9), UnitPrice: 10000},
			{MinQty: 10, UnitPrice: 8000},
		}),
		Active: true,
	}
	f.products[cart.UUIDString(product.ID)] = product

	ord := db.Order{
		ID:       mustID(t),
		UserID:   mustID(t),
		Status:   order.StatusPendingPayment,
		Subtotal: int64(qty) * 5000,
		Total:    int64(qty) * 5000,
		Currency: "IDR",
	}
	f.orders[cart.UUIDString(ord.ID)] = ord
	f.items[cart.UUIDString(ord.ID)] = []db.OrderItem{{
		ID:          mustID(t),
		OrderID:     ord.ID,
		ProductID:   product.ID,
		Title:       product.Title,
		Qty:         qty,
		UnitBooking: 5000,
		UnitPrice:   10000,
	}}
	f.payments[cart.UUIDString(ord.ID)] = db.Payment{
		ID:      mustID(t),
		OrderID: ord.ID,
		Status:  StatusPending,
		Amount:  ord.Total,
	}
	return ord, product
}

func paidResult(ord db.Order, eventID string) WebhookVerifyResult {
	return WebhookVerifyResult{
		Valid:           true,
		EventID:         eventID,
		OrderID:         cart.UUIDString(ord.ID),
		Amount:          ord.Total,
		Status:          StatusPaid,
		ProviderPayload: []byte(`{"transaction_status":"settlement"}`),
	}
}

func TestSettlePaidAppliesDemand(t *testing.T) {
	f := newFakeSettleQueries()
	ord, product := seedPendingOrder(t, f, 3, 2)

	out, err := settle(context.Background(), f, "midtrans", paidResult(ord, "evt-1"))
	require.NoError(t, err)
	require.True(t, out.Settled)
	require.False(t, out.Replay)
	require.Equal(t, order.StatusPaid, f.orders[cart.UUIDString(ord.ID)].Status)
	require.Equal(t, StatusPaid, f.payments[cart.UUIDString(ord.ID)].Status)
	require.EqualValues(t, 5, f.products[cart.UUIDString(product.ID)].Demand)
	require.EqualValues(t, 3, out.DemandApplied)
	require.Empty(t, out.Unlocks)
}

func TestSettlePaidDetectsTierUnlock(t *testing.T) {
	f := newFakeSettleQueries()
	// Demand 8 + qty 3 crosses the 10+ boundary: 10000 -> 8000.
	ord, product := seedPendingOrder(t, f, 3, 8)

	out, err := settle(context.Background(), f, "midtrans", paidResult(ord, "evt-1"))
	require.NoError(t, err)
	require.True(t, out.Settled)
	require.Len(t, out.Unlocks, 1)
	unlock := out.Unlocks[0]
	require.Equal(t, "product", unlock.Kind)
	require.True(t, cart.UUIDEqual(product.ID, unlock.EntityID))
	require.EqualValues(t, 10000, unlock.FromPrice)
	require.EqualValues(t, 8000, unlock.ToPrice)
	require.EqualValues(t, 11, unlock.Demand)
}

func TestSettleVariantDemand(t *testing.T) {
	f := newFakeSettleQueries()
	ord, product := seedPendingOrder(t, f, 2, 0)
	variant := db.ProductVariant{
		ID:            mustID(t),
		ProductID:     product.ID,
		Name:          "Hitam",
		BookingAmount: 5000,
		Demand:        9,
		Brackets: bracketsJSON(t, []pricing.Bracket{
			{MinQty: 1, MaxQty: maxQty(9), UnitPrice: 12000},
			{MinQty: 10, UnitPrice: 9000},
		}),
	}
	f.variants[cart.UUIDString(variant.ID)] = variant
	items := f.items[cart.UUIDString(ord.ID)]
	items[0].VariantID = variant.ID
	f.items[cart.UUIDString(ord.ID)] = items

	out, err := settle(context.Background(), f, "midtrans", paidResult(ord, "evt-1"))
	require.NoError(t, err)
	require.EqualValues(t, 11, f.variants[cart.UUIDString(variant.ID)].Demand)
	// Product counter untouched when the line targets a variant.
	require.EqualValues(t, 0, f.products[cart.UUIDString(product.ID)].Demand)
	require.Len(t, out.Unlocks, 1)
	require.Equal(t, "variant", out.Unlocks[0].Kind)
	require.EqualValues(t, 9000, out.Unlocks[0].ToPrice)
}

func TestSettleReplayIsIdempotent(t *testing.T) {
	f := newFakeSettleQueries()
	ord, product := seedPendingOrder(t, f, 3, 2)

	first, err := settle(context.Background(), f, "midtrans", paidResult(ord, "evt-1"))
	require.NoError(t, err)
	require.True(t, first.Settled)

	second, err := settle(context.Background(), f, "midtrans", paidResult(ord, "evt-1"))
	require.NoError(t, err)
	require.True(t, second.Replay)
	require.EqualValues(t, 5, f.products[cart.UUIDString(product.ID)].Demand)
}

func TestSettleConcurrentDeliveryAppliesOnce(t *testing.T) {
	f := newFakeSettleQueries()
	ord, product := seedPendingOrder(t, f, 3, 2)

	first, err := settle(context.Background(), f, "midtrans", paidResult(ord, "evt-1"))
	require.NoError(t, err)
	require.True(t, first.Settled)

	// Different event id, same order: the status compare-and-set loses.
	second, err := settle(context.Background(), f, "midtrans", paidResult(ord, "evt-2"))
	require.NoError(t, err)
	require.False(t, second.Settled)
	require.EqualValues(t, 5, f.products[cart.UUIDString(product.ID)].Demand)
}

func TestSettleAmountMismatchRejected(t *testing.T) {
	f := newFakeSettleQueries()
	ord, _ := seedPendingOrder(t, f, 3, 2)

	result := paidResult(ord, "evt-1")
	result.Amount = ord.Total + 1
	_, err := settle(context.Background(), f, "midtrans", result)
	var se *settleError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "AMOUNT_MISMATCH", se.Code)
	require.Equal(t, order.StatusPendingPayment, f.orders[cart.UUIDString(ord.ID)].Status)
}

func TestSettleFailedCancelsPendingOrder(t *testing.T) {
	f := newFakeSettleQueries()
	ord, product := seedPendingOrder(t, f, 3, 2)

	result := paidResult(ord, "evt-1")
	result.Status = StatusFailed
	out, err := settle(context.Background(), f, "midtrans", result)
	require.NoError(t, err)
	require.True(t, out.Canceled)
	require.Equal(t, order.StatusCanceled, f.orders[cart.UUIDString(ord.ID)].Status)
	require.EqualValues(t, 2, f.products[cart.UUIDString(product.ID)].Demand)
}
