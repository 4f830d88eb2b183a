package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/common"
	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/events"
	"github.com/noah-isme/backend-borong/internal/lock"
	"github.com/noah-isme/backend-borong/internal/obs"
	"github.com/noah-isme/backend-borong/internal/order"
	"github.com/noah-isme/backend-borong/internal/pricing"
)

type settleQuerier interface {
	InsertWebhookEvent(ctx context.Context, arg db.InsertWebhookEventParams) (int64, error)
	GetPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (db.Payment, error)
	UpdatePaymentStatus(ctx context.Context, arg db.UpdatePaymentStatusParams) (db.Payment, error)
	GetOrderByID(ctx context.Context, id pgtype.UUID) (db.Order, error)
	TransitionOrderStatus(ctx context.Context, arg db.TransitionOrderStatusParams) (db.Order, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]db.OrderItem, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (db.Product, error)
	GetVariantByID(ctx context.Context, id pgtype.UUID) (db.ProductVariant, error)
	AddProductDemand(ctx context.Context, arg db.AddProductDemandParams) (int64, error)
	AddVariantDemand(ctx context.Context, arg db.AddVariantDemandParams) (int64, error)
}

// tierUnlock records a demand movement that crossed into a cheaper bracket.
type tierUnlock struct {
	Kind      string
	EntityID  pgtype.UUID
	ProductID pgtype.UUID
	FromPrice pricing.Money
	ToPrice   pricing.Money
	Demand    int64
}

type settleOutcome struct {
	Replay        bool
	Status        string
	Order         db.Order
	Payment       db.Payment
	Settled       bool
	Canceled      bool
	DemandApplied int64
	Unlocks       []tierUnlock
}

// Webhook handles payment provider callbacks: signature verification, replay
// protection and order settlement including demand counter updates.
type Webhook struct {
	Q         *db.Queries
	Pool      *pgxpool.Pool
	Providers map[string]Provider
	Locks     lock.Locker
	LockTTL   time.Duration
	Events    *events.Bus
}

// Handle processes webhook callbacks for the configured payment provider(s).
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil || h.Providers == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	result, err := provider.VerifyWebhook(r, body)
	if err != nil {
		h.count(providerKey, "error")
		common.JSONError(w, http.StatusBadRequest, "WEBHOOK_INVALID", err.Error(), nil)
		return
	}
	if !result.Valid {
		h.count(providerKey, "invalid_signature")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if result.ProviderPayload == nil {
		result.ProviderPayload = body
	}

	ctx := r.Context()
	var outcome settleOutcome
	process := func(ctx context.Context) error {
		tx, err := h.Pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()
		outcome, err = settle(ctx, h.Q.WithTx(tx), providerKey, result)
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
	if h.Locks.R != nil {
		ttl := h.LockTTL
		if ttl <= 0 {
			ttl = 15 * time.Second
		}
		err = h.Locks.WithLock(ctx, "settle:order:"+result.OrderID, ttl, process)
	} else {
		err = process(ctx)
	}
	if err != nil {
		var se *settleError
		if errors.As(err, &se) {
			h.count(providerKey, se.Metric)
			common.JSONError(w, se.Status, se.Code, se.Message, nil)
			return
		}
		h.count(providerKey, "error")
		common.JSONError(w, http.StatusInternalServerError, "SETTLEMENT_ERROR", err.Error(), nil)
		return
	}
	if outcome.Replay {
		h.count(providerKey, "replay")
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "replay"}})
		return
	}
	h.count(providerKey, outcome.Status)
	h.observe(outcome)
	h.emit(ctx, outcome)
	w.WriteHeader(http.StatusNoContent)
}

type settleError struct {
	Status  int
	Code    string
	Message string
	Metric  string
}

func (e *settleError) Error() string { return e.Message }

// settle applies one verified webhook delivery inside the caller's transaction.
// The webhook event insert doubles as the replay gate: committing it together
// with the settlement means a retried delivery either sees the full settlement
// or none of it.
func settle(ctx context.Context, q settleQuerier, providerKey string, result WebhookVerifyResult) (settleOutcome, error) {
	var out settleOutcome
	inserted, err := q.InsertWebhookEvent(ctx, db.InsertWebhookEventParams{
		Provider: providerKey,
		EventID:  result.EventID,
	})
	if err != nil {
		return out, err
	}
	if inserted == 0 {
		out.Replay = true
		return out, nil
	}

	orderUUID, err := cart.ToUUID(result.OrderID)
	if err != nil {
		return out, &settleError{Status: http.StatusBadRequest, Code: "INVALID_ORDER_ID", Message: "invalid order identifier", Metric: "error"}
	}
	payment, err := q.GetPaymentByOrder(ctx, orderUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, &settleError{Status: http.StatusNotFound, Code: "PAYMENT_NOT_FOUND", Message: "payment not found", Metric: "error"}
		}
		return out, err
	}
	if result.Amount > 0 && payment.Amount > 0 && payment.Amount != result.Amount {
		return out, &settleError{Status: http.StatusBadRequest, Code: "AMOUNT_MISMATCH", Message: "provider amount mismatch", Metric: "amount_mismatch"}
	}

	out.Status = result.Status
	out.Payment, err = q.UpdatePaymentStatus(ctx, db.UpdatePaymentStatusParams{
		ID:      payment.ID,
		Status:  result.Status,
		Payload: result.ProviderPayload,
	})
	if err != nil {
		return out, err
	}

	switch result.Status {
	case StatusPaid:
		ord, err := q.TransitionOrderStatus(ctx, db.TransitionOrderStatusParams{
			ID:   orderUUID,
			From: order.StatusPendingPayment,
			To:   order.StatusPaid,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Already settled or canceled by a concurrent path.
				out.Order, err = q.GetOrderByID(ctx, orderUUID)
				return out, err
			}
			return out, err
		}
		out.Order = ord
		out.Settled = true
		out.Unlocks, out.DemandApplied, err = applyDemand(ctx, q, ord.ID)
		if err != nil {
			return out, err
		}
	case StatusFailed, StatusExpired:
		ord, err := q.TransitionOrderStatus(ctx, db.TransitionOrderStatusParams{
			ID:   orderUUID,
			From: order.StatusPendingPayment,
			To:   order.StatusCanceled,
		})
		if err == nil {
			out.Order = ord
			out.Canceled = true
		} else if errors.Is(err, pgx.ErrNoRows) {
			out.Order, err = q.GetOrderByID(ctx, orderUUID)
			if err != nil {
				return out, err
			}
		} else {
			return out, err
		}
	default:
		out.Order, err = q.GetOrderByID(ctx, orderUUID)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// applyDemand folds the order's settled quantities into the demand counters and
// reports every bracket boundary the movement crossed.
func applyDemand(ctx context.Context, q settleQuerier, orderID pgtype.UUID) ([]tierUnlock, int64, error) {
	items, err := q.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, 0, err
	}
	var unlocks []tierUnlock
	var applied int64
	for _, it := range items {
		qty := int64(it.Qty)
		if qty <= 0 {
			continue
		}
		var brackets []pricing.Bracket
		var after int64
		var kind string
		var entityID pgtype.UUID
		if it.VariantID.Valid {
			variant, err := q.GetVariantByID(ctx, it.VariantID)
			if err != nil {
				return nil, 0, fmt.Errorf("load variant for demand update: %w", err)
			}
			if err := json.Unmarshal(variant.Brackets, &brackets); err != nil {
				return nil, 0, fmt.Errorf("decode variant brackets: %w", err)
			}
			after, err = q.AddVariantDemand(ctx, db.AddVariantDemandParams{ID: it.VariantID, Qty: qty})
			if err != nil {
				return nil, 0, err
			}
			kind = "variant"
			entityID = it.VariantID
		} else {
			product, err := q.GetProductByID(ctx, it.ProductID)
			if err != nil {
				return nil, 0, fmt.Errorf("load product for demand update: %w", err)
			}
			if err := json.Unmarshal(product.Brackets, &brackets); err != nil {
				return nil, 0, fmt.Errorf("decode product brackets: %w", err)
			}
			after, err = q.AddProductDemand(ctx, db.AddProductDemandParams{ID: it.ProductID, Qty: qty})
			if err != nil {
				return nil, 0, err
			}
			kind = "product"
			entityID = it.ProductID
		}
		applied += qty
		before := after - qty
		priceBefore := pricing.CurrentPrice(brackets, before)
		priceAfter := pricing.CurrentPrice(brackets, after)
		if priceAfter != priceBefore {
			unlocks = append(unlocks, tierUnlock{
				Kind:      kind,
				EntityID:  entityID,
				ProductID: it.ProductID,
				FromPrice: priceBefore,
				ToPrice:   priceAfter,
				Demand:    after,
			})
		}
	}
	return unlocks, applied, nil
}

func (h Webhook) count(provider, result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(provider, result).Inc()
	}
}

func (h Webhook) observe(out settleOutcome) {
	if !out.Settled {
		return
	}
	if obs.DemandAppliedTotal != nil && out.DemandApplied > 0 {
		obs.DemandAppliedTotal.Add(float64(out.DemandApplied))
	}
	if obs.TierUnlockTotal != nil {
		for _, u := range out.Unlocks {
			obs.TierUnlockTotal.WithLabelValues(u.Kind).Inc()
		}
	}
}

func (h Webhook) emit(ctx context.Context, out settleOutcome) {
	if h.Events == nil || out.Replay {
		return
	}
	payload := map[string]any{
		"orderId":   cart.UUIDString(out.Order.ID),
		"paymentId": cart.UUIDString(out.Payment.ID),
		"status":    out.Status,
	}
	if out.Order.UserID.Valid {
		payload["userId"] = cart.UUIDString(out.Order.UserID)
	}
	switch out.Status {
	case StatusPaid:
		if out.Settled {
			_, _ = h.Events.Emit(ctx, events.TopicOrderPaid, payload)
			for _, u := range out.Unlocks {
				_, _ = h.Events.Emit(ctx, events.TopicPricingTierUnlocked, map[string]any{
					"kind":      u.Kind,
					"entityId":  cart.UUIDString(u.EntityID),
					"productId": cart.UUIDString(u.ProductID),
					"fromPrice": u.FromPrice,
					"toPrice":   u.ToPrice,
					"demand":    u.Demand,
				})
			}
		}
	case StatusFailed:
		_, _ = h.Events.Emit(ctx, events.TopicPaymentFailed, payload)
		if out.Canceled {
			_, _ = h.Events.Emit(ctx, events.TopicOrderCanceled, payload)
		}
	case StatusExpired:
		_, _ = h.Events.Emit(ctx, events.TopicPaymentExpired, payload)
		if out.Canceled {
			_, _ = h.Events.Emit(ctx, events.TopicOrderCanceled, payload)
		}
	}
}
