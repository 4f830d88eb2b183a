package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/events"
	"github.com/noah-isme/backend-borong/internal/order"
	"github.com/noah-isme/backend-borong/internal/payment"
)

type deliverQuerier interface {
	MarkEventPublished(ctx context.Context, id int64) error
}

// EventDeliverer processes events:deliver tasks. Delivery is at-least-once:
// the event is logged for downstream consumers and then marked published so
// the outbox relay stops retrying it.
type EventDeliverer struct {
	Q   deliverQuerier
	Log zerolog.Logger
}

// HandleEventDeliver implements the asynq handler for TypeEventDeliver.
func (d *EventDeliverer) HandleEventDeliver(ctx context.Context, t *asynq.Task) error {
	var payload EventDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("tasks: decode event payload: %v: %w", err, asynq.SkipRetry)
	}
	d.Log.Info().
		Int64("event_id", payload.EventID).
		Str("topic", payload.Topic).
		RawJSON("payload", normalizeJSON(payload.Payload)).
		Msg("domain event delivered")
	if d.Q == nil {
		return nil
	}
	if err := d.Q.MarkEventPublished(ctx, payload.EventID); err != nil {
		return fmt.Errorf("tasks: mark event %d published: %w", payload.EventID, err)
	}
	return nil
}

type expireQuerier interface {
	ListExpiredPendingOrders(ctx context.Context, arg db.ListExpiredPendingOrdersParams) ([]db.Order, error)
	TransitionOrderStatus(ctx context.Context, arg db.TransitionOrderStatusParams) (db.Order, error)
	GetPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (db.Payment, error)
	UpdatePaymentStatus(ctx context.Context, arg db.UpdatePaymentStatusParams) (db.Payment, error)
}

// OrderExpirer cancels pending orders whose payment window has lapsed. The
// compare-and-set transition keeps the sweep safe to run concurrently with
// webhook settlement: an order paid mid-sweep is simply skipped.
type OrderExpirer struct {
	Q          expireQuerier
	Events     *events.Bus
	PendingTTL time.Duration
	BatchSize  int32
	Log        zerolog.Logger

	now func() time.Time
}

const (
	defaultPendingTTL      = 24 * time.Hour
	defaultExpireBatchSize = 100
)

// HandleOrdersExpire implements the asynq handler for TypeOrdersExpire.
func (e *OrderExpirer) HandleOrdersExpire(ctx context.Context, _ *asynq.Task) error {
	_, err := e.Sweep(ctx)
	return err
}

// Sweep cancels one batch of lapsed orders and returns how many it expired.
func (e *OrderExpirer) Sweep(ctx context.Context) (int, error) {
	ttl := e.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := e.BatchSize
	if batch <= 0 {
		batch = defaultExpireBatchSize
	}
	cutoff := e.clock()().Add(-ttl)
	expired, err := e.Q.ListExpiredPendingOrders(ctx, db.ListExpiredPendingOrdersParams{
		Before: pgtype.Timestamptz{Time: cutoff, Valid: true},
		Limit:  batch,
	})
	if err != nil {
		return 0, fmt.Errorf("tasks: list expired orders: %w", err)
	}
	var count int
	for _, ord := range expired {
		if err := e.expireOrder(ctx, ord); err != nil {
			e.Log.Error().Err(err).Str("order_id", cart.UUIDString(ord.ID)).Msg("expire order")
			continue
		}
		count++
	}
	return count, nil
}

func (e *OrderExpirer) expireOrder(ctx context.Context, ord db.Order) error {
	canceled, err := e.Q.TransitionOrderStatus(ctx, db.TransitionOrderStatusParams{
		ID:   ord.ID,
		From: order.StatusPendingPayment,
		To:   order.StatusCanceled,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// Settled or canceled while the sweep was running.
		return nil
	}
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}

	if pay, err := e.Q.GetPaymentByOrder(ctx, ord.ID); err == nil && pay.Status == payment.StatusPending {
		if _, err := e.Q.UpdatePaymentStatus(ctx, db.UpdatePaymentStatusParams{
			ID:      pay.ID,
			Status:  payment.StatusExpired,
			Payload: pay.Payload,
		}); err != nil {
			return fmt.Errorf("expire payment: %w", err)
		}
	}

	orderID := cart.UUIDString(canceled.ID)
	if e.Events != nil {
		if _, err := e.Events.Emit(ctx, events.TopicPaymentExpired, map[string]any{
			"orderId": orderID,
			"amount":  canceled.Total,
		}); err != nil {
			e.Log.Error().Err(err).Str("order_id", orderID).Msg("emit payment.expired")
		}
		if _, err := e.Events.Emit(ctx, events.TopicOrderCanceled, map[string]any{
			"orderId": orderID,
			"reason":  "payment_window_expired",
		}); err != nil {
			e.Log.Error().Err(err).Str("order_id", orderID).Msg("emit order.canceled")
		}
	}
	e.Log.Info().Str("order_id", orderID).Time("created_at", ord.CreatedAt.Time).Msg("pending order expired")
	return nil
}

func (e *OrderExpirer) clock() func() time.Time {
	if e.now != nil {
		return e.now
	}
	return time.Now
}

// NewMux binds the worker-side handlers onto an asynq mux.
func NewMux(deliverer *EventDeliverer, expirer *OrderExpirer) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if deliverer != nil {
		mux.HandleFunc(TypeEventDeliver, deliverer.HandleEventDeliver)
	}
	if expirer != nil {
		mux.HandleFunc(TypeOrdersExpire, expirer.HandleOrdersExpire)
	}
	return mux
}

func normalizeJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("{}")
	}
	return raw
}
