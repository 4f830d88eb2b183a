// Package tasks defines the asynq task types exchanged between the API
// process and the background worker, plus the handlers that execute them.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-borong/internal/db"
)

const (
	// TypeEventDeliver carries a persisted domain event to the worker for
	// out-of-process delivery (notifications, projections).
	TypeEventDeliver = "events:deliver"
	// TypeOrdersExpire triggers a sweep that cancels pending orders whose
	// payment window has lapsed.
	TypeOrdersExpire = "orders:expire"
)

const (
	// QueueEvents holds event delivery tasks.
	QueueEvents = "events"
	// QueueMaintenance holds periodic housekeeping tasks.
	QueueMaintenance = "maintenance"
)

// EventDeliverPayload is the wire form of a domain event handed to asynq.
type EventDeliverPayload struct {
	EventID int64           `json:"eventId"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// NewEventDeliverTask wraps a persisted domain event in an asynq task.
func NewEventDeliverTask(ev db.DomainEvent) (*asynq.Task, error) {
	encoded, err := json.Marshal(EventDeliverPayload{
		EventID: ev.ID,
		Topic:   ev.Topic,
		Payload: json.RawMessage(ev.Payload),
	})
	if err != nil {
		return nil, fmt.Errorf("tasks: encode event %d: %w", ev.ID, err)
	}
	return asynq.NewTask(TypeEventDeliver, encoded, asynq.Queue(QueueEvents), asynq.MaxRetry(5)), nil
}

// NewOrdersExpireTask builds the periodic payment-window sweep task.
func NewOrdersExpireTask() *asynq.Task {
	return asynq.NewTask(TypeOrdersExpire, nil, asynq.Queue(QueueMaintenance), asynq.MaxRetry(3))
}
