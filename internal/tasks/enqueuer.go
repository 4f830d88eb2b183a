package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-borong/internal/db"
)

// Enqueuer pushes domain events onto the asynq queue. It satisfies the
// events.DeliveryScheduler interface used by the event bus.
type Enqueuer struct {
	Client *asynq.Client
}

// Schedule enqueues a delivery task for the event. A nil client disables
// background delivery without failing the emit.
func (e *Enqueuer) Schedule(ctx context.Context, event db.DomainEvent) error {
	if e == nil || e.Client == nil {
		return nil
	}
	task, err := NewEventDeliverTask(event)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("tasks: enqueue event %d: %w", event.ID, err)
	}
	return nil
}
