package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/events"
)

type relayQuerier interface {
	ListUnpublishedEvents(ctx context.Context, limit int32) ([]db.DomainEvent, error)
}

// Relay is the outbox safety net. Events are normally scheduled inline by the
// bus at emit time; the relay picks up any event that is still unpublished
// after MinAge (the inline enqueue failed, or the worker crashed before
// marking it) and re-schedules it. Delivery stays at-least-once.
type Relay struct {
	Q         relayQuerier
	Scheduler events.DeliveryScheduler
	Interval  time.Duration
	MinAge    time.Duration
	BatchSize int32
	Log       zerolog.Logger

	now func() time.Time
}

const (
	defaultRelayInterval  = 30 * time.Second
	defaultRelayMinAge    = time.Minute
	defaultRelayBatchSize = 200
)

// Run sweeps on a ticker until the context is canceled.
func (r *Relay) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Sweep(ctx); err != nil {
				r.Log.Error().Err(err).Msg("outbox relay sweep")
			} else if n > 0 {
				r.Log.Info().Int("rescheduled", n).Msg("outbox relay sweep")
			}
		}
	}
}

// Sweep re-schedules one batch of stale unpublished events and returns how
// many it handed back to the scheduler.
func (r *Relay) Sweep(ctx context.Context) (int, error) {
	if r.Scheduler == nil {
		return 0, nil
	}
	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultRelayBatchSize
	}
	minAge := r.MinAge
	if minAge <= 0 {
		minAge = defaultRelayMinAge
	}
	pending, err := r.Q.ListUnpublishedEvents(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("tasks: list unpublished events: %w", err)
	}
	cutoff := r.clock()().Add(-minAge)
	var count int
	for _, ev := range pending {
		if ev.CreatedAt.Valid && ev.CreatedAt.Time.After(cutoff) {
			continue
		}
		if err := r.Scheduler.Schedule(ctx, ev); err != nil {
			r.Log.Error().Err(err).Int64("event_id", ev.ID).Msg("reschedule event")
			continue
		}
		count++
	}
	return count, nil
}

func (r *Relay) clock() func() time.Time {
	if r.now != nil {
		return r.now
	}
	return time.Now
}
