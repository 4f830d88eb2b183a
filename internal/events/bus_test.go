package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/events"
)

type stubStore struct {
	lastParams db.InsertDomainEventParams
	nextID     int64
}

func (s *stubStore) InsertDomainEvent(_ context.Context, arg db.InsertDomainEventParams) (db.DomainEvent, error) {
	s.lastParams = arg
	s.nextID++
	return db.DomainEvent{
		ID:        s.nextID,
		Topic:     arg.Topic,
		Payload:   arg.Payload,
		CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}, nil
}

type captureScheduler struct {
	events []db.DomainEvent
}

func (c *captureScheduler) Schedule(_ context.Context, event db.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type captureNotifier struct {
	events []db.DomainEvent
}

func (c *captureNotifier) Notify(_ context.Context, event db.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{}
	notifier := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Scheduler: scheduler,
		Notifiers: []events.Notifier{notifier},
	}

	payload := map[string]any{"orderId": "123"}
	ctx := context.Background()
	event, err := bus.Emit(ctx, events.TopicOrderCreated, payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, store.lastParams.Topic)
	require.JSONEq(t, `{"orderId":"123"}`, string(store.lastParams.Payload))
	require.Len(t, scheduler.events, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, scheduler.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "123", decoded["orderId"])
}

func TestEmitRejectsEmptyTopic(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), "  ", nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSON(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicOrderPaid, []byte("{not json"))
	require.Error(t, err)
}
