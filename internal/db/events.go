package db

import (
	"context"
)

const insertDomainEvent = `
INSERT INTO domain_events (topic, payload)
VALUES ($1, $2)
RETURNING id, topic, payload, created_at, published_at
`

type InsertDomainEventParams struct {
	Topic   string
	Payload []byte
}

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error) {
	row := q.db.QueryRow(ctx, insertDomainEvent, arg.Topic, arg.Payload)
	var e DomainEvent
	err := row.Scan(&e.ID, &e.Topic, &e.Payload, &e.CreatedAt, &e.PublishedAt)
	return e, err
}

const listUnpublishedEvents = `
SELECT id, topic, payload, created_at, published_at
FROM domain_events
WHERE published_at IS NULL
ORDER BY id ASC
LIMIT $1
`

func (q *Queries) ListUnpublishedEvents(ctx context.Context, limit int32) ([]DomainEvent, error) {
	rows, err := q.db.Query(ctx, listUnpublishedEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DomainEvent
	for rows.Next() {
		var e DomainEvent
		if err := rows.Scan(&e.ID, &e.Topic, &e.Payload, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const markEventPublished = `
UPDATE domain_events SET published_at = now() WHERE id = $1
`

func (q *Queries) MarkEventPublished(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, markEventPublished, id)
	return err
}
