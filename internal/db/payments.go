package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `
INSERT INTO payments (order_id, provider, provider_ref, status, amount, payload)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, provider, provider_ref, status, amount, payload, created_at, updated_at
`

type CreatePaymentParams struct {
	OrderID     pgtype.UUID
	Provider    string
	ProviderRef pgtype.Text
	Status      string
	Amount      int64
	Payload     []byte
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment, arg.OrderID, arg.Provider, arg.ProviderRef, arg.Status, arg.Amount, arg.Payload)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.ProviderRef, &p.Status, &p.Amount, &p.Payload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const getPaymentByOrder = `
SELECT id, order_id, provider, provider_ref, status, amount, payload, created_at, updated_at
FROM payments WHERE order_id = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentByOrder, orderID)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.ProviderRef, &p.Status, &p.Amount, &p.Payload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const updatePaymentStatus = `
UPDATE payments SET status = $2, payload = $3, updated_at = now()
WHERE id = $1
RETURNING id, order_id, provider, provider_ref, status, amount, payload, created_at, updated_at
`

type UpdatePaymentStatusParams struct {
	ID      pgtype.UUID
	Status  string
	Payload []byte
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error) {
	row := q.db.QueryRow(ctx, updatePaymentStatus, arg.ID, arg.Status, arg.Payload)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.ProviderRef, &p.Status, &p.Amount, &p.Payload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const insertWebhookEvent = `
INSERT INTO webhook_events (provider, event_id)
VALUES ($1, $2)
ON CONFLICT (provider, event_id) DO NOTHING
`

type InsertWebhookEventParams struct {
	Provider string
	EventID  string
}

// InsertWebhookEvent records a provider callback. A zero rows-affected result
// means the event was seen before and the delivery is a replay.
func (q *Queries) InsertWebhookEvent(ctx context.Context, arg InsertWebhookEventParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertWebhookEvent, arg.Provider, arg.EventID)
	return tag.RowsAffected(), err
}
