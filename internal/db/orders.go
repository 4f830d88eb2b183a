package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (user_id, status, subtotal, tax, shipping, total, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, status, subtotal, tax, shipping, total, currency, created_at, updated_at
`

type CreateOrderParams struct {
	UserID   pgtype.UUID
	Status   string
	Subtotal int64
	Tax      int64
	Shipping int64
	Total    int64
	Currency string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.UserID, arg.Status, arg.Subtotal, arg.Tax, arg.Shipping, arg.Total, arg.Currency)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, variant_id, title, qty, unit_booking, unit_price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, product_id, variant_id, title, qty, unit_booking, unit_price
`

type CreateOrderItemParams struct {
	OrderID     pgtype.UUID
	ProductID   pgtype.UUID
	VariantID   pgtype.UUID
	Title       string
	Qty         int32
	UnitBooking int64
	UnitPrice   int64
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.ProductID, arg.VariantID, arg.Title, arg.Qty, arg.UnitBooking, arg.UnitPrice)
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Title, &it.Qty, &it.UnitBooking, &it.UnitPrice)
	return it, err
}

const getOrderByID = `
SELECT id, user_id, status, subtotal, tax, shipping, total, currency, created_at, updated_at
FROM orders WHERE id = $1
`

func (q *Queries) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByID, id)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const listOrdersByUser = `
SELECT id, user_id, status, subtotal, tax, shipping, total, currency, created_at, updated_at
FROM orders WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersByUserParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const countOrdersByUser = `
SELECT count(*) FROM orders WHERE user_id = $1
`

func (q *Queries) CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersByUser, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listOrders = `
SELECT id, user_id, status, subtotal, tax, shipping, total, currency, created_at, updated_at
FROM orders
WHERE ($1::text = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersParams struct {
	Status string
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrderItems = `
SELECT id, order_id, product_id, variant_id, title, qty, unit_booking, unit_price
FROM order_items WHERE order_id = $1
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Title, &it.Qty, &it.UnitBooking, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING id, user_id, status, subtotal, tax, shipping, total, currency, created_at, updated_at
`

type UpdateOrderStatusParams struct {
	ID     pgtype.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const transitionOrderStatus = `
UPDATE orders SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
RETURNING id, user_id, status, subtotal, tax, shipping, total, currency, created_at, updated_at
`

type TransitionOrderStatusParams struct {
	ID   pgtype.UUID
	From string
	To   string
}

// TransitionOrderStatus performs a compare-and-set status move so concurrent
// webhook deliveries cannot double-apply a settlement.
func (q *Queries) TransitionOrderStatus(ctx context.Context, arg TransitionOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, transitionOrderStatus, arg.ID, arg.From, arg.To)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const listExpiredPendingOrders = `
SELECT id, user_id, status, subtotal, tax, shipping, total, currency, created_at, updated_at
FROM orders
WHERE status = 'pending_payment' AND created_at < $1
LIMIT $2
`

type ListExpiredPendingOrdersParams struct {
	Before pgtype.Timestamptz
	Limit  int32
}

func (q *Queries) ListExpiredPendingOrders(ctx context.Context, arg ListExpiredPendingOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listExpiredPendingOrders, arg.Before, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
