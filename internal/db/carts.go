package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createCart = `
INSERT INTO carts (user_id) VALUES ($1)
RETURNING id, user_id, created_at, updated_at
`

func (q *Queries) CreateCart(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, createCart, userID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCartByID = `
SELECT id, user_id, created_at, updated_at FROM carts WHERE id = $1
`

func (q *Queries) GetCartByID(ctx context.Context, id pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartByID, id)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCartByUser = `
SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1
`

func (q *Queries) GetCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartByUser, userID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const claimCart = `
UPDATE carts SET user_id = $2, updated_at = now()
WHERE id = $1 AND user_id IS NULL
RETURNING id, user_id, created_at, updated_at
`

type ClaimCartParams struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
}

// ClaimCart attaches an anonymous cart to a user. It refuses carts already
// owned by anyone.
func (q *Queries) ClaimCart(ctx context.Context, arg ClaimCartParams) (Cart, error) {
	row := q.db.QueryRow(ctx, claimCart, arg.ID, arg.UserID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCartItems = `
SELECT id, cart_id, product_id, variant_id, qty, unit_booking, unit_price, created_at, updated_at
FROM cart_items WHERE cart_id = $1
ORDER BY created_at ASC
`

func (q *Queries) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Qty, &it.UnitBooking, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const upsertCartItem = `
INSERT INTO cart_items (cart_id, product_id, variant_id, qty, unit_booking, unit_price)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (cart_id, product_id, variant_key) DO UPDATE
SET qty = cart_items.qty + EXCLUDED.qty, updated_at = now()
RETURNING id, cart_id, product_id, variant_id, qty, unit_booking, unit_price, created_at, updated_at
`

type UpsertCartItemParams struct {
	CartID      pgtype.UUID
	ProductID   pgtype.UUID
	VariantID   pgtype.UUID
	Qty         int32
	UnitBooking int64
	UnitPrice   int64
}

// UpsertCartItem adds a line or merges quantity into the existing one. The
// snapshotted unit amounts of an existing line are kept, not overwritten.
func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, upsertCartItem, arg.CartID, arg.ProductID, arg.VariantID, arg.Qty, arg.UnitBooking, arg.UnitPrice)
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Qty, &it.UnitBooking, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

const updateCartItemQty = `
UPDATE cart_items SET qty = $3, updated_at = now()
WHERE id = $1 AND cart_id = $2
RETURNING id, cart_id, product_id, variant_id, qty, unit_booking, unit_price, created_at, updated_at
`

type UpdateCartItemQtyParams struct {
	ID     pgtype.UUID
	CartID pgtype.UUID
	Qty    int32
}

func (q *Queries) UpdateCartItemQty(ctx context.Context, arg UpdateCartItemQtyParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, updateCartItemQty, arg.ID, arg.CartID, arg.Qty)
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Qty, &it.UnitBooking, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

const deleteCartItem = `
DELETE FROM cart_items WHERE id = $1 AND cart_id = $2
`

type DeleteCartItemParams struct {
	ID     pgtype.UUID
	CartID pgtype.UUID
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.CartID)
	return tag.RowsAffected(), err
}

const clearCart = `
DELETE FROM cart_items WHERE cart_id = $1
`

func (q *Queries) ClearCart(ctx context.Context, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearCart, cartID)
	return err
}
