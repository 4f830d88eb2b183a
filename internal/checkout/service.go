package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/events"
	"github.com/noah-isme/backend-borong/internal/pricing"
)

// Input is the checkout request payload. The booking totals are computed
// server-side from the cart's snapshots; the client sends no amounts.
type Input struct {
	CartID string  `json:"cartId" validate:"required,uuid4"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

// Output describes the created order.
type Output struct {
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
	Subtotal int64  `json:"subtotal"`
	Tax      int64  `json:"tax"`
	Shipping int64  `json:"shipping"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

// Service turns a cart into a pending order inside one transaction. The order
// charges booking amounts only; the bracket price settles when the group
// completes.
type Service struct {
	Q        *db.Queries
	Pool     *pgxpool.Pool
	TaxBps   int
	Shipping int64
	Currency string
	Events   *events.Bus
}

// Create places an order from the user's cart.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Output, error) {
	if s == nil || s.Q == nil || s.Pool == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if userID == "" {
		return Output{}, errors.New("user is required for checkout")
	}
	cID, err := cart.ToUUID(in.CartID)
	if err != nil {
		return Output{}, fmt.Errorf("invalid cart id: %w", err)
	}
	uID, err := cart.ToUUID(userID)
	if err != nil {
		return Output{}, fmt.Errorf("invalid user id: %w", err)
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Q.WithTx(tx)
	cartRow, err := qtx.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Output{}, cart.ErrNotFound
		}
		return Output{}, err
	}
	if cartRow.UserID.Valid && !cart.UUIDEqual(cartRow.UserID, uID) {
		return Output{}, errors.New("cart does not belong to user")
	}
	items, err := qtx.ListCartItems(ctx, cID)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		return Output{}, errors.New("cart is empty")
	}
	pricingItems := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		pricingItems = append(pricingItems, pricing.Item{Qty: int(it.Qty), UnitBooking: it.UnitBooking})
	}
	summary := pricing.Compute(pricingItems, s.TaxBps, s.Shipping)
	order, err := qtx.CreateOrder(ctx, db.CreateOrderParams{
		UserID:   uID,
		Status:   "pending_payment",
		Subtotal: summary.Subtotal,
		Tax:      summary.Tax,
		Shipping: summary.Shipping,
		Total:    summary.Total,
		Currency: s.Currency,
	})
	if err != nil {
		return Output{}, err
	}
	for _, it := range items {
		title := ""
		if product, err := qtx.GetProductByID(ctx, it.ProductID); err == nil {
			title = product.Title
		}
		if _, err := qtx.CreateOrderItem(ctx, db.CreateOrderItemParams{
			OrderID:     order.ID,
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Title:       title,
			Qty:         it.Qty,
			UnitBooking: it.UnitBooking,
			UnitPrice:   it.UnitPrice,
		}); err != nil {
			return Output{}, err
		}
	}
	if err := qtx.ClearCart(ctx, cID); err != nil {
		return Output{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Output{}, err
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, map[string]any{
			"orderId": cart.UUIDString(order.ID),
			"userId":  userID,
			"total":   summary.Total,
		})
	}
	return Output{
		OrderID:  cart.UUIDString(order.ID),
		Status:   order.Status,
		Subtotal: order.Subtotal,
		Tax:      order.Tax,
		Shipping: order.Shipping,
		Total:    order.Total,
		Currency: order.Currency,
	}, nil
}
