package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

type querier interface {
	CreateCart(ctx context.Context, userID pgtype.UUID) (db.Cart, error)
	GetCartByID(ctx context.Context, id pgtype.UUID) (db.Cart, error)
	GetCartByUser(ctx context.Context, userID pgtype.UUID) (db.Cart, error)
	ClaimCart(ctx context.Context, arg db.ClaimCartParams) (db.Cart, error)
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]db.CartItem, error)
	UpsertCartItem(ctx context.Context, arg db.UpsertCartItemParams) (db.CartItem, error)
	UpdateCartItemQty(ctx context.Context, arg db.UpdateCartItemQtyParams) (db.CartItem, error)
	DeleteCartItem(ctx context.Context, arg db.DeleteCartItemParams) (int64, error)
	ClearCart(ctx context.Context, cartID pgtype.UUID) error
	GetProductByID(ctx context.Context, id pgtype.UUID) (db.Product, error)
	GetVariantByID(ctx context.Context, id pgtype.UUID) (db.ProductVariant, error)
	ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]db.ProductVariant, error)
}

// Service encapsulates cart domain operations. Prices are resolved through the
// bracket engine at add time and snapshotted on the line; demand movement after
// that never changes what a buyer already committed to.
type Service struct {
	Q        querier
	Fallback pricing.FallbackPolicy
}

// Line is a cart line with its price snapshot.
type Line struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId,omitempty"`
	Title       string `json:"title"`
	Qty         int    `json:"qty"`
	UnitBooking int64  `json:"unitBooking"`
	UnitPrice   int64  `json:"unitPrice"`
	Subtotal    int64  `json:"subtotal"`
}

// View is the assembled cart payload.
type View struct {
	ID           string `json:"id"`
	Lines        []Line `json:"items"`
	BookingTotal int64  `json:"bookingTotal"`
	Subtotal     int64  `json:"subtotal"`
}

// EnsureCart loads or creates a cart. With a user id the user's cart is
// reused; without one a fresh anonymous cart is created.
func (s *Service) EnsureCart(ctx context.Context, userID *string) (db.Cart, error) {
	if s == nil || s.Q == nil {
		return db.Cart{}, errors.New("cart service not configured")
	}
	if userID != nil && *userID != "" {
		uid, err := toUUID(*userID)
		if err != nil {
			return db.Cart{}, fmt.Errorf("parse user id: %w", err)
		}
		cart, err := s.Q.GetCartByUser(ctx, uid)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return db.Cart{}, err
		}
		return s.Q.CreateCart(ctx, uid)
	}
	return s.Q.CreateCart(ctx, pgtype.UUID{})
}

// AddItem resolves the active price context for the product (or selected
// variant), snapshots the booking amount and current bracket price, and
// inserts or merges the line.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, variantID *string, qty int) (db.CartItem, error) {
	if s == nil || s.Q == nil {
		return db.CartItem{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return db.CartItem{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return db.CartItem{}, fmt.Errorf("parse cart id: %w", err)
	}
	pID, err := toUUID(productID)
	if err != nil {
		return db.CartItem{}, fmt.Errorf("parse product id: %w", err)
	}
	if _, err := s.Q.GetCartByID(ctx, cID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.CartItem{}, ErrNotFound
		}
		return db.CartItem{}, err
	}

	product, err := s.Q.GetProductByID(ctx, pID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.CartItem{}, fmt.Errorf("product not found: %w", ErrInvalidInput)
		}
		return db.CartItem{}, err
	}

	var vID pgtype.UUID
	selected := ""
	if variantID != nil && *variantID != "" {
		vID, err = toUUID(*variantID)
		if err != nil {
			return db.CartItem{}, fmt.Errorf("parse variant id: %w", err)
		}
		selected = *variantID
	}

	active, err := s.resolveContext(ctx, product, vID, selected)
	if err != nil {
		return db.CartItem{}, err
	}
	if len(active.Brackets) == 0 {
		return db.CartItem{}, fmt.Errorf("product has no pricing: %w", ErrInvalidInput)
	}
	unitPrice := pricing.CurrentPrice(active.Brackets, active.Demand)

	return s.Q.UpsertCartItem(ctx, db.UpsertCartItemParams{
		CartID:      cID,
		ProductID:   pID,
		VariantID:   vID,
		Qty:         int32(qty),
		UnitBooking: active.BookingAmount,
		UnitPrice:   unitPrice,
	})
}

// UpdateQty updates the quantity for a cart item.
func (s *Service) UpdateQty(ctx context.Context, cartID, itemID string, qty int) (db.CartItem, error) {
	if s == nil || s.Q == nil {
		return db.CartItem{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return db.CartItem{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return db.CartItem{}, fmt.Errorf("parse cart id: %w", err)
	}
	iID, err := toUUID(itemID)
	if err != nil {
		return db.CartItem{}, fmt.Errorf("parse item id: %w", err)
	}
	item, err := s.Q.UpdateCartItemQty(ctx, db.UpdateCartItemQtyParams{ID: iID, CartID: cID, Qty: int32(qty)})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.CartItem{}, ErrNotFound
		}
		return db.CartItem{}, err
	}
	return item, nil
}

// RemoveItem deletes a cart item.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	iID, err := toUUID(itemID)
	if err != nil {
		return fmt.Errorf("parse item id: %w", err)
	}
	affected, err := s.Q.DeleteCartItem(ctx, db.DeleteCartItemParams{ID: iID, CartID: cID})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Merge moves guest cart items into the user's cart and returns the resulting
// cart identifier. Quantities for matching lines take the larger value; the
// snapshots of the user's existing lines win.
func (s *Service) Merge(ctx context.Context, guestCartID, userID string) (string, error) {
	if s == nil || s.Q == nil {
		return "", errors.New("cart service not configured")
	}
	gID, err := toUUID(guestCartID)
	if err != nil {
		return "", fmt.Errorf("parse guest cart id: %w", err)
	}
	guestCart, err := s.Q.GetCartByID(ctx, gID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if guestCart.UserID.Valid {
		return "", fmt.Errorf("cart already claimed: %w", ErrInvalidInput)
	}
	userIDCopy := userID
	userCart, err := s.EnsureCart(ctx, &userIDCopy)
	if err != nil {
		return "", err
	}
	guestItems, err := s.Q.ListCartItems(ctx, gID)
	if err != nil {
		return "", err
	}
	existing, err := s.Q.ListCartItems(ctx, userCart.ID)
	if err != nil {
		return "", err
	}
	have := make(map[string]db.CartItem, len(existing))
	for _, it := range existing {
		have[lineKey(it.ProductID, it.VariantID)] = it
	}
	for _, item := range guestItems {
		if cur, ok := have[lineKey(item.ProductID, item.VariantID)]; ok {
			if item.Qty > cur.Qty {
				if _, err := s.Q.UpdateCartItemQty(ctx, db.UpdateCartItemQtyParams{ID: cur.ID, CartID: userCart.ID, Qty: item.Qty}); err != nil {
					return "", err
				}
			}
			continue
		}
		if _, err := s.Q.UpsertCartItem(ctx, db.UpsertCartItemParams{
			CartID:      userCart.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Qty:         item.Qty,
			UnitBooking: item.UnitBooking,
			UnitPrice:   item.UnitPrice,
		}); err != nil {
			return "", err
		}
	}
	if err := s.Q.ClearCart(ctx, gID); err != nil {
		return "", err
	}
	return uuidString(userCart.ID), nil
}

// Load assembles the cart view with per-line and aggregate totals. Totals are
// computed from booking snapshots; the bracket price snapshot is informative
// until settlement.
func (s *Service) Load(ctx context.Context, cartID string) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return View{}, fmt.Errorf("parse cart id: %w", err)
	}
	cart, err := s.Q.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrNotFound
		}
		return View{}, err
	}
	items, err := s.Q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return View{}, err
	}
	view := View{ID: uuidString(cart.ID), Lines: make([]Line, 0, len(items))}
	for _, it := range items {
		line := Line{
			ID:          uuidString(it.ID),
			ProductID:   uuidString(it.ProductID),
			Qty:         int(it.Qty),
			UnitBooking: it.UnitBooking,
			UnitPrice:   it.UnitPrice,
			Subtotal:    int64(it.Qty) * it.UnitBooking,
		}
		if it.VariantID.Valid {
			line.VariantID = uuidString(it.VariantID)
		}
		if product, err := s.Q.GetProductByID(ctx, it.ProductID); err == nil {
			line.Title = product.Title
		}
		view.BookingTotal += line.Subtotal
		view.Subtotal += int64(it.Qty) * it.UnitPrice
		view.Lines = append(view.Lines, line)
	}
	return view, nil
}

func (s *Service) resolveContext(ctx context.Context, product db.Product, vID pgtype.UUID, selected string) (pricing.Context, error) {
	p := pricing.Product{}
	if product.HasVariants {
		if vID.Valid {
			variant, err := s.Q.GetVariantByID(ctx, vID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return pricing.Context{}, fmt.Errorf("variant not found: %w", ErrInvalidInput)
				}
				return pricing.Context{}, err
			}
			if !uuidEqual(variant.ProductID, product.ID) {
				return pricing.Context{}, fmt.Errorf("variant does not belong to product: %w", ErrInvalidInput)
			}
			p.Variants = []pricing.VariantEntity{{
				ID:            selected,
				BookingAmount: variant.BookingAmount,
				Brackets:      decodeBrackets(variant.Brackets),
				Demand:        variant.Demand,
			}}
		} else if s.Fallback == pricing.FallbackFirstVariant {
			// Same fallback the catalog applies, so the price a buyer saw on
			// the listing is the one snapshotted on the line.
			variants, err := s.Q.ListVariantsByProduct(ctx, product.ID)
			if err != nil {
				return pricing.Context{}, err
			}
			for _, v := range variants {
				p.Variants = append(p.Variants, pricing.VariantEntity{
					ID:            uuidString(v.ID),
					BookingAmount: v.BookingAmount,
					Brackets:      decodeBrackets(v.Brackets),
					Demand:        v.Demand,
				})
			}
		}
	} else {
		p.Simple = &pricing.SimpleEntity{
			BookingAmount: product.BookingAmount,
			Brackets:      decodeBrackets(product.Brackets),
			Demand:        product.Demand,
		}
	}
	return pricing.ResolveActiveContext(p, selected, s.Fallback), nil
}

func decodeBrackets(raw []byte) []pricing.Bracket {
	if len(raw) == 0 {
		return nil
	}
	var brackets []pricing.Bracket
	if err := json.Unmarshal(raw, &brackets); err != nil {
		return nil
	}
	return brackets
}

func lineKey(productID, variantID pgtype.UUID) string {
	return uuidString(productID) + "/" + uuidString(variantID)
}

func toUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

// ToUUID converts a string representation of a UUID into pgtype.UUID.
func ToUUID(value string) (pgtype.UUID, error) {
	return toUUID(value)
}

// UUIDString converts a pgtype.UUID into a canonical string.
func UUIDString(id pgtype.UUID) string {
	return uuidString(id)
}

// UUIDEqual reports whether two UUID values are both valid and identical.
func UUIDEqual(a, b pgtype.UUID) bool {
	return uuidEqual(a, b)
}

func uuidEqual(a, b pgtype.UUID) bool {
	if !a.Valid || !b.Valid {
		return false
	}
	return a.Bytes == b.Bytes
}
