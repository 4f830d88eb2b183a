package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           pgtype.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

type RefreshToken struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	TokenHash string
	ExpiresAt pgtype.Timestamptz
	RevokedAt pgtype.Timestamptz
	CreatedAt pgtype.Timestamptz
}

// Product is a priceable catalog entry. Brackets holds the JSON-encoded
// stepped pricing schedule; Demand is the cumulative settled quantity that
// drives tier resolution. Variant-bearing products leave BookingAmount,
// Brackets and Demand at their zero values and price through their variants.
type Product struct {
	ID            pgtype.UUID
	Slug          string
	Title         string
	Description   pgtype.Text
	CategoryID    pgtype.UUID
	HasVariants   bool
	BookingAmount int64
	Brackets      []byte
	Demand        int64
	Active        bool
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

type ProductVariant struct {
	ID            pgtype.UUID
	ProductID     pgtype.UUID
	Name          string
	BookingAmount int64
	Brackets      []byte
	Demand        int64
	Position      int32
	CreatedAt     pgtype.Timestamptz
}

type Category struct {
	ID   pgtype.UUID
	Slug string
	Name string
}

type Cart struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// CartItem snapshots UnitBooking and UnitPrice at add time so later demand
// movement never silently changes what the buyer committed to.
type CartItem struct {
	ID          pgtype.UUID
	CartID      pgtype.UUID
	ProductID   pgtype.UUID
	VariantID   pgtype.UUID
	Qty         int32
	UnitBooking int64
	UnitPrice   int64
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type Order struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	Status    string
	Subtotal  int64
	Tax       int64
	Shipping  int64
	Total     int64
	Currency  string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type OrderItem struct {
	ID          pgtype.UUID
	OrderID     pgtype.UUID
	ProductID   pgtype.UUID
	VariantID   pgtype.UUID
	Title       string
	Qty         int32
	UnitBooking int64
	UnitPrice   int64
}

type Payment struct {
	ID          pgtype.UUID
	OrderID     pgtype.UUID
	Provider    string
	ProviderRef pgtype.Text
	Status      string
	Amount      int64
	Payload     []byte
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

// WebhookEvent records provider callbacks already processed, keyed by
// (provider, event_id) for replay protection.
type WebhookEvent struct {
	Provider   string
	EventID    string
	ReceivedAt pgtype.Timestamptz
}

type DomainEvent struct {
	ID          int64
	Topic       string
	Payload     []byte
	CreatedAt   pgtype.Timestamptz
	PublishedAt pgtype.Timestamptz
}
