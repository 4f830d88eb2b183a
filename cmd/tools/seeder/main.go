// Seeder populates a development database with demo accounts and a small
// group-buy catalog carrying stepped price schedules.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

type bracket struct {
	MinQty    int64  `json:"minQty"`
	MaxQty    *int64 `json:"maxQty,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
}

type variantSeed struct {
	Name     string
	Booking  int64
	Brackets []bracket
}

type productSeed struct {
	Slug        string
	Title       string
	Description string
	Category    string
	Booking     int64
	Brackets    []bracket
	Variants    []variantSeed
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	seedUsers(ctx, pool)
	seedCatalog(ctx, pool)

	log.Println("seeding completed")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) {
	users := []struct {
		Name  string
		Email string
		Role  string
	}{
		{"Admin", "admin@borong.dev", "admin"},
		{"Budi Santoso", "budi@example.com", "user"},
		{"Siti Aminah", "siti@example.com", "user"},
		{"Andi Pratama", "andi@example.com", "user"},
	}

	log.Println("seeding users")
	for _, u := range users {
		hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO users (email, password_hash, name, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
		`, u.Email, hash, u.Name, u.Role)
		if err != nil {
			log.Fatalf("seed user %s: %v", u.Email, err)
		}
	}
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	categories := map[string]string{
		"dapur":      "Peralatan Dapur",
		"elektronik": "Elektronik",
		"minuman":    "Minuman",
	}

	log.Println("seeding categories")
	categoryIDs := make(map[string]string, len(categories))
	for slug, name := range categories {
		var id string
		err := pool.QueryRow(ctx, `
			INSERT INTO categories (slug, name)
			VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, slug, name).Scan(&id)
		if err != nil {
			log.Fatalf("seed category %s: %v", slug, err)
		}
		categoryIDs[slug] = id
	}

	products := []productSeed{
		{
			Slug:        "tumbler-stainless-1l",
			Title:       "Tumbler Stainless 1L",
			Description: "Botol minum stainless dengan insulasi 12 jam.",
			Category:    "dapur",
			Booking:     5000,
			Brackets: []bracket{
				{MinQty: 1, MaxQty: qty(9), UnitPrice: 95000},
				{MinQty: 10, MaxQty: qty(49), UnitPrice: 85000},
				{MinQty: 50, UnitPrice: 72000},
			},
		},
		{
			Slug:        "rice-cooker-mini",
			Title:       "Rice Cooker Mini 0.6L",
			Description: "Penanak nasi satu porsi untuk anak kos.",
			Category:    "elektronik",
			Booking:     10000,
			Brackets: []bracket{
				{MinQty: 1, MaxQty: qty(19), UnitPrice: 210000},
				{MinQty: 20, MaxQty: qty(99), UnitPrice: 189000},
				{MinQty: 100, UnitPrice: 165000},
			},
		},
		{
			Slug:        "kopi-gayo-arabika",
			Title:       "Kopi Gayo Arabika 200g",
			Description: "Biji kopi single origin, roast medium.",
			Category:    "minuman",
			Variants: []variantSeed{
				{
					Name:    "Biji utuh",
					Booking: 4000,
					Brackets: []bracket{
						{MinQty: 1, MaxQty: qty(24), UnitPrice: 68000},
						{MinQty: 25, UnitPrice: 59000},
					},
				},
				{
					Name:    "Giling halus",
					Booking: 4000,
					Brackets: []bracket{
						{MinQty: 1, MaxQty: qty(24), UnitPrice: 70000},
						{MinQty: 25, UnitPrice: 61000},
					},
				},
			},
		},
	}

	log.Println("seeding products")
	for _, p := range products {
		brackets := p.Brackets
		if brackets == nil {
			brackets = []bracket{}
		}
		encoded, err := json.Marshal(brackets)
		if err != nil {
			log.Fatalf("encode brackets for %s: %v", p.Slug, err)
		}
		var productID string
		err = pool.QueryRow(ctx, `
			INSERT INTO products (slug, title, description, category_id, has_variants, booking_amount, brackets)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (slug) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				category_id = EXCLUDED.category_id,
				has_variants = EXCLUDED.has_variants,
				booking_amount = EXCLUDED.booking_amount,
				brackets = EXCLUDED.brackets,
				updated_at = now()
			RETURNING id
		`, p.Slug, p.Title, p.Description, categoryIDs[p.Category], len(p.Variants) > 0, p.Booking, encoded).Scan(&productID)
		if err != nil {
			log.Fatalf("seed product %s: %v", p.Slug, err)
		}

		for i, v := range p.Variants {
			variantBrackets, err := json.Marshal(v.Brackets)
			if err != nil {
				log.Fatalf("encode variant brackets for %s/%s: %v", p.Slug, v.Name, err)
			}
			_, err = pool.Exec(ctx, `
				INSERT INTO product_variants (product_id, name, booking_amount, brackets, position)
				SELECT $1, $2, $3, $4, $5
				WHERE NOT EXISTS (
					SELECT 1 FROM product_variants WHERE product_id = $1 AND name = $2
				)
			`, productID, v.Name, v.Booking, variantBrackets, i)
			if err != nil {
				log.Fatalf("seed variant %s/%s: %v", p.Slug, v.Name, err)
			}
		}
	}
}

func qty(v int64) *int64 {
	return &v
}
