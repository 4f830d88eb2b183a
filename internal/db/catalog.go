package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listProducts = `
SELECT id, slug, title, description, category_id, has_variants,
       booking_amount, brackets, demand, active, created_at, updated_at
FROM products
WHERE active = TRUE
  AND ($1::uuid IS NULL OR category_id = $1)
  AND ($2::text = '' OR title ILIKE '%' || $2 || '%')
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListProductsParams struct {
	CategoryID pgtype.UUID
	Search     string
	Limit      int32
	Offset     int32
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.CategoryID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Title, &p.Description, &p.CategoryID, &p.HasVariants,
			&p.BookingAmount, &p.Brackets, &p.Demand, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const countProducts = `
SELECT count(*) FROM products
WHERE active = TRUE
  AND ($1::uuid IS NULL OR category_id = $1)
  AND ($2::text = '' OR title ILIKE '%' || $2 || '%')
`

type CountProductsParams struct {
	CategoryID pgtype.UUID
	Search     string
}

func (q *Queries) CountProducts(ctx context.Context, arg CountProductsParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProducts, arg.CategoryID, arg.Search).Scan(&n)
	return n, err
}

const getProductBySlug = `
SELECT id, slug, title, description, category_id, has_variants,
       booking_amount, brackets, demand, active, created_at, updated_at
FROM products WHERE slug = $1 AND active = TRUE
`

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	row := q.db.QueryRow(ctx, getProductBySlug, slug)
	var p Product
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Description, &p.CategoryID, &p.HasVariants,
		&p.BookingAmount, &p.Brackets, &p.Demand, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const getProductByID = `
SELECT id, slug, title, description, category_id, has_variants,
       booking_amount, brackets, demand, active, created_at, updated_at
FROM products WHERE id = $1
`

func (q *Queries) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProductByID, id)
	var p Product
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Description, &p.CategoryID, &p.HasVariants,
		&p.BookingAmount, &p.Brackets, &p.Demand, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const listVariantsByProduct = `
SELECT id, product_id, name, booking_amount, brackets, demand, position, created_at
FROM product_variants WHERE product_id = $1
ORDER BY position ASC, created_at ASC
`

func (q *Queries) ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]ProductVariant, error) {
	rows, err := q.db.Query(ctx, listVariantsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProductVariant
	for rows.Next() {
		var v ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.BookingAmount, &v.Brackets, &v.Demand, &v.Position, &v.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const getVariantByID = `
SELECT id, product_id, name, booking_amount, brackets, demand, position, created_at
FROM product_variants WHERE id = $1
`

func (q *Queries) GetVariantByID(ctx context.Context, id pgtype.UUID) (ProductVariant, error) {
	row := q.db.QueryRow(ctx, getVariantByID, id)
	var v ProductVariant
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.BookingAmount, &v.Brackets, &v.Demand, &v.Position, &v.CreatedAt)
	return v, err
}

const listCategories = `
SELECT id, slug, name FROM categories ORDER BY name ASC
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCategoryBySlug = `
SELECT id, slug, name FROM categories WHERE slug = $1
`

func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	row := q.db.QueryRow(ctx, getCategoryBySlug, slug)
	var c Category
	err := row.Scan(&c.ID, &c.Slug, &c.Name)
	return c, err
}

const addProductDemand = `
UPDATE products SET demand = demand + $2, updated_at = now()
WHERE id = $1
RETURNING demand
`

type AddProductDemandParams struct {
	ID  pgtype.UUID
	Qty int64
}

// AddProductDemand bumps a simple product's cumulative settled quantity and
// returns the new counter value.
func (q *Queries) AddProductDemand(ctx context.Context, arg AddProductDemandParams) (int64, error) {
	var demand int64
	err := q.db.QueryRow(ctx, addProductDemand, arg.ID, arg.Qty).Scan(&demand)
	return demand, err
}

const addVariantDemand = `
UPDATE product_variants SET demand = demand + $2
WHERE id = $1
RETURNING demand
`

type AddVariantDemandParams struct {
	ID  pgtype.UUID
	Qty int64
}

func (q *Queries) AddVariantDemand(ctx context.Context, arg AddVariantDemandParams) (int64, error) {
	var demand int64
	err := q.db.QueryRow(ctx, addVariantDemand, arg.ID, arg.Qty).Scan(&demand)
	return demand, err
}
