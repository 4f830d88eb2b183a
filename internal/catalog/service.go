package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-borong/internal/common"
	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/obs"
	"github.com/noah-isme/backend-borong/internal/pricing"
)

type queryProvider interface {
	ListCategories(ctx context.Context) ([]db.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (db.Category, error)
	CountProducts(ctx context.Context, arg db.CountProductsParams) (int64, error)
	ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (db.Product, error)
	ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]db.ProductVariant, error)
}

// Service orchestrates catalog queries, price quoting, DTO assembly, and
// caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	fallback     pricing.FallbackPolicy
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	Fallback     pricing.FallbackPolicy
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// TierView is the wire shape of one pricing bracket.
type TierView struct {
	MinQty    int64  `json:"minQty"`
	MaxQty    *int64 `json:"maxQty,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
}

// QuoteView is the wire shape of a resolved price quote. Amounts are minor
// units; the Display fields carry the two-decimal rendering for clients that
// show prices verbatim.
type QuoteView struct {
	CurrentPrice        int64     `json:"currentPrice"`
	CurrentPriceDisplay string    `json:"currentPriceDisplay"`
	FloorPrice          int64     `json:"floorPrice"`
	FloorPriceDisplay   string    `json:"floorPriceDisplay"`
	NextBracket         *TierView `json:"nextBracket,omitempty"`
	Demand              int64     `json:"demand"`
}

// ProductListItem represents an entry in list responses. For variant-bearing
// products the quote reflects the configured fallback policy and Priced may be
// false when the policy yields no context.
type ProductListItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	HasVariants   bool      `json:"hasVariants"`
	BookingAmount int64     `json:"bookingAmount"`
	Priced        bool      `json:"priced"`
	Quote         QuoteView `json:"quote"`
}

// VariantView describes a product variant with its own quote.
type VariantView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	BookingAmount int64      `json:"bookingAmount"`
	Tiers         []TierView `json:"tiers"`
	Quote         QuoteView  `json:"quote"`
}

// ProductDetail aggregates the full detail payload.
type ProductDetail struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	Description   *string       `json:"description,omitempty"`
	HasVariants   bool          `json:"hasVariants"`
	BookingAmount int64         `json:"bookingAmount"`
	Tiers         []TierView    `json:"tiers"`
	Priced        bool          `json:"priced"`
	Quote         QuoteView     `json:"quote"`
	Variants      []VariantView `json:"variants"`
}

// Category represents the public category payload.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		fallback:     cfg.Fallback,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  s.defaultPage,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}

	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit
	return params, nil
}

// ListCategories returns all categories sorted by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	result := make([]Category, 0, len(rows))
	for _, row := range rows {
		result = append(result, Category{
			ID:   uuidString(row.ID),
			Name: row.Name,
			Slug: row.Slug,
		})
	}
	return result, nil
}

// ListProducts returns a filtered product list with live quotes and pagination
// metadata.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	key, shouldUseCache := s.listCacheKey(params)
	if shouldUseCache && s.cache != nil {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	var categoryID pgtype.UUID
	if params.Category != "" {
		category, err := s.queries.GetCategoryBySlug(ctx, params.Category)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Unknown category filter matches nothing.
				return ProductListResult{Items: []ProductListItem{}, Page: params.Page, Limit: params.Limit}, nil
			}
			return ProductListResult{}, fmt.Errorf("get category by slug: %w", err)
		}
		categoryID = category.ID
	}

	total, err := s.queries.CountProducts(ctx, db.CountProductsParams{CategoryID: categoryID, Search: params.Query})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	offset := int32((params.Page - 1) * params.Limit)
	if offset < 0 {
		offset = 0
	}
	rows, err := s.queries.ListProducts(ctx, db.ListProductsParams{
		CategoryID: categoryID,
		Search:     params.Query,
		Limit:      int32(params.Limit),
		Offset:     offset,
	})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]ProductListItem, 0, len(rows))
	for _, row := range rows {
		item, err := s.listItem(ctx, row)
		if err != nil {
			return ProductListResult{}, err
		}
		items = append(items, item)
	}
	result := ProductListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if shouldUseCache && s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetProductDetail returns the product with its tiers, variants, and resolved
// quotes. An optional variant id narrows the headline quote to that variant.
func (s *Service) GetProductDetail(ctx context.Context, slug, variantID string) (ProductDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, badRequest("slug", "slug is required", nil)
	}
	cacheKey := detailCacheKey(slug, variantID)
	if s.cache != nil {
		var cached ProductDetail
		ok, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	product, err := s.queries.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductDetail{}, common.ErrNotFound("product not found")
		}
		return ProductDetail{}, fmt.Errorf("get product by slug: %w", err)
	}
	detail := ProductDetail{
		ID:            uuidString(product.ID),
		Title:         product.Title,
		Slug:          product.Slug,
		HasVariants:   product.HasVariants,
		BookingAmount: product.BookingAmount,
	}
	if product.Description.Valid {
		desc := product.Description.String
		detail.Description = &desc
	}

	priced := pricing.Product{}
	if product.HasVariants {
		variants, err := s.queries.ListVariantsByProduct(ctx, product.ID)
		if err != nil {
			return ProductDetail{}, fmt.Errorf("list variants: %w", err)
		}
		detail.Variants = make([]VariantView, 0, len(variants))
		for _, row := range variants {
			brackets := decodeBrackets(row.Brackets)
			priced.Variants = append(priced.Variants, pricing.VariantEntity{
				ID:            uuidString(row.ID),
				BookingAmount: row.BookingAmount,
				Brackets:      brackets,
				Demand:        row.Demand,
			})
			detail.Variants = append(detail.Variants, VariantView{
				ID:            uuidString(row.ID),
				Name:          row.Name,
				BookingAmount: row.BookingAmount,
				Tiers:         tierViews(brackets),
				Quote:         quoteView(brackets, row.Demand),
			})
			if obs.PricingQuoteTotal != nil {
				obs.PricingQuoteTotal.WithLabelValues("variant").Inc()
			}
		}
	} else {
		brackets := decodeBrackets(product.Brackets)
		detail.Tiers = tierViews(brackets)
		priced.Simple = &pricing.SimpleEntity{
			BookingAmount: product.BookingAmount,
			Brackets:      brackets,
			Demand:        product.Demand,
		}
		if obs.PricingQuoteTotal != nil {
			obs.PricingQuoteTotal.WithLabelValues("product").Inc()
		}
	}

	active := pricing.ResolveActiveContext(priced, variantID, s.fallback)
	detail.Priced = len(active.Brackets) > 0
	detail.Quote = quoteView(active.Brackets, active.Demand)
	if detail.Priced {
		detail.BookingAmount = active.BookingAmount
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cacheKey, detail)
	}
	return detail, nil
}

func (s *Service) listItem(ctx context.Context, row db.Product) (ProductListItem, error) {
	item := ProductListItem{
		ID:            uuidString(row.ID),
		Title:         row.Title,
		Slug:          row.Slug,
		HasVariants:   row.HasVariants,
		BookingAmount: row.BookingAmount,
	}
	priced := pricing.Product{}
	if row.HasVariants {
		variants, err := s.queries.ListVariantsByProduct(ctx, row.ID)
		if err != nil {
			return ProductListItem{}, fmt.Errorf("list variants: %w", err)
		}
		for _, v := range variants {
			priced.Variants = append(priced.Variants, pricing.VariantEntity{
				ID:            uuidString(v.ID),
				BookingAmount: v.BookingAmount,
				Brackets:      decodeBrackets(v.Brackets),
				Demand:        v.Demand,
			})
		}
	} else {
		priced.Simple = &pricing.SimpleEntity{
			BookingAmount: row.BookingAmount,
			Brackets:      decodeBrackets(row.Brackets),
			Demand:        row.Demand,
		}
	}
	active := pricing.ResolveActiveContext(priced, "", s.fallback)
	item.Priced = len(active.Brackets) > 0
	item.Quote = quoteView(active.Brackets, active.Demand)
	if item.Priced {
		item.BookingAmount = active.BookingAmount
	}
	return item, nil
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

func tierViews(brackets []pricing.Bracket) []TierView {
	views := make([]TierView, 0, len(brackets))
	for _, b := range brackets {
		views = append(views, TierView{MinQty: b.MinQty, MaxQty: b.MaxQty, UnitPrice: b.UnitPrice})
	}
	return views
}

func quoteView(brackets []pricing.Bracket, demand int64) QuoteView {
	q := pricing.QuoteFor(brackets, demand)
	view := QuoteView{
		CurrentPrice:        q.CurrentPrice,
		CurrentPriceDisplay: pricing.FormatMinor(q.CurrentPrice),
		FloorPrice:          q.FloorPrice,
		FloorPriceDisplay:   pricing.FormatMinor(q.FloorPrice),
		Demand:              demand,
	}
	if q.NextBracket != nil {
		view.NextBracket = &TierView{
			MinQty:    q.NextBracket.MinQty,
			MaxQty:    q.NextBracket.MaxQty,
			UnitPrice: q.NextBracket.UnitPrice,
		}
	}
	return view
}

type cachedList struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if params.Page != s.defaultPage {
		return "", false
	}
	if params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Category != "" {
		return "", false
	}
	return "catalog:products:list:front", true
}

func detailCacheKey(slug, variantID string) string {
	if variantID == "" {
		return "catalog:products:detail:" + slug
	}
	return "catalog:products:detail:" + slug + ":" + variantID
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	u, err := uuid.FromBytes(id.Bytes[:])
	if err != nil {
		return ""
	}
	return u.String()
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
