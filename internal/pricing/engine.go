// Package pricing implements the bracket pricing engine used across the
// group-buying platform. Every product (or product variant) carries a stepped
// schedule of quantity brackets; as cumulative ordered quantity grows, the
// per-unit price steps down through the schedule. All functions here are pure
// and total: malformed schedules degrade to defined sentinel values instead of
// returning errors, because their results feed directly into page rendering
// and order-total math.
package pricing

import (
	"slices"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// Bracket describes one tier of a stepped pricing schedule. MaxQty is nil for
// the open-ended top tier.
type Bracket struct {
	MinQty    int64  `json:"minQty"`
	MaxQty    *int64 `json:"maxQty,omitempty"`
	UnitPrice Money  `json:"unitPrice"`
}

// Contains reports whether the given demand falls inside the bracket range.
func (b Bracket) Contains(demand int64) bool {
	if demand < b.MinQty {
		return false
	}
	return b.MaxQty == nil || demand <= *b.MaxQty
}

// Quote bundles the three pricing answers for one priceable entity at a given
// demand level.
type Quote struct {
	CurrentPrice Money    `json:"currentPrice"`
	FloorPrice   Money    `json:"floorPrice"`
	NextBracket  *Bracket `json:"nextBracket,omitempty"`
}

// CurrentPrice resolves the per-unit price that applies at the given
// cumulative demand.
//
// The schedule is sorted ascending by MinQty before scanning; ties are broken
// by the lower unit price so that resolution is deterministic even for
// malformed overlapping schedules. Demand below 1 (including negative values
// from upstream defects) resolves to the entry tier. Demand that matches no
// bracket (a gap in the schedule, or past every bounded tier) degrades to the
// last sorted bracket's price rather than erroring. An empty schedule yields
// 0, which callers must treat as "no pricing configured", not "free".
func CurrentPrice(brackets []Bracket, demand int64) Money {
	sorted := normalize(brackets)
	if len(sorted) == 0 {
		return 0
	}
	if demand < 1 {
		return sorted[0].UnitPrice
	}
	for _, b := range sorted {
		if b.Contains(demand) {
			return b.UnitPrice
		}
	}
	return sorted[len(sorted)-1].UnitPrice
}

// NextBracket returns the bracket with the smallest MinQty strictly greater
// than the given demand, i.e. the tier the buyer unlocks by adding more
// demand. The second return value is false when the buyer is already in or
// past the top tier, or when the schedule is empty.
func NextBracket(brackets []Bracket, demand int64) (Bracket, bool) {
	sorted := normalize(brackets)
	for _, b := range sorted {
		if b.MinQty > demand {
			return b, true
		}
	}
	return Bracket{}, false
}

// FloorPrice returns the lowest unit price anywhere in the schedule. The
// schedule is not assumed to be monotonically decreasing, so every bracket is
// inspected. Empty schedules yield 0.
func FloorPrice(brackets []Bracket) Money {
	sorted := normalize(brackets)
	if len(sorted) == 0 {
		return 0
	}
	floor := sorted[0].UnitPrice
	for _, b := range sorted[1:] {
		if b.UnitPrice < floor {
			floor = b.UnitPrice
		}
	}
	return floor
}

// QuoteFor answers all three pricing questions in one pass. It exists for
// callers (catalog, cart) that render the full tier widget per entity.
func QuoteFor(brackets []Bracket, demand int64) Quote {
	q := Quote{
		CurrentPrice: CurrentPrice(brackets, demand),
		FloorPrice:   FloorPrice(brackets),
	}
	if next, ok := NextBracket(brackets, demand); ok {
		q.NextBracket = &next
	}
	return q
}

// normalize clones the schedule, coerces negative numeric fields to zero, and
// sorts ascending by MinQty with lower unit price winning ties. Inputs are
// never mutated.
func normalize(brackets []Bracket) []Bracket {
	if len(brackets) == 0 {
		return nil
	}
	sorted := make([]Bracket, 0, len(brackets))
	for _, b := range brackets {
		if b.UnitPrice < 0 {
			b.UnitPrice = 0
		}
		if b.MinQty < 0 {
			b.MinQty = 0
		}
		if b.MaxQty != nil && *b.MaxQty < 0 {
			zero := int64(0)
			b.MaxQty = &zero
		}
		sorted = append(sorted, b)
	}
	slices.SortStableFunc(sorted, func(a, b Bracket) int {
		if a.MinQty != b.MinQty {
			if a.MinQty < b.MinQty {
				return -1
			}
			return 1
		}
		if a.UnitPrice != b.UnitPrice {
			if a.UnitPrice < b.UnitPrice {
				return -1
			}
			return 1
		}
		return 0
	})
	return sorted
}
