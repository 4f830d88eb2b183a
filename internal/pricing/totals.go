package pricing

// Item describes a line item used for order total calculation. UnitBooking is
// the per-unit booking amount snapshotted when the item entered the cart; it
// is never recomputed afterwards.
type Item struct {
	Qty         int
	UnitBooking Money
}

// Summary aggregates computed order totals.
type Summary struct {
	Subtotal Money
	Tax      Money
	Shipping Money
	Total    Money
}

// Compute calculates order totals from snapshotted per-unit booking amounts.
// Lines with non-positive quantity are skipped; negative inputs clamp to zero
// so totals never go negative.
func Compute(items []Item, taxBps int, shipping Money) Summary {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 || it.UnitBooking <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitBooking
	}
	if taxBps < 0 {
		taxBps = 0
	}
	if shipping < 0 {
		shipping = 0
	}
	tax := (subtotal * Money(taxBps)) / 10000
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}
