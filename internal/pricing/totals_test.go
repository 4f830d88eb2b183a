package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitBooking: 5000},
		{Qty: 1, UnitBooking: 2500},
	}
	s := Compute(items, 1100, 1500)
	require.Equal(t, Money(12500), s.Subtotal)
	require.Equal(t, Money(1375), s.Tax)
	require.Equal(t, Money(1500), s.Shipping)
	require.Equal(t, Money(15375), s.Total)
}

func TestComputeSkipsInvalidLines(t *testing.T) {
	items := []Item{
		{Qty: 0, UnitBooking: 5000},
		{Qty: -2, UnitBooking: 5000},
		{Qty: 3, UnitBooking: 0},
		{Qty: 3, UnitBooking: -100},
		{Qty: 1, UnitBooking: 4000},
	}
	s := Compute(items, 0, 0)
	require.Equal(t, Money(4000), s.Subtotal)
	require.Equal(t, Money(4000), s.Total)
}

func TestComputeClampsNegativeInputs(t *testing.T) {
	s := Compute([]Item{{Qty: 1, UnitBooking: 1000}}, -500, -200)
	require.Equal(t, Money(1000), s.Subtotal)
	require.Equal(t, Money(0), s.Tax)
	require.Equal(t, Money(0), s.Shipping)
	require.Equal(t, Money(1000), s.Total)
}

func TestComputeEmpty(t *testing.T) {
	require.Equal(t, Summary{}, Compute(nil, 1100, 0))
}

func TestFormatMinor(t *testing.T) {
	require.Equal(t, "2490.00", FormatMinor(249000))
	require.Equal(t, "0.05", FormatMinor(5))
	require.Equal(t, "0.00", FormatMinor(0))
}
