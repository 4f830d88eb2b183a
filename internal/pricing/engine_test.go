package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func bounded(min, max int64, price Money) Bracket {
	return Bracket{MinQty: min, MaxQty: &max, UnitPrice: price}
}

func open(min int64, price Money) Bracket {
	return Bracket{MinQty: min, UnitPrice: price}
}

// schedule mirrors the canonical three-tier example: 1-9 @ 10, 10-49 @ 8,
// 50+ @ 5.
func schedule() []Bracket {
	return []Bracket{
		bounded(1, 9, 10),
		bounded(10, 49, 8),
		open(50, 5),
	}
}

func TestCurrentPriceTierResolution(t *testing.T) {
	cases := []struct {
		name   string
		demand int64
		want   Money
	}{
		{"entry tier", 5, 10},
		{"tier boundary low", 10, 8},
		{"tier boundary high", 49, 8},
		{"open-ended tier start", 50, 5},
		{"deep into open tier", 1000, 5},
		{"zero demand uses entry tier", 0, 10},
		{"negative demand uses entry tier", -3, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CurrentPrice(schedule(), tc.demand))
		})
	}
}

func TestCurrentPriceUnsortedInput(t *testing.T) {
	shuffled := []Bracket{open(50, 5), bounded(1, 9, 10), bounded(10, 49, 8)}
	require.Equal(t, Money(10), CurrentPrice(shuffled, 1))
	require.Equal(t, Money(8), CurrentPrice(shuffled, 25))
	require.Equal(t, Money(5), CurrentPrice(shuffled, 75))
}

func TestCurrentPriceEmptySchedule(t *testing.T) {
	for _, demand := range []int64{-1, 0, 1, 100} {
		require.Equal(t, Money(0), CurrentPrice(nil, demand))
		require.Equal(t, Money(0), CurrentPrice([]Bracket{}, demand))
	}
}

func TestCurrentPriceGapDegradesToLastBracket(t *testing.T) {
	gapped := []Bracket{bounded(1, 5, 10), open(20, 4)}
	// Demand 10 falls in the 6-19 gap; the engine assumes the top tier still
	// applies instead of erroring.
	require.Equal(t, Money(4), CurrentPrice(gapped, 10))
}

func TestCurrentPriceNoOpenEndedBracket(t *testing.T) {
	capped := []Bracket{bounded(1, 9, 10), bounded(10, 49, 8)}
	require.Equal(t, Money(8), CurrentPrice(capped, 500))
}

func TestCurrentPriceZeroNegativeEquivalence(t *testing.T) {
	schedules := [][]Bracket{
		schedule(),
		{open(1, 7)},
		{bounded(3, 10, 12), open(11, 6)},
	}
	for _, b := range schedules {
		atOne := CurrentPrice(b, 1)
		for _, d := range []int64{0, -1, -100} {
			got := CurrentPrice(b, d)
			// Both resolve to the lowest-MinQty bracket's price. When demand 1
			// sits inside the entry bracket the two agree exactly.
			if b[0].Contains(1) {
				require.Equal(t, atOne, got)
			}
		}
	}
}

func TestCurrentPriceCoercesNegativeFields(t *testing.T) {
	malformed := []Bracket{bounded(-5, 9, -10), open(10, 8)}
	require.Equal(t, Money(0), CurrentPrice(malformed, 1))
	require.Equal(t, Money(8), CurrentPrice(malformed, 10))
}

func TestCurrentPriceTieBreakLowerPriceWins(t *testing.T) {
	// Two brackets with the same MinQty is malformed-but-possible input; the
	// deterministic tie-break favours the cheaper bracket.
	dup := []Bracket{bounded(1, 9, 12), bounded(1, 9, 10), open(10, 8)}
	require.Equal(t, Money(10), CurrentPrice(dup, 5))
	dupReversed := []Bracket{bounded(1, 9, 10), bounded(1, 9, 12), open(10, 8)}
	require.Equal(t, Money(10), CurrentPrice(dupReversed, 5))
}

func TestNextBracket(t *testing.T) {
	next, ok := NextBracket(schedule(), 5)
	require.True(t, ok)
	require.Equal(t, int64(10), next.MinQty)
	require.Equal(t, Money(8), next.UnitPrice)

	next, ok = NextBracket(schedule(), 10)
	require.True(t, ok)
	require.Equal(t, int64(50), next.MinQty)
	require.Nil(t, next.MaxQty)

	_, ok = NextBracket(schedule(), 50)
	require.False(t, ok)

	_, ok = NextBracket(nil, 0)
	require.False(t, ok)
}

func TestFloorPrice(t *testing.T) {
	require.Equal(t, Money(5), FloorPrice(schedule()))
	require.Equal(t, Money(0), FloorPrice(nil))

	// Schedules are not assumed monotonically decreasing; any bracket may hold
	// the lowest price.
	odd := []Bracket{bounded(1, 9, 3), bounded(10, 49, 8), open(50, 5)}
	require.Equal(t, Money(3), FloorPrice(odd))
}

func TestQuoteFor(t *testing.T) {
	q := QuoteFor(schedule(), 10)
	require.Equal(t, Money(8), q.CurrentPrice)
	require.Equal(t, Money(5), q.FloorPrice)
	require.NotNil(t, q.NextBracket)
	require.Equal(t, int64(50), q.NextBracket.MinQty)

	top := QuoteFor(schedule(), 90)
	require.Equal(t, Money(5), top.CurrentPrice)
	require.Nil(t, top.NextBracket)
}

func TestMonotonicCoverage(t *testing.T) {
	prices := map[Money]struct{}{10: {}, 8: {}, 5: {}}
	for d := int64(1); d <= 200; d++ {
		got := CurrentPrice(schedule(), d)
		_, known := prices[got]
		require.True(t, known, "demand %d resolved to unknown price %d", d, got)
	}
}

func TestEngineDoesNotMutateInput(t *testing.T) {
	input := []Bracket{open(50, 5), bounded(1, 9, 10), bounded(10, 49, 8)}
	_ = CurrentPrice(input, 25)
	_ = FloorPrice(input)
	_, _ = NextBracket(input, 25)
	require.Equal(t, int64(50), input[0].MinQty)
	require.Equal(t, int64(1), input[1].MinQty)
	require.Equal(t, int64(10), input[2].MinQty)
}

func TestEngineIdempotence(t *testing.T) {
	b := schedule()
	first := QuoteFor(b, 25)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, QuoteFor(b, 25))
	}
}
