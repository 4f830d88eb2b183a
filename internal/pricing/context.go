package pricing

// FallbackPolicy controls how a variant-bearing product without a selected
// variant resolves its pricing context. The policy is set once in config and
// applied uniformly by every consumer so listing, detail, and cart views never
// disagree on fallback behaviour.
type FallbackPolicy int

const (
	// FallbackNone treats "no variant selected" as "no pricing available yet".
	FallbackNone FallbackPolicy = iota
	// FallbackFirstVariant previews the first variant's schedule and demand.
	FallbackFirstVariant
)

// ParseFallbackPolicy maps a config string to a policy, defaulting to
// FallbackNone for unknown values.
func ParseFallbackPolicy(value string) FallbackPolicy {
	if value == "first-variant" {
		return FallbackFirstVariant
	}
	return FallbackNone
}

// SimpleEntity is a priceable product without variants.
type SimpleEntity struct {
	BookingAmount Money
	Brackets      []Bracket
	Demand        int64
}

// VariantEntity is one variant of a variant-bearing product. Each variant
// carries its own schedule and demand counter.
type VariantEntity struct {
	ID            string
	BookingAmount Money
	Brackets      []Bracket
	Demand        int64
}

// Product is the tagged union the resolver operates on: exactly one of Simple
// or Variants is populated.
type Product struct {
	Simple   *SimpleEntity
	Variants []VariantEntity
}

// Context is the resolved input to the engine: which schedule and which demand
// counter apply to the entity the caller is pricing.
type Context struct {
	BookingAmount Money
	Brackets      []Bracket
	Demand        int64
}

// ResolveActiveContext resolves the bracket list and demand counter for a
// product, honouring variant selection. An empty selectedVariantID on a
// variant-bearing product falls through to the configured policy; an unknown
// variant id always resolves to the empty context. Simple products ignore the
// selection entirely.
func ResolveActiveContext(p Product, selectedVariantID string, policy FallbackPolicy) Context {
	if p.Simple != nil {
		return Context{
			BookingAmount: p.Simple.BookingAmount,
			Brackets:      p.Simple.Brackets,
			Demand:        p.Simple.Demand,
		}
	}
	if len(p.Variants) == 0 {
		return Context{}
	}
	if selectedVariantID != "" {
		for _, v := range p.Variants {
			if v.ID == selectedVariantID {
				return Context{BookingAmount: v.BookingAmount, Brackets: v.Brackets, Demand: v.Demand}
			}
		}
		return Context{}
	}
	if policy == FallbackFirstVariant {
		v := p.Variants[0]
		return Context{BookingAmount: v.BookingAmount, Brackets: v.Brackets, Demand: v.Demand}
	}
	return Context{}
}
