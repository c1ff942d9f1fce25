package domain

import "fmt"

// PairSpec exchange trading rules for a pair.
type PairSpec struct {
	Pair Pair
	// MinSize is the smallest quantity the exchange accepts.
	MinSize float64
	// SizeStep is the quantity granularity above MinSize.
	SizeStep float64
	// PriceStep is the price granularity (unused for market orders,
	// kept for display).
	PriceStep float64
}

// SpecRegistry holds the trading rules per pair. It is built once at
// startup and passed by reference; there is no process-wide default.
type SpecRegistry struct {
	table map[Pair]PairSpec
}

// NewSpecRegistry builds a registry from the given specs.
func NewSpecRegistry(specs ...PairSpec) *SpecRegistry {
	r := &SpecRegistry{table: make(map[Pair]PairSpec, len(specs))}
	for _, s := range specs {
		r.table[s.Pair] = s
	}
	return r
}

// DefaultSpecs returns conservative rules for the pairs the bot supports
// out of the box. Values are stricter than the exchange minimums.
func DefaultSpecs() []PairSpec {
	return []PairSpec{
		{Pair: Pair{Base: "btc", Quote: "jpy"}, MinSize: 0.0001, SizeStep: 0.0001, PriceStep: 1},
		{Pair: Pair{Base: "eth", Quote: "jpy"}, MinSize: 0.0001, SizeStep: 0.0001, PriceStep: 1},
		{Pair: Pair{Base: "xrp", Quote: "jpy"}, MinSize: 0.0001, SizeStep: 0.0001, PriceStep: 0.001},
		{Pair: Pair{Base: "ltc", Quote: "jpy"}, MinSize: 0.0001, SizeStep: 0.0001, PriceStep: 0.001},
	}
}

// Register adds or replaces a spec.
func (r *SpecRegistry) Register(s PairSpec) {
	r.table[s.Pair] = s
}

// Get returns the spec for a pair. An unregistered pair is a
// configuration error.
func (r *SpecRegistry) Get(p Pair) (PairSpec, error) {
	s, ok := r.table[p]
	if !ok {
		return PairSpec{}, fmt.Errorf("pair spec not registered for %s", p.String())
	}
	return s, nil
}

// Contains reports whether a pair is registered.
func (r *SpecRegistry) Contains(p Pair) bool {
	_, ok := r.table[p]
	return ok
}
