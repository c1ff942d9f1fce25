// Package domain defines the core data structures shared by the DCA pipeline.
package domain

import (
	"fmt"
	"strings"
)

// Pair cryptocurrency trading pair in bitbank notation (base_quote, lowercase).
type Pair struct {
	// Base asset symbol, e.g. "btc".
	Base string
	// Quote asset symbol, e.g. "jpy".
	Quote string
}

// ParsePair parses a "btc_jpy" style identifier.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair %q, expected base_quote", s)
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

// String returns the bitbank pair identifier.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}

// PairWeight is a pair with its allocation weight. Weights need not sum
// to 1; the allocator normalizes them.
type PairWeight struct {
	Pair   Pair
	Weight float64
}
