// Package detector flags pairs whose 24h change breaches the dip threshold.
package detector

import (
	"math"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

// DipFlags marks each pair whose 24h percentage change is at or below
// -abs(thresholdPct). The change map uses percent units, e.g. -3.5 for
// a 3.5% drop.
func DipFlags(change24h map[domain.Pair]float64, thresholdPct float64) map[domain.Pair]bool {
	flags := make(map[domain.Pair]bool, len(change24h))
	limit := -math.Abs(thresholdPct)
	for pair, chg := range change24h {
		flags[pair] = chg <= limit
	}
	return flags
}
