// Package allocator splits the run budget across pairs and grows the
// share of dip-flagged pairs.
package allocator

import "github.com/okanelab/bitbank-dca/internal/domain"

// Allocate splits totalJPY across pairs proportionally to their
// normalized weights. Amounts are integer yen. Every pair except the
// last gets the floored share; the last pair takes the exact remainder,
// so the sum always equals totalJPY. Pairs are processed in the order
// given, which must be the run's canonical pair order.
func Allocate(weights []domain.PairWeight, totalJPY int64) map[domain.Pair]int64 {
	allocs := make(map[domain.Pair]int64, len(weights))
	if len(weights) == 0 {
		return allocs
	}

	var sum float64
	for _, w := range weights {
		sum += w.Weight
	}

	var acc int64
	for i, w := range weights {
		if i == len(weights)-1 {
			allocs[w.Pair] = totalJPY - acc
			break
		}
		norm := 1.0 / float64(len(weights))
		if sum > 0 {
			norm = w.Weight / sum
		}
		amount := int64(float64(totalJPY) * norm)
		allocs[w.Pair] = amount
		acc += amount
	}
	return allocs
}

// ApplyDip grows the budget of dip-flagged pairs. The adjusted total is
// capped at min(floor(baseTotal*multiplier), capTotal) and the extra is
// distributed among dip pairs proportionally to their base allocation,
// remainder to the last dip pair in order. Non-dip pairs keep their base
// amount. Returns the base allocation unchanged when there is nothing
// to do.
func ApplyDip(
	flags map[domain.Pair]bool,
	order []domain.Pair,
	base map[domain.Pair]int64,
	baseTotal int64,
	multiplier float64,
	capTotal int64,
) map[domain.Pair]int64 {
	result := make(map[domain.Pair]int64, len(base))
	for p, v := range base {
		result[p] = v
	}

	if baseTotal <= 0 || multiplier <= 1.0 {
		return result
	}

	targetTotal := int64(float64(baseTotal) * multiplier)
	if capTotal < targetTotal {
		targetTotal = capTotal
	}
	extra := targetTotal - baseTotal
	if extra <= 0 {
		return result
	}

	var dips []domain.Pair
	for _, p := range order {
		if flags[p] {
			if _, ok := base[p]; ok {
				dips = append(dips, p)
			}
		}
	}
	if len(dips) == 0 {
		return result
	}

	var dipBaseSum int64
	for _, p := range dips {
		dipBaseSum += base[p]
	}

	if dipBaseSum <= 0 {
		// even split, remainder to the last dip pair
		q := extra / int64(len(dips))
		r := extra % int64(len(dips))
		for i, p := range dips {
			result[p] += q
			if i == len(dips)-1 {
				result[p] += r
			}
		}
		return result
	}

	var acc int64
	for i, p := range dips {
		if i == len(dips)-1 {
			result[p] += extra - acc
			break
		}
		add := int64(float64(extra) * (float64(base[p]) / float64(dipBaseSum)))
		result[p] += add
		acc += add
	}
	return result
}
