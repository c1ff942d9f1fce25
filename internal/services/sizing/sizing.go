// Package sizing rounds raw order quantities down to exchange-legal units.
package sizing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

const (
	// qtyEpsilon absorbs binary float representation error before flooring.
	qtyEpsilon = 1e-12
	// snapPlaces is the fixed decimal precision the result is re-rounded
	// to, suppressing residual float noise.
	snapPlaces = 12
)

// RoundDown rounds rawQty down to the pair's step grid anchored at its
// minimum size. Anything below the minimum is unfillable and returns 0;
// the caller treats that as a skip, not an error.
func RoundDown(spec domain.PairSpec, rawQty float64) float64 {
	if rawQty < spec.MinSize {
		return 0
	}
	if spec.SizeStep <= 0 {
		return snap(spec.MinSize)
	}
	steps := math.Floor((rawQty - spec.MinSize + qtyEpsilon) / spec.SizeStep)
	if steps < 0 {
		steps = 0
	}
	return snap(spec.MinSize + steps*spec.SizeStep)
}

func snap(qty float64) float64 {
	return decimal.NewFromFloat(qty).Round(snapPlaces).InexactFloat64()
}
