// Package guard runs the ordered safety checks before any order is placed.
package guard

import "github.com/okanelab/bitbank-dca/internal/domain"

// Params are the guard thresholds for one run.
type Params struct {
	// MaxSpreadPct is the allowed (ask-bid)/mid, e.g. 0.005 for 0.5%.
	MaxSpreadPct float64
	// MaxVol5mPct is the allowed absolute 5-minute close-to-close change.
	MaxVol5mPct float64
	// MaxSlipPct enables the slippage check when positive. Estimation is
	// an extension point; the check never rejects yet.
	MaxSlipPct float64
	// KillSwitch suspends all ordering unconditionally.
	KillSwitch bool
}

// Evaluate runs the rule chain against one pair's quote and volatility
// sample. Rules are ordered and short-circuit: the first match decides.
// A rejection is a value, never an error.
func Evaluate(quote domain.Quote, vol5mAbs float64, params Params) domain.GuardDecision {
	if params.KillSwitch {
		return domain.Reject(domain.ReasonKill, nil)
	}

	if quote.Price <= 0 || (quote.BestBid <= 0 && quote.BestAsk <= 0) {
		return domain.Reject(domain.ReasonData, map[string]float64{
			"price": quote.Price,
			"bid":   quote.BestBid,
			"ask":   quote.BestAsk,
		})
	}

	if quote.SpreadPct > params.MaxSpreadPct {
		return domain.Reject(domain.ReasonSpread, map[string]float64{
			"spread": quote.SpreadPct,
			"limit":  params.MaxSpreadPct,
		})
	}

	if vol5mAbs > params.MaxVol5mPct {
		return domain.Reject(domain.ReasonVol, map[string]float64{
			"vol5m_abs": vol5mAbs,
			"limit":     params.MaxVol5mPct,
		})
	}

	if params.MaxSlipPct > 0 {
		// Slippage estimation from book depth is not implemented; the
		// configured limit is carried so enabling it later is local to
		// this block.
		_ = params.MaxSlipPct
	}

	return domain.AllowAll()
}
