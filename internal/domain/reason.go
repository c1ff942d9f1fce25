package domain

// ReasonCode is the closed set of reasons a pair is skipped. Every skip
// path uses a member of this set, including the live-trading gate.
type ReasonCode string

const (
	ReasonNone         ReasonCode = ""
	ReasonKill         ReasonCode = "KILL"
	ReasonData         ReasonCode = "DATA"
	ReasonSpread       ReasonCode = "SPREAD"
	ReasonVol          ReasonCode = "VOL"
	ReasonSlip         ReasonCode = "SLIP"
	ReasonMinSize      ReasonCode = "MIN_SIZE"
	ReasonInsuffJPY    ReasonCode = "INSUFF_JPY"
	ReasonLiveDisabled ReasonCode = "LIVE_DISABLED"
)

// Label returns a short human-readable description for notifications.
func (r ReasonCode) Label() string {
	switch r {
	case ReasonKill:
		return "kill switch"
	case ReasonData:
		return "bad market data"
	case ReasonSpread:
		return "spread over limit"
	case ReasonVol:
		return "5m volatility over limit"
	case ReasonSlip:
		return "slippage over limit"
	case ReasonMinSize:
		return "below min size"
	case ReasonInsuffJPY:
		return "insufficient JPY balance"
	case ReasonLiveDisabled:
		return "live trading disabled"
	}
	return string(r)
}

// GuardDecision result of the guard evaluation. Reason is set only when
// Allow is false. Details carries measured values and limits.
type GuardDecision struct {
	Allow   bool
	Reason  ReasonCode
	Details map[string]float64
}

// AllowAll returns a passing decision with no detail.
func AllowAll() GuardDecision {
	return GuardDecision{Allow: true, Details: map[string]float64{}}
}

// Reject returns a rejecting decision with the given reason and detail.
func Reject(reason ReasonCode, details map[string]float64) GuardDecision {
	if details == nil {
		details = map[string]float64{}
	}
	return GuardDecision{Allow: false, Reason: reason, Details: details}
}
