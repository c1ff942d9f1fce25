package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

func healthyQuote() domain.Quote {
	return domain.Quote{
		Pair:      domain.Pair{Base: "btc", Quote: "jpy"},
		Price:     10000000,
		BestBid:   9995000,
		BestAsk:   10000000,
		SpreadPct: 0.0005,
	}
}

func defaultParams() Params {
	return Params{MaxSpreadPct: 0.005, MaxVol5mPct: 0.03}
}

func TestEvaluateAllows(t *testing.T) {
	got := Evaluate(healthyQuote(), 0.01, defaultParams())

	assert.True(t, got.Allow)
	assert.Equal(t, domain.ReasonNone, got.Reason)
	assert.Empty(t, got.Details)
}

func TestEvaluateKillSwitchAlwaysWins(t *testing.T) {
	params := defaultParams()
	params.KillSwitch = true

	// even a quote that would trip every other rule reports KILL
	badQuote := domain.Quote{SpreadPct: 99}
	got := Evaluate(badQuote, 99, params)

	assert.False(t, got.Allow)
	assert.Equal(t, domain.ReasonKill, got.Reason)
}

func TestEvaluateDataIntegrity(t *testing.T) {
	tests := []struct {
		name  string
		quote domain.Quote
	}{
		{name: "non-positive price", quote: domain.Quote{Price: 0, BestBid: 1, BestAsk: 1}},
		{name: "both sides empty", quote: domain.Quote{Price: 100, BestBid: 0, BestAsk: 0}},
		{name: "negative price", quote: domain.Quote{Price: -1, BestBid: 1, BestAsk: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.quote, 0, defaultParams())
			assert.False(t, got.Allow)
			assert.Equal(t, domain.ReasonData, got.Reason)
			assert.Contains(t, got.Details, "price")
			assert.Contains(t, got.Details, "bid")
			assert.Contains(t, got.Details, "ask")
		})
	}
}

func TestEvaluateSpread(t *testing.T) {
	quote := healthyQuote()
	quote.SpreadPct = 0.006

	got := Evaluate(quote, 0, defaultParams())

	assert.False(t, got.Allow)
	assert.Equal(t, domain.ReasonSpread, got.Reason)
	assert.Equal(t, 0.006, got.Details["spread"])
	assert.Equal(t, 0.005, got.Details["limit"])
}

func TestEvaluateSpreadAtLimitPasses(t *testing.T) {
	quote := healthyQuote()
	quote.SpreadPct = 0.005

	got := Evaluate(quote, 0, defaultParams())
	assert.True(t, got.Allow)
}

func TestEvaluateVolatility(t *testing.T) {
	got := Evaluate(healthyQuote(), 0.05, defaultParams())

	assert.False(t, got.Allow)
	assert.Equal(t, domain.ReasonVol, got.Reason)
	assert.Equal(t, 0.05, got.Details["vol5m_abs"])
	assert.Equal(t, 0.03, got.Details["limit"])
}

func TestEvaluateSlippageCheckNeverRejects(t *testing.T) {
	params := defaultParams()
	params.MaxSlipPct = 0.008

	got := Evaluate(healthyQuote(), 0.01, params)
	assert.True(t, got.Allow)
}

func TestEvaluateRuleOrder(t *testing.T) {
	// a quote failing both DATA and SPREAD must report DATA
	quote := domain.Quote{Price: 0, SpreadPct: 99}
	got := Evaluate(quote, 99, defaultParams())
	assert.Equal(t, domain.ReasonData, got.Reason)

	// a quote failing both SPREAD and VOL must report SPREAD
	quote = healthyQuote()
	quote.SpreadPct = 99
	got = Evaluate(quote, 99, defaultParams())
	assert.Equal(t, domain.ReasonSpread, got.Reason)
}
