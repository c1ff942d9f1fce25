package planner

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okanelab/bitbank-dca/internal/domain"
	"github.com/okanelab/bitbank-dca/internal/services/guard"
)

var btc = domain.Pair{Base: "btc", Quote: "jpy"}

type stubQuoter struct {
	quote    domain.Quote
	quoteErr error
	vol      float64
}

func (s *stubQuoter) Resolve(context.Context, domain.Pair) (domain.Quote, error) {
	return s.quote, s.quoteErr
}

func (s *stubQuoter) Vol5m(context.Context, domain.Pair) float64 {
	return s.vol
}

type stubTrader struct {
	result domain.OrderResult
	err    error
	calls  int
	qty    float64
}

func (s *stubTrader) MarketBuy(_ context.Context, _ domain.Pair, qty float64) (domain.OrderResult, error) {
	s.calls++
	s.qty = qty
	return s.result, s.err
}

func registry() *domain.SpecRegistry {
	return domain.NewSpecRegistry(domain.PairSpec{Pair: btc, MinSize: 0.0001, SizeStep: 0.0001, PriceStep: 1})
}

func healthyQuote() domain.Quote {
	return domain.Quote{Pair: btc, Price: 10000000, BestBid: 9995000, BestAsk: 10000000, SpreadPct: 0.0005}
}

func params() guard.Params {
	return guard.Params{MaxSpreadPct: 0.005, MaxVol5mPct: 0.03}
}

func TestPlan(t *testing.T) {
	q := &stubQuoter{quote: healthyQuote()}
	p := New(registry(), q, &stubTrader{}, params(), true, false, zap.NewNop())

	plan, err := p.Plan(context.Background(), btc, 10000)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), plan.AllocJPY)
	assert.InDelta(t, 0.001, plan.RawQty, 1e-9)
	assert.Equal(t, 0.001, plan.Qty)
}

func TestPlanQuoteFailure(t *testing.T) {
	q := &stubQuoter{quoteErr: errors.New("boom")}
	p := New(registry(), q, &stubTrader{}, params(), true, false, zap.NewNop())

	_, err := p.Plan(context.Background(), btc, 10000)
	assert.Error(t, err)
}

func TestPlanUnregisteredPairIsFatal(t *testing.T) {
	p := New(domain.NewSpecRegistry(), &stubQuoter{quote: healthyQuote()}, &stubTrader{}, params(), true, false, zap.NewNop())

	_, err := p.Plan(context.Background(), btc, 10000)
	assert.Error(t, err)
}

func TestExecuteMinSizeSkip(t *testing.T) {
	trader := &stubTrader{}
	p := New(registry(), &stubQuoter{quote: healthyQuote()}, trader, params(), true, false, zap.NewNop())

	// 500 yen at 10M yen/BTC is below the 0.0001 minimum
	plan, err := p.Plan(context.Background(), btc, 500)
	require.NoError(t, err)
	require.Zero(t, plan.Qty)

	outcome := p.Execute(context.Background(), plan)

	assert.Equal(t, domain.StatusSkipped, outcome.Status)
	assert.Equal(t, domain.ReasonMinSize, outcome.Reason)
	assert.Zero(t, trader.calls)
	assert.Equal(t, 0.0001, outcome.Details["min_size"])
}

func TestExecuteMinSizeSkipWinsOverGuard(t *testing.T) {
	// kill switch active, but the min-size skip is decided first
	gp := params()
	gp.KillSwitch = true
	p := New(registry(), &stubQuoter{quote: healthyQuote()}, &stubTrader{}, gp, true, false, zap.NewNop())

	plan, err := p.Plan(context.Background(), btc, 500)
	require.NoError(t, err)

	outcome := p.Execute(context.Background(), plan)
	assert.Equal(t, domain.ReasonMinSize, outcome.Reason)
}

func TestExecuteGuardRejection(t *testing.T) {
	trader := &stubTrader{}
	q := &stubQuoter{quote: healthyQuote(), vol: 0.05}
	p := New(registry(), q, trader, params(), true, false, zap.NewNop())

	plan, err := p.Plan(context.Background(), btc, 10000)
	require.NoError(t, err)

	outcome := p.Execute(context.Background(), plan)

	assert.Equal(t, domain.StatusSkipped, outcome.Status)
	assert.Equal(t, domain.ReasonVol, outcome.Reason)
	assert.Equal(t, 0.05, outcome.Details["vol5m_abs"])
	assert.Zero(t, trader.calls)
}

func TestExecuteLiveDisabled(t *testing.T) {
	trader := &stubTrader{}
	p := New(registry(), &stubQuoter{quote: healthyQuote()}, trader, params(), false, false, zap.NewNop())

	plan, err := p.Plan(context.Background(), btc, 10000)
	require.NoError(t, err)

	outcome := p.Execute(context.Background(), plan)

	assert.Equal(t, domain.StatusSkipped, outcome.Status)
	assert.Equal(t, domain.ReasonLiveDisabled, outcome.Reason)
	assert.Zero(t, trader.calls)
}

func TestExecuteDryRunSynthesizesFill(t *testing.T) {
	trader := &stubTrader{}
	p := New(registry(), &stubQuoter{quote: healthyQuote()}, trader, params(), false, true, zap.NewNop())

	plan, err := p.Plan(context.Background(), btc, 10000)
	require.NoError(t, err)

	outcome := p.Execute(context.Background(), plan)

	assert.Equal(t, domain.StatusFilled, outcome.Status)
	assert.Equal(t, plan.Qty, outcome.FilledQty)
	assert.Equal(t, plan.Quote.Price, outcome.AvgPrice)
	assert.Zero(t, trader.calls)
}

func TestExecuteFilled(t *testing.T) {
	trader := &stubTrader{result: domain.OrderResult{OrderID: "42", AvgPrice: 9999000, FilledQty: 0.001}}
	p := New(registry(), &stubQuoter{quote: healthyQuote()}, trader, params(), true, false, zap.NewNop())

	plan, err := p.Plan(context.Background(), btc, 10000)
	require.NoError(t, err)

	outcome := p.Execute(context.Background(), plan)

	assert.Equal(t, domain.StatusFilled, outcome.Status)
	assert.Equal(t, 9999000.0, outcome.AvgPrice)
	assert.Equal(t, 0.001, outcome.FilledQty)
	assert.Equal(t, 1, trader.calls)
	assert.Equal(t, plan.Qty, trader.qty)
}

func TestExecuteTraderFailureIsErrorOutcome(t *testing.T) {
	trader := &stubTrader{err: errors.New("rate limited")}
	p := New(registry(), &stubQuoter{quote: healthyQuote()}, trader, params(), true, false, zap.NewNop())

	plan, err := p.Plan(context.Background(), btc, 10000)
	require.NoError(t, err)

	outcome := p.Execute(context.Background(), plan)

	assert.Equal(t, domain.StatusError, outcome.Status)
	assert.Zero(t, outcome.FilledQty)
}
