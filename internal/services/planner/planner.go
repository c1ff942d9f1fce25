// Package planner turns a per-pair yen allocation into an order plan and
// executes it behind the guard chain.
package planner

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/okanelab/bitbank-dca/internal/domain"
	"github.com/okanelab/bitbank-dca/internal/services/guard"
	"github.com/okanelab/bitbank-dca/internal/services/sizing"
)

type quoter interface {
	Resolve(ctx context.Context, pair domain.Pair) (domain.Quote, error)
	Vol5m(ctx context.Context, pair domain.Pair) float64
}

type trader interface {
	MarketBuy(ctx context.Context, pair domain.Pair, qty float64) (domain.OrderResult, error)
}

// Planner builds and executes one pair's order per run.
type Planner struct {
	specs  *domain.SpecRegistry
	quoter quoter
	trader trader
	params guard.Params
	// live gates real orders; when false every executable plan ends in
	// SKIPPED/LIVE_DISABLED.
	live bool
	// dryRun synthesizes a FILLED-shaped outcome without touching the
	// execution port.
	dryRun bool
	l      *zap.Logger
}

// New creates a planner.
func New(specs *domain.SpecRegistry, quoter quoter, trader trader, params guard.Params, live, dryRun bool, l *zap.Logger) *Planner {
	return &Planner{
		specs:  specs,
		quoter: quoter,
		trader: trader,
		params: params,
		live:   live,
		dryRun: dryRun,
		l:      l,
	}
}

// Plan resolves the quote and computes the rounded order quantity. Quote
// resolution failure is an infrastructure error for this pair only.
func (p *Planner) Plan(ctx context.Context, pair domain.Pair, allocJPY int64) (domain.OrderPlan, error) {
	spec, err := p.specs.Get(pair)
	if err != nil {
		return domain.OrderPlan{}, err
	}

	quote, err := p.quoter.Resolve(ctx, pair)
	if err != nil {
		return domain.OrderPlan{}, errors.Wrapf(err, "quote resolution failed for %s", pair.String())
	}

	var rawQty float64
	if quote.Price > 0 {
		rawQty = float64(allocJPY) / quote.Price
	}

	return domain.OrderPlan{
		Pair:     pair,
		AllocJPY: allocJPY,
		Quote:    quote,
		RawQty:   rawQty,
		Qty:      sizing.RoundDown(spec, rawQty),
	}, nil
}

// Execute runs the plan through the min-size check, the guard chain and
// the live gate, then places the market buy. Port failures become ERROR
// outcomes; the run continues for other pairs.
func (p *Planner) Execute(ctx context.Context, plan domain.OrderPlan) domain.ExecutionOutcome {
	spec, err := p.specs.Get(plan.Pair)
	if err != nil {
		// Plan already validated the spec; reaching this means the
		// registry changed mid-run, which the ownership model forbids.
		return p.errorOutcome(plan, err)
	}

	if plan.Qty <= 0 || plan.Qty < spec.MinSize {
		return domain.ExecutionOutcome{
			Pair:       plan.Pair,
			Status:     domain.StatusSkipped,
			Reason:     domain.ReasonMinSize,
			PlannedJPY: plan.AllocJPY,
			QuotePrice: plan.Quote.Price,
			Details: map[string]float64{
				"min_size":  spec.MinSize,
				"size_step": spec.SizeStep,
				"raw_qty":   plan.RawQty,
			},
		}
	}

	vol := p.quoter.Vol5m(ctx, plan.Pair)
	decision := guard.Evaluate(plan.Quote, vol, p.params)
	if !decision.Allow {
		details := decision.Details
		details["spread"] = plan.Quote.SpreadPct
		details["vol5m_abs"] = vol
		p.l.Info("guard rejected pair",
			zap.String("pair", plan.Pair.String()),
			zap.String("reason", string(decision.Reason)))
		return domain.ExecutionOutcome{
			Pair:       plan.Pair,
			Status:     domain.StatusSkipped,
			Reason:     decision.Reason,
			PlannedJPY: plan.AllocJPY,
			QuotePrice: plan.Quote.Price,
			Details:    details,
		}
	}

	if p.dryRun {
		return domain.ExecutionOutcome{
			Pair:       plan.Pair,
			Status:     domain.StatusFilled,
			PlannedJPY: plan.AllocJPY,
			QuotePrice: plan.Quote.Price,
			AvgPrice:   plan.Quote.Price,
			FilledQty:  plan.Qty,
			Details:    map[string]float64{"spread": plan.Quote.SpreadPct, "vol5m_abs": vol, "dry_run": 1},
		}
	}

	if !p.live {
		return domain.ExecutionOutcome{
			Pair:       plan.Pair,
			Status:     domain.StatusSkipped,
			Reason:     domain.ReasonLiveDisabled,
			PlannedJPY: plan.AllocJPY,
			QuotePrice: plan.Quote.Price,
			Details:    map[string]float64{"spread": plan.Quote.SpreadPct, "vol5m_abs": vol},
		}
	}

	result, err := p.trader.MarketBuy(ctx, plan.Pair, plan.Qty)
	if err != nil {
		p.l.Error("market buy failed",
			zap.String("pair", plan.Pair.String()),
			zap.Float64("qty", plan.Qty),
			zap.Error(err))
		return p.errorOutcome(plan, err)
	}

	p.l.Info("market buy filled",
		zap.String("pair", plan.Pair.String()),
		zap.String("order_id", result.OrderID),
		zap.Float64("avg_price", result.AvgPrice),
		zap.Float64("filled_qty", result.FilledQty))

	return domain.ExecutionOutcome{
		Pair:       plan.Pair,
		Status:     domain.StatusFilled,
		PlannedJPY: plan.AllocJPY,
		QuotePrice: plan.Quote.Price,
		AvgPrice:   result.AvgPrice,
		FilledQty:  result.FilledQty,
		Details:    map[string]float64{"spread": plan.Quote.SpreadPct, "vol5m_abs": vol},
	}
}

func (p *Planner) errorOutcome(plan domain.OrderPlan, err error) domain.ExecutionOutcome {
	return domain.ExecutionOutcome{
		Pair:       plan.Pair,
		Status:     domain.StatusError,
		PlannedJPY: plan.AllocJPY,
		QuotePrice: plan.Quote.Price,
		Details:    map[string]float64{"spread": plan.Quote.SpreadPct},
	}
}
