// Package runner orchestrates one scheduled DCA run: dip detection,
// budget allocation, balance precheck, per-pair execution and reporting.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/okanelab/bitbank-dca/internal/domain"
	"github.com/okanelab/bitbank-dca/internal/services/allocator"
	"github.com/okanelab/bitbank-dca/internal/services/detector"
)

type pairPlanner interface {
	Plan(ctx context.Context, pair domain.Pair, allocJPY int64) (domain.OrderPlan, error)
	Execute(ctx context.Context, plan domain.OrderPlan) domain.ExecutionOutcome
}

type marketInfo interface {
	Change24h(ctx context.Context, pair domain.Pair) (float64, error)
}

type balancer interface {
	FreeJPY(ctx context.Context) (int64, error)
}

type notifier interface {
	Send(ctx context.Context, text string) error
}

type reportFormatter interface {
	Format(report *domain.RunReport) string
}

type runObserver interface {
	ObserveRun(report *domain.RunReport)
}

// Params configure one coordinator.
type Params struct {
	Weights []domain.PairWeight
	// TotalJPY is the base budget per run in yen.
	TotalJPY int64
	// DipTriggerPct flags a pair when its 24h change is <= -abs(this), percent units.
	DipTriggerPct float64
	// DipMultiplier grows the budget for dip pairs when > 1.
	DipMultiplier float64
	// DipCapJPY caps the adjusted total; 0 means floor(TotalJPY*DipMultiplier).
	DipCapJPY int64
}

// Coordinator runs the pipeline for all configured pairs. Pairs are
// processed strictly in the configured order; allocation and remainder
// assignment are order-dependent.
type Coordinator struct {
	params    Params
	planner   pairPlanner
	market    marketInfo
	balance   balancer
	notifier  notifier
	formatter reportFormatter
	observer  runObserver
	l         *zap.Logger
	now       func() time.Time
}

// New creates a run coordinator. observer may be nil.
func New(
	params Params,
	planner pairPlanner,
	market marketInfo,
	balance balancer,
	notifier notifier,
	formatter reportFormatter,
	observer runObserver,
	l *zap.Logger,
) *Coordinator {
	return &Coordinator{
		params:    params,
		planner:   planner,
		market:    market,
		balance:   balance,
		notifier:  notifier,
		formatter: formatter,
		observer:  observer,
		l:         l,
		now:       time.Now,
	}
}

// Run performs one scheduled run and returns its report. A fatal abort
// (market data for dip detection, balance precheck) still sends a
// best-effort notification before returning the error.
func (c *Coordinator) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		ID:            uuid.NewString(),
		StartedAt:     c.now(),
		TotalJPY:      c.params.TotalJPY,
		DipMultiplier: c.params.DipMultiplier,
	}

	c.l.Info("run started",
		zap.String("run_id", report.ID),
		zap.Int64("total_jpy", report.TotalJPY),
		zap.Int("pairs", len(c.params.Weights)))

	changes := make(map[domain.Pair]float64, len(c.params.Weights))
	for _, w := range c.params.Weights {
		chg, err := c.market.Change24h(ctx, w.Pair)
		if err != nil {
			return c.abort(ctx, report, errors.Wrap(err, "24h change fetch failed"))
		}
		changes[w.Pair] = chg
	}
	report.DipFlags = detector.DipFlags(changes, c.params.DipTriggerPct)

	order := make([]domain.Pair, 0, len(c.params.Weights))
	for _, w := range c.params.Weights {
		order = append(order, w.Pair)
	}

	base := allocator.Allocate(c.params.Weights, c.params.TotalJPY)
	capTotal := c.params.DipCapJPY
	if capTotal <= 0 {
		capTotal = int64(float64(c.params.TotalJPY) * c.params.DipMultiplier)
	}
	allocs := allocator.ApplyDip(report.DipFlags, order, base, c.params.TotalJPY, c.params.DipMultiplier, capTotal)

	var required int64
	for _, v := range allocs {
		required += v
	}

	balance, err := c.balance.FreeJPY(ctx)
	if err != nil {
		return c.abort(ctx, report, errors.Wrap(err, "balance precheck failed"))
	}
	report.BalanceBefore = balance
	report.BalanceAfter = balance

	if balance < required {
		c.l.Warn("insufficient balance, skipping all pairs",
			zap.Int64("balance", balance),
			zap.Int64("required", required))
		for _, p := range order {
			report.Outcomes = append(report.Outcomes, domain.ExecutionOutcome{
				Pair:       p,
				Status:     domain.StatusSkipped,
				Reason:     domain.ReasonInsuffJPY,
				PlannedJPY: allocs[p],
				Details:    map[string]float64{"balance": float64(balance), "required": float64(required)},
			})
		}
		c.finish(ctx, report)
		return report, nil
	}

	for _, p := range order {
		plan, err := c.planner.Plan(ctx, p, allocs[p])
		if err != nil {
			c.l.Error("planning failed", zap.String("pair", p.String()), zap.Error(err))
			report.Outcomes = append(report.Outcomes, domain.ExecutionOutcome{
				Pair:       p,
				Status:     domain.StatusError,
				PlannedJPY: allocs[p],
			})
			continue
		}
		report.Outcomes = append(report.Outcomes, c.planner.Execute(ctx, plan))
	}

	if after, err := c.balance.FreeJPY(ctx); err == nil {
		report.BalanceAfter = after
	} else {
		c.l.Warn("post-run balance fetch failed", zap.Error(err))
	}

	c.finish(ctx, report)
	return report, nil
}

func (c *Coordinator) finish(ctx context.Context, report *domain.RunReport) {
	if c.observer != nil {
		c.observer.ObserveRun(report)
	}
	if err := c.notifier.Send(ctx, c.formatter.Format(report)); err != nil {
		c.l.Error("notification failed", zap.Error(err))
	}
	c.l.Info("run finished",
		zap.String("run_id", report.ID),
		zap.Int("outcomes", len(report.Outcomes)),
		zap.Int64("balance_after", report.BalanceAfter))
}

func (c *Coordinator) abort(ctx context.Context, report *domain.RunReport, cause error) (*domain.RunReport, error) {
	report.Aborted = true
	report.Note = "run aborted: " + cause.Error()
	c.l.Error("run aborted", zap.String("run_id", report.ID), zap.Error(cause))
	c.finish(ctx, report)
	return report, cause
}
