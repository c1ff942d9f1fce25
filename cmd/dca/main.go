package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/okanelab/bitbank-dca/config"
	"github.com/okanelab/bitbank-dca/internal/clients"
	"github.com/okanelab/bitbank-dca/internal/metrics"
	"github.com/okanelab/bitbank-dca/internal/services/guard"
	"github.com/okanelab/bitbank-dca/internal/services/planner"
	"github.com/okanelab/bitbank-dca/internal/services/pricer"
	"github.com/okanelab/bitbank-dca/internal/services/reporting"
	"github.com/okanelab/bitbank-dca/internal/services/runner"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config, defaults apply when empty")
	dryRun := flag.Bool("dry-run", false, "compute and report without placing orders")
	once := flag.Bool("once", false, "run a single cycle and exit, ignoring the schedule")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		logger.Fatal("invalid pair configuration", zap.Error(err))
	}

	if cfg.Live && !*dryRun && (cfg.APIKey == "" || cfg.APISecret == "") {
		logger.Fatal("live mode requires BITBANK_API_KEY and BITBANK_API_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	public := clients.NewPublicClient(cfg.HTTPTimeout)
	private := clients.NewPrivateClient(
		cfg.APIKey,
		cfg.APISecret,
		clients.AuthMode(cfg.AuthMode),
		cfg.TimeWindowMS,
		cfg.HTTPTimeout,
	)

	prices := pricer.New(public, logger)

	plans := planner.New(
		registry,
		prices,
		private,
		guard.Params{
			MaxSpreadPct: cfg.MaxSpreadPct,
			MaxVol5mPct:  cfg.MaxVol5mPct,
			MaxSlipPct:   cfg.MaxSlipPct,
			KillSwitch:   cfg.KillSwitch,
		},
		cfg.Live,
		*dryRun,
		logger,
	)

	var notify interface {
		Send(ctx context.Context, text string) error
	}
	if cfg.LineChannelToken != "" && cfg.LineToUserID != "" {
		notify = clients.NewLineNotifier(cfg.LineChannelToken, cfg.LineToUserID, cfg.HTTPTimeout)
	} else {
		logger.Warn("LINE credentials not set, notifications go to the log only")
		notify = logNotifier{logger}
	}

	coordinator := runner.New(
		runner.Params{
			Weights:       cfg.Weights,
			TotalJPY:      cfg.TotalJPY,
			DipTriggerPct: cfg.DipTriggerPct,
			DipMultiplier: cfg.DipMultiplier,
			DipCapJPY:     cfg.DipCapJPY,
		},
		plans,
		prices,
		private,
		notify,
		reporting.NewFormatter("Bitbank DCA", cfg.LowBalanceAlertJPY),
		metrics.Observer{},
		logger,
	)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	if *once || cfg.Schedule == "" {
		if _, err := coordinator.Run(ctx); err != nil {
			logger.Error("run failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Schedule, func() {
		if _, err := coordinator.Run(ctx); err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("invalid schedule expression", zap.String("schedule", cfg.Schedule), zap.Error(err))
	}

	logger.Info("scheduler started", zap.String("schedule", cfg.Schedule))
	scheduler.Start()

	<-ctx.Done()
	logger.Info("shutting down")
	<-scheduler.Stop().Done()
}

// logNotifier stands in for the LINE notifier when no channel token is
// configured.
type logNotifier struct {
	l *zap.Logger
}

func (n logNotifier) Send(_ context.Context, text string) error {
	n.l.Info("run notification", zap.String("text", text))
	return nil
}
