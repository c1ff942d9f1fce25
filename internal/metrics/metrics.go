// Package metrics exposes Prometheus counters the run coordinator updates.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dca_runs_total",
			Help: "Completed runs by result (ok|aborted)",
		},
		[]string{"result"},
	)

	pairOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dca_pair_outcomes_total",
			Help: "Per-pair outcomes by status and skip reason",
		},
		[]string{"status", "reason"},
	)

	jpyBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dca_jpy_balance",
			Help: "Free JPY balance after the last run",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, pairOutcomesTotal, jpyBalance)
}

// Observer records run reports into the registered collectors.
type Observer struct{}

// ObserveRun updates the counters from one finished run.
func (Observer) ObserveRun(report *domain.RunReport) {
	result := "ok"
	if report.Aborted {
		result = "aborted"
	}
	runsTotal.WithLabelValues(result).Inc()

	for _, o := range report.Outcomes {
		pairOutcomesTotal.WithLabelValues(o.Status.String(), string(o.Reason)).Inc()
	}
	jpyBalance.Set(float64(report.BalanceAfter))
}

// Serve starts the /metrics endpoint and blocks until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
