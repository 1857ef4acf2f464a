package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BacktestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_runs_total",
		Help: "Total number of backtest runs by outcome",
	}, []string{"ticker", "outcome"})

	BacktestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "backtest_duration_seconds",
		Help: "Wall time of a full backtest run",
	}, []string{"ticker"})

	BarsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backtest_bars_processed_total",
		Help: "Total number of bars replayed across all runs",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	DBInsertRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_insert_total",
		Help: "Total number of records inserted into DB",
	}, []string{"table"})

	HookFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "completion_hook_failures_total",
		Help: "Post-run hooks that returned an error",
	}, []string{"hook"})
)
