package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики ядра бэктеста
// ============================================================
//
// Оптимизатор гоняет тысячи прогонов подряд - счётчики показывают
// скорость перебора и состав исходов без чтения логов.

// SnapshotsReplayed - количество применённых исторических снимков
var SnapshotsReplayed = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbsim",
		Subsystem: "backtest",
		Name:      "snapshots_replayed_total",
		Help:      "Total number of history snapshots applied to virtual markets",
	},
)

// OpportunitiesObserved - тики с положительным спредом на единицу
var OpportunitiesObserved = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbsim",
		Subsystem: "backtest",
		Name:      "opportunities_observed_total",
		Help:      "Ticks with positive per-unit spread, executed or not",
	},
	[]string{"direction"}, // NEW, REV
)

// TradesSimulated - виртуально исполненные сделки
var TradesSimulated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbsim",
		Subsystem: "backtest",
		Name:      "trades_simulated_total",
		Help:      "Virtually executed arbitrage trades",
	},
	[]string{"direction"},
)

// TradesSkipped - решения, прошедшие порог, но отклонённые
// минимумом рынка или балансом
var TradesSkipped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbsim",
		Subsystem: "backtest",
		Name:      "trades_skipped_total",
		Help:      "Decisions past the threshold rejected by market minimum or balance",
	},
)

// RunsFinished - завершённые прогоны бэктеста
var RunsFinished = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbsim",
		Subsystem: "backtest",
		Name:      "runs_finished_total",
		Help:      "Completed backtest replays",
	},
)

// KRWEarnedObserved - распределение заработанного KRW по прогонам
var KRWEarnedObserved = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "arbsim",
		Subsystem: "backtest",
		Name:      "krw_earned",
		Help:      "KRW earned per finished backtest run",
		Buckets:   []float64{-100000, -10000, -1000, 0, 1000, 10000, 100000, 1000000},
	},
)
