package optimizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CombinationsEvaluated - успешно оценённые комбинации параметров
var CombinationsEvaluated = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbsim",
		Subsystem: "optimizer",
		Name:      "combinations_evaluated_total",
		Help:      "Parameter combinations evaluated across all searches",
	},
)

// CombinationsFailed - комбинации, выпавшие из выбора из-за ошибки
var CombinationsFailed = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbsim",
		Subsystem: "optimizer",
		Name:      "combinations_failed_total",
		Help:      "Parameter combinations dropped due to evaluation errors",
	},
)

// SearchesFinished - завершённые поиски по вариантам
var SearchesFinished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbsim",
		Subsystem: "optimizer",
		Name:      "searches_finished_total",
		Help:      "Completed parameter searches",
	},
	[]string{"kind"}, // setting, balance, window
)

// BestMetricSeen - лучшая метрика последнего завершённого поиска
var BestMetricSeen = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "arbsim",
		Subsystem: "optimizer",
		Name:      "best_metric",
		Help:      "Best metric of the most recently finished search",
	},
	[]string{"kind"},
)
