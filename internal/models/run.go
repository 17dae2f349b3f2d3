package models

import "time"

// Виды поиска параметров
const (
	SearchKindSetting = "setting" // поиск торговых настроек
	SearchKindBalance = "balance" // поиск распределения капитала
	SearchKindWindow  = "window"  // составной поиск по окнам возможностей
)

// BacktestRun - запись о завершённом прогоне бэктеста (таблица backtest_runs)
type BacktestRun struct {
	ID               int       `json:"id" db:"id"`
	Asset            string    `json:"asset" db:"asset"`
	Market1          string    `json:"market1" db:"market1"`
	Market2          string    `json:"market2" db:"market2"`
	Ticks            int       `json:"ticks" db:"ticks"`
	NewOpportunities int       `json:"new_opportunities" db:"new_opportunities"`
	RevOpportunities int       `json:"rev_opportunities" db:"rev_opportunities"`
	NewTrades        int       `json:"new_trades" db:"new_trades"`
	RevTrades        int       `json:"rev_trades" db:"rev_trades"`
	KRWEarned        float64   `json:"krw_earned" db:"krw_earned"`
	KRWExhausted     float64   `json:"krw_exhausted" db:"krw_exhausted"`
	Yield            float64   `json:"yield" db:"yield"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// OptimizationRecord - запись о завершённом поиске параметров
// (таблица optimization_results)
//
// Хранится лучшая найденная комбинация: сами параметры, метрика
// и размер перебранного пространства.
type OptimizationRecord struct {
	ID             int       `json:"id" db:"id"`
	Kind           string    `json:"kind" db:"kind"` // setting, balance, window
	Asset          string    `json:"asset" db:"asset"`
	Metric         float64   `json:"metric" db:"metric"`
	KRWEarned      float64   `json:"krw_earned" db:"krw_earned"`
	Yield          float64   `json:"yield" db:"yield"`
	MaxTradingCoin float64   `json:"max_trading_coin" db:"max_trading_coin"`
	NewThreshold   float64   `json:"new_threshold" db:"new_threshold"`
	RevThreshold   float64   `json:"rev_threshold" db:"rev_threshold"`
	NewFactor      float64   `json:"new_factor" db:"new_factor"`
	RevFactor      float64   `json:"rev_factor" db:"rev_factor"`
	Combinations   int64     `json:"combinations" db:"combinations"`
	Depth          int       `json:"depth" db:"depth"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
