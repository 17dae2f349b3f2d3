package models

// AssetKRW - котировочная валюта обоих рынков
const AssetKRW = "KRW"

// MarketBalances - балансы одного рынка по активам (актив → количество)
type MarketBalances map[string]float64

// Balances - виртуальные балансы обоих рынков (рынок → балансы)
type Balances map[string]MarketBalances

// TotalOf возвращает суммарный баланс актива по всем рынкам
func (b Balances) TotalOf(asset string) float64 {
	var total float64
	for _, mb := range b {
		total += mb[asset]
	}
	return total
}

// Clone возвращает глубокую копию балансов
//
// Каждая комбинация оптимизатора получает собственную копию стартовых
// балансов - исходная карта никогда не разделяется между воркерами.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for market, mb := range b {
		cp := make(MarketBalances, len(mb))
		for asset, amount := range mb {
			cp[asset] = amount
		}
		out[market] = cp
	}
	return out
}

// BacktestSummary - агрегированный результат одного прогона бэктеста
//
// Возможность (opportunity) считается на каждом тике с положительным
// спредом на единицу, независимо от того, исполнилась ли сделка.
type BacktestSummary struct {
	Ticks            int      `json:"ticks"`
	NewOpportunities int      `json:"new_opportunities"`
	RevOpportunities int      `json:"rev_opportunities"`
	NewTrades        int      `json:"new_trades"`
	RevTrades        int      `json:"rev_trades"`
	SkippedTrades    int      `json:"skipped_trades"` // прошли порог, но отказ по минимуму рынка или балансу
	KRWEarned        float64  `json:"krw_earned"`     // итоговый KRW минус стартовый
	KRWExhausted     float64  `json:"krw_exhausted"`  // максимальная просадка KRW за прогон
	Yield            float64  `json:"yield"`          // KRWEarned / стартовый KRW
	StartBalances    Balances `json:"start_balances"`
	EndBalances      Balances `json:"end_balances"`
	Trades           []Trade  `json:"trades"`
}

// OptimizationResult - результат оценки одной комбинации параметров
//
// Жизненный цикл: создаётся по завершении прогона, сравнивается
// с текущим лучшим и либо вытесняет его, либо отбрасывается.
type OptimizationResult struct {
	Metric    float64         `json:"metric"` // KRW earned либо yield, в зависимости от варианта поиска
	Params    TradeParams     `json:"params"`
	Balances  Balances        `json:"balances"`  // стартовое распределение капитала этой комбинации
	Invested  float64         `json:"invested"`  // суммарный вложенный KRW
	Exhausted float64         `json:"exhausted"` // фактически израсходованный KRW
	Summary   BacktestSummary `json:"summary"`
}
