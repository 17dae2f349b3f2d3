package sim

import (
	"errors"
	"fmt"
	"math"

	"arbsim/internal/models"
)

// ErrDataAlignment - исторические потоки двух рынков рассинхронизированы.
// Реплей требует строго попарных снимков с одинаковыми метками времени;
// расхождение делает весь прогон недостоверным и прерывает его.
var ErrDataAlignment = errors.New("history streams are not aligned")

// ErrReplayState - недопустимый переход состояния прогона
var ErrReplayState = errors.New("invalid replay state transition")

// EngineConfig - конфигурация одного прогона бэктеста
type EngineConfig struct {
	Asset   string     `json:"asset"`
	Market1 MarketSpec `json:"market1"`
	Market2 MarketSpec `json:"market2"`
}

// ============================================================
// BacktestEngine - детерминированный реплей пары рынков
// ============================================================
//
// Движок одноразовый: NewBacktestEngine + Run на один прогон.
// Оптимизатор создаёт свежий движок на каждую комбинацию параметров,
// поэтому прогоны полностью изолированы и воспроизводимы: одни и те же
// данные, параметры и стартовые балансы дают байт-в-байт одинаковый итог.
type BacktestEngine struct {
	cfg    EngineConfig
	mm1    *VirtualMarket
	mm2    *VirtualMarket
	ledger *FeeLedger
	state  string

	summary  models.BacktestSummary
	startKRW float64
	// минимумы KRW по рынкам за прогон - из них считается
	// фактически задействованный капитал
	minKRW map[string]float64
}

// NewBacktestEngine создаёт движок со стартовыми балансами обоих рынков
func NewBacktestEngine(cfg EngineConfig, initial models.Balances) *BacktestEngine {
	ledger := NewFeeLedger()
	ledger.Register(cfg.Market1.ID, cfg.Asset)
	ledger.Register(cfg.Market2.ID, cfg.Asset)

	return &BacktestEngine{
		cfg:    cfg,
		mm1:    NewVirtualMarket(cfg.Market1, initial[cfg.Market1.ID]),
		mm2:    NewVirtualMarket(cfg.Market2, initial[cfg.Market2.ID]),
		ledger: ledger,
		state:  ReplayIdle,
	}
}

// State возвращает текущее состояние прогона
func (e *BacktestEngine) State() string { return e.state }

func (e *BacktestEngine) transition(to string) error {
	if !CanTransition(e.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrReplayState, e.state, to)
	}
	e.state = to
	return nil
}

// Run проигрывает пары исторических снимков и возвращает итоги.
// mm1Data[i] и mm2Data[i] - одновременные снимки двух рынков.
func (e *BacktestEngine) Run(mm1Data, mm2Data []models.OrderBookSnapshot, params models.TradeParams) (*models.BacktestSummary, error) {
	if err := e.transition(ReplayReplaying); err != nil {
		return nil, err
	}
	if len(mm1Data) != len(mm2Data) {
		return nil, fmt.Errorf("%w: %d snapshots vs %d", ErrDataAlignment, len(mm1Data), len(mm2Data))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	start := models.Balances{
		e.mm1.ID(): e.mm1.Balances(),
		e.mm2.ID(): e.mm2.Balances(),
	}
	e.summary = models.BacktestSummary{StartBalances: start}
	e.startKRW = start.TotalOf(models.AssetKRW)
	e.minKRW = map[string]float64{
		e.mm1.ID(): e.mm1.Available(models.AssetKRW),
		e.mm2.ID(): e.mm2.Available(models.AssetKRW),
	}

	for i := range mm1Data {
		s1, s2 := &mm1Data[i], &mm2Data[i]
		if s1.Timestamp != s2.Timestamp {
			return nil, fmt.Errorf("%w: pair %d has timestamps %d vs %d", ErrDataAlignment, i, s1.Timestamp, s2.Timestamp)
		}

		e.mm1.ApplyHistorySnapshot(s1)
		e.mm2.ApplyHistorySnapshot(s2)
		e.summary.Ticks++
		SnapshotsReplayed.Add(2)

		// Пустой стакан с любой стороны - тик без оценки
		if s1.IsEmpty() || s2.IsEmpty() {
			continue
		}

		e.step(s1, s2, params)
	}

	if err := e.transition(ReplayFinished); err != nil {
		return nil, err
	}

	end := models.Balances{
		e.mm1.ID(): e.mm1.Balances(),
		e.mm2.ID(): e.mm2.Balances(),
	}
	e.summary.EndBalances = end
	e.summary.KRWEarned = end.TotalOf(models.AssetKRW) - e.startKRW

	// Задействованный капитал: насколько глубоко каждый рынок
	// проседал ниже своего стартового KRW
	for _, m := range []*VirtualMarket{e.mm1, e.mm2} {
		if dip := start[m.ID()][models.AssetKRW] - e.minKRW[m.ID()]; dip > 0 {
			e.summary.KRWExhausted += dip
		}
	}
	if e.startKRW > 0 {
		e.summary.Yield = e.summary.KRWEarned / e.startKRW
	}

	RunsFinished.Inc()
	KRWEarnedObserved.Observe(e.summary.KRWEarned)

	return &e.summary, nil
}

// step оценивает оба направления на одном тике.
// NEW: покупка на mm1, продажа на mm2. REV: наоборот.
func (e *BacktestEngine) step(s1, s2 *models.OrderBookSnapshot, params models.TradeParams) {
	newDec := Evaluate(EvalInput{
		Direction:      models.DirectionNew,
		BuyMarket:      e.mm1.ID(),
		SellMarket:     e.mm2.ID(),
		BuyPrice:       s1.BestAsk().Price,
		BuyAvail:       s1.BestAsk().Amount,
		BuyFee:         e.mm1.Fee(),
		SellPrice:      s2.BestBid().Price,
		SellAvail:      s2.BestBid().Amount,
		SellFee:        e.mm2.Fee(),
		MaxTradingUnit: params.MaxTradingCoin,
		MinTradingCoin: params.MinTradingCoin,
	})
	revDec := Evaluate(EvalInput{
		Direction:      models.DirectionRev,
		BuyMarket:      e.mm2.ID(),
		SellMarket:     e.mm1.ID(),
		BuyPrice:       s2.BestAsk().Price,
		BuyAvail:       s2.BestAsk().Amount,
		BuyFee:         e.mm2.Fee(),
		SellPrice:      s1.BestBid().Price,
		SellAvail:      s1.BestBid().Amount,
		SellFee:        e.mm1.Fee(),
		MaxTradingUnit: params.MaxTradingCoin,
		MinTradingCoin: params.MinTradingCoin,
	})

	if newDec.SpreadInUnit > 0 {
		e.summary.NewOpportunities++
		OpportunitiesObserved.WithLabelValues(models.DirectionNew).Inc()
	}
	if revDec.SpreadInUnit > 0 {
		e.summary.RevOpportunities++
		OpportunitiesObserved.WithLabelValues(models.DirectionRev).Inc()
	}

	e.tryExecute(newDec, e.mm1, e.mm2, s1.Timestamp, params)
	e.tryExecute(revDec, e.mm2, e.mm1, s2.Timestamp, params)
}

// tryExecute применяет положительное решение, если оно проходит порог
// направления, собственные минимумы рынков и проверку балансов
func (e *BacktestEngine) tryExecute(d models.SpreadDecision, buy, sell *VirtualMarket, ts int64, params models.TradeParams) {
	if !d.AbleToTrade {
		return
	}

	dp := params.ByDirection(d.Direction)
	if d.SpreadToTrade < dp.Threshold {
		// не прошли порог - это не пропуск сделки, а её отсутствие
		return
	}

	// Каждая нога обязана превышать минимум собственного рынка
	if d.BuyLeg.Quantity <= buy.MinOrderQty() || d.SellLeg.Quantity <= sell.MinOrderQty() {
		e.summary.SkippedTrades++
		TradesSkipped.Inc()
		return
	}

	// Накопленная комиссия добивается к ноге покупки,
	// когда набирается отдаваемая порция
	consider := e.ledger.Consumable(buy.ID(), e.cfg.Asset)
	buyQty := d.BuyLeg.Quantity + consider

	// Балансы проверяются с запасом: множитель требования направления,
	// но не меньше точной стоимости ног
	pad := math.Max(dp.Factor, 1)
	cost := float64(d.BuyLeg.Price) * buyQty
	if buy.Available(models.AssetKRW) < cost*pad || !sell.HasEnoughCoin(e.cfg.Asset, d.SellLeg.Quantity*pad) {
		e.summary.SkippedTrades++
		TradesSkipped.Inc()
		return
	}

	if err := buy.OrderBuy(e.cfg.Asset, d.BuyLeg.Price, buyQty); err != nil {
		e.summary.SkippedTrades++
		TradesSkipped.Inc()
		return
	}
	if err := sell.OrderSell(e.cfg.Asset, d.SellLeg.Price, d.SellLeg.Quantity); err != nil {
		e.summary.SkippedTrades++
		TradesSkipped.Inc()
		return
	}

	if consider > 0 {
		e.ledger.SubFeeConsideration(buy.ID(), e.cfg.Asset, consider)
	}
	e.ledger.AddFeeExpenditure(buy.ID(), e.cfg.Asset, buyQty*buy.Fee())

	trade := models.Trade{
		Direction: d.Direction,
		Timestamp: ts,
		BuyLeg: models.TradeLeg{
			Side:     models.SideBuy,
			Market:   buy.ID(),
			Price:    d.BuyLeg.Price,
			Quantity: buyQty,
		},
		SellLeg:       d.SellLeg,
		SpreadToTrade: d.SpreadToTrade,
	}
	e.summary.Trades = append(e.summary.Trades, trade)

	if d.Direction == models.DirectionNew {
		e.summary.NewTrades++
	} else {
		e.summary.RevTrades++
	}
	TradesSimulated.WithLabelValues(d.Direction).Inc()

	for _, m := range []*VirtualMarket{e.mm1, e.mm2} {
		if krw := m.Available(models.AssetKRW); krw < e.minKRW[m.ID()] {
			e.minKRW[m.ID()] = krw
		}
	}
}
