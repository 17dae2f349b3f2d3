package sim

import (
	"errors"
	"reflect"
	"testing"

	"arbsim/internal/models"
)

// ============================================================
// BacktestEngine Tests
// ============================================================

func testEngineConfig() EngineConfig {
	return EngineConfig{
		Asset:   "BTC",
		Market1: MarketSpec{ID: "mm1", Fee: 0, MinOrderQty: 0.0001},
		Market2: MarketSpec{ID: "mm2", Fee: 0, MinOrderQty: 0.0001},
	}
}

func testEngineBalances() models.Balances {
	return models.Balances{
		"mm1": {models.AssetKRW: 1000},
		"mm2": {"BTC": 10},
	}
}

func testEngineParams() models.TradeParams {
	return models.TradeParams{
		MaxTradingCoin: 1,
		MinTradingCoin: 0,
		New:            models.DirectionParams{Threshold: 0, Factor: 1},
		Rev:            models.DirectionParams{Threshold: 0, Factor: 1},
	}
}

func snapshot(ts, askPrice int64, askAmt float64, bidPrice int64, bidAmt float64) models.OrderBookSnapshot {
	return models.OrderBookSnapshot{
		Asks:      []models.PriceLevel{{Price: askPrice, Amount: askAmt}},
		Bids:      []models.PriceLevel{{Price: bidPrice, Amount: bidAmt}},
		Timestamp: ts,
	}
}

// Три тика: NEW выгоден только на втором, REV не выгоден никогда
func threeTickStreams() ([]models.OrderBookSnapshot, []models.OrderBookSnapshot) {
	mm1 := []models.OrderBookSnapshot{
		snapshot(1, 100, 5, 99, 5),
		snapshot(2, 100, 5, 99, 5),
		snapshot(3, 100, 5, 99, 5),
	}
	mm2 := []models.OrderBookSnapshot{
		snapshot(1, 101, 5, 98, 5),
		snapshot(2, 112, 5, 110, 5),
		snapshot(3, 101, 5, 98, 5),
	}
	return mm1, mm2
}

func TestBacktestEngineEndToEnd(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()
	e := NewBacktestEngine(testEngineConfig(), testEngineBalances())

	s, err := e.Run(mm1Data, mm2Data, testEngineParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Ticks != 3 {
		t.Errorf("expected 3 ticks, got %d", s.Ticks)
	}
	if s.NewOpportunities != 1 || s.RevOpportunities != 0 {
		t.Errorf("expected opportunities NEW=1 REV=0, got NEW=%d REV=%d", s.NewOpportunities, s.RevOpportunities)
	}
	if s.NewTrades != 1 || s.RevTrades != 0 {
		t.Errorf("expected trades NEW=1 REV=0, got NEW=%d REV=%d", s.NewTrades, s.RevTrades)
	}
	if len(s.Trades) != 1 {
		t.Fatalf("expected 1 recorded trade, got %d", len(s.Trades))
	}

	// Сделка на втором тике: покупка 1 BTC по 100 на mm1,
	// продажа 1 BTC по 110 на mm2 (комиссии нулевые)
	trade := s.Trades[0]
	if trade.Direction != models.DirectionNew || trade.Timestamp != 2 {
		t.Errorf("unexpected trade identity: %+v", trade)
	}
	if trade.BuyLeg.Market != "mm1" || trade.BuyLeg.Price != 100 || abs(trade.BuyLeg.Quantity-1) > floatTolerance {
		t.Errorf("unexpected buy leg: %+v", trade.BuyLeg)
	}
	if trade.SellLeg.Market != "mm2" || trade.SellLeg.Price != 110 || abs(trade.SellLeg.Quantity-1) > floatTolerance {
		t.Errorf("unexpected sell leg: %+v", trade.SellLeg)
	}
	if abs(trade.SpreadToTrade-10) > floatTolerance {
		t.Errorf("expected spreadToTrade 10, got %f", trade.SpreadToTrade)
	}

	// Итоговые балансы отражают ровно одну сделку
	if krw := s.EndBalances["mm1"][models.AssetKRW]; abs(krw-900) > floatTolerance {
		t.Errorf("expected mm1 KRW 900, got %f", krw)
	}
	if btc := s.EndBalances["mm1"]["BTC"]; abs(btc-1) > floatTolerance {
		t.Errorf("expected mm1 BTC 1, got %f", btc)
	}
	if krw := s.EndBalances["mm2"][models.AssetKRW]; abs(krw-110) > floatTolerance {
		t.Errorf("expected mm2 KRW 110, got %f", krw)
	}
	if btc := s.EndBalances["mm2"]["BTC"]; abs(btc-9) > floatTolerance {
		t.Errorf("expected mm2 BTC 9, got %f", btc)
	}

	if abs(s.KRWEarned-10) > floatTolerance {
		t.Errorf("expected KRWEarned 10, got %f", s.KRWEarned)
	}
	// mm1 просел с 1000 до 900 - задействовано 100 KRW
	if abs(s.KRWExhausted-100) > floatTolerance {
		t.Errorf("expected KRWExhausted 100, got %f", s.KRWExhausted)
	}
	if abs(s.Yield-0.01) > floatTolerance {
		t.Errorf("expected yield 0.01, got %f", s.Yield)
	}
	if s.SkippedTrades != 0 {
		t.Errorf("expected no skipped trades, got %d", s.SkippedTrades)
	}
	if e.State() != ReplayFinished {
		t.Errorf("expected FINISHED state, got %s", e.State())
	}
}

func TestBacktestEngineDeterminism(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()
	params := testEngineParams()

	first, err := NewBacktestEngine(testEngineConfig(), testEngineBalances()).Run(mm1Data, mm2Data, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NewBacktestEngine(testEngineConfig(), testEngineBalances()).Run(mm1Data, mm2Data, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Два прогона на одних данных и параметрах идентичны вплоть
	// до последовательности сделок и каждого баланса
	if !reflect.DeepEqual(first, second) {
		t.Errorf("replays diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestBacktestEngineLengthMismatch(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()
	e := NewBacktestEngine(testEngineConfig(), testEngineBalances())

	_, err := e.Run(mm1Data, mm2Data[:2], testEngineParams())
	if !errors.Is(err, ErrDataAlignment) {
		t.Fatalf("expected ErrDataAlignment, got %v", err)
	}
}

func TestBacktestEngineTimestampMismatch(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()
	mm2Data[1].Timestamp = 99

	e := NewBacktestEngine(testEngineConfig(), testEngineBalances())
	_, err := e.Run(mm1Data, mm2Data, testEngineParams())
	if !errors.Is(err, ErrDataAlignment) {
		t.Fatalf("expected ErrDataAlignment, got %v", err)
	}
}

func TestBacktestEngineSingleUse(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()
	e := NewBacktestEngine(testEngineConfig(), testEngineBalances())

	if _, err := e.Run(mm1Data, mm2Data, testEngineParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Run(mm1Data, mm2Data, testEngineParams()); !errors.Is(err, ErrReplayState) {
		t.Fatalf("expected ErrReplayState on second run, got %v", err)
	}
}

func TestBacktestEngineEmptyBookTick(t *testing.T) {
	// Пустой стакан на одной стороне: тик учитывается, оценки нет
	mm1Data := []models.OrderBookSnapshot{
		snapshot(1, 100, 5, 99, 5),
		{Timestamp: 2},
		snapshot(3, 100, 5, 99, 5),
	}
	mm2Data := []models.OrderBookSnapshot{
		snapshot(1, 112, 5, 110, 5),
		snapshot(2, 112, 5, 110, 5),
		snapshot(3, 112, 5, 110, 5),
	}

	e := NewBacktestEngine(testEngineConfig(), testEngineBalances())
	s, err := e.Run(mm1Data, mm2Data, testEngineParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Ticks != 3 {
		t.Errorf("expected 3 ticks, got %d", s.Ticks)
	}
	// Выгодные тики 1 и 3, тик 2 пропущен из-за пустого стакана
	if s.NewOpportunities != 2 {
		t.Errorf("expected 2 NEW opportunities, got %d", s.NewOpportunities)
	}
	if s.NewTrades != 2 {
		t.Errorf("expected 2 NEW trades, got %d", s.NewTrades)
	}
}

func TestBacktestEngineThresholdGate(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()

	// Порог выше реализуемого спреда: возможность есть, сделки нет
	params := testEngineParams()
	params.New.Threshold = 50

	e := NewBacktestEngine(testEngineConfig(), testEngineBalances())
	s, err := e.Run(mm1Data, mm2Data, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.NewOpportunities != 1 {
		t.Errorf("expected 1 NEW opportunity, got %d", s.NewOpportunities)
	}
	if s.NewTrades != 0 || len(s.Trades) != 0 {
		t.Errorf("expected no trades above threshold, got %d", s.NewTrades)
	}
	if abs(s.KRWEarned) > floatTolerance {
		t.Errorf("expected zero earnings, got %f", s.KRWEarned)
	}
}

func TestBacktestEngineBalanceGate(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()

	// KRW хватает только без множителя: factor 20 требует 2000
	params := testEngineParams()
	params.New.Factor = 20

	e := NewBacktestEngine(testEngineConfig(), testEngineBalances())
	s, err := e.Run(mm1Data, mm2Data, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.NewOpportunities != 1 {
		t.Errorf("expected 1 NEW opportunity, got %d", s.NewOpportunities)
	}
	if s.NewTrades != 0 {
		t.Errorf("expected no trades, got %d", s.NewTrades)
	}
	// Отказ по балансу после прохождения порога фиксируется как пропуск
	if s.SkippedTrades != 1 {
		t.Errorf("expected 1 skipped trade, got %d", s.SkippedTrades)
	}
}

func TestBacktestEngineMarketMinimumGate(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()

	// Собственный минимум рынка выше объёма сделки
	cfg := testEngineConfig()
	cfg.Market2.MinOrderQty = 2

	e := NewBacktestEngine(cfg, testEngineBalances())
	s, err := e.Run(mm1Data, mm2Data, testEngineParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.NewTrades != 0 {
		t.Errorf("expected no trades below market minimum, got %d", s.NewTrades)
	}
	if s.SkippedTrades != 1 {
		t.Errorf("expected 1 skipped trade, got %d", s.SkippedTrades)
	}
}

func TestBacktestEngineFeePadding(t *testing.T) {
	// Комиссия покупки копится в леджере и добивается к следующей
	// ноге покупки, как только набирается отдаваемая порция
	cfg := testEngineConfig()
	cfg.Market1.Fee = 0.001

	mm1Data := []models.OrderBookSnapshot{
		snapshot(1, 100, 5, 90, 5),
		snapshot(2, 100, 5, 90, 5),
	}
	mm2Data := []models.OrderBookSnapshot{
		snapshot(1, 120, 5, 110, 5),
		snapshot(2, 120, 5, 110, 5),
	}

	e := NewBacktestEngine(cfg, testEngineBalances())
	s, err := e.Run(mm1Data, mm2Data, testEngineParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(s.Trades))
	}

	// Первая покупка: 1/(1-0.001), комиссия ≈0.001001 → Consumable 0.0010
	firstQty := 1 / (1 - 0.001)
	if got := s.Trades[0].BuyLeg.Quantity; abs(got-firstQty) > floatTolerance {
		t.Errorf("expected first buy qty %f, got %f", firstQty, got)
	}
	secondQty := firstQty + 0.0010
	if got := s.Trades[1].BuyLeg.Quantity; abs(got-secondQty) > floatTolerance {
		t.Errorf("expected second buy qty padded to %f, got %f", secondQty, got)
	}
	// Ноги продажи не трогаются добивкой
	if got := s.Trades[1].SellLeg.Quantity; abs(got-1) > floatTolerance {
		t.Errorf("expected sell qty 1, got %f", got)
	}
}

func TestBacktestEngineInvalidParams(t *testing.T) {
	mm1Data, mm2Data := threeTickStreams()
	params := testEngineParams()
	params.MaxTradingCoin = -1

	e := NewBacktestEngine(testEngineConfig(), testEngineBalances())
	if _, err := e.Run(mm1Data, mm2Data, params); err == nil {
		t.Fatal("expected validation error for negative max_trading_coin")
	}
}
