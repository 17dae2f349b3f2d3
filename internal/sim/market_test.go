package sim

import (
	"errors"
	"testing"

	"arbsim/internal/models"
)

// ============================================================
// VirtualMarket Tests
// ============================================================

func newTestMarket() *VirtualMarket {
	return NewVirtualMarket(
		MarketSpec{ID: "mm1", Fee: 0.001, MinOrderQty: 0.0001},
		models.MarketBalances{models.AssetKRW: 1000000, "BTC": 1.0},
	)
}

func TestVirtualMarketOrderBuy(t *testing.T) {
	m := newTestMarket()

	if err := m.OrderBuy("BTC", 100000, 2.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// KRW списан на цену×объём, монета зачислена ровно на объём
	if krw := m.Available(models.AssetKRW); abs(krw-800000) > floatTolerance {
		t.Errorf("expected KRW 800000, got %f", krw)
	}
	if btc := m.Available("BTC"); abs(btc-3.0) > floatTolerance {
		t.Errorf("expected BTC 3.0, got %f", btc)
	}
}

func TestVirtualMarketOrderBuyInsufficient(t *testing.T) {
	m := newTestMarket()

	err := m.OrderBuy("BTC", 100000, 11.0) // нужно 1.1M, доступно 1M
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Отказ не мутирует балансы
	if krw := m.Available(models.AssetKRW); krw != 1000000 {
		t.Errorf("balance mutated on refused order: %f", krw)
	}
	if btc := m.Available("BTC"); btc != 1.0 {
		t.Errorf("coin mutated on refused order: %f", btc)
	}
}

func TestVirtualMarketOrderSell(t *testing.T) {
	m := newTestMarket()

	if err := m.OrderSell("BTC", 100000, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Выручка за вычетом комиссии рынка: 100000*0.5*(1-0.001)
	expectedKRW := 1000000 + 100000*0.5*0.999
	if krw := m.Available(models.AssetKRW); abs(krw-expectedKRW) > floatTolerance {
		t.Errorf("expected KRW %f, got %f", expectedKRW, krw)
	}
	if btc := m.Available("BTC"); abs(btc-0.5) > floatTolerance {
		t.Errorf("expected BTC 0.5, got %f", btc)
	}
}

func TestVirtualMarketOrderSellInsufficient(t *testing.T) {
	m := newTestMarket()

	err := m.OrderSell("BTC", 100000, 1.5)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if btc := m.Available("BTC"); btc != 1.0 {
		t.Errorf("coin mutated on refused order: %f", btc)
	}
	if krw := m.Available(models.AssetKRW); krw != 1000000 {
		t.Errorf("KRW mutated on refused order: %f", krw)
	}
}

func TestVirtualMarketHasEnoughCoin(t *testing.T) {
	m := newTestMarket()

	if !m.HasEnoughCoin("BTC", 1.0) {
		t.Error("expected enough BTC for exactly available amount")
	}
	if m.HasEnoughCoin("BTC", 1.0000001) {
		t.Error("expected not enough BTC")
	}
	if m.HasEnoughCoin("ETH", 0.1) {
		t.Error("expected no ETH balance")
	}
}

func TestVirtualMarketApplyHistorySnapshot(t *testing.T) {
	m := newTestMarket()

	if m.Book() != nil {
		t.Error("expected nil book before first snapshot")
	}

	s := &models.OrderBookSnapshot{
		Asks:      []models.PriceLevel{{Price: 100, Amount: 1}},
		Bids:      []models.PriceLevel{{Price: 99, Amount: 1}},
		Timestamp: 7,
	}
	m.ApplyHistorySnapshot(s)

	if m.Book() != s {
		t.Error("expected book replaced by applied snapshot")
	}
}

func TestVirtualMarketBalancesCopy(t *testing.T) {
	m := newTestMarket()

	balances := m.Balances()
	balances[models.AssetKRW] = 0

	// Копия не должна влиять на рынок
	if krw := m.Available(models.AssetKRW); krw != 1000000 {
		t.Errorf("Balances() returned a live reference, KRW=%f", krw)
	}
}

func TestVirtualMarketBalanceTracksAvailable(t *testing.T) {
	m := newTestMarket()

	if err := m.OrderBuy("BTC", 100000, 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.OrderSell("BTC", 110000, 2.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// TradeInUse в бэктесте всегда 0: Balance == Available
	for _, asset := range []string{models.AssetKRW, "BTC"} {
		b := m.balances[asset]
		if abs(b.Balance-b.Available) > floatTolerance {
			t.Errorf("asset %s: Balance %f != Available %f", asset, b.Balance, b.Available)
		}
		if b.TradeInUse != 0 {
			t.Errorf("asset %s: TradeInUse must stay 0 in backtest, got %f", asset, b.TradeInUse)
		}
	}
}
