package sim

import (
	"errors"
	"fmt"

	"arbsim/internal/models"
)

// ErrInsufficientBalance - на виртуальном рынке не хватает средств.
// Ордер не применяется, балансы не мутируются; движок фиксирует
// пропущенную сделку и продолжает реплей.
var ErrInsufficientBalance = errors.New("insufficient virtual balance")

// VirtualBalance - баланс одного актива на виртуальном рынке
//
// В бэктесте ордера исполняются мгновенно, поэтому TradeInUse
// остаётся нулевым; поле сохранено для зеркальности с живым леджером.
type VirtualBalance struct {
	Available  float64 `json:"available"`
	TradeInUse float64 `json:"trade_in_use"`
	Balance    float64 `json:"balance"` // Available + TradeInUse
}

// MarketSpec - статические характеристики рынка
type MarketSpec struct {
	ID          string  `json:"id"`
	Fee         float64 `json:"fee"`           // комиссия в долях
	MinOrderQty float64 `json:"min_order_qty"` // собственный минимум рынка на одну ногу
}

// VirtualMarket - симулированный рынок для бэктеста
//
// Замкнутый леджер балансов плюс текущий исторический снимок стакана.
// Никаких сетевых вызовов. Балансы принадлежат исключительно этому
// рынку и мутируются только его операциями применения ордеров;
// каждый прогон бэктеста владеет собственной парой рынков.
type VirtualMarket struct {
	spec     MarketSpec
	balances map[string]*VirtualBalance
	book     *models.OrderBookSnapshot
}

// NewVirtualMarket создаёт рынок со стартовыми балансами
func NewVirtualMarket(spec MarketSpec, initial models.MarketBalances) *VirtualMarket {
	m := &VirtualMarket{
		spec:     spec,
		balances: make(map[string]*VirtualBalance, len(initial)),
	}
	for asset, amount := range initial {
		m.balances[asset] = &VirtualBalance{
			Available: amount,
			Balance:   amount,
		}
	}
	return m
}

// ID возвращает идентификатор рынка
func (m *VirtualMarket) ID() string { return m.spec.ID }

// Fee возвращает комиссию рынка в долях
func (m *VirtualMarket) Fee() float64 { return m.spec.Fee }

// MinOrderQty возвращает минимальный объём ордера рынка
func (m *VirtualMarket) MinOrderQty() float64 { return m.spec.MinOrderQty }

// ApplyHistorySnapshot замещает текущий стакан следующим историческим
// снимком - так реплей шагает вперёд во времени
func (m *VirtualMarket) ApplyHistorySnapshot(s *models.OrderBookSnapshot) {
	m.book = s
}

// Book возвращает текущий снимок стакана (nil до первого применения)
func (m *VirtualMarket) Book() *models.OrderBookSnapshot {
	return m.book
}

// HasEnoughCoin проверяет, достаточно ли доступного актива
func (m *VirtualMarket) HasEnoughCoin(asset string, amount float64) bool {
	b, ok := m.balances[asset]
	return ok && b.Available >= amount
}

// OrderBuy применяет покупку: списывает KRW на цену×объём,
// зачисляет ровно указанный объём актива
func (m *VirtualMarket) OrderBuy(asset string, price int64, amount float64) error {
	cost := float64(price) * amount

	krw := m.balance(models.AssetKRW)
	if krw.Available < cost {
		return fmt.Errorf("%w: market %s needs %.2f KRW, has %.2f", ErrInsufficientBalance, m.spec.ID, cost, krw.Available)
	}

	krw.Available -= cost
	krw.Balance -= cost

	coin := m.balance(asset)
	coin.Available += amount
	coin.Balance += amount

	return nil
}

// OrderSell применяет продажу: списывает актив, зачисляет выручку
// в KRW за вычетом комиссии рынка
func (m *VirtualMarket) OrderSell(asset string, price int64, amount float64) error {
	coin := m.balance(asset)
	if coin.Available < amount {
		return fmt.Errorf("%w: market %s needs %.8f %s, has %.8f", ErrInsufficientBalance, m.spec.ID, amount, asset, coin.Available)
	}

	coin.Available -= amount
	coin.Balance -= amount

	proceeds := float64(price) * amount * (1 - m.spec.Fee)
	krw := m.balance(models.AssetKRW)
	krw.Available += proceeds
	krw.Balance += proceeds

	return nil
}

// Available возвращает доступный баланс актива
func (m *VirtualMarket) Available(asset string) float64 {
	if b, ok := m.balances[asset]; ok {
		return b.Available
	}
	return 0
}

// Balances возвращает копию доступных балансов рынка
func (m *VirtualMarket) Balances() models.MarketBalances {
	out := make(models.MarketBalances, len(m.balances))
	for asset, b := range m.balances {
		out[asset] = b.Available
	}
	return out
}

// balance возвращает (создавая при необходимости) баланс актива
func (m *VirtualMarket) balance(asset string) *VirtualBalance {
	b, ok := m.balances[asset]
	if !ok {
		b = &VirtualBalance{}
		m.balances[asset] = b
	}
	return b
}
