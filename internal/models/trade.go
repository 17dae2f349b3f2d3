package models

// Направления арбитража
//
// NEW: покупка на первом рынке, продажа на втором.
// REV: обратное направление - покупка на втором, продажа на первом.
const (
	DirectionNew = "NEW"
	DirectionRev = "REV"
)

// Стороны сделки
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// TradeLeg - одна нога арбитражной сделки
type TradeLeg struct {
	Side     string  `json:"side"`     // buy, sell
	Market   string  `json:"market"`   // идентификатор рынка
	Price    int64   `json:"price"`    // цена за единицу в KRW
	Quantity float64 `json:"quantity"` // объём в монетах
}

// Notional возвращает стоимость ноги в KRW
func (l TradeLeg) Notional() float64 {
	return float64(l.Price) * l.Quantity
}

// Trade - исполненная (в бэктесте - виртуально) арбитражная сделка
//
// Создаётся движком ровно один раз в момент исполнения обеих ног
// и дальше не мутируется.
type Trade struct {
	Direction     string   `json:"direction"` // NEW, REV
	Timestamp     int64    `json:"timestamp"` // timestamp снимка, на котором исполнено
	BuyLeg        TradeLeg `json:"buy_leg"`
	SellLeg       TradeLeg `json:"sell_leg"`
	SpreadToTrade float64  `json:"spread_to_trade"` // реализованный спред в KRW
}
