package models

// Причины отказа от сделки
//
// Это не ошибки: отрицательное решение - нормальный исход оценки,
// движок читает причину и пропускает направление на этом тике.
const (
	FailReasonNone          = ""
	FailReasonNegativeQty   = "NEGATIVE_QTY"           // отрицательная связывающая величина
	FailReasonSaturated     = "DEGENERATE_SATURATION"  // все три ограничения совпали
	FailReasonLiquidity     = "INSUFFICIENT_LIQUIDITY" // не хватает ликвидности на покупку с учётом комиссии
	FailReasonBelowMinimum  = "BELOW_MINIMUM_TRADABLE" // обе ноги не проходят минимальный объём
	FailReasonNoBindingCase = "NO_BINDING_CASE"        // ни одно ограничение не сработало (защитная ветка)
)

// SpreadDecision - решение по одному направлению на одном тике
//
// Создаётся заново на каждый тик и никогда не мутируется.
// SpreadInUnit заполняется всегда, даже когда сделка невозможна -
// это информационная величина для подсчёта возможностей.
type SpreadDecision struct {
	Direction     string   `json:"direction"` // NEW, REV
	AbleToTrade   bool     `json:"able_to_trade"`
	SpreadInUnit  float64  `json:"spread_in_unit"`  // спред на единицу монеты с учётом комиссий, KRW
	SpreadToTrade float64  `json:"spread_to_trade"` // спред на фактический объём сделки, KRW
	BuyLeg        TradeLeg `json:"buy_leg"`
	SellLeg       TradeLeg `json:"sell_leg"`
	FailReason    string   `json:"fail_reason,omitempty"`
}
