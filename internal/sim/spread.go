package sim

import (
	"math"

	"arbsim/internal/models"
)

// ============================================================
// Оценка спреда и объёмов двух ног ("actual tradable spread")
// ============================================================
//
// Чистая функция без побочных эффектов: одно направление, один тик.
// Для обратного направления вызывается симметрично - рынки покупки
// и продажи меняются местами.

// EvalInput - вход оценки одного направления
type EvalInput struct {
	Direction  string // NEW, REV
	BuyMarket  string // где покупаем (по лучшему ask)
	SellMarket string // где продаём (по лучшему bid)

	BuyPrice int64   // лучший ask на рынке покупки, KRW
	BuyAvail float64 // объём лучшего ask (ликвидность на покупку)
	BuyFee   float64 // комиссия рынка покупки в долях

	SellPrice int64   // лучший bid на рынке продажи, KRW
	SellAvail float64 // объём лучшего bid (ликвидность на продажу)
	SellFee   float64 // комиссия рынка продажи в долях

	MaxTradingUnit float64 // потолок объёма одной сделки
	MinTradingCoin float64 // пол минимального объёма ноги
}

// Evaluate вычисляет решение по одному направлению
//
// Спред на единицу монеты (с учётом комиссий):
//
//	spreadInUnit = -buyPrice/(1-buyFee) + sellPrice*(1-sellFee)
//
// Он заполняется всегда, даже при отрицательном значении - движок
// считает по нему возможности независимо от исполнимости.
//
// Объёмы ног выбираются по связывающему ограничению
// tradableQty = min(buyAvail, sellAvail, maxTradingUnit):
//
//   - Случай A (связывает maxTradingUnit): на рынке покупки должно
//     хватать ликвидности на объём с учётом комиссии, иначе отказ.
//   - Случай B (связывает sellAvail): при нехватке ликвидности на
//     покупку и точном равенстве buyAvail == sellAvail комиссия
//     поглощается уменьшением ноги продажи, а не увеличением покупки.
//   - Случай C (связывает buyAvail): нога продажи уменьшается на
//     комиссию покупки.
//
// Инвариант: монеты, покидающие рынок покупки за вычетом комиссии
// покупки, равны монетам, приходящим на рынок продажи. Ни один
// случай не создаёт и не уничтожает монеты.
//
// Минимальный объём отсекает сделку только когда ОБЕ ноги не выше
// minTradingCoin (сознательно сохранено поведение через ИЛИ).
func Evaluate(in EvalInput) models.SpreadDecision {
	d := models.SpreadDecision{
		Direction:    in.Direction,
		SpreadInUnit: -float64(in.BuyPrice)/(1-in.BuyFee) + float64(in.SellPrice)*(1-in.SellFee),
	}

	tradableQty := math.Min(in.BuyAvail, math.Min(in.SellAvail, in.MaxTradingUnit))

	if tradableQty < 0 {
		d.FailReason = models.FailReasonNegativeQty
		return d
	}

	// Вырожденное насыщение: все три ограничения совпали,
	// связывающее не определено - сделки нет.
	if in.BuyAvail == in.SellAvail && in.SellAvail == in.MaxTradingUnit {
		d.FailReason = models.FailReasonSaturated
		return d
	}

	var buyAmt, sellAmt float64

	switch {
	case tradableQty == in.MaxTradingUnit:
		// Случай A: связывает потолок объёма
		required := tradableQty / (1 - in.BuyFee)
		if in.BuyAvail < required {
			d.FailReason = models.FailReasonLiquidity
			return d
		}
		buyAmt = required
		sellAmt = tradableQty

	case tradableQty == in.SellAvail:
		// Случай B: связывает ликвидность продажи
		required := tradableQty / (1 - in.BuyFee)
		if in.BuyAvail < required {
			if in.BuyAvail == in.SellAvail {
				// Комиссия поглощается ногой продажи вместо
				// требования дополнительной ликвидности на покупку
				buyAmt = tradableQty
				sellAmt = tradableQty * (1 - in.BuyFee)
			} else {
				d.FailReason = models.FailReasonLiquidity
				return d
			}
		} else {
			buyAmt = required
			sellAmt = tradableQty
		}

	case tradableQty == in.BuyAvail:
		// Случай C: связывает ликвидность покупки
		buyAmt = tradableQty
		sellAmt = tradableQty * (1 - in.BuyFee)

	default:
		// min всегда возвращает один из аргументов, сюда не попадаем
		d.FailReason = models.FailReasonNoBindingCase
		return d
	}

	// Минимальный объём: отказ только когда обе ноги не проходят
	if buyAmt <= in.MinTradingCoin && sellAmt <= in.MinTradingCoin {
		d.FailReason = models.FailReasonBelowMinimum
		return d
	}

	d.AbleToTrade = true
	d.BuyLeg = models.TradeLeg{
		Side:     models.SideBuy,
		Market:   in.BuyMarket,
		Price:    in.BuyPrice,
		Quantity: buyAmt,
	}
	d.SellLeg = models.TradeLeg{
		Side:     models.SideSell,
		Market:   in.SellMarket,
		Price:    in.SellPrice,
		Quantity: sellAmt,
	}

	// Реализованный спред для фактического объёма сделки, KRW
	d.SpreadToTrade = -float64(in.BuyPrice)*buyAmt*(1-in.BuyFee) +
		float64(in.SellPrice)*sellAmt*(1-in.SellFee)

	return d
}
