package sim

import (
	"sync"

	"github.com/shopspring/decimal"
)

// MinOrderIncrement - минимальный шаг объёма ордера биржи (0.0001 монеты).
// Накопленная комиссия вкладывается в сделку только когда её значение,
// усечённое до 4 знаков, достигает этого шага.
const MinOrderIncrement = 0.0001

var minIncrementDec = decimal.NewFromFloat(MinOrderIncrement)

// feeKey - составной ключ (рынок, актив) без конкатенации строк
type feeKey struct {
	Market string
	Asset  string
}

// FeeLedger - учёт накопленной комиссии по парам (рынок, актив)
//
// Биржа удерживает комиссию покупки в монетах, поэтому купленный объём
// фактически меньше оплаченного. Леджер копит это расхождение и отдаёт
// его движку, когда накопилось достаточно для добавки к следующей сделке.
//
// Суммы хранятся в decimal: усечение до 4 знаков и сравнение с порогом
// не должны дрейфовать на двоичных дробях.
//
// Единственная сущность ядра, разделяемая между направлениями и тиками:
// все мутации сериализуются одним мьютексом, потому что чтение перед
// сделкой одного направления может пересекаться с записью другого.
// Явный сервисный объект - создаётся один раз и передаётся по ссылке,
// никакого скрытого глобального состояния.
type FeeLedger struct {
	mu     sync.Mutex
	totals map[feeKey]decimal.Decimal
}

// NewFeeLedger создаёт пустой леджер
func NewFeeLedger() *FeeLedger {
	return &FeeLedger{
		totals: make(map[feeKey]decimal.Decimal),
	}
}

// Register инициализирует нулевой счёт для пары (рынок, актив)
func (l *FeeLedger) Register(market, asset string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := feeKey{Market: market, Asset: asset}
	if _, ok := l.totals[key]; !ok {
		l.totals[key] = decimal.Zero
	}
}

// AddFeeExpenditure увеличивает накопленную комиссию
func (l *FeeLedger) AddFeeExpenditure(market, asset string, fee float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := feeKey{Market: market, Asset: asset}
	l.totals[key] = l.totals[key].Add(decimal.NewFromFloat(fee))
}

// SubFeeConsideration уменьшает накопленную комиссию после того,
// как сделка вложила её в свой объём
func (l *FeeLedger) SubFeeConsideration(market, asset string, fee float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := feeKey{Market: market, Asset: asset}
	l.totals[key] = l.totals[key].Sub(decimal.NewFromFloat(fee))
}

// GetFee возвращает текущую накопленную комиссию
func (l *FeeLedger) GetFee(market, asset string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, _ := l.totals[feeKey{Market: market, Asset: asset}].Float64()
	return f
}

// Consumable возвращает часть накопленной комиссии, готовую к вложению
// в объём следующей сделки: значение усекается вниз до 4 знаков и
// возвращается только если оно не меньше минимального шага ордера.
// Иначе возвращается 0.
func (l *FeeLedger) Consumable(market, asset string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	truncated := l.totals[feeKey{Market: market, Asset: asset}].Truncate(4)
	if truncated.Cmp(minIncrementDec) < 0 {
		return 0
	}
	f, _ := truncated.Float64()
	return f
}
