package models

import "errors"

// Ошибки валидации стакана
var (
	ErrEmptyBook      = errors.New("order book side is empty")
	ErrUnsortedLevels = errors.New("order book levels are not sorted")
)

// PriceLevel - один уровень стакана ордеров
//
// Цена хранится в минорных единицах котировочной валюты (KRW) как int64.
// Объём - в монетах актива. Значение неизменяемое: уровень создаётся
// один раз при загрузке исторических данных и никогда не мутируется.
type PriceLevel struct {
	Price  int64   `json:"price"`  // цена в KRW (минорные единицы)
	Amount float64 `json:"amount"` // объём в монетах актива
}

// OrderBookSnapshot - снимок стакана одного рынка в один момент времени
//
// Инварианты:
// - Asks отсортированы по возрастанию цены (лучший ask первый)
// - Bids отсортированы по убыванию цены (лучший bid первый)
// - Обе стороны непустые в валидном снимке
// - Timestamp монотонно растёт внутри одного исторического потока
//
// Снимки считаются неизменяемыми после создания: бэктест и воркеры
// оптимизатора читают один и тот же слайс без копирования.
type OrderBookSnapshot struct {
	Asks      []PriceLevel `json:"asks"`
	Bids      []PriceLevel `json:"bids"`
	Timestamp int64        `json:"timestamp"`
}

// Validate проверяет инварианты снимка
//
// Пустая сторона или нарушенная сортировка делают снимок непригодным
// для оценки спреда - вызывающий обязан отбросить такой снимок.
func (s *OrderBookSnapshot) Validate() error {
	if len(s.Asks) == 0 || len(s.Bids) == 0 {
		return ErrEmptyBook
	}
	for i := 1; i < len(s.Asks); i++ {
		if s.Asks[i-1].Price > s.Asks[i].Price {
			return ErrUnsortedLevels
		}
	}
	for i := 1; i < len(s.Bids); i++ {
		if s.Bids[i-1].Price < s.Bids[i].Price {
			return ErrUnsortedLevels
		}
	}
	return nil
}

// IsEmpty возвращает true если хотя бы одна сторона стакана пуста
func (s *OrderBookSnapshot) IsEmpty() bool {
	return len(s.Asks) == 0 || len(s.Bids) == 0
}

// BestAsk возвращает лучший (минимальный) ask
// Вызывать только для валидного снимка (после Validate)
func (s *OrderBookSnapshot) BestAsk() PriceLevel {
	return s.Asks[0]
}

// BestBid возвращает лучший (максимальный) bid
// Вызывать только для валидного снимка (после Validate)
func (s *OrderBookSnapshot) BestBid() PriceLevel {
	return s.Bids[0]
}
