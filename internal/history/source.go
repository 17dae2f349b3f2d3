package history

import (
	"errors"
	"fmt"
	"sort"

	"arbsim/internal/models"
)

// ErrDataAlignment - потоки двух рынков не синхронизированы.
// Починка данных (бэкфилл, ресемплинг) - обязанность поставщика
// истории; сюда обязаны приходить уже выровненные потоки.
var ErrDataAlignment = errors.New("history streams are not aligned")

// PairedStream - пара выровненных по времени потоков снимков
// одного актива на двух рынках
//
// Market1[i] и Market2[i] сняты в один и тот же момент. После Align
// пара считается неизменяемой: бэктест и воркеры оптимизатора читают
// одни и те же слайсы без копирования.
type PairedStream struct {
	Market1 []models.OrderBookSnapshot
	Market2 []models.OrderBookSnapshot
}

// Align проверяет попарную выравненность потоков и собирает пару.
// Несовпадение длин или меток времени фатально.
func Align(mm1, mm2 []models.OrderBookSnapshot) (*PairedStream, error) {
	if len(mm1) != len(mm2) {
		return nil, fmt.Errorf("%w: %d snapshots vs %d", ErrDataAlignment, len(mm1), len(mm2))
	}
	for i := range mm1 {
		if mm1[i].Timestamp != mm2[i].Timestamp {
			return nil, fmt.Errorf("%w: pair %d has timestamps %d vs %d", ErrDataAlignment, i, mm1[i].Timestamp, mm2[i].Timestamp)
		}
	}
	return &PairedStream{Market1: mm1, Market2: mm2}, nil
}

// Len возвращает число пар снимков
func (p *PairedStream) Len() int { return len(p.Market1) }

// Span возвращает окно от первого до последнего снимка
func (p *PairedStream) Span() Window {
	if p.Len() == 0 {
		return Window{}
	}
	return Window{
		From: p.Market1[0].Timestamp,
		To:   p.Market1[p.Len()-1].Timestamp,
	}
}

// Slice возвращает под-поток внутри окна [From, To] включительно.
// Слайсы разделяют память с исходной парой - копирование не нужно,
// поскольку снимки неизменяемы.
func (p *PairedStream) Slice(w Window) *PairedStream {
	lo := sort.Search(p.Len(), func(i int) bool {
		return p.Market1[i].Timestamp >= w.From
	})
	hi := sort.Search(p.Len(), func(i int) bool {
		return p.Market1[i].Timestamp > w.To
	})
	if lo > hi {
		lo = hi
	}
	return &PairedStream{
		Market1: p.Market1[lo:hi],
		Market2: p.Market2[lo:hi],
	}
}
