package optimizer

import "math"

// ============================================================
// SearchParameter - один измеряемый параметр иерархического поиска
// ============================================================

// SearchParameter описывает интервал перебора одного параметра.
// Между глубинами параметр мутируется только шагом пересчёта центра
// (Recenter); внутри одной глубины он только читается.
type SearchParameter struct {
	Start     float64   `json:"start"`
	End       float64   `json:"end"`
	StepLimit float64   `json:"step_limit"` // нижняя граница шага сетки
	Step      float64   `json:"step"`       // фактический шаг текущей глубины
	Seq       []float64 `json:"seq"`        // сгенерированная сетка значений
}

// Collapsed - параметр схлопнут в одно значение и не сужается дальше
func (p SearchParameter) Collapsed() bool {
	return p.Start >= p.End
}

// Collapse фиксирует параметр в одном значении
func Collapse(value float64) SearchParameter {
	return SearchParameter{Start: value, End: value, Seq: []float64{value}}
}

// Generate строит сетку значений текущего интервала:
// шаг не мельче StepLimit, правая граница включается всегда
func (p SearchParameter) Generate(division int) SearchParameter {
	if p.Collapsed() || division <= 0 {
		p.Step = 0
		p.Seq = []float64{p.Start}
		return p
	}

	step := (p.End - p.Start) / float64(division)
	if step < p.StepLimit {
		step = p.StepLimit
	}
	p.Step = step
	p.Seq = makeSequence(p.Start, p.End, step)
	return p
}

// Recenter сужает интервал вокруг лучшего значения прошлой глубины:
// новая ширина 2×шаг, левая граница не уходит ниже нуля.
// Схлопнутый параметр не трогается.
func (p SearchParameter) Recenter(best float64, division int) SearchParameter {
	if p.Collapsed() {
		return p
	}

	next := SearchParameter{
		Start:     math.Max(0, best-p.Step),
		End:       best + p.Step,
		StepLimit: p.StepLimit,
	}
	if division > 0 {
		next.Step = (next.End - next.Start) / float64(division)
	}
	return next
}

// makeSequence генерирует возрастающую последовательность от start
// до end включительно; правая граница добавляется даже когда до неё
// остаётся неполный шаг
func makeSequence(start, end, step float64) []float64 {
	if step <= 0 || start >= end {
		return []float64{start}
	}

	// допуск на накопленную ошибку сложения, чтобы точка,
	// легшая на границу, не продублировала её
	eps := step * 1e-9
	seq := make([]float64, 0, int((end-start)/step)+2)
	for v := start; v < end-eps; v += step {
		seq = append(seq, v)
	}
	return append(seq, end)
}
