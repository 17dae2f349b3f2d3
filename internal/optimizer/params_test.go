package optimizer

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func abs(x float64) float64 {
	return math.Abs(x)
}

func sequencesEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if abs(a[i]-b[i]) > floatTolerance {
			return false
		}
	}
	return true
}

func TestMakeSequence(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		end      float64
		step     float64
		expected []float64
	}{
		{"even steps", 0, 10, 2, []float64{0, 2, 4, 6, 8, 10}},
		// правая граница включается даже при неполном шаге
		{"partial last step", 0, 10, 3, []float64{0, 3, 6, 9, 10}},
		{"single step", 0, 5, 5, []float64{0, 5}},
		{"step larger than interval", 0, 3, 10, []float64{0, 3}},
		{"collapsed interval", 5, 5, 1, []float64{5}},
		{"inverted interval", 7, 3, 1, []float64{7}},
		{"zero step", 0, 10, 0, []float64{0}},
		{"fractional", 0, 1, 0.25, []float64{0, 0.25, 0.5, 0.75, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := makeSequence(tt.start, tt.end, tt.step)
			if !sequencesEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSearchParameterGenerate(t *testing.T) {
	// Обычная сетка: шаг (end-start)/division
	p := SearchParameter{Start: 0, End: 10}.Generate(5)
	if abs(p.Step-2) > floatTolerance {
		t.Errorf("expected step 2, got %f", p.Step)
	}
	if !sequencesEqual(p.Seq, []float64{0, 2, 4, 6, 8, 10}) {
		t.Errorf("unexpected sequence: %v", p.Seq)
	}

	// StepLimit не даёт шагу измельчиться
	p = SearchParameter{Start: 0, End: 1, StepLimit: 0.5}.Generate(100)
	if abs(p.Step-0.5) > floatTolerance {
		t.Errorf("expected step clamped to 0.5, got %f", p.Step)
	}
	if !sequencesEqual(p.Seq, []float64{0, 0.5, 1}) {
		t.Errorf("unexpected sequence: %v", p.Seq)
	}

	// Схлопнутый параметр даёт одно значение
	p = Collapse(3).Generate(5)
	if !sequencesEqual(p.Seq, []float64{3}) {
		t.Errorf("expected single value, got %v", p.Seq)
	}
}

func TestSearchParameterRecenter(t *testing.T) {
	p := SearchParameter{Start: 0, End: 10}.Generate(5) // step 2

	next := p.Recenter(4, 5)

	// Новый интервал вокруг лучшего значения, ширина 2×шаг
	if abs(next.Start-2) > floatTolerance || abs(next.End-6) > floatTolerance {
		t.Errorf("expected interval [2, 6], got [%f, %f]", next.Start, next.End)
	}
	if width := next.End - next.Start; abs(width-2*p.Step) > floatTolerance {
		t.Errorf("expected width %f, got %f", 2*p.Step, width)
	}
	// Новый интервал строго внутри старого
	if next.Start < p.Start || next.End > p.End {
		t.Errorf("recentred interval [%f, %f] escapes [%f, %f]", next.Start, next.End, p.Start, p.End)
	}
	if abs(next.Step-(next.End-next.Start)/5) > floatTolerance {
		t.Errorf("expected step %f, got %f", (next.End-next.Start)/5, next.Step)
	}
}

func TestSearchParameterRecenterZeroClamp(t *testing.T) {
	p := SearchParameter{Start: 0, End: 10}.Generate(5) // step 2

	next := p.Recenter(1, 5)

	// Левая граница прижимается к нулю
	if next.Start != 0 {
		t.Errorf("expected start clamped to 0, got %f", next.Start)
	}
	if abs(next.End-3) > floatTolerance {
		t.Errorf("expected end 3, got %f", next.End)
	}
}

func TestSearchParameterRecenterCollapsedNoop(t *testing.T) {
	p := Collapse(7)

	next := p.Recenter(7, 5)
	if !next.Collapsed() || next.Start != 7 {
		t.Errorf("expected collapsed parameter untouched, got %+v", next)
	}
}

func TestCombinations(t *testing.T) {
	dims := []Dimension{
		{Name: "a", Param: SearchParameter{Start: 0, End: 10}.Generate(5)}, // 6 значений
		{Name: "b", Param: SearchParameter{Start: 0, End: 2}.Generate(2)},  // 3 значения
		{Name: "c", Param: Collapse(1).Generate(5)},                        // 1 значение
	}

	if got := Combinations(dims); got != 18 {
		t.Errorf("expected 18 combinations, got %d", got)
	}
}

func TestDecodeIndex(t *testing.T) {
	dims := []Dimension{
		{Name: "a", Param: SearchParameter{Start: 0, End: 1}.Generate(1)}, // [0, 1]
		{Name: "b", Param: SearchParameter{Start: 0, End: 2}.Generate(2)}, // [0, 1, 2]
	}

	// Последнее измерение крутится быстрее всех
	expected := [][]float64{
		{0, 0}, {0, 1}, {0, 2},
		{1, 0}, {1, 1}, {1, 2},
	}
	for idx, want := range expected {
		got := decodeIndex(dims, idx)
		if !sequencesEqual(got, want) {
			t.Errorf("index %d: expected %v, got %v", idx, want, got)
		}
	}
}
