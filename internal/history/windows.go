package history

// Window - непрерывный промежуток истории [From, To] включительно,
// ранее помеченный как содержащий устойчивый спред
type Window struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Contains проверяет попадание метки времени в окно
func (w Window) Contains(ts int64) bool {
	return ts >= w.From && ts <= w.To
}

// IsZero возвращает true для пустого окна
func (w Window) IsZero() bool {
	return w.From == 0 && w.To == 0
}

// DetectWindows помечает промежутки с положительным спредом на единицу
// хотя бы в одном направлении. Разрывы не длиннее maxGap тиков
// склеиваются в одно окно - короткое затухание спреда не должно
// разрезать промежуток пополам.
func DetectWindows(p *PairedStream, fee1, fee2 float64, maxGap int) []Window {
	var windows []Window
	var open bool
	var start, last int64
	gap := 0

	for i := 0; i < p.Len(); i++ {
		s1, s2 := &p.Market1[i], &p.Market2[i]
		if s1.IsEmpty() || s2.IsEmpty() {
			continue
		}

		// NEW: покупка на рынке 1, продажа на рынке 2; REV наоборот
		newSpread := -float64(s1.BestAsk().Price)/(1-fee1) + float64(s2.BestBid().Price)*(1-fee2)
		revSpread := -float64(s2.BestAsk().Price)/(1-fee2) + float64(s1.BestBid().Price)*(1-fee1)

		if newSpread > 0 || revSpread > 0 {
			if !open {
				open = true
				start = s1.Timestamp
			}
			last = s1.Timestamp
			gap = 0
			continue
		}

		if open {
			gap++
			if gap > maxGap {
				windows = append(windows, Window{From: start, To: last})
				open = false
				gap = 0
			}
		}
	}

	if open {
		windows = append(windows, Window{From: start, To: last})
	}
	return windows
}
