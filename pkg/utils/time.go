package utils

import (
	"fmt"
	"time"
)

// time.go - утилиты для работы со временем
//
// Исторические снимки стаканов несут метки времени в миллисекундах
// Unix; здесь собраны конвертации и форматирование для логов и API.

// UnixMillis возвращает текущее время в миллисекундах Unix
func UnixMillis() int64 {
	return time.Now().UnixMilli()
}

// FromUnixMillis конвертирует миллисекунды Unix в time.Time (UTC)
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// SpanDuration возвращает длительность промежутка между двумя
// метками времени в миллисекундах. Перевёрнутые границы дают 0.
func SpanDuration(fromMs, toMs int64) time.Duration {
	if toMs < fromMs {
		return 0
	}
	return time.Duration(toMs-fromMs) * time.Millisecond
}

// FormatDuration форматирует продолжительность в человекочитаемый формат
//
// Примеры:
//   - "45s"
//   - "5m30s"
//   - "2h15m"
//   - "3d5h"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd%dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	if minutes > 0 {
		if seconds > 0 {
			return fmt.Sprintf("%dm%ds", minutes, seconds)
		}
		return fmt.Sprintf("%dm", minutes)
	}

	return fmt.Sprintf("%ds", seconds)
}
