package utils

import (
	"fmt"
	"strings"
)

// validator.go - валидация входных данных API
//
// Возвращает error с описанием проблемы или nil.

// ValidateAsset проверяет тикер актива (BTC, ETH, XRP)
//
// Допустимы 2-10 символов A-Z и цифры. Пустой тикер - отдельная
// ошибка, чтобы сообщение было понятнее.
func ValidateAsset(asset string) error {
	if asset == "" {
		return fmt.Errorf("asset is required")
	}
	if len(asset) < 2 || len(asset) > 10 {
		return fmt.Errorf("asset must be 2-10 characters, got %q", asset)
	}
	for _, r := range asset {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("asset must contain only A-Z and digits, got %q", asset)
		}
	}
	return nil
}

// ValidateFee проверяет торговую комиссию рынка
//
// Комиссия - доля от объёма сделки: 0 <= fee < 1. Единица и выше
// обнуляет выручку продажи и ломает расчёт спреда делением на 1-fee.
func ValidateFee(fee float64) error {
	if fee < 0 || fee >= 1 {
		return fmt.Errorf("market fee must be in [0, 1), got %v", fee)
	}
	return nil
}

// ValidateMarketID проверяет идентификатор рынка
//
// Допустимы строчные латинские буквы, цифры, дефис и подчёркивание.
func ValidateMarketID(id string) error {
	if id == "" {
		return fmt.Errorf("market id is required")
	}
	if strings.ToLower(id) != id {
		return fmt.Errorf("market id must be lowercase, got %q", id)
	}
	for _, r := range id {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return fmt.Errorf("market id contains invalid character in %q", id)
		}
	}
	return nil
}
