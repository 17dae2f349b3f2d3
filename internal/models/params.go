package models

import "fmt"

// DirectionParams - параметры одного направления арбитража
type DirectionParams struct {
	Threshold float64 `json:"threshold"` // минимальный spreadToTrade для исполнения, KRW
	Factor    float64 `json:"factor"`    // множитель требования к балансу
}

// TradeParams - полный набор торговых параметров одного прогона
//
// Это именно то, что перебирает оптимизатор: каждая комбинация
// Phase 2 - один экземпляр TradeParams.
type TradeParams struct {
	MaxTradingCoin float64         `json:"max_trading_coin"` // потолок объёма одной сделки
	MinTradingCoin float64         `json:"min_trading_coin"` // пол, ниже которого нога отбрасывается
	New            DirectionParams `json:"new"`
	Rev            DirectionParams `json:"rev"`
	Division       int             `json:"division"` // число шагов сетки на интервал
	Depth          int             `json:"depth"`    // число итераций пересчёта центра
}

// ByDirection возвращает параметры запрошенного направления
func (p TradeParams) ByDirection(direction string) DirectionParams {
	if direction == DirectionRev {
		return p.Rev
	}
	return p.New
}

// Validate проверяет числовые диапазоны параметров
func (p TradeParams) Validate() error {
	if p.MaxTradingCoin < 0 {
		return fmt.Errorf("max_trading_coin cannot be negative, got %v", p.MaxTradingCoin)
	}
	if p.MinTradingCoin < 0 {
		return fmt.Errorf("min_trading_coin cannot be negative, got %v", p.MinTradingCoin)
	}
	if p.MinTradingCoin > p.MaxTradingCoin && p.MaxTradingCoin > 0 {
		return fmt.Errorf("min_trading_coin %v exceeds max_trading_coin %v", p.MinTradingCoin, p.MaxTradingCoin)
	}
	if p.New.Factor < 0 || p.Rev.Factor < 0 {
		return fmt.Errorf("direction factor cannot be negative")
	}
	if p.Division < 0 {
		return fmt.Errorf("division cannot be negative, got %d", p.Division)
	}
	if p.Depth < 0 {
		return fmt.Errorf("depth cannot be negative, got %d", p.Depth)
	}
	return nil
}
