package websocket

import (
	"time"

	"arbsim/internal/models"
	"arbsim/internal/optimizer"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeSearchProgress - ход активного поиска параметров
	// Отправляется после каждой оценённой комбинации
	MessageTypeSearchProgress MessageType = "searchProgress"

	// MessageTypeSearchFinished - поиск завершён, лучшая комбинация сохранена
	MessageTypeSearchFinished MessageType = "searchFinished"

	// MessageTypeBacktestFinished - одиночный прогон бэктеста завершён
	MessageTypeBacktestFinished MessageType = "backtestFinished"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// SearchProgressMessage - сообщение о ходе поиска параметров
//
// Позволяет frontend рисовать прогресс длинного перебора без polling:
// глубина, число оценённых комбинаций и лучшая метрика на данный момент.
type SearchProgressMessage struct {
	BaseMessage
	Kind string                  `json:"kind"` // setting, balance, window
	Data optimizer.ProgressEvent `json:"data"`
}

// SearchFinishedMessage - сообщение о завершении поиска
type SearchFinishedMessage struct {
	BaseMessage
	Kind string                     `json:"kind"`
	Data *models.OptimizationRecord `json:"data"`
}

// BacktestFinishedMessage - сообщение о завершении прогона бэктеста
type BacktestFinishedMessage struct {
	BaseMessage
	Data *models.BacktestRun `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewSearchProgressMessage создает сообщение хода поиска
func NewSearchProgressMessage(kind string, event optimizer.ProgressEvent) *SearchProgressMessage {
	return &SearchProgressMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeSearchProgress,
			Timestamp: time.Now(),
		},
		Kind: kind,
		Data: event,
	}
}

// NewSearchFinishedMessage создает сообщение завершения поиска
func NewSearchFinishedMessage(kind string, rec *models.OptimizationRecord) *SearchFinishedMessage {
	return &SearchFinishedMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeSearchFinished,
			Timestamp: time.Now(),
		},
		Kind: kind,
		Data: rec,
	}
}

// NewBacktestFinishedMessage создает сообщение завершения прогона
func NewBacktestFinishedMessage(run *models.BacktestRun) *BacktestFinishedMessage {
	return &BacktestFinishedMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeBacktestFinished,
			Timestamp: time.Now(),
		},
		Data: run,
	}
}
