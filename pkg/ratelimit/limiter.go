package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - Token Bucket для контроля частоты запуска поисков
//
// Один поиск параметров занимает пул воркеров на секунды или минуты,
// поэтому POST на запуск ограничиваются: ведро наполняется токенами
// с постоянной скоростью (rate токенов/сек), ёмкость ведра = burst,
// каждый запуск потребляет 1 токен. Если токенов нет, запуск
// отклоняется или ждёт.
//
// Использование:
//
//	limiter := NewRateLimiter(0.1, 3) // 6 запусков/мин, burst 3
//	if limiter.Allow() { ... }        // неблокирующая проверка
//	err := limiter.Wait(ctx)          // блокирующее ожидание
type RateLimiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость (burst capacity)
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// NewRateLimiter создаёт новый rate limiter
//
// Параметры:
//   - rate: пополнение в токенах в секунду
//   - burst: максимальный всплеск (по умолчанию 2x rate).
//     Ведро меньше rate допустимо: узкий всплеск с быстрым пополнением.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = rate * 2
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst, // начинаем с полным ведром
		lastRefill: time.Now(),
	}
}

// NewPerMinute создаёт limiter с лимитом в запусках в минуту.
// Удобно для конфигурации: SEARCH_RATE_PER_MIN / SEARCH_BURST.
func NewPerMinute(perMin int, burst int) *RateLimiter {
	if perMin <= 0 {
		perMin = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:       float64(perMin) / 60,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastRefill: time.Now(),
	}
}

// refill пополняет токены на основе прошедшего времени
// ВАЖНО: вызывается под lock'ом
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	// Добавляем токены пропорционально прошедшему времени
	rl.tokens += elapsed * rl.rate

	// Не превышаем burst capacity
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}

	rl.lastRefill = now
}

// Wait блокирует до получения токена или отмены контекста
//
// Возвращает:
//   - nil: токен получен, можно запускать
//   - ctx.Err(): контекст отменён (timeout или cancel)
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		// Вычисляем время ожидания до следующего токена
		waitTime := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		// Ждём с возможностью отмены
		select {
		case <-time.After(waitTime):
			// Повторяем попытку получить токен
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Allow проверяет доступность токена без блокировки
//
// Возвращает:
//   - true: токен получен, можно запускать
//   - false: лимит исчерпан, запуск отклоняется
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	return false
}

// Tokens возвращает текущее количество доступных токенов
// Полезно для мониторинга и отладки
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// Rate возвращает скорость пополнения токенов (токенов/сек)
func (rl *RateLimiter) Rate() float64 {
	return rl.rate
}

// Burst возвращает максимальную ёмкость (burst capacity)
func (rl *RateLimiter) Burst() float64 {
	return rl.burst
}
