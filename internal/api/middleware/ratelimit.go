package middleware

import (
	"net/http"

	"arbsim/pkg/ratelimit"
)

// SearchLimit - middleware, ограничивающий частоту запуска поисков
//
// Полный перебор на глубину занимает ядра надолго; лавина POST
// запросов уронит задержки всем. Token bucket пропускает редкие
// всплески и отбивает остальное кодом 429.
//
// Использование:
//
//	search := api.PathPrefix("/search").Subrouter()
//	search.Use(middleware.SearchLimit(ratelimit.NewRateLimiter(1, 3)))
func SearchLimit(limiter *ratelimit.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Чтение результатов не ограничиваем
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Too many search requests, slow down"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
