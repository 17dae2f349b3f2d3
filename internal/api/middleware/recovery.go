package middleware

import (
	"net/http"
	"runtime/debug"

	"arbsim/pkg/utils"
)

// Recovery - middleware для восстановления после паники в handlers
//
// Перехватывает panic, логирует stack trace и возвращает клиенту
// 500 без деталей: текст паники может содержать внутренности сервера.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				utils.L().Error("panic in handler",
					utils.Any("panic", err),
					utils.String("path", r.URL.Path),
					utils.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"Internal Server Error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
