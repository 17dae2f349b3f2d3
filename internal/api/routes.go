package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arbsim/internal/api/handlers"
	"arbsim/internal/api/middleware"
	"arbsim/internal/service"
	"arbsim/internal/websocket"
	"arbsim/pkg/ratelimit"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	BacktestService  service.BacktestServiceInterface
	OptimizerService service.OptimizerServiceInterface
	Hub              *websocket.Hub

	// Ограничитель запусков поиска; nil отключает лимит
	SearchLimiter *ratelimit.RateLimiter
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Назначение:
// Центральное место для определения всех API endpoints.
// Регистрирует handlers для каждого маршрута.
// Применяет middleware к группам маршрутов.
// Организует версионирование API (v1).
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /backtests/
//	│   ├── POST / - запустить прогон бэктеста
//	│   ├── GET / - список прогонов
//	│   ├── GET /{id} - один прогон
//	│   └── DELETE /{id} - удалить прогон
//	└── /search/
//	    ├── POST /setting - поиск торговых настроек
//	    ├── POST /balance - поиск распределения капитала
//	    ├── POST /window - составной поиск по окнам
//	    ├── GET /results - результаты одного вида поиска
//	    ├── GET /results/best - лучшая запись вида и актива
//	    └── GET /results/{id} - одна запись
//
// /ws/
//
//	└── /stream - WebSocket для real-time трансляции хода поиска
//
// /metrics - Prometheus метрики
// /health - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. SearchLimit (только для запуска поисков)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// API v1 routes
	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	// Backtest routes
	if deps != nil && deps.BacktestService != nil {
		backtestHandler := handlers.NewBacktestHandler(deps.BacktestService)
		apiV1.HandleFunc("/backtests", backtestHandler.RunBacktest).Methods("POST")
		apiV1.HandleFunc("/backtests", backtestHandler.GetBacktests).Methods("GET")
		apiV1.HandleFunc("/backtests/{id:[0-9]+}", backtestHandler.GetBacktest).Methods("GET")
		apiV1.HandleFunc("/backtests/{id:[0-9]+}", backtestHandler.DeleteBacktest).Methods("DELETE")
	}

	// Search routes
	if deps != nil && deps.OptimizerService != nil {
		optimizationHandler := handlers.NewOptimizationHandler(deps.OptimizerService)

		search := apiV1.PathPrefix("/search").Subrouter()
		if deps.SearchLimiter != nil {
			search.Use(middleware.SearchLimit(deps.SearchLimiter))
		}

		search.HandleFunc("/setting", optimizationHandler.RunSettingSearch).Methods("POST")
		search.HandleFunc("/balance", optimizationHandler.RunBalanceSearch).Methods("POST")
		search.HandleFunc("/window", optimizationHandler.RunWindowSearch).Methods("POST")
		search.HandleFunc("/results", optimizationHandler.GetResults).Methods("GET")
		search.HandleFunc("/results/best", optimizationHandler.GetBestResult).Methods("GET")
		search.HandleFunc("/results/{id:[0-9]+}", optimizationHandler.GetResult).Methods("GET")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus metrics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
