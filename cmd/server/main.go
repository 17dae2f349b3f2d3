package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arbsim/internal/api"
	"arbsim/internal/config"
	"arbsim/internal/repository"
	"arbsim/internal/service"
	"arbsim/internal/websocket"
	"arbsim/pkg/ratelimit"
	"arbsim/pkg/retry"
	"arbsim/pkg/utils"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// .env опционален: в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", utils.Err(err))
	}
	defer db.Close()

	logger.Info("connected to database",
		utils.String("dsn", cfg.Database.DSNWithoutPassword()),
	)

	// Репозитории и сервисы
	runRepo := repository.NewRunRepository(db)
	resultRepo := repository.NewResultRepository(db)

	hub := websocket.NewHub()
	go hub.Run()

	backtestService := service.NewBacktestService(runRepo, hub, nil)
	optimizerService := service.NewOptimizerService(resultRepo, hub, nil)
	optimizerService.SetSearchLimits(cfg.Search.Workers, cfg.Search.MaxDepth)

	var searchLimiter *ratelimit.RateLimiter
	if cfg.Search.RatePerMin > 0 {
		searchLimiter = ratelimit.NewPerMinute(cfg.Search.RatePerMin, cfg.Search.Burst)
	}

	router := api.SetupRoutes(&api.Dependencies{
		BacktestService:  backtestService,
		OptimizerService: optimizerService,
		Hub:              hub,
		SearchLimiter:    searchLimiter,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
		// Прогон бэктеста на длинной истории легально занимает минуты
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", utils.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", utils.Err(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", utils.Err(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", utils.Err(err))
	}

	hub.Stop()

	logger.Info("server exited")
}

// initDatabase создает подключение к базе данных.
// Ping повторяется с backoff: postgres в compose поднимается
// позже сервиса.
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	retryCfg := retry.StartupConfig(cfg.Database.ConnectRetries, cfg.Database.ConnectBackoff)
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		utils.L().Warn("database not ready, retrying",
			utils.Int("attempt", attempt),
			utils.String("delay", utils.FormatDuration(delay)),
			utils.Err(err),
		)
	}

	err = retry.Do(context.Background(), func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}, retryCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
