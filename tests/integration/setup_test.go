//go:build integration

// Package integration contains integration tests for the backtest service.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: real postgres round trips for both repositories
//
// Integration tests use build tag "integration" to separate from unit tests.
// Run with: go test -tags=integration ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"arbsim/internal/api"
	"arbsim/internal/models"
	"arbsim/internal/repository"
	"arbsim/internal/service"
	"arbsim/internal/websocket"
	"arbsim/pkg/utils"

	_ "github.com/lib/pq"
)

// TestConfig contains database configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB               *sql.DB
	Server           *httptest.Server
	Hub              *websocket.Hub
	RunRepo          *repository.RunRepository
	ResultRepo       *repository.ResultRepository
	BacktestService  *service.BacktestService
	OptimizerService *service.OptimizerService
	Cleanup          func()
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "arbsim_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection, skipping the test
// when no database is reachable
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil, func() {}
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// initTestTables creates the schema used by both repositories
func initTestTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id SERIAL PRIMARY KEY,
			asset TEXT NOT NULL,
			market1 TEXT NOT NULL,
			market2 TEXT NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			new_opportunities INTEGER NOT NULL DEFAULT 0,
			rev_opportunities INTEGER NOT NULL DEFAULT 0,
			new_trades INTEGER NOT NULL DEFAULT 0,
			rev_trades INTEGER NOT NULL DEFAULT 0,
			krw_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
			krw_exhausted DOUBLE PRECISION NOT NULL DEFAULT 0,
			yield DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS optimization_results (
			id SERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			asset TEXT NOT NULL,
			metric DOUBLE PRECISION NOT NULL DEFAULT 0,
			krw_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
			yield DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_trading_coin DOUBLE PRECISION NOT NULL DEFAULT 0,
			new_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
			rev_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
			new_factor DOUBLE PRECISION NOT NULL DEFAULT 0,
			rev_factor DOUBLE PRECISION NOT NULL DEFAULT 0,
			combinations BIGINT NOT NULL DEFAULT 0,
			depth INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// cleanTables removes all rows so tests start from a known state
func cleanTables(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"backtest_runs", "optimization_results"} {
		if _, err := db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY"); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	t.Helper()

	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}
	cleanTables(t, db)

	hub := websocket.NewHub()
	go hub.Run()

	runRepo := repository.NewRunRepository(db)
	resultRepo := repository.NewResultRepository(db)

	logger := utils.Nop()
	backtestService := service.NewBacktestService(runRepo, hub, logger)
	optimizerService := service.NewOptimizerService(resultRepo, hub, logger)

	router := api.SetupRoutes(&api.Dependencies{
		BacktestService:  backtestService,
		OptimizerService: optimizerService,
		Hub:              hub,
	})

	server := httptest.NewServer(router)

	return &TestServer{
		DB:               db,
		Server:           server,
		Hub:              hub,
		RunRepo:          runRepo,
		ResultRepo:       resultRepo,
		BacktestService:  backtestService,
		OptimizerService: optimizerService,
		Cleanup: func() {
			server.Close()
			hub.Stop()
			dbCleanup()
		},
	}
}

// ============ Shared fixtures ============

// snapshot builds a one-level order book snapshot
func snapshot(ts, askPrice int64, askAmt float64, bidPrice int64, bidAmt float64) models.OrderBookSnapshot {
	return models.OrderBookSnapshot{
		Asks:      []models.PriceLevel{{Price: askPrice, Amount: askAmt}},
		Bids:      []models.PriceLevel{{Price: bidPrice, Amount: bidAmt}},
		Timestamp: ts,
	}
}

// sampleHistory returns aligned three-tick streams with a steady
// spread: buying on market 1 at 100 and selling on market 2 at 110
// earns 10 KRW per coin with zero fees
func sampleHistory() (mm1, mm2 []models.OrderBookSnapshot) {
	for i := int64(1); i <= 3; i++ {
		mm1 = append(mm1, snapshot(i, 100, 5, 99, 5))
		mm2 = append(mm2, snapshot(i, 112, 5, 110, 5))
	}
	return mm1, mm2
}

// sampleBalances funds both markets generously enough for every tick
func sampleBalances() models.Balances {
	return models.Balances{
		"mm1": {models.AssetKRW: 10000, "BTC": 100},
		"mm2": {models.AssetKRW: 10000, "BTC": 100},
	}
}
