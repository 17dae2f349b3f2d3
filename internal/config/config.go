package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Search   SearchConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	// Retry логика для стартового подключения: контейнер БД может
	// подниматься позже сервиса
	ConnectRetries int
	ConnectBackoff time.Duration
}

// SearchConfig - настройки движка поиска параметров
type SearchConfig struct {
	// Размер пула воркеров для оценки комбинаций.
	// 0 = по количеству ядер.
	Workers int

	// Максимально допустимая глубина рекурсивного уточнения сетки
	MaxDepth int

	// Token bucket на запуск поисков: rate - пополнение в секунду,
	// burst - допустимый всплеск. RatePerMin <= 0 отключает лимит.
	RatePerMin int
	Burst      int
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "arbsim"),
			User:     getEnv("DB_USER", "arbsim"),
			Password: getEnv("DB_PASSWORD", "arbsim"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),

			ConnectRetries: getEnvAsInt("DB_CONNECT_RETRIES", 5),
			ConnectBackoff: getEnvAsDuration("DB_CONNECT_BACKOFF", 2*time.Second),
		},
		Search: SearchConfig{
			Workers:    getEnvAsInt("SEARCH_WORKERS", runtime.NumCPU()),
			MaxDepth:   getEnvAsInt("SEARCH_MAX_DEPTH", 5),
			RatePerMin: getEnvAsInt("SEARCH_RATE_PER_MIN", 6),
			Burst:      getEnvAsInt("SEARCH_BURST", 3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Валидация retry параметров
	if c.Database.ConnectRetries < 0 {
		return fmt.Errorf("DB_CONNECT_RETRIES cannot be negative, got %d", c.Database.ConnectRetries)
	}

	if c.Database.ConnectRetries > 20 {
		return fmt.Errorf("DB_CONNECT_RETRIES should not exceed 20, got %d", c.Database.ConnectRetries)
	}

	if c.Database.ConnectBackoff <= 0 {
		return fmt.Errorf("DB_CONNECT_BACKOFF must be positive, got %v", c.Database.ConnectBackoff)
	}

	// Валидация параметров поиска
	if c.Search.Workers < 0 {
		return fmt.Errorf("SEARCH_WORKERS cannot be negative, got %d", c.Search.Workers)
	}

	if c.Search.MaxDepth < 0 || c.Search.MaxDepth > 10 {
		return fmt.Errorf("SEARCH_MAX_DEPTH must be between 0 and 10, got %d", c.Search.MaxDepth)
	}

	if c.Search.RatePerMin > 0 && c.Search.Burst < 1 {
		return fmt.Errorf("SEARCH_BURST must be at least 1 when rate limiting is on, got %d", c.Search.Burst)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
