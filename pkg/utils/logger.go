package utils

// logger.go - настройка структурированного логирования (zap)
//
// Logger оборачивает zap.Logger и его sugar-вариант; доменные
// конструкторы полей держат имена атрибутов едиными по всему
// сервису (market, asset, search_id и т.д.).

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - конфигурация логирования
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, text
	Output      string // путь к файлу; пусто - stderr
	Development bool   // режим разработки (stacktrace на warn)
}

// Logger - обёртка над zap с доменными помощниками
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// parseLevel разбирает строковый уровень, по умолчанию info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger создаёт и настраивает логгер
func InitLogger(cfg LogConfig) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			sink = zapcore.AddSync(f)
		}
		// при недоступном файле остаёмся на stderr
	}

	core := zapcore.NewCore(encoder, sink, parseLevel(cfg.Level))

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	zl := zap.New(core, opts...)
	return &Logger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}
}

// Nop возвращает логгер, отбрасывающий все записи.
// Используется вложенными поисками, чтобы не зашумлять вывод.
func Nop() *Logger {
	zl := zap.NewNop()
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// Sugar возвращает sugar-вариант логгера
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }

// With возвращает дочерний логгер с добавленными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.Logger.With(fields...)
	return &Logger{Logger: child, sugar: child.Sugar()}
}

// WithComponent помечает логгер именем подсистемы
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithMarket помечает логгер идентификатором рынка
func (l *Logger) WithMarket(market string) *Logger {
	return l.With(Market(market))
}

// WithAsset помечает логгер активом
func (l *Logger) WithAsset(asset string) *Logger {
	return l.With(Asset(asset))
}

// WithSearchID помечает логгер идентификатором поиска
func (l *Logger) WithSearchID(id int64) *Logger {
	return l.With(SearchID(id))
}

// ============================================================
// Глобальный логгер
// ============================================================

// InitGlobalLogger инициализирует и устанавливает глобальный логгер
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный логгер
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalLogger возвращает глобальный логгер,
// создавая логгер по умолчанию при первом обращении
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// L - короткий синоним GetGlobalLogger
func L() *Logger { return GetGlobalLogger() }

// Глобальные функции логирования
func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

// Форматированные варианты через sugar
func Debugf(format string, args ...interface{}) { L().sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().sugar.Errorf(format, args...) }

// ============================================================
// Конструкторы доменных полей
// ============================================================

func Market(market string) zap.Field  { return zap.String("market", market) }
func Asset(asset string) zap.Field    { return zap.String("asset", asset) }
func Direction(dir string) zap.Field  { return zap.String("direction", dir) }
func Price(price int64) zap.Field     { return zap.Int64("price", price) }
func Volume(v float64) zap.Field      { return zap.Float64("volume", v) }
func Spread(s float64) zap.Field      { return zap.Float64("spread", s) }
func Metric(m float64) zap.Field      { return zap.Float64("metric", m) }
func Depth(d int) zap.Field           { return zap.Int("depth", d) }
func Combinations(n int) zap.Field    { return zap.Int("combinations", n) }
func SearchID(id int64) zap.Field     { return zap.Int64("search_id", id) }
func RunID(id int64) zap.Field        { return zap.Int64("run_id", id) }
func State(state string) zap.Field    { return zap.String("state", state) }
func Latency(ms float64) zap.Field    { return zap.Float64("latency_ms", ms) }
func RequestID(id string) zap.Field   { return zap.String("request_id", id) }
func Component(name string) zap.Field { return zap.String("component", name) }

// Переэкспорт часто используемых конструкторов zap
var (
	String  = zap.String
	Int     = zap.Int
	Int64   = zap.Int64
	Float64 = zap.Float64
	Bool    = zap.Bool
	Err     = zap.Error
	Any     = zap.Any
)

// fieldsToInterface разворачивает zap-поля в пары ключ/значение
// для sugar-вызовов
func fieldsToInterface(fields []zap.Field) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		var v interface{} = f.Interface
		if v == nil {
			if f.String != "" {
				v = f.String
			} else {
				v = f.Integer
			}
		}
		out = append(out, f.Key, v)
	}
	return out
}
