package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the process-wide logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Output string // stdout, stderr or a file path
}

// DefaultConfig returns the logger settings used before Initialize is called.
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
	}
}

var (
	mu     sync.RWMutex
	logger *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.WarnLevel)
)

func init() {
	_ = Initialize(DefaultConfig())

	localEnv := os.Getenv("LOCAL")
	if strings.ToLower(localEnv) == "true" || localEnv == "1" {
		SetLogLevel("debug")
	}
}

// Initialize replaces the process-wide logger.
func Initialize(cfg Config) error {
	parsed, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		parsed = zapcore.WarnLevel
	}
	level.SetLevel(parsed)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var sink zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stderr":
		sink = zapcore.AddSync(os.Stderr)
	case "stdout":
		sink = zapcore.AddSync(os.Stdout)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		sink = zapcore.AddSync(file)
	}

	replace(zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// SetLogger installs an already-built logger (tests use zaptest/observer cores).
func SetLogger(l *zap.Logger) {
	replace(l.WithOptions(zap.AddCallerSkip(1)))
}

func replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
	logger = l
}

// SetLogLevel changes the minimum level at runtime.
func SetLogLevel(name string) {
	if parsed, err := zapcore.ParseLevel(name); err == nil {
		level.SetLevel(parsed)
	}
}

// L returns the underlying structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func sugar() *zap.SugaredLogger {
	return L().Sugar()
}

func Debugf(format string, v ...interface{}) {
	sugar().Debugf(format, v...)
}

func Infof(format string, v ...interface{}) {
	sugar().Infof(format, v...)
}

func Warningf(format string, v ...interface{}) {
	sugar().Warnf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	sugar().Errorf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	sugar().Fatalf(format, v...)
}

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}
