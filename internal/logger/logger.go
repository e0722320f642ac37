package logger

import (
	"log/slog"
	"os"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Env string

const (
	EnvDev  Env = "dev"
	EnvProd Env = "prod"
)

type Backend string

const (
	BackendStd Backend = "std"
	BackendZap Backend = "zap"
)

type Config struct {
	Env       Env
	Service   string
	Version   string
	Backend   Backend
	AddSource bool
	Debug     bool
}

var global *slog.Logger = slog.Default()

// Init настраивает глобальный slog: std-хендлер для dev, zap JSON для prod.
func Init(cfg Config) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	switch cfg.Backend {
	case BackendZap:
		zl := newZap(cfg)
		handler = slogzap.Option{
			Level:     level,
			Logger:    zl,
			AddSource: cfg.AddSource,
		}.NewZapHandler()
	default:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:     level,
			AddSource: cfg.AddSource,
		})
	}

	global = slog.New(handler).With(
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
	)
	slog.SetDefault(global)
}

// L возвращает глобальный логгер.
func L() *slog.Logger {
	return global
}

func newZap(cfg Config) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}
