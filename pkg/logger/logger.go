package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared zap logger configured for the given log level.
// Supported levels: "debug", "info", "warn", "error", "fatal", "panic".
// Any unknown value falls back to "info".
//
// In development (GO_ENV != "production") logs are human-readable console
// output; in production they are JSON.
func New(level string) *zap.SugaredLogger {
	lvl := parseLevel(strings.ToLower(level))

	var cfg zap.Config
	if isProd() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(err) // configuration errors are fatal on startup
	}
	return logger.Sugar()
}

// Sync flushes any buffered log entries. Should be called on shutdown.
// The error is ignored: stderr sinks report "invalid argument" on some
// platforms and there is nothing useful to do about it.
func Sync(l *zap.SugaredLogger) {
	if l == nil {
		return
	}
	_ = l.Sync()
}

func parseLevel(lvl string) zapcore.Level {
	switch lvl {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	case "fatal":
		return zap.FatalLevel
	case "panic":
		return zap.PanicLevel
	default:
		return zap.InfoLevel
	}
}

func isProd() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}
