package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap.Logger at the given level ("debug", "info",
// "warn", "error"). An unrecognized level falls back to info rather than
// failing startup.
func New(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		// zap.NewProductionConfig().Build() only fails on a malformed sink
		// spec, which DefaultConfig never produces; fall back rather than
		// panic in a logger constructor.
		fallback, _ := zap.NewProduction()
		return fallback
	}
	return log
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// NewSugared is a convenience wrapper returning the SugaredLogger the rest
// of this codebase's services take as a dependency.
func NewSugared(level string) *zap.SugaredLogger {
	return New(level).Sugar()
}
