// Package logger provides a thin, opinionated constructor around zap's
// production configuration so every subsystem in Ignite logs with the
// same encoding, level, and set of base fields.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger for the named service. It uses zap's
// production JSON encoder but writes to stdout instead of stderr, and
// attaches a "service" field so log lines from different Ignite
// instances (e.g. multiple Instance values in the same process) can be
// told apart downstream.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)

	logger := zap.New(core).With(zap.String("service", service))
	return logger.Sugar()
}

// NewDevelopment builds a human-readable, colorized logger suited for
// local development and the cmd/ignitedb CLI.
func NewDevelopment(service string) *zap.SugaredLogger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		// zap.NewDevelopment only fails if stderr can't be opened, which
		// means the process has no usable stderr; fall back to a no-op
		// logger rather than panicking on startup.
		return zap.NewNop().Sugar()
	}
	return logger.With(zap.String("service", service)).Sugar()
}
