package bhost

import (
	"github.com/advdv/bserve"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding with an ISO8601 timestamp.
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logs, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logs.With(zap.String("service", env.serviceName())), nil
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledServeError(err error) {
	l.Logger.Error("unhandled server error", zap.Error(err))
}

func (l zapLogger) LogImplicitFlushError(err error) {
	l.Logger.Error("error while flushing implicitly", zap.Error(err))
}

func (l zapLogger) LogSpillCleanupError(path string, err error) {
	l.Logger.Warn("failed to clean up spilled request body", zap.String("path", path), zap.Error(err))
}

func (l zapLogger) LogHandshakeError(remote string, err error) {
	l.Logger.Info("tls handshake failed", zap.String("remote", remote), zap.Error(err))
}

func (l zapLogger) LogConnectionError(remote string, err error) {
	l.Logger.Warn("connection failed", zap.String("remote", remote), zap.Error(err))
}

func newZapServerLogger(l *zap.Logger) bserve.Logger {
	return zapLogger{l.Named("bserve")}
}
