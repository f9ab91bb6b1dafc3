package bserve

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogUnhandledServeError(err error)
	LogImplicitFlushError(err error)
	LogSpillCleanupError(path string, err error)
	LogHandshakeError(remote string, err error)
	LogConnectionError(remote string, err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledServeError(err error) {
	l.Logger.Printf("bserve: unhandled server error: %s", err)
}

func (l stdLogger) LogImplicitFlushError(err error) {
	l.Logger.Printf("bserve: error while flushing implicitly: %s", err)
}

func (l stdLogger) LogSpillCleanupError(path string, err error) {
	l.Logger.Printf("bserve: failed to clean up spill file %s: %s", path, err)
}

func (l stdLogger) LogHandshakeError(remote string, err error) {
	l.Logger.Printf("bserve: tls handshake with %s failed: %s", remote, err)
}

func (l stdLogger) LogConnectionError(remote string, err error) {
	l.Logger.Printf("bserve: connection with %s failed: %s", remote, err)
}

func NewStdLogger(l *log.Logger) Logger {
	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError int64
	NumLogImplicitFlushError  int64
	NumLogSpillCleanupError   int64
	NumLogHandshakeError      int64
	NumLogConnectionError     int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.logf("bserve: unhandled server error: %s", err)
}

func (l *TestLogger) LogImplicitFlushError(err error) {
	atomic.AddInt64(&l.NumLogImplicitFlushError, 1)
	l.logf("bserve: error while flushing implicitly: %s", err)
}

func (l *TestLogger) LogSpillCleanupError(path string, err error) {
	atomic.AddInt64(&l.NumLogSpillCleanupError, 1)
	l.logf("bserve: failed to clean up spill file %s: %s", path, err)
}

func (l *TestLogger) LogHandshakeError(remote string, err error) {
	atomic.AddInt64(&l.NumLogHandshakeError, 1)
	l.logf("bserve: tls handshake with %s failed: %s", remote, err)
}

func (l *TestLogger) LogConnectionError(remote string, err error) {
	atomic.AddInt64(&l.NumLogConnectionError, 1)
	l.logf("bserve: connection with %s failed: %s", remote, err)
}

func (l *TestLogger) logf(format string, args ...any) {
	if l.tb != nil {
		l.tb.Logf(format, args...)
	}
}

var _ Logger = &TestLogger{}
