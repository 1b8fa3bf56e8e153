// Package logger provides structured logging functionality using the
// Uber zap logging library, plus an HTTP middleware logging every
// handled request.
package logger

import (
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Log is the global SugaredLogger instance. It must be initialized via
// Init() before use.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Init initializes the global logger at the given level. Debug level
// selects the human-readable development encoder.
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries. It should be called on
// shutdown.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

type responseData struct {
	status int
	size   int
}

type loggingResponseWriter struct {
	http.ResponseWriter
	responseData *responseData
}

func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size

	return size, err
}

func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.responseData.status = statusCode
}

// WithLoggingHTTPMiddleware wraps a handler with request logging:
// method, URI, response status, duration and body size.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		data := &responseData{status: http.StatusOK}
		lw := loggingResponseWriter{
			ResponseWriter: w,
			responseData:   data,
		}
		h.ServeHTTP(&lw, r)

		Log.Infow(
			"request handled",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", data.status,
			"duration", time.Since(start),
			"size", data.size,
		)
	}

	return http.HandlerFunc(logFn)
}
