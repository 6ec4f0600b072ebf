// Package logger is the structured logging layer, built on log/slog.
//
// Handlers get a request-scoped logger through WithCtx so every line they
// write carries the request ID:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order placed", "order_id", id)
//	// → time=... level=INFO msg="order placed" request_id=a1b2c3d4 order_id=17
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/adityaraj/bazario/config"
)

// L is the base logger. Prefer WithCtx inside request handlers.
var L *slog.Logger

func init() {
	var h slog.Handler
	switch config.AppEnv() {
	case "production", "prod":
		// JSON at INFO for log aggregators.
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		// Text at DEBUG for development.
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	L = slog.New(h)
	slog.SetDefault(L)
}

// EnableAudit fans the base logger out to an additional handler, typically
// the MongoDB audit handler. Called once at boot when AUDIT_MONGO_URI is set.
func EnableAudit(h slog.Handler) {
	L = slog.New(NewMultiHandler(L.Handler(), h))
	slog.SetDefault(L)
}

type ctxKey struct{}

// WithCtx returns the request-scoped *slog.Logger stored by the Logger
// middleware, pre-tagged with request_id. Outside a request it falls back to
// the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a pre-tagged *slog.Logger into ctx. Called by the
// Logger middleware; application code rarely needs it.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
