package middleware

import (
	"net/http"
	"time"

	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/reqid"
)

// statusRecorder remembers the status code a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Logger emits one structured line per request: method, path, status,
// duration, client IP, and the request_id that reqid.Middleware put in the
// context. It also seeds the context with a request-scoped logger so that
// logger.WithCtx(ctx) downstream carries the same request_id.
//
// Mount reqid.Middleware() before this one:
//
//	r.Use(reqid.Middleware())
//	r.Use(middleware.Logger)
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		scoped := logger.L.With("request_id", reqid.FromCtx(r.Context()))
		r = r.WithContext(logger.InjectLogger(r.Context(), scoped))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		scoped.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started).String(),
			"ip", r.RemoteAddr,
		)
	})
}
