package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/response"
)

// Recovery turns a downstream panic into a logged 500 instead of a dead
// connection. Mount it above everything whose panics should be contained.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"error", fmt.Sprintf("%v", v),
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				)
				response.Error(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
