package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery is the outermost layer: a panicking handler must still produce
// the generic internal-error body, never a torn connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"InternalError":null}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
