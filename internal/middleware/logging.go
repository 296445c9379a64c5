package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging emits one structured line per request. Health checks and metric
// scrapes are logged at debug level.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		switch {
		case ww.status >= 500:
			level = slog.LevelError
		case isHealthOrMetrics(r.URL.Path):
			level = slog.LevelDebug
		}

		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", clientIP(r),
			"request_id", GetRequestID(r.Context()),
		)
	})
}

func isHealthOrMetrics(path string) bool {
	return path == "/metrics" || path == "/health/live" || path == "/health/ready"
}
