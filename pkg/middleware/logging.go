package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/raterly/raterly/pkg/logger"
)

// loggedWriter records the status and byte count of a response as it is
// written, for the access log line.
type loggedWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (lw *loggedWriter) WriteHeader(code int) {
	lw.status = code
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggedWriter) Write(b []byte) (int, error) {
	n, err := lw.ResponseWriter.Write(b)
	lw.bytes += n
	return n, err
}

// RequestLogging emits one access log line per request and threads a
// correlation ID through the context and response headers. The incoming
// X-Correlation-ID is honored when present so review submissions can be
// traced across the widget, the API, and the async pipeline.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}

			ctx := logger.WithCorrelationID(r.Context(), corrID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Correlation-ID", corrID)

			lw := &loggedWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(lw, r)

			l.InfoContext(ctx, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", lw.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", lw.bytes),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", corrID),
			)
		})
	}
}
