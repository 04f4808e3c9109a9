package middleware

import (
	"log/slog"
	"net/http"

	"github.com/raterly/raterly/pkg/logger"
)

// RequestLogger builds a request-scoped logger carrying correlation_id,
// user_id, trace_id, and span_id and stores it in the request context.
// Handlers retrieve it with logger.FromContext.
//
// Mount this AFTER RequestLogging (which sets correlation_id) and Tracing
// (which sets the OpenTelemetry span context), or those fields will be
// missing from the scoped logger.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// The auth middleware puts user_id in the context; public review
			// submission endpoints fall back to the X-User-ID header instead.
			uid := UserIDFromContext(ctx)
			if uid == "" {
				uid = r.Header.Get("X-User-ID")
			}
			if uid != "" {
				ctx = logger.WithUserID(ctx, uid)
			}

			scoped := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, scoped)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
