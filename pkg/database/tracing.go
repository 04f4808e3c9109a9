package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/raterly/raterly/pkg/database"

var slowQueryCfg struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowQueryLogging configures slow query detection. Queries running
// longer than threshold are logged as warnings with the operation name, SQL
// statement, and duration. A zero threshold disables the logging.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQueryCfg.mu.Lock()
	defer slowQueryCfg.mu.Unlock()
	slowQueryCfg.threshold = threshold
	slowQueryCfg.logger = logger
}

func getSlowQueryConfig() (time.Duration, *slog.Logger) {
	slowQueryCfg.mu.RLock()
	defer slowQueryCfg.mu.RUnlock()
	return slowQueryCfg.threshold, slowQueryCfg.logger
}

// logIfSlow emits a warning when the query ran past the configured threshold.
func logIfSlow(ctx context.Context, start time.Time, operation, statement string, err error) {
	threshold, logger := getSlowQueryConfig()
	if threshold <= 0 || logger == nil {
		return
	}
	elapsed := time.Since(start)
	if elapsed < threshold {
		return
	}

	attrs := []any{
		slog.String("operation", operation),
		slog.String("statement", statement),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.WarnContext(ctx, "slow query detected", attrs...)
}

// TraceQuery opens a client span for a database operation. The returned
// function must be called when the operation finishes, usually via defer:
//
//	ctx, end := database.TraceQuery(ctx, "GetReview", "SELECT * FROM reviews WHERE id = $1")
//	defer func() { end(err) }()
//
// Queries past the SetSlowQueryLogging threshold are also logged as
// warnings.
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		logIfSlow(ctx, start, operation, statement, err)
	}
}
