package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(prev)
	})

	return exporter
}

// tracedQuery runs one TraceQuery span to completion and returns it.
func tracedQuery(t *testing.T, op, sql string, qerr error) tracetest.SpanStub {
	t.Helper()

	exporter := setupTestTracer(t)
	_, end := TraceQuery(context.Background(), op, sql)
	end(qerr)

	spans := exporter.GetSpans()
	if len(spans) == 0 {
		t.Fatal("expected at least one span")
	}
	return spans[0]
}

// slowLogCapture points the slow query logger at a buffer for the test.
func slowLogCapture(t *testing.T, threshold time.Duration) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetSlowQueryLogging(threshold, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	return &buf
}

func TestTraceQuery_Success(t *testing.T) {
	span := tracedQuery(t, "GetReview", "SELECT * FROM reviews WHERE id = $1", nil)

	if span.Name != "db.GetReview" {
		t.Errorf("span name = %q, want %q", span.Name, "db.GetReview")
	}

	attrs := make(map[string]string)
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	if attrs["db.system"] != "postgresql" {
		t.Errorf("db.system = %q, want %q", attrs["db.system"], "postgresql")
	}
	if attrs["db.operation"] != "GetReview" {
		t.Errorf("db.operation = %q, want %q", attrs["db.operation"], "GetReview")
	}
	if attrs["db.statement"] != "SELECT * FROM reviews WHERE id = $1" {
		t.Errorf("db.statement = %q, want correct SQL", attrs["db.statement"])
	}

	// Success should not set error status.
	if span.Status.Code != 0 { // codes.Unset = 0
		t.Errorf("span status = %d, want 0 (Unset)", span.Status.Code)
	}
}

func TestTraceQuery_Error(t *testing.T) {
	span := tracedQuery(t, "UpdateBusiness", "UPDATE businesses SET name = $1 WHERE id = $2",
		errors.New("connection refused"))

	if span.Status.Code != 1 { // codes.Error = 1 in the Go SDK
		t.Errorf("span status = %d, want 1 (Error)", span.Status.Code)
	}
	if len(span.Events) == 0 {
		t.Error("expected error event to be recorded on span")
	}
}

func TestTraceQuery_PropagatesContext(t *testing.T) {
	setupTestTracer(t)

	tracer := otel.Tracer("test")
	ctx, parentSpan := tracer.Start(context.Background(), "parent")

	// TraceQuery should create a child span under the parent.
	ctx, end := TraceQuery(ctx, "ListReviews", "SELECT * FROM reviews")
	end(nil)

	parentSpan.End()

	if ctx == nil {
		t.Error("returned context should not be nil")
	}
}

func TestSlowQueryLogging_SlowQuery(t *testing.T) {
	setupTestTracer(t)

	// A 1ns threshold makes every query count as slow.
	buf := slowLogCapture(t, 1*time.Nanosecond)

	_, end := TraceQuery(context.Background(), "SlowSelect", "SELECT * FROM reviews ORDER BY submitted_at")
	end(nil)

	output := buf.String()
	if !strings.Contains(output, "slow query detected") {
		t.Errorf("expected slow query log, got: %s", output)
	}
	if !strings.Contains(output, "SlowSelect") {
		t.Errorf("expected operation name in log, got: %s", output)
	}
	if !strings.Contains(output, "SELECT * FROM reviews ORDER BY submitted_at") {
		t.Errorf("expected SQL statement in log, got: %s", output)
	}
}

func TestSlowQueryLogging_FastQuery_NoLog(t *testing.T) {
	setupTestTracer(t)

	// A 1h threshold means nothing is slow.
	buf := slowLogCapture(t, 1*time.Hour)

	_, end := TraceQuery(context.Background(), "FastSelect", "SELECT 1")
	end(nil)

	if strings.Contains(buf.String(), "slow query detected") {
		t.Error("did not expect slow query log for fast query")
	}
}

func TestSlowQueryLogging_Disabled(t *testing.T) {
	setupTestTracer(t)
	SetSlowQueryLogging(0, nil)

	_, end := TraceQuery(context.Background(), "AnyOp", "SELECT 1")
	// Must not panic with nil logger and zero threshold.
	end(nil)
}

func TestSlowQueryLogging_WithError(t *testing.T) {
	setupTestTracer(t)
	buf := slowLogCapture(t, 1*time.Nanosecond)

	_, end := TraceQuery(context.Background(), "FailedQuery", "INSERT INTO daily_aggregates VALUES ($1)")
	end(errors.New("unique constraint violation"))

	output := buf.String()
	if !strings.Contains(output, "slow query detected") {
		t.Errorf("expected slow query log, got: %s", output)
	}
	if !strings.Contains(output, "unique constraint violation") {
		t.Errorf("expected error in slow query log, got: %s", output)
	}
}

func TestSetSlowQueryLogging_Concurrent(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	// Concurrent reads and writes should not race.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()

	for i := 0; i < 100; i++ {
		getSlowQueryConfig()
	}

	<-done
}
