package store

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rs/zerolog"

	"github.com/helixir/research-analytics-service/internal/observability"
)

var tracer = otel.Tracer("github.com/helixir/research-analytics-service/internal/store")

// Recorder receives one observation per store request.
type Recorder interface {
	RecordStoreRequest(backend, table, op string, duration time.Duration, rows int, err error)
}

// Instrument wraps s so that every request is traced and reported to rec.
// A nil rec only traces. Failed requests are logged at debug level.
func Instrument(s Store, backend string, rec Recorder, logger zerolog.Logger) Store {
	return &instrumented{next: s, backend: backend, rec: rec, logger: logger}
}

type instrumented struct {
	next    Store
	backend string
	rec     Recorder
	logger  zerolog.Logger
}

func (i *instrumented) Select(ctx context.Context, q Query) ([]json.RawMessage, error) {
	ctx, span := i.start(ctx, "select", q)
	start := time.Now()
	rows, err := i.next.Select(ctx, q)
	i.finish(ctx, span, "select", q.Table, start, len(rows), err)
	return rows, err
}

func (i *instrumented) Count(ctx context.Context, q Query) (int64, error) {
	ctx, span := i.start(ctx, "count", q)
	start := time.Now()
	n, err := i.next.Count(ctx, q)
	i.finish(ctx, span, "count", q.Table, start, 0, err)
	return n, err
}

func (i *instrumented) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "store.ping", trace.WithAttributes(attribute.String("store.backend", i.backend)))
	err := i.next.Ping(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ping failed")
	}
	span.End()
	return err
}

func (i *instrumented) MaxInList() int {
	return i.next.MaxInList()
}

func (i *instrumented) start(ctx context.Context, op string, q Query) (context.Context, trace.Span) {
	return tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("store.backend", i.backend),
		attribute.String("store.table", q.Table),
		attribute.Int("store.offset", q.Offset),
		attribute.Int("store.limit", q.Limit),
		attribute.Int("store.embeds", len(q.Embeds)),
	))
}

func (i *instrumented) finish(ctx context.Context, span trace.Span, op, table string, start time.Time, rows int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		logger := observability.WithStoreContext(observability.FromContext(ctx, i.logger), i.backend, table)
		logger.Debug().Err(err).Str("op", op).Msg("store request failed")
	} else {
		span.SetAttributes(attribute.Int("store.rows", rows))
	}
	span.End()

	if i.rec != nil {
		i.rec.RecordStoreRequest(i.backend, table, op, time.Since(start), rows, err)
	}
}
