package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/helixir/research-analytics-service/internal/store"
)

var tracer = otel.Tracer("github.com/helixir/research-analytics-service/internal/pipeline")

// DefaultPageSize is the number of rows requested per page.
const DefaultPageSize = 1000

// Recorder receives pipeline observations. Implementations must be safe
// for concurrent use.
type Recorder interface {
	RecordFetch(table string, pages, rows int, capped bool)
	RecordChunks(table string, chunks int)
}

// Fetcher pages through store queries.
type Fetcher struct {
	store    store.Store
	pageSize int
	logger   zerolog.Logger
	metrics  Recorder
}

// NewFetcher creates a Fetcher. A pageSize of zero means DefaultPageSize.
// metrics may be nil.
func NewFetcher(s store.Store, pageSize int, logger zerolog.Logger, metrics Recorder) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{
		store:    s,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "fetcher").Logger(),
		metrics:  metrics,
	}
}

// Store returns the store the fetcher reads from.
func (f *Fetcher) Store() store.Store {
	return f.store
}

// PageSize returns the number of rows requested per page.
func (f *Fetcher) PageSize() int {
	return f.pageSize
}

// FetchFiltered pages through q and returns the rows accepted by keep, in
// page order, up to maxRows of them. A nil keep accepts every row and a
// maxRows of zero disables the cap.
//
// Pages are requested in id order unless q is already ordered, and paging
// stops only on an empty page: the store may cap a page below the
// requested limit, so a short page does not mean the end.
func FetchFiltered[T any](ctx context.Context, f *Fetcher, q store.Query, keep func(T) bool, maxRows int) ([]T, error) {
	ctx, span := tracer.Start(ctx, "pipeline.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("store.table", q.Table), attribute.Int("pipeline.max_rows", maxRows))

	if len(q.Order) == 0 {
		q = q.OrderBy(store.Order{Column: "id"})
	}

	var (
		out    = make([]T, 0)
		offset int
		pages  int
		capped bool
	)
	for !capped {
		page, err := store.SelectAs[T](ctx, f.store, q.Window(offset, f.pageSize))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "page fetch failed")
			return nil, fmt.Errorf("failed to fetch %s page at offset %d: %w", q.Table, offset, err)
		}
		if len(page) == 0 {
			break
		}
		pages++
		offset += len(page)

		for _, row := range page {
			if keep != nil && !keep(row) {
				continue
			}
			out = append(out, row)
			if maxRows > 0 && len(out) >= maxRows {
				capped = true
				break
			}
		}
	}

	if capped {
		f.logger.Warn().
			Str("table", q.Table).
			Int("max_rows", maxRows).
			Int("pages", pages).
			Msg("row cap reached, result may be truncated")
	}
	if f.metrics != nil {
		f.metrics.RecordFetch(q.Table, pages, len(out), capped)
	}
	span.SetAttributes(attribute.Int("pipeline.pages", pages), attribute.Int("pipeline.rows", len(out)), attribute.Bool("pipeline.capped", capped))
	return out, nil
}

// FetchAll pages through q and returns up to maxRows rows.
func FetchAll[T any](ctx context.Context, f *Fetcher, q store.Query, maxRows int) ([]T, error) {
	return FetchFiltered[T](ctx, f, q, nil, maxRows)
}
