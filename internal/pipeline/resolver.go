package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/research-analytics-service/internal/store"
)

// Resolver defaults.
const (
	DefaultChunkSize   = 500
	DefaultConcurrency = 4
)

// Join describes a membership-filtered query. Every chunk of ids is added
// to Query as an "in" filter on Column.
type Join struct {
	Query  store.Query
	Column string
	// MaxRows caps the concatenated result. Zero disables the cap.
	MaxRows int
}

// Resolver fetches rows related to a large id set in chunks.
type Resolver struct {
	fetcher     *Fetcher
	chunkSize   int
	concurrency int
	logger      zerolog.Logger
	metrics     Recorder
}

// NewResolver creates a Resolver. The chunk size is clamped to the store's
// membership-list limit; zero values select the defaults.
func NewResolver(f *Fetcher, chunkSize, concurrency int) *Resolver {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if limit := f.store.MaxInList(); limit > 0 && chunkSize > limit {
		chunkSize = limit
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{
		fetcher:     f,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		logger:      f.logger.With().Str("component", "resolver").Logger(),
		metrics:     f.metrics,
	}
}

// ChunkSize returns the effective chunk size.
func (r *Resolver) ChunkSize() int {
	return r.chunkSize
}

// Resolve runs join once per chunk of ids and returns the rows in chunk
// order. Duplicate ids are dropped first. Empty ids return an empty result
// without touching the store. The first failing chunk cancels the others
// and fails the call.
func Resolve[T any](ctx context.Context, r *Resolver, ids []int64, join Join) ([]T, error) {
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return []T{}, nil
	}

	ctx, span := tracer.Start(ctx, "pipeline.resolve")
	defer span.End()

	chunks := Chunk(ids, r.chunkSize)
	span.SetAttributes(
		attribute.String("store.table", join.Query.Table),
		attribute.Int("pipeline.ids", len(ids)),
		attribute.Int("pipeline.chunks", len(chunks)),
	)
	r.logger.Debug().
		Str("table", join.Query.Table).
		Int("ids", len(ids)).
		Int("chunks", len(chunks)).
		Int("concurrency", r.concurrency).
		Msg("resolving join")

	results := make([][]T, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			q := join.Query.Where(store.In(join.Column, chunk))
			rows, err := FetchFiltered[T](gctx, r.fetcher, q, nil, join.MaxRows)
			if err != nil {
				return fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "join failed")
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.RecordChunks(join.Query.Table, len(chunks))
	}

	total := 0
	for _, rows := range results {
		total += len(rows)
	}
	out := make([]T, 0, total)
	for _, rows := range results {
		out = append(out, rows...)
	}
	if join.MaxRows > 0 && len(out) > join.MaxRows {
		r.logger.Warn().
			Str("table", join.Query.Table).
			Int("rows", len(out)).
			Int("max_rows", join.MaxRows).
			Msg("join result truncated")
		out = out[:join.MaxRows]
	}
	return out, nil
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// UniqueIDs returns ids without duplicates, in first-seen order.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
