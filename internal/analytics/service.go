// Package analytics implements the use cases of the research analytics
// service on top of the aggregation pipeline.
//
// Every use case follows the same shape: validate the filter, collect the
// matching rows through the paginated fetcher or the chunked join resolver,
// fold duplicate entities, then aggregate or rank them into a domain result.
// Each execution runs under its own deadline; expiry or a store failure
// fails the whole use case with domain.ErrServiceUnavailable.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/observability"
	"github.com/helixir/research-analytics-service/internal/pipeline"
	"github.com/helixir/research-analytics-service/internal/store"
)

var tracer = otel.Tracer("github.com/helixir/research-analytics-service/internal/analytics")

// Metrics receives pipeline and use case observations. *observability.Metrics
// implements it.
type Metrics interface {
	pipeline.Recorder
	RecordUseCase(useCase string, duration time.Duration, err error)
}

// Service runs the analytics use cases against one store.
type Service struct {
	store    store.Store
	fetcher  *pipeline.Fetcher
	resolver *pipeline.Resolver
	cfg      Config
	logger   zerolog.Logger
	metrics  Metrics
	validate *validator.Validate
}

// NewService creates a Service. metrics may be nil.
func NewService(s store.Store, cfg Config, logger zerolog.Logger, metrics Metrics) *Service {
	cfg = cfg.withDefaults()
	logger = logger.With().Str("component", "analytics").Logger()

	var recorder pipeline.Recorder
	if metrics != nil {
		recorder = metrics
	}
	fetcher := pipeline.NewFetcher(s, cfg.PageSize, logger, recorder)

	return &Service{
		store:    s,
		fetcher:  fetcher,
		resolver: pipeline.NewResolver(fetcher, cfg.ChunkSize, cfg.Concurrency),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		validate: newValidator(),
	}
}

// Config returns the effective limits.
func (s *Service) Config() Config {
	return s.cfg
}

// Ping verifies that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

// run executes one use case under the request deadline, classifies its
// error, and records its outcome.
func run[T any](ctx context.Context, s *Service, useCase string, fn func(ctx context.Context, logger zerolog.Logger) (T, error)) (T, error) {
	start := time.Now()

	ctx = observability.WithUseCase(ctx, useCase)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "analytics."+useCase)
	defer span.End()

	logger := observability.WithUseCaseContext(observability.FromContext(ctx, s.logger), useCase)

	out, err := fn(ctx, logger)
	if err != nil {
		err = classify(ctx, useCase, err)
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordUseCase(useCase, elapsed, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, observability.FailureReason(err))
		span.SetAttributes(attribute.String("analytics.failure", observability.FailureReason(err)))

		event := logger.Error()
		if errors.Is(err, domain.ErrInvalidInput) {
			event = logger.Debug()
		}
		event.Err(err).Dur("duration", elapsed).Msg("use case failed")

		var zero T
		return zero, err
	}

	logger.Debug().Dur("duration", elapsed).Msg("use case completed")
	return out, nil
}

// classify maps a use case failure onto the domain error taxonomy.
func classify(ctx context.Context, useCase string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrServiceUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return fmt.Errorf("%s: %w: %w", useCase, domain.ErrServiceUnavailable, err)
	default:
		return fmt.Errorf("%s: %w: %w", useCase, domain.ErrInternalError, err)
	}
}
