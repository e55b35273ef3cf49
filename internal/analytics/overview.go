package analytics

import (
	"cmp"
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/pipeline"
	"github.com/helixir/research-analytics-service/internal/store"
)

// overviewSpec describes the top lists of one entity table.
type overviewSpec[T any, H, R cmp.Ordered] struct {
	table     string
	name      string
	hColumn   string
	riiColumn string
	hIndex    func(T) *H
	rii       func(T) *R
	id        func(T) int64
}

// OverviewCountries returns the number of countries and the ten best by
// each average.
func (s *Service) OverviewCountries(ctx context.Context) (*domain.EntityOverview[domain.Country], error) {
	return run(ctx, s, "overview_countries", func(ctx context.Context, _ zerolog.Logger) (*domain.EntityOverview[domain.Country], error) {
		return overview(ctx, s, overviewSpec[domain.Country, float64, float64]{
			table:     tableCountries,
			name:      colName,
			hColumn:   colAverageHIndex,
			riiColumn: colAverageRII,
			hIndex:    func(c domain.Country) *float64 { return c.AverageHIndex },
			rii:       func(c domain.Country) *float64 { return c.AverageRII },
			id:        countryID,
		})
	})
}

// OverviewInstitutions returns the number of institutions and the ten best
// by each average.
func (s *Service) OverviewInstitutions(ctx context.Context) (*domain.EntityOverview[domain.Institution], error) {
	return run(ctx, s, "overview_institutions", func(ctx context.Context, _ zerolog.Logger) (*domain.EntityOverview[domain.Institution], error) {
		return overview(ctx, s, overviewSpec[domain.Institution, float64, float64]{
			table:     tableInstitutions,
			name:      colName,
			hColumn:   colAverageHIndex,
			riiColumn: colAverageRII,
			hIndex:    func(i domain.Institution) *float64 { return i.AverageHIndex },
			rii:       func(i domain.Institution) *float64 { return i.AverageRII },
			id:        institutionID,
		})
	})
}

// OverviewResearchers returns the number of researchers and the ten best by
// h-index and by RII.
func (s *Service) OverviewResearchers(ctx context.Context) (*domain.EntityOverview[domain.Researcher], error) {
	return run(ctx, s, "overview_researchers", func(ctx context.Context, _ zerolog.Logger) (*domain.EntityOverview[domain.Researcher], error) {
		return overview(ctx, s, overviewSpec[domain.Researcher, int, float64]{
			table:     tableResearchers,
			name:      colFullName,
			hColumn:   colHIndex,
			riiColumn: colRII,
			hIndex:    func(r domain.Researcher) *int { return r.HIndex },
			rii:       func(r domain.Researcher) *float64 { return r.RII },
			id:        researcherID,
		})
	})
}

// overview loads the exact count and both top lists concurrently. The
// store orders unknown metrics last; they are then dropped from the lists.
func overview[T any, H, R cmp.Ordered](ctx context.Context, s *Service, spec overviewSpec[T, H, R]) (*domain.EntityOverview[T], error) {
	top := func(ctx context.Context, column string) ([]T, error) {
		q := store.Query{
			Table:   spec.table,
			Columns: []string{colID, spec.name, column},
		}.OrderBy(store.Order{Column: column, Desc: true}, store.Order{Column: colID}).Window(0, overviewTopN)
		rows, err := store.SelectAs[T](ctx, s.store, q)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s top by %s: %w", spec.table, column, err)
		}
		return rows, nil
	}

	var (
		out        = &domain.EntityOverview[T]{}
		byH, byRII []T
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(gctx, store.Query{Table: spec.table})
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", spec.table, err)
		}
		out.Total = n
		return nil
	})
	g.Go(func() error {
		var err error
		byH, err = top(gctx, spec.hColumn)
		return err
	})
	g.Go(func() error {
		var err error
		byRII, err = top(gctx, spec.riiColumn)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.ByHIndex = pipeline.SelectTop(byH, pipeline.Known(spec.hIndex), overviewTopN, spec.id)
	out.ByRII = pipeline.SelectTop(byRII, pipeline.Known(spec.rii), overviewTopN, spec.id)
	return out, nil
}

// OverviewStats returns the global counters of the graph.
func (s *Service) OverviewStats(ctx context.Context) (*domain.Stats, error) {
	return run(ctx, s, "overview_stats", func(ctx context.Context, _ zerolog.Logger) (*domain.Stats, error) {
		var stats domain.Stats

		count := func(ctx context.Context, table string, dst *int64) func() error {
			return func() error {
				n, err := s.store.Count(ctx, store.Query{Table: table})
				if err != nil {
					return fmt.Errorf("failed to count %s: %w", table, err)
				}
				*dst = n
				return nil
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(count(gctx, tableResearchers, &stats.Researchers))
		g.Go(count(gctx, tableCountries, &stats.Countries))
		g.Go(count(gctx, tableInstitutions, &stats.Institutions))
		g.Go(func() error {
			n, err := s.countFields(gctx)
			if err != nil {
				return err
			}
			stats.Fields = n
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &stats, nil
	})
}
