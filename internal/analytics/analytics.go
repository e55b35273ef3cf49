package analytics

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/pipeline"
	"github.com/helixir/research-analytics-service/internal/store"
)

// Analytics computes researcher averages and rankings for the authorships
// selected by filter. Institution rankings are only produced for a country
// without an institution. A field matching no article short-circuits to a
// zeroed result without querying authorships.
func (s *Service) Analytics(ctx context.Context, filter AnalyticsFilter) (*domain.AnalyticsResult, error) {
	return run(ctx, s, "analytics", func(ctx context.Context, logger zerolog.Logger) (*domain.AnalyticsResult, error) {
		if err := s.validateStruct(filter); err != nil {
			return nil, err
		}

		q := store.Query{
			Table:   tableAuthorships,
			Columns: []string{colResearcherID, colInstitutionID, colCountryID},
			Embeds: []store.Embed{
				embedResearchers(researcherColumns...),
				embedInstitutions(institutionColumns...),
			},
		}
		if filter.CountryID != 0 {
			q = q.Where(store.Eq(colCountryID, filter.CountryID))
		}
		if filter.InstitutionID != 0 {
			q = q.Where(store.Eq(colInstitutionID, filter.InstitutionID))
		}

		var rows []domain.Authorship
		if filter.Field != "" {
			var (
				found bool
				err   error
			)
			rows, found, err = s.fieldAuthorships(ctx, filter.Field, q)
			if err != nil {
				return nil, err
			}
			if !found {
				logger.Debug().Str("field", filter.Field).Msg("no article matches field")
				return emptyAnalytics(filter), nil
			}
		} else {
			var err error
			rows, err = pipeline.FetchAll[domain.Authorship](ctx, s.fetcher, q, s.cfg.MaxJoinRows)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch authorships: %w", err)
			}
		}

		researchers := distinctResearchers(rows)
		result := &domain.AnalyticsResult{
			Filters: filter.echo(),
			Metrics: domain.MetricSummary{
				AverageHIndex: pipeline.Average(metricValues(researchers, func(r domain.Researcher) *int { return r.HIndex })),
				AverageRII:    pipeline.Average(metricValues(researchers, func(r domain.Researcher) *float64 { return r.RII })),
			},
			TopResearchers: rankResearchers(researchers, analyticsTopN),
		}
		if filter.CountryID != 0 && filter.InstitutionID == 0 {
			top := rankInstitutions(distinctInstitutions(rows), analyticsTopN)
			result.TopInstitutions = &top
		}

		logger.Debug().
			Int("authorships", len(rows)).
			Int("researchers", len(researchers)).
			Msg("analytics computed")
		return result, nil
	})
}

func emptyAnalytics(filter AnalyticsFilter) *domain.AnalyticsResult {
	return &domain.AnalyticsResult{
		Filters:        filter.echo(),
		TopResearchers: domain.EmptyRankings[domain.Researcher](),
	}
}
