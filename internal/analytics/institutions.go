package analytics

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/pipeline"
	"github.com/helixir/research-analytics-service/internal/store"
)

// SearchInstitutions lists the active institutions with authorships in a
// country whose name contains query, best average RII first.
func (s *Service) SearchInstitutions(ctx context.Context, countryID int64, query string) ([]domain.Institution, error) {
	return run(ctx, s, "search_institutions", func(ctx context.Context, _ zerolog.Logger) ([]domain.Institution, error) {
		if err := s.validateStruct(countryFilter{CountryID: countryID, Query: query}); err != nil {
			return nil, err
		}
		rows, err := s.countryAuthorships(ctx, countryID, s.cfg.MaxJoinRows)
		if err != nil {
			return nil, err
		}
		return activeInstitutions(distinctInstitutions(rows), query, institutionSearchLimit), nil
	})
}

// Institution returns the profile of one institution, or nil when the id
// is unknown.
func (s *Service) Institution(ctx context.Context, id int64) (*domain.Institution, error) {
	return run(ctx, s, "institution", func(ctx context.Context, _ zerolog.Logger) (*domain.Institution, error) {
		if err := s.validateID("institution_id", id); err != nil {
			return nil, err
		}
		q := store.Query{Table: tableInstitutions, Columns: institutionProfile}.Where(store.Eq(colID, id))
		inst, err := store.SelectOne[domain.Institution](ctx, s.store, q)
		if err != nil {
			return nil, fmt.Errorf("failed to load institution %d: %w", id, err)
		}
		return inst, nil
	})
}

// InstitutionFields breaks the articles of an institution down by taxonomy
// segment. The authorship scan is capped at MaxScanRows.
func (s *Service) InstitutionFields(ctx context.Context, id int64) ([]domain.FieldShare, error) {
	return run(ctx, s, "institution_fields", func(ctx context.Context, _ zerolog.Logger) ([]domain.FieldShare, error) {
		if err := s.validateID("institution_id", id); err != nil {
			return nil, err
		}
		q := authorshipQuery(colArticleID, embedArticles(colID, colResearchAreaPath)).Where(store.Eq(colInstitutionID, id))
		rows, err := pipeline.FetchAll[domain.Authorship](ctx, s.fetcher, q, s.cfg.MaxScanRows)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch authorships of institution %d: %w", id, err)
		}
		return fieldShares(rows, institutionFieldsTopN), nil
	})
}

// ListInstitutions returns the active institutions, best average RII first.
func (s *Service) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	return run(ctx, s, "list_institutions", func(ctx context.Context, _ zerolog.Logger) ([]domain.Institution, error) {
		q := store.Query{Table: tableInstitutions, Columns: institutionColumns}
		institutions, err := pipeline.FetchAll[domain.Institution](ctx, s.fetcher, q, s.cfg.MaxJoinRows)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch institutions: %w", err)
		}
		return activeInstitutions(institutions, "", institutionListLimit), nil
	})
}

// InstitutionNames lists the id and name of every institution.
func (s *Service) InstitutionNames(ctx context.Context) ([]domain.EntityName, error) {
	return run(ctx, s, "institution_names", func(ctx context.Context, _ zerolog.Logger) ([]domain.EntityName, error) {
		q := store.Query{Table: tableInstitutions, Columns: []string{colID, colName}}
		names, err := pipeline.FetchAll[domain.EntityName](ctx, s.fetcher, q, s.cfg.MaxJoinRows)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch institution names: %w", err)
		}
		return names, nil
	})
}

// countryAuthorships pages through the authorships of a country with their
// institutions expanded.
func (s *Service) countryAuthorships(ctx context.Context, countryID int64, maxRows int) ([]domain.Authorship, error) {
	q := authorshipQuery(colInstitutionID, embedInstitutions(institutionColumns...)).Where(store.Eq(colCountryID, countryID))
	rows, err := pipeline.FetchAll[domain.Authorship](ctx, s.fetcher, q, maxRows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch authorships of country %d: %w", countryID, err)
	}
	return rows, nil
}
