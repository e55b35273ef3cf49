package analytics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/pipeline"
	"github.com/helixir/research-analytics-service/internal/store"
)

// SearchCountries autocompletes country names, ordered by name.
func (s *Service) SearchCountries(ctx context.Context, query string) ([]domain.EntityName, error) {
	return run(ctx, s, "search_countries", func(ctx context.Context, _ zerolog.Logger) ([]domain.EntityName, error) {
		if err := s.validateStruct(searchFilter{Query: query}); err != nil {
			return nil, err
		}

		q := store.Query{
			Table:   tableCountries,
			Columns: []string{colID, colName},
		}.OrderBy(store.Order{Column: colName}, store.Order{Column: colID}).Window(0, countrySearchLimit)
		if query = strings.TrimSpace(query); query != "" {
			q = q.Where(store.Contains(colName, query))
		}

		countries, err := store.SelectAs[domain.EntityName](ctx, s.store, q)
		if err != nil {
			return nil, fmt.Errorf("failed to search countries: %w", err)
		}
		return countries, nil
	})
}

// Country returns the profile of one country, or nil when the id is
// unknown.
func (s *Service) Country(ctx context.Context, id int64) (*domain.Country, error) {
	return run(ctx, s, "country", func(ctx context.Context, _ zerolog.Logger) (*domain.Country, error) {
		if err := s.validateID("country_id", id); err != nil {
			return nil, err
		}
		q := store.Query{Table: tableCountries, Columns: countryProfile}.Where(store.Eq(colID, id))
		c, err := store.SelectOne[domain.Country](ctx, s.store, q)
		if err != nil {
			return nil, fmt.Errorf("failed to load country %d: %w", id, err)
		}
		return c, nil
	})
}

// CountryInstitutions ranks the institutions with authorships in a country.
func (s *Service) CountryInstitutions(ctx context.Context, id int64) (domain.Rankings[domain.Institution], error) {
	return run(ctx, s, "country_institutions", func(ctx context.Context, _ zerolog.Logger) (domain.Rankings[domain.Institution], error) {
		if err := s.validateID("country_id", id); err != nil {
			return domain.Rankings[domain.Institution]{}, err
		}
		rows, err := s.countryAuthorships(ctx, id, s.cfg.MaxJoinRows)
		if err != nil {
			return domain.Rankings[domain.Institution]{}, err
		}
		return rankInstitutions(distinctInstitutions(rows), countryInstitutionsTopN), nil
	})
}

// CountryFields breaks the articles of a country down by taxonomy segment.
func (s *Service) CountryFields(ctx context.Context, id int64) ([]domain.FieldShare, error) {
	return run(ctx, s, "country_fields", func(ctx context.Context, _ zerolog.Logger) ([]domain.FieldShare, error) {
		if err := s.validateID("country_id", id); err != nil {
			return nil, err
		}
		q := authorshipQuery(colArticleID, embedArticles(colID, colResearchAreaPath)).Where(store.Eq(colCountryID, id))
		rows, err := pipeline.FetchAll[domain.Authorship](ctx, s.fetcher, q, s.cfg.MaxJoinRows)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch authorships of country %d: %w", id, err)
		}
		return fieldShares(rows, countryFieldsTopN), nil
	})
}

// ListCountries lists the countries that appear in authorships, sorted by
// name. The authorship scan is capped at MaxScanRows.
func (s *Service) ListCountries(ctx context.Context) ([]domain.EntityName, error) {
	return run(ctx, s, "list_countries", func(ctx context.Context, _ zerolog.Logger) ([]domain.EntityName, error) {
		q := authorshipQuery(colCountryID, embedCountries(colID, colName))
		rows, err := pipeline.FetchAll[domain.Authorship](ctx, s.fetcher, q, s.cfg.MaxScanRows)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch authorships: %w", err)
		}

		countries := pipeline.Deduplicate(pipeline.Embedded(rows, func(a domain.Authorship) *domain.Country { return a.Country })).Values()
		out := make([]domain.EntityName, len(countries))
		for i, c := range countries {
			out[i] = domain.EntityName{ID: countryID(c), Name: c.Name}
		}
		slices.SortFunc(out, func(a, b domain.EntityName) int {
			if c := strings.Compare(a.Name, b.Name); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		return out, nil
	})
}
