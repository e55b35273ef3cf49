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
	"github.com/helixir/research-analytics-service/internal/taxonomy"
)

// SearchFields returns the distinct taxonomy segments containing query,
// sorted. An empty query lists every segment.
func (s *Service) SearchFields(ctx context.Context, query string) ([]string, error) {
	return run(ctx, s, "search_fields", func(ctx context.Context, _ zerolog.Logger) ([]string, error) {
		if err := s.validateStruct(searchFilter{Query: query}); err != nil {
			return nil, err
		}
		query = taxonomy.NormalizeField(query)

		q := store.Query{Table: tableArticles, Columns: []string{colID, colResearchAreaPath}}
		if query != "" {
			q = q.Where(store.Contains(colResearchAreaPath, query))
		}
		articles, err := pipeline.FetchAll[domain.Article](ctx, s.fetcher, q, s.cfg.FieldScanMaxRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan articles: %w", err)
		}

		segments := taxonomy.Distinct(articlePaths(articles))
		out := make([]string, 0, len(segments))
		for seg := range segments {
			if strings.Contains(seg, query) {
				out = append(out, seg)
			}
		}
		slices.Sort(out)
		return out, nil
	})
}

// FieldOverview ranks the researchers who authored articles in field.
func (s *Service) FieldOverview(ctx context.Context, field string) (domain.Rankings[domain.Researcher], error) {
	return run(ctx, s, "field_overview", func(ctx context.Context, _ zerolog.Logger) (domain.Rankings[domain.Researcher], error) {
		if err := s.validateStruct(fieldFilter{Field: field}); err != nil {
			return domain.Rankings[domain.Researcher]{}, err
		}

		q := authorshipQuery(colResearcherID, embedResearchers(colID, colFullName, colHIndex, colRII))
		rows, found, err := s.fieldAuthorships(ctx, field, q)
		if err != nil {
			return domain.Rankings[domain.Researcher]{}, err
		}
		if !found {
			return domain.EmptyRankings[domain.Researcher](), nil
		}
		return rankResearchers(distinctResearchers(rows), fieldOverviewTopN), nil
	})
}

// FieldCountries breaks the authorships of field down by country. Shares
// are sorted by count descending and then by country id.
func (s *Service) FieldCountries(ctx context.Context, field string) ([]domain.CountryShare, error) {
	return run(ctx, s, "field_countries", func(ctx context.Context, _ zerolog.Logger) ([]domain.CountryShare, error) {
		if err := s.validateStruct(fieldFilter{Field: field}); err != nil {
			return nil, err
		}

		q := authorshipQuery(colCountryID, embedCountries(colID, colName, "iso_code"))
		rows, found, err := s.fieldAuthorships(ctx, field, q)
		if err != nil {
			return nil, err
		}
		if !found {
			return []domain.CountryShare{}, nil
		}

		countries := pipeline.Deduplicate(pipeline.Embedded(rows, func(a domain.Authorship) *domain.Country { return a.Country }))
		counts := pipeline.Frequency(rows, func(a domain.Authorship) (int64, bool) {
			if a.Country == nil {
				return 0, false
			}
			return a.Country.ID, true
		})

		total := 0
		for _, c := range counts {
			total += c
		}

		shares := make([]domain.CountryShare, 0, len(counts))
		for _, country := range countries.Values() {
			count := counts[country.ID]
			shares = append(shares, domain.CountryShare{
				CountryID:  country.ID,
				Country:    country.Name,
				ISOCode:    country.ISOCode,
				Count:      count,
				Percentage: pipeline.Percentage(count, total),
			})
		}
		slices.SortFunc(shares, func(a, b domain.CountryShare) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			return cmp.Compare(a.CountryID, b.CountryID)
		})
		return shares, nil
	})
}

// FieldCountryResearchers ranks the researchers of one country who
// authored articles in field.
func (s *Service) FieldCountryResearchers(ctx context.Context, field string, countryID int64) (domain.Rankings[domain.Researcher], error) {
	return run(ctx, s, "field_country_researchers", func(ctx context.Context, _ zerolog.Logger) (domain.Rankings[domain.Researcher], error) {
		if err := s.validateStruct(fieldCountryFilter{Field: field, CountryID: countryID}); err != nil {
			return domain.Rankings[domain.Researcher]{}, err
		}

		q := store.Query{
			Table:   tableAuthorships,
			Columns: []string{colResearcherID, colCountryID},
			Embeds:  []store.Embed{embedResearchers(researcherColumns...)},
		}.Where(store.Eq(colCountryID, countryID))

		rows, found, err := s.fieldAuthorships(ctx, field, q)
		if err != nil {
			return domain.Rankings[domain.Researcher]{}, err
		}
		if !found {
			return domain.EmptyRankings[domain.Researcher](), nil
		}
		return rankResearchers(distinctResearchers(rows), fieldCountryTopN), nil
	})
}

// OverviewFields counts the distinct taxonomy segments.
func (s *Service) OverviewFields(ctx context.Context) (domain.FieldTotal, error) {
	return run(ctx, s, "overview_fields", func(ctx context.Context, _ zerolog.Logger) (domain.FieldTotal, error) {
		n, err := s.countFields(ctx)
		if err != nil {
			return domain.FieldTotal{}, err
		}
		return domain.FieldTotal{Total: n}, nil
	})
}

// countFields scans article paths and counts their distinct segments.
func (s *Service) countFields(ctx context.Context) (int, error) {
	q := store.Query{Table: tableArticles, Columns: []string{colID, colResearchAreaPath}}
	articles, err := pipeline.FetchAll[domain.Article](ctx, s.fetcher, q, s.cfg.FieldScanMaxRows)
	if err != nil {
		return 0, fmt.Errorf("failed to scan articles: %w", err)
	}
	return len(taxonomy.Distinct(articlePaths(articles))), nil
}

func articlePaths(articles []domain.Article) []string {
	paths := make([]string, 0, len(articles))
	for _, a := range articles {
		if p := a.Path(); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
