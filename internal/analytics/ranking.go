package analytics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/pipeline"
	"github.com/helixir/research-analytics-service/internal/store"
	"github.com/helixir/research-analytics-service/internal/taxonomy"
)

// fieldArticleIDs returns the ids of the articles whose research area path
// has field as one of its segments, in id order, capped at MaxArticleIDs.
// The store pre-filters with a substring match that over-matches, so every
// candidate is verified against the normalized segments.
func (s *Service) fieldArticleIDs(ctx context.Context, field string) ([]int64, error) {
	pattern, ok := taxonomy.PushDownPattern(field)
	if !ok {
		return []int64{}, nil
	}

	q := store.Query{
		Table:   tableArticles,
		Columns: []string{colID, colResearchAreaPath},
	}.Where(store.Contains(colResearchAreaPath, pattern))

	keep := func(a domain.Article) bool { return taxonomy.Contains(a.Path(), pattern) }
	articles, err := pipeline.FetchFiltered(ctx, s.fetcher, q, keep, s.cfg.MaxArticleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to collect articles for field %q: %w", pattern, err)
	}

	ids := make([]int64, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	return ids, nil
}

// fieldAuthorships resolves the authorships of the articles in field,
// joined through q. It reports false when no article matches.
func (s *Service) fieldAuthorships(ctx context.Context, field string, q store.Query) ([]domain.Authorship, bool, error) {
	ids, err := s.fieldArticleIDs(ctx, field)
	if err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}

	rows, err := pipeline.Resolve[domain.Authorship](ctx, s.resolver, ids, pipeline.Join{
		Query:   q,
		Column:  colArticleID,
		MaxRows: s.cfg.MaxJoinRows,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve authorships: %w", err)
	}
	return rows, true, nil
}

func researcherOf(a domain.Authorship) *domain.Researcher   { return a.Researcher }
func institutionOf(a domain.Authorship) *domain.Institution { return a.Institution }
func articleOf(a domain.Authorship) *domain.Article         { return a.Article }

func researcherID(r domain.Researcher) int64   { return r.ID }
func institutionID(i domain.Institution) int64 { return i.ID }
func countryID(c domain.Country) int64         { return c.ID }

// distinctResearchers folds the researchers embedded in rows.
func distinctResearchers(rows []domain.Authorship) []domain.Researcher {
	return pipeline.Deduplicate(pipeline.Embedded(rows, researcherOf)).Values()
}

// distinctInstitutions folds the institutions embedded in rows.
func distinctInstitutions(rows []domain.Authorship) []domain.Institution {
	return pipeline.Deduplicate(pipeline.Embedded(rows, institutionOf)).Values()
}

// rankResearchers selects the top n researchers by h-index and by RII.
func rankResearchers(researchers []domain.Researcher, n int) domain.Rankings[domain.Researcher] {
	return domain.Rankings[domain.Researcher]{
		ByHIndex: pipeline.SelectTop(researchers, pipeline.Known(func(r domain.Researcher) *int { return r.HIndex }), n, researcherID),
		ByRII:    pipeline.SelectTop(researchers, pipeline.Known(func(r domain.Researcher) *float64 { return r.RII }), n, researcherID),
	}
}

// rankInstitutions selects the top n institutions by average h-index and
// by average RII.
func rankInstitutions(institutions []domain.Institution, n int) domain.Rankings[domain.Institution] {
	return domain.Rankings[domain.Institution]{
		ByHIndex: pipeline.SelectTop(institutions, pipeline.Known(func(i domain.Institution) *float64 { return i.AverageHIndex }), n, institutionID),
		ByRII:    pipeline.SelectTop(institutions, pipeline.Known(func(i domain.Institution) *float64 { return i.AverageRII }), n, institutionID),
	}
}

// metricValues extracts one nullable metric from every item.
func metricValues[T any, M any](items []T, get func(T) *M) []*M {
	out := make([]*M, len(items))
	for i, it := range items {
		out[i] = get(it)
	}
	return out
}

// activeInstitutions keeps the institutions with a positive average, unknown
// averages reported as zero, sorted by average RII descending and then by
// id, truncated to n.
func activeInstitutions(institutions []domain.Institution, query string, n int) []domain.Institution {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]domain.Institution, 0, len(institutions))
	for _, inst := range institutions {
		if !inst.HasActivity() {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(inst.Name), query) {
			continue
		}
		out = append(out, domain.Institution{
			ID:            inst.ID,
			Name:          inst.Name,
			AverageHIndex: zeroIfUnknown(inst.AverageHIndex),
			AverageRII:    zeroIfUnknown(inst.AverageRII),
		})
	}

	slices.SortFunc(out, func(a, b domain.Institution) int {
		if c := cmp.Compare(*b.AverageRII, *a.AverageRII); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func zeroIfUnknown(v *float64) *float64 {
	if v != nil {
		return v
	}
	zero := 0.0
	return &zero
}

// fieldShares counts every segment of the embedded article paths once per
// row and returns the top n shares.
func fieldShares(rows []domain.Authorship, n int) []domain.FieldShare {
	articles := pipeline.Embedded(rows, articleOf)
	counts := pipeline.FrequencyEach(articles, func(a domain.Article) []string {
		return taxonomy.Normalize(a.Path())
	})
	return pipeline.Shares(counts, n)
}
