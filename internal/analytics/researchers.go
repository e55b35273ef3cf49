package analytics

import (
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

// coauthorDelimiter separates the names of the co_authorship column.
const coauthorDelimiter = "/"

// Researcher returns the profile of one researcher, or nil when the id is
// unknown.
func (s *Service) Researcher(ctx context.Context, id int64) (*domain.Researcher, error) {
	return run(ctx, s, "researcher", func(ctx context.Context, _ zerolog.Logger) (*domain.Researcher, error) {
		if err := s.validateID("researcher_id", id); err != nil {
			return nil, err
		}
		q := store.Query{Table: tableResearchers, Columns: researcherProfileColumns}.Where(store.Eq(colID, id))
		r, err := store.SelectOne[domain.Researcher](ctx, s.store, q)
		if err != nil {
			return nil, fmt.Errorf("failed to load researcher %d: %w", id, err)
		}
		return r, nil
	})
}

// ResearcherArticles returns the distinct articles of a researcher in the
// order their authorships were read.
func (s *Service) ResearcherArticles(ctx context.Context, id int64) ([]domain.Article, error) {
	return run(ctx, s, "researcher_articles", func(ctx context.Context, _ zerolog.Logger) ([]domain.Article, error) {
		if err := s.validateID("researcher_id", id); err != nil {
			return nil, err
		}
		rows, err := s.researcherAuthorships(ctx, id, articleListColumns...)
		if err != nil {
			return nil, err
		}
		return pipeline.Deduplicate(pipeline.Embedded(rows, articleOf)).Values(), nil
	})
}

// ResearcherCoauthors lists the distinct names of the researcher's
// co-authorship column, sorted, without the researcher's own name.
func (s *Service) ResearcherCoauthors(ctx context.Context, id int64) ([]domain.Coauthor, error) {
	return run(ctx, s, "researcher_coauthors", func(ctx context.Context, _ zerolog.Logger) ([]domain.Coauthor, error) {
		if err := s.validateID("researcher_id", id); err != nil {
			return nil, err
		}
		q := store.Query{Table: tableResearchers, Columns: []string{colID, colFullName, "co_authorship"}}.Where(store.Eq(colID, id))
		r, err := store.SelectOne[domain.Researcher](ctx, s.store, q)
		if err != nil {
			return nil, fmt.Errorf("failed to load researcher %d: %w", id, err)
		}
		if r == nil || r.CoAuthorship == nil {
			return []domain.Coauthor{}, nil
		}
		return coauthors(r.FullName, *r.CoAuthorship), nil
	})
}

func coauthors(self, raw string) []domain.Coauthor {
	self = strings.TrimSpace(self)

	names := make([]string, 0)
	for _, part := range strings.Split(raw, coauthorDelimiter) {
		name := strings.TrimSpace(part)
		if name == "" || name == self {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	names = slices.Compact(names)

	out := make([]domain.Coauthor, len(names))
	for i, n := range names {
		out[i] = domain.Coauthor{Name: n}
	}
	return out
}

// ResearcherFields breaks a researcher's articles down by the most specific
// segment of their research area.
func (s *Service) ResearcherFields(ctx context.Context, id int64) ([]domain.FieldShare, error) {
	return run(ctx, s, "researcher_fields", func(ctx context.Context, _ zerolog.Logger) ([]domain.FieldShare, error) {
		if err := s.validateID("researcher_id", id); err != nil {
			return nil, err
		}
		rows, err := s.researcherAuthorships(ctx, id, colID, colResearchAreaPath)
		if err != nil {
			return nil, err
		}
		counts := pipeline.Frequency(pipeline.Embedded(rows, articleOf), func(a domain.Article) (string, bool) {
			return taxonomy.Leaf(a.Path())
		})
		return pipeline.Shares(counts, researcherFieldsTopN), nil
	})
}

func (s *Service) researcherAuthorships(ctx context.Context, id int64, articleColumns ...string) ([]domain.Authorship, error) {
	q := authorshipQuery(colArticleID, embedArticles(articleColumns...)).Where(store.Eq(colResearcherID, id))
	rows, err := pipeline.FetchAll[domain.Authorship](ctx, s.fetcher, q, s.cfg.MaxJoinRows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch authorships of researcher %d: %w", id, err)
	}
	return rows, nil
}

// TopResearchers returns the five researchers with the highest h-index,
// ties broken by RII.
func (s *Service) TopResearchers(ctx context.Context) ([]domain.ResearcherSummary, error) {
	return run(ctx, s, "top_researchers", func(ctx context.Context, _ zerolog.Logger) ([]domain.ResearcherSummary, error) {
		q := store.Query{
			Table:   tableResearchers,
			Columns: []string{colID, colFullName, colHIndex, colRII},
		}.OrderBy(
			store.Order{Column: colHIndex, Desc: true},
			store.Order{Column: colRII, Desc: true},
		).Window(0, topResearchersN)

		rows, err := store.SelectAs[domain.Researcher](ctx, s.store, q)
		if err != nil {
			return nil, fmt.Errorf("failed to load top researchers: %w", err)
		}

		out := make([]domain.ResearcherSummary, len(rows))
		for i, r := range rows {
			out[i] = domain.ResearcherSummary{ID: r.ID, Name: r.FullName, HIndex: r.HIndex, RII: r.RII}
		}
		return out, nil
	})
}

// ListResearchers returns one page of researchers ordered by h-index.
func (s *Service) ListResearchers(ctx context.Context, page, limit int) (*domain.ResearcherPage, error) {
	return run(ctx, s, "list_researchers", func(ctx context.Context, _ zerolog.Logger) (*domain.ResearcherPage, error) {
		if err := s.validateStruct(pageFilter{Page: page, Limit: limit}); err != nil {
			return nil, err
		}

		base := store.Query{Table: tableResearchers, Columns: researcherColumns}
		total, err := s.store.Count(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("failed to count researchers: %w", err)
		}

		q := base.OrderBy(
			store.Order{Column: colHIndex, Desc: true},
			store.Order{Column: colID},
		).Window((page-1)*limit, limit)
		rows, err := store.SelectAs[domain.Researcher](ctx, s.store, q)
		if err != nil {
			return nil, fmt.Errorf("failed to load researcher page %d: %w", page, err)
		}

		return &domain.ResearcherPage{
			Researchers: rows,
			Total:       total,
			Page:        page,
			Limit:       limit,
			TotalPages:  (total + int64(limit) - 1) / int64(limit),
		}, nil
	})
}

// SearchResearchers autocompletes researcher names: names starting with
// query first, then names containing it, at most ten in total.
func (s *Service) SearchResearchers(ctx context.Context, query string) ([]domain.EntityName, error) {
	return run(ctx, s, "search_researchers", func(ctx context.Context, _ zerolog.Logger) ([]domain.EntityName, error) {
		if err := s.validateStruct(searchFilter{Query: query}); err != nil {
			return nil, err
		}
		query = strings.TrimSpace(query)
		if query == "" {
			return []domain.EntityName{}, nil
		}

		base := store.Query{
			Table:   tableResearchers,
			Columns: []string{colID, colFullName},
		}.OrderBy(store.Order{Column: colFullName}, store.Order{Column: colID}).Window(0, researcherSearchLimit)

		prefix, err := store.SelectAs[domain.Researcher](ctx, s.store, base.Where(store.HasPrefix(colFullName, query)))
		if err != nil {
			return nil, fmt.Errorf("failed to search researchers: %w", err)
		}
		matches := prefix
		if len(prefix) < researcherSearchLimit {
			contains, err := store.SelectAs[domain.Researcher](ctx, s.store, base.Where(store.Contains(colFullName, query)))
			if err != nil {
				return nil, fmt.Errorf("failed to search researchers: %w", err)
			}
			matches = append(matches, contains...)
		}

		found := pipeline.Deduplicate(matches).Values()
		if len(found) > researcherSearchLimit {
			found = found[:researcherSearchLimit]
		}
		out := make([]domain.EntityName, len(found))
		for i, r := range found {
			out[i] = domain.EntityName{ID: r.ID, Name: r.FullName}
		}
		return out, nil
	})
}
