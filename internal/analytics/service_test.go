package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/store"
	"github.com/helixir/research-analytics-service/internal/store/storetest"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

type fakeMetrics struct {
	mu       sync.Mutex
	useCases map[string]int
	failures map[string]int
	chunks   int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{useCases: map[string]int{}, failures: map[string]int{}}
}

func (m *fakeMetrics) RecordFetch(string, int, int, bool) {}

func (m *fakeMetrics) RecordChunks(_ string, chunks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks += chunks
}

func (m *fakeMetrics) RecordUseCase(useCase string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.useCases[useCase]++
	if err != nil {
		m.failures[useCase]++
	}
}

// blockingStore never answers a select before the context is done.
type blockingStore struct {
	*storetest.Memory
}

func (b blockingStore) Select(ctx context.Context, _ store.Query) ([]json.RawMessage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestService(t *testing.T, s store.Store, cfg Config) *Service {
	t.Helper()
	return NewService(s, cfg, zerolog.Nop(), nil)
}

func authorship(id, researcher, institution, country, article int64) map[string]any {
	return map[string]any{
		"id":             id,
		"researcher_id":  researcher,
		"institution_id": institution,
		"country_id":     country,
		"article_id":     article,
	}
}

// seedGraph builds a small graph: three researchers with partially unknown
// metrics, all affiliated to country 1, spread over two institutions.
func seedGraph() *storetest.Memory {
	m := storetest.NewMemory()
	m.Insert(tableCountries,
		domain.Country{ID: 1, Name: "Norway", ISOCode: strPtr("NO")},
		domain.Country{ID: 2, Name: "Chile", ISOCode: strPtr("CL")},
	)
	m.Insert(tableInstitutions,
		domain.Institution{ID: 1, Name: "University of Oslo", AverageHIndex: floatPtr(5), AverageRII: floatPtr(1)},
		domain.Institution{ID: 2, Name: "Oslo Metropolitan", AverageRII: floatPtr(2)},
		domain.Institution{ID: 3, Name: "Dormant Institute"},
	)
	m.Insert(tableResearchers,
		domain.Researcher{ID: 1, FullName: "Ada Lovelace", HIndex: intPtr(10), RII: floatPtr(1.2)},
		domain.Researcher{ID: 2, FullName: "Grace Hopper", RII: floatPtr(3.4)},
		domain.Researcher{ID: 3, FullName: "Alan Turing", HIndex: intPtr(20)},
	)
	m.Insert(tableArticles,
		domain.Article{ID: 1, Title: "Retail margins", ResearchAreaPath: strPtr("Business > Retail")},
		domain.Article{ID: 2, Title: "Learning machines", ResearchAreaPath: strPtr("Computer Science > AI")},
		domain.Article{ID: 3, Title: "Computable numbers", ResearchAreaPath: strPtr("Computer Science > Theory")},
	)
	m.Insert(tableAuthorships,
		authorship(1, 1, 1, 1, 1),
		authorship(2, 2, 2, 1, 2),
		authorship(3, 3, 1, 1, 2),
		authorship(4, 1, 1, 1, 3),
		authorship(5, 3, 3, 2, 3),
	)
	return m
}

func researcherIDs(rs []domain.Researcher) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func institutionIDs(is []domain.Institution) []int64 {
	out := make([]int64, len(is))
	for i, inst := range is {
		out[i] = inst.ID
	}
	return out
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown metrics are excluded from averages and rankings", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		res, err := svc.Analytics(ctx, AnalyticsFilter{CountryID: 1})
		require.NoError(t, err)

		assert.Equal(t, 15.0, res.Metrics.AverageHIndex)
		assert.Equal(t, 2.3, res.Metrics.AverageRII)
		assert.Equal(t, []int64{3, 1}, researcherIDs(res.TopResearchers.ByHIndex))
		assert.Equal(t, []int64{2, 1}, researcherIDs(res.TopResearchers.ByRII))

		require.NotNil(t, res.TopInstitutions)
		assert.Equal(t, []int64{1}, institutionIDs(res.TopInstitutions.ByHIndex))
		assert.Equal(t, []int64{2, 1}, institutionIDs(res.TopInstitutions.ByRII))

		require.NotNil(t, res.Filters.CountryID)
		assert.Equal(t, int64(1), *res.Filters.CountryID)
		assert.Nil(t, res.Filters.InstitutionID)
		assert.Nil(t, res.Filters.Field)
	})

	t.Run("institution filter omits institution rankings", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		res, err := svc.Analytics(ctx, AnalyticsFilter{CountryID: 1, InstitutionID: 1})
		require.NoError(t, err)
		assert.Nil(t, res.TopInstitutions)
		assert.Equal(t, []int64{3, 1}, researcherIDs(res.TopResearchers.ByHIndex))
		assert.Equal(t, []int64{1}, researcherIDs(res.TopResearchers.ByRII))
	})

	t.Run("field is verified against exact segments", func(t *testing.T) {
		m := seedGraph()
		svc := newTestService(t, m, DefaultConfig())

		// "ai" is a substring of "retail" but only article 2 has the segment.
		res, err := svc.Analytics(ctx, AnalyticsFilter{Field: "  AI "})
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, researcherIDs(res.TopResearchers.ByHIndex))
		assert.Equal(t, []int64{2}, researcherIDs(res.TopResearchers.ByRII))
		assert.Nil(t, res.TopInstitutions)

		for _, c := range m.CallsTo(tableAuthorships) {
			for _, f := range c.Query.Filters {
				if f.Op == store.OpIn {
					assert.Equal(t, []int64{2}, f.Value)
				}
			}
		}
	})

	t.Run("field without matching article short-circuits", func(t *testing.T) {
		m := seedGraph()
		svc := newTestService(t, m, DefaultConfig())

		res, err := svc.Analytics(ctx, AnalyticsFilter{CountryID: 1, Field: "physics"})
		require.NoError(t, err)
		assert.Equal(t, domain.MetricSummary{}, res.Metrics)
		assert.Empty(t, res.TopResearchers.ByHIndex)
		assert.NotNil(t, res.TopResearchers.ByHIndex)
		assert.Nil(t, res.TopInstitutions)
		assert.Empty(t, m.CallsTo(tableAuthorships))
	})

	t.Run("institution without country is rejected before any request", func(t *testing.T) {
		m := seedGraph()
		svc := newTestService(t, m, DefaultConfig())

		_, err := svc.Analytics(ctx, AnalyticsFilter{InstitutionID: 1})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "country_id", verr.Field)
		assert.Equal(t, "is required when institution_id is provided", verr.Message)
		assert.Empty(t, m.Calls())
	})

	t.Run("negative id is rejected", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		_, err := svc.Analytics(ctx, AnalyticsFilter{CountryID: -3})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("chunked join gives the same answer as a single chunk", func(t *testing.T) {
		build := func(chunk int) *domain.AnalyticsResult {
			m := storetest.NewMemory()
			for i := int64(1); i <= 30; i++ {
				m.Insert(tableArticles, domain.Article{ID: i, ResearchAreaPath: strPtr("Physics > Optics")})
				m.Insert(tableResearchers, domain.Researcher{ID: i, FullName: "r", HIndex: intPtr(int(i % 7)), RII: floatPtr(float64(i%5) / 2)})
				m.Insert(tableAuthorships, authorship(i, i, 1, 1, i), authorship(100+i, (i%4)+1, 1, 1, i))
			}
			cfg := DefaultConfig()
			cfg.ChunkSize = chunk
			cfg.PageSize = 7
			res, err := newTestService(t, m, cfg).Analytics(ctx, AnalyticsFilter{Field: "optics"})
			require.NoError(t, err)
			return res
		}

		assert.Equal(t, build(500), build(4))
	})
}

func TestAnalytics_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("store failure is service unavailable", func(t *testing.T) {
		m := seedGraph()
		m.Fail = func(string, store.Query) error { return errors.New("connection reset") }
		metrics := newFakeMetrics()
		svc := NewService(m, DefaultConfig(), zerolog.Nop(), metrics)

		res, err := svc.Analytics(ctx, AnalyticsFilter{CountryID: 1})
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
		assert.Equal(t, 1, metrics.failures["analytics"])
	})

	t.Run("deadline expiry is service unavailable", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RequestTimeout = 20 * time.Millisecond
		svc := newTestService(t, blockingStore{seedGraph()}, cfg)

		start := time.Now()
		_, err := svc.FieldOverview(ctx, "ai")
		assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("use cases are recorded", func(t *testing.T) {
		metrics := newFakeMetrics()
		svc := NewService(seedGraph(), DefaultConfig(), zerolog.Nop(), metrics)

		_, err := svc.Analytics(ctx, AnalyticsFilter{})
		require.NoError(t, err)
		_, err = svc.Analytics(ctx, AnalyticsFilter{InstitutionID: 2})
		require.Error(t, err)

		assert.Equal(t, 2, metrics.useCases["analytics"])
		assert.Equal(t, 1, metrics.failures["analytics"])
	})
}

func TestFields(t *testing.T) {
	ctx := context.Background()

	t.Run("search lists matching segments sorted", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		all, err := svc.SearchFields(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"ai", "business", "computer science", "retail", "theory"}, all)

		some, err := svc.SearchFields(ctx, "E")
		require.NoError(t, err)
		assert.Equal(t, []string{"business", "computer science", "retail", "theory"}, some)
	})

	t.Run("overview ranks researchers of the field", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		r, err := svc.FieldOverview(ctx, "computer science")
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 1}, researcherIDs(r.ByHIndex))
		assert.Equal(t, []int64{2, 1}, researcherIDs(r.ByRII))
	})

	t.Run("overview requires a field", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		_, err := svc.FieldOverview(ctx, "")
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "field", verr.Field)
		assert.Equal(t, "is required", verr.Message)
	})

	t.Run("countries are shares of authorships", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		shares, err := svc.FieldCountries(ctx, "computer science")
		require.NoError(t, err)
		require.Len(t, shares, 2)
		assert.Equal(t, domain.CountryShare{CountryID: 1, Country: "Norway", ISOCode: strPtr("NO"), Count: 3, Percentage: 75}, shares[0])
		assert.Equal(t, domain.CountryShare{CountryID: 2, Country: "Chile", ISOCode: strPtr("CL"), Count: 1, Percentage: 25}, shares[1])
	})

	t.Run("countries of an unknown field are empty", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		shares, err := svc.FieldCountries(ctx, "astronomy")
		require.NoError(t, err)
		assert.NotNil(t, shares)
		assert.Empty(t, shares)
	})

	t.Run("country researchers are restricted to the country", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		r, err := svc.FieldCountryResearchers(ctx, "theory", 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, researcherIDs(r.ByHIndex))
		assert.Empty(t, r.ByRII)

		_, err = svc.FieldCountryResearchers(ctx, "theory", 0)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestResearchers(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown researcher is absent", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		r, err := svc.Researcher(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, r)

		r, err = svc.Researcher(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, "Ada Lovelace", r.FullName)
	})

	t.Run("zero id is rejected", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		_, err := svc.Researcher(ctx, 0)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "researcher_id", verr.Field)
	})

	t.Run("articles are distinct in read order", func(t *testing.T) {
		m := seedGraph()
		m.Insert(tableAuthorships, authorship(6, 1, 2, 1, 1))
		svc := newTestService(t, m, DefaultConfig())

		articles, err := svc.ResearcherArticles(ctx, 1)
		require.NoError(t, err)
		require.Len(t, articles, 2)
		assert.Equal(t, int64(1), articles[0].ID)
		assert.Equal(t, int64(3), articles[1].ID)
		assert.Equal(t, "Computable numbers", articles[1].Title)
	})

	t.Run("coauthors exclude the researcher", func(t *testing.T) {
		m := storetest.NewMemory()
		m.Insert(tableResearchers,
			domain.Researcher{ID: 1, FullName: "Ada Lovelace ", CoAuthorship: strPtr("Mary Somerville/ Ada Lovelace /Charles Babbage//Mary Somerville")},
			domain.Researcher{ID: 2, FullName: "Solo"},
		)
		svc := newTestService(t, m, DefaultConfig())

		names, err := svc.ResearcherCoauthors(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []domain.Coauthor{{Name: "Charles Babbage"}, {Name: "Mary Somerville"}}, names)

		names, err = svc.ResearcherCoauthors(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, names)

		names, err = svc.ResearcherCoauthors(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("fields use the leaf segment", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		shares, err := svc.ResearcherFields(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []domain.FieldShare{
			{Field: "ai", Count: 1, Percentage: 50},
			{Field: "theory", Count: 1, Percentage: 50},
		}, shares)
	})

	t.Run("top researchers order unknown h-index last", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		top, err := svc.TopResearchers(ctx)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, domain.ResearcherSummary{ID: 3, Name: "Alan Turing", HIndex: intPtr(20)}, top[0])
		assert.Equal(t, int64(1), top[1].ID)
		assert.Equal(t, int64(2), top[2].ID)
	})

	t.Run("list is paginated with an exact total", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		page, err := svc.ListResearchers(ctx, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Equal(t, int64(2), page.TotalPages)
		assert.Equal(t, 2, page.Page)
		require.Len(t, page.Researchers, 1)
		assert.Equal(t, int64(2), page.Researchers[0].ID)
	})

	t.Run("list rejects out of range limits", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		for _, tc := range []struct {
			page, limit int
			field       string
		}{
			{0, 10, "page"},
			{1, 0, "limit"},
			{1, MaxPageLimit + 1, "limit"},
			{MaxPage + 1, 10, "page"},
			{math.MaxInt / 50, MaxPageLimit, "page"},
		} {
			_, err := svc.ListResearchers(ctx, tc.page, tc.limit)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "page=%d limit=%d: %v", tc.page, tc.limit, err)
			assert.Equal(t, tc.field, verr.Field)
			assert.False(t, errors.Is(err, domain.ErrServiceUnavailable))
		}
	})

	t.Run("last allowed page is an empty page, not an error", func(t *testing.T) {
		m := seedGraph()
		svc := newTestService(t, m, DefaultConfig())

		page, err := svc.ListResearchers(ctx, MaxPage, MaxPageLimit)
		require.NoError(t, err)
		assert.Empty(t, page.Researchers)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("search puts prefix matches first", func(t *testing.T) {
		m := storetest.NewMemory()
		m.Insert(tableResearchers,
			domain.Researcher{ID: 1, FullName: "Barbara Liskov"},
			domain.Researcher{ID: 2, FullName: "Lisa Su"},
			domain.Researcher{ID: 3, FullName: "Alice Lisbon"},
			domain.Researcher{ID: 4, FullName: "Bob Smith"},
		)
		svc := newTestService(t, m, DefaultConfig())

		names, err := svc.SearchResearchers(ctx, " lis")
		require.NoError(t, err)
		assert.Equal(t, []domain.EntityName{
			{ID: 2, Name: "Lisa Su"},
			{ID: 3, Name: "Alice Lisbon"},
			{ID: 1, Name: "Barbara Liskov"},
		}, names)

		names, err = svc.SearchResearchers(ctx, "   ")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestInstitutions(t *testing.T) {
	ctx := context.Background()

	t.Run("search keeps active institutions of the country", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		found, err := svc.SearchInstitutions(ctx, 1, "")
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 1}, institutionIDs(found))
		require.NotNil(t, found[0].AverageHIndex)
		assert.Equal(t, 0.0, *found[0].AverageHIndex)

		found, err = svc.SearchInstitutions(ctx, 1, "UNIVERSITY")
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, institutionIDs(found))

		found, err = svc.SearchInstitutions(ctx, 2, "")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("search requires a country", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		_, err := svc.SearchInstitutions(ctx, 0, "oslo")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("fields count every segment", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		shares, err := svc.InstitutionFields(ctx, 1)
		require.NoError(t, err)
		require.NotEmpty(t, shares)
		assert.Equal(t, domain.FieldShare{Field: "computer science", Count: 2, Percentage: 33.33}, shares[0])
	})

	t.Run("list skips inactive institutions", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		list, err := svc.ListInstitutions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 1}, institutionIDs(list))
	})

	t.Run("names list every institution", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		names, err := svc.InstitutionNames(ctx)
		require.NoError(t, err)
		assert.Len(t, names, 3)
		assert.Equal(t, domain.EntityName{ID: 1, Name: "University of Oslo"}, names[0])
	})

	t.Run("unknown institution is absent", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		inst, err := svc.Institution(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, inst)
	})
}

func TestCountries(t *testing.T) {
	ctx := context.Background()

	t.Run("search is ordered by name", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		all, err := svc.SearchCountries(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []domain.EntityName{{ID: 2, Name: "Chile"}, {ID: 1, Name: "Norway"}}, all)

		some, err := svc.SearchCountries(ctx, "NOR")
		require.NoError(t, err)
		assert.Equal(t, []domain.EntityName{{ID: 1, Name: "Norway"}}, some)
	})

	t.Run("institutions are ranked", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		r, err := svc.CountryInstitutions(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, institutionIDs(r.ByHIndex))
		assert.Equal(t, []int64{2, 1}, institutionIDs(r.ByRII))
	})

	t.Run("fields of a country", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		shares, err := svc.CountryFields(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []domain.FieldShare{
			{Field: "computer science", Count: 1, Percentage: 50},
			{Field: "theory", Count: 1, Percentage: 50},
		}, shares)
	})

	t.Run("list holds countries with authorships", func(t *testing.T) {
		m := seedGraph()
		m.Insert(tableCountries, domain.Country{ID: 3, Name: "Atlantis"})
		svc := newTestService(t, m, DefaultConfig())

		list, err := svc.ListCountries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.EntityName{{ID: 2, Name: "Chile"}, {ID: 1, Name: "Norway"}}, list)
	})

	t.Run("profile", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		c, err := svc.Country(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "NO", *c.ISOCode)
	})
}

func TestOverview(t *testing.T) {
	ctx := context.Background()

	t.Run("researchers drop unknown metrics", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		o, err := svc.OverviewResearchers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), o.Total)
		assert.Equal(t, []int64{3, 1}, researcherIDs(o.ByHIndex))
		assert.Equal(t, []int64{2, 1}, researcherIDs(o.ByRII))
	})

	t.Run("institutions", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		o, err := svc.OverviewInstitutions(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), o.Total)
		assert.Equal(t, []int64{1}, institutionIDs(o.ByHIndex))
	})

	t.Run("countries without averages", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		o, err := svc.OverviewCountries(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), o.Total)
		assert.Empty(t, o.ByHIndex)
		assert.Empty(t, o.ByRII)
	})

	t.Run("fields and stats", func(t *testing.T) {
		svc := newTestService(t, seedGraph(), DefaultConfig())

		f, err := svc.OverviewFields(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, f.Total)

		stats, err := svc.OverviewStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &domain.Stats{Researchers: 3, Countries: 2, Institutions: 3, Fields: 5}, stats)
	})

	t.Run("stats fail as a whole", func(t *testing.T) {
		m := seedGraph()
		m.Fail = func(op string, q store.Query) error {
			if op == "count" && q.Table == tableCountries {
				return errors.New("timeout")
			}
			return nil
		}
		svc := newTestService(t, m, DefaultConfig())

		stats, err := svc.OverviewStats(ctx)
		assert.Nil(t, stats)
		assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	})
}

func TestCoauthors(t *testing.T) {
	assert.Empty(t, coauthors("x", ""))
	assert.Equal(t, []domain.Coauthor{{Name: "b"}}, coauthors("a", "a/b/ b "))
}
