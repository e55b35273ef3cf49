package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-analytics-service/internal/analytics"
	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/store"
	"github.com/helixir/research-analytics-service/internal/store/storetest"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

type httpObservation struct {
	route  string
	method string
	status int
}

// fakeMetrics records HTTP observations.
type fakeMetrics struct {
	mu   sync.Mutex
	seen []httpObservation
}

func (m *fakeMetrics) RecordHTTPRequest(route, method string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, httpObservation{route: route, method: method, status: status})
}

func (m *fakeMetrics) observations() []httpObservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]httpObservation(nil), m.seen...)
}

// seedStore returns a small research graph.
func seedStore() *storetest.Memory {
	m := storetest.NewMemory()
	m.Insert("country_info",
		domain.Country{ID: 1, Name: "Norway", ISOCode: strPtr("NO"), AverageHIndex: floatPtr(12.5), AverageRII: floatPtr(1.1)},
		domain.Country{ID: 2, Name: "Chile", ISOCode: strPtr("CL")},
	)
	m.Insert("institution_info",
		domain.Institution{ID: 1, Name: "University of Oslo", AverageHIndex: floatPtr(5), AverageRII: floatPtr(1)},
		domain.Institution{ID: 2, Name: "Oslo Metropolitan", AverageRII: floatPtr(2)},
	)
	m.Insert("researchers",
		domain.Researcher{ID: 1, FullName: "Ada Lovelace", HIndex: intPtr(10), RII: floatPtr(1.2), CoAuthorship: strPtr("Charles Babbage/Ada Lovelace")},
		domain.Researcher{ID: 2, FullName: "Grace Hopper", RII: floatPtr(3.4)},
		domain.Researcher{ID: 3, FullName: "Alan Turing", HIndex: intPtr(20)},
	)
	m.Insert("articles",
		domain.Article{ID: 1, Title: "Retail margins", ResearchAreaPath: strPtr("Business > Retail")},
		domain.Article{ID: 2, Title: "Learning machines", ResearchAreaPath: strPtr("Computer Science > AI")},
	)
	m.Insert("authorships",
		map[string]any{"id": 1, "researcher_id": 1, "institution_id": 1, "country_id": 1, "article_id": 1},
		map[string]any{"id": 2, "researcher_id": 2, "institution_id": 2, "country_id": 1, "article_id": 2},
		map[string]any{"id": 3, "researcher_id": 3, "institution_id": 1, "country_id": 2, "article_id": 2},
	)
	return m
}

// newTestHTTPServer creates a Server backed by an in-memory store.
func newTestHTTPServer(t *testing.T, m *storetest.Memory, metrics Metrics) *Server {
	t.Helper()
	svc := analytics.NewService(m, analytics.DefaultConfig(), zerolog.Nop(), nil)
	return NewServer(Config{Address: ":0", CORSAllowedOrigins: []string{"*"}}, svc, metrics, zerolog.Nop())
}

func doGet(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Tests: analytics
// ---------------------------------------------------------------------------

func TestGetAnalytics_CountryLevel(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	rr := doGet(t, s, "/analytics?country_id=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	res := decodeBody[domain.AnalyticsResult](t, rr)
	if res.Metrics.AverageHIndex != 10 {
		t.Errorf("expected average h-index 10, got %v", res.Metrics.AverageHIndex)
	}
	if res.Metrics.AverageRII != 2.3 {
		t.Errorf("expected average rii 2.3, got %v", res.Metrics.AverageRII)
	}
	if len(res.TopResearchers.ByHIndex) != 1 || res.TopResearchers.ByHIndex[0].ID != 1 {
		t.Errorf("unexpected h-index ranking: %+v", res.TopResearchers.ByHIndex)
	}
	if res.TopInstitutions == nil {
		t.Fatal("expected institution rankings for a country-level request")
	}
	if res.Filters.CountryID == nil || *res.Filters.CountryID != 1 {
		t.Errorf("expected echoed country_id 1, got %v", res.Filters.CountryID)
	}
}

func TestGetAnalytics_InstitutionWithoutCountry(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	rr := doGet(t, s, "/analytics?institution_id=1")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody[map[string]string](t, rr)
	if body["error"] != "country_id is required when institution_id is provided" {
		t.Errorf("unexpected error message: %q", body["error"])
	}
}

func TestGetAnalytics_MalformedID(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	rr := doGet(t, s, "/analytics?country_id=abc")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "abc") {
		t.Errorf("response echoes the raw parameter: %s", rr.Body.String())
	}
}

func TestGetAnalytics_UnknownFieldReturnsZeroedResult(t *testing.T) {
	m := seedStore()
	s := newTestHTTPServer(t, m, nil)

	rr := doGet(t, s, "/analytics?field=astronomy")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"by_h_index":[]`) {
		t.Errorf("expected empty ranking arrays, got %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"top_institutions":null`) {
		t.Errorf("expected null institution rankings, got %s", rr.Body.String())
	}
	if calls := m.CallsTo("authorships"); len(calls) != 0 {
		t.Errorf("expected no authorship query, got %d", len(calls))
	}
}

func TestGetAnalytics_StoreFailure(t *testing.T) {
	m := seedStore()
	m.Fail = func(string, store.Query) error { return errors.New("pq: connection refused to 10.0.0.7") }
	s := newTestHTTPServer(t, m, nil)

	rr := doGet(t, s, "/analytics?country_id=1")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "10.0.0.7") {
		t.Errorf("response leaks store details: %s", rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Tests: fields
// ---------------------------------------------------------------------------

func TestFieldRoutes(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	t.Run("search", func(t *testing.T) {
		rr := doGet(t, s, "/api/fields/search?q=ai")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		fields := decodeBody[[]string](t, rr)
		if len(fields) != 2 || fields[0] != "ai" || fields[1] != "retail" {
			t.Errorf("unexpected fields: %v", fields)
		}
	})

	t.Run("overview requires field", func(t *testing.T) {
		rr := doGet(t, s, "/api/field/overview")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("overview", func(t *testing.T) {
		rr := doGet(t, s, "/api/field/overview?field=AI")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		r := decodeBody[domain.Rankings[domain.Researcher]](t, rr)
		if len(r.ByHIndex) != 1 || r.ByHIndex[0].ID != 3 {
			t.Errorf("unexpected ranking: %+v", r.ByHIndex)
		}
	})

	t.Run("countries", func(t *testing.T) {
		rr := doGet(t, s, "/api/field/countries?field=ai")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		shares := decodeBody[[]domain.CountryShare](t, rr)
		if len(shares) != 2 || shares[0].Percentage != 50 {
			t.Errorf("unexpected shares: %+v", shares)
		}
	})

	t.Run("country researchers require country", func(t *testing.T) {
		rr := doGet(t, s, "/api/field/country/researchers?field=ai")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})
}

// ---------------------------------------------------------------------------
// Tests: entities
// ---------------------------------------------------------------------------

func TestResearcherRoutes(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	t.Run("overview", func(t *testing.T) {
		rr := doGet(t, s, "/api/researcher/1/overview")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		r := decodeBody[domain.Researcher](t, rr)
		if r.FullName != "Ada Lovelace" {
			t.Errorf("unexpected researcher: %+v", r)
		}
	})

	t.Run("unknown researcher is null", func(t *testing.T) {
		rr := doGet(t, s, "/api/researcher/404/overview")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if strings.TrimSpace(rr.Body.String()) != "null" {
			t.Errorf("expected null, got %s", rr.Body.String())
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		rr := doGet(t, s, "/api/researcher/ada/articles")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("coauthors", func(t *testing.T) {
		rr := doGet(t, s, "/api/researcher/1/coauthors")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		names := decodeBody[[]domain.Coauthor](t, rr)
		if len(names) != 1 || names[0].Name != "Charles Babbage" {
			t.Errorf("unexpected coauthors: %+v", names)
		}
	})

	t.Run("fields", func(t *testing.T) {
		rr := doGet(t, s, "/api/researcher/1/fields")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		shares := decodeBody[[]domain.FieldShare](t, rr)
		if len(shares) != 1 || shares[0].Field != "retail" || shares[0].Percentage != 100 {
			t.Errorf("unexpected shares: %+v", shares)
		}
	})

	t.Run("top five", func(t *testing.T) {
		rr := doGet(t, s, "/api/researchers/top5/hindex-rii")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		top := decodeBody[[]domain.ResearcherSummary](t, rr)
		if len(top) != 3 || top[0].ID != 3 {
			t.Errorf("unexpected top researchers: %+v", top)
		}
	})

	t.Run("directory defaults", func(t *testing.T) {
		rr := doGet(t, s, "/api/researchers/all")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		page := decodeBody[domain.ResearcherPage](t, rr)
		if page.Page != 1 || page.Limit != 20 || page.Total != 3 || page.TotalPages != 1 {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("directory rejects oversized limit", func(t *testing.T) {
		rr := doGet(t, s, fmt.Sprintf("/api/researchers/all?limit=%d", analytics.MaxPageLimit+1))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("directory rejects a page past the offset range", func(t *testing.T) {
		rr := doGet(t, s, fmt.Sprintf("/api/researchers/all?page=%d&limit=100", math.MaxInt/50))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
		}
		if !strings.Contains(rr.Body.String(), "page must be at most") {
			t.Errorf("unexpected body: %s", rr.Body.String())
		}
	})

	t.Run("search", func(t *testing.T) {
		rr := doGet(t, s, "/api/researchers/search?q=a")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		names := decodeBody[[]domain.EntityName](t, rr)
		if len(names) != 3 || names[0].Name != "Ada Lovelace" || names[1].Name != "Alan Turing" {
			t.Errorf("unexpected names: %+v", names)
		}
	})
}

func TestInstitutionRoutes(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	t.Run("search requires country", func(t *testing.T) {
		rr := doGet(t, s, "/api/institutions/search?q=oslo")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("search", func(t *testing.T) {
		rr := doGet(t, s, "/api/institutions/search?country_id=1&q=oslo")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		found := decodeBody[[]domain.Institution](t, rr)
		if len(found) != 2 || found[0].ID != 2 {
			t.Errorf("unexpected institutions: %+v", found)
		}
	})

	t.Run("names", func(t *testing.T) {
		rr := doGet(t, s, "/api/institutions")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		names := decodeBody[[]domain.EntityName](t, rr)
		if len(names) != 2 {
			t.Errorf("unexpected names: %+v", names)
		}
	})

	t.Run("fields", func(t *testing.T) {
		rr := doGet(t, s, "/api/institution/1/fields")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		shares := decodeBody[[]domain.FieldShare](t, rr)
		if len(shares) != 4 {
			t.Errorf("expected 4 segments, got %+v", shares)
		}
	})
}

func TestCountryRoutes(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	t.Run("list", func(t *testing.T) {
		rr := doGet(t, s, "/api/countries")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		list := decodeBody[[]domain.EntityName](t, rr)
		if len(list) != 2 || list[0].Name != "Chile" {
			t.Errorf("unexpected countries: %+v", list)
		}
	})

	t.Run("institutions", func(t *testing.T) {
		rr := doGet(t, s, "/api/country/1/institutions")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		r := decodeBody[domain.Rankings[domain.Institution]](t, rr)
		if len(r.ByRII) != 2 || r.ByRII[0].ID != 2 {
			t.Errorf("unexpected ranking: %+v", r.ByRII)
		}
	})

	t.Run("overview", func(t *testing.T) {
		rr := doGet(t, s, "/api/country/1/overview")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		c := decodeBody[domain.Country](t, rr)
		if c.Name != "Norway" {
			t.Errorf("unexpected country: %+v", c)
		}
	})
}

func TestOverviewRoutes(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	rr := doGet(t, s, "/api/overview/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	stats := decodeBody[domain.Stats](t, rr)
	want := domain.Stats{Researchers: 3, Countries: 2, Institutions: 2, Fields: 4}
	if stats != want {
		t.Errorf("expected %+v, got %+v", want, stats)
	}

	rr = doGet(t, s, "/api/overview/countries")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	o := decodeBody[domain.EntityOverview[domain.Country]](t, rr)
	if o.Total != 2 || len(o.ByHIndex) != 1 || o.ByHIndex[0].ID != 1 {
		t.Errorf("unexpected overview: %+v", o)
	}
}

// ---------------------------------------------------------------------------
// Tests: health and errors
// ---------------------------------------------------------------------------

func TestHealthAndReadiness(t *testing.T) {
	m := seedStore()
	s := newTestHTTPServer(t, m, nil)

	if rr := doGet(t, s, "/healthz"); rr.Code != http.StatusOK {
		t.Errorf("expected healthz 200, got %d", rr.Code)
	}
	if rr := doGet(t, s, "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("expected readyz 200, got %d", rr.Code)
	}

	m.Fail = func(op string, _ store.Query) error {
		if op == "ping" {
			return errors.New("down")
		}
		return nil
	}
	if rr := doGet(t, s, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected readyz 503, got %d", rr.Code)
	}
}

func TestWriteDomainError_Mappings(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"validation error", domain.NewValidationError("field", "is required"), http.StatusBadRequest},
		{"service unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"store error", domain.NewStoreError("postgrest", "select", "articles", 502, errors.New("bad gateway")), http.StatusServiceUnavailable},
		{"internal error", domain.ErrInternalError, http.StatusInternalServerError},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"rejected store query", fmt.Errorf("memory select researchers: %w", store.ErrInvalidQuery), http.StatusInternalServerError},
	}

	s := newTestHTTPServer(t, storetest.NewMemory(), nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			s.writeDomainError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			if rr.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d", tc.expectedStatus, rr.Code)
			}
		})
	}
}

func TestRequestMetrics_UseRoutePattern(t *testing.T) {
	metrics := &fakeMetrics{}
	s := newTestHTTPServer(t, seedStore(), metrics)

	doGet(t, s, "/api/researcher/1/overview")
	doGet(t, s, "/api/researcher/2/overview")
	doGet(t, s, "/does-not-exist")

	seen := metrics.observations()
	if len(seen) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(seen))
	}
	for _, o := range seen[:2] {
		if o.route != "/api/researcher/{researcherID}/overview" || o.status != http.StatusOK {
			t.Errorf("unexpected observation: %+v", o)
		}
	}
	if seen[2].status != http.StatusNotFound {
		t.Errorf("expected 404 for unknown route, got %+v", seen[2])
	}
}

func TestConcurrentRequests(t *testing.T) {
	s := newTestHTTPServer(t, seedStore(), nil)

	var wg sync.WaitGroup
	errs := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := doGet(t, s, "/analytics?country_id=1&field=ai")
			if rr.Code != http.StatusOK {
				errs <- fmt.Sprintf("status %d", rr.Code)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	s := newTestHTTPServer(t, storetest.NewMemory(), nil)
	s.logger = zerolog.New(&buf)

	req := httptest.NewRequest(http.MethodGet, "/api/overview/stats", nil)
	rr := httptest.NewRecorder()
	s.writeJSON(rr, req, http.StatusOK, map[string]float64{"avg": math.Inf(1)})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected the status to be sent before encoding, got %d", rr.Code)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one log entry, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" || entry["message"] != "failed to write response body" {
		t.Errorf("unexpected log entry: %v", entry)
	}
	if entry["path"] != "/api/overview/stats" {
		t.Errorf("expected the request path in the log entry, got %v", entry["path"])
	}
}
