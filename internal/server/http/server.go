// Package httpserver provides the HTTP JSON API of the research analytics service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/helixir/research-analytics-service/internal/analytics"
	"github.com/helixir/research-analytics-service/internal/observability"
)

// Metrics receives one observation per served request.
type Metrics interface {
	RecordHTTPRequest(route, method string, status int, duration time.Duration)
}

// Server is the HTTP API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	analytics   *analytics.Service
	metrics     Metrics
	logger      zerolog.Logger
	corsOrigins []string
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// CORSAllowedOrigins lists the origins allowed to call the API.
	// "*" allows any origin.
	CORSAllowedOrigins []string
}

// NewServer creates a new HTTP server. metrics may be nil.
func NewServer(cfg Config, svc *analytics.Service, metrics Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		analytics:   svc,
		metrics:     metrics,
		logger:      logger.With().Str("component", "http-server").Logger(),
		corsOrigins: cfg.CORSAllowedOrigins,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(corsMiddleware(s.corsOrigins))
	r.Use(s.requestLogMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Get("/analytics", s.getAnalytics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/fields/search", s.searchFields)
		r.Get("/field/overview", s.getFieldOverview)
		r.Get("/field/countries", s.getFieldCountries)
		r.Get("/field/country/researchers", s.getFieldCountryResearchers)

		r.Get("/researcher/{researcherID}/overview", s.getResearcher)
		r.Get("/researcher/{researcherID}/articles", s.getResearcherArticles)
		r.Get("/researcher/{researcherID}/coauthors", s.getResearcherCoauthors)
		r.Get("/researcher/{researcherID}/fields", s.getResearcherFields)
		r.Get("/researchers/top5/hindex-rii", s.getTopResearchers)
		r.Get("/researchers/all", s.listResearchers)
		r.Get("/researchers/search", s.searchResearchers)

		r.Get("/institutions/search", s.searchInstitutions)
		r.Get("/institution/{institutionID}/overview", s.getInstitution)
		r.Get("/institution/{institutionID}/fields", s.getInstitutionFields)
		r.Get("/institutions/all", s.listInstitutions)
		r.Get("/institutions", s.listInstitutionNames)

		r.Get("/countries/search", s.searchCountries)
		r.Get("/country/{countryID}/overview", s.getCountry)
		r.Get("/country/{countryID}/institutions", s.getCountryInstitutions)
		r.Get("/country/{countryID}/fields", s.getCountryFields)
		r.Get("/countries", s.listCountries)

		r.Get("/overview/countries", s.getOverviewCountries)
		r.Get("/overview/institutions", s.getOverviewInstitutions)
		r.Get("/overview/researchers", s.getOverviewResearchers)
		r.Get("/overview/fields", s.getOverviewFields)
		r.Get("/overview/stats", s.getOverviewStats)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the store answers.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.analytics.Ping(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		s.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"store":  "unreachable",
		})
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ready",
		"store":  "reachable",
	})
}

// writeJSON writes a JSON response with the given status code. Encoding
// failures are logged; the status line has already been sent.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := observability.FromContext(r.Context(), s.logger)
		logger.Warn().Err(err).
			Str("path", r.URL.Path).
			Int("status", statusCode).
			Msg("failed to write response body")
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	s.writeJSON(w, r, statusCode, map[string]string{
		"error": message,
	})
}
