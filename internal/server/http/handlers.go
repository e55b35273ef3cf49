package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/research-analytics-service/internal/analytics"
	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/observability"
)

// Pagination defaults of the researcher directory.
const (
	defaultPage     = 1
	defaultPageSize = 20
)

// getAnalytics handles GET /analytics.
func (s *Server) getAnalytics(w http.ResponseWriter, r *http.Request) {
	countryID, ok := s.parseOptionalID(w, r, "country_id")
	if !ok {
		return
	}
	institutionID, ok := s.parseOptionalID(w, r, "institution_id")
	if !ok {
		return
	}

	res, err := s.analytics.Analytics(r.Context(), analytics.AnalyticsFilter{
		CountryID:     countryID,
		InstitutionID: institutionID,
		Field:         r.URL.Query().Get("field"),
	})
	s.respond(w, r, res, err)
}

// searchFields handles GET /api/fields/search.
func (s *Server) searchFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.analytics.SearchFields(r.Context(), r.URL.Query().Get("q"))
	s.respond(w, r, fields, err)
}

// getFieldOverview handles GET /api/field/overview.
func (s *Server) getFieldOverview(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.FieldOverview(r.Context(), r.URL.Query().Get("field"))
	s.respond(w, r, res, err)
}

// getFieldCountries handles GET /api/field/countries.
func (s *Server) getFieldCountries(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.FieldCountries(r.Context(), r.URL.Query().Get("field"))
	s.respond(w, r, res, err)
}

// getFieldCountryResearchers handles GET /api/field/country/researchers.
func (s *Server) getFieldCountryResearchers(w http.ResponseWriter, r *http.Request) {
	countryID, ok := s.parseOptionalID(w, r, "country_id")
	if !ok {
		return
	}
	res, err := s.analytics.FieldCountryResearchers(r.Context(), r.URL.Query().Get("field"), countryID)
	s.respond(w, r, res, err)
}

// getOverviewCountries handles GET /api/overview/countries.
func (s *Server) getOverviewCountries(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.OverviewCountries(r.Context())
	s.respond(w, r, res, err)
}

// getOverviewInstitutions handles GET /api/overview/institutions.
func (s *Server) getOverviewInstitutions(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.OverviewInstitutions(r.Context())
	s.respond(w, r, res, err)
}

// getOverviewResearchers handles GET /api/overview/researchers.
func (s *Server) getOverviewResearchers(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.OverviewResearchers(r.Context())
	s.respond(w, r, res, err)
}

// getOverviewFields handles GET /api/overview/fields.
func (s *Server) getOverviewFields(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.OverviewFields(r.Context())
	s.respond(w, r, res, err)
}

// getOverviewStats handles GET /api/overview/stats.
func (s *Server) getOverviewStats(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.OverviewStats(r.Context())
	s.respond(w, r, res, err)
}

// respond writes v as a 200 response, or the mapped error. A nil pointer
// result is written as null.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s %s", ve.Field, ve.Message))
		} else {
			s.writeError(w, r, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrServiceUnavailable):
		s.writeError(w, r, http.StatusServiceUnavailable, "service unavailable")
	default:
		logger := observability.FromContext(r.Context(), s.logger)
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// parseOptionalID reads an integer query parameter. An absent parameter is
// zero. A malformed value writes a 400 response and reports false.
// The raw value is not echoed back.
func (s *Server) parseOptionalID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return id, true
}

// parsePathID reads an integer path parameter. A malformed value writes a
// 400 response and reports false.
func (s *Server) parsePathID(w http.ResponseWriter, r *http.Request, param, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return id, true
}

// parseIntParam reads an integer query parameter with a default.
func (s *Server) parseIntParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return v, true
}
