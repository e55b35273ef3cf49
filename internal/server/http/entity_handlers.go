package httpserver

import (
	"net/http"
)

// getResearcher handles GET /api/researcher/{researcherID}/overview.
func (s *Server) getResearcher(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "researcherID", "researcher_id")
	if !ok {
		return
	}
	res, err := s.analytics.Researcher(r.Context(), id)
	s.respond(w, r, res, err)
}

// getResearcherArticles handles GET /api/researcher/{researcherID}/articles.
func (s *Server) getResearcherArticles(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "researcherID", "researcher_id")
	if !ok {
		return
	}
	res, err := s.analytics.ResearcherArticles(r.Context(), id)
	s.respond(w, r, res, err)
}

// getResearcherCoauthors handles GET /api/researcher/{researcherID}/coauthors.
func (s *Server) getResearcherCoauthors(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "researcherID", "researcher_id")
	if !ok {
		return
	}
	res, err := s.analytics.ResearcherCoauthors(r.Context(), id)
	s.respond(w, r, res, err)
}

// getResearcherFields handles GET /api/researcher/{researcherID}/fields.
func (s *Server) getResearcherFields(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "researcherID", "researcher_id")
	if !ok {
		return
	}
	res, err := s.analytics.ResearcherFields(r.Context(), id)
	s.respond(w, r, res, err)
}

// getTopResearchers handles GET /api/researchers/top5/hindex-rii.
func (s *Server) getTopResearchers(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.TopResearchers(r.Context())
	s.respond(w, r, res, err)
}

// listResearchers handles GET /api/researchers/all.
func (s *Server) listResearchers(w http.ResponseWriter, r *http.Request) {
	page, ok := s.parseIntParam(w, r, "page", defaultPage)
	if !ok {
		return
	}
	limit, ok := s.parseIntParam(w, r, "limit", defaultPageSize)
	if !ok {
		return
	}
	res, err := s.analytics.ListResearchers(r.Context(), page, limit)
	s.respond(w, r, res, err)
}

// searchResearchers handles GET /api/researchers/search.
func (s *Server) searchResearchers(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.SearchResearchers(r.Context(), r.URL.Query().Get("q"))
	s.respond(w, r, res, err)
}

// searchInstitutions handles GET /api/institutions/search.
func (s *Server) searchInstitutions(w http.ResponseWriter, r *http.Request) {
	countryID, ok := s.parseOptionalID(w, r, "country_id")
	if !ok {
		return
	}
	res, err := s.analytics.SearchInstitutions(r.Context(), countryID, r.URL.Query().Get("q"))
	s.respond(w, r, res, err)
}

// getInstitution handles GET /api/institution/{institutionID}/overview.
func (s *Server) getInstitution(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "institutionID", "institution_id")
	if !ok {
		return
	}
	res, err := s.analytics.Institution(r.Context(), id)
	s.respond(w, r, res, err)
}

// getInstitutionFields handles GET /api/institution/{institutionID}/fields.
func (s *Server) getInstitutionFields(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "institutionID", "institution_id")
	if !ok {
		return
	}
	res, err := s.analytics.InstitutionFields(r.Context(), id)
	s.respond(w, r, res, err)
}

// listInstitutions handles GET /api/institutions/all.
func (s *Server) listInstitutions(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.ListInstitutions(r.Context())
	s.respond(w, r, res, err)
}

// listInstitutionNames handles GET /api/institutions.
func (s *Server) listInstitutionNames(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.InstitutionNames(r.Context())
	s.respond(w, r, res, err)
}

// searchCountries handles GET /api/countries/search.
func (s *Server) searchCountries(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.SearchCountries(r.Context(), r.URL.Query().Get("q"))
	s.respond(w, r, res, err)
}

// getCountry handles GET /api/country/{countryID}/overview.
func (s *Server) getCountry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "countryID", "country_id")
	if !ok {
		return
	}
	res, err := s.analytics.Country(r.Context(), id)
	s.respond(w, r, res, err)
}

// getCountryInstitutions handles GET /api/country/{countryID}/institutions.
func (s *Server) getCountryInstitutions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "countryID", "country_id")
	if !ok {
		return
	}
	res, err := s.analytics.CountryInstitutions(r.Context(), id)
	s.respond(w, r, res, err)
}

// getCountryFields handles GET /api/country/{countryID}/fields.
func (s *Server) getCountryFields(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePathID(w, r, "countryID", "country_id")
	if !ok {
		return
	}
	res, err := s.analytics.CountryFields(r.Context(), id)
	s.respond(w, r, res, err)
}

// listCountries handles GET /api/countries.
func (s *Server) listCountries(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.ListCountries(r.Context())
	s.respond(w, r, res, err)
}
