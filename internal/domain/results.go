package domain

// Rankings holds two top-N lists of the same entity set, one per metric.
type Rankings[T any] struct {
	ByHIndex []T `json:"by_h_index"`
	ByRII    []T `json:"by_rii"`
}

// EmptyRankings returns rankings whose lists serialize as [] rather than null.
func EmptyRankings[T any]() Rankings[T] {
	return Rankings[T]{ByHIndex: []T{}, ByRII: []T{}}
}

// MetricSummary holds averages over the deduplicated researcher set.
type MetricSummary struct {
	AverageHIndex float64 `json:"average_h_index"`
	AverageRII    float64 `json:"average_rii"`
}

// AnalyticsFilters echoes the filters a combined analytics request ran with.
type AnalyticsFilters struct {
	CountryID     *int64  `json:"country_id"`
	InstitutionID *int64  `json:"institution_id"`
	Field         *string `json:"field"`
}

// AnalyticsResult is the result of the combined country/institution/field
// analytics use case. TopInstitutions is only present for country-level
// requests without an institution filter.
type AnalyticsResult struct {
	Filters         AnalyticsFilters       `json:"filters"`
	Metrics         MetricSummary          `json:"metrics"`
	TopResearchers  Rankings[Researcher]   `json:"top_researchers"`
	TopInstitutions *Rankings[Institution] `json:"top_institutions"`
}

// FieldShare is one entry of a taxonomy breakdown.
type FieldShare struct {
	Field      string  `json:"field"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CountryShare is one entry of a geographic contribution breakdown.
type CountryShare struct {
	CountryID  int64   `json:"country_id"`
	Country    string  `json:"country"`
	ISOCode    *string `json:"iso_code"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// EntityName is the id/name pair used by lists and autocomplete.
type EntityName struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Coauthor is one name from a researcher's co-authorship list.
type Coauthor struct {
	Name string `json:"name"`
}

// ResearcherSummary is the compact researcher shape used for comparisons.
type ResearcherSummary struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	HIndex *int     `json:"h_index"`
	RII    *float64 `json:"rii"`
}

// ResearcherPage is one page of the researcher directory.
type ResearcherPage struct {
	Researchers []Researcher `json:"researchers"`
	Total       int64        `json:"total"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
	TotalPages  int64        `json:"total_pages"`
}

// EntityOverview is a total count plus the top entities for each metric.
type EntityOverview[T any] struct {
	Total int64 `json:"total"`
	Rankings[T]
}

// FieldTotal is the number of distinct taxonomy segments.
type FieldTotal struct {
	Total int `json:"total"`
}

// Stats holds the global counters of the graph.
type Stats struct {
	Researchers  int64 `json:"researchers"`
	Countries    int64 `json:"countries"`
	Institutions int64 `json:"institutions"`
	Fields       int   `json:"fields"`
}
