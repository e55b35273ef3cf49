package analytics

import "github.com/helixir/research-analytics-service/internal/store"

// Tables of the research graph.
const (
	tableArticles     = "articles"
	tableAuthorships  = "authorships"
	tableResearchers  = "researchers"
	tableInstitutions = "institution_info"
	tableCountries    = "country_info"
)

// Columns shared by several queries.
const (
	colID               = "id"
	colName             = "name"
	colFullName         = "full_name"
	colHIndex           = "h_index"
	colRII              = "rii"
	colAverageHIndex    = "average_h_index"
	colAverageRII       = "average_rii"
	colResearchAreaPath = "research_area_path"
	colArticleID        = "article_id"
	colResearcherID     = "researcher_id"
	colInstitutionID    = "institution_id"
	colCountryID        = "country_id"
)

var (
	researcherColumns        = []string{colID, colFullName, colHIndex, colRII, "total_publications", "total_citations"}
	researcherProfileColumns = []string{colID, colFullName, "orcid", colHIndex, colRII, "total_publications", "total_citations"}
	institutionColumns       = []string{colID, colName, colAverageHIndex, colAverageRII}
	institutionProfile       = []string{colID, colName, colAverageHIndex, colAverageRII, "ranking"}
	countryProfile           = []string{colID, colName, "iso_code", colAverageHIndex, colAverageRII, "ranking"}
	articleListColumns       = []string{colID, "title", "publication_date", "journal_name", "cited_by_count"}
)

func embedResearchers(columns ...string) store.Embed {
	return store.Embed{Table: tableResearchers, ForeignKey: colResearcherID, Columns: columns}
}

func embedInstitutions(columns ...string) store.Embed {
	return store.Embed{Table: tableInstitutions, ForeignKey: colInstitutionID, Columns: columns}
}

func embedCountries(columns ...string) store.Embed {
	return store.Embed{Table: tableCountries, ForeignKey: colCountryID, Columns: columns}
}

func embedArticles(columns ...string) store.Embed {
	return store.Embed{Table: tableArticles, ForeignKey: colArticleID, Columns: columns}
}

// authorshipQuery reads authorship edges keyed by column, expanding embeds.
func authorshipQuery(column string, embeds ...store.Embed) store.Query {
	return store.Query{
		Table:   tableAuthorships,
		Columns: []string{column},
		Embeds:  embeds,
	}
}
