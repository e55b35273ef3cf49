// Package domain provides the entity models, result models, and error taxonomy
// of the research analytics service.
package domain

// Researcher is a row of the researchers table.
// Unknown metrics are nil and never treated as zero.
type Researcher struct {
	ID                int64    `json:"id"`
	FullName          string   `json:"full_name"`
	ORCID             *string  `json:"orcid,omitempty"`
	HIndex            *int     `json:"h_index"`
	RII               *float64 `json:"rii"`
	TotalPublications *int     `json:"total_publications,omitempty"`
	TotalCitations    *int     `json:"total_citations,omitempty"`
	CoAuthorship      *string  `json:"co_authorship,omitempty"`
}

// EntityID returns the researcher id.
func (r Researcher) EntityID() int64 {
	return r.ID
}

// Merge folds a duplicate row into r. For every metric field, a value unknown
// in r is taken from candidate; known values and identity fields are kept.
func (r Researcher) Merge(candidate Researcher) Researcher {
	r.HIndex = firstKnown(r.HIndex, candidate.HIndex)
	r.RII = firstKnown(r.RII, candidate.RII)
	r.TotalPublications = firstKnown(r.TotalPublications, candidate.TotalPublications)
	r.TotalCitations = firstKnown(r.TotalCitations, candidate.TotalCitations)
	return r
}

// Institution is a row of the institution_info table.
type Institution struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	AverageHIndex *float64 `json:"average_h_index"`
	AverageRII    *float64 `json:"average_rii"`
	Ranking       *int     `json:"ranking,omitempty"`
}

// EntityID returns the institution id.
func (i Institution) EntityID() int64 {
	return i.ID
}

// Merge folds a duplicate row into i using the same policy as Researcher.Merge.
func (i Institution) Merge(candidate Institution) Institution {
	i.AverageHIndex = firstKnown(i.AverageHIndex, candidate.AverageHIndex)
	i.AverageRII = firstKnown(i.AverageRII, candidate.AverageRII)
	i.Ranking = firstKnown(i.Ranking, candidate.Ranking)
	return i
}

// HasActivity reports whether at least one of the averages is positive.
func (i Institution) HasActivity() bool {
	return valueOrZero(i.AverageHIndex) > 0 || valueOrZero(i.AverageRII) > 0
}

// Country is a row of the country_info table.
type Country struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	ISOCode       *string  `json:"iso_code,omitempty"`
	AverageHIndex *float64 `json:"average_h_index,omitempty"`
	AverageRII    *float64 `json:"average_rii,omitempty"`
	Ranking       *int     `json:"ranking,omitempty"`
}

// EntityID returns the country id.
func (c Country) EntityID() int64 {
	return c.ID
}

// Merge folds a duplicate row into c using the same policy as Researcher.Merge.
func (c Country) Merge(candidate Country) Country {
	c.ISOCode = firstKnown(c.ISOCode, candidate.ISOCode)
	c.AverageHIndex = firstKnown(c.AverageHIndex, candidate.AverageHIndex)
	c.AverageRII = firstKnown(c.AverageRII, candidate.AverageRII)
	c.Ranking = firstKnown(c.Ranking, candidate.Ranking)
	return c
}

// Article is a row of the articles table.
type Article struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title,omitempty"`
	PublicationDate  *string `json:"publication_date,omitempty"`
	JournalName      *string `json:"journal_name,omitempty"`
	CitedByCount     *int    `json:"cited_by_count,omitempty"`
	ResearchAreaPath *string `json:"research_area_path,omitempty"`
}

// EntityID returns the article id.
func (a Article) EntityID() int64 {
	return a.ID
}

// Merge keeps the first occurrence of an article and fills unknown columns.
func (a Article) Merge(candidate Article) Article {
	a.PublicationDate = firstKnown(a.PublicationDate, candidate.PublicationDate)
	a.JournalName = firstKnown(a.JournalName, candidate.JournalName)
	a.CitedByCount = firstKnown(a.CitedByCount, candidate.CitedByCount)
	a.ResearchAreaPath = firstKnown(a.ResearchAreaPath, candidate.ResearchAreaPath)
	return a
}

// Path returns the research area path or "" when unknown.
func (a Article) Path() string {
	if a.ResearchAreaPath == nil {
		return ""
	}
	return *a.ResearchAreaPath
}

// Authorship is an edge linking a researcher to an article, denormalized with
// the institution and country of the affiliation at the time of writing.
// Related entities are populated only when the query expands them.
type Authorship struct {
	ResearcherID  int64 `json:"researcher_id,omitempty"`
	InstitutionID int64 `json:"institution_id,omitempty"`
	CountryID     int64 `json:"country_id,omitempty"`
	ArticleID     int64 `json:"article_id,omitempty"`

	Researcher  *Researcher  `json:"researchers,omitempty"`
	Institution *Institution `json:"institution_info,omitempty"`
	Country     *Country     `json:"country_info,omitempty"`
	Article     *Article     `json:"articles,omitempty"`
}

func firstKnown[T any](existing, candidate *T) *T {
	if existing != nil {
		return existing
	}
	return candidate
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
