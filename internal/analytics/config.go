package analytics

import (
	"time"

	"github.com/helixir/research-analytics-service/internal/config"
	"github.com/helixir/research-analytics-service/internal/pipeline"
)

// Result sizes of the use cases.
const (
	analyticsTopN           = 10
	fieldOverviewTopN       = 6
	fieldCountryTopN        = 8
	researcherFieldsTopN    = 5
	topResearchersN         = 5
	researcherSearchLimit   = 10
	institutionSearchLimit  = 40
	institutionFieldsTopN   = 10
	institutionListLimit    = 50
	countrySearchLimit      = 10
	countryInstitutionsTopN = 5
	countryFieldsTopN       = 10
	overviewTopN            = 10
)

// MaxPageLimit bounds the page size of the researcher directory.
const MaxPageLimit = 100

// MaxPage bounds the directory page number so the row offset stays in range.
// Keep in sync with the pageFilter tag.
const MaxPage = 1_000_000

// Config holds the limits of the aggregation pipeline.
type Config struct {
	// PageSize is the number of rows requested per page.
	PageSize int
	// MaxArticleIDs caps the verified article ids collected for a field.
	MaxArticleIDs int
	// MaxJoinRows caps the rows of one join or entity scan.
	MaxJoinRows int
	// MaxScanRows caps the authorship scans of institution fields and the country list.
	MaxScanRows int
	// FieldScanMaxRows caps article scans used by field search and field counting.
	FieldScanMaxRows int
	// ChunkSize is the number of ids per membership-filtered join.
	ChunkSize int
	// Concurrency is the number of chunks resolved in parallel.
	Concurrency int
	// RequestTimeout bounds one use case execution.
	RequestTimeout time.Duration
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		PageSize:         pipeline.DefaultPageSize,
		MaxArticleIDs:    20000,
		MaxJoinRows:      20000,
		MaxScanRows:      5000,
		FieldScanMaxRows: 200000,
		ChunkSize:        pipeline.DefaultChunkSize,
		Concurrency:      pipeline.DefaultConcurrency,
		RequestTimeout:   30 * time.Second,
	}
}

// ConfigFrom converts the pipeline section of the service configuration.
func ConfigFrom(c config.PipelineConfig) Config {
	return Config{
		PageSize:         c.PageSize,
		MaxArticleIDs:    c.MaxArticleIDs,
		MaxJoinRows:      c.MaxJoinRows,
		MaxScanRows:      c.MaxScanRows,
		FieldScanMaxRows: c.FieldScanMaxRows,
		ChunkSize:        c.ChunkSize,
		Concurrency:      c.Concurrency,
		RequestTimeout:   c.RequestTimeout,
	}
}

// withDefaults replaces unset limits with their defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.MaxArticleIDs <= 0 {
		c.MaxArticleIDs = d.MaxArticleIDs
	}
	if c.MaxJoinRows <= 0 {
		c.MaxJoinRows = d.MaxJoinRows
	}
	if c.MaxScanRows <= 0 {
		c.MaxScanRows = d.MaxScanRows
	}
	if c.FieldScanMaxRows <= 0 {
		c.FieldScanMaxRows = d.FieldScanMaxRows
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}
