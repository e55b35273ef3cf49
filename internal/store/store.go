// Package store defines the query model used to read the research graph from
// a remote relational store, and the Store interface its backends implement.
//
// # Overview
//
// The store is a read-only query service. A Query names a table, the
// columns to project, the foreign-key relations to expand inline, filters,
// ordering and an offset/limit window. Backends render the same Query to
// their own protocol:
//
//   - pgstore: SQL over a pgx connection pool
//   - postgrest: the PostgREST HTTP API
//   - storetest: an in-memory double for unit tests
//
// Rows are returned as JSON objects keyed by column name, with expanded
// relations nested under the related table name, and are decoded into
// domain types with SelectAs and SelectOne.
//
// # Errors
//
// Backends wrap every failure of the store itself in a *domain.StoreError so
// that callers can match domain.ErrServiceUnavailable. A query rejected by
// Validate never reaches the store and matches ErrInvalidQuery instead. An
// empty result is never an error.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// DefaultMaxInList is the membership-list length accepted by the backends
// when no explicit limit is configured.
const DefaultMaxInList = 1000

// ErrFilterTooLarge is returned when a membership filter exceeds the
// backend's list-length limit. Callers must chunk the id set.
var ErrFilterTooLarge = errors.New("membership filter exceeds store limit")

// ErrInvalidQuery is returned for queries rejected by Validate.
var ErrInvalidQuery = errors.New("invalid store query")

// Store is the remote query service consumed by the analytics pipeline.
// Implementations are safe for concurrent use.
type Store interface {
	// Select returns the rows matching q, one JSON object per row.
	// No matching rows yields an empty slice and a nil error.
	Select(ctx context.Context, q Query) ([]json.RawMessage, error)

	// Count returns the exact number of rows matching q's filters.
	// Projection, ordering and window are ignored.
	Count(ctx context.Context, q Query) (int64, error)

	// Ping verifies that the store is reachable.
	Ping(ctx context.Context) error

	// MaxInList returns the longest membership list a single query accepts.
	MaxInList() int
}

// Op is a filter operator.
type Op string

// Filter operators understood by every backend.
const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpContains Op = "contains"
	OpPrefix   Op = "prefix"
	OpIn       Op = "in"
)

// Filter restricts the rows of a query. Value holds a scalar for eq/neq,
// a string for contains/prefix and an []int64 for in.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq matches rows whose column equals v.
func Eq(column string, v any) Filter {
	return Filter{Column: column, Op: OpEq, Value: v}
}

// Neq matches rows whose column differs from v.
func Neq(column string, v any) Filter {
	return Filter{Column: column, Op: OpNeq, Value: v}
}

// Contains matches rows whose text column contains s, ignoring case.
func Contains(column, s string) Filter {
	return Filter{Column: column, Op: OpContains, Value: s}
}

// HasPrefix matches rows whose text column starts with s, ignoring case.
func HasPrefix(column, s string) Filter {
	return Filter{Column: column, Op: OpPrefix, Value: s}
}

// In matches rows whose column is one of ids.
func In(column string, ids []int64) Filter {
	return Filter{Column: column, Op: OpIn, Value: ids}
}

// Embed expands a foreign-key relation inline. The related row is nested
// under Table in the result, or null when the key does not resolve.
type Embed struct {
	// Table is the related table, also the key of the nested object.
	Table string
	// ForeignKey is the column of the base table referencing Table.id.
	ForeignKey string
	// Columns are the projected columns of the related table.
	Columns []string
}

// Order sorts the result by a column. Nulls always sort last.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a read against one table.
type Query struct {
	Table   string
	Columns []string
	Embeds  []Embed
	Filters []Filter
	Order   []Order
	// Offset skips rows before the window. Zero starts at the first row.
	Offset int
	// Limit bounds the window. Zero means no limit.
	Limit int
}

// Where returns a copy of q with filters appended.
func (q Query) Where(filters ...Filter) Query {
	out := q
	out.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return out
}

// OrderBy returns a copy of q with the given ordering appended.
func (q Query) OrderBy(orders ...Order) Query {
	out := q
	out.Order = append(append([]Order(nil), q.Order...), orders...)
	return out
}

// Window returns a copy of q restricted to [offset, offset+limit).
func (q Query) Window(offset, limit int) Query {
	out := q
	out.Offset = offset
	out.Limit = limit
	return out
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks identifiers and filter values. maxIn bounds the length of
// membership lists; zero disables the check. Every failure matches
// ErrInvalidQuery.
func (q Query) Validate(maxIn int) error {
	if err := q.validate(maxIn); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return nil
}

func (q Query) validate(maxIn int) error {
	if !identPattern.MatchString(q.Table) {
		return fmt.Errorf("invalid table name %q", q.Table)
	}
	for _, c := range q.Columns {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}
	for _, e := range q.Embeds {
		if !identPattern.MatchString(e.Table) || !identPattern.MatchString(e.ForeignKey) {
			return fmt.Errorf("invalid embed %q via %q", e.Table, e.ForeignKey)
		}
		if len(e.Columns) == 0 {
			return fmt.Errorf("embed %q has no columns", e.Table)
		}
		for _, c := range e.Columns {
			if !identPattern.MatchString(c) {
				return fmt.Errorf("invalid column name %q in embed %q", c, e.Table)
			}
		}
	}
	for _, f := range q.Filters {
		if !identPattern.MatchString(f.Column) {
			return fmt.Errorf("invalid filter column %q", f.Column)
		}
		switch f.Op {
		case OpEq, OpNeq:
			if f.Value == nil {
				return fmt.Errorf("filter on %q has no value", f.Column)
			}
		case OpContains, OpPrefix:
			if _, ok := f.Value.(string); !ok {
				return fmt.Errorf("pattern filter on %q needs a string", f.Column)
			}
		case OpIn:
			ids, ok := f.Value.([]int64)
			if !ok {
				return fmt.Errorf("membership filter on %q needs []int64", f.Column)
			}
			if maxIn > 0 && len(ids) > maxIn {
				return fmt.Errorf("%w: %d ids on %q, limit %d", ErrFilterTooLarge, len(ids), f.Column, maxIn)
			}
		default:
			return fmt.Errorf("unknown filter operator %q", f.Op)
		}
	}
	for _, o := range q.Order {
		if !identPattern.MatchString(o.Column) {
			return fmt.Errorf("invalid order column %q", o.Column)
		}
	}
	if q.Offset < 0 || q.Limit < 0 {
		return fmt.Errorf("invalid window offset=%d limit=%d", q.Offset, q.Limit)
	}
	return nil
}

// SelectAs runs q and decodes every row into T.
func SelectAs[T any](ctx context.Context, s Store, q Query) ([]T, error) {
	rows, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	return Decode[T](rows)
}

// SelectOne runs q limited to one row. It returns nil when no row matches.
func SelectOne[T any](ctx context.Context, s Store, q Query) (*T, error) {
	rows, err := SelectAs[T](ctx, s, q.Window(0, 1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Decode converts raw rows into T.
func Decode[T any](rows []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, raw := range rows {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LikeEscape escapes the LIKE wildcards in s so it matches literally.
func LikeEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
