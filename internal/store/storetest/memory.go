// Package storetest provides an in-memory store.Store for unit tests.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/store"
)

type record map[string]any

// Memory evaluates store queries against seeded tables. It records every
// call and can be told to fail.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]record
	calls  []Call

	// MaxIn is the membership-list limit. Zero means store.DefaultMaxInList.
	MaxIn int

	// RowCap emulates a server-side row cap: no Select returns more rows,
	// whatever the requested limit. Zero disables it.
	RowCap int

	// Fail, when set, is consulted before every call. A non-nil result is
	// returned wrapped in a *domain.StoreError.
	Fail func(op string, q store.Query) error
}

// Call is one recorded request.
type Call struct {
	Op    string
	Query store.Query
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]record)}
}

// Insert appends rows to table. Rows may be structs or maps; they are
// normalized through JSON so they compare like rows read from a real store.
func (m *Memory) Insert(table string, rows ...any) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		raw, err := json.Marshal(r)
		if err != nil {
			panic(fmt.Sprintf("storetest: cannot encode row for %s: %v", table, err))
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			panic(fmt.Sprintf("storetest: row for %s is not an object: %v", table, err))
		}
		m.tables[table] = append(m.tables[table], rec)
	}
	return m
}

// Calls returns the recorded calls in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallsTo returns the recorded calls against table.
func (m *Memory) CallsTo(table string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Query.Table == table {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the recorded calls.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// MaxInList implements store.Store.
func (m *Memory) MaxInList() int {
	if m.MaxIn > 0 {
		return m.MaxIn
	}
	return store.DefaultMaxInList
}

// Ping implements store.Store.
func (m *Memory) Ping(ctx context.Context) error {
	return m.begin(ctx, "ping", store.Query{})
}

// Count implements store.Store.
func (m *Memory) Count(ctx context.Context, q store.Query) (int64, error) {
	if err := m.begin(ctx, "count", q); err != nil {
		return 0, err
	}
	if err := q.Validate(m.MaxInList()); err != nil {
		return 0, fmt.Errorf("memory count %s: %w", q.Table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.match(q))), nil
}

// Select implements store.Store.
func (m *Memory) Select(ctx context.Context, q store.Query) ([]json.RawMessage, error) {
	if err := m.begin(ctx, "select", q); err != nil {
		return nil, err
	}
	if err := q.Validate(m.MaxInList()); err != nil {
		return nil, fmt.Errorf("memory select %s: %w", q.Table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.match(q)
	if len(q.Order) > 0 {
		slices.SortStableFunc(rows, func(a, b record) int {
			for _, o := range q.Order {
				if c := compareNullsLast(a[o.Column], b[o.Column], o.Desc); c != 0 {
					return c
				}
			}
			return 0
		})
	}

	if q.Offset >= len(rows) {
		rows = nil
	} else {
		rows = rows[q.Offset:]
	}
	limit := q.Limit
	if m.RowCap > 0 && (limit == 0 || limit > m.RowCap) {
		limit = m.RowCap
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		raw, err := json.Marshal(m.project(r, q))
		if err != nil {
			return nil, domain.NewStoreError("memory", "select", q.Table, 0, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func (m *Memory) begin(ctx context.Context, op string, q store.Query) error {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: op, Query: q})
	fail := m.Fail
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("memory", op, q.Table, 0, err)
	}
	if fail != nil {
		if err := fail(op, q); err != nil {
			return domain.NewStoreError("memory", op, q.Table, 0, err)
		}
	}
	return nil
}

func (m *Memory) match(q store.Query) []record {
	var out []record
	for _, r := range m.tables[q.Table] {
		if matchesAll(r, q.Filters) {
			out = append(out, r)
		}
	}
	return out
}

func (m *Memory) project(r record, q store.Query) record {
	out := pick(r, q.Columns)
	for _, e := range q.Embeds {
		var related record
		for _, candidate := range m.tables[e.Table] {
			if equalValues(candidate["id"], r[e.ForeignKey]) {
				related = pick(candidate, e.Columns)
				break
			}
		}
		if related == nil {
			out[e.Table] = nil
		} else {
			out[e.Table] = related
		}
	}
	return out
}

func pick(r record, columns []string) record {
	out := make(record, len(columns))
	if len(columns) == 0 {
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

func matchesAll(r record, filters []store.Filter) bool {
	for _, f := range filters {
		if !matches(r[f.Column], f) {
			return false
		}
	}
	return true
}

func matches(v any, f store.Filter) bool {
	switch f.Op {
	case store.OpEq:
		return v != nil && equalValues(v, f.Value)
	case store.OpNeq:
		return v != nil && !equalValues(v, f.Value)
	case store.OpContains:
		s, ok := v.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(f.Value.(string)))
	case store.OpPrefix:
		s, ok := v.(string)
		return ok && strings.HasPrefix(strings.ToLower(s), strings.ToLower(f.Value.(string)))
	case store.OpIn:
		for _, id := range f.Value.([]int64) {
			if equalValues(v, id) {
				return true
			}
		}
	}
	return false
}

// equalValues compares a decoded JSON value with a Go value by normalizing
// both through JSON.
func equalValues(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func compareNullsLast(a, b any, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	var c int
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			c = -1
		case av > bv:
			c = 1
		}
	case string:
		bv, _ := b.(string)
		c = strings.Compare(av, bv)
	case bool:
		bv, _ := b.(bool)
		switch {
		case !av && bv:
			c = -1
		case av && !bv:
			c = 1
		}
	}
	if desc {
		return -c
	}
	return c
}
