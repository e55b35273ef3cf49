// Package pgstore implements store.Store over a PostgreSQL connection.
//
// Each Query is rendered to a single statement that returns one jsonb
// object per row. Embedded relations become correlated subqueries, so a
// page of authorships with their researchers is one round trip.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/helixir/research-analytics-service/internal/database"
	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/store"
)

// Backend is the name reported in errors and metrics.
const Backend = "postgres"

// Compile-time interface verification.
var _ store.Store = (*Store)(nil)

// Store reads the research graph through a pgx pool or transaction.
type Store struct {
	db        database.DBTX
	maxInList int
}

// New creates a Store. maxInList bounds membership filters; zero means
// store.DefaultMaxInList.
func New(db database.DBTX, maxInList int) *Store {
	if maxInList <= 0 {
		maxInList = store.DefaultMaxInList
	}
	return &Store{db: db, maxInList: maxInList}
}

// MaxInList implements store.Store.
func (s *Store) MaxInList() int {
	return s.maxInList
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return domain.NewStoreError(Backend, "ping", "", 0, err)
	}
	return nil
}

// Select implements store.Store.
func (s *Store) Select(ctx context.Context, q store.Query) ([]json.RawMessage, error) {
	sql, args, err := s.renderSelect(q)
	if err != nil {
		return nil, fmt.Errorf("%s select %s: %w", Backend, q.Table, err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewStoreError(Backend, "select", q.Table, 0, fmt.Errorf("failed to query: %w", err))
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, domain.NewStoreError(Backend, "select", q.Table, 0, fmt.Errorf("failed to scan row: %w", err))
		}
		out = append(out, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(Backend, "select", q.Table, 0, fmt.Errorf("error iterating rows: %w", err))
	}
	return out, nil
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context, q store.Query) (int64, error) {
	sql, args, err := s.renderCount(q)
	if err != nil {
		return 0, fmt.Errorf("%s count %s: %w", Backend, q.Table, err)
	}

	var n int64
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, domain.NewStoreError(Backend, "count", q.Table, 0, fmt.Errorf("failed to count: %w", err))
	}
	return n, nil
}

// builder accumulates positional arguments while a statement is rendered.
type builder struct {
	sb   strings.Builder
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (s *Store) renderSelect(q store.Query) (string, []any, error) {
	if err := q.Validate(s.maxInList); err != nil {
		return "", nil, err
	}

	var b builder
	b.sb.WriteString("SELECT ")
	b.sb.WriteString(projection(q))
	b.sb.WriteString(" FROM ")
	b.sb.WriteString(pq.QuoteIdentifier(q.Table))
	b.sb.WriteString(" b")
	b.where(q.Filters)

	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, column("b", o.Column)+" "+dir+" NULLS LAST")
		}
		b.sb.WriteString(" ORDER BY ")
		b.sb.WriteString(strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		b.sb.WriteString(" LIMIT ")
		b.sb.WriteString(b.arg(q.Limit))
	}
	if q.Offset > 0 {
		b.sb.WriteString(" OFFSET ")
		b.sb.WriteString(b.arg(q.Offset))
	}
	return b.sb.String(), b.args, nil
}

func (s *Store) renderCount(q store.Query) (string, []any, error) {
	if err := q.Validate(s.maxInList); err != nil {
		return "", nil, err
	}

	var b builder
	b.sb.WriteString("SELECT count(*) FROM ")
	b.sb.WriteString(pq.QuoteIdentifier(q.Table))
	b.sb.WriteString(" b")
	b.where(q.Filters)
	return b.sb.String(), b.args, nil
}

func (b *builder) where(filters []store.Filter) {
	if len(filters) == 0 {
		return
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		col := column("b", f.Column)
		switch f.Op {
		case store.OpEq:
			parts = append(parts, col+" = "+b.arg(f.Value))
		case store.OpNeq:
			parts = append(parts, col+" <> "+b.arg(f.Value))
		case store.OpContains:
			parts = append(parts, col+" ILIKE "+b.arg("%"+store.LikeEscape(f.Value.(string))+"%"))
		case store.OpPrefix:
			parts = append(parts, col+" ILIKE "+b.arg(store.LikeEscape(f.Value.(string))+"%"))
		case store.OpIn:
			parts = append(parts, col+" = ANY("+b.arg(f.Value)+")")
		}
	}
	b.sb.WriteString(" WHERE ")
	b.sb.WriteString(strings.Join(parts, " AND "))
}

// projection renders the jsonb object of one result row.
func projection(q store.Query) string {
	embeds := make([]string, 0, len(q.Embeds))
	for i, e := range q.Embeds {
		alias := "e" + strconv.Itoa(i)
		embeds = append(embeds, fmt.Sprintf("'%s', (SELECT %s FROM %s %s WHERE %s = %s)",
			e.Table,
			object(alias, e.Columns),
			pq.QuoteIdentifier(e.Table), alias,
			column(alias, "id"), column("b", e.ForeignKey),
		))
	}

	if len(q.Columns) == 0 {
		if len(embeds) == 0 {
			return "to_jsonb(b)"
		}
		return "to_jsonb(b) || jsonb_build_object(" + strings.Join(embeds, ", ") + ")"
	}

	pairs := make([]string, 0, len(q.Columns)+len(embeds))
	for _, c := range q.Columns {
		pairs = append(pairs, fmt.Sprintf("'%s', %s", c, column("b", c)))
	}
	pairs = append(pairs, embeds...)
	return "jsonb_build_object(" + strings.Join(pairs, ", ") + ")"
}

func object(alias string, columns []string) string {
	pairs := make([]string, 0, len(columns))
	for _, c := range columns {
		pairs = append(pairs, fmt.Sprintf("'%s', %s", c, column(alias, c)))
	}
	return "jsonb_build_object(" + strings.Join(pairs, ", ") + ")"
}

func column(alias, name string) string {
	return alias + "." + pq.QuoteIdentifier(name)
}
