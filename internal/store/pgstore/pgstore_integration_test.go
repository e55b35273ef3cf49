//go:build integration

package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/store"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ranalytics_test"),
		tcpostgres.WithUsername("ranalytics"),
		tcpostgres.WithPassword("testpassword"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../../migrations", dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("migration failed: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestStore_AgainstPostgres(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	seed := []string{
		`INSERT INTO country_info (id, name, iso_code) VALUES (1, 'France', 'FR'), (2, 'Japan', 'JP')`,
		`INSERT INTO researchers (id, full_name, h_index, rii) VALUES (1, 'Ada', 10, 1.2), (2, 'Grace', NULL, 3.4), (3, 'Alan', 20, NULL)`,
		`INSERT INTO articles (id, title, research_area_path) VALUES (1, 'Qubits', 'Computer Science > Quantum Computing'), (2, 'Retail', 'Business > Retail')`,
		`INSERT INTO authorships (researcher_id, country_id, article_id) VALUES (1, 1, 1), (2, 1, 1), (3, 2, 2), (1, 1, 1)`,
	}
	for _, stmt := range seed {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	s := New(pool, 0)
	require.NoError(t, s.Ping(ctx))

	t.Run("orders with nulls last", func(t *testing.T) {
		rows, err := store.SelectAs[domain.Researcher](ctx, s, store.Query{
			Table:   "researchers",
			Columns: []string{"id", "full_name", "h_index", "rii"},
			Order:   []store.Order{{Column: "h_index", Desc: true}},
		})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, int64(3), rows[0].ID)
		assert.Equal(t, int64(1), rows[1].ID)
		assert.Nil(t, rows[2].HIndex)
	})

	t.Run("expands relations under membership filter", func(t *testing.T) {
		rows, err := store.SelectAs[domain.Authorship](ctx, s, store.Query{
			Table:   "authorships",
			Columns: []string{"researcher_id"},
			Embeds: []store.Embed{
				{Table: "researchers", ForeignKey: "researcher_id", Columns: []string{"id", "full_name", "h_index", "rii"}},
				{Table: "country_info", ForeignKey: "country_id", Columns: []string{"id", "name", "iso_code"}},
			},
			Filters: []store.Filter{store.In("article_id", []int64{1}), store.Eq("country_id", int64(1))},
			Order:   []store.Order{{Column: "id"}},
		})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		require.NotNil(t, rows[1].Researcher)
		assert.Equal(t, "Grace", rows[1].Researcher.FullName)
		require.NotNil(t, rows[0].Country)
		assert.Equal(t, "FR", *rows[0].Country.ISOCode)
	})

	t.Run("substring push-down and count", func(t *testing.T) {
		n, err := s.Count(ctx, store.Query{
			Table:   "articles",
			Filters: []store.Filter{store.Contains("research_area_path", "quantum computing")},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
