package sourcedb

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestSQLFetcherFetchAllSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE fact_visits (
		measure TEXT,
		practice_uid INTEGER,
		provider_uid INTEGER,
		period_start TEXT,
		value REAL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO fact_visits VALUES
		('revenue', 1, NULL, '2026-01-01', 100.5),
		('revenue', 1, 7, '2026-01-01', 42.0)`)
	require.NoError(t, err)

	fetcher := NewSQLFetcher(db, quoteSQLiteIdent)
	fetcher.ident = func(schema, table string) string { return quoteSQLiteIdent(table) }

	rows, err := fetcher.FetchAll(context.Background(), 1, "", "fact_visits")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "revenue", rows[0]["measure"])
}

func TestValidateTableNameRejectsInjectionAttempt(t *testing.T) {
	require.NoError(t, ValidateTableName("fact_visits"))
	require.Error(t, ValidateTableName("fact_visits; DROP TABLE users"))
	require.Error(t, ValidateTableName("fact visits"))
}

func TestStaticConfigProviderLookup(t *testing.T) {
	p := NewStaticConfigProvider(map[int64]DataSourceConfig{
		1: {Schema: "analytics", Table: "fact_visits", ColumnMapping: ColumnMapping{TimePeriodField: "period_start"}},
	})

	cfg, err := p.GetDataSourceConfig(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "analytics", cfg.Schema)

	_, err = p.GetDataSourceConfig(context.Background(), 2)
	require.Error(t, err)
}
