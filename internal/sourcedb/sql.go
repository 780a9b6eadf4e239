package sourcedb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// tableNamePattern is the allow-list spec.md §4.C step 2 requires for the
// table name half of the composed SELECT (the schema half is checked
// against AllowedSchemas by the warmer, not here).
var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateTableName rejects anything that isn't a bare identifier, since
// schema and table are concatenated directly into a SELECT statement.
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("sourcedb: invalid table name %q", table)
	}
	return nil
}

// SQLFetcher is a database/sql-backed Fetcher shared by the Postgres,
// MySQL, and SQLite adapters — grounded on the connection-pool/Ping
// pattern in src/security/access/db/factory.go, generalized from that
// file's fixed-driver factory to a per-driver constructor plus one shared
// FetchAll body, since every SQL dialect this module supports executes the
// same `SELECT * FROM schema.table` and scans into the same dynamic
// map[string]any shape.
type SQLFetcher struct {
	db    *sql.DB
	ident func(schema, table string) string
}

// NewSQLFetcher wraps an already-opened *sql.DB. quoteIdent formats a single
// identifier for the target dialect (e.g. double quotes for Postgres/SQLite,
// backticks for MySQL).
func NewSQLFetcher(db *sql.DB, quoteIdent func(string) string) *SQLFetcher {
	return &SQLFetcher{
		db: db,
		ident: func(schema, table string) string {
			if schema == "" {
				return quoteIdent(table)
			}
			return quoteIdent(schema) + "." + quoteIdent(table)
		},
	}
}

// FetchAll executes `SELECT * FROM schema.table` and returns every row as a
// column-name-keyed map. schema/table are assumed already allow-listed by
// the caller (the warmer), per spec.md §4.C step 2.
func (f *SQLFetcher) FetchAll(ctx context.Context, dataSourceID int64, schema, table string) ([]map[string]interface{}, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s", f.ident(schema, table))
	rows, err := f.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sourcedb: fetch data source %d: %w", dataSourceID, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sourcedb: columns for data source %d: %w", dataSourceID, err)
	}

	var out []map[string]interface{}
	for rows.Next() {
		scanDest := make([]interface{}, len(cols))
		scanVals := make([]interface{}, len(cols))
		for i := range scanVals {
			scanDest[i] = &scanVals[i]
		}
		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("sourcedb: scan row for data source %d: %w", dataSourceID, err)
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = normalizeSQLValue(scanVals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sourcedb: iterate rows for data source %d: %w", dataSourceID, err)
	}
	return out, nil
}

// normalizeSQLValue unwraps the []byte the database/sql drivers commonly
// hand back for TEXT/VARCHAR columns so callers see a plain string rather
// than a byte slice in the JSON blob.
func normalizeSQLValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
