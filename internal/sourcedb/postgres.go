package sourcedb

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// PostgresConfig mirrors the DBConfig shape in
// src/security/access/db/factory.go, narrowed to Postgres.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// OpenPostgresFetcher opens a connection pool against a Postgres analytics
// database and returns a Fetcher backed by it.
func OpenPostgresFetcher(cfg PostgresConfig) (*SQLFetcher, func() error, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sourcedb: open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sourcedb: ping postgres: %w", err)
	}
	return NewSQLFetcher(db, quotePostgresIdent), db.Close, nil
}

func quotePostgresIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
