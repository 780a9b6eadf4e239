package sourcedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig mirrors the DBConfig/DefaultSQLiteConfig pattern in
// src/security/access/db/factory.go. SQLite backs the demo command and
// package tests since it needs no external server.
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

// DefaultSQLiteConfig mirrors factory.go's DefaultSQLiteConfig, ensuring the
// parent directory exists before sql.Open is attempted.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	return SQLiteConfig{Path: path, MaxOpenConns: 10, MaxIdleConns: 5}
}

// OpenSQLiteFetcher opens (creating if absent) a SQLite database file and
// returns a Fetcher backed by it. SQLite has no schema namespacing, so the
// schema component of a data source config is ignored here.
func OpenSQLiteFetcher(cfg SQLiteConfig) (*SQLFetcher, func() error, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("sourcedb: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sourcedb: ping sqlite: %w", err)
	}

	fetcher := NewSQLFetcher(db, quoteSQLiteIdent)
	fetcher.ident = func(schema, table string) string {
		return quoteSQLiteIdent(table)
	}
	return fetcher, db.Close, nil
}

func quoteSQLiteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
