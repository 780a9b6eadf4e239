package sourcedb

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLConfig mirrors PostgresConfig, narrowed to MySQL.
type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// OpenMySQLFetcher opens a connection pool against a MySQL analytics
// database and returns a Fetcher backed by it.
func OpenMySQLFetcher(cfg MySQLConfig) (*SQLFetcher, func() error, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sourcedb: open mysql: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sourcedb: ping mysql: %w", err)
	}
	return NewSQLFetcher(db, quoteMySQLIdent), db.Close, nil
}

func quoteMySQLIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
