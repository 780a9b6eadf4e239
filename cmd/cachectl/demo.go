package main

import (
	"database/sql"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/insano70/bcos-sub009/cache"
	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/sourcedb"
)

// demoCmd wires the sqlite reference sourcedb adapter end to end against an
// embedded Redis (miniredis), so an operator can see a full warm/query/
// stats/invalidate cycle without standing up any infrastructure.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a self-contained warm/query/stats/invalidate walkthrough",
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mr, err := miniredis.Run()
	if err != nil {
		return fmt.Errorf("start embedded redis: %w", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("open demo database: %w", err)
	}
	defer db.Close()
	if err := seedDemoDatabase(db); err != nil {
		return fmt.Errorf("seed demo database: %w", err)
	}

	fetcher := sourcedb.NewSQLFetcher(db, func(s string) string { return `"` + s + `"` })
	config := sourcedb.NewStaticConfigProvider(map[int64]sourcedb.DataSourceConfig{
		1: {Schema: "main", Table: "fact_visits", ColumnMapping: sourcedb.ColumnMapping{TimePeriodField: "period"}},
	})

	// SQLite names its default database schema "main"; allow-list it so the
	// warmer accepts the demo data source.
	cfg := appconfig.Default()
	cfg.AllowedSchemas = []string{"main"}
	c := cache.New(client, config, fetcher, cfg, newLogger())

	fmt.Println(bold("1. warm"))
	result, err := c.Warm(ctx, 1)
	if err != nil {
		return fmt.Errorf("warm failed: %w", err)
	}
	fmt.Printf("  entriesCached=%d totalRows=%d duration=%s\n", result.EntriesCached, result.TotalRows, result.Duration)

	fmt.Println(bold("2. query measure=revenue frequency=monthly"))
	rows, err := c.Query(ctx, cache.Filter{DataSourceID: 1, Measure: "revenue", Frequency: "monthly"})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	fmt.Printf("  %d rows\n", len(rows))

	fmt.Println(bold("3. stats"))
	s, err := c.Stats(ctx, 1, cache.SourceType(""))
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}
	fmt.Println(renderStatsTable(s))

	fmt.Println(bold("4. invalidate"))
	if err := c.Invalidate(ctx, 1); err != nil {
		return fmt.Errorf("invalidate failed: %w", err)
	}
	warm, err := c.IsWarm(ctx, 1)
	if err != nil {
		return fmt.Errorf("isWarm check failed: %w", err)
	}
	fmt.Printf("  isWarm after invalidate: %v\n", warm)

	return nil
}

func seedDemoDatabase(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE fact_visits (
		measure TEXT,
		practice_uid INTEGER,
		provider_uid INTEGER,
		period TEXT,
		value REAL
	)`); err != nil {
		return err
	}
	_, err := db.Exec(`INSERT INTO fact_visits VALUES
		('revenue', 1, NULL, 'monthly', 1000.0),
		('revenue', 2, 7, 'monthly', 250.5),
		('visits', 1, 7, 'monthly', 12.0)`)
	return err
}
