package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	warmSourceConfig string
	warmSourceDriver string
	warmSourceDSN    string
)

var warmCmd = &cobra.Command{
	Use:   "warm <dataSourceId>",
	Short: "Repopulate a data source's cache slice from the source database",
	Args:  cobra.ExactArgs(1),
	RunE:  runWarm,
}

func init() {
	warmCmd.Flags().StringVar(&warmSourceConfig, "source-config", "", "YAML file mapping data source IDs to schema/table/columnMapping")
	warmCmd.Flags().StringVar(&warmSourceDriver, "source-driver", "sqlite", "source database driver: postgres, mysql, or sqlite")
	warmCmd.Flags().StringVar(&warmSourceDSN, "source-dsn", "", "source database DSN")
	_ = warmCmd.MarkFlagRequired("source-config")
	rootCmd.AddCommand(warmCmd)
}

func runWarm(cmd *cobra.Command, args []string) error {
	dataSourceID, err := parseDataSourceID(args[0])
	if err != nil {
		return err
	}

	c, cleanup, err := buildCache(warmSourceConfig, warmSourceDriver, warmSourceDSN)
	if err != nil {
		return err
	}
	defer cleanup()

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(fmt.Sprintf("warming data source %d", dataSourceID)),
		progressbar.OptionShowCount(),
	)

	result, err := c.WarmWithProgress(cmd.Context(), dataSourceID, func(rowsProcessed, totalRows, percent int) {
		_ = bar.Set(percent)
	})
	if err != nil {
		return fmt.Errorf("warm failed: %w", err)
	}
	_ = bar.Finish()

	if result.Skipped {
		fmt.Println(yellow("warm skipped: another warm is already in progress for this data source"))
		return nil
	}
	fmt.Printf("%s entriesCached=%d totalRows=%d duration=%s\n", green("warm complete"), result.EntriesCached, result.TotalRows, result.Duration)
	return nil
}

func parseDataSourceID(raw string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid data source id %q", raw)
	}
	return id, nil
}
