package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insano70/bcos-sub009/cache"
)

var (
	querySourceConfig string
	querySourceDriver string
	querySourceDSN    string
	queryMeasure      string
	queryFrequency    string
	queryPracticeUIDs []int64
	queryProviderUIDs []int64
)

var queryCmd = &cobra.Command{
	Use:   "query <dataSourceId>",
	Short: "Evaluate a filter against a data source's cache and print matching rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&querySourceConfig, "source-config", "", "YAML file mapping data source IDs to schema/table/columnMapping")
	queryCmd.Flags().StringVar(&querySourceDriver, "source-driver", "sqlite", "source database driver: postgres, mysql, or sqlite")
	queryCmd.Flags().StringVar(&querySourceDSN, "source-dsn", "", "source database DSN")
	queryCmd.Flags().StringVar(&queryMeasure, "measure", "", "measure to filter on (required)")
	queryCmd.Flags().StringVar(&queryFrequency, "frequency", "", "frequency to filter on (required)")
	queryCmd.Flags().Int64SliceVar(&queryPracticeUIDs, "practice", nil, "practice UID(s) to filter on")
	queryCmd.Flags().Int64SliceVar(&queryProviderUIDs, "provider", nil, "provider UID(s) to filter on")
	_ = queryCmd.MarkFlagRequired("source-config")
	_ = queryCmd.MarkFlagRequired("measure")
	_ = queryCmd.MarkFlagRequired("frequency")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	dataSourceID, err := parseDataSourceID(args[0])
	if err != nil {
		return err
	}

	c, cleanup, err := buildCache(querySourceConfig, querySourceDriver, querySourceDSN)
	if err != nil {
		return err
	}
	defer cleanup()

	rows, err := c.Query(cmd.Context(), cache.Filter{
		DataSourceID: dataSourceID,
		Measure:      queryMeasure,
		Frequency:    queryFrequency,
		PracticeUIDs: queryPracticeUIDs,
		ProviderUIDs: queryProviderUIDs,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	fmt.Println(string(out))
	fmt.Printf("%s %d rows\n", cyan("matched"), len(rows))
	return nil
}
