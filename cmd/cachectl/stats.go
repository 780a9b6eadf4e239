package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/insano70/bcos-sub009/cache"
)

var (
	statsSourceConfig string
	statsSourceDriver string
	statsSourceDSN    string
	statsTabular      bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <dataSourceId>",
	Short: "Report cardinalities and estimated memory use for a data source",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsSourceConfig, "source-config", "", "YAML file mapping data source IDs to schema/table/columnMapping")
	statsCmd.Flags().StringVar(&statsSourceDriver, "source-driver", "sqlite", "source database driver: postgres, mysql, or sqlite")
	statsCmd.Flags().StringVar(&statsSourceDSN, "source-dsn", "", "source database DSN")
	statsCmd.Flags().BoolVar(&statsTabular, "tabular", false, "probe as a tabular data source (Stats Path C)")
	_ = statsCmd.MarkFlagRequired("source-config")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	dataSourceID, err := parseDataSourceID(args[0])
	if err != nil {
		return err
	}

	c, cleanup, err := buildCache(statsSourceConfig, statsSourceDriver, statsSourceDSN)
	if err != nil {
		return err
	}
	defer cleanup()

	sourceType := cache.SourceType("")
	if statsTabular {
		sourceType = cache.SourceTypeTabular
	}

	s, err := c.Stats(cmd.Context(), dataSourceID, sourceType)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	fmt.Println(renderStatsTable(s))
	return nil
}

var (
	statsLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	statsBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderStatsTable(s cache.CacheStats) string {
	width, _, err := term.GetSize(0)
	if err != nil || width <= 0 {
		width = 80
	}

	row := func(label string, value interface{}) string {
		return fmt.Sprintf("%-20s %v", statsLabelStyle.Render(label), value)
	}

	body := fmt.Sprintf(
		"%s\n%s\n%s\n%s\n%s\n%s\n%s\n%s\n%s",
		row("dataSourceId", s.DataSourceID),
		row("isWarm", s.IsWarm),
		row("totalEntries", s.TotalEntries),
		row("indexCount", s.IndexCount),
		row("estimatedMemoryMB", fmt.Sprintf("%.3f", s.EstimatedMemoryMB)),
		row("lastWarmed", s.LastWarmed),
		row("uniqueMeasures", s.UniqueMeasures),
		row("uniquePractices", s.UniquePractices),
		row("uniqueProviders", s.UniqueProviders),
	)

	return statsBoxStyle.Width(min(width-4, 60)).Render(body)
}
