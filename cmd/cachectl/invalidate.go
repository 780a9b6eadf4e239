package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

var (
	invalidateSourceConfig string
	invalidateSourceDriver string
	invalidateSourceDSN    string
	invalidateYes          bool
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <dataSourceId>",
	Short: "Delete all cached state for a data source",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvalidate,
}

func init() {
	invalidateCmd.Flags().StringVar(&invalidateSourceConfig, "source-config", "", "YAML file mapping data source IDs to schema/table/columnMapping")
	invalidateCmd.Flags().StringVar(&invalidateSourceDriver, "source-driver", "sqlite", "source database driver: postgres, mysql, or sqlite")
	invalidateCmd.Flags().StringVar(&invalidateSourceDSN, "source-dsn", "", "source database DSN")
	invalidateCmd.Flags().BoolVarP(&invalidateYes, "yes", "y", false, "skip the confirmation prompt")
	_ = invalidateCmd.MarkFlagRequired("source-config")
	rootCmd.AddCommand(invalidateCmd)
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	dataSourceID, err := parseDataSourceID(args[0])
	if err != nil {
		return err
	}

	if !invalidateYes {
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("This permanently deletes all cached entries for data source %d. Continue?", dataSourceID),
			Default: false,
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		if !confirmed {
			fmt.Println("aborted")
			return nil
		}
	}

	c, cleanup, err := buildCache(invalidateSourceConfig, invalidateSourceDriver, invalidateSourceDSN)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := c.Invalidate(cmd.Context(), dataSourceID); err != nil {
		return fmt.Errorf("invalidate failed: %w", err)
	}
	fmt.Println(red("invalidated"), "all cached entries for data source", dataSourceID)
	return nil
}
