// Package cache provides the cache command.
package cache

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/aigo"
	"github.com/agentstation/aigo/internal/cmd/application"
	"github.com/agentstation/aigo/internal/cmd/output"
	"github.com/agentstation/aigo/internal/cmd/table"
)

// NewCommand creates the cache command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cache",
		GroupID: "debug",
		Short:   "Inspect the catalog cache",
	}
	cmd.AddCommand(newStatsCommand(app))
	return cmd
}

func newStatsCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build the catalog and print cache counters",
		Long: `The cache lives in process, so stats first runs the given number of
catalog queries to warm it up and then prints the counters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			warm, _ := cmd.Flags().GetInt("warm")

			agg, err := app.Aggregator(cmd.Context())
			if err != nil {
				return err
			}
			for i := 0; i < warm; i++ {
				if _, err := agg.Catalog(cmd.Context(), aigo.Request{}); err != nil {
					return err
				}
			}

			stats := agg.CacheStats()
			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, stats, func(bool) any {
				return table.StatsToTableData(stats)
			})
		},
	}
	cmd.Flags().Int("warm", 2, "Catalog queries to run before reading the counters")
	return cmd
}
