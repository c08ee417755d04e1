// Package providers provides the providers command.
package providers

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/aigo/internal/cmd/application"
	"github.com/agentstation/aigo/internal/cmd/output"
	"github.com/agentstation/aigo/internal/cmd/table"
)

// NewCommand creates the providers command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "providers",
		GroupID: "catalog",
		Short:   "Summarize the catalog per provider",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agg, err := app.Aggregator(cmd.Context())
			if err != nil {
				return err
			}
			providers, err := agg.Providers(cmd.Context())
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, providers, func(bool) any {
				return table.ProvidersToTableData(providers)
			})
		},
	}
}
