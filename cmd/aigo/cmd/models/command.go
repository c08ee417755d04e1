// Package models provides the models resource command and subcommands.
package models

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/aigo/internal/cmd/application"
	"github.com/agentstation/aigo/internal/cmd/output"
	"github.com/agentstation/aigo/internal/cmd/table"
)

// NewCommand creates the models resource command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "models",
		GroupID: "catalog",
		Short:   "Query the unified model catalog",
		Long: `Query the unified model catalog.

The catalog merges the Artificial Analysis feed with the operational
database, falling back to the last snapshot and then the bundled seed
when sources are unavailable.`,
		Example: `  aigo models list                           # Top models by rank score
  aigo models list --provider openai         # OpenAI models only
  aigo models list --sort -speed --limit 10  # Ten fastest models
  aigo models get gpt-5-high                 # One model in detail`,
	}

	cmd.AddCommand(NewListCommand(app))
	cmd.AddCommand(NewGetCommand(app))

	return cmd
}

// NewGetCommand creates the get subcommand for models.
func NewGetCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug|name|alias>",
		Short: "Show one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := app.Aggregator(cmd.Context())
			if err != nil {
				return err
			}
			model, err := agg.Model(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, model, func(bool) any {
				return table.ModelDetails(model)
			})
		},
	}
}
