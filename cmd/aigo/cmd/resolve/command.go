// Package resolve provides the resolve command, which shows how raw model
// names map to canonical slugs.
package resolve

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/aigo/internal/cmd/application"
	"github.com/agentstation/aigo/internal/cmd/output"
	"github.com/agentstation/aigo/internal/cmd/table"
	"github.com/agentstation/aigo/pkg/identity"
)

// Resolution is the structured form of one resolved name.
type Resolution struct {
	Input    string             `json:"input" yaml:"input"`
	Slug     string             `json:"slug,omitempty" yaml:"slug,omitempty"`
	Result   identity.Kind      `json:"result" yaml:"result"`
	Alias    *identity.Alias    `json:"alias,omitempty" yaml:"alias,omitempty"`
	Conflict *identity.Conflict `json:"conflict,omitempty" yaml:"conflict,omitempty"`
	Error    string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewCommand creates the resolve command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resolve <name>...",
		GroupID: "debug",
		Short:   "Resolve raw model names to canonical slugs",
		Long: `Resolve raw model names in order within one resolver, the way a
single aggregation pass does. Later names may match, alias or conflict
with earlier ones.`,
		Example: `  aigo resolve "GPT-5 (high)" "gpt-5 high" "GPT 5"
  aigo resolve --provider anthropic "Claude Opus 4.1" "claude-4-1-opus"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, _ := cmd.Flags().GetString("provider")
			fuzzy, _ := cmd.Flags().GetBool("fuzzy")

			opts := []identity.Option{identity.WithLogger(app.Logger())}
			if !fuzzy {
				opts = append(opts, identity.WithoutFuzzy())
			}
			resolver := identity.NewResolver(opts...)

			now := time.Now()
			outcomes := make([]identity.Outcome, len(args))
			results := make([]Resolution, len(args))
			for i, name := range args {
				outcomes[i] = resolver.Resolve(identity.Input{RawName: name, Provider: provider, ObservedAt: now})
				results[i] = toResolution(name, outcomes[i])
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, results, func(bool) any {
				return table.ResolutionsToTableData(args, outcomes)
			})
		},
	}

	cmd.Flags().String("provider", "", "Provider slug scoping fuzzy matches")
	cmd.Flags().Bool("fuzzy", true, "Attach near-identical names as aliases")
	return cmd
}

func toResolution(name string, o identity.Outcome) Resolution {
	r := Resolution{Input: name, Result: o.Kind, Alias: o.Alias, Conflict: o.Conflict}
	if o.Identity != nil {
		r.Slug = o.Identity.Slug
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}
