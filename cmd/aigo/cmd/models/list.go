package models

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/aigo"
	"github.com/agentstation/aigo/internal/cmd/application"
	"github.com/agentstation/aigo/internal/cmd/output"
	"github.com/agentstation/aigo/internal/cmd/table"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/query"
	"github.com/agentstation/aigo/pkg/sources"
)

// NewListCommand creates the list subcommand for models.
func NewListCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models with filters, sorting and paging",
		Example: `  aigo models list --min-intelligence 60 --max-price 5
  aigo models list --search claude --sort name
  aigo models list --source database --active
  aigo models list --id 're:^gpt-5' -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := parseRequest(cmd.Flags())
			if err != nil {
				return err
			}
			return listModels(cmd, app, req)
		},
	}

	addFlags(cmd.Flags())
	return cmd
}

func addFlags(fs *pflag.FlagSet) {
	fs.StringP("provider", "p", "", "Filter by provider name or slug")
	fs.String("status", "", "Filter by status: operational, degraded, down, unknown")
	fs.StringP("search", "s", "", "Search names, providers and aliases")
	fs.String("source", "", "Only models reported by a source: aa, database, correction")
	fs.Bool("aa-only", false, "Only models missing from the database")
	fs.Bool("db-only", false, "Only models missing from the AA feed")
	fs.Bool("active", false, "Only active models")
	fs.String("modality", "", "Filter by modality (e.g., image)")
	fs.String("capability", "", "Filter by capability (e.g., tools)")
	fs.String("id", "", "Filter ids by glob, or regexp with a re: prefix")

	fs.Float64("min-intelligence", 0, "Minimum intelligence score")
	fs.Float64("max-intelligence", 0, "Maximum intelligence score")
	fs.Float64("min-speed", 0, "Minimum output tokens per second")
	fs.Float64("max-speed", 0, "Maximum output tokens per second")
	fs.Float64("min-price", 0, "Minimum input price (USD per 1M tokens)")
	fs.Float64("max-price", 0, "Maximum input price (USD per 1M tokens)")
	fs.Float64("min-context", 0, "Minimum context window")
	fs.Float64("max-context", 0, "Maximum context window")

	fs.String("sort", "", "Sort field, '-field' for descending or 'field:asc'")
	fs.IntP("limit", "n", constants.DefaultPageSize, "Page size")
	fs.Int("offset", 0, "Number of models to skip")
}

// parseRequest builds a catalog request. Range bounds apply only when
// their flag was given, so zero stays a usable bound.
func parseRequest(fs *pflag.FlagSet) (aigo.Request, error) {
	var req aigo.Request
	f := &req.Filters

	f.Provider, _ = fs.GetString("provider")
	status, _ := fs.GetString("status")
	f.Status = sources.Status(status)
	f.Search, _ = fs.GetString("search")
	source, _ := fs.GetString("source")
	f.Source = sources.Tag(source)
	f.AAOnly, _ = fs.GetBool("aa-only")
	f.DBOnly, _ = fs.GetBool("db-only")
	f.ActiveOnly, _ = fs.GetBool("active")
	f.Modality, _ = fs.GetString("modality")
	f.Capability, _ = fs.GetString("capability")
	f.IDPattern, _ = fs.GetString("id")

	f.Intelligence = rangeOf(fs, "min-intelligence", "max-intelligence")
	f.Speed = rangeOf(fs, "min-speed", "max-speed")
	f.InputPrice = rangeOf(fs, "min-price", "max-price")
	f.ContextWindow = rangeOf(fs, "min-context", "max-context")

	sortSpec, _ := fs.GetString("sort")
	s, err := query.ParseSort(sortSpec)
	if err != nil {
		return req, err
	}
	req.Sort = s
	req.Limit, _ = fs.GetInt("limit")
	req.Offset, _ = fs.GetInt("offset")

	return req, nil
}

func rangeOf(fs *pflag.FlagSet, minName, maxName string) query.Range {
	var r query.Range
	if fs.Changed(minName) {
		v, _ := fs.GetFloat64(minName)
		r.Min = &v
	}
	if fs.Changed(maxName) {
		v, _ := fs.GetFloat64(maxName)
		r.Max = &v
	}
	return r
}

func listModels(cmd *cobra.Command, app application.Application, req aigo.Request) error {
	agg, err := app.Aggregator(cmd.Context())
	if err != nil {
		return err
	}

	resp, err := agg.Catalog(cmd.Context(), req)
	if err != nil {
		return err
	}

	format := output.DetectFormat(app.OutputFormat())
	if err := output.Write(cmd.OutOrStdout(), format, resp, func(wide bool) any {
		return table.ModelsToTableData(resp.Models, wide)
	}); err != nil {
		return err
	}

	if format.IsTable() {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\npage %d/%d, %d models, source %s, cache %s\n",
			resp.Page, resp.TotalPages, resp.Total, resp.DataSource, table.FormatAge(resp.CacheAge))
		if resp.FallbackReason != "" {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "fallback: %s\n", resp.FallbackReason)
		}
	}
	return nil
}
