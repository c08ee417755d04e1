package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/aigo/cmd/aigo/cmd/cache"
	"github.com/agentstation/aigo/cmd/aigo/cmd/models"
	"github.com/agentstation/aigo/cmd/aigo/cmd/providers"
	"github.com/agentstation/aigo/cmd/aigo/cmd/resolve"
	"github.com/agentstation/aigo/cmd/aigo/cmd/version"
	"github.com/agentstation/aigo/internal/cmd/output"
	"github.com/agentstation/aigo/internal/config"
)

// Flags holds the persistent root flags.
type Flags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	Format     string
	LogLevel   string
}

// Execute runs the aigo CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "aigo",
		Short:   "Unified AI model catalog",
		Version: a.version,
		Long: `aigo merges AI model benchmarks from Artificial Analysis with live
pricing and status from an operational database into one catalog.

Without configuration it serves the bundled seed catalog. Point it at a
feed with AIGO_AA_FEED_PATH or AIGO_AA_API_URL and at a database with
AIGO_DATABASE_DSN.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "catalog", Title: "Catalog Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "debug", Title: "Debugging Commands:"})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.flags.ConfigFile, "config", "", "config file (default is $HOME/.aigo.yaml)")
	pf.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&a.flags.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.StringVarP(&a.flags.Format, "format", "o", "", "output format: table, wide, json, yaml")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("aigo {{.Version}}\n")
	if a.stdout != nil {
		rootCmd.SetOut(a.stdout)
	}
	if a.stderr != nil {
		rootCmd.SetErr(a.stderr)
	}

	rootCmd.AddCommand(models.NewCommand(a))
	rootCmd.AddCommand(providers.NewCommand(a))
	rootCmd.AddCommand(resolve.NewCommand(a))
	rootCmd.AddCommand(cache.NewCommand(a))
	rootCmd.AddCommand(version.NewCommand(a))

	return rootCmd
}

// setupCommand loads configuration and the logger once flags are parsed.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	if _, err := output.ParseFormat(a.flags.Format); err != nil {
		return err
	}

	if a.config == nil {
		cfg, err := config.Load(a.flags.ConfigFile)
		if err != nil {
			return err
		}
		a.config = cfg
	}

	logger := NewLogger(a.config, a.flags)
	a.logger = &logger
	return nil
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
