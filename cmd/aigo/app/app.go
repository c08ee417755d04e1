// Package app provides the application context and dependency management
// for the aigo CLI. Configuration, logging and the aggregator live here;
// commands reach them through application.Application.
package app

import (
	"context"
	"database/sql"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/aigo"
	"github.com/agentstation/aigo/internal/config"
	"github.com/agentstation/aigo/internal/snapshot"
	"github.com/agentstation/aigo/internal/sources/aa"
	"github.com/agentstation/aigo/internal/sources/correction"
	"github.com/agentstation/aigo/internal/sources/database"
	"github.com/agentstation/aigo/internal/transport"
	"github.com/agentstation/aigo/internal/utils/fsutil"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
)

// App holds the CLI dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	flags  Flags
	config *config.Config
	logger *zerolog.Logger
	stdout io.Writer
	stderr io.Writer

	// aggregator is built on first use and owns db and store
	mu         sync.Mutex
	aggregator aigo.Aggregator
	db         *sql.DB
	store      snapshot.Store
}

// New creates an App. Configuration is loaded once flags are parsed.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the loaded configuration, or nil before a command runs.
func (a *App) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the --format flag value.
func (a *App) OutputFormat() string { return a.flags.Format }

// Aggregator returns the aggregator, building it on first use.
func (a *App) Aggregator(ctx context.Context) (aigo.Aggregator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.aggregator != nil {
		return a.aggregator, nil
	}
	if a.config == nil {
		return nil, errors.NewConfigError("app", "configuration not loaded", nil)
	}

	opts, err := a.buildOptions(ctx)
	if err != nil {
		return nil, err
	}
	agg, err := aigo.New(opts...)
	if err != nil {
		return nil, err
	}
	a.aggregator = agg
	return agg, nil
}

// buildOptions turns the configuration into aggregator options. Must be
// called with a.mu held.
func (a *App) buildOptions(ctx context.Context) ([]aigo.Option, error) {
	cfg := a.config
	opts := []aigo.Option{
		aigo.WithLogger(a.logger),
		aigo.WithCacheTTL(cfg.Cache.TTL),
		aigo.WithStaleWhileRevalidate(cfg.Cache.StaleWhileRevalidate),
		aigo.WithAdapterTimeouts(cfg.AA.Timeout, cfg.Database.Timeout),
	}

	switch {
	case cfg.AA.APIURL != "":
		client := transport.New("aa", transport.ParseAuth(cfg.AA.Auth), transport.WithAPIKey(cfg.AA.APIKey))
		opts = append(opts, aigo.WithAA(aa.NewHTTPAdapter(cfg.AA.APIURL, client)))
	case cfg.AA.FeedPath != "":
		opts = append(opts, aigo.WithAA(aa.NewFileAdapter(fsutil.ExpandPath(cfg.AA.FeedPath))))
	default:
		a.logger.Debug().Msg("No AA feed configured")
	}

	if cfg.Database.DSN != "" {
		db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db

		var dbOpts []database.Option
		if cfg.Database.IncludeInactive {
			dbOpts = append(dbOpts, database.WithInactive())
		}
		opts = append(opts, aigo.WithDatabase(database.New(db, dbOpts...)))
	}

	if loc := cfg.SnapshotLocation(); loc != "" {
		// an unreachable snapshot store only costs the snapshot tier
		store, err := snapshot.Open(ctx, loc)
		if err != nil {
			a.logger.Warn().Err(err).Str("backend", cfg.Snapshot.Backend).Msg("Snapshot store unavailable")
		} else {
			a.store = store
			opts = append(opts, aigo.WithSnapshotStore(store))
		}
	}

	if cfg.Corrections.Path != "" {
		opts = append(opts, aigo.WithCorrections(correction.New(fsutil.ExpandPath(cfg.Corrections.Path))))
	}

	return opts, nil
}

// Shutdown closes the resources opened for the aggregator.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	a.aggregator = nil
	return errors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets the configuration instead of loading it.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		a.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput redirects command output, which otherwise goes to the
// process's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) error {
		a.stdout, a.stderr = stdout, stderr
		return nil
	}
}

// WithAggregator sets a prebuilt aggregator (useful for testing).
func WithAggregator(agg aigo.Aggregator) Option {
	return func(a *App) error {
		a.aggregator = agg
		return nil
	}
}
