// Package application defines what CLI commands need from the application.
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/aigo"
)

// Application is implemented by cmd/aigo/app.App. Commands accept this
// interface so they can be tested with Mock.
//
// All methods must be safe for concurrent access.
type Application interface {
	// Aggregator returns the lazily built catalog aggregator.
	Aggregator(ctx context.Context) (aigo.Aggregator, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, wide, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
