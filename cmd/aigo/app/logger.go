package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/aigo/internal/config"
	"github.com/agentstation/aigo/pkg/logging"
)

// NewLogger creates a configured logger. Log level precedence (highest to
// lowest):
//  1. --log-level flag
//  2. -q/--quiet flag (wins over -v)
//  3. -v/--verbose flag
//  4. log_level setting (AIGO_LOG_LEVEL or config file)
//  5. Default (info)
func NewLogger(cfg *config.Config, flags Flags) zerolog.Logger {
	level := determineLogLevel(cfg, flags)
	return logging.NewLoggerFromConfig(&logging.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
}

func determineLogLevel(cfg *config.Config, flags Flags) string {
	if flags.LogLevel != "" {
		return validateLogLevel(flags.LogLevel)
	}

	if flags.Verbose && flags.Quiet {
		fmt.Fprintf(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet\n")
		return "warn"
	}
	if flags.Quiet {
		return "warn"
	}
	if flags.Verbose {
		return "debug"
	}

	if cfg.LogLevel != "" {
		return validateLogLevel(cfg.LogLevel)
	}
	return "info"
}

// validateLogLevel returns level when valid and "info" otherwise.
func validateLogLevel(level string) string {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return level
	}
	fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", level, "info")
	return "info"
}
