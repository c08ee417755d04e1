// Package constants provides shared constants used throughout the aigo codebase.
// This includes adapter timeouts, cache TTLs, paging limits and the fixed
// weights of the rank score so they stay consistent across packages.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the AA API
	DefaultHTTPTimeout = 30 * time.Second

	// AAFetchTimeout bounds a single AA adapter fetch
	AAFetchTimeout = 10 * time.Second

	// DatabaseFetchTimeout bounds a single database adapter fetch
	DatabaseFetchTimeout = 8 * time.Second

	// SnapshotTimeout bounds snapshot store reads and writes
	SnapshotTimeout = 3 * time.Second

	// RebuildTimeout bounds a background stale-while-revalidate rebuild
	RebuildTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 2 * time.Minute

	// RetryBackoff is the base backoff before the single adapter retry
	RetryBackoff = 250 * time.Millisecond
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// AdapterRetries is the number of extra attempts for network/timeout failures
	AdapterRetries = 1

	// MaxModelNameLength is the maximum allowed length for model names
	MaxModelNameLength = 256

	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 50

	// MaxPageSize is the maximum allowed page size
	MaxPageSize = 1000

	// MaxResponseBytes caps the AA API response body
	MaxResponseBytes = 32 << 20
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for the merged catalog
	CacheTTL = 60 * time.Second

	// CacheCleanupInterval is how often go-cache sweeps expired items
	CacheCleanupInterval = 5 * time.Minute

	// CatalogCacheKey is the cache key of the merged, unfiltered catalog
	CatalogCacheKey = "catalog:all"

	// QueryCachePrefix prefixes cached filtered views
	QueryCachePrefix = "catalog:query:"
)

// Rank score weights
const (
	RankWeightIntelligence = 0.5
	RankWeightStatus       = 0.3
	RankWeightSpeed        = 0.2

	// MaxStatusWeight is the ordinal weight of an operational model
	MaxStatusWeight = 4
)

// Path constants
const (
	// DefaultConfigPath is the default path for the config file
	DefaultConfigPath = "~/.aigo.yaml"

	// DefaultSnapshotPath is the default file snapshot location
	DefaultSnapshotPath = "~/.aigo/snapshot.yaml"

	// DefaultBadgerPath is the default badger snapshot directory
	DefaultBadgerPath = "~/.aigo/badger"

	// SnapshotKey is the key of the last-known-good catalog in KV stores
	SnapshotKey = "aigo:snapshot:catalog"
)

// Format constants
const (
	// TimeFormatISO8601 is the ISO 8601 time format
	TimeFormatISO8601 = time.RFC3339

	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"
)
