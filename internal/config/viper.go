// Package config loads aigo settings from flags, the environment, .env files
// and an optional YAML config file.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/aigo/internal/utils/fsutil"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
)

// EnvPrefix prefixes every environment variable, e.g. AIGO_DATABASE_DSN.
const EnvPrefix = "AIGO"

// Snapshot backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendNone   = "none"
)

// AAConfig locates the Artificial Analysis feed. APIURL wins over FeedPath.
type AAConfig struct {
	FeedPath string        `mapstructure:"feed_path"`
	APIURL   string        `mapstructure:"api_url"`
	APIKey   string        `mapstructure:"api_key"`
	Auth     string        `mapstructure:"auth"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig locates the operational database.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Timeout         time.Duration `mapstructure:"timeout"`
	IncludeInactive bool          `mapstructure:"include_inactive"`
}

// SnapshotConfig selects where the last good catalog is kept.
type SnapshotConfig struct {
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	RedisURL string `mapstructure:"redis_url"`
}

// CorrectionsConfig locates the optional overrides file.
type CorrectionsConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig tunes the catalog cache.
type CacheConfig struct {
	TTL                  time.Duration `mapstructure:"ttl"`
	StaleWhileRevalidate bool          `mapstructure:"stale_while_revalidate"`
}

// Config is the resolved configuration.
type Config struct {
	AA          AAConfig          `mapstructure:"aa"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot"`
	Corrections CorrectionsConfig `mapstructure:"corrections"`
	Cache       CacheConfig       `mapstructure:"cache"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogOutput string `mapstructure:"log_output"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// keys lists every setting so AutomaticEnv can see unset nested keys.
var keys = []string{
	"aa.feed_path", "aa.api_url", "aa.api_key", "aa.auth", "aa.timeout",
	"database.driver", "database.dsn", "database.timeout", "database.include_inactive",
	"snapshot.backend", "snapshot.path", "snapshot.redis_url",
	"corrections.path",
	"cache.ttl", "cache.stale_while_revalidate",
	"log_level", "log_format", "log_output",
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("aa.auth", "header:x-api-key")
	v.SetDefault("aa.timeout", constants.AAFetchTimeout)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.timeout", constants.DatabaseFetchTimeout)
	v.SetDefault("snapshot.backend", BackendFile)
	v.SetDefault("snapshot.path", constants.DefaultSnapshotPath)
	v.SetDefault("cache.ttl", constants.CacheTTL)
	v.SetDefault("cache.stale_while_revalidate", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads configuration in order of precedence: environment variables,
// .env files, the config file and defaults. An explicit configFile must
// exist; the default ~/.aigo.yaml is optional.
func Load(configFile string) (*Config, error) {
	loadEnvFiles()
	return LoadFrom(New(), configFile)
}

// LoadFrom is Load on a caller-provided viper instance, so flags bound to
// it take precedence.
func LoadFrom(v *viper.Viper, configFile string) (*Config, error) {
	var used string
	if configFile != "" {
		v.SetConfigFile(fsutil.ExpandPath(configFile))
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+configFile, err)
		}
		used = v.ConfigFileUsed()
	} else {
		v.SetConfigFile(fsutil.ExpandPath(constants.DefaultConfigPath))
		v.SetConfigType("yaml")
		// the default file is optional
		if err := v.ReadInConfig(); err == nil {
			used = v.ConfigFileUsed()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("config", "decoding settings", err)
	}
	cfg.ConfigFile = used
	cfg.Snapshot.Backend = strings.ToLower(strings.TrimSpace(cfg.Snapshot.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Snapshot.Backend {
	case BackendFile, BackendBadger:
		if c.Snapshot.Path == "" {
			return errors.NewValidationError("snapshot.path", c.Snapshot.Path, "is required for the "+c.Snapshot.Backend+" backend")
		}
	case BackendRedis:
		if c.Snapshot.RedisURL == "" {
			return errors.NewValidationError("snapshot.redis_url", c.Snapshot.RedisURL, "is required for the redis backend")
		}
	case BackendNone:
	default:
		return errors.NewValidationError("snapshot.backend", c.Snapshot.Backend, "must be one of: file, redis, badger, none")
	}
	if c.Cache.TTL <= 0 {
		return errors.NewValidationError("cache.ttl", c.Cache.TTL, "must be positive")
	}
	if c.AA.Timeout <= 0 {
		return errors.NewValidationError("aa.timeout", c.AA.Timeout, "must be positive")
	}
	if c.Database.Timeout <= 0 {
		return errors.NewValidationError("database.timeout", c.Database.Timeout, "must be positive")
	}
	return nil
}

// SnapshotLocation returns the location string understood by snapshot.Open,
// or "" when snapshots are disabled.
func (c *Config) SnapshotLocation() string {
	switch c.Snapshot.Backend {
	case BackendFile:
		return fsutil.ExpandPath(c.Snapshot.Path)
	case BackendBadger:
		return "badger://" + fsutil.ExpandPath(c.Snapshot.Path)
	case BackendRedis:
		return c.Snapshot.RedisURL
	default:
		return ""
	}
}

// loadEnvFiles loads .env and then .env.local. Variables already set in the
// environment are never overwritten.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
