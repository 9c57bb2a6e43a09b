// Package config loads the scorer's process configuration from
// CRICKETCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cricketcore/internal/archive"
	"cricketcore/internal/archive/blob"
	"cricketcore/internal/archive/s3"
	"cricketcore/internal/core"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name.
const Prefix = "CRICKETCORE_"

// Config is the full process configuration.
type Config struct {
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH"    envDefault:"cricketcore.db"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	LegacyImport  string `env:"LEGACY_IMPORT"`

	HTTPAddr        string        `env:"HTTP_ADDR"        envDefault:":8080"`
	CORSOrigins     []string      `env:"CORS_ORIGINS"     envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DefaultOversLimit int           `env:"DEFAULT_OVERS"    envDefault:"20"`
	UndoDepth         int           `env:"UNDO_DEPTH"       envDefault:"300"`
	NotificationTTL   time.Duration `env:"NOTIFICATION_TTL" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// TraceFile receives one JSON line per service operation when set.
	TraceFile string `env:"TRACE_FILE"`

	RedisURL    string `env:"REDIS_URL"`
	RedisStream string `env:"REDIS_STREAM" envDefault:"cricket.notifications"`
	RedisMaxLen int64  `env:"REDIS_MAXLEN" envDefault:"10000"`

	ArchiveDriver string `env:"ARCHIVE_DRIVER"  envDefault:"fs"`
	ArchiveFSRoot string `env:"ARCHIVE_FS_ROOT" envDefault:"./archive"`
	S3Bucket      string `env:"S3_BUCKET"`
	S3Region      string `env:"S3_REGION"       envDefault:"us-east-1"`
	S3Endpoint    string `env:"S3_ENDPOINT"`
	S3PathStyle   bool   `env:"S3_PATH_STYLE"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads vars instead of the process environment. Keys carry the
// CRICKETCORE_ prefix.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch core.StorageDriver(c.StorageDriver) {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("%sPOSTGRES_DSN required for postgres storage", Prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	switch blob.Driver(c.ArchiveDriver) {
	case archive.DriverNone, blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.S3Bucket == "" {
			errs = append(errs, fmt.Errorf("%sS3_BUCKET required for s3 archive", Prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown archive driver %q", c.ArchiveDriver))
	}
	if c.DefaultOversLimit < 0 {
		errs = append(errs, fmt.Errorf("default overs %d must not be negative", c.DefaultOversLimit))
	}
	if c.UndoDepth <= 0 {
		errs = append(errs, fmt.Errorf("undo depth %d must be positive", c.UndoDepth))
	}
	if c.NotificationTTL <= 0 {
		errs = append(errs, fmt.Errorf("notification ttl %s must be positive", c.NotificationTTL))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// StorageOptions selects the persistence backend.
func (c Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.StorageDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}

// Archive configures scorecard archiving.
func (c Config) Archive() archive.Config {
	return archive.Config{
		Driver: blob.Driver(c.ArchiveDriver),
		FSRoot: c.ArchiveFSRoot,
		S3: s3.Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			PathStyle: c.S3PathStyle,
		},
	}
}

// ServiceOptions maps the scoring settings onto core options.
func (c Config) ServiceOptions() []core.Option {
	return []core.Option{
		core.WithDefaultOversLimit(c.DefaultOversLimit),
		core.WithUndoDepth(c.UndoDepth),
		core.WithNotificationTTL(c.NotificationTTL),
	}
}
