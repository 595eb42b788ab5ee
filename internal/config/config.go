// Package config loads seqedit settings from YAML or JSON files and
// SEQEDIT_* environment overrides, and parses batch plans.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"seqedit/internal/blob"
	"seqedit/internal/core"
	"seqedit/internal/log"
)

// Metrics backends.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the full tool configuration.
type Config struct {
	LogLevel    string           `yaml:"log_level" json:"log_level"`
	Metrics     string           `yaml:"metrics" json:"metrics"`
	Engine      EngineConfig     `yaml:"engine" json:"engine"`
	Checkpoints CheckpointConfig `yaml:"checkpoints" json:"checkpoints"`
	Blob        blob.Config      `yaml:"blob" json:"blob"`
}

// EngineConfig tunes batch execution.
type EngineConfig struct {
	// ActionDelay is a Go duration string such as "250ms".
	ActionDelay    string `yaml:"action_delay" json:"action_delay"`
	ConflictPolicy string `yaml:"conflict_policy" json:"conflict_policy"`
	CommitPolicy   string `yaml:"commit_policy" json:"commit_policy"`
}

// CheckpointConfig selects where pre-run checkpoints are written.
type CheckpointConfig struct {
	Driver      string `yaml:"driver" json:"driver"`
	SQLitePath  string `yaml:"sqlite_path" json:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
	Retention   int    `yaml:"retention" json:"retention"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "warn",
		Metrics:  MetricsNone,
		Engine: EngineConfig{
			ConflictPolicy: string(core.ConflictAbort),
			CommitPolicy:   string(core.CommitDiscard),
		},
		Checkpoints: CheckpointConfig{
			Driver:    string(core.StorageMemory),
			Retention: core.DefaultCheckpointRetention,
		},
		Blob: blob.Config{Driver: blob.DriverFilesystem, FSRoot: "seqedit-blobs"},
	}
}

// Load starts from Default, overlays the file at path (if any) and then the
// environment, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := parseFileInto(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseFile reads a configuration file; the extension picks the format.
func ParseFile(path string) (Config, error) {
	var cfg Config
	err := parseFileInto(path, &cfg)
	return cfg, err
}

// ParseYAML decodes YAML strictly: unknown keys are errors.
func ParseYAML(data []byte) (Config, error) {
	var cfg Config
	err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict())
	return cfg, err
}

// ParseJSON decodes a JSON configuration.
func ParseJSON(data []byte) (Config, error) {
	var cfg Config
	err := json.Unmarshal(data, &cfg)
	return cfg, err
}

func parseFileInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yml", ".yaml":
		err = yaml.UnmarshalWithOptions(data, cfg, yaml.Strict())
	default:
		return fmt.Errorf("unsupported file extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from SEQEDIT_* variables read through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SEQEDIT_LOG_LEVEL", &cfg.LogLevel)
	str("SEQEDIT_METRICS", &cfg.Metrics)
	str("SEQEDIT_ACTION_DELAY", &cfg.Engine.ActionDelay)
	str("SEQEDIT_CONFLICT_POLICY", &cfg.Engine.ConflictPolicy)
	str("SEQEDIT_COMMIT_POLICY", &cfg.Engine.CommitPolicy)
	str("SEQEDIT_CHECKPOINT_DRIVER", &cfg.Checkpoints.Driver)
	str("SEQEDIT_SQLITE_PATH", &cfg.Checkpoints.SQLitePath)
	str("SEQEDIT_POSTGRES_DSN", &cfg.Checkpoints.PostgresDSN)
	if v, ok := lookup("SEQEDIT_CHECKPOINT_RETENTION"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SEQEDIT_CHECKPOINT_RETENTION: %w", err)
		}
		cfg.Checkpoints.Retention = n
	}

	var driver string
	str("SEQEDIT_BLOB_DRIVER", &driver)
	if driver != "" {
		cfg.Blob.Driver = blob.Driver(driver)
	}
	str("SEQEDIT_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("SEQEDIT_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("SEQEDIT_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("SEQEDIT_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("SEQEDIT_BLOB_S3_ACCESS_KEY_ID", &cfg.Blob.S3.AccessKeyID)
	str("SEQEDIT_BLOB_S3_SECRET_ACCESS_KEY", &cfg.Blob.S3.SecretAccessKey)
	if v, ok := lookup("SEQEDIT_BLOB_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEQEDIT_BLOB_S3_PATH_STYLE: %w", err)
		}
		cfg.Blob.S3.PathStyle = b
	}
	return nil
}

// Validate checks enumerations and durations.
func (c Config) Validate() error {
	if _, err := c.ActionDelay(); err != nil {
		return err
	}
	if _, err := core.ParseConflictPolicy(c.Engine.ConflictPolicy); err != nil {
		return err
	}
	if _, err := c.CommitPolicy(); err != nil {
		return err
	}
	switch core.StorageDriver(c.Checkpoints.Driver) {
	case "", core.StorageMemory, core.StorageSQLite, core.StoragePostgres, core.StorageBlob:
	default:
		return fmt.Errorf("unknown checkpoint driver %q", c.Checkpoints.Driver)
	}
	switch c.Blob.Driver {
	case "", blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Metrics {
	case "", MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		return fmt.Errorf("unknown metrics backend %q", c.Metrics)
	}
	return nil
}

// ActionDelay parses Engine.ActionDelay; empty means no delay.
func (c Config) ActionDelay() (time.Duration, error) {
	if c.Engine.ActionDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Engine.ActionDelay)
	if err != nil {
		return 0, fmt.Errorf("engine.action_delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("engine.action_delay must not be negative")
	}
	return d, nil
}

// Level returns the configured log level.
func (c Config) Level() log.Level { return log.LevelFromString(c.LogLevel) }

// Storage builds the checkpoint storage selection. store backs the blob
// driver and may be nil otherwise.
func (c Config) Storage(store blob.Store) core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.Checkpoints.Driver),
		SQLitePath:  c.Checkpoints.SQLitePath,
		PostgresDSN: c.Checkpoints.PostgresDSN,
		Blob:        store,
		Retention:   c.Checkpoints.Retention,
	}
}

// CommitPolicy parses the configured commit policy.
func (c Config) CommitPolicy() (core.CommitPolicy, error) {
	return core.ParseCommitPolicy(c.Engine.CommitPolicy)
}

// EngineOptions translates the engine section into core options. Call
// Validate first; invalid values are reported again here.
func (c Config) EngineOptions() ([]core.Option, error) {
	delay, err := c.ActionDelay()
	if err != nil {
		return nil, err
	}
	conflicts, err := core.ParseConflictPolicy(c.Engine.ConflictPolicy)
	if err != nil {
		return nil, err
	}
	commit, err := c.CommitPolicy()
	if err != nil {
		return nil, err
	}
	return []core.Option{
		core.WithActionDelay(delay),
		core.WithConflictResolver(conflicts),
		core.WithCommitPolicy(commit),
	}, nil
}
