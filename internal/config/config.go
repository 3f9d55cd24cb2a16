// Package config loads runtime configuration for the analyser: the
// suggestion-engine's policy thresholds, resource-limiter ceilings,
// and snapshot storage paths. Decoder/build-adapter configuration is
// out of scope (spec's ambient-stack boundary).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidMaxBottlenecks  = errors.New("max bottlenecks must be positive")
	ErrInvalidMaxSuggestions  = errors.New("max suggestions must be positive")
	ErrInvalidConfidence      = errors.New("min confidence must be within [0, 1]")
	ErrInvalidSignificance    = errors.New("significance threshold must be within (0, 1]")
	ErrInvalidSnapshotDir     = errors.New("snapshot directory must not be empty")
	ErrInvalidLimiterCeiling  = errors.New("limiter ceiling must be non-negative")
)

// Default configuration values for the suggestion, template, and resource-limiter policies.
const (
	defaultMaxBottlenecks        = 20
	defaultMaxSuggestions        = 50
	defaultMinConfidence         = 0.0
	defaultPCHInclusionCountMin  = 5
	defaultPCHParseTimeMinMs     = 200
	defaultTemplateTimePctMin    = 10.0
	defaultSignificanceThreshold = 0.10
	defaultSnapshotDir           = ".bha/snapshots"
)

// Config is the root configuration object, unmarshalled via mapstructure.
type Config struct {
	Suggest  SuggestConfig  `mapstructure:"suggest"`
	Limiter  LimiterConfig  `mapstructure:"limiter"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SuggestConfig exposes the suggestion engine's thresholds as
// configuration: these are policy, not law.
type SuggestConfig struct {
	MinConfidence          float64 `mapstructure:"min_confidence"`
	IncludeUnsafe          bool    `mapstructure:"include_unsafe"`
	MaxSuggestions         int     `mapstructure:"max_suggestions"`
	MaxBottlenecks         int     `mapstructure:"max_bottlenecks"`
	PCHInclusionCountMin   int     `mapstructure:"pch_inclusion_count_min"`
	PCHParseTimeMinMs      float64 `mapstructure:"pch_parse_time_min_ms"`
	TemplateTimePercentMin float64 `mapstructure:"template_time_percent_min"`
	SignificanceThreshold  float64 `mapstructure:"significance_threshold"`
}

// LimiterConfig exposes the resource-limiter ceilings.
type LimiterConfig struct {
	Enabled        bool  `mapstructure:"enabled"`
	MaxMemoryBytes int64 `mapstructure:"max_memory_bytes"`
	MaxWallSeconds int   `mapstructure:"max_wall_seconds"`
	MaxNodes       int   `mapstructure:"max_nodes"`
	MaxEdges       int   `mapstructure:"max_edges"`
	MaxUnits       int   `mapstructure:"max_units"`
}

// SnapshotConfig locates snapshot storage.
type SnapshotConfig struct {
	Directory string `mapstructure:"directory"`
}

// LoggingConfig controls the logger's level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file and the BHA_-prefixed
// environment, applying defaults and validating the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bha")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/bha")
	}

	v.SetEnvPrefix("BHA")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("suggest.min_confidence", defaultMinConfidence)
	v.SetDefault("suggest.include_unsafe", true)
	v.SetDefault("suggest.max_suggestions", defaultMaxSuggestions)
	v.SetDefault("suggest.max_bottlenecks", defaultMaxBottlenecks)
	v.SetDefault("suggest.pch_inclusion_count_min", defaultPCHInclusionCountMin)
	v.SetDefault("suggest.pch_parse_time_min_ms", defaultPCHParseTimeMinMs)
	v.SetDefault("suggest.template_time_percent_min", defaultTemplateTimePctMin)
	v.SetDefault("suggest.significance_threshold", defaultSignificanceThreshold)

	v.SetDefault("limiter.enabled", false)
	v.SetDefault("limiter.max_memory_bytes", int64(8)<<30)
	v.SetDefault("limiter.max_wall_seconds", 300)
	v.SetDefault("limiter.max_nodes", 100_000)
	v.SetDefault("limiter.max_edges", 1_000_000)
	v.SetDefault("limiter.max_units", 50_000)

	v.SetDefault("snapshot.directory", defaultSnapshotDir)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func validate(cfg *Config) error {
	if cfg.Suggest.MaxBottlenecks <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxBottlenecks, cfg.Suggest.MaxBottlenecks)
	}

	if cfg.Suggest.MaxSuggestions <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxSuggestions, cfg.Suggest.MaxSuggestions)
	}

	if cfg.Suggest.MinConfidence < 0 || cfg.Suggest.MinConfidence > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidConfidence, cfg.Suggest.MinConfidence)
	}

	if cfg.Suggest.SignificanceThreshold <= 0 || cfg.Suggest.SignificanceThreshold > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidSignificance, cfg.Suggest.SignificanceThreshold)
	}

	if cfg.Snapshot.Directory == "" {
		return ErrInvalidSnapshotDir
	}

	if cfg.Limiter.MaxMemoryBytes < 0 || cfg.Limiter.MaxWallSeconds < 0 || cfg.Limiter.MaxNodes < 0 || cfg.Limiter.MaxEdges < 0 || cfg.Limiter.MaxUnits < 0 {
		return ErrInvalidLimiterCeiling
	}

	return nil
}
