package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	"github.com/kushgupta-hiver/tttengine/internal/search"
)

type Config struct {
	Addr   string       `yaml:"addr"`
	Log    LogConfig    `yaml:"log"`
	Search SearchConfig `yaml:"search"`
	Match  MatchConfig  `yaml:"match"`
	WS     WSConfig     `yaml:"ws"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type SearchConfig struct {
	RandomOpening  bool   `yaml:"random_opening"`
	Parallel       bool   `yaml:"parallel"`
	Validate       bool   `yaml:"validate"`
	DisablePruning bool   `yaml:"disable_pruning"`
	Seed           uint64 `yaml:"seed"`
}

type MatchConfig struct {
	GracePeriod time.Duration `yaml:"grace_period"`
}

type WSConfig struct {
	OriginPatterns     []string `yaml:"origin_patterns"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

func Default() Config {
	return Config{
		Addr: ":8000",
		Log:  LogConfig{Level: "info"},
		Search: SearchConfig{
			Validate: true,
		},
	}
}

// Load reads defaults, then the YAML file at path if path is not empty, then
// environment overrides.
func Load(path string) (Config, error) {
	return LoadFrom(Default(), path)
}

// LoadFrom is Load with cfg in place of the built-in defaults.
func LoadFrom(cfg Config, path string) (Config, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from ADDR, LOG_LEVEL, LOG_DEVELOPMENT,
// SEARCH_PARALLEL, SEARCH_RANDOM_OPENING, SEARCH_SEED and GRACE_PERIOD.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ADDR"); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"LOG_DEVELOPMENT", &c.Log.Development},
		{"SEARCH_PARALLEL", &c.Search.Parallel},
		{"SEARCH_RANDOM_OPENING", &c.Search.RandomOpening},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", b.key, err)
		}
		*b.dst = parsed
	}

	if v, ok := lookup("SEARCH_SEED"); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("env SEARCH_SEED: %w", err)
		}
		c.Search.Seed = seed
	}
	if v, ok := lookup("GRACE_PERIOD"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("env GRACE_PERIOD: %w", err)
		}
		c.Match.GracePeriod = d
	}
	return nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr must not be empty")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.Match.GracePeriod < 0 {
		return fmt.Errorf("config: negative grace period %s", c.Match.GracePeriod)
	}
	return nil
}

func (c Config) level() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return lvl, fmt.Errorf("config: log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// NewLogger builds the process logger: JSON in production, console output in
// development mode.
func (c Config) NewLogger() (*zap.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func (c Config) SearchOptions(log *zap.Logger) search.Options {
	return search.Options{
		RandomOpening:  c.Search.RandomOpening,
		Validate:       c.Search.Validate,
		Parallel:       c.Search.Parallel,
		DisablePruning: c.Search.DisablePruning,
		Seed:           c.Search.Seed,
		Logger:         log,
	}
}
