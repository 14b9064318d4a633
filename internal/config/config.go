// Package config holds every tunable of the highlighter and loads overrides
// from a .env file and CODENARRATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"codenarrate/internal/drift"
	"codenarrate/internal/matcher"
	"codenarrate/internal/timeline"
)

const (
	DefaultEnvFile = ".env"
	envPrefix      = "CODENARRATE_"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	MergeWindowMs  int
	ToleranceMs    int
	WordDurationMs int

	MaxTokens      int
	BroadPenalty   float64
	FuzzyThreshold float64
	FuzzyDiscount  float64

	CalibrationHistory int
	CalibrationWindow  int

	TokenCacheSize int
	Theme          string

	LogLevel string
	LogFile  string

	// CacheDir holds built tracks; empty disables the cache.
	CacheDir string
	// CacheMaxBytes bounds CacheDir; older tracks are pruned past it.
	CacheMaxBytes int64

	ListenAddr string
	// AllowedOrigins lists browser origins besides the server's own host
	// that may open a websocket session. "*" allows any.
	AllowedOrigins []string
	// SignalsPerSecond bounds the time signals accepted from one client.
	SignalsPerSecond float64
}

func Default() *Config {
	m := matcher.DefaultOptions()
	return &Config{
		MergeWindowMs:      timeline.DefaultMergeWindowMs,
		ToleranceMs:        50,
		WordDurationMs:     400,
		MaxTokens:          m.MaxTokens,
		BroadPenalty:       m.BroadPenalty,
		FuzzyThreshold:     m.FuzzyThreshold,
		FuzzyDiscount:      m.FuzzyDiscount,
		CalibrationHistory: drift.DefaultHistory,
		CalibrationWindow:  drift.DefaultWindow,
		TokenCacheSize:     256,
		Theme:              "monokai",
		LogLevel:           "info",
		CacheDir:           defaultCacheDir(),
		CacheMaxBytes:      64 << 20,
		ListenAddr:         ":8787",
		SignalsPerSecond:   60,
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "codenarrate")
}

// Load returns defaults overridden by envFile and then by the process
// environment. A missing default .env is not an error; a missing file named
// explicitly is.
func Load(envFile string) (*Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type field struct {
	name string
	set  func(c *Config, v string) error
}

func intField(name string, dst func(*Config) *int) field {
	return field{name: name, set: func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}}
}

func floatField(name string, dst func(*Config) *float64) field {
	return field{name: name, set: func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}}
}

func int64Field(name string, dst func(*Config) *int64) field {
	return field{name: name, set: func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}}
}

// listField splits a comma separated value, dropping empty items.
func listField(name string, dst func(*Config) *[]string) field {
	return field{name: name, set: func(c *Config, v string) error {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst(c) = items
		return nil
	}}
}

func stringField(name string, dst func(*Config) *string) field {
	return field{name: name, set: func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}}
}

var fields = []field{
	intField("MERGE_WINDOW_MS", func(c *Config) *int { return &c.MergeWindowMs }),
	intField("TOLERANCE_MS", func(c *Config) *int { return &c.ToleranceMs }),
	intField("WORD_DURATION_MS", func(c *Config) *int { return &c.WordDurationMs }),
	intField("MAX_TOKENS", func(c *Config) *int { return &c.MaxTokens }),
	floatField("BROAD_PENALTY", func(c *Config) *float64 { return &c.BroadPenalty }),
	floatField("FUZZY_THRESHOLD", func(c *Config) *float64 { return &c.FuzzyThreshold }),
	floatField("FUZZY_DISCOUNT", func(c *Config) *float64 { return &c.FuzzyDiscount }),
	intField("CALIBRATION_HISTORY", func(c *Config) *int { return &c.CalibrationHistory }),
	intField("CALIBRATION_WINDOW", func(c *Config) *int { return &c.CalibrationWindow }),
	intField("TOKEN_CACHE_SIZE", func(c *Config) *int { return &c.TokenCacheSize }),
	stringField("THEME", func(c *Config) *string { return &c.Theme }),
	stringField("LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }),
	stringField("LOG_FILE", func(c *Config) *string { return &c.LogFile }),
	stringField("CACHE_DIR", func(c *Config) *string { return &c.CacheDir }),
	int64Field("CACHE_MAX_BYTES", func(c *Config) *int64 { return &c.CacheMaxBytes }),
	stringField("LISTEN_ADDR", func(c *Config) *string { return &c.ListenAddr }),
	listField("ALLOWED_ORIGINS", func(c *Config) *[]string { return &c.AllowedOrigins }),
	floatField("SIGNALS_PER_SECOND", func(c *Config) *float64 { return &c.SignalsPerSecond }),
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, f := range fields {
		v, ok := lookup(envPrefix + f.name)
		if !ok {
			continue
		}
		if err := f.set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s%s: %v: %w", envPrefix, f.name, err, ErrInvalid)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.MergeWindowMs >= 0, "merge window must not be negative")
	check(c.ToleranceMs > 0, "tolerance must be positive")
	check(c.WordDurationMs > 0, "word duration must be positive")
	check(c.MaxTokens > 0, "max tokens must be positive")
	check(c.BroadPenalty > 0 && c.BroadPenalty <= 1, "broad penalty must be in (0, 1]")
	check(c.FuzzyThreshold > 0 && c.FuzzyThreshold < 1, "fuzzy threshold must be in (0, 1)")
	check(c.FuzzyDiscount > 0 && c.FuzzyDiscount <= 1, "fuzzy discount must be in (0, 1]")
	check(c.CalibrationHistory > 0, "calibration history must be positive")
	check(c.CalibrationWindow > 0 && c.CalibrationWindow <= c.CalibrationHistory,
		"calibration window must be positive and no larger than the history")
	check(c.TokenCacheSize > 0, "token cache size must be positive")
	check(c.CacheMaxBytes > 0, "cache size limit must be positive")
	check(c.SignalsPerSecond > 0, "signals per second must be positive")
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(problems, "; "), ErrInvalid)
	}
	return nil
}

func (c *Config) MatcherOptions() matcher.Options {
	return matcher.Options{
		MaxTokens:      c.MaxTokens,
		BroadPenalty:   c.BroadPenalty,
		FuzzyThreshold: c.FuzzyThreshold,
		FuzzyDiscount:  c.FuzzyDiscount,
	}
}

func (c *Config) TimelineOptions() timeline.Options {
	return timeline.Options{
		MergeWindowMs: c.MergeWindowMs,
		Matcher:       c.MatcherOptions(),
	}
}

func (c *Config) DriftOptions() drift.Options {
	opts := drift.DefaultOptions()
	opts.History = c.CalibrationHistory
	opts.Window = c.CalibrationWindow
	return opts
}
