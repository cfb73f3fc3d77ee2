// Package config loads service configuration with layered precedence:
// built-in defaults, then an orbitwatch.yaml (or .toml) file, then
// ORBITWATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server      Server
	Auth        Auth
	Catalog     Catalog
	Risk        Risk
	Conjunction Conjunction
	Propagation Propagation
	RateLimit   RateLimit
	Log         Log
}

// Server holds HTTP listener settings.
type Server struct {
	Addr       string
	TrustProxy bool
}

// Auth holds bearer-token settings. An empty token disables auth.
type Auth struct {
	Token string
}

// Catalog holds element-set source settings.
type Catalog struct {
	BaseURL         string
	Groups          []string
	CacheDir        string
	CacheTTL        time.Duration
	FetchTimeout    time.Duration
	RefreshInterval time.Duration
}

// Risk holds the distance thresholds in kilometers.
type Risk struct {
	CriticalKm float64
	WarningKm  float64
}

// Conjunction holds close-approach search tuning.
type Conjunction struct {
	CoarseStep      time.Duration
	RefineTolerance time.Duration
	MaxRefineIter   int
}

// Propagation holds Kepler solver tuning.
type Propagation struct {
	NewtonTolerance float64
	NewtonMaxIter   int
}

// RateLimit holds per-client request limits.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Log holds logging settings.
type Log struct {
	Level string
}

// Load reads configuration from defaults, an optional config file, and
// the environment. An explicit non-empty path must exist; otherwise the
// file is searched in the working directory and /etc/orbitwatch and its
// absence is not an error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("auth.token", "")
	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.groups", []string{"stations"})
	v.SetDefault("catalog.cache_dir", "./data/catalog")
	v.SetDefault("catalog.cache_ttl", "6h")
	v.SetDefault("catalog.fetch_timeout", "30s")
	v.SetDefault("catalog.refresh_interval", "2h")
	v.SetDefault("risk.critical_km", 1.0)
	v.SetDefault("risk.warning_km", 5.0)
	v.SetDefault("conjunction.coarse_step", "30s")
	v.SetDefault("conjunction.refine_tolerance", "10ms")
	v.SetDefault("conjunction.max_refine_iter", 120)
	v.SetDefault("propagation.newton_tolerance", 1e-10)
	v.SetDefault("propagation.newton_max_iter", 30)
	v.SetDefault("ratelimit.rps", 10.0)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("ORBITWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("orbitwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/orbitwatch")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := Config{
		Server: Server{
			Addr:       v.GetString("server.addr"),
			TrustProxy: v.GetBool("server.trust_proxy"),
		},
		Auth: Auth{
			Token: v.GetString("auth.token"),
		},
		Catalog: Catalog{
			BaseURL:         v.GetString("catalog.base_url"),
			Groups:          v.GetStringSlice("catalog.groups"),
			CacheDir:        v.GetString("catalog.cache_dir"),
			CacheTTL:        v.GetDuration("catalog.cache_ttl"),
			FetchTimeout:    v.GetDuration("catalog.fetch_timeout"),
			RefreshInterval: v.GetDuration("catalog.refresh_interval"),
		},
		Risk: Risk{
			CriticalKm: v.GetFloat64("risk.critical_km"),
			WarningKm:  v.GetFloat64("risk.warning_km"),
		},
		Conjunction: Conjunction{
			CoarseStep:      v.GetDuration("conjunction.coarse_step"),
			RefineTolerance: v.GetDuration("conjunction.refine_tolerance"),
			MaxRefineIter:   v.GetInt("conjunction.max_refine_iter"),
		},
		Propagation: Propagation{
			NewtonTolerance: v.GetFloat64("propagation.newton_tolerance"),
			NewtonMaxIter:   v.GetInt("propagation.newton_max_iter"),
		},
		RateLimit: RateLimit{
			RPS:   v.GetFloat64("ratelimit.rps"),
			Burst: v.GetInt("ratelimit.burst"),
		},
		Log: Log{
			Level: v.GetString("log.level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if len(c.Catalog.Groups) == 0 {
		return fmt.Errorf("catalog.groups must name at least one group")
	}
	if c.Catalog.CacheTTL <= 0 {
		return fmt.Errorf("catalog.cache_ttl %v must be positive", c.Catalog.CacheTTL)
	}
	if c.Catalog.FetchTimeout <= 0 {
		return fmt.Errorf("catalog.fetch_timeout %v must be positive", c.Catalog.FetchTimeout)
	}
	if c.Catalog.RefreshInterval <= 0 {
		return fmt.Errorf("catalog.refresh_interval %v must be positive", c.Catalog.RefreshInterval)
	}
	if c.Risk.CriticalKm <= 0 {
		return fmt.Errorf("risk.critical_km %v must be positive", c.Risk.CriticalKm)
	}
	if c.Risk.WarningKm <= c.Risk.CriticalKm {
		return fmt.Errorf("risk.warning_km %v must exceed risk.critical_km %v",
			c.Risk.WarningKm, c.Risk.CriticalKm)
	}
	if c.Conjunction.CoarseStep <= 0 {
		return fmt.Errorf("conjunction.coarse_step %v must be positive", c.Conjunction.CoarseStep)
	}
	if c.Conjunction.RefineTolerance <= 0 {
		return fmt.Errorf("conjunction.refine_tolerance %v must be positive", c.Conjunction.RefineTolerance)
	}
	if c.Conjunction.MaxRefineIter <= 0 {
		return fmt.Errorf("conjunction.max_refine_iter %d must be positive", c.Conjunction.MaxRefineIter)
	}
	if c.Propagation.NewtonTolerance <= 0 {
		return fmt.Errorf("propagation.newton_tolerance %v must be positive", c.Propagation.NewtonTolerance)
	}
	if c.Propagation.NewtonMaxIter <= 0 {
		return fmt.Errorf("propagation.newton_max_iter %d must be positive", c.Propagation.NewtonMaxIter)
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("ratelimit.rps %v must be positive", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.burst %d must be positive", c.RateLimit.Burst)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l Log) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level %q is not one of debug, info, warn, error", l.Level)
	}
}
