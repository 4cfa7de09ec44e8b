// Package config loads navtrack settings from defaults, an optional YAML
// file, .env files and NAVTRACK_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osm"
	"github.com/NERVsystems/navtrack/pkg/osrm"
)

// EnvPrefix prefixes every environment override. Nested keys are joined
// with a double underscore: NAVTRACK_OSRM__BASE_URL sets osrm.base_url.
const EnvPrefix = "NAVTRACK_"

// Config is the complete application configuration.
type Config struct {
	Log       LogConfig        `koanf:"log"`
	OSRM      osrm.Config      `koanf:"osrm"`
	Nominatim osm.Config       `koanf:"nominatim"`
	Tracking  nav.Thresholds   `koanf:"tracking"`
	Navigator navigator.Config `koanf:"navigator"`
	HTTP      HTTPConfig       `koanf:"http"`
	ETA       ETAConfig        `koanf:"eta"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn or error
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr           string        `koanf:"addr"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

// ETAConfig configures arrival clock rendering.
type ETAConfig struct {
	TimeZone string `koanf:"timezone"` // IANA name; empty means the host zone
}

// Location resolves the configured time zone.
func (e ETAConfig) Location() (*time.Location, error) {
	if e.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(e.TimeZone)
}

// SlogLevel parses the log level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info"},
		OSRM:      osrm.DefaultConfig(),
		Nominatim: osm.DefaultConfig(),
		Tracking:  nav.DefaultThresholds(),
		Navigator: navigator.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
	}
}

func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"log.level": d.Log.Level,

		"osrm.base_url":     d.OSRM.BaseURL,
		"osrm.user_agent":   d.OSRM.UserAgent,
		"osrm.timeout":      d.OSRM.Timeout,
		"osrm.min_interval": d.OSRM.MinInterval,
		"osrm.burst":        d.OSRM.Burst,
		"osrm.cache_size":   d.OSRM.CacheSize,
		"osrm.cache_ttl":    d.OSRM.CacheTTL,

		"nominatim.enabled":       d.Nominatim.Enabled,
		"nominatim.base_url":      d.Nominatim.BaseURL,
		"nominatim.user_agent":    d.Nominatim.UserAgent,
		"nominatim.timeout":       d.Nominatim.Timeout,
		"nominatim.min_interval":  d.Nominatim.MinInterval,
		"nominatim.search_radius": d.Nominatim.SearchRadius,
		"nominatim.cache_size":    d.Nominatim.CacheSize,
		"nominatim.cache_ttl":     d.Nominatim.CacheTTL,

		"tracking.off_route_driving":  d.Tracking.OffRouteDriving,
		"tracking.off_route_walking":  d.Tracking.OffRouteWalking,
		"tracking.movement_gate":      d.Tracking.MovementGate,
		"tracking.off_step":           d.Tracking.OffStep,
		"tracking.arrival_radius":     d.Tracking.ArrivalRadius,
		"tracking.reroute_cooldown":   d.Tracking.RerouteCooldown,
		"tracking.silent_step_length": d.Tracking.SilentStepLength,
		"tracking.advance_progress":   d.Tracking.AdvanceProgress,
		"tracking.advance_fraction":   d.Tracking.AdvanceFraction,
		"tracking.advance_min":        d.Tracking.AdvanceMin,
		"tracking.advance_max":        d.Tracking.AdvanceMax,
		"tracking.lookahead":          d.Tracking.Lookahead,
		"tracking.densify_spacing":    d.Tracking.DensifySpacing,

		"navigator.browse_refresh": d.Navigator.BrowseRefresh,
		"navigator.eta_refresh":    d.Navigator.ETARefresh,
		"navigator.fetch_timeout":  d.Navigator.FetchTimeout,

		"http.addr":            d.HTTP.Addr,
		"http.allowed_origins": d.HTTP.AllowedOrigins,
		"http.read_timeout":    d.HTTP.ReadTimeout,
		"http.write_timeout":   d.HTTP.WriteTimeout,

		"eta.timezone": d.ETA.TimeZone,
	}
}

// Options selects the sources Load reads.
type Options struct {
	// File is an optional YAML file.
	File string
	// EnvFiles are .env files loaded into the process environment. Missing
	// files are skipped; variables already set are not overridden.
	EnvFiles []string
}

// Load builds the configuration from defaults, opts.File, opts.EnvFiles
// and the environment, then validates it.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", opts.File, err)
		}
	}

	for _, path := range opts.EnvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps NAVTRACK_OSRM__BASE_URL to osrm.base_url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Tracking.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.OSRM.BaseURL == "" {
		errs = append(errs, errors.New("osrm.base_url is required"))
	}
	if c.Nominatim.Enabled {
		if c.Nominatim.BaseURL == "" {
			errs = append(errs, errors.New("nominatim.base_url is required when search is enabled"))
		}
		if c.Nominatim.UserAgent == "" {
			errs = append(errs, errors.New("nominatim.user_agent is required by the Nominatim usage policy"))
		}
		if c.Nominatim.SearchRadius < 0 {
			errs = append(errs, errors.New("nominatim.search_radius must not be negative"))
		}
	}
	if c.Navigator.FetchTimeout <= 0 {
		errs = append(errs, errors.New("navigator.fetch_timeout must be positive"))
	}
	if _, err := c.ETA.Location(); err != nil {
		errs = append(errs, fmt.Errorf("eta.timezone: %w", err))
	}
	return errors.Join(errs...)
}
