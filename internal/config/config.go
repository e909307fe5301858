package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"flightscraper-backend/internal/components/telemetry"
	"flightscraper-backend/pkg/configutil"
)

type PacingConfig struct {
	MinDelay    configutil.Duration `json:"min_delay"`
	MaxDelay    configutil.Duration `json:"max_delay"`
	HourlyLimit int                 `json:"hourly_limit"`
	Window      configutil.Duration `json:"window"`
	QuotaJitter configutil.Duration `json:"quota_jitter"`
}

type FetchConfig struct {
	Timeout                 configutil.Duration `json:"timeout"`
	BaseUrl                 string              `json:"base_url"`
	UserAgents              []string            `json:"user_agents"`
	MaxBodyBytes            int64               `json:"max_body_bytes"`
	DisableCloudflareBypass bool                `json:"disable_cloudflare_bypass"`
}

type ServerConfig struct {
	Port int `json:"port"`
	// ClientRate is the number of searches per second one client ip may make.
	ClientRate  float64 `json:"client_rate"`
	ClientBurst int     `json:"client_burst"`
	// TrustedProxies are the reverse proxies allowed to set X-Forwarded-For,
	// by default no forwarding header is trusted.
	TrustedProxies []string `json:"trusted_proxies"`
}

type Config struct {
	Pacing    PacingConfig     `json:"pacing"`
	Fetch     FetchConfig      `json:"fetch"`
	Server    ServerConfig     `json:"server"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		Pacing: PacingConfig{
			MinDelay:    configutil.Duration(5 * time.Second),
			MaxDelay:    configutil.Duration(15 * time.Second),
			HourlyLimit: 20,
			Window:      configutil.Duration(time.Hour),
			QuotaJitter: configutil.Duration(time.Second),
		},
		Fetch: FetchConfig{
			Timeout:      configutil.Duration(30 * time.Second),
			MaxBodyBytes: 8 << 20,
		},
		Server: ServerConfig{
			Port:        5000,
			ClientRate:  1,
			ClientBurst: 5,
		},
	}
}

// Load reads the config file at path (and its local override) on top of
// Default, fields the files do not set keep their default. A missing file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	err := configutil.ReadConfigInto(path, &cfg)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Pacing.MinDelay < 0 {
		errs = append(errs, fmt.Errorf("pacing.min_delay must not be negative"))
	}
	if c.Pacing.MaxDelay < c.Pacing.MinDelay {
		errs = append(errs, fmt.Errorf("pacing.max_delay must be at least pacing.min_delay"))
	}
	if c.Pacing.HourlyLimit <= 0 {
		errs = append(errs, fmt.Errorf("pacing.hourly_limit must be positive"))
	}
	if c.Pacing.Window <= 0 {
		errs = append(errs, fmt.Errorf("pacing.window must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.ClientRate <= 0 || c.Server.ClientBurst <= 0 {
		errs = append(errs, fmt.Errorf("server.client_rate and server.client_burst must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
