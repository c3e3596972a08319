package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from
// config.yml, then applies environment overrides (FLEETTRACK_BACKEND_URL,
// FLEETTRACK_AUTH_TOKEN, FLEETTRACK_PORT). A missing config file is not an
// error; defaults plus environment are enough to run.
func LoadAppConfig() error {
	_ = godotenv.Load()

	var cfg AppConfig
	paths := []string{"config.yml", "./configs/config.yml"}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return err
		}
		break
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}
	Config = cfg
	return nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("FLEETTRACK_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("FLEETTRACK_AUTH_TOKEN"); v != "" {
		cfg.Backend.AuthToken = v
	}
	if v := os.Getenv("FLEETTRACK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16190
	}
	if cfg.Backend.TimeoutMS == 0 {
		cfg.Backend.TimeoutMS = 15000
	}
	if cfg.Tracking.FleetPollIntervalMS == 0 {
		cfg.Tracking.FleetPollIntervalMS = 30000
	}
	if cfg.Tracking.StatsPollIntervalMS == 0 {
		cfg.Tracking.StatsPollIntervalMS = 30000
	}
	if cfg.Tracking.WatchIntervalMS == 0 {
		cfg.Tracking.WatchIntervalMS = 30000
	}
	if cfg.Tracking.WatchDisplacementM == 0 {
		cfg.Tracking.WatchDisplacementM = 25
	}
	if cfg.Tracking.OneShotTimeoutMS == 0 {
		cfg.Tracking.OneShotTimeoutMS = 10000
	}
	if cfg.Tracking.DefaultCenterLat == 0 && cfg.Tracking.DefaultCenterLon == 0 {
		// Map has to center somewhere before the first reading arrives.
		cfg.Tracking.DefaultCenterLat = 43.6532
		cfg.Tracking.DefaultCenterLon = -79.3832
	}
	if cfg.Tracking.DefaultZoom == 0 {
		cfg.Tracking.DefaultZoom = 11
	}
	if cfg.Render.GeofenceRadiusM == 0 {
		cfg.Render.GeofenceRadiusM = 100
	}
	if cfg.Render.ClusterRadiusPX == 0 {
		cfg.Render.ClusterRadiusPX = 50
	}
	if cfg.Render.ClusterMaxZoom == 0 {
		cfg.Render.ClusterMaxZoom = 14
	}
	if cfg.Platform.Surface == "" {
		cfg.Platform.Surface = "web"
	}
	if cfg.Platform.GPSDAddr == "" {
		cfg.Platform.GPSDAddr = "localhost:2947"
	}
}

// BackendTimeout returns the configured backend request timeout.
func (b BackendConfig) BackendTimeout() time.Duration {
	return time.Duration(b.TimeoutMS) * time.Millisecond
}

// FleetPollInterval returns the fleet presence poll cadence.
func (t TrackingConfig) FleetPollInterval() time.Duration {
	return time.Duration(t.FleetPollIntervalMS) * time.Millisecond
}

// StatsPollInterval returns the dispatch stats refresh cadence.
func (t TrackingConfig) StatsPollInterval() time.Duration {
	return time.Duration(t.StatsPollIntervalMS) * time.Millisecond
}

// WatchInterval returns the continuous watch reporting cadence.
func (t TrackingConfig) WatchInterval() time.Duration {
	return time.Duration(t.WatchIntervalMS) * time.Millisecond
}

// OneShotTimeout returns the bound on a one-shot position request.
func (t TrackingConfig) OneShotTimeout() time.Duration {
	return time.Duration(t.OneShotTimeoutMS) * time.Millisecond
}
