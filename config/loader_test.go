package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestApplyDefaults(t *testing.T) {
	var cfg AppConfig
	applyDefaults(&cfg)

	if cfg.Server.Port != 16190 {
		t.Errorf("expected default port 16190, got %d", cfg.Server.Port)
	}
	if cfg.Tracking.FleetPollIntervalMS != 30000 {
		t.Errorf("expected 30s fleet poll, got %dms", cfg.Tracking.FleetPollIntervalMS)
	}
	if cfg.Tracking.OneShotTimeoutMS != 10000 {
		t.Errorf("expected 10s one-shot timeout, got %dms", cfg.Tracking.OneShotTimeoutMS)
	}
	if cfg.Render.GeofenceRadiusM != 100 {
		t.Errorf("expected 100m geofence radius, got %v", cfg.Render.GeofenceRadiusM)
	}
	if cfg.Render.ClusterRadiusPX != 50 || cfg.Render.ClusterMaxZoom != 14 {
		t.Errorf("unexpected cluster defaults: %d px / zoom %v",
			cfg.Render.ClusterRadiusPX, cfg.Render.ClusterMaxZoom)
	}
	if cfg.Platform.Surface != "web" {
		t.Errorf("expected web surface default, got %q", cfg.Platform.Surface)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := AppConfig{}
	cfg.Server.Port = 9000
	cfg.Render.GeofenceRadiusM = 250
	applyDefaults(&cfg)

	if cfg.Server.Port != 9000 {
		t.Errorf("explicit port overwritten: %d", cfg.Server.Port)
	}
	if cfg.Render.GeofenceRadiusM != 250 {
		t.Errorf("explicit geofence radius overwritten: %v", cfg.Render.GeofenceRadiusM)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("FLEETTRACK_BACKEND_URL", "https://api.example.test")
	t.Setenv("FLEETTRACK_AUTH_TOKEN", "tok-123")
	t.Setenv("FLEETTRACK_PORT", "8088")

	var cfg AppConfig
	applyEnvOverrides(&cfg)

	if cfg.Backend.BaseURL != "https://api.example.test" {
		t.Errorf("backend URL override not applied: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.AuthToken != "tok-123" {
		t.Errorf("auth token override not applied: %q", cfg.Backend.AuthToken)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("port override not applied: %d", cfg.Server.Port)
	}
}

func TestYAMLShape(t *testing.T) {
	raw := `
server:
  port: 16190
backend:
  baseURL: https://fieldops.example.com/api
  timeoutMS: 5000
tracking:
  watchDisplacementM: 10
platform:
  surface: native
  gpsdAddr: "localhost:2947"
`
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://fieldops.example.com/api" {
		t.Errorf("unexpected backend URL: %q", cfg.Backend.BaseURL)
	}
	if cfg.Tracking.WatchDisplacementM != 10 {
		t.Errorf("unexpected displacement: %v", cfg.Tracking.WatchDisplacementM)
	}
	if cfg.Platform.Surface != "native" {
		t.Errorf("unexpected surface: %q", cfg.Platform.Surface)
	}
}
