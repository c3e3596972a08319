package config

// ServerConfig contains web surface server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// BackendConfig contains field-service backend API configuration
type BackendConfig struct {
	BaseURL   string `yaml:"baseURL" validate:"omitempty,url"`
	AuthToken string `yaml:"authToken"`
	TimeoutMS int    `yaml:"timeoutMS" validate:"gte=0"`
}

// TrackingConfig contains polling and position-watch cadences
type TrackingConfig struct {
	FleetPollIntervalMS  int     `yaml:"fleetPollIntervalMS" validate:"gte=0"`
	StatsPollIntervalMS  int     `yaml:"statsPollIntervalMS" validate:"gte=0"`
	WatchIntervalMS      int     `yaml:"watchIntervalMS" validate:"gte=0"`
	WatchDisplacementM   float64 `yaml:"watchDisplacementM" validate:"gte=0"`
	OneShotTimeoutMS     int     `yaml:"oneShotTimeoutMS" validate:"gte=0"`
	DefaultCenterLat     float64 `yaml:"defaultCenterLat" validate:"gte=-90,lte=90"`
	DefaultCenterLon     float64 `yaml:"defaultCenterLon" validate:"gte=-180,lte=180"`
	DefaultZoom          float64 `yaml:"defaultZoom" validate:"gte=0"`
}

// RenderConfig contains visualization constants shared by both map surfaces
type RenderConfig struct {
	GeofenceRadiusM    float64 `yaml:"geofenceRadiusM" validate:"gte=0"`
	ClusterRadiusPX    int     `yaml:"clusterRadiusPX" validate:"gte=0"`
	ClusterMaxZoom     float64 `yaml:"clusterMaxZoom" validate:"gte=0"`
	StandardStyleURL   string  `yaml:"standardStyleURL" validate:"omitempty,url"`
	SatelliteStyleURL  string  `yaml:"satelliteStyleURL" validate:"omitempty,url"`
}

// PlatformConfig is the ambient platform capability descriptor, resolved once
// at startup and injected; nothing re-queries the platform after that.
type PlatformConfig struct {
	Surface  string `yaml:"surface" validate:"omitempty,oneof=web native"`
	GPSDAddr string `yaml:"gpsdAddr"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	Backend  BackendConfig  `yaml:"backend"`
	Tracking TrackingConfig `yaml:"tracking"`
	Render   RenderConfig   `yaml:"render"`
	Platform PlatformConfig `yaml:"platform"`
}
