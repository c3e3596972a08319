// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// A .env file and environment variables can override the backend URL, auth
// token and listen port. Visualization constants (geofence radius, freshness
// windows, cluster settings) ship with fixed defaults and rarely need changing.
package config
