package georender

import "github.com/fieldops/fleettrack/gps"

// Marker color policy, shared by both map surfaces.
const (
	ColorActive  = "#2ecc71"
	ColorIdle    = "#f1c40f"
	ColorOffline = "#95a5a6"

	ColorSite   = "#3498db"
	ColorDevice = "#9b59b6"
	ColorRoute  = "#e74c3c"

	GeofenceFillColor   = "#3498db"
	GeofenceFillOpacity = 0.12
	GeofenceStrokeColor = "#2980b9"
)

// FreshnessColor maps a presence freshness bucket to its marker color.
func FreshnessColor(f gps.Freshness) string {
	switch f {
	case gps.FreshnessActive:
		return ColorActive
	case gps.FreshnessIdle:
		return ColorIdle
	default:
		return ColorOffline
	}
}
