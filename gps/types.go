package gps

import (
	"fmt"
	"time"
)

// Fix is a single position report for a crew member. A fix is immutable once
// created; newer fixes supersede older ones, nothing is ever deleted.
type Fix struct {
	ID         string    `json:"id,omitempty"`
	CrewID     string    `json:"crew_id"`
	DispatchID string    `json:"dispatch_id,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed,omitempty"`    // m/s
	Accuracy   *float64  `json:"accuracy,omitempty"` // meters
	Bearing    *float64  `json:"bearing,omitempty"`  // degrees
	CapturedAt time.Time `json:"captured_at"`
}

// Validate rejects fixes with out-of-range coordinates. Invalid fixes must
// never reach the render model.
func (f Fix) Validate() error {
	return ValidateCoordinates(f.Latitude, f.Longitude)
}

// ValidateCoordinates checks latitude and longitude against their legal ranges.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", lon)
	}
	return nil
}

// Reading is a normalized device position as produced by a position source,
// before it is reported to the backend as a Fix.
type Reading struct {
	Latitude   float64
	Longitude  float64
	Speed      *float64 // m/s
	Accuracy   *float64 // meters
	Bearing    *float64 // degrees
	CapturedAt time.Time
}

// Validate rejects readings with out-of-range coordinates.
func (r Reading) Validate() error {
	return ValidateCoordinates(r.Latitude, r.Longitude)
}

// DispatchStatus says whether a crew member is currently working an
// in-progress dispatch. Independent of Freshness, which says how recent the
// underlying data is.
type DispatchStatus string

const (
	DispatchActive DispatchStatus = "active"
	DispatchIdle   DispatchStatus = "idle"
)

// CrewPresence is a crew member's latest fix joined with derived status.
// Recomputed on every aggregation cycle, never persisted.
type CrewPresence struct {
	CrewID         string         `json:"crew_id"`
	Name           string         `json:"name,omitempty"`
	Fix            Fix            `json:"fix"`
	Freshness      Freshness      `json:"freshness"`
	DispatchStatus DispatchStatus `json:"dispatch_status"`
	DispatchID     string         `json:"dispatch_id,omitempty"`
}

// Site is a fixed service location. Owned by the backend; read-only reference
// data for rendering.
type Site struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether the site can be placed on a map.
func (s Site) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Geofence is a circular visualization zone around a site. No entry/exit
// detection consumes it; it is drawn and nothing more.
type Geofence struct {
	SiteID       string  `json:"site_id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// RoutePath is the ordered fix sequence for one dispatch plus travelled-path
// aggregates. Rebuilt on demand, not cached beyond the current view.
type RoutePath struct {
	DispatchID      string  `json:"dispatch_id"`
	Fixes           []Fix   `json:"route"`
	DistanceKM      float64 `json:"total_distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
	AvgSpeedKMH     float64 `json:"average_speed_kmh"`
	PointCount      int     `json:"point_count"`
}

// CrewMember identifies one field crew member as listed by the backend.
type CrewMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Dispatch is the slice of a dispatch record the tracking core cares about.
type Dispatch struct {
	ID     string `json:"id"`
	CrewID string `json:"crew_id"`
	SiteID string `json:"site_id,omitempty"`
	Status string `json:"status"`
}
