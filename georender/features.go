package georender

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/fieldops/fleettrack/gps"
)

// Clustering hints passed to the hosting map surface along with the site
// collection. Rendering concern only, not a data-model property.
const (
	ClusterRadiusPX = 50
	ClusterMaxZoom  = 14.0
)

// FixFeature converts a fix to a point feature. Fixes with out-of-range
// coordinates return nil; validation upstream should have rejected them.
func FixFeature(f gps.Fix) *geojson.Feature {
	if f.Validate() != nil {
		return nil
	}
	feat := geojson.NewFeature(orb.Point{f.Longitude, f.Latitude})
	feat.Properties = geojson.Properties{
		"kind":        "fix",
		"crew_id":     f.CrewID,
		"captured_at": f.CapturedAt.UTC().Format(time.RFC3339),
	}
	if f.DispatchID != "" {
		feat.Properties["dispatch_id"] = f.DispatchID
	}
	if f.Bearing != nil {
		feat.Properties["bearing"] = *f.Bearing
	}
	if f.Speed != nil {
		feat.Properties["speed"] = *f.Speed
	}
	return feat
}

// CrewFeature converts a presence record to a colored crew marker.
func CrewFeature(p gps.CrewPresence) *geojson.Feature {
	feat := FixFeature(p.Fix)
	if feat == nil {
		return nil
	}
	feat.Properties["kind"] = "crew"
	feat.Properties["crew_id"] = p.CrewID
	feat.Properties["name"] = p.Name
	feat.Properties["freshness"] = string(p.Freshness)
	feat.Properties["dispatch_status"] = string(p.DispatchStatus)
	feat.Properties["color"] = FreshnessColor(p.Freshness)
	if p.DispatchID != "" {
		feat.Properties["dispatch_id"] = p.DispatchID
	}
	return feat
}

// CrewCollection builds the crew marker layer.
func CrewCollection(presences []gps.CrewPresence) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range presences {
		if feat := CrewFeature(p); feat != nil {
			fc.Append(feat)
		}
	}
	return fc
}

// SiteFeature converts a site to a point feature, or nil when the site has no
// coordinates.
func SiteFeature(s gps.Site) *geojson.Feature {
	if !s.HasCoordinates() {
		return nil
	}
	if gps.ValidateCoordinates(*s.Latitude, *s.Longitude) != nil {
		return nil
	}
	feat := geojson.NewFeature(orb.Point{*s.Longitude, *s.Latitude})
	feat.Properties = geojson.Properties{
		"kind":    "site",
		"site_id": s.ID,
		"name":    s.Name,
		"color":   ColorSite,
	}
	if s.Address != "" {
		feat.Properties["address"] = s.Address
	}
	return feat
}

// SiteCollection builds the site marker layer, tagged so the hosting surface
// clusters it (radius 50 px, no clustering above zoom 14).
func SiteCollection(sites []gps.Site) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range sites {
		if feat := SiteFeature(s); feat != nil {
			fc.Append(feat)
		}
	}
	fc.ExtraMembers = geojson.Properties{
		"cluster":        true,
		"clusterRadius":  ClusterRadiusPX,
		"clusterMaxZoom": ClusterMaxZoom,
	}
	return fc
}

// DeviceFeature converts the current device reading to its marker feature.
func DeviceFeature(r gps.Reading) *geojson.Feature {
	if r.Validate() != nil {
		return nil
	}
	feat := geojson.NewFeature(orb.Point{r.Longitude, r.Latitude})
	feat.Properties = geojson.Properties{
		"kind":        "device",
		"color":       ColorDevice,
		"captured_at": r.CapturedAt.UTC().Format(time.RFC3339),
	}
	if r.Accuracy != nil {
		feat.Properties["accuracy"] = *r.Accuracy
	}
	return feat
}

// RouteLine builds the travelled-path polyline in fix order. Fewer than two
// valid fixes render nothing: the result is nil, which is a defined edge case
// rather than an error.
func RouteLine(fixes []gps.Fix) *geojson.Feature {
	line := make(orb.LineString, 0, len(fixes))
	for _, f := range fixes {
		if f.Validate() != nil {
			continue
		}
		line = append(line, orb.Point{f.Longitude, f.Latitude})
	}
	if len(line) < 2 {
		return nil
	}
	feat := geojson.NewFeature(line)
	feat.Properties = geojson.Properties{
		"kind":  "route",
		"color": ColorRoute,
	}
	return feat
}

// Circle is a geofence render primitive. The map surfaces draw it with their
// own circle primitives; it is not GeoJSON because neither backend consumes
// geofences as features.
type Circle struct {
	SiteID       string  `json:"site_id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	FillColor    string  `json:"fill_color"`
	FillOpacity  float64 `json:"fill_opacity"`
	StrokeColor  string  `json:"stroke_color"`
}

// Geofences builds one fixed-radius circle per site with coordinates. Sites
// without coordinates are filtered out.
func Geofences(sites []gps.Site, radiusMeters float64) []Circle {
	circles := make([]Circle, 0, len(sites))
	for _, s := range sites {
		if !s.HasCoordinates() {
			continue
		}
		if gps.ValidateCoordinates(*s.Latitude, *s.Longitude) != nil {
			continue
		}
		circles = append(circles, Circle{
			SiteID:       s.ID,
			Name:         s.Name,
			Latitude:     *s.Latitude,
			Longitude:    *s.Longitude,
			RadiusMeters: radiusMeters,
			FillColor:    GeofenceFillColor,
			FillOpacity:  GeofenceFillOpacity,
			StrokeColor:  GeofenceStrokeColor,
		})
	}
	return circles
}
