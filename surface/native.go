package surface

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/fieldops/fleettrack/georender"
	"github.com/fieldops/fleettrack/gps"
)

// Command is one layer operation sent to the host map shell.
type Command struct {
	Op      string `json:"op"`
	Payload any    `json:"payload,omitempty"`
}

// NativeSurface drives an embedded map view through a JSON command stream.
// The native map layer has no cluster primitive, so this backend clusters
// site markers itself before emitting them.
type NativeSurface struct {
	mu   sync.Mutex
	enc  *json.Encoder
	opts Options

	centerLat float64
	centerLon float64
	zoom      float64
	homeLat   float64
	homeLon   float64
	device    *gps.Reading
	sites     []gps.Site
	index     *siteIndex
}

// NewNativeSurface creates the native backend writing to opts.Output.
func NewNativeSurface(opts Options) *NativeSurface {
	s := &NativeSurface{
		enc:       json.NewEncoder(opts.Output),
		opts:      opts,
		centerLat: opts.CenterLat,
		centerLon: opts.CenterLon,
		zoom:      opts.Zoom,
		homeLat:   opts.CenterLat,
		homeLon:   opts.CenterLon,
		index:     newSiteIndex(nil),
	}
	s.emit("set_center", map[string]float64{"latitude": s.centerLat, "longitude": s.centerLon})
	s.emit("set_zoom", map[string]float64{"zoom": s.zoom})
	s.emit("set_style", map[string]string{"style": string(StyleStandard), "url": opts.Render.StandardStyleURL})
	return s
}

func (s *NativeSurface) emit(op string, payload any) {
	if err := s.enc.Encode(Command{Op: op, Payload: payload}); err != nil {
		log.Printf("native surface: emit %s: %v", op, err)
	}
}

// SetCenter moves the map center.
func (s *NativeSurface) SetCenter(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centerLat, s.centerLon = lat, lon
	s.emit("set_center", map[string]float64{"latitude": lat, "longitude": lon})
}

// SetZoom changes the zoom level and re-emits site markers, since clustering
// is zoom dependent.
func (s *NativeSurface) SetZoom(zoom float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = zoom
	s.emit("set_zoom", map[string]float64{"zoom": zoom})
	s.emitSites()
}

// SetStyle switches between standard and satellite raster tiles.
func (s *NativeSurface) SetStyle(style Style) error {
	if !style.valid() {
		return fmt.Errorf("unknown map style %q", style)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	url := s.opts.Render.StandardStyleURL
	if style == StyleSatellite {
		url = s.opts.Render.SatelliteStyleURL
	}
	s.emit("set_style", map[string]string{"style": string(style), "url": url})
	return nil
}

// SetCrewMarkers replaces the crew marker layer. Colors follow the shared
// freshness policy.
func (s *NativeSurface) SetCrewMarkers(presences []gps.CrewPresence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	markers := make([]*geojson.Feature, 0, len(presences))
	for _, p := range presences {
		if feat := georender.CrewFeature(p); feat != nil {
			markers = append(markers, feat)
		}
	}
	s.emit("set_crew_markers", markers)
}

// SetSiteMarkers replaces the site layer, clustering at the current zoom.
func (s *NativeSurface) SetSiteMarkers(sites []gps.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites = sites
	s.index = newSiteIndex(sites)
	s.emitSites()
}

func (s *NativeSurface) emitSites() {
	clusters := clusterSites(s.sites, s.zoom,
		s.opts.Render.ClusterRadiusPX, s.opts.Render.ClusterMaxZoom)
	s.emit("set_site_markers", map[string]any{
		"color":    georender.ColorSite,
		"clusters": clusters,
	})
}

// SetDeviceMarker places or clears the current-device marker, labelled with
// the nearest site when one is known.
func (s *NativeSurface) SetDeviceMarker(r *gps.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = r
	if r == nil {
		s.emit("set_device_marker", nil)
		return
	}
	feat := georender.DeviceFeature(*r)
	if feat == nil {
		return
	}
	if nearest := s.index.nearest(r.Latitude, r.Longitude); nearest != nil {
		feat.Properties["nearest_site"] = nearest.Name
	}
	s.emit("set_device_marker", feat)
}

// SetRoute replaces the travelled-path polyline.
func (s *NativeSurface) SetRoute(fixes []gps.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit("set_route", georender.RouteLine(fixes))
}

// SetGeofences replaces the geofence circle layer.
func (s *NativeSurface) SetGeofences(sites []gps.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit("set_geofences", georender.Geofences(sites, s.opts.Render.GeofenceRadiusM))
}

// Recenter returns the view to the device marker when present, otherwise the
// home center.
func (s *NativeSurface) Recenter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	lat, lon := s.homeLat, s.homeLon
	if s.device != nil {
		lat, lon = s.device.Latitude, s.device.Longitude
	}
	s.centerLat, s.centerLon = lat, lon
	s.emit("set_center", map[string]float64{"latitude": lat, "longitude": lon})
}
