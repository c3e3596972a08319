package surface

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"github.com/fieldops/fleettrack/georender"
	"github.com/fieldops/fleettrack/gps"
	"github.com/fieldops/fleettrack/position"
)

// Snapshot is the full render state pushed to browser map clients. The
// browser map applies it wholesale; there is no per-layer diffing.
type Snapshot struct {
	Center    [2]float64                 `json:"center"` // lat, lon
	Zoom      float64                    `json:"zoom"`
	Style     Style                      `json:"style"`
	StyleURL  string                     `json:"style_url,omitempty"`
	Crew      *geojson.FeatureCollection `json:"crew,omitempty"`
	Sites     *geojson.FeatureCollection `json:"sites,omitempty"`
	Device    *geojson.Feature           `json:"device,omitempty"`
	Route     *geojson.Feature           `json:"route,omitempty"`
	Geofences []georender.Circle         `json:"geofences,omitempty"`
}

// WebSurface renders through a browser-hosted map. Site clustering is
// delegated to the browser map layer via the tagged site collection.
type WebSurface struct {
	mu   sync.Mutex
	hub  *Hub
	opts Options
	snap Snapshot

	homeLat float64
	homeLon float64
}

// NewWebSurface creates the browser-hosted backend.
func NewWebSurface(opts Options) *WebSurface {
	s := &WebSurface{
		hub:     opts.Hub,
		opts:    opts,
		homeLat: opts.CenterLat,
		homeLon: opts.CenterLon,
	}
	s.snap = Snapshot{
		Center:   [2]float64{opts.CenterLat, opts.CenterLon},
		Zoom:     opts.Zoom,
		Style:    StyleStandard,
		StyleURL: opts.Render.StandardStyleURL,
	}
	return s
}

func (s *WebSurface) push() {
	snap := s.snap
	s.hub.Broadcast(snap)
}

// SetCenter moves the map center.
func (s *WebSurface) SetCenter(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Center = [2]float64{lat, lon}
	s.push()
}

// SetZoom sets the zoom level.
func (s *WebSurface) SetZoom(zoom float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Zoom = zoom
	s.push()
}

// SetStyle switches between standard and satellite raster tiles.
func (s *WebSurface) SetStyle(style Style) error {
	if !style.valid() {
		return fmt.Errorf("unknown map style %q", style)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Style = style
	if style == StyleSatellite {
		s.snap.StyleURL = s.opts.Render.SatelliteStyleURL
	} else {
		s.snap.StyleURL = s.opts.Render.StandardStyleURL
	}
	s.push()
	return nil
}

// SetCrewMarkers replaces the crew marker layer.
func (s *WebSurface) SetCrewMarkers(presences []gps.CrewPresence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Crew = georender.CrewCollection(presences)
	s.push()
}

// SetSiteMarkers replaces the site marker layer; the collection carries the
// clustering hints for the browser map.
func (s *WebSurface) SetSiteMarkers(sites []gps.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Sites = georender.SiteCollection(sites)
	s.push()
}

// SetDeviceMarker places or clears the current-device marker.
func (s *WebSurface) SetDeviceMarker(r *gps.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		s.snap.Device = nil
	} else {
		s.snap.Device = georender.DeviceFeature(*r)
	}
	s.push()
}

// SetRoute replaces the travelled-path polyline.
func (s *WebSurface) SetRoute(fixes []gps.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Route = georender.RouteLine(fixes)
	s.push()
}

// SetGeofences replaces the geofence circle layer.
func (s *WebSurface) SetGeofences(sites []gps.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Geofences = georender.Geofences(sites, s.opts.Render.GeofenceRadiusM)
	s.push()
}

// Recenter returns the view to the device marker when present, otherwise the
// home center.
func (s *WebSurface) Recenter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Device != nil {
		pt := s.snap.Device.Point()
		s.snap.Center = [2]float64{pt[1], pt[0]}
	} else {
		s.snap.Center = [2]float64{s.homeLat, s.homeLon}
	}
	s.push()
}

// CurrentSnapshot returns a copy of the render state for the snapshot API.
func (s *WebSurface) CurrentSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Routes registers the web surface's HTTP endpoints.
func (s *WebSurface) Routes(r *gin.Engine, bridge *position.Bridge) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": s.hub.ClientCount()})
	})
	r.GET("/api/snapshot", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.CurrentSnapshot())
	})
	r.POST("/api/style", func(c *gin.Context) {
		var body struct {
			Style Style `json:"style" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.SetStyle(body.Style); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.POST("/api/recenter", func(c *gin.Context) {
		s.Recenter()
		c.Status(http.StatusNoContent)
	})
	r.GET("/ws", gin.WrapF(s.hub.HandleClient))
	r.GET("/ws/geolocation", gin.WrapF(HandleGeolocation(bridge)))
}
