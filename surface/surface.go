package surface

import (
	"fmt"
	"io"

	"github.com/fieldops/fleettrack/config"
	"github.com/fieldops/fleettrack/gps"
)

// Style selects the raster tile set.
type Style string

const (
	StyleStandard  Style = "standard"
	StyleSatellite Style = "satellite"
)

func (s Style) valid() bool { return s == StyleStandard || s == StyleSatellite }

// Platform names the rendering backend. Resolved once at startup from the
// platform descriptor.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformNative Platform = "native"
)

// Surface is the capability set both rendering backends satisfy. Marker
// semantics (color policy, icon intent) are identical across backends; only
// the drawing primitives differ.
type Surface interface {
	SetCenter(lat, lon float64)
	SetZoom(zoom float64)
	SetStyle(s Style) error
	SetCrewMarkers(presences []gps.CrewPresence)
	SetSiteMarkers(sites []gps.Site)
	SetDeviceMarker(r *gps.Reading)
	SetRoute(fixes []gps.Fix)
	SetGeofences(sites []gps.Site)
	Recenter()
}

// Options carries construction-time dependencies. Hub is required for the web
// backend, Output for the native one.
type Options struct {
	Render    config.RenderConfig
	CenterLat float64
	CenterLon float64
	Zoom      float64
	Hub       *Hub
	Output    io.Writer
}

// New selects and constructs the backend for the platform. This is the single
// platform dispatch point; callers hold only the Surface interface afterward.
func New(p Platform, opts Options) (Surface, error) {
	switch p {
	case PlatformWeb:
		if opts.Hub == nil {
			return nil, fmt.Errorf("web surface requires a hub")
		}
		return NewWebSurface(opts), nil
	case PlatformNative:
		if opts.Output == nil {
			return nil, fmt.Errorf("native surface requires an output stream")
		}
		return NewNativeSurface(opts), nil
	default:
		return nil, fmt.Errorf("unknown surface platform %q", p)
	}
}
