package position

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/fieldops/fleettrack/gps"
)

// watchFilter applies WatchOptions throttling: pass a reading through when the
// minimum interval has elapsed since the last delivery, or the device has
// moved the minimum distance, whichever fires first.
type watchFilter struct {
	opts     WatchOptions
	lastAt   time.Time
	lastSeen *gps.Reading
}

func newWatchFilter(opts WatchOptions) *watchFilter {
	return &watchFilter{opts: opts}
}

func (f *watchFilter) allow(r gps.Reading) bool {
	if f.lastSeen == nil {
		f.mark(r)
		return true
	}
	if f.opts.MinInterval > 0 && r.CapturedAt.Sub(f.lastAt) >= f.opts.MinInterval {
		f.mark(r)
		return true
	}
	if f.opts.MinDistanceMeters > 0 {
		moved := geo.DistanceHaversine(
			orb.Point{f.lastSeen.Longitude, f.lastSeen.Latitude},
			orb.Point{r.Longitude, r.Latitude},
		)
		if moved >= f.opts.MinDistanceMeters {
			f.mark(r)
			return true
		}
	}
	if f.opts.MinInterval == 0 && f.opts.MinDistanceMeters == 0 {
		f.mark(r)
		return true
	}
	return false
}

func (f *watchFilter) mark(r gps.Reading) {
	seen := r
	f.lastSeen = &seen
	f.lastAt = r.CapturedAt
}
