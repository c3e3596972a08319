package route

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/fieldops/fleettrack/gps"
)

// BuildPath orders the fixes by capture time, drops any with out-of-range
// coordinates, and computes the travelled-path aggregates. Zero or one fixes
// yield zero distance, duration and speed without division errors.
func BuildPath(dispatchID string, fixes []gps.Fix) gps.RoutePath {
	valid := make([]gps.Fix, 0, len(fixes))
	for _, f := range fixes {
		if f.Validate() == nil {
			valid = append(valid, f)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].CapturedAt.Before(valid[j].CapturedAt)
	})

	path := gps.RoutePath{
		DispatchID: dispatchID,
		Fixes:      valid,
		PointCount: len(valid),
	}
	if len(valid) < 2 {
		return path
	}

	distanceM := 0.0
	for i := 1; i < len(valid); i++ {
		distanceM += geo.DistanceHaversine(
			orb.Point{valid[i-1].Longitude, valid[i-1].Latitude},
			orb.Point{valid[i].Longitude, valid[i].Latitude},
		)
	}
	path.DistanceKM = distanceM / 1000

	duration := valid[len(valid)-1].CapturedAt.Sub(valid[0].CapturedAt)
	path.DurationMinutes = duration.Minutes()
	if hours := duration.Hours(); hours > 0 {
		path.AvgSpeedKMH = path.DistanceKM / hours
	}
	return path
}
