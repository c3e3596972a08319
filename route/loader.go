package route

import (
	"context"

	"github.com/fieldops/fleettrack/gps"
)

// Backend is the slice of the backend client the loader needs.
type Backend interface {
	Route(ctx context.Context, dispatchID string) ([]gps.Fix, error)
}

// Loader fetches a dispatch's fix history and rebuilds its RoutePath. Paths
// are rebuilt on demand and never cached beyond the caller's view.
type Loader struct {
	api Backend
}

// NewLoader creates a route loader over the given backend.
func NewLoader(api Backend) *Loader {
	return &Loader{api: api}
}

// Load returns the ordered fix sequence and aggregates for one dispatch.
// Aggregates are always recomputed locally from the fixes.
func (l *Loader) Load(ctx context.Context, dispatchID string) (gps.RoutePath, error) {
	fixes, err := l.api.Route(ctx, dispatchID)
	if err != nil {
		return gps.RoutePath{}, err
	}
	return BuildPath(dispatchID, fixes), nil
}
