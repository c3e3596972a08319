package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/fleettrack/config"
	"github.com/fieldops/fleettrack/fleet"
	"github.com/fieldops/fleettrack/gps"
	"github.com/fieldops/fleettrack/position"
	"github.com/fieldops/fleettrack/surface"
)

func trackingConfig() config.TrackingConfig {
	return config.TrackingConfig{
		FleetPollIntervalMS: 20,
		StatsPollIntervalMS: 20,
		WatchIntervalMS:     10,
		WatchDisplacementM:  0,
		OneShotTimeoutMS:    500,
	}
}

type fakeReporter struct {
	reports atomic.Int64
}

func (f *fakeReporter) ReportFix(ctx context.Context, crewID string, r gps.Reading, dispatchID string) (gps.Fix, error) {
	f.reports.Add(1)
	return gps.Fix{CrewID: crewID, Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

type fakeDispatches struct {
	dispatch *gps.Dispatch
}

func (f *fakeDispatches) InProgressDispatch(ctx context.Context, crewID string) (*gps.Dispatch, error) {
	return f.dispatch, nil
}

type fakeRoutes struct {
	path gps.RoutePath
}

func (f *fakeRoutes) Load(ctx context.Context, dispatchID string) (gps.RoutePath, error) {
	return f.path, nil
}

// fakeSurface records layer mutations; it satisfies surface.Surface.
type fakeSurface struct {
	mu           sync.Mutex
	deviceCalls  int
	lastDevice   *gps.Reading
	routeCalls   int
	crewCalls    int
	lastPresence []gps.CrewPresence
}

var _ surface.Surface = (*fakeSurface)(nil)

func (f *fakeSurface) SetCenter(lat, lon float64) {}
func (f *fakeSurface) SetZoom(zoom float64)       {}
func (f *fakeSurface) SetStyle(s surface.Style) error {
	return nil
}
func (f *fakeSurface) SetCrewMarkers(ps []gps.CrewPresence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crewCalls++
	f.lastPresence = ps
}
func (f *fakeSurface) SetSiteMarkers(sites []gps.Site) {}
func (f *fakeSurface) SetDeviceMarker(r *gps.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceCalls++
	f.lastDevice = r
}
func (f *fakeSurface) SetRoute(fixes []gps.Fix) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routeCalls++
}
func (f *fakeSurface) SetGeofences(sites []gps.Site) {}
func (f *fakeSurface) Recenter()                     {}

type fleetBackendStub struct{}

func (fleetBackendStub) CrewMembers(ctx context.Context) ([]gps.CrewMember, error) {
	return []gps.CrewMember{{ID: "crew-1"}}, nil
}
func (fleetBackendStub) LatestFix(ctx context.Context, crewID string) (*gps.Fix, error) {
	return &gps.Fix{CrewID: crewID, Latitude: 43.65, Longitude: -79.38, CapturedAt: time.Now()}, nil
}
func (fleetBackendStub) InProgressDispatch(ctx context.Context, crewID string) (*gps.Dispatch, error) {
	return nil, nil
}

func newTestController(role Role, dispatch *gps.Dispatch, src position.Source) (*Controller, *fakeReporter, *fakeSurface) {
	reporter := &fakeReporter{}
	surf := &fakeSurface{}
	c := NewController(
		trackingConfig(),
		role,
		"crew-1",
		src,
		reporter,
		&fakeDispatches{dispatch: dispatch},
		fleet.NewAggregator(fleetBackendStub{}),
		&fakeRoutes{path: gps.RoutePath{DispatchID: "disp-1", PointCount: 2}},
		surf,
	)
	return c, reporter, surf
}

func replaySource() *position.ReplaySource {
	readings := make([]gps.Reading, 0, 50)
	for i := 0; i < 50; i++ {
		readings = append(readings, gps.Reading{
			Latitude:   43.65 + float64(i)*0.001,
			Longitude:  -79.38,
			CapturedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	return position.NewReplaySource(readings, 5*time.Millisecond)
}

func TestStartTrackingRequiresDispatchForCrew(t *testing.T) {
	c, _, _ := newTestController(RoleCrew, nil, replaySource())
	c.Mount()
	defer c.Unmount()

	err := c.StartTracking(context.Background())
	require.ErrorIs(t, err, ErrNoActiveDispatch)
	assert.Equal(t, StateIdle, c.State())
}

func TestStartTrackingCrewWithDispatch(t *testing.T) {
	c, reporter, surf := newTestController(RoleCrew, &gps.Dispatch{ID: "disp-1", Status: "in_progress"}, replaySource())
	c.Mount()
	defer c.Unmount()

	require.NoError(t, c.StartTracking(context.Background()))
	assert.Equal(t, StateTrackingManual, c.State())
	assert.EqualValues(t, 1, reporter.reports.Load(), "manual start reports the one-shot fix")

	surf.mu.Lock()
	defer surf.mu.Unlock()
	require.NotNil(t, surf.lastDevice)
}

func TestStartTrackingAdminNeedsNoDispatch(t *testing.T) {
	c, _, _ := newTestController(RoleAdmin, nil, replaySource())
	c.Mount()
	defer c.Unmount()

	require.NoError(t, c.StartTracking(context.Background()))
	assert.Equal(t, StateTrackingManual, c.State())
}

func TestStartTrackingRejectedWhenAlreadyTracking(t *testing.T) {
	c, _, _ := newTestController(RoleAdmin, nil, replaySource())
	c.Mount()
	defer c.Unmount()

	require.NoError(t, c.StartTracking(context.Background()))
	assert.ErrorIs(t, c.StartTracking(context.Background()), ErrInvalidTransition)
}

func TestContinuousDeniedStaysManual(t *testing.T) {
	c, _, _ := newTestController(RoleAdmin, nil, replaySource())
	c.BackgroundPermission = func(ctx context.Context) bool { return false }
	c.Mount()
	defer c.Unmount()

	require.NoError(t, c.StartTracking(context.Background()))
	require.NoError(t, c.EnableContinuous(context.Background()),
		"permission denial is a degradation, not an error")
	assert.Equal(t, StateTrackingManual, c.State())
}

func TestContinuousFromIdleRejected(t *testing.T) {
	c, _, _ := newTestController(RoleAdmin, nil, replaySource())
	c.Mount()
	defer c.Unmount()

	assert.ErrorIs(t, c.EnableContinuous(context.Background()), ErrInvalidTransition)
}

func TestContinuousTrackingReportsAndStopCancels(t *testing.T) {
	c, reporter, _ := newTestController(RoleAdmin, nil, replaySource())
	c.Mount()
	defer c.Unmount()

	require.NoError(t, c.StartTracking(context.Background()))
	require.NoError(t, c.EnableContinuous(context.Background()))
	assert.Equal(t, StateTrackingContinuous, c.State())

	// Let the watch deliver a few readings.
	deadline := time.After(2 * time.Second)
	for reporter.reports.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected continuous reports, got %d", reporter.reports.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	c.Stop()
	assert.Equal(t, StateIdle, c.State())

	// After Stop the subscription is cancelled: the count must not grow even
	// though the replay ticker keeps firing.
	time.Sleep(50 * time.Millisecond)
	settled := reporter.reports.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, reporter.reports.Load(), "no report may occur after Stop")
}

func TestStopFromManualIsLegalAndIdempotent(t *testing.T) {
	c, _, surf := newTestController(RoleAdmin, nil, replaySource())
	c.Mount()
	defer c.Unmount()

	require.NoError(t, c.StartTracking(context.Background()))
	c.Stop()
	c.Stop() // no-op from Idle
	assert.Equal(t, StateIdle, c.State())

	surf.mu.Lock()
	defer surf.mu.Unlock()
	assert.Nil(t, surf.lastDevice, "stop clears the device marker")
}

func TestStatsPollRunsInManualTracking(t *testing.T) {
	c, _, surf := newTestController(RoleCrew, &gps.Dispatch{ID: "disp-1", Status: "in_progress"}, replaySource())
	c.Mount()
	defer c.Unmount()

	// Manual start only; the stats poll follows the dispatch, not the mode.
	require.NoError(t, c.StartTracking(context.Background()))
	assert.Equal(t, StateTrackingManual, c.State())

	deadline := time.After(2 * time.Second)
	for {
		surf.mu.Lock()
		calls := surf.routeCalls
		surf.mu.Unlock()
		if calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("manual tracking with an active dispatch never refreshed stats")
		case <-time.After(5 * time.Millisecond):
		}
	}
	assert.Equal(t, "disp-1", c.Stats().DispatchID)
}

func TestStatsPollUpdatesRoute(t *testing.T) {
	c, _, surf := newTestController(RoleCrew, &gps.Dispatch{ID: "disp-1", Status: "in_progress"}, replaySource())
	c.Mount()
	defer c.Unmount()

	require.NoError(t, c.StartTracking(context.Background()))
	require.NoError(t, c.EnableContinuous(context.Background()))

	deadline := time.After(2 * time.Second)
	for {
		surf.mu.Lock()
		calls := surf.routeCalls
		surf.mu.Unlock()
		if calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stats poll never updated the route layer")
		case <-time.After(5 * time.Millisecond):
		}
	}
	assert.Equal(t, "disp-1", c.Stats().DispatchID)
}

func TestMountStartsFleetPollForDispatcher(t *testing.T) {
	c, _, surf := newTestController(RoleDispatcher, nil, replaySource())
	c.Mount()
	defer c.Unmount()

	deadline := time.After(2 * time.Second)
	for {
		surf.mu.Lock()
		calls := surf.crewCalls
		surf.mu.Unlock()
		if calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("fleet poll never delivered presence")
		case <-time.After(5 * time.Millisecond):
		}
	}
	presence := c.Presence()
	require.Len(t, presence, 1)
	assert.Equal(t, "crew-1", presence[0].CrewID)
}

func TestUnmountDiscardsLateResults(t *testing.T) {
	c, _, surf := newTestController(RoleDispatcher, nil, replaySource())
	c.Mount()
	c.Unmount()

	// Direct delivery after unmount must be discarded by the mounted guard.
	c.applyPresence([]gps.CrewPresence{{CrewID: "crew-9"}})
	assert.Empty(t, c.Presence())

	surf.mu.Lock()
	defer surf.mu.Unlock()
	for _, p := range surf.lastPresence {
		assert.NotEqual(t, "crew-9", p.CrewID)
	}
}
