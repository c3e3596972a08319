package fleet

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/fleettrack/gps"
)

type fakeBackend struct {
	crew       []gps.CrewMember
	fixes      map[string]*gps.Fix
	fixErrs    map[string]error
	dispatches map[string]*gps.Dispatch
	crewErr    error
	calls      atomic.Int64
}

func (f *fakeBackend) CrewMembers(ctx context.Context) ([]gps.CrewMember, error) {
	return f.crew, f.crewErr
}

func (f *fakeBackend) LatestFix(ctx context.Context, crewID string) (*gps.Fix, error) {
	f.calls.Add(1)
	if err := f.fixErrs[crewID]; err != nil {
		return nil, err
	}
	return f.fixes[crewID], nil
}

func (f *fakeBackend) InProgressDispatch(ctx context.Context, crewID string) (*gps.Dispatch, error) {
	return f.dispatches[crewID], nil
}

func fixAt(crewID string, age time.Duration, now time.Time) *gps.Fix {
	return &gps.Fix{
		ID:         "fix-" + crewID,
		CrewID:     crewID,
		Latitude:   43.65,
		Longitude:  -79.38,
		CapturedAt: now.Add(-age),
	}
}

func TestFetchAllJoinsDispatchAndFreshness(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	api := &fakeBackend{
		crew: []gps.CrewMember{
			{ID: "crew-1", Name: "Ana"},
			{ID: "crew-2", Name: "Brett"},
		},
		fixes: map[string]*gps.Fix{
			"crew-1": fixAt("crew-1", time.Minute, now),
			"crew-2": fixAt("crew-2", 6*time.Minute, now),
		},
		dispatches: map[string]*gps.Dispatch{
			"crew-1": {ID: "disp-1", CrewID: "crew-1", Status: "in_progress"},
		},
	}
	agg := NewAggregator(api)
	agg.now = func() time.Time { return now }

	presences, err := agg.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, presences, 2)

	// Fresh fix plus in-progress dispatch: active on both axes.
	assert.Equal(t, gps.FreshnessActive, presences[0].Freshness)
	assert.Equal(t, gps.DispatchActive, presences[0].DispatchStatus)
	assert.Equal(t, "disp-1", presences[0].DispatchID)

	// Six-minute-old fix, no dispatch: idle on both axes.
	assert.Equal(t, gps.FreshnessIdle, presences[1].Freshness)
	assert.Equal(t, gps.DispatchIdle, presences[1].DispatchStatus)
	assert.Empty(t, presences[1].DispatchID)
}

func TestFetchAllDropsFailedCrewMemberOnly(t *testing.T) {
	now := time.Now()
	api := &fakeBackend{
		crew: []gps.CrewMember{
			{ID: "crew-1"}, {ID: "crew-2"}, {ID: "crew-3"},
		},
		fixes: map[string]*gps.Fix{
			"crew-1": fixAt("crew-1", time.Minute, now),
			"crew-3": fixAt("crew-3", time.Minute, now),
		},
		fixErrs: map[string]error{
			"crew-2": errors.New("connection reset"),
		},
	}
	agg := NewAggregator(api)

	presences, err := agg.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, presences, 2)
	assert.Equal(t, "crew-1", presences[0].CrewID)
	assert.Equal(t, "crew-3", presences[1].CrewID)
}

func TestFetchAllDropsCrewWithoutFix(t *testing.T) {
	api := &fakeBackend{
		crew:  []gps.CrewMember{{ID: "crew-1"}, {ID: "crew-2"}},
		fixes: map[string]*gps.Fix{"crew-1": fixAt("crew-1", time.Minute, time.Now())},
	}
	agg := NewAggregator(api)

	presences, err := agg.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, presences, 1)
	assert.Equal(t, "crew-1", presences[0].CrewID)
}

func TestFetchAllPropagatesCrewListError(t *testing.T) {
	api := &fakeBackend{crewErr: errors.New("HTTP 502 from /users")}
	agg := NewAggregator(api)

	_, err := agg.FetchAll(context.Background())
	assert.Error(t, err)
}

func TestFetchOne(t *testing.T) {
	now := time.Now()
	api := &fakeBackend{
		fixes: map[string]*gps.Fix{"crew-1": fixAt("crew-1", 40*time.Minute, now)},
	}
	agg := NewAggregator(api)

	p, err := agg.FetchOne(context.Background(), "crew-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, gps.FreshnessOffline, p.Freshness)

	p, err = agg.FetchOne(context.Background(), "crew-9")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPollerDeliversAndStops(t *testing.T) {
	now := time.Now()
	api := &fakeBackend{
		crew:  []gps.CrewMember{{ID: "crew-1"}},
		fixes: map[string]*gps.Fix{"crew-1": fixAt("crew-1", time.Minute, now)},
	}
	agg := NewAggregator(api)

	updates := make(chan []gps.CrewPresence, 16)
	p := NewPoller(agg, 20*time.Millisecond, func(ps []gps.CrewPresence) {
		updates <- ps
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case ps := <-updates:
		require.Len(t, ps, 1)
	case <-time.After(time.Second):
		t.Fatal("no poll update delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}
