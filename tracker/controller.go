package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fieldops/fleettrack/config"
	"github.com/fieldops/fleettrack/fleet"
	"github.com/fieldops/fleettrack/gps"
	"github.com/fieldops/fleettrack/position"
	"github.com/fieldops/fleettrack/surface"
)

// State is the tracking session state.
type State int

const (
	StateIdle State = iota
	StateTrackingManual
	StateTrackingContinuous
)

func (s State) String() string {
	switch s {
	case StateTrackingManual:
		return "tracking-manual"
	case StateTrackingContinuous:
		return "tracking-continuous"
	default:
		return "idle"
	}
}

// Role is the viewer's role. Dispatchers and admins see the whole fleet; crew
// members track themselves against a dispatch.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDispatcher Role = "dispatcher"
	RoleCrew       Role = "crew"
)

var (
	// ErrNoActiveDispatch rejects a tracking start for a crew member with
	// nothing to track against. Surfaced as a one-time advisory, never fatal.
	ErrNoActiveDispatch = errors.New("no in-progress dispatch to track against")
	// ErrInvalidTransition rejects an operation not legal in the current state.
	ErrInvalidTransition = errors.New("invalid tracking state transition")
)

// Reporter pushes fixes to the backend.
type Reporter interface {
	ReportFix(ctx context.Context, crewID string, r gps.Reading, dispatchID string) (gps.Fix, error)
}

// DispatchFinder looks up a crew member's in-progress dispatch.
type DispatchFinder interface {
	InProgressDispatch(ctx context.Context, crewID string) (*gps.Dispatch, error)
}

// RouteLoader rebuilds the travelled path for a dispatch.
type RouteLoader interface {
	Load(ctx context.Context, dispatchID string) (gps.RoutePath, error)
}

// Controller orchestrates one tracking session. It is the sole owner of the
// position-source subscription; no other component may cancel or restart it.
type Controller struct {
	cfg        config.TrackingConfig
	role       Role
	crewID     string
	source     position.Source
	reporter   Reporter
	dispatches DispatchFinder
	agg        *fleet.Aggregator
	routes     RouteLoader
	surf       surface.Surface

	// BackgroundPermission reports whether continuous tracking is granted.
	// Nil means granted; a denial keeps the session in manual mode.
	BackgroundPermission func(ctx context.Context) bool

	mu         sync.Mutex
	state      State
	mounted    bool
	dispatchID string
	sub        *position.Subscription
	fleetTask  *taskHandle
	statsTask  *taskHandle
	presence   []gps.CrewPresence
	stats      gps.RoutePath
}

// NewController wires a tracking session. The surface, source and clients are
// platform-selected by the caller; the controller never re-queries the
// platform.
func NewController(
	cfg config.TrackingConfig,
	role Role,
	crewID string,
	source position.Source,
	reporter Reporter,
	dispatches DispatchFinder,
	agg *fleet.Aggregator,
	routes RouteLoader,
	surf surface.Surface,
) *Controller {
	return &Controller{
		cfg:        cfg,
		role:       role,
		crewID:     crewID,
		source:     source,
		reporter:   reporter,
		dispatches: dispatches,
		agg:        agg,
		routes:     routes,
		surf:       surf,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Presence returns the latest fleet presence list.
func (c *Controller) Presence() []gps.CrewPresence {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]gps.CrewPresence, len(c.presence))
	copy(out, c.presence)
	return out
}

// Stats returns the latest travelled-path aggregates for the active dispatch.
func (c *Controller) Stats() gps.RoutePath {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Mount starts the view-scoped loops. Dispatchers and admins get the 30 s
// fleet presence poll; crew members only see their own marker.
func (c *Controller) Mount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mounted {
		return
	}
	c.mounted = true
	if c.role == RoleAdmin || c.role == RoleDispatcher {
		poller := fleet.NewPoller(c.agg, c.cfg.FleetPollInterval(), c.applyPresence)
		c.fleetTask = startTask(poller.Run)
	}
}

// Unmount cancels every task and subscription the controller owns. Results
// from requests still in flight are discarded by the mounted guard.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.mounted = false
	c.state = StateIdle
	sub := c.sub
	c.sub = nil
	stats := c.statsTask
	c.statsTask = nil
	fleetTask := c.fleetTask
	c.fleetTask = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	if stats != nil {
		stats.Stop()
	}
	if fleetTask != nil {
		fleetTask.Stop()
	}
}

// StartTracking moves Idle -> TrackingManual. Admins may always start; crew
// members must have an in-progress dispatch to track against. A one-shot
// reading centers the map; acquisition failure degrades, it does not abort
// the transition.
func (c *Controller) StartTracking(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, c.state)
	}
	c.mu.Unlock()

	dispatchID := ""
	if c.role != RoleAdmin {
		dispatch, err := c.dispatches.InProgressDispatch(ctx, c.crewID)
		if err != nil {
			return fmt.Errorf("dispatch lookup: %w", err)
		}
		if dispatch == nil {
			return ErrNoActiveDispatch
		}
		dispatchID = dispatch.ID
	}

	octx, cancel := context.WithTimeout(ctx, c.cfg.OneShotTimeout())
	defer cancel()
	reading, err := c.source.CurrentReading(octx)
	if err != nil {
		// Degraded start: the session still opens, just without a marker.
		log.Printf("tracking start: no initial reading: %v", err)
	}

	c.mu.Lock()
	c.state = StateTrackingManual
	c.dispatchID = dispatchID
	c.mu.Unlock()

	// The stats poll follows the dispatch, not the tracking mode: manual
	// sessions refresh route aggregates too.
	if dispatchID != "" {
		c.startStatsPoll(dispatchID)
	}

	if err == nil {
		c.applyReading(reading)
		c.report(reading)
	}
	return nil
}

// EnableContinuous moves TrackingManual -> TrackingContinuous. A denied
// background permission keeps the session in manual mode; that is a
// recoverable degradation, not an error.
func (c *Controller) EnableContinuous(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateTrackingManual {
		c.mu.Unlock()
		return fmt.Errorf("%w: continuous from %s", ErrInvalidTransition, c.state)
	}
	c.mu.Unlock()

	if c.BackgroundPermission != nil && !c.BackgroundPermission(ctx) {
		log.Printf("continuous tracking permission denied; staying in manual mode")
		return nil
	}

	sub, err := c.source.Watch(context.Background(), c.onWatchReading, position.WatchOptions{
		Accuracy:          position.AccuracyBalanced,
		MinInterval:       c.cfg.WatchInterval(),
		MinDistanceMeters: c.cfg.WatchDisplacementM,
	})
	if err != nil {
		log.Printf("continuous watch unavailable: %v; staying in manual mode", err)
		return nil
	}

	c.mu.Lock()
	if c.state != StateTrackingManual {
		// Stopped while the watch was being set up.
		c.mu.Unlock()
		sub.Cancel()
		return nil
	}
	c.sub = sub
	c.state = StateTrackingContinuous
	c.mu.Unlock()
	return nil
}

// Stop is legal from either tracking state: it cancels the subscription and
// the stats poll, then returns to Idle. In Idle it is a no-op. Stopping is
// local; the backend keeps whatever fixes were already reported.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	sub := c.sub
	c.sub = nil
	stats := c.statsTask
	c.statsTask = nil
	c.state = StateIdle
	c.dispatchID = ""
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	if stats != nil {
		stats.Stop()
	}
	c.surf.SetDeviceMarker(nil)
}

// onWatchReading runs on the watch goroutine. The marker update is applied
// inline; the report is fire-and-forget so a slow backend never stalls the
// watch.
func (c *Controller) onWatchReading(r gps.Reading) {
	c.applyReading(r)
	go c.report(r)
}

func (c *Controller) applyReading(r gps.Reading) {
	c.mu.Lock()
	if !c.mounted || c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.surf.SetDeviceMarker(&r)
}

// report pushes one fix. Failures are logged and swallowed: continuous
// tracking must survive transient connectivity loss.
func (c *Controller) report(r gps.Reading) {
	c.mu.Lock()
	dispatchID := c.dispatchID
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := c.reporter.ReportFix(ctx, c.crewID, r, dispatchID); err != nil {
		log.Printf("fix report dropped: %v", err)
	}
}

func (c *Controller) startStatsPoll(dispatchID string) {
	interval := c.cfg.StatsPollInterval()
	task := startTask(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		c.statsCycle(ctx, dispatchID, interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.statsCycle(ctx, dispatchID, interval)
			}
		}
	})

	c.mu.Lock()
	if c.state == StateIdle {
		// Stopped while the poll was being set up.
		c.mu.Unlock()
		task.Stop()
		return
	}
	c.statsTask = task
	c.mu.Unlock()
}

// statsCycle is fire-and-forget like the fleet poll: a slow route fetch never
// blocks the next tick, and a stale response loses to whichever lands last.
func (c *Controller) statsCycle(ctx context.Context, dispatchID string, interval time.Duration) {
	go func() {
		cctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		path, err := c.routes.Load(cctx, dispatchID)
		if err != nil {
			log.Printf("stats poll: %v", err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		c.applyStats(path)
	}()
}

func (c *Controller) applyStats(path gps.RoutePath) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.stats = path
	c.mu.Unlock()
	c.surf.SetRoute(path.Fixes)
}

func (c *Controller) applyPresence(presences []gps.CrewPresence) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.presence = presences
	c.mu.Unlock()
	c.surf.SetCrewMarkers(presences)
}
