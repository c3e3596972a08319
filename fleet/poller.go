package fleet

import (
	"context"
	"log"
	"time"

	"github.com/fieldops/fleettrack/gps"
)

// Poller re-runs the fleet aggregation on a fixed cadence. Each cycle is
// fire-and-forget: a slow or failed fetch never blocks the next tick, so
// overlapping in-flight cycles are possible and the last response wins. There
// is no backoff; a failed cycle just waits for the next tick.
type Poller struct {
	agg      *Aggregator
	interval time.Duration
	onUpdate func([]gps.CrewPresence)
}

// NewPoller creates a poller delivering each cycle's result to onUpdate.
func NewPoller(agg *Aggregator, interval time.Duration, onUpdate func([]gps.CrewPresence)) *Poller {
	return &Poller{agg: agg, interval: interval, onUpdate: onUpdate}
}

// Run polls until the context is cancelled. The first cycle fires
// immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	go func() {
		cctx, cancel := context.WithTimeout(ctx, p.interval)
		defer cancel()
		presences, err := p.agg.FetchAll(cctx)
		if err != nil {
			log.Printf("fleet poll: %v", err)
			return
		}
		if ctx.Err() != nil {
			// View unmounted while the fetch was in flight; discard.
			return
		}
		p.onUpdate(presences)
	}()
}
