package position

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops/fleettrack/gps"
)

// ReplaySource plays back a scripted reading sequence on a fixed cadence.
// Used by tests and the demo mode of the CLI.
type ReplaySource struct {
	readings []gps.Reading
	interval time.Duration
}

// NewReplaySource creates a source that emits the given readings in order,
// one per interval.
func NewReplaySource(readings []gps.Reading, interval time.Duration) *ReplaySource {
	return &ReplaySource{readings: readings, interval: interval}
}

// CurrentReading returns the first scripted reading.
func (s *ReplaySource) CurrentReading(ctx context.Context) (gps.Reading, error) {
	if len(s.readings) == 0 {
		return gps.Reading{}, fmt.Errorf("%w: replay script empty", ErrUnavailable)
	}
	return s.readings[0], nil
}

// Watch emits each scripted reading in order, then idles until cancelled.
func (s *ReplaySource) Watch(ctx context.Context, onReading func(gps.Reading), opts WatchOptions) (*Subscription, error) {
	wctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)

	go func() {
		defer close(sub.done)
		filter := newWatchFilter(opts)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-wctx.Done():
				return
			case <-ticker.C:
				if i >= len(s.readings) {
					continue
				}
				r := s.readings[i]
				i++
				if filter.allow(r) {
					onReading(r)
				}
			}
		}
	}()
	return sub, nil
}
