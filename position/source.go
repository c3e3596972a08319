package position

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fleettrack/gps"
)

var (
	// ErrPermissionDenied means the user declined location access.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrUnavailable means the platform lacks a usable location capability.
	ErrUnavailable = errors.New("location unavailable")
)

// AccuracyTier selects the quality/power tradeoff of a watch.
type AccuracyTier int

const (
	AccuracyBalanced AccuracyTier = iota
	AccuracyHigh
)

// WatchOptions throttles a continuous watch: a reading is delivered when the
// interval has elapsed or the device has moved the minimum distance,
// whichever fires first.
type WatchOptions struct {
	Accuracy          AccuracyTier
	MinInterval       time.Duration
	MinDistanceMeters float64
}

// Source yields one-shot and continuous device position readings.
type Source interface {
	// CurrentReading returns one position reading. Implementations bound the
	// wait themselves or honor the context deadline, whichever is shorter.
	CurrentReading(ctx context.Context) (gps.Reading, error)
	// Watch delivers readings to onReading until the subscription is
	// cancelled. The callback runs on the watch goroutine; it must not block.
	Watch(ctx context.Context, onReading func(gps.Reading), opts WatchOptions) (*Subscription, error)
}

// Subscription is the handle for an active continuous watch. Cancel is
// idempotent and must be called on teardown; an uncancelled subscription
// leaks the underlying platform listener.
type Subscription struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newSubscription(cancel context.CancelFunc) *Subscription {
	return &Subscription{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID identifies the subscription for logging.
func (s *Subscription) ID() string { return s.id }

// Cancel stops the watch and waits for its goroutine to exit.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed when the watch goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }
