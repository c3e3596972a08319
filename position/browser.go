package position

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fieldops/fleettrack/gps"
)

// BridgeMessage is one message from the browser geolocation page. Position
// messages carry a reading; error messages carry a geolocation error code.
type BridgeMessage struct {
	Type        string   `json:"type"` // "position" | "error"
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Speed       *float64 `json:"speed,omitempty"`
	Accuracy    *float64 `json:"accuracy,omitempty"`
	Bearing     *float64 `json:"bearing,omitempty"`
	TimestampMS int64    `json:"timestamp_ms,omitempty"`
	Code        string   `json:"code,omitempty"` // "permission_denied" | "unavailable"
}

// Bridge receives geolocation updates pushed by the browser page and fans
// them out to subscribed sources. The web surface owns the websocket; the
// bridge only sees decoded messages.
type Bridge struct {
	mu     sync.Mutex
	latest *gps.Reading
	denied bool
	nextID int
	subs   map[int]chan gps.Reading
}

// NewBridge creates an empty geolocation bridge.
func NewBridge() *Bridge {
	return &Bridge{subs: map[int]chan gps.Reading{}}
}

// Apply routes one decoded browser message into the bridge.
func (b *Bridge) Apply(msg BridgeMessage) {
	switch msg.Type {
	case "position":
		r := gps.Reading{
			Latitude:   msg.Latitude,
			Longitude:  msg.Longitude,
			Speed:      msg.Speed,
			Accuracy:   msg.Accuracy,
			Bearing:    msg.Bearing,
			CapturedAt: time.Now().UTC(),
		}
		if msg.TimestampMS > 0 {
			r.CapturedAt = time.UnixMilli(msg.TimestampMS).UTC()
		}
		b.Publish(r)
	case "error":
		if msg.Code == "permission_denied" {
			b.Deny()
		}
	}
}

// Publish records a new reading and delivers it to subscribers. Invalid
// coordinates are dropped here so they never reach the render model.
func (b *Bridge) Publish(r gps.Reading) {
	if err := r.Validate(); err != nil {
		log.Printf("bridge: dropping invalid reading: %v", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.denied = false
	reading := r
	b.latest = &reading
	for _, ch := range b.subs {
		select {
		case ch <- r:
		default: // slow subscriber, drop
		}
	}
}

// Deny marks the browser as having declined location access.
func (b *Bridge) Deny() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.denied = true
}

// Latest returns the most recent reading, if any, and the denial flag.
func (b *Bridge) Latest() (*gps.Reading, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.denied
}

func (b *Bridge) subscribe() (<-chan gps.Reading, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan gps.Reading, 8)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// BrowserSource is the browser-hosted position source. One-shot requests wait
// a bounded time for the page to deliver a high-accuracy reading and fall back
// to the configured default center when the page cannot (permission denied,
// unsupported API) so the map always has something to center on.
type BrowserSource struct {
	bridge         *Bridge
	fallback       gps.Reading
	oneShotTimeout time.Duration
	advisoryOnce   sync.Once
}

// NewBrowserSource wires a source to a geolocation bridge. fallbackLat/Lon is
// the default map center used when no reading can be acquired.
func NewBrowserSource(bridge *Bridge, fallbackLat, fallbackLon float64, oneShotTimeout time.Duration) *BrowserSource {
	if oneShotTimeout <= 0 {
		oneShotTimeout = 10 * time.Second
	}
	return &BrowserSource{
		bridge:         bridge,
		fallback:       gps.Reading{Latitude: fallbackLat, Longitude: fallbackLon},
		oneShotTimeout: oneShotTimeout,
	}
}

// CurrentReading returns the latest bridged reading, waiting up to the
// one-shot timeout for the first one. Denial and absence degrade to the
// fallback center with a single advisory log line, never an error.
func (s *BrowserSource) CurrentReading(ctx context.Context) (gps.Reading, error) {
	// Subscribe before the latest-check: a reading published in between is
	// then delivered on the channel instead of lost.
	ch, unsubscribe := s.bridge.subscribe()
	defer unsubscribe()

	if latest, denied := s.bridge.Latest(); latest != nil && !denied {
		return *latest, nil
	} else if denied {
		return s.degraded("permission denied"), nil
	}

	timer := time.NewTimer(s.oneShotTimeout)
	defer timer.Stop()
	for {
		select {
		case r := <-ch:
			return r, nil
		case <-timer.C:
			return s.degraded("no reading within timeout"), nil
		case <-ctx.Done():
			return s.degraded("request cancelled"), nil
		}
	}
}

func (s *BrowserSource) degraded(reason string) gps.Reading {
	s.advisoryOnce.Do(func() {
		log.Printf("browser geolocation unavailable (%s); using default center %.4f,%.4f",
			reason, s.fallback.Latitude, s.fallback.Longitude)
	})
	r := s.fallback
	r.CapturedAt = time.Now().UTC()
	return r
}

// Watch delivers bridged readings through the option throttle until cancelled.
func (s *BrowserSource) Watch(ctx context.Context, onReading func(gps.Reading), opts WatchOptions) (*Subscription, error) {
	ch, unsubscribe := s.bridge.subscribe()
	wctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)

	go func() {
		defer close(sub.done)
		defer unsubscribe()
		filter := newWatchFilter(opts)
		for {
			select {
			case r := <-ch:
				if filter.allow(r) {
					onReading(r)
				}
			case <-wctx.Done():
				return
			}
		}
	}()
	return sub, nil
}
