package position

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/fieldops/fleettrack/gps"
)

const gpsdWatchCommand = `?WATCH={"enable":true,"json":true};`

// GPSDSource reads the native device GPS through a local gpsd-style JSON
// stream of TPV reports.
type GPSDSource struct {
	addr           string
	dialTimeout    time.Duration
	reconnectPause time.Duration
}

// NewGPSDSource creates a source for the given gpsd address (host:port).
func NewGPSDSource(addr string) *GPSDSource {
	return &GPSDSource{
		addr:           addr,
		dialTimeout:    5 * time.Second,
		reconnectPause: 3 * time.Second,
	}
}

// tpvReport is the subset of a gpsd TPV message the tracking core uses.
// Mode 0/1 means no fix yet.
type tpvReport struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"`
	Time  string   `json:"time"`
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	Speed *float64 `json:"speed"` // m/s
	Track *float64 `json:"track"` // degrees
	EPX   *float64 `json:"epx"`   // meters
	EPY   *float64 `json:"epy"`
}

func (t tpvReport) hasFix() bool { return t.Class == "TPV" && t.Mode >= 2 }

func (t tpvReport) toReading() gps.Reading {
	r := gps.Reading{
		Latitude:   t.Lat,
		Longitude:  t.Lon,
		Speed:      t.Speed,
		Bearing:    t.Track,
		CapturedAt: time.Now().UTC(),
	}
	if ts, err := time.Parse(time.RFC3339, t.Time); err == nil {
		r.CapturedAt = ts.UTC()
	}
	if t.EPX != nil || t.EPY != nil {
		acc := 0.0
		if t.EPX != nil {
			acc = *t.EPX
		}
		if t.EPY != nil && *t.EPY > acc {
			acc = *t.EPY
		}
		r.Accuracy = &acc
	}
	return r
}

func (s *GPSDSource) connect(ctx context.Context) (net.Conn, *bufio.Scanner, error) {
	d := net.Dialer{Timeout: s.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: gpsd at %s: %v", ErrUnavailable, s.addr, err)
	}
	if _, err := conn.Write([]byte(gpsdWatchCommand + "\n")); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%w: gpsd watch: %v", ErrUnavailable, err)
	}
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024)
	return conn, sc, nil
}

// CurrentReading connects and waits for the first TPV report with a fix,
// honoring the context deadline.
func (s *GPSDSource) CurrentReading(ctx context.Context) (gps.Reading, error) {
	conn, sc, err := s.connect(ctx)
	if err != nil {
		return gps.Reading{}, err
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	for sc.Scan() {
		report, ok := decodeTPV(sc.Text())
		if !ok || !report.hasFix() {
			continue
		}
		r := report.toReading()
		if err := r.Validate(); err != nil {
			continue
		}
		return r, nil
	}
	if err := sc.Err(); err != nil {
		return gps.Reading{}, fmt.Errorf("%w: gpsd stream: %v", ErrUnavailable, err)
	}
	return gps.Reading{}, fmt.Errorf("%w: gpsd stream closed before a fix", ErrUnavailable)
}

// Watch streams TPV reports through the option throttle, reconnecting with a
// short pause when the stream drops. Cadence and displacement come from the
// options (30 s / 10-50 m in production).
func (s *GPSDSource) Watch(ctx context.Context, onReading func(gps.Reading), opts WatchOptions) (*Subscription, error) {
	wctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)

	go func() {
		defer close(sub.done)
		filter := newWatchFilter(opts)
		for wctx.Err() == nil {
			if err := s.watchOnce(wctx, onReading, filter); err != nil && wctx.Err() == nil {
				log.Printf("gpsd watch %s: %v; reconnecting", sub.ID(), err)
			}
			select {
			case <-wctx.Done():
			case <-time.After(s.reconnectPause):
			}
		}
	}()
	return sub, nil
}

func (s *GPSDSource) watchOnce(ctx context.Context, onReading func(gps.Reading), filter *watchFilter) error {
	conn, sc, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop when the watch is cancelled. The closer must not
	// outlive this attempt: one watch reconnects many times.
	attemptDone := make(chan struct{})
	defer close(attemptDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-attemptDone:
		}
	}()

	for sc.Scan() {
		report, ok := decodeTPV(sc.Text())
		if !ok || !report.hasFix() {
			continue
		}
		r := report.toReading()
		if err := r.Validate(); err != nil {
			continue
		}
		if filter.allow(r) {
			onReading(r)
		}
	}
	return sc.Err()
}

func decodeTPV(line string) (tpvReport, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, `"TPV"`) {
		return tpvReport{}, false
	}
	var report tpvReport
	if err := json.Unmarshal([]byte(line), &report); err != nil {
		return tpvReport{}, false
	}
	return report, true
}
