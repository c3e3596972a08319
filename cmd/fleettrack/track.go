package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/fleettrack/config"
	"github.com/fieldops/fleettrack/fleet"
	"github.com/fieldops/fleettrack/gps"
	"github.com/fieldops/fleettrack/position"
	"github.com/fieldops/fleettrack/route"
	"github.com/fieldops/fleettrack/surface"
	"github.com/fieldops/fleettrack/tracker"
)

var (
	continuous bool
	demo       bool
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run a tracking session on the native map surface",
	Long: `Opens a tracking session reading positions from gpsd (or a scripted
demo feed) and writes map layer commands to stdout for the host shell to
render. Ctrl-C stops the session.`,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().BoolVar(&continuous, "continuous", false, "enable continuous background tracking after start")
	trackCmd.Flags().BoolVar(&demo, "demo", false, "replay a scripted position feed instead of gpsd")
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg := config.Config

	client := newBackendClient()

	surf, err := surface.New(surface.PlatformNative, surface.Options{
		Render:    cfg.Render,
		CenterLat: cfg.Tracking.DefaultCenterLat,
		CenterLon: cfg.Tracking.DefaultCenterLon,
		Zoom:      cfg.Tracking.DefaultZoom,
		Output:    os.Stdout,
	})
	if err != nil {
		return err
	}

	loadSites(client, surf)

	var source position.Source
	if demo {
		source = position.NewReplaySource(demoReadings(cfg.Tracking), 2*time.Second)
	} else {
		source = position.NewGPSDSource(cfg.Platform.GPSDAddr)
	}

	ctrl := tracker.NewController(
		cfg.Tracking,
		tracker.Role(role),
		crewID,
		source,
		client,
		client,
		fleet.NewAggregator(client),
		route.NewLoader(client),
		surf,
	)
	ctrl.Mount()
	defer ctrl.Unmount()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.StartTracking(ctx); err != nil {
		return err
	}
	log.Printf("tracking started (state %s)", ctrl.State())

	if continuous {
		if err := ctrl.EnableContinuous(ctx); err != nil {
			return err
		}
		log.Printf("tracking mode: %s", ctrl.State())
	}

	<-ctx.Done()
	log.Printf("stopping tracking session")
	ctrl.Stop()
	return nil
}

// demoReadings walks north-east from the configured home center, one step per
// replay tick.
func demoReadings(t config.TrackingConfig) []gps.Reading {
	readings := make([]gps.Reading, 0, 60)
	now := time.Now()
	for i := 0; i < 60; i++ {
		readings = append(readings, gps.Reading{
			Latitude:   t.DefaultCenterLat + float64(i)*0.0004,
			Longitude:  t.DefaultCenterLon + float64(i)*0.0003,
			CapturedAt: now.Add(time.Duration(i) * 2 * time.Second),
		})
	}
	return readings
}
