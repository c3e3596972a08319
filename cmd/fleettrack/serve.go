package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/fieldops/fleettrack/backend"
	"github.com/fieldops/fleettrack/config"
	"github.com/fieldops/fleettrack/fleet"
	"github.com/fieldops/fleettrack/position"
	"github.com/fieldops/fleettrack/route"
	"github.com/fieldops/fleettrack/surface"
	"github.com/fieldops/fleettrack/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web map surface and snapshot server",
	Long: `Serves the browser-facing map: REST snapshot endpoints, the snapshot
websocket, and the geolocation bridge the page feeds device positions into.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Config

	client := newBackendClient()
	bridge := position.NewBridge()
	hub := surface.NewHub()

	web := surface.NewWebSurface(surface.Options{
		Render:    cfg.Render,
		CenterLat: cfg.Tracking.DefaultCenterLat,
		CenterLon: cfg.Tracking.DefaultCenterLon,
		Zoom:      cfg.Tracking.DefaultZoom,
		Hub:       hub,
	})

	loadSites(client, web)

	source := position.NewBrowserSource(
		bridge,
		cfg.Tracking.DefaultCenterLat,
		cfg.Tracking.DefaultCenterLon,
		cfg.Tracking.OneShotTimeout(),
	)

	ctrl := tracker.NewController(
		cfg.Tracking,
		tracker.Role(role),
		crewID,
		source,
		client,
		client,
		fleet.NewAggregator(client),
		route.NewLoader(client),
		web,
	)
	ctrl.Mount()
	defer ctrl.Unmount()

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	web.Routes(r, bridge)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", addr)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	} else {
		log.Printf("server shut down successfully")
	}
	return nil
}

// loadSites fetches the site reference data once at startup. Sites change
// rarely; a restart picks up edits.
func loadSites(client *backend.Client, surf surface.Surface) {
	ctx, cancel := context.WithTimeout(context.Background(), config.Config.Backend.BackendTimeout())
	defer cancel()
	sites, err := client.Sites(ctx)
	if err != nil {
		log.Printf("site load failed, markers and geofences disabled: %v", err)
		return
	}
	surf.SetSiteMarkers(sites)
	surf.SetGeofences(sites)
	log.Printf("loaded %d sites", len(sites))
}
