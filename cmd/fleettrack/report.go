package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/fleettrack/config"
	"github.com/fieldops/fleettrack/fleet"
	"github.com/fieldops/fleettrack/route"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Print a one-shot fleet presence table",
	RunE:  runFleet,
}

var routeCmd = &cobra.Command{
	Use:   "route <dispatch-id>",
	Short: "Print travelled-route stats for a dispatch",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoute,
}

func runFleet(cmd *cobra.Command, args []string) error {
	client := newBackendClient()
	agg := fleet.NewAggregator(client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	presences, err := agg.FetchAll(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREW\tNAME\tSTATUS\tFRESHNESS\tLAT\tLON\tLAST FIX")
	for _, p := range presences {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.5f\t%.5f\t%s\n",
			p.CrewID, p.Name, p.DispatchStatus, p.Freshness,
			p.Fix.Latitude, p.Fix.Longitude,
			p.Fix.CapturedAt.Local().Format(time.RFC3339))
	}
	return w.Flush()
}

func runRoute(cmd *cobra.Command, args []string) error {
	client := newBackendClient()
	loader := route.NewLoader(client)

	ctx, cancel := context.WithTimeout(context.Background(), config.Config.Backend.BackendTimeout())
	defer cancel()
	path, err := loader.Load(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("dispatch:    %s\n", path.DispatchID)
	fmt.Printf("points:      %d\n", path.PointCount)
	fmt.Printf("distance:    %.2f km\n", path.DistanceKM)
	fmt.Printf("duration:    %.1f min\n", path.DurationMinutes)
	fmt.Printf("avg speed:   %.1f km/h\n", path.AvgSpeedKMH)
	return nil
}
