package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldops/fleettrack/backend"
	"github.com/fieldops/fleettrack/config"
	"github.com/fieldops/fleettrack/internal"
)

var (
	role   string
	crewID string
)

var rootCmd = &cobra.Command{
	Use:   "fleettrack",
	Short: "Live field-crew location tracking and map visualization",
	Long: `fleettrack tracks field crew positions against a field-service backend
and renders them on a web or native map surface. Configuration is read from
config.yml (or configs/config.yml) with FLEETTRACK_* environment overrides.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.InitLogging()
		return config.LoadAppConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&role, "role", "dispatcher", "session role: admin|dispatcher|crew")
	rootCmd.PersistentFlags().StringVar(&crewID, "crew", "", "crew member ID for the session")
	rootCmd.AddCommand(serveCmd, trackCmd, fleetCmd, routeCmd)
}

func newBackendClient() *backend.Client {
	cfg := config.Config.Backend
	return backend.NewClient(cfg.BaseURL, cfg.AuthToken, cfg.BackendTimeout())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
