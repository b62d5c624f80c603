package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"depctl/internal/app"

	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveHost and servePort override the HTTP bind address from config files
// and the HOST/PORT environment variables.
var serveHost string
var servePort int

// serveCmd starts the dependency-update API server: it boots the persistent
// GitHub MCP server container, then serves HTTP until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dependency-update API server",
	Long: `Starts the depctl API server.

On startup it pulls and verifies the GitHub MCP server image, launches the
persistent MCP server container, and then serves HTTP endpoints for:

  - queueing repository dependency-update jobs and tracking their status
  - inspecting and reconnecting the MCP server connection
  - health checks covering the container runtime, the GitHub credential,
    and the MCP session

A failed MCP bootstrap does not abort the server: status endpoints keep
working and the connection can recover via reconnects. The server runs
until terminated (e.g. Ctrl+C).

Configuration is layered from ~/.config/depctl/config.yaml and
./.depctl/config.yaml; the GitHub token is read from the environment
variable named by mcpServer.tokenEnvVar (default GITHUB_PERSONAL_ACCESS_TOKEN).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveHost, servePort)

	application, err := app.NewApplication(cfg, rootCmd.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the HTTP server to")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to bind the HTTP server to")
}
