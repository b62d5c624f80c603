package cmd

import (
	"context"
	"fmt"
	"time"

	"depctl/internal/config"
	"depctl/internal/container"

	"github.com/spf13/cobra"
)

// statusCmd is a one-shot diagnostic: it checks everything the serve command
// needs without starting anything, so misconfiguration shows up before the
// first update job does.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check local prerequisites for running depctl",
	Long: `Checks the local environment for everything 'depctl serve' needs:

  - the container runtime executable (PATH lookup plus common install
    locations)
  - whether the runtime answers a version query
  - whether the GitHub MCP server image is present locally
  - whether the GitHub token environment variable is set

Nothing is started or modified; the command prints its findings and exits
non-zero if a prerequisite is missing.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	runtime := container.NewRuntime(cfg.GlobalSettings.DefaultContainerRuntime, cfg.MCPServer.Image)
	fmt.Printf("Container runtime: %s\n", runtime.Path)

	healthy := true

	if err := runtime.Available(ctx); err != nil {
		fmt.Printf("  runtime check:   FAILED (%v)\n", err)
		healthy = false
	} else {
		fmt.Printf("  runtime check:   ok\n")
	}

	if id := runtime.ContainerID(ctx); id != "" {
		fmt.Printf("  running server:  %.12s\n", id)
	} else {
		fmt.Printf("  running server:  none\n")
	}

	if cfg.Credential() == "" {
		fmt.Printf("Credential (%s): MISSING\n", cfg.MCPServer.TokenEnvVar)
		healthy = false
	} else {
		fmt.Printf("Credential (%s): configured\n", cfg.MCPServer.TokenEnvVar)
	}

	fmt.Printf("Image: %s\n", cfg.MCPServer.Image)

	if !healthy {
		return fmt.Errorf("one or more prerequisites are missing")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
