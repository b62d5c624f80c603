package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"depctl/pkg/logging"
)

// For mocking in tests
var execLookPath = exec.LookPath
var runCombinedOutput = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
var runOutput = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// commonRuntimePaths are checked when the runtime executable is not on PATH.
// Absolute paths avoid problems with debuggers and launchd-spawned processes
// that run with a stripped-down PATH.
var commonRuntimePaths = []string{
	"/usr/local/bin/docker",
	"/usr/bin/docker",
	"/opt/homebrew/bin/docker",
	"/Applications/Docker.app/Contents/Resources/bin/docker",
}

// ResolveRuntimePath returns the path to the container runtime executable.
// It prefers a PATH lookup of the given command, then falls back to common
// installation locations, and finally to the bare command name so the OS can
// resolve it at spawn time.
func ResolveRuntimePath(command string) string {
	if command == "" {
		command = "docker"
	}

	if path, err := execLookPath(command); err == nil {
		return path
	}

	for _, path := range commonRuntimePaths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode()&0111 != 0 {
			return path
		}
	}

	return command
}

// Runtime wraps the container runtime executable for the operations depctl
// needs: availability checks, image bootstrap, and container lookups.
type Runtime struct {
	Path  string
	Image string
}

// NewRuntime resolves the runtime executable and binds it to the image the
// supervisor will run.
func NewRuntime(command, image string) Runtime {
	return Runtime{
		Path:  ResolveRuntimePath(command),
		Image: image,
	}
}

// Available checks that the runtime executable answers a version query.
func (r Runtime) Available(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := runCombinedOutput(ctx, r.Path, "--version")
	if err != nil {
		return fmt.Errorf("container runtime %s is not available: %w", r.Path, err)
	}
	logging.Debug("Container", "Runtime found: %s", strings.TrimSpace(string(out)))
	return nil
}

// EnsureImage pulls and verifies the MCP server image so the first start does
// not pay the download cost. A failed pull is tolerated when a cached image
// is already present; a missing image after pull is an error.
func (r Runtime) EnsureImage(ctx context.Context) error {
	if err := r.Available(ctx); err != nil {
		return err
	}

	logging.Info("Container", "Pulling image %s", r.Image)
	pullCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if out, err := runCombinedOutput(pullCtx, r.Path, "pull", r.Image); err != nil {
		logging.Warn("Container", "Could not pull image %s: %v (%s); will use cached image if available",
			r.Image, err, strings.TrimSpace(string(out)))
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := runOutput(verifyCtx, r.Path, "images", r.Image, "-q")
	if err != nil {
		return fmt.Errorf("failed to verify image %s: %w", r.Image, err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return fmt.Errorf("image %s is not available", r.Image)
	}

	logging.Info("Container", "Image %s verified", r.Image)
	return nil
}

// ContainerID probes the runtime for a container running the MCP server
// image and returns the most recent match. It is strictly best-effort:
// every failure is swallowed and reported as an empty identifier, because
// the identifier is observability-only and must never affect the
// supervisor's state transitions.
func (r Runtime) ContainerID(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := runOutput(ctx, r.Path, "ps", "-q", "--filter", "ancestor="+r.Image)
	if err != nil {
		return ""
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return ""
	}
	return lines[0]
}
