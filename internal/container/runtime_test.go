package container

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commandScript routes mocked command executions by subcommand and records
// what was invoked.
type commandScript struct {
	t        *testing.T
	invoked  []string
	outcomes map[string]commandOutcome
}

type commandOutcome struct {
	out string
	err error
}

func newCommandScript(t *testing.T) *commandScript {
	t.Helper()

	script := &commandScript{t: t, outcomes: make(map[string]commandOutcome)}

	origCombined := runCombinedOutput
	origOutput := runOutput
	t.Cleanup(func() {
		runCombinedOutput = origCombined
		runOutput = origOutput
	})

	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		key := args[0]
		script.invoked = append(script.invoked, key)
		outcome, ok := script.outcomes[key]
		if !ok {
			t.Fatalf("unexpected command %s %s", name, strings.Join(args, " "))
		}
		return []byte(outcome.out), outcome.err
	}
	runCombinedOutput = run
	runOutput = run

	return script
}

func (s *commandScript) on(subcommand, out string, err error) {
	s.outcomes[subcommand] = commandOutcome{out: out, err: err}
}

func testRuntime() Runtime {
	return Runtime{Path: "/usr/bin/docker", Image: "ghcr.io/github/github-mcp-server"}
}

func TestAvailable(t *testing.T) {
	script := newCommandScript(t)
	script.on("--version", "Docker version 27.0.1, build abcdef0", nil)

	assert.NoError(t, testRuntime().Available(context.Background()))
	assert.Equal(t, []string{"--version"}, script.invoked)
}

func TestAvailableRuntimeMissing(t *testing.T) {
	script := newCommandScript(t)
	script.on("--version", "", errors.New("exec: not found"))

	err := testRuntime().Available(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")
}

func TestEnsureImagePullSucceeds(t *testing.T) {
	script := newCommandScript(t)
	script.on("--version", "Docker version 27.0.1", nil)
	script.on("pull", "Status: image is up to date", nil)
	script.on("images", "5d2f1b3c4e6a\n", nil)

	require.NoError(t, testRuntime().EnsureImage(context.Background()))
	assert.Equal(t, []string{"--version", "pull", "images"}, script.invoked)
}

func TestEnsureImagePullFailureWithCachedImage(t *testing.T) {
	script := newCommandScript(t)
	script.on("--version", "Docker version 27.0.1", nil)
	script.on("pull", "network timeout", errors.New("exit status 1"))
	script.on("images", "5d2f1b3c4e6a\n", nil)

	// A failed pull is tolerated as long as a cached image is present.
	require.NoError(t, testRuntime().EnsureImage(context.Background()))
	assert.Equal(t, []string{"--version", "pull", "images"}, script.invoked)
}

func TestEnsureImagePullFailureWithoutImage(t *testing.T) {
	script := newCommandScript(t)
	script.on("--version", "Docker version 27.0.1", nil)
	script.on("pull", "network timeout", errors.New("exit status 1"))
	script.on("images", "", nil)

	err := testRuntime().EnsureImage(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not available")
}

func TestEnsureImageVerifyFailure(t *testing.T) {
	script := newCommandScript(t)
	script.on("--version", "Docker version 27.0.1", nil)
	script.on("pull", "ok", nil)
	script.on("images", "", errors.New("exit status 1"))

	err := testRuntime().EnsureImage(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to verify image")
}

func TestEnsureImageRuntimeUnavailable(t *testing.T) {
	script := newCommandScript(t)
	script.on("--version", "", errors.New("exec: not found"))

	err := testRuntime().EnsureImage(context.Background())
	require.Error(t, err)
	// No pull is attempted without a working runtime.
	assert.Equal(t, []string{"--version"}, script.invoked)
}

func TestContainerID(t *testing.T) {
	script := newCommandScript(t)
	script.on("ps", "5d2f1b3c4e6a\n", nil)

	assert.Equal(t, "5d2f1b3c4e6a", testRuntime().ContainerID(context.Background()))
}

func TestContainerIDReturnsMostRecent(t *testing.T) {
	script := newCommandScript(t)
	script.on("ps", "5d2f1b3c4e6a\n0a1b2c3d4e5f\n", nil)

	assert.Equal(t, "5d2f1b3c4e6a", testRuntime().ContainerID(context.Background()))
}

func TestContainerIDSwallowsRuntimeError(t *testing.T) {
	script := newCommandScript(t)
	script.on("ps", "", errors.New("cannot connect to the docker daemon"))

	assert.Empty(t, testRuntime().ContainerID(context.Background()))
}

func TestContainerIDNoMatches(t *testing.T) {
	script := newCommandScript(t)
	script.on("ps", "\n", nil)

	assert.Empty(t, testRuntime().ContainerID(context.Background()))
}
