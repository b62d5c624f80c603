// Package supervisor owns the lifecycle of the GitHub MCP server container:
// starting it, tracking its health, recovering from failures, and
// serializing tool invocations against it. It is the only component with
// mutation rights over the shared subprocess; everything else consumes the
// read-only Info snapshot or the tool-call operations.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"depctl/pkg/logging"
)

const subsystem = "Supervisor"

var (
	// ErrCredentialMissing is returned by Start when no GitHub token is
	// configured. No spawn is attempted.
	ErrCredentialMissing = errors.New("credential not configured")

	// ErrReconnectExhausted is returned by Reconnect once the attempt
	// counter reaches the configured maximum.
	ErrReconnectExhausted = errors.New("max reconnect attempts exceeded")

	// ErrNotReady is returned by EnsureConnected while a concurrent start is
	// still in flight.
	ErrNotReady = errors.New("MCP server is starting, not ready")
)

// LaunchFunc spawns the tool-provider subprocess and returns a client
// speaking MCP over its standard streams. The returned client owns the
// subprocess; closing it must terminate the process.
type LaunchFunc func(ctx context.Context) (ToolClient, error)

// Prober looks up the runtime-assigned container identifier for the spawned
// process. Implementations must be best-effort: failures are reported as an
// empty string, never an error.
type Prober interface {
	ContainerID(ctx context.Context) string
}

// Options configures a Supervisor.
type Options struct {
	// Credential is the GitHub token. Start fails fast when it is empty.
	Credential string

	// CredentialEnvVar names the environment variable the credential comes
	// from; used in error messages only.
	CredentialEnvVar string

	// Launch spawns the MCP server subprocess. Required.
	Launch LaunchFunc

	// Prober resolves the container identifier after a successful start.
	// Optional; a nil prober means no identifier is recorded.
	Prober Prober

	// MaxReconnectAttempts bounds consecutive reconnects (default 3).
	MaxReconnectAttempts int

	// ReconnectBackoff is the fixed wait between teardown and respawn
	// (default 1s).
	ReconnectBackoff time.Duration

	// StartupTimeout bounds spawn + handshake + tool listing (default 60s).
	StartupTimeout time.Duration
}

// Supervisor is the connection state machine for the persistent MCP server.
//
// Two locks with distinct jobs: opMu serializes every state-mutating
// operation (Start, Stop, Reconnect, CallTool) so interleaved callers cannot
// corrupt the state machine or leak a subprocess. It is held for the full
// duration of a tool round trip, which also gives the stdio duplex its
// single-request-at-a-time discipline. mu guards the snapshot fields so
// Info() stays responsive while an operation is in flight.
type Supervisor struct {
	opMu sync.Mutex
	opts Options

	mu                sync.RWMutex
	state             State
	sess              *session
	tools             []string
	containerID       string
	lastError         string
	reconnectAttempts int
}

// New creates a supervisor. The instance is expected to be created exactly
// once at application bootstrap and injected into its consumers; it lives
// for the process lifetime, with Stop called unconditionally at shutdown.
func New(opts Options) (*Supervisor, error) {
	if opts.Launch == nil {
		return nil, fmt.Errorf("launch function is required")
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = 3
	}
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = time.Second
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = 60 * time.Second
	}
	if opts.CredentialEnvVar == "" {
		opts.CredentialEnvVar = "GITHUB_PERSONAL_ACCESS_TOKEN"
	}

	return &Supervisor{
		opts:  opts,
		state: StateStopped,
	}, nil
}

// Info returns the current status snapshot.
func (s *Supervisor) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		State:             s.state,
		ContainerID:       s.containerID,
		ToolCount:         len(s.tools),
		LastError:         s.lastError,
		ReconnectAttempts: s.reconnectAttempts,
	}
}

// Tools returns a copy of the tool names negotiated at the last start.
func (s *Supervisor) Tools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, len(s.tools))
	copy(tools, s.tools)
	return tools
}

// IsRunning reports whether the server is running with a live session.
func (s *Supervisor) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateRunning && s.sess != nil
}

// Start spawns the MCP server container, performs the handshake, and
// captures the tool list. On success the reconnect counter is reset.
func (s *Supervisor) Start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.startLocked(ctx)
}

// Stop tears down the session and subprocess. Idempotent: calling it on an
// already-stopped supervisor is a no-op.
func (s *Supervisor) Stop(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.stopLocked()
}

// Reconnect tears down the current session and attempts a fresh start,
// bounded by MaxReconnectAttempts.
func (s *Supervisor) Reconnect(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.reconnectLocked(ctx)
}

// EnsureConnected guarantees a live session, starting or reconnecting as
// needed. A supervisor observed mid-start fails fast with ErrNotReady.
func (s *Supervisor) EnsureConnected(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.ensureConnectedLocked(ctx)
}

// CallTool invokes an MCP tool and decodes its response. On a session fault
// it performs exactly one reconnect-and-retry cycle; the retry is a bounded
// loop, never recursive.
func (s *Supervisor) CallTool(ctx context.Context, name string, arguments map[string]interface{}) Result {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.ensureConnectedLocked(ctx); err != nil {
		return Errorf("MCP server not available: %s", s.failureMessage(err))
	}

	res, err := s.sess.call(ctx, name, arguments)
	if err == nil {
		return decodeResult(res)
	}

	// Session fault: mark the error, reconnect once, re-issue once.
	logging.Warn(subsystem, "Tool call %s failed, attempting reconnect: %v", name, err)
	s.recordError(err)

	if rerr := s.reconnectLocked(ctx); rerr != nil {
		return Errorf("MCP call failed: %s", err)
	}

	res, retryErr := s.sess.call(ctx, name, arguments)
	if retryErr != nil {
		s.recordError(retryErr)
		return Errorf("MCP call failed: %s", retryErr)
	}
	return decodeResult(res)
}

// CreatePullRequest creates a GitHub pull request through the MCP server.
// An empty base defaults to "main".
func (s *Supervisor) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) Result {
	if base == "" {
		base = "main"
	}
	return s.CallTool(ctx, "create_pull_request", map[string]interface{}{
		"owner": owner,
		"repo":  repo,
		"title": title,
		"body":  body,
		"head":  head,
		"base":  base,
	})
}

// CreateIssue creates a GitHub issue through the MCP server. Nil labels
// default to ["dependencies"].
func (s *Supervisor) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) Result {
	if labels == nil {
		labels = []string{"dependencies"}
	}
	return s.CallTool(ctx, "issue_write", map[string]interface{}{
		"owner":  owner,
		"repo":   repo,
		"title":  title,
		"body":   body,
		"labels": labels,
	})
}

// --- internal, caller must hold opMu ---

func (s *Supervisor) startLocked(ctx context.Context) error {
	if s.opts.Credential == "" {
		s.setError(fmt.Sprintf("%s not set", s.opts.CredentialEnvVar))
		return ErrCredentialMissing
	}

	// A fresh start replaces any live session; tearing it down first keeps
	// the single-subprocess invariant across repeated Start calls.
	s.cleanupLocked()

	s.setState(StateStarting)
	logging.Info(subsystem, "Starting persistent MCP server")

	startCtx, cancel := context.WithTimeout(ctx, s.opts.StartupTimeout)
	defer cancel()

	client, err := s.opts.Launch(startCtx)
	if err != nil {
		err = fmt.Errorf("failed to start MCP server: %w", err)
		s.recordError(err)
		return err
	}

	sess, err := openSession(startCtx, client)
	if err != nil {
		// openSession closed the client; nothing left to tear down.
		s.recordError(err)
		return err
	}

	var containerID string
	if s.opts.Prober != nil {
		containerID = s.opts.Prober.ContainerID(ctx)
	}

	s.mu.Lock()
	s.sess = sess
	s.tools = sess.tools
	s.containerID = containerID
	s.state = StateRunning
	s.lastError = ""
	s.reconnectAttempts = 0
	s.mu.Unlock()

	logging.Info(subsystem, "Persistent MCP server started, %d tools available", len(sess.tools))
	if containerID != "" {
		logging.Debug(subsystem, "Container ID: %.12s", containerID)
	}
	return nil
}

func (s *Supervisor) stopLocked() {
	s.cleanupLocked()

	s.mu.Lock()
	s.state = StateStopped
	s.tools = nil
	s.containerID = ""
	s.mu.Unlock()

	logging.Info(subsystem, "MCP server stopped")
}

func (s *Supervisor) reconnectLocked(ctx context.Context) error {
	s.mu.RLock()
	attempts := s.reconnectAttempts
	s.mu.RUnlock()

	if attempts >= s.opts.MaxReconnectAttempts {
		s.setError(fmt.Sprintf("max reconnect attempts (%d) exceeded", s.opts.MaxReconnectAttempts))
		return fmt.Errorf("%w (%d)", ErrReconnectExhausted, s.opts.MaxReconnectAttempts)
	}

	s.mu.Lock()
	s.state = StateReconnecting
	s.reconnectAttempts++
	attempts = s.reconnectAttempts
	s.mu.Unlock()

	logging.Info(subsystem, "Reconnecting to MCP server (attempt %d)", attempts)
	s.cleanupLocked()

	select {
	case <-time.After(s.opts.ReconnectBackoff):
	case <-ctx.Done():
		s.recordError(ctx.Err())
		return ctx.Err()
	}

	return s.startLocked(ctx)
}

func (s *Supervisor) ensureConnectedLocked(ctx context.Context) error {
	s.mu.RLock()
	state := s.state
	live := s.sess != nil
	s.mu.RUnlock()

	switch {
	case state == StateRunning && live:
		return nil
	case state == StateStopped:
		return s.startLocked(ctx)
	case state == StateError || state == StateReconnecting:
		return s.reconnectLocked(ctx)
	case state == StateStarting:
		return ErrNotReady
	default:
		return fmt.Errorf("MCP server not connected (state %s)", state)
	}
}

// cleanupLocked tears down the session idempotently. Closing the client
// reaps the subprocess, so no orphan survives partial failures.
func (s *Supervisor) cleanupLocked() {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess != nil {
		if err := sess.close(); err != nil {
			logging.Warn(subsystem, "Error closing MCP session: %v", err)
		}
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	if state == StateStarting {
		s.lastError = ""
	}
	s.mu.Unlock()
}

func (s *Supervisor) setError(message string) {
	s.mu.Lock()
	s.state = StateError
	s.lastError = message
	s.mu.Unlock()
}

func (s *Supervisor) recordError(err error) {
	logging.Error(subsystem, err, "MCP server error")
	s.setError(err.Error())
}

// failureMessage prefers the recorded error message over the raw error so
// callers see the same text the status snapshot reports.
func (s *Supervisor) failureMessage(err error) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastError != "" {
		return s.lastError
	}
	return err.Error()
}
