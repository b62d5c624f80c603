// Package app wires configuration, the connection supervisor, the job
// queue, the scheduler, and the HTTP façade into one runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"depctl/internal/config"
	"depctl/internal/container"
	"depctl/internal/jobs"
	"depctl/internal/scheduler"
	"depctl/internal/server"
	"depctl/internal/supervisor"
	"depctl/pkg/logging"
)

const subsystem = "App"

const shutdownTimeout = 15 * time.Second

// Application owns the wired components and their lifecycle.
type Application struct {
	cfg        config.DepctlConfig
	runtime    container.Runtime
	sup        *supervisor.Supervisor
	jobManager *jobs.Manager
	sched      *scheduler.Scheduler
	httpServer *http.Server
	version    string
}

// NewApplication loads configuration and constructs every component. The
// supervisor is built exactly once here and injected into its consumers;
// nothing else may own the MCP subprocess.
func NewApplication(flags Config, version string) (*Application, error) {
	level := logging.LevelInfo
	if flags.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.Host != "" {
		cfg.Server.Host = flags.Host
	}
	if flags.Port != 0 {
		cfg.Server.Port = flags.Port
	}

	runtime := container.NewRuntime(cfg.GlobalSettings.DefaultContainerRuntime, cfg.MCPServer.Image)
	launcher := container.NewLauncher(runtime, cfg.MCPServer.TokenEnvVar, cfg.Credential())

	sup, err := supervisor.New(supervisor.Options{
		Credential:       cfg.Credential(),
		CredentialEnvVar: cfg.MCPServer.TokenEnvVar,
		Launch: func(ctx context.Context) (supervisor.ToolClient, error) {
			return launcher.Launch(ctx)
		},
		Prober:               runtime,
		MaxReconnectAttempts: cfg.MCPServer.MaxReconnectAttempts,
		ReconnectBackoff:     cfg.MCPServer.ReconnectBackoff,
		StartupTimeout:       cfg.MCPServer.StartupTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create supervisor: %w", err)
	}

	// No Run is wired here: the delegated-agent runner that performs the
	// actual update work is out of scope, so jobs report it as unconfigured.
	jobManager := jobs.NewManager(jobs.NewStore(), jobs.ManagerOptions{
		Preflight: func(ctx context.Context) error {
			if cfg.Credential() == "" {
				return fmt.Errorf("%s not set", cfg.MCPServer.TokenEnvVar)
			}
			return runtime.Available(ctx)
		},
	})

	sched, err := scheduler.New(jobManager, cfg.Schedules)
	if err != nil {
		return nil, err
	}

	apiServer := server.New(server.Config{
		Controller:           sup,
		Jobs:                 jobManager,
		CheckRuntime:         runtime.Available,
		CredentialConfigured: func() bool { return cfg.Credential() != "" },
		Version:              version,
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:    addr,
		Handler: apiServer.Handler(),
	}

	return &Application{
		cfg:        cfg,
		runtime:    runtime,
		sup:        sup,
		jobManager: jobManager,
		sched:      sched,
		httpServer: httpServer,
		version:    version,
	}, nil
}

// Run starts the application and blocks until the context is cancelled or
// the HTTP server fails. A failed MCP bootstrap degrades the service rather
// than aborting it: status endpoints keep working and reconnects can
// recover later.
func (a *Application) Run(ctx context.Context) error {
	logging.Info(subsystem, "Starting depctl API server on %s", a.httpServer.Addr)

	if err := a.runtime.EnsureImage(ctx); err != nil {
		logging.Warn(subsystem, "Image bootstrap failed: %v; server may not function correctly", err)
	}

	if err := a.sup.Start(ctx); err != nil {
		logging.Warn(subsystem, "Persistent MCP server failed to start: %v; continuing degraded", err)
	} else {
		info := a.sup.Info()
		logging.Info(subsystem, "Persistent MCP server running, %d tools available", info.ToolCount)
	}

	a.sched.Start()

	errCh := make(chan error, 1)
	go func() {
		err := a.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	logging.Info(subsystem, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn(subsystem, "HTTP shutdown: %v", err)
	}
	a.sched.Stop(shutdownCtx)
	if err := a.jobManager.Shutdown(shutdownCtx); err != nil {
		logging.Warn(subsystem, "Job shutdown: %v", err)
	}
	a.sup.Stop(shutdownCtx)

	return runErr
}
