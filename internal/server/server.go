// Package server is the HTTP façade over the connection supervisor and the
// job queue. It renders supervisor snapshots as JSON and queues background
// update runs; it holds no state of its own.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"depctl/internal/jobs"
	"depctl/internal/supervisor"
	"depctl/pkg/logging"
)

const subsystem = "HTTP"

// MCPController is the slice of the supervisor the façade consumes.
type MCPController interface {
	Info() supervisor.Info
	Tools() []string
	IsRunning() bool
	Reconnect(ctx context.Context) error
}

// Config wires the server's collaborators.
type Config struct {
	Controller MCPController
	Jobs       *jobs.Manager

	// CheckRuntime verifies the container runtime answers; used by /health.
	CheckRuntime func(ctx context.Context) error

	// CredentialConfigured reports whether the GitHub token is set.
	CredentialConfigured func() bool

	Version string
}

// Server exposes the depctl HTTP API.
type Server struct {
	controller           MCPController
	jobs                 *jobs.Manager
	checkRuntime         func(ctx context.Context) error
	credentialConfigured func() bool
	version              string
}

// New creates the API server.
func New(cfg Config) *Server {
	return &Server{
		controller:           cfg.Controller,
		jobs:                 cfg.Jobs,
		checkRuntime:         cfg.CheckRuntime,
		credentialConfigured: cfg.CredentialConfigured,
		version:              cfg.Version,
	}
}

// Handler returns an http.Handler exposing the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/mcp/status", s.handleMCPStatus)
	mux.HandleFunc("GET /api/mcp/tools", s.handleMCPTools)
	mux.HandleFunc("POST /api/mcp/reconnect", s.handleMCPReconnect)

	mux.HandleFunc("POST /api/repositories/update", s.handleUpdateRepository)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)

	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "online",
		"service": "Dependency Update Automation API",
		"version": s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	runtimeAvailable := true
	if s.checkRuntime != nil {
		runtimeAvailable = s.checkRuntime(r.Context()) == nil
	}

	tokenConfigured := true
	if s.credentialConfigured != nil {
		tokenConfigured = s.credentialConfigured()
	}

	info := s.controller.Info()
	mcpRunning := info.State == supervisor.StateRunning

	status := "healthy"
	if !runtimeAvailable || !tokenConfigured || !mcpRunning {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"checks": map[string]interface{}{
			"docker":       availability(runtimeAvailable),
			"github_token": configured(tokenConfigured),
			"mcp_server": map[string]interface{}{
				"status":       info.State,
				"tools_count":  info.ToolCount,
				"container_id": shortID(info.ContainerID),
				"error":        info.LastError,
			},
		},
	})
}

func (s *Server) handleMCPStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Info())
}

func (s *Server) handleMCPTools(w http.ResponseWriter, r *http.Request) {
	if !s.controller.IsRunning() {
		writeError(w, http.StatusServiceUnavailable, "mcp_unavailable", "MCP server is not running")
		return
	}

	tools := s.controller.Tools()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools_count": len(tools),
		"tools":       tools,
	})
}

func (s *Server) handleMCPReconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Reconnect(r.Context()); err != nil {
		info := s.controller.Info()
		writeError(w, http.StatusServiceUnavailable, "reconnect_failed",
			"Failed to reconnect: "+info.LastError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"message":     "MCP server reconnected successfully",
		"tools_count": len(s.controller.Tools()),
	})
}

type updateRepositoryRequest struct {
	Repository string `json:"repository"`
}

func (s *Server) handleUpdateRepository(w http.ResponseWriter, r *http.Request) {
	var req updateRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if strings.TrimSpace(req.Repository) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "repository is required")
		return
	}

	job := s.jobs.Submit(req.Repository)
	logging.Info(subsystem, "Queued update for %s as job %s", req.Repository, job.ID)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"message":    "Repository update job has been queued",
		"repository": job.Repository,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	all := s.jobs.Store().List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(all),
		"jobs":  all,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.jobs.Store().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// --- helpers ---

type apiErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiErrorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error(subsystem, err, "Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{Error: apiErrorDetail{Code: code, Message: message}})
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "missing"
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
