package config

import (
	"time"
)

// DepctlConfig is the top-level configuration structure for depctl.
type DepctlConfig struct {
	GlobalSettings GlobalSettings        `yaml:"globalSettings"`
	MCPServer      MCPServerConfig       `yaml:"mcpServer"`
	Server         ServerConfig          `yaml:"server"`
	Schedules      []ScheduledRepository `yaml:"schedules,omitempty"`
}

// GlobalSettings holds settings that apply across all subsystems.
type GlobalSettings struct {
	DefaultContainerRuntime string `yaml:"defaultContainerRuntime,omitempty"` // e.g., "docker", "podman"
}

// MCPServerConfig defines how the GitHub MCP server container is run and
// supervised.
type MCPServerConfig struct {
	Image                string        `yaml:"image,omitempty"`                // Container image, e.g., "ghcr.io/github/github-mcp-server"
	TokenEnvVar          string        `yaml:"tokenEnvVar,omitempty"`          // Environment variable carrying the GitHub token
	MaxReconnectAttempts int           `yaml:"maxReconnectAttempts,omitempty"` // Bounded reconnect attempts before giving up
	ReconnectBackoff     time.Duration `yaml:"reconnectBackoff,omitempty"`     // Delay between teardown and respawn
	StartupTimeout       time.Duration `yaml:"startupTimeout,omitempty"`       // Budget for spawn + handshake + tool listing
}

// ServerConfig defines where the HTTP API binds.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// ScheduledRepository pairs a repository with a cron expression for
// unattended dependency-update runs.
type ScheduledRepository struct {
	Repository string `yaml:"repository"` // "owner/repo"
	Cron       string `yaml:"cron"`       // standard 5-field cron expression
}
