package config

import "time"

const (
	// DefaultImage is the GitHub MCP server image run by the supervisor.
	DefaultImage = "ghcr.io/github/github-mcp-server"

	// DefaultTokenEnvVar is the environment variable the credential is read
	// from and injected into the container under.
	DefaultTokenEnvVar = "GITHUB_PERSONAL_ACCESS_TOKEN"
)

// GetDefaultConfig returns the built-in configuration. It is complete enough
// that depctl works out-of-the-box against the GitHub MCP server, needing
// only the token environment variable to be set.
func GetDefaultConfig() DepctlConfig {
	return DepctlConfig{
		GlobalSettings: GlobalSettings{
			DefaultContainerRuntime: "docker",
		},
		MCPServer: MCPServerConfig{
			Image:                DefaultImage,
			TokenEnvVar:          DefaultTokenEnvVar,
			MaxReconnectAttempts: 3,
			ReconnectBackoff:     time.Second,
			StartupTimeout:       60 * time.Second,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
	}
}
