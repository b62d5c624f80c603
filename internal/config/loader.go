package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/depctl"
	projectConfigDir = ".depctl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the depctl configuration by layering default, user, and
// project settings, then applying environment overrides (HOST, PORT).
func LoadConfig() (DepctlConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. User-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// Log this error but don't fail; user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return DepctlConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	// 3. Project-specific configuration
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return DepctlConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, projectConfig)
		}
	}

	// 4. Environment overrides for the HTTP bind address
	if host := os.Getenv("HOST"); host != "" {
		config.Server.Host = host
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return DepctlConfig{}, fmt.Errorf("invalid PORT value %q: %w", portStr, err)
		}
		config.Server.Port = port
	}

	if err := config.Validate(); err != nil {
		return DepctlConfig{}, err
	}

	return config, nil
}

// Credential returns the GitHub token from the configured environment
// variable. An empty string means the credential is not configured.
func (c DepctlConfig) Credential() string {
	return os.Getenv(c.MCPServer.TokenEnvVar)
}

// Validate checks the merged configuration for values the supervisor cannot
// work with.
func (c DepctlConfig) Validate() error {
	var errors ValidationErrors

	if c.MCPServer.Image == "" {
		errors.Add("mcpServer.image", "is required")
	}
	if c.MCPServer.TokenEnvVar == "" {
		errors.Add("mcpServer.tokenEnvVar", "is required")
	}
	if c.MCPServer.MaxReconnectAttempts < 1 {
		errors.Add("mcpServer.maxReconnectAttempts", "must be at least 1")
	}
	if c.MCPServer.ReconnectBackoff < 0 {
		errors.Add("mcpServer.reconnectBackoff", "cannot be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors.Add("server.port", "must be between 1 and 65535")
	}
	for i, sched := range c.Schedules {
		if sched.Repository == "" {
			errors.Add(fmt.Sprintf("schedules[%d].repository", i), "is required")
		}
		if sched.Cron == "" {
			errors.Add(fmt.Sprintf("schedules[%d].cron", i), "is required")
		}
	}

	if errors.HasErrors() {
		return fmt.Errorf("invalid configuration:\n%s", errors.Error())
	}
	return nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a DepctlConfig from a YAML file.
func loadConfigFromFile(filePath string) (DepctlConfig, error) {
	var config DepctlConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return DepctlConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return DepctlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
func mergeConfigs(base, overlay DepctlConfig) DepctlConfig {
	merged := base

	if overlay.GlobalSettings.DefaultContainerRuntime != "" {
		merged.GlobalSettings.DefaultContainerRuntime = overlay.GlobalSettings.DefaultContainerRuntime
	}

	if overlay.MCPServer.Image != "" {
		merged.MCPServer.Image = overlay.MCPServer.Image
	}
	if overlay.MCPServer.TokenEnvVar != "" {
		merged.MCPServer.TokenEnvVar = overlay.MCPServer.TokenEnvVar
	}
	if overlay.MCPServer.MaxReconnectAttempts != 0 {
		merged.MCPServer.MaxReconnectAttempts = overlay.MCPServer.MaxReconnectAttempts
	}
	if overlay.MCPServer.ReconnectBackoff != 0 {
		merged.MCPServer.ReconnectBackoff = overlay.MCPServer.ReconnectBackoff
	}
	if overlay.MCPServer.StartupTimeout != 0 {
		merged.MCPServer.StartupTimeout = overlay.MCPServer.StartupTimeout
	}

	if overlay.Server.Host != "" {
		merged.Server.Host = overlay.Server.Host
	}
	if overlay.Server.Port != 0 {
		merged.Server.Port = overlay.Server.Port
	}

	// Schedules are replaced wholesale; merging entries from different layers
	// would make it impossible to disable an inherited schedule.
	if overlay.Schedules != nil {
		merged.Schedules = overlay.Schedules
	}

	return merged
}
