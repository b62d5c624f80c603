// Package config provides configuration management for depctl.
//
// Configuration is loaded and merged in the following order, with later
// sources overriding earlier ones:
//
//  1. Default configuration (embedded in the binary): works out of the box
//     against ghcr.io/github/github-mcp-server.
//
//  2. User configuration (~/.config/depctl/config.yaml): personal settings
//     that apply to every project.
//
//  3. Project configuration (./.depctl/config.yaml): per-repository
//     settings, shareable via version control.
//
//  4. Environment overrides: HOST and PORT for the HTTP bind address. The
//     GitHub credential itself is never part of a config file; it is read
//     from the environment variable named by mcpServer.tokenEnvVar.
//
// Example config.yaml:
//
//	globalSettings:
//	  defaultContainerRuntime: docker
//	mcpServer:
//	  image: ghcr.io/github/github-mcp-server
//	  maxReconnectAttempts: 3
//	  reconnectBackoff: 1s
//	server:
//	  port: 8000
//	schedules:
//	  - repository: acme/widgets
//	    cron: "0 3 * * 1"
package config
