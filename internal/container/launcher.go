package container

import (
	"context"
	"fmt"

	"depctl/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
)

// Launcher spawns the MCP server container with its stdio streams attached
// as the protocol transport.
//
// The credential is injected strictly through the subprocess environment:
// the argument list carries only the *name* of the variable (`-e VAR`), and
// the runtime resolves its value from the environment the client process
// hands to it. The token value therefore never appears in the process table.
type Launcher struct {
	Runtime  Runtime
	TokenVar string
	Token    string
}

// NewLauncher builds a launcher for the given runtime and credential.
func NewLauncher(runtime Runtime, tokenVar, token string) *Launcher {
	return &Launcher{
		Runtime:  runtime,
		TokenVar: tokenVar,
		Token:    token,
	}
}

// runArgs builds the argv for the MCP server container: run in the
// foreground, auto-remove on exit, stdin attached for the duplex stream.
func (l *Launcher) runArgs() []string {
	return []string{"run", "--rm", "-i", "-e", l.TokenVar, l.Runtime.Image}
}

// env builds the subprocess environment carrying the credential.
func (l *Launcher) env() []string {
	return []string{fmt.Sprintf("%s=%s", l.TokenVar, l.Token)}
}

// Launch spawns the container and returns an MCP client speaking over its
// standard streams. The returned client owns the subprocess: closing it
// terminates the container on every exit path, so callers must Close it on
// any failure after a successful Launch.
func (l *Launcher) Launch(ctx context.Context) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := l.runArgs()
	logging.Debug("Container", "Launching %s %v", l.Runtime.Path, args)

	c, err := client.NewStdioMCPClient(l.Runtime.Path, l.env(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to launch MCP server container: %w", err)
	}

	return c, nil
}
