package supervisor

// State is the connection state of the supervised MCP server. It is a closed
// set: the supervisor is the only writer, and every transition happens while
// the operation lock is held.
type State string

const (
	StateStopped      State = "stopped"
	StateStarting     State = "starting"
	StateRunning      State = "running"
	StateError        State = "error"
	StateReconnecting State = "reconnecting"
)

// Info is an immutable snapshot of the supervisor for status surfaces.
// When State is StateRunning a live session exists and ToolCount reflects
// the tool list negotiated at the last successful start; when State is
// StateStopped or StateError no session exists.
type Info struct {
	State             State  `json:"status"`
	ContainerID       string `json:"container_id,omitempty"`
	ToolCount         int    `json:"tools_count"`
	LastError         string `json:"error_message,omitempty"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
}
