package supervisor

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the tagged outcome of a tool call. Data carries either
// structured data (when the server returned parseable JSON) or the raw
// response text.
type Result struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success builds a success result carrying the given payload.
func Success(data any) Result {
	return Result{Status: StatusSuccess, Data: data}
}

// Errorf builds an error result with a formatted message.
func Errorf(format string, args ...interface{}) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// IsSuccess reports whether the result is tagged success.
func (r Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// decodeResult converts an MCP call result into a Result.
//
// A response with no content parts is a failure ("no response") distinct
// from a malformed payload: text that does not parse as JSON degrades to the
// raw string as a success, never an error.
func decodeResult(res *mcp.CallToolResult) Result {
	if res == nil || len(res.Content) == 0 {
		return Errorf("no response from MCP server")
	}

	part := res.Content[0]
	textContent, ok := mcp.AsTextContent(part)
	if !ok {
		// Non-text payload; hand the structured part through as-is.
		if res.IsError {
			return Errorf("tool reported an error")
		}
		return Success(part)
	}

	if res.IsError {
		return Errorf("%s", textContent.Text)
	}

	var decoded any
	if err := json.Unmarshal([]byte(textContent.Text), &decoded); err == nil {
		return Success(decoded)
	}
	return Success(textContent.Text)
}
