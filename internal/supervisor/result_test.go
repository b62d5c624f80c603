package supervisor

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResultNilResponse(t *testing.T) {
	result := decodeResult(nil)
	assert.False(t, result.IsSuccess())
	assert.Contains(t, result.Message, "no response from MCP server")
}

func TestDecodeResultEmptyContent(t *testing.T) {
	result := decodeResult(&mcp.CallToolResult{})
	assert.False(t, result.IsSuccess())
	assert.Contains(t, result.Message, "no response from MCP server")
}

func TestDecodeResultJSONPayload(t *testing.T) {
	res := mcp.NewToolResultText(`{"number": 42, "state": "open"}`)

	result := decodeResult(res)
	require.True(t, result.IsSuccess())

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), data["number"])
	assert.Equal(t, "open", data["state"])
}

func TestDecodeResultPlainTextDegradesToRawString(t *testing.T) {
	res := mcp.NewToolResultText("pull request created")

	result := decodeResult(res)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "pull request created", result.Data)
}

func TestDecodeResultToolError(t *testing.T) {
	res := mcp.NewToolResultText("repository not found")
	res.IsError = true

	result := decodeResult(res)
	assert.False(t, result.IsSuccess())
	assert.Equal(t, "repository not found", result.Message)
}

func TestResultHelpers(t *testing.T) {
	ok := Success(map[string]interface{}{"a": 1})
	assert.Equal(t, StatusSuccess, ok.Status)
	assert.True(t, ok.IsSuccess())

	bad := Errorf("boom: %d", 7)
	assert.Equal(t, StatusError, bad.Status)
	assert.Equal(t, "boom: 7", bad.Message)
	assert.False(t, bad.IsSuccess())
}
