package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip feeds lines to a server and decodes every response line.
func roundTrip(t *testing.T, s *Server, lines ...string) []map[string]any {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, s.Run(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out))

	var responses []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp), line)
		responses = append(responses, resp)
	}
	return responses
}

func TestRun_Initialize(t *testing.T) {
	resps := roundTrip(t, newTestServer(t, nil), `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.Len(t, resps, 1)

	result := resps[0]["result"].(map[string]any)
	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "codecoach", info["name"])
	assert.Equal(t, Version, info["version"])
	assert.Equal(t, float64(1), resps[0]["id"])
}

func TestRun_ToolsList(t *testing.T) {
	resps := roundTrip(t, newTestServer(t, nil), `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`)
	require.Len(t, resps, 1)

	tools := resps[0]["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, 5)
	first := tools[0].(map[string]any)
	assert.Equal(t, "analyze_code", first["name"])
	assert.NotNil(t, first["inputSchema"])
}

func TestRun_ToolsCall(t *testing.T) {
	resps := roundTrip(t, newTestServer(t, nil),
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"analyze_code","arguments":{"code":"const x = 5"}}}`)
	require.Len(t, resps, 1)

	result := resps[0]["result"].(map[string]any)
	assert.Equal(t, false, result["isError"])
	text := result["content"].([]any)[0].(map[string]any)["text"].(string)

	var analysis map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &analysis))
	assert.Equal(t, "javascript", analysis["language"])
	assert.Len(t, analysis["warnings"], 1)
}

func TestRun_ToolErrors(t *testing.T) {
	resps := roundTrip(t, newTestServer(t, nil),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_progress"}}`,
	)
	require.Len(t, resps, 2)
	for _, r := range resps {
		result := r["result"].(map[string]any)
		assert.Equal(t, true, result["isError"])
	}
	text := resps[0]["result"].(map[string]any)["content"].([]any)[0].(map[string]any)["text"]
	assert.Equal(t, "unknown tool: nope", text)
}

func TestRun_ProtocolErrors(t *testing.T) {
	resps := roundTrip(t, newTestServer(t, nil),
		`not json`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":3,"method":"bogus"}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":"oops"}`,
	)
	require.Len(t, resps, 3)

	codes := []float64{}
	for _, r := range resps {
		codes = append(codes, r["error"].(map[string]any)["code"].(float64))
	}
	assert.Equal(t, []float64{-32700, -32601, -32602}, codes)
}

func TestRun_LongLine(t *testing.T) {
	code := strings.Repeat("let a = 1;\n", 10000)
	args, err := json.Marshal(map[string]any{"code": code})
	require.NoError(t, err)
	line := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"analyze_code","arguments":` + string(args) + `}}`
	require.Greater(t, len(line), 64*1024)

	resps := roundTrip(t, newTestServer(t, nil), line)
	require.Len(t, resps, 1)
	assert.Equal(t, false, resps[0]["result"].(map[string]any)["isError"])
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, w := bytes.NewBuffer(nil), bytes.NewBuffer(nil)
	assert.NoError(t, newTestServer(t, nil).Run(ctx, r, w))
}
