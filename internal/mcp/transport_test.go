package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/timeline/internal/logging"
)

type rpcResponse struct {
	ID     interface{}     `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *JSONRPCError   `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func runSession(t *testing.T, requests ...string) []rpcResponse {
	t.Helper()

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(requests, "\n") + "\n")
	transport := NewMCPTransport(newTestServer(t), in, &out, "test", logging.Discard())
	require.NoError(t, transport.Start(context.Background()))

	var responses []rpcResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp rpcResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp), line)
		responses = append(responses, resp)
	}
	return responses
}

func TestMCPTransport_Session(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"timeline_project_create","arguments":{"name":"Kitchen","template":"renovation"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"timeline_schedule","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"timeline.task.update","params":{"task":"1","dependencies":["task-11"]}}`,
		`not json`,
		`{"jsonrpc":"2.0","id":6,"method":"nope"}`,
		`{"jsonrpc":"2.0","id":7,"method":"resources/read","params":{"uri":"timeline://simulation"}}`,
		`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"timeline_task_add","arguments":{"name":"","duration":1}}}`,
		`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"timeline_nope"}}`,
		`{"jsonrpc":"1.0","id":10,"method":"ping"}`,
		`{"jsonrpc":"2.0","method":"exit"}`,
		`{"jsonrpc":"2.0","id":11,"method":"ping"}`,
	)
	require.Len(t, responses, 11)

	// initialize
	var initResult struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &initResult))
	assert.Equal(t, ProtocolVersion, initResult.ProtocolVersion)
	assert.Equal(t, "timeline", initResult.ServerInfo.Name)
	assert.Equal(t, "test", initResult.ServerInfo.Version)

	// tools/list
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(responses[1].Result, &list))
	assert.Len(t, list.Tools, len(tools))

	// project create is returned as JSON
	var created toolResult
	require.NoError(t, json.Unmarshal(responses[2].Result, &created))
	require.Len(t, created.Content, 1)
	assert.Contains(t, created.Content[0].Text, `"name": "Kitchen"`)

	// schedule is returned as markdown
	var sched toolResult
	require.NoError(t, json.Unmarshal(responses[3].Result, &sched))
	assert.Contains(t, sched.Content[0].Text, "**Total duration:** 27 days")

	// cycle
	require.NotNil(t, responses[4].Error)
	assert.Equal(t, InvalidParams, responses[4].Error.Code)
	assert.Contains(t, responses[4].Error.Message, "dependency cycle")

	require.NotNil(t, responses[5].Error)
	assert.Equal(t, ParseError, responses[5].Error.Code)

	require.NotNil(t, responses[6].Error)
	assert.Equal(t, MethodNotFound, responses[6].Error.Code)

	var read struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(responses[7].Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "timeline://simulation", read.Contents[0].URI)
	assert.Contains(t, read.Contents[0].Text, "Day 0.0 of 27")

	var failed toolResult
	require.NoError(t, json.Unmarshal(responses[8].Result, &failed))
	assert.True(t, failed.IsError)
	assert.Contains(t, failed.Content[0].Text, "task name is required")

	require.NotNil(t, responses[9].Error)
	assert.Equal(t, MethodNotFound, responses[9].Error.Code)

	require.NotNil(t, responses[10].Error)
	assert.Equal(t, InvalidRequest, responses[10].Error.Code)
}

func TestMCPTransport_ResourcesList(t *testing.T) {
	responses := runSession(t, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	require.Len(t, responses, 1)

	var list struct {
		Resources []struct {
			URI string `json:"uri"`
		} `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &list))
	uris := make([]string, len(list.Resources))
	for i, r := range list.Resources {
		uris[i] = r.URI
	}
	assert.Equal(t, []string{"timeline://projects", "timeline://current", "timeline://schedule", "timeline://simulation"}, uris)
}

func TestMCPTransport_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a reader that never returns data
	r, w := io.Pipe()
	defer w.Close()
	transport := NewMCPTransport(newTestServer(t), r, &bytes.Buffer{}, "test", logging.Discard())
	assert.NoError(t, transport.Start(ctx))
}
