package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/logging"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/search"
	"github.com/rcliao/timeline/internal/timeline"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

const ProtocolVersion = "2024-11-05"

// MCPTransport handles JSON-RPC 2.0 communication over a line-delimited stream
type MCPTransport struct {
	reader  *bufio.Reader
	writer  io.Writer
	server  *MCPServer
	version string
	logger  *slog.Logger

	// guards writer
	mu sync.Mutex
}

// NewMCPTransport creates a transport reading requests from r and writing
// responses to w, normally stdin and stdout.
func NewMCPTransport(server *MCPServer, r io.Reader, w io.Writer, version string, logger *slog.Logger) *MCPTransport {
	return &MCPTransport{
		reader:  bufio.NewReader(r),
		writer:  w,
		server:  server,
		version: version,
		logger:  logging.OrDefault(logger),
	}
}

// Start serves requests until the client disconnects, sends exit, or ctx is
// cancelled.
func (t *MCPTransport) Start(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		for {
			line, err := t.reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("MCP transport stopped")
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				t.logger.Info("MCP client disconnected")
				return nil
			}
			return fmt.Errorf("failed to read request: %w", err)
		case line := <-lines:
			exit, err := t.serveLine(line)
			if err != nil {
				return err
			}
			if exit {
				return nil
			}
		}
	}
}

// serveLine handles one request with panic recovery. It reports whether the
// client asked the server to exit.
func (t *MCPTransport) serveLine(line []byte) (exit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("MCP transport: panic recovered", "panic", r)
			err = t.sendResponse(&JSONRPCResponse{
				JSONRPC: "2.0",
				Error: &JSONRPCError{
					Code:    InternalError,
					Message: "Internal server error",
				},
			})
		}
	}()

	response, exit := t.processRequest(line)
	if response == nil {
		return exit, nil
	}
	if err := t.sendResponse(response); err != nil {
		if strings.Contains(err.Error(), "broken pipe") || strings.Contains(err.Error(), "connection reset") {
			t.logger.Info("MCP client disconnected", "error", err)
			return true, nil
		}
		return false, err
	}
	return exit, nil
}

// processRequest processes a JSON-RPC request and returns a response, or nil
// for notifications.
func (t *MCPTransport) processRequest(data []byte) (*JSONRPCResponse, bool) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			Error: &JSONRPCError{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}, false
	}

	if req.JSONRPC != "2.0" {
		return errorResponse(req, InvalidRequest, "Invalid Request - JSON-RPC 2.0 required", nil), false
	}

	switch req.Method {
	case "initialize":
		return t.handleInitialize(req), false
	case "initialized", "notifications/initialized":
		return nil, false
	case "shutdown":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}, false
	case "exit":
		t.logger.Info("MCP transport: exit requested")
		return nil, true
	case "ping":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}, false
	case "tools/list":
		return t.handleToolsList(req), false
	case "tools/call":
		return t.handleToolCall(req), false
	case "resources/list":
		return t.handleResourcesList(req), false
	case "resources/read":
		return t.handleResourceRead(req), false
	}

	// Direct method calls
	result, err := t.server.HandleCommand(req.Method, req.Params)
	if err != nil {
		return errorResponse(req, errorCode(err), err.Error(), nil), false
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}, false
}

func errorResponse(req JSONRPCRequest, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// errorCode maps service errors onto JSON-RPC codes: bad input and rejected
// edits are the caller's to fix, anything else is ours.
func errorCode(err error) int {
	var graphErr *schedule.GraphError
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return MethodNotFound
	case errors.Is(err, ErrInvalidParams),
		errors.Is(err, domain.ErrInvalidTask),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrHasDependents),
		errors.Is(err, domain.ErrNoCurrentProject),
		errors.Is(err, domain.ErrAmbiguous),
		errors.Is(err, search.ErrAmbiguous),
		errors.Is(err, timeline.ErrEmptyTimeline),
		errors.As(err, &graphErr):
		return InvalidParams
	}
	return InternalError
}

// handleInitialize handles the MCP initialize request
func (t *MCPTransport) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	type InitParams struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo,omitempty"`
	}

	var params InitParams
	if req.Params != nil {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req, InvalidParams, "Invalid params", err.Error())
		}
	}
	t.logger.Info("MCP client connected",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol", params.ProtocolVersion,
	)

	result := map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{
				"listChanged": false,
			},
			"resources": map[string]interface{}{
				"subscribe":   false,
				"listChanged": false,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "timeline",
			"version": t.version,
		},
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// handleToolsList handles MCP tools list requests
func (t *MCPTransport) handleToolsList(req JSONRPCRequest) *JSONRPCResponse {
	list := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		list = append(list, map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		})
	}
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  map[string]interface{}{"tools": list},
	}
}

// handleToolCall runs a tool and wraps its result as MCP text content. Known
// result types are rendered as markdown, others as JSON.
func (t *MCPTransport) handleToolCall(req JSONRPCRequest) *JSONRPCResponse {
	type ToolCallParams struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}

	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req, InvalidParams, "Invalid params", err.Error())
	}

	tool, ok := lookupTool(params.Name)
	if !ok {
		return errorResponse(req, MethodNotFound, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}

	result, err := t.server.HandleCommand(tool.Method, params.Arguments)
	if err != nil {
		// tool failures are reported in-band so the model can read them
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]interface{}{
				"content": []map[string]interface{}{{"type": "text", "text": "Error: " + err.Error()}},
				"isError": true,
			},
		}
	}

	textContent, ok := FormatMarkdown(result)
	if !ok {
		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errorResponse(req, InternalError, "Failed to serialize result", err.Error())
		}
		textContent = string(resultJSON)
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": textContent,
				},
			},
		},
	}
}

type resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Method      string
}

var resources = []resource{
	{
		URI:         "timeline://projects",
		Name:        "All Projects",
		Description: "List of all timeline projects",
		MimeType:    "application/json",
		Method:      "timeline.project.list",
	},
	{
		URI:         "timeline://current",
		Name:        "Current Project",
		Description: "The current project",
		MimeType:    "application/json",
		Method:      "timeline.project.current",
	},
	{
		URI:         "timeline://schedule",
		Name:        "Schedule",
		Description: "Start and finish days of the current project's tasks",
		MimeType:    "text/markdown",
		Method:      "timeline.schedule",
	},
	{
		URI:         "timeline://simulation",
		Name:        "Simulation",
		Description: "Simulated day and per-task progress of the current project",
		MimeType:    "text/markdown",
		Method:      "timeline.sim.status",
	},
}

// handleResourcesList handles MCP resource list requests
func (t *MCPTransport) handleResourcesList(req JSONRPCRequest) *JSONRPCResponse {
	list := make([]map[string]interface{}, 0, len(resources))
	for _, r := range resources {
		list = append(list, map[string]interface{}{
			"uri":         r.URI,
			"name":        r.Name,
			"description": r.Description,
			"mimeType":    r.MimeType,
		})
	}
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  map[string]interface{}{"resources": list},
	}
}

// handleResourceRead handles MCP resource read requests
func (t *MCPTransport) handleResourceRead(req JSONRPCRequest) *JSONRPCResponse {
	type ResourceParams struct {
		URI string `json:"uri"`
	}

	var params ResourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req, InvalidParams, "Invalid params", err.Error())
	}

	var res *resource
	for i := range resources {
		if resources[i].URI == params.URI {
			res = &resources[i]
			break
		}
	}
	if res == nil {
		return errorResponse(req, InvalidParams, fmt.Sprintf("Unknown resource: %s", params.URI), nil)
	}

	result, err := t.server.HandleCommand(res.Method, nil)
	if err != nil {
		return errorResponse(req, errorCode(err), err.Error(), nil)
	}

	var text string
	if res.MimeType == "text/markdown" {
		text, _ = FormatMarkdown(result)
	} else {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errorResponse(req, InternalError, "Failed to serialize resource", err.Error())
		}
		text = string(data)
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"contents": []map[string]interface{}{
				{
					"uri":      res.URI,
					"mimeType": res.MimeType,
					"text":     text,
				},
			},
		},
	}
}

func (t *MCPTransport) sendResponse(response *JSONRPCResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
