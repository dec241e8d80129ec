// ABOUTME: Stdio MCP client spawning one isolated subprocess per operation
// ABOUTME: Speaks JSON-RPC 2.0 over newline-delimited stdin/stdout frames

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
	"os/exec"
	"strings"
	"time"

	"github.com/2389/mcp-bridge/internal/tool"
)

// protocolVersion is the MCP revision we negotiate with backends.
const protocolVersion = "2025-03-26"

// shutdownGrace is how long a backend gets to exit after stdin closes
// before it is killed.
const shutdownGrace = 3 * time.Second

// ErrToolFailed indicates the backend executed the call but reported a
// tool-level failure (isError in the result).
var ErrToolFailed = errors.New("tool call failed")

// JSON-RPC 2.0 wire types

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// MCP method payloads

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type listToolsResult struct {
	Tools []tool.Info `json:"tools"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type callToolResult struct {
	Content           []contentBlock  `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

// Client performs one-shot MCP operations against subprocess-hosted
// backends. Every operation spawns a fresh subprocess, completes the
// initialize handshake, performs the request, and tears the process down.
// There is no pooling: a crashing or hanging backend cannot leak state
// into subsequent calls.
type Client struct {
	logger *slog.Logger
}

// NewClient creates a stdio MCP client. Pass nil logger for default.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{logger: logger.With("component", "mcp_client")}
}

// ListTools performs one discovery round-trip: spawn, handshake,
// tools/list, terminate.
func (c *Client) ListTools(ctx context.Context, binding tool.StdioBinding) ([]tool.Info, error) {
	var infos []tool.Info
	err := c.withSession(ctx, binding, func(s *session) error {
		raw, err := s.call(ctx, "tools/list", nil)
		if err != nil {
			return err
		}
		var res listToolsResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("decoding tools/list result: %w", err)
		}
		infos = res.Tools
		return nil
	})
	return infos, err
}

// CallTool invokes a single tool and normalizes the response into the
// shared result envelope.
func (c *Client) CallTool(ctx context.Context, binding tool.StdioBinding, name string, args json.RawMessage) (*tool.Result, error) {
	var out *tool.Result
	err := c.withSession(ctx, binding, func(s *session) error {
		raw, err := s.call(ctx, "tools/call", callToolParams{Name: name, Arguments: args})
		if err != nil {
			return err
		}
		var res callToolResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("decoding tools/call result: %w", err)
		}
		text := joinText(res.Content)
		if res.IsError {
			return fmt.Errorf("%w: %s", ErrToolFailed, text)
		}
		out = &tool.Result{
			Content:    tool.Content{Text: text},
			Structured: res.StructuredContent,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withSession runs fn inside a scoped subprocess session. The subprocess
// is reaped on every exit path: context cancellation kills it via
// CommandContext, a normal return closes stdin and waits, and a backend
// that ignores stdin closure is killed after shutdownGrace.
func (c *Client) withSession(ctx context.Context, binding tool.StdioBinding, fn func(*session) error) error {
	cmd := exec.CommandContext(ctx, binding.Command, binding.Args...)
	cmd.Dir = binding.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("opening stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	script := strings.Join(binding.Args, " ")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting backend %q: %w", script, err)
	}

	s := &session{stdin: stdin, out: bufio.NewReader(stdout)}

	defer func() {
		stdin.Close()
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			cmd.Process.Kill()
			<-done
		}
		// Wait has returned, so the stderr buffer is quiescent.
		if tail := strings.TrimSpace(stderr.String()); tail != "" {
			c.logger.Debug("backend stderr", "script", script, "output", tail)
		}
	}()

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("backend %q handshake: %w", script, err)
	}
	return fn(s)
}

// session is the per-subprocess protocol state: the pipes and a request
// ID counter. It is never shared between invocations.
type session struct {
	stdin  io.WriteCloser
	out    *bufio.Reader
	nextID int64
}

// initialize completes the MCP handshake: an initialize request followed
// by the initialized notification.
func (s *session) initialize(ctx context.Context) error {
	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: "mcp-bridge", Version: "1.0.0"},
	}
	if _, err := s.call(ctx, "initialize", params); err != nil {
		return err
	}
	return s.send(request{JSONRPC: "2.0", Method: "notifications/initialized"})
}

// call sends one request and blocks until the response with a matching ID
// arrives. Frames the backend sends on its own initiative are skipped.
func (s *session) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	s.nextID++
	id := s.nextID

	if err := s.send(request{JSONRPC: "2.0", ID: &id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("sending %s request: %w", method, err)
	}

	for {
		line, readErr := s.out.ReadBytes('\n')
		frame := bytes.TrimSpace(line)
		if len(frame) > 0 {
			var resp response
			if err := json.Unmarshal(frame, &resp); err != nil {
				return nil, fmt.Errorf("invalid frame from backend: %w", err)
			}
			if resp.ID != nil && *resp.ID == id {
				if resp.Error != nil {
					return nil, fmt.Errorf("%s: %w", method, resp.Error)
				}
				return resp.Result, nil
			}
			// Server-initiated request or notification: not ours, skip.
		}
		if readErr != nil {
			// A cancelled context kills the subprocess, which surfaces
			// here as EOF; report the cancellation instead.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("reading %s response: %w", method, readErr)
		}
	}
}

// send writes one newline-delimited JSON frame to the backend's stdin.
func (s *session) send(req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = s.stdin.Write(data)
	return err
}

// joinText concatenates the text of all textual content blocks.
func joinText(blocks []contentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" || b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
