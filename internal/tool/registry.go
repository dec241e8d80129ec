// ABOUTME: Tool registry discovering backends and routing calls by descriptor kind
// ABOUTME: Classifies backend configs by shape with per-backend failure isolation

package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/2389/mcp-bridge/internal/config"
)

// ErrUnknownTool indicates the requested tool name is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// defaultInterpreter runs backend scripts that don't name a command,
// matching the original deployment where backends are Python MCP servers.
const defaultInterpreter = "python3"

// StdioTransport performs discovery and calls against subprocess-hosted
// backends. Each operation spawns a fresh subprocess; implementations share
// no mutable state between invocations.
type StdioTransport interface {
	ListTools(ctx context.Context, binding StdioBinding) ([]Info, error)
	CallTool(ctx context.Context, binding StdioBinding, name string, args json.RawMessage) (*Result, error)
}

// HTTPTransport performs single-request calls against static HTTP backends.
type HTTPTransport interface {
	Call(ctx context.Context, binding HTTPBinding, name string, args json.RawMessage) (*Result, error)
}

// Registry maps tool names to descriptors and routes calls to the matching
// transport. The map is built by Initialize and read-only afterwards; a
// repeated Initialize rebuilds it from scratch.
type Registry struct {
	stdio  StdioTransport
	http   HTTPTransport
	logger *slog.Logger

	mu    sync.RWMutex
	tools map[string]*Descriptor
	order []string // names in first-registration order
}

// NewRegistry creates a registry routing stdio calls through stdioT and HTTP
// calls through httpT. Pass nil logger for default.
func NewRegistry(stdioT StdioTransport, httpT HTTPTransport, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		stdio:  stdioT,
		http:   httpT,
		logger: logger.With("component", "registry"),
		tools:  make(map[string]*Descriptor),
	}
}

// Initialize discovers tools from the given backend configs, in order.
// A backend that fails discovery is logged and skipped; it never aborts
// registration of the remaining backends. Duplicate tool names are
// last-write-wins in backend order.
func (r *Registry) Initialize(ctx context.Context, backends []config.Backend) {
	tools := make(map[string]*Descriptor)
	var order []string

	register := func(d *Descriptor) {
		if _, exists := tools[d.Name]; exists {
			// Replacement keeps the name's first-insertion position.
			r.logger.Warn("tool name already registered, replacing",
				"tool_name", d.Name,
				"transport", d.Kind.String())
			tools[d.Name] = d
			return
		}
		tools[d.Name] = d
		order = append(order, d.Name)
	}

	for i, backend := range backends {
		switch {
		case backend.Script != "":
			r.discoverStdioBackend(ctx, backend, register)
		case backend.Host != "":
			r.registerHTTPBackend(backend, register)
		default:
			r.logger.Warn("skipping backend config lacking script or host", "index", i)
		}
	}

	r.mu.Lock()
	r.tools = tools
	r.order = order
	r.mu.Unlock()

	r.logger.Info("registry initialized",
		"backend_count", len(backends),
		"tool_count", len(order))
}

// discoverStdioBackend performs one discovery round-trip against a
// subprocess backend: spawn, handshake, tools/list, terminate.
func (r *Registry) discoverStdioBackend(ctx context.Context, backend config.Backend, register func(*Descriptor)) {
	binding := StdioBinding{
		Command: backend.Command,
		Args:    []string{backend.Script},
		Dir:     backend.Cwd,
	}
	if binding.Command == "" {
		binding.Command = defaultInterpreter
	}

	r.logger.Info("scanning tools from stdio backend",
		"script", backend.Script,
		"cwd", binding.Dir)

	infos, err := r.stdio.ListTools(ctx, binding)
	if err != nil {
		r.logger.Warn("stdio backend discovery failed, skipping",
			"script", backend.Script,
			"error", err)
		return
	}

	for _, info := range infos {
		register(&Descriptor{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  info.InputSchema,
			Kind:        KindStdio,
			Stdio:       &binding,
		})
	}

	r.logger.Info("stdio backend registered",
		"script", backend.Script,
		"tool_count", len(infos))
}

// registerHTTPBackend records descriptors for a static HTTP backend.
// Tools are taken from config with no liveness probe.
func (r *Registry) registerHTTPBackend(backend config.Backend, register func(*Descriptor)) {
	label := backend.Name
	if label == "" {
		label = backend.Host
	}

	if len(backend.Tools) == 0 {
		r.logger.Warn("http backend has no tools defined, skipping", "backend", label)
		return
	}

	registered := 0
	for _, entry := range backend.Tools {
		if entry.Name == "" || entry.Endpoint == "" {
			r.logger.Warn("invalid http tool entry, requires name and endpoint",
				"backend", label,
				"tool_name", entry.Name,
				"endpoint", entry.Endpoint)
			continue
		}

		method := strings.ToUpper(entry.Method)
		if method == "" {
			method = "POST"
		}
		if method != "GET" && method != "POST" {
			r.logger.Warn("http tool entry has unsupported method, skipping",
				"backend", label,
				"tool_name", entry.Name,
				"method", entry.Method)
			continue
		}

		description := entry.Description
		if description == "" {
			description = backend.Description
		}

		var schema json.RawMessage
		if entry.Parameters != nil {
			data, err := json.Marshal(entry.Parameters)
			if err != nil {
				r.logger.Warn("http tool entry has unencodable parameters, skipping",
					"backend", label,
					"tool_name", entry.Name,
					"error", err)
				continue
			}
			schema = data
		}

		register(&Descriptor{
			Name:        entry.Name,
			Description: description,
			Parameters:  schema,
			Kind:        KindHTTP,
			HTTP: &HTTPBinding{
				Host:     backend.Host,
				Endpoint: entry.Endpoint,
				Method:   method,
			},
		})
		registered++
	}

	r.logger.Info("http backend registered",
		"backend", label,
		"tool_count", registered)
}

// Call invokes the named tool with the given JSON arguments and returns
// the normalized result envelope. Returns ErrUnknownTool for a lookup miss.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (*Result, error) {
	r.mu.RLock()
	desc := r.tools[name]
	r.mu.RUnlock()

	if desc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	switch desc.Kind {
	case KindStdio:
		return r.stdio.CallTool(ctx, *desc.Stdio, name, args)
	case KindHTTP:
		return r.http.Call(ctx, *desc.HTTP, name, args)
	default:
		return nil, fmt.Errorf("tool %q has unsupported transport kind %d", name, desc.Kind)
	}
}

// Get returns the descriptor for a tool name, or nil if not registered.
func (r *Registry) Get(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns a snapshot of all descriptors in registration order.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}
