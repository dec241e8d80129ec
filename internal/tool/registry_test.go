// ABOUTME: Tests for registry initialization, classification, and call routing
// ABOUTME: Covers last-write-wins, backend failure isolation, and unknown tools

package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mcp-bridge/internal/config"
)

// fakeStdio serves canned discovery results keyed by script path.
type fakeStdio struct {
	toolsByScript map[string][]Info
	errByScript   map[string]error
	calls         []string // tool names passed to CallTool
}

func (f *fakeStdio) ListTools(_ context.Context, binding StdioBinding) ([]Info, error) {
	script := binding.Args[0]
	if err := f.errByScript[script]; err != nil {
		return nil, err
	}
	return f.toolsByScript[script], nil
}

func (f *fakeStdio) CallTool(_ context.Context, _ StdioBinding, name string, _ json.RawMessage) (*Result, error) {
	f.calls = append(f.calls, name)
	return &Result{Content: Content{Text: "stdio:" + name}}, nil
}

type fakeHTTP struct {
	calls []HTTPBinding
}

func (f *fakeHTTP) Call(_ context.Context, binding HTTPBinding, name string, _ json.RawMessage) (*Result, error) {
	f.calls = append(f.calls, binding)
	return &Result{Content: Content{Text: "http:" + name}}, nil
}

func TestRegistry_InitializeClassifiesByShape(t *testing.T) {
	stdio := &fakeStdio{
		toolsByScript: map[string][]Info{
			"sheets.py": {
				{Name: "read_cell", Description: "read one cell"},
				{Name: "write_cell", Description: "write one cell"},
			},
		},
	}
	r := NewRegistry(stdio, &fakeHTTP{}, nil)

	r.Initialize(context.Background(), []config.Backend{
		{Script: "sheets.py", Cwd: "/opt/agent"},
		{Host: "http://127.0.0.1:8082", Name: "gmail", Tools: []config.ToolEntry{
			{Name: "send_email", Endpoint: "/send_email"},
		}},
		{}, // neither script nor host: skipped with a warning
	})

	descs := r.List()
	require.Len(t, descs, 3)
	assert.Equal(t, "read_cell", descs[0].Name)
	assert.Equal(t, KindStdio, descs[0].Kind)
	assert.Equal(t, "write_cell", descs[1].Name)
	assert.Equal(t, "send_email", descs[2].Name)
	assert.Equal(t, KindHTTP, descs[2].Kind)
	require.NotNil(t, descs[2].HTTP)
	assert.Equal(t, "POST", descs[2].HTTP.Method)
}

func TestRegistry_DefaultInterpreter(t *testing.T) {
	stdio := &fakeStdio{toolsByScript: map[string][]Info{"srv.py": {{Name: "t"}}}}
	r := NewRegistry(stdio, &fakeHTTP{}, nil)

	r.Initialize(context.Background(), []config.Backend{{Script: "srv.py"}})

	desc := r.Get("t")
	require.NotNil(t, desc)
	assert.Equal(t, "python3", desc.Stdio.Command)
}

func TestRegistry_LastWriteWins(t *testing.T) {
	stdio := &fakeStdio{
		toolsByScript: map[string][]Info{
			"a.py": {{Name: "dup", Description: "from a"}},
			"b.py": {{Name: "dup", Description: "from b"}},
		},
	}
	r := NewRegistry(stdio, &fakeHTTP{}, nil)

	r.Initialize(context.Background(), []config.Backend{
		{Script: "a.py"},
		{Script: "b.py"},
	})

	descs := r.List()
	require.Len(t, descs, 1)
	assert.Equal(t, "from b", descs[0].Description)
	assert.Equal(t, []string{"b.py"}, descs[0].Stdio.Args)
}

func TestRegistry_ReplacedNameKeepsListPosition(t *testing.T) {
	stdio := &fakeStdio{
		toolsByScript: map[string][]Info{
			"a.py": {{Name: "dup", Description: "from a"}, {Name: "alpha"}},
			"b.py": {{Name: "beta"}, {Name: "dup", Description: "from b"}},
		},
	}
	r := NewRegistry(stdio, &fakeHTTP{}, nil)

	r.Initialize(context.Background(), []config.Backend{
		{Script: "a.py"},
		{Script: "b.py"},
	})

	descs := r.List()
	require.Len(t, descs, 3)
	assert.Equal(t, "dup", descs[0].Name, "replaced name stays at its first-insertion position")
	assert.Equal(t, "from b", descs[0].Description, "later registration wins the descriptor")
	assert.Equal(t, "alpha", descs[1].Name)
	assert.Equal(t, "beta", descs[2].Name)
}

func TestRegistry_ScriptTakesPrecedenceOverHost(t *testing.T) {
	stdio := &fakeStdio{toolsByScript: map[string][]Info{"both.py": {{Name: "t"}}}}
	r := NewRegistry(stdio, &fakeHTTP{}, nil)

	// A backend carrying both shapes is classified as stdio; the host and
	// its static tool entries are ignored.
	r.Initialize(context.Background(), []config.Backend{
		{Script: "both.py", Host: "http://127.0.0.1:8082", Tools: []config.ToolEntry{
			{Name: "shadow", Endpoint: "/shadow"},
		}},
	})

	descs := r.List()
	require.Len(t, descs, 1)
	assert.Equal(t, "t", descs[0].Name)
	assert.Equal(t, KindStdio, descs[0].Kind)
	assert.Nil(t, r.Get("shadow"))
}

func TestRegistry_FailedBackendIsIsolated(t *testing.T) {
	stdio := &fakeStdio{
		toolsByScript: map[string][]Info{"good.py": {{Name: "healthy"}}},
		errByScript:   map[string]error{"bad.py": errors.New("spawn failed")},
	}
	r := NewRegistry(stdio, &fakeHTTP{}, nil)

	r.Initialize(context.Background(), []config.Backend{
		{Script: "bad.py"},
		{Script: "good.py"},
	})

	descs := r.List()
	require.Len(t, descs, 1)
	assert.Equal(t, "healthy", descs[0].Name)
}

func TestRegistry_HTTPBackendEntryValidation(t *testing.T) {
	r := NewRegistry(&fakeStdio{}, &fakeHTTP{}, nil)

	r.Initialize(context.Background(), []config.Backend{
		{Host: "http://one", Tools: []config.ToolEntry{
			{Name: "", Endpoint: "/x"},                     // missing name: skipped
			{Name: "no_endpoint"},                          // missing endpoint: skipped
			{Name: "bad", Endpoint: "/x", Method: "PATCH"}, // unsupported method: skipped
			{Name: "ok", Endpoint: "/ok", Method: "get"},
		}},
		{Host: "http://empty"}, // no tools: backend skipped entirely
	})

	descs := r.List()
	require.Len(t, descs, 1)
	assert.Equal(t, "ok", descs[0].Name)
	assert.Equal(t, "GET", descs[0].HTTP.Method)
}

func TestRegistry_HTTPDescriptionFallsBackToBackend(t *testing.T) {
	r := NewRegistry(&fakeStdio{}, &fakeHTTP{}, nil)

	r.Initialize(context.Background(), []config.Backend{
		{Host: "http://one", Description: "backend description", Tools: []config.ToolEntry{
			{Name: "a", Endpoint: "/a"},
			{Name: "b", Endpoint: "/b", Description: "own description"},
		}},
	})

	assert.Equal(t, "backend description", r.Get("a").Description)
	assert.Equal(t, "own description", r.Get("b").Description)
}

func TestRegistry_CallRoutesByKind(t *testing.T) {
	stdio := &fakeStdio{toolsByScript: map[string][]Info{"s.py": {{Name: "local"}}}}
	httpT := &fakeHTTP{}
	r := NewRegistry(stdio, httpT, nil)

	r.Initialize(context.Background(), []config.Backend{
		{Script: "s.py"},
		{Host: "http://h", Tools: []config.ToolEntry{{Name: "remote", Endpoint: "/r"}}},
	})

	res, err := r.Call(context.Background(), "local", nil)
	require.NoError(t, err)
	assert.Equal(t, "stdio:local", res.Content.Text)
	assert.Equal(t, []string{"local"}, stdio.calls)

	res, err = r.Call(context.Background(), "remote", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, "http:remote", res.Content.Text)
	require.Len(t, httpT.calls, 1)
	assert.Equal(t, "/r", httpT.calls[0].Endpoint)
}

func TestRegistry_CallUnknownTool(t *testing.T) {
	r := NewRegistry(&fakeStdio{}, &fakeHTTP{}, nil)
	r.Initialize(context.Background(), nil)

	_, err := r.Call(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistry_ReinitializeRebuilds(t *testing.T) {
	stdio := &fakeStdio{
		toolsByScript: map[string][]Info{
			"a.py": {{Name: "alpha"}},
			"b.py": {{Name: "beta"}},
		},
	}
	r := NewRegistry(stdio, &fakeHTTP{}, nil)

	r.Initialize(context.Background(), []config.Backend{{Script: "a.py"}})
	require.NotNil(t, r.Get("alpha"))

	r.Initialize(context.Background(), []config.Backend{{Script: "b.py"}})
	assert.Nil(t, r.Get("alpha"))
	assert.NotNil(t, r.Get("beta"))
}
