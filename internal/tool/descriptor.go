// ABOUTME: Immutable tool descriptors binding a tool name to its transport
// ABOUTME: Defines the normalized call result envelope shared by all transports

package tool

import "encoding/json"

// Kind identifies the transport used to reach a tool's backend.
type Kind int

const (
	// KindStdio marks a tool hosted by a subprocess MCP server.
	KindStdio Kind = iota + 1
	// KindHTTP marks a tool backed by a statically configured HTTP endpoint.
	KindHTTP
)

// String returns the lowercase transport name.
func (k Kind) String() string {
	switch k {
	case KindStdio:
		return "stdio"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// StdioBinding holds the connection details for a subprocess-hosted backend.
type StdioBinding struct {
	Command string   // interpreter or executable
	Args    []string // typically the server script path
	Dir     string   // working directory for the subprocess
}

// HTTPBinding holds the connection details for a static HTTP backend.
type HTTPBinding struct {
	Host     string // base URL, e.g. "http://127.0.0.1:8082"
	Endpoint string // path, e.g. "/send_email"
	Method   string // "GET" or "POST"
}

// Descriptor is the registry's immutable record for one callable tool.
// Exactly one of Stdio or HTTP is set, matching Kind; the binding is
// resolved once at registration time, never re-inferred per call.
type Descriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON schema for the tool's arguments, opaque to the registry
	Kind        Kind

	Stdio *StdioBinding
	HTTP  *HTTPBinding
}

// Info describes a tool as reported by a backend during discovery.
type Info struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Content is the mandatory textual part of a call result.
type Content struct {
	Text string `json:"text"`
}

// Result is the normalized call envelope returned by every transport.
// Callers never branch on which transport produced it.
type Result struct {
	Content    Content         `json:"content"`
	Structured json.RawMessage `json:"structured,omitempty"`
}
