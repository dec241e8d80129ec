// Package tool provides the tool-dispatch registry for mcp-bridge.
//
// # Overview
//
// An orchestrating agent invokes named tools without knowing how each tool
// is hosted. The registry maps tool names to immutable Descriptors and
// routes each call to the transport matching the descriptor's kind:
//
//   - KindStdio: a subprocess-hosted MCP server, one fresh process per call
//   - KindHTTP: a statically configured REST endpoint
//
// # Discovery
//
// Initialize processes an ordered list of backend configs, classifying each
// by shape. A backend carrying a script is probed with one stdio discovery
// round-trip (spawn, handshake, tools/list, terminate); a backend carrying
// a host contributes descriptors straight from static config. Failure of
// one backend is logged and isolated; it never prevents registration of
// the others. Duplicate tool names are last-write-wins in backend order.
//
// # Calls
//
// Call looks up the descriptor and delegates:
//
//	result, err := registry.Call(ctx, "send_email", args)
//
// Results are normalized to a single envelope (textual content plus
// optional structured content) regardless of transport, so callers never
// branch on how a tool is hosted. A lookup miss fails fast with
// ErrUnknownTool. No retries happen at this layer.
//
// # Concurrency
//
// The name->descriptor map is built once by Initialize and read-only
// afterwards. Concurrent calls are fully independent: stdio calls share
// nothing beyond the read-only binding, and the HTTP transport is a plain
// stateless client.
package tool
