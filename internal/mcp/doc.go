// Package mcp implements a stdio Model Context Protocol client for
// subprocess-hosted tool backends.
//
// # Overview
//
// Each operation (discovery or tool call) is one-shot: the client spawns
// the backend process, completes the JSON-RPC 2.0 initialize handshake,
// performs exactly one request, and tears the process down. Per-call
// isolation means a crashing or hanging backend cannot corrupt shared
// state or leak resources into subsequent calls; the cost is full process
// startup latency per call.
//
// # Protocol
//
// Frames are newline-delimited JSON over the subprocess's stdin/stdout:
//
//	-> {"jsonrpc":"2.0","id":1,"method":"initialize","params":{...}}
//	<- {"jsonrpc":"2.0","id":1,"result":{...}}
//	-> {"jsonrpc":"2.0","method":"notifications/initialized"}
//	-> {"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":...}}
//	<- {"jsonrpc":"2.0","id":2,"result":{"content":[{"type":"text",...}]}}
//
// # Cancellation
//
// Sessions are bound to the caller's context: cancellation kills the
// subprocess, and the client reports the context error. No orphaned
// processes survive a cancelled call.
package mcp
