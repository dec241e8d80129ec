// Package client consumes the bridge's HTTP surface from the agent side:
// blocking on the SSE event stream for the next query and probing health.
package client
