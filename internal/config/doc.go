// Package config handles configuration loading for mcp-bridge.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from BRIDGE_CONFIG environment variable
//  2. ~/.config/mcp-bridge/bridge.yaml (XDG_CONFIG_HOME respected)
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	backends:
//	  - host: "${GMAIL_SERVICE_URL}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "127.0.0.1:8081"   # webhook ingest + SSE stream
//
// Event ledger (optional, empty path disables persistence):
//
//	database:
//	  path: "/var/lib/mcp-bridge/events.db"
//
// Tool backends, classified by shape:
//
//	backends:
//	  - script: "mcp_server_gsheet.py"   # stdio MCP server
//	    cwd: "/opt/agent"
//	    command: "python3"
//	  - host: "http://127.0.0.1:8082"    # static HTTP service
//	    name: "gmail"
//	    tools:
//	      - name: "send_email"
//	        endpoint: "/send_email"
//	        method: "POST"
//
// Agent trigger (optional command run per accepted webhook):
//
//	trigger:
//	  command: ["uv", "run", "agent.py"]
//	  dir: "/opt/agent"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
