// ABOUTME: Tests for configuration loading, env expansion, and validation
// ABOUTME: Covers backend shape parsing, defaults, and invalid configs

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:9090"
database:
  path: "/tmp/events.db"
logging:
  level: "debug"
  format: "json"
backends:
  - script: "mcp_server_gsheet.py"
    cwd: "/opt/agent"
    command: "python3"
  - host: "http://127.0.0.1:8082"
    name: "gmail"
    description: "Gmail service"
    tools:
      - name: "send_email"
        endpoint: "/send_email"
        method: "POST"
        description: "Send an email"
        parameters:
          type: object
trigger:
  command: ["uv", "run", "agent.py"]
  dir: "/opt/agent"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/events.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, "mcp_server_gsheet.py", cfg.Backends[0].Script)
	assert.Equal(t, "python3", cfg.Backends[0].Command)
	assert.Equal(t, "http://127.0.0.1:8082", cfg.Backends[1].Host)
	require.Len(t, cfg.Backends[1].Tools, 1)
	assert.Equal(t, "send_email", cfg.Backends[1].Tools[0].Name)
	assert.Equal(t, "/send_email", cfg.Backends[1].Tools[0].Endpoint)
	assert.Equal(t, "object", cfg.Backends[1].Tools[0].Parameters["type"])

	assert.Equal(t, []string{"uv", "run", "agent.py"}, cfg.Trigger.Command)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
backends: []
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8081", cfg.Server.HTTPAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.Database.Path)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("BRIDGE_TEST_HOST", "http://gmail.internal:8082")

	path := writeConfig(t, `
backends:
  - host: "${BRIDGE_TEST_HOST}"
    tools:
      - name: "send_email"
        endpoint: "/send_email"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Backends, 1)
	assert.Equal(t, "http://gmail.internal:8082", cfg.Backends[0].Host)
}

func TestLoad_UnsetEnvExpandsToEmpty(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "${BRIDGE_TEST_UNSET_VAR}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "backends: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BackendWithBothShapesIsNotFatal(t *testing.T) {
	// Shape conflicts are resolved at registration time (script wins);
	// a malformed entry must never abort loading its siblings.
	path := writeConfig(t, `
backends:
  - script: "server.py"
    host: "http://127.0.0.1:8082"
  - script: "healthy.py"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, "healthy.py", cfg.Backends[1].Script)
}

func TestValidate_TriggerDirWithoutCommand(t *testing.T) {
	path := writeConfig(t, `
trigger:
  dir: "/opt/agent"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger.dir requires trigger.command")
}
