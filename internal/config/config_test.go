// ABOUTME: Tests for configuration loading, normalization, and validation.
// ABOUTME: Covers YAML parsing, env expansion, allowlist parsing, and the env fallback.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:9000"
auth:
  api_key: "secret"
n8n:
  base_url: "https://n8n.example.com/"
  api_key: "token"
  timeout: "15s"
  workflow_allowlist: "100, 200 , ,"
tracker:
  max_entries: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "secret", cfg.Auth.APIKey)
	assert.Equal(t, "https://n8n.example.com", cfg.N8N.BaseURL, "trailing slash must be stripped")
	assert.Equal(t, 15*time.Second, cfg.N8N.Timeout)
	assert.Equal(t, []string{"100", "200"}, cfg.N8N.WorkflowAllowlist)
	assert.Equal(t, 50, cfg.Tracker.MaxEntries)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  api_key: "secret"
n8n:
  base_url: "https://n8n.example.com"
  api_key: "token"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
	assert.Equal(t, DefaultTimeout, cfg.N8N.Timeout)
	assert.Equal(t, DefaultTrackerEntries, cfg.Tracker.MaxEntries)
	assert.Equal(t, DefaultRatePerMinute, cfg.Server.RatePerMinute)
	assert.Nil(t, cfg.N8N.WorkflowAllowlist)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_BRIDGE_N8N_KEY", "expanded-token")

	path := writeConfig(t, `
auth:
  api_key: "secret"
n8n:
  base_url: "https://n8n.example.com"
  api_key: "${TEST_BRIDGE_N8N_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-token", cfg.N8N.APIKey)
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing auth key",
			content: "n8n:\n  base_url: \"https://x\"\n  api_key: \"t\"\n",
			wantErr: "auth.api_key",
		},
		{
			name:    "missing base url",
			content: "auth:\n  api_key: \"s\"\nn8n:\n  api_key: \"t\"\n",
			wantErr: "n8n.base_url",
		},
		{
			name:    "missing n8n key",
			content: "auth:\n  api_key: \"s\"\nn8n:\n  base_url: \"https://x\"\n",
			wantErr: "n8n.api_key",
		},
		{
			name:    "bad timeout",
			content: "auth:\n  api_key: \"s\"\nn8n:\n  base_url: \"https://x\"\n  api_key: \"t\"\n  timeout: \"soon\"\n",
			wantErr: "n8n.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("MCP_API_KEY", "secret")
	t.Setenv("N8N_BASE_URL", "https://n8n.example.com/")
	t.Setenv("N8N_API_KEY", "token")
	t.Setenv("N8N_WORKFLOW_ALLOWLIST", "100, 200 , ,")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "2.5")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://n8n.example.com", cfg.N8N.BaseURL)
	assert.Equal(t, []string{"100", "200"}, cfg.N8N.WorkflowAllowlist)
	assert.Equal(t, 2500*time.Millisecond, cfg.N8N.Timeout)
}

func TestParseAllowlist(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty string is unrestricted", "", nil},
		{"only separators is unrestricted", " , ,, ", nil},
		{"entries are trimmed", " a , b ", []string{"a", "b"}},
		{"single entry", "42", []string{"42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAllowlist(tt.raw))
		})
	}
}
