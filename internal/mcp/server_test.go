// ABOUTME: Tests for the JSON-RPC protocol surface: framing, auth, and result shaping.
// ABOUTME: Uses a stub tool service so protocol behavior is isolated from tool logic.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmunoz42/darcy-n8n-bridge/internal/tools"
)

type stubToolService struct {
	result string
	err    error

	calledTool string
	calledArgs json.RawMessage
}

func (s *stubToolService) ListTools() []tools.Definition {
	return tools.Catalog()
}

func (s *stubToolService) CallTool(_ context.Context, name string, arguments json.RawMessage) (string, error) {
	s.calledTool = name
	s.calledArgs = arguments
	return s.result, s.err
}

func newTestServer(t *testing.T, svc ToolService, apiKey string) *Server {
	t.Helper()
	server, err := NewServer(Config{Tools: svc, APIKey: apiKey})
	require.NoError(t, err)
	return server
}

func postJSONRPC(t *testing.T, server *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONRPCResponse {
	t.Helper()
	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
	return resp
}

func decodeCallResult(t *testing.T, resp JSONRPCResponse) MCPCallToolResult {
	t.Helper()
	encoded, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPCallToolResult
	require.NoError(t, json.Unmarshal(encoded, &result))
	return result
}

func TestNewServerRequiresToolService(t *testing.T) {
	_, err := NewServer(Config{})
	require.Error(t, err)
}

func TestInitializeHandshake(t *testing.T) {
	server := newTestServer(t, &stubToolService{}, "")

	rec := postJSONRPC(t, server, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	assert.Equal(t, ProtocolVersion, result["protocolVersion"])
	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, ServerName, serverInfo["name"])
	capabilities := result["capabilities"].(map[string]any)
	assert.Contains(t, capabilities, "tools")
}

func TestToolsListPublishesCatalog(t *testing.T) {
	server := newTestServer(t, &stubToolService{}, "")

	rec := postJSONRPC(t, server, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, nil)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	encoded, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPListToolsResult
	require.NoError(t, json.Unmarshal(encoded, &result))
	require.Len(t, result.Tools, 6)
	assert.Equal(t, tools.ToolListWorkflows, result.Tools[0].Name)
	assert.True(t, json.Valid(result.Tools[0].InputSchema))
}

func TestToolsCallSuccess(t *testing.T) {
	svc := &stubToolService{result: "{\n  \"id\": \"exec-7\"\n}"}
	server := newTestServer(t, svc, "")

	body := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"n8n_run_workflow","arguments":{"workflow_id":"42"}}}`
	rec := postJSONRPC(t, server, body, nil)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	result := decodeCallResult(t, resp)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, svc.result, result.Content[0].Text)
	assert.False(t, result.IsError)

	assert.Equal(t, "n8n_run_workflow", svc.calledTool)
	assert.JSONEq(t, `{"workflow_id":"42"}`, string(svc.calledArgs))
}

func TestToolsCallRecoverableFailure(t *testing.T) {
	svc := &stubToolService{err: &tools.ExecError{Message: "workflow is not permitted by the allowlist"}}
	server := newTestServer(t, svc, "")

	body := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"n8n_get_workflow","arguments":{"workflow_id":"9"}}}`
	rec := postJSONRPC(t, server, body, nil)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error, "recoverable tool failures are results, not protocol errors")

	result := decodeCallResult(t, resp)
	assert.True(t, result.IsError)
	assert.Equal(t, "Tool execution failed: workflow is not permitted by the allowlist", result.Content[0].Text)
}

func TestToolsCallUnexpectedFailure(t *testing.T) {
	svc := &stubToolService{err: errors.New("nil pointer somewhere")}
	server := newTestServer(t, svc, "")

	body := `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"n8n_list_workflows"}}`
	rec := postJSONRPC(t, server, body, nil)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	result := decodeCallResult(t, resp)
	assert.True(t, result.IsError)
	assert.Equal(t, "Unexpected server error while running tool", result.Content[0].Text)
	assert.NotContains(t, result.Content[0].Text, "nil pointer", "internal details must not leak")
}

func TestToolsCallMissingName(t *testing.T) {
	server := newTestServer(t, &stubToolService{}, "")

	body := `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"arguments":{}}}`
	rec := postJSONRPC(t, server, body, nil)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidParams, resp.Error.Code)
}

func TestMethodNotFound(t *testing.T) {
	server := newTestServer(t, &stubToolService{}, "")

	rec := postJSONRPC(t, server, `{"jsonrpc":"2.0","id":7,"method":"resources/list"}`, nil)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCMethodNotFound, resp.Error.Code)
}

func TestParseAndVersionErrors(t *testing.T) {
	server := newTestServer(t, &stubToolService{}, "")

	t.Run("malformed JSON", func(t *testing.T) {
		rec := postJSONRPC(t, server, `{not json`, nil)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, JSONRPCParseError, resp.Error.Code)
	})

	t.Run("wrong jsonrpc version", func(t *testing.T) {
		rec := postJSONRPC(t, server, `{"jsonrpc":"1.0","id":1,"method":"initialize"}`, nil)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, JSONRPCInvalidRequest, resp.Error.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		padding := bytes.Repeat([]byte("x"), MaxRequestBodySize+1)
		rec := postJSONRPC(t, server, string(padding), nil)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, JSONRPCInvalidRequest, resp.Error.Code)
	})
}

func TestNotificationsAccepted(t *testing.T) {
	svc := &stubToolService{}
	server := newTestServer(t, svc, "")

	rec := postJSONRPC(t, server, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, svc.calledTool)

	// Explicit null ID is also a notification.
	rec = postJSONRPC(t, server, `{"jsonrpc":"2.0","id":null,"method":"notifications/cancelled"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestAPIKeyAuthentication(t *testing.T) {
	server := newTestServer(t, &stubToolService{}, "secret-key")
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize"}`

	t.Run("missing key rejected", func(t *testing.T) {
		rec := postJSONRPC(t, server, body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		rec := postJSONRPC(t, server, body, map[string]string{"X-API-Key": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("X-API-Key accepted", func(t *testing.T) {
		rec := postJSONRPC(t, server, body, map[string]string{"X-API-Key": "secret-key"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api_key header accepted", func(t *testing.T) {
		rec := postJSONRPC(t, server, body, map[string]string{"api_key": "secret-key"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no key configured disables auth", func(t *testing.T) {
		open := newTestServer(t, &stubToolService{}, "")
		rec := postJSONRPC(t, open, body, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestNonPostRejected(t *testing.T) {
	server := newTestServer(t, &stubToolService{}, "")
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))
}
