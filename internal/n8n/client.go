// ABOUTME: HTTP client for the n8n REST API with normalized error reporting
// ABOUTME: Covers workflow listing/fetch/run and execution listing/fetch

package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// apiKeyHeader is the header n8n expects API credentials on.
const apiKeyHeader = "X-N8N-API-KEY"

// Error is the single error kind produced by the client. Status is the HTTP
// status of the failed response, or 0 for network-level failures that never
// produced one. Payload holds the parsed error body when the upstream sent
// JSON, or the raw response text otherwise.
type Error struct {
	Status  int
	Message string
	Payload any
}

func (e *Error) Error() string {
	return e.Message
}

// Config holds the settings needed to construct a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Client  *http.Client // required; owns the request timeout
}

// Client issues REST requests against a single n8n instance.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient creates a client for the given n8n instance.
func NewClient(cfg Config) *Client {
	httpc := cfg.Client
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   httpc,
	}
}

// ListWorkflowsParams are the validated inputs for ListWorkflows.
type ListWorkflowsParams struct {
	Limit  int
	Cursor string
	Active *bool
}

// ListWorkflows fetches a page of workflows.
func (c *Client) ListWorkflows(ctx context.Context, p ListWorkflowsParams) (any, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(p.Limit))
	if p.Cursor != "" {
		params.Set("cursor", p.Cursor)
	}
	if p.Active != nil {
		params.Set("active", strconv.FormatBool(*p.Active))
	}
	return c.request(ctx, http.MethodGet, "/api/v1/workflows", params, nil)
}

// GetWorkflow fetches a single workflow by ID.
func (c *Client) GetWorkflow(ctx context.Context, workflowID string) (any, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/workflows/"+url.PathEscape(workflowID), nil, nil)
}

// RunWorkflow starts a workflow run with the given payload.
func (c *Client) RunWorkflow(ctx context.Context, workflowID string, payload map[string]any) (any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	return c.request(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(workflowID)+"/run", nil, payload)
}

// ListExecutionsParams are the validated inputs for ListExecutions.
type ListExecutionsParams struct {
	Limit      int
	Cursor     string
	WorkflowID string
}

// ListExecutions fetches a page of executions, optionally scoped to a workflow.
func (c *Client) ListExecutions(ctx context.Context, p ListExecutionsParams) (any, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(p.Limit))
	if p.Cursor != "" {
		params.Set("cursor", p.Cursor)
	}
	if p.WorkflowID != "" {
		params.Set("workflowId", p.WorkflowID)
	}
	return c.request(ctx, http.MethodGet, "/api/v1/executions", params, nil)
}

// GetExecution fetches a single execution by ID.
func (c *Client) GetExecution(ctx context.Context, executionID string) (any, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/executions/"+url.PathEscape(executionID), nil, nil)
}

// request performs a single HTTP call and decodes the JSON response body.
// Each call is independent: no retries, no shared mutable state.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, body any) (any, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &Error{Status: 0, Message: "unable to reach remote API", Payload: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: 0, Message: "unable to reach remote API", Payload: err.Error()}
	}

	if resp.StatusCode >= 400 {
		message, payload := parseErrorBody(resp.StatusCode, raw)
		return nil, &Error{Status: resp.StatusCode, Message: message, Payload: payload}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: "invalid JSON from remote API", Payload: string(raw)}
	}
	return decoded, nil
}

// parseErrorBody extracts a human-readable message from an error response.
// The body's "message" or "error" field wins when present and textual;
// otherwise a generic status message is used. Non-JSON bodies are carried
// through as raw text.
func parseErrorBody(status int, raw []byte) (string, any) {
	defaultMessage := fmt.Sprintf("remote API responded with status %d", status)

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return defaultMessage, string(raw)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return defaultMessage, payload
	}
	for _, key := range []string{"message", "error"} {
		if text, ok := obj[key].(string); ok && text != "" {
			return text, payload
		}
	}
	return defaultMessage, payload
}
