// ABOUTME: Tool registry binding the n8n client and run tracker behind the MCP tool catalog.
// ABOUTME: Validates arguments, enforces the allowlist, and shapes results as pretty JSON text.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/elmunoz42/darcy-n8n-bridge/internal/n8n"
	"github.com/elmunoz42/darcy-n8n-bridge/internal/tracker"
)

// WorkflowClient is the upstream surface the registry depends on. The
// production implementation is *n8n.Client.
type WorkflowClient interface {
	ListWorkflows(ctx context.Context, p n8n.ListWorkflowsParams) (any, error)
	GetWorkflow(ctx context.Context, workflowID string) (any, error)
	RunWorkflow(ctx context.Context, workflowID string, payload map[string]any) (any, error)
	ListExecutions(ctx context.Context, p n8n.ListExecutionsParams) (any, error)
	GetExecution(ctx context.Context, executionID string) (any, error)
}

// Config holds the collaborators a Registry is built from.
type Config struct {
	Client    WorkflowClient
	Tracker   *tracker.Tracker
	Allowlist []string
	Logger    *slog.Logger
}

// Registry is the authoritative list of callable tools and the business
// logic binding client and tracker. Its state is immutable after
// construction, so it is safe for concurrent tool calls.
type Registry struct {
	client    WorkflowClient
	tracker   *tracker.Tracker
	allowlist Allowlist
	logger    *slog.Logger
	schemas   map[string]*jsonschema.Schema
}

// NewRegistry compiles the catalog's input schemas and returns a ready
// registry. Schema compilation failures indicate a broken catalog and are
// returned as errors rather than deferred to call time.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Client == nil {
		return nil, errors.New("client is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("tracker is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	compiler := jsonschema.NewCompiler()
	schemas := make(map[string]*jsonschema.Schema, len(catalog))
	for _, def := range catalog {
		var doc any
		if err := json.Unmarshal(def.InputSchema, &doc); err != nil {
			return nil, fmt.Errorf("parsing schema for %s: %w", def.Name, err)
		}
		resource := def.Name + ".schema.json"
		if err := compiler.AddResource(resource, doc); err != nil {
			return nil, fmt.Errorf("adding schema for %s: %w", def.Name, err)
		}
		schema, err := compiler.Compile(resource)
		if err != nil {
			return nil, fmt.Errorf("compiling schema for %s: %w", def.Name, err)
		}
		schemas[def.Name] = schema
	}

	allowlist := NewAllowlist(cfg.Allowlist)
	logger.Info("tool registry initialized",
		"tool_count", len(catalog),
		"allowlist_restricted", allowlist.Restricted(),
	)

	return &Registry{
		client:    cfg.Client,
		tracker:   cfg.Tracker,
		allowlist: allowlist,
		logger:    logger,
		schemas:   schemas,
	}, nil
}

// ListTools returns the fixed tool catalog. Pure, no side effects.
func (r *Registry) ListTools() []Definition {
	return Catalog()
}

// CallTool validates the arguments for the named tool, executes it, and
// returns the formatted text result. Recoverable failures are *ExecError;
// anything else is unexpected and propagates untouched.
func (r *Registry) CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	schema, ok := r.schemas[name]
	if !ok {
		return "", execErrorf("unknown tool: %s", name)
	}

	raw := arguments
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", execErrorf("invalid arguments for %s: %v", name, err)
	}
	if err := schema.Validate(decoded); err != nil {
		return "", execErrorf("invalid arguments for %s: %v", name, err)
	}

	result, err := r.dispatch(ctx, name, raw)
	if err != nil {
		var apiErr *n8n.Error
		if errors.As(err, &apiErr) {
			return "", friendlyError(apiErr, name)
		}
		return "", err
	}
	return result, nil
}

func (r *Registry) dispatch(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	switch name {
	case ToolListWorkflows:
		return r.listWorkflows(ctx, raw)
	case ToolGetWorkflow:
		return r.getWorkflow(ctx, raw)
	case ToolRunWorkflow:
		return r.runWorkflow(ctx, raw)
	case ToolListExecutions:
		return r.listExecutions(ctx, raw)
	case ToolGetExecution:
		return r.getExecution(ctx, raw)
	case ToolTrackingList:
		return r.trackingList()
	default:
		// Unreachable: the schema lookup in CallTool gates dispatch.
		return "", execErrorf("unknown tool: %s", name)
	}
}

func (r *Registry) listWorkflows(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := decodeListWorkflowsArgs(raw)
	if err != nil {
		return "", err
	}

	payload, err := r.client.ListWorkflows(ctx, n8n.ListWorkflowsParams{
		Limit:  int(args.Limit),
		Cursor: deref(args.Cursor),
		Active: args.Active,
	})
	if err != nil {
		return "", err
	}

	return formatJSON(filterWorkflows(payload, r.allowlist)), nil
}

func (r *Registry) getWorkflow(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := decodeGetWorkflowArgs(raw)
	if err != nil {
		return "", err
	}
	if !r.allowlist.Allows(args.WorkflowID) {
		return "", &ExecError{Message: "workflow is not permitted by the allowlist"}
	}

	payload, err := r.client.GetWorkflow(ctx, args.WorkflowID)
	if err != nil {
		return "", err
	}
	return formatJSON(payload), nil
}

func (r *Registry) runWorkflow(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := decodeRunWorkflowArgs(raw)
	if err != nil {
		return "", err
	}
	if !r.allowlist.Allows(args.WorkflowID) {
		return "", &ExecError{Message: "workflow is not permitted by the allowlist"}
	}

	payload, err := r.client.RunWorkflow(ctx, args.WorkflowID, args.Payload)
	if err != nil {
		return "", err
	}

	executionID := extractExecutionID(payload)
	if args.Track {
		r.tracker.Add(args.WorkflowID, executionID, args.Payload)
		r.logger.Debug("run tracked",
			"workflow_id", args.WorkflowID,
			"execution_id", executionID,
		)
	}
	return formatJSON(payload), nil
}

func (r *Registry) listExecutions(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := decodeListExecutionsArgs(raw)
	if err != nil {
		return "", err
	}

	// An explicit workflow filter is checked up front; unfiltered listings
	// proceed and are post-filtered.
	workflowID := deref(args.WorkflowID)
	if workflowID != "" && !r.allowlist.Allows(workflowID) {
		return "", &ExecError{Message: "workflow is not permitted by the allowlist"}
	}

	payload, err := r.client.ListExecutions(ctx, n8n.ListExecutionsParams{
		Limit:      int(args.Limit),
		Cursor:     deref(args.Cursor),
		WorkflowID: workflowID,
	})
	if err != nil {
		return "", err
	}

	return formatJSON(filterExecutions(payload, r.allowlist)), nil
}

func (r *Registry) getExecution(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := decodeGetExecutionArgs(raw)
	if err != nil {
		return "", err
	}

	payload, err := r.client.GetExecution(ctx, args.ExecutionID)
	if err != nil {
		return "", err
	}

	// The owning workflow is only known once the execution is fetched, so
	// the allowlist check happens after the call.
	workflowID := extractWorkflowID(payload)
	if workflowID != "" && !r.allowlist.Allows(workflowID) {
		return "", &ExecError{Message: "execution belongs to a workflow outside the allowlist"}
	}
	return formatJSON(payload), nil
}

func (r *Registry) trackingList() (string, error) {
	entries := r.tracker.List()
	formatted := make([]any, 0, len(entries))
	for _, entry := range entries {
		var executionID any
		if entry.ExecutionID != "" {
			executionID = entry.ExecutionID
		}
		formatted = append(formatted, map[string]any{
			"workflowId":  entry.WorkflowID,
			"executionId": executionID,
			"payload":     entry.Payload,
			"startedAt":   entry.StartedAt.Format(time.RFC3339Nano),
		})
	}
	return formatJSON(formatted), nil
}

// formatJSON renders a value as pretty-printed JSON. Map keys serialize in
// sorted order. Values that cannot be marshaled fall back to their Go
// string rendering.
func formatJSON(value any) string {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}
