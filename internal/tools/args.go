// ABOUTME: Typed argument structs for each tool, decoded after schema validation.
// ABOUTME: Defaults are pre-set on the struct so absent fields keep their documented values.

package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// intArg is an integer argument that accepts every JSON number notation the
// schemas accept for "integer", including 50.0 and 5e1.
type intArg int

func (n *intArg) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parsing number %s: %w", data, err)
	}
	*n = intArg(f)
	return nil
}

type listWorkflowsArgs struct {
	Limit  intArg  `json:"limit"`
	Cursor *string `json:"cursor"`
	Active *bool   `json:"active"`
}

func decodeListWorkflowsArgs(raw json.RawMessage) (listWorkflowsArgs, error) {
	args := listWorkflowsArgs{Limit: 50}
	err := decodeArgs(raw, &args, ToolListWorkflows)
	return args, err
}

type getWorkflowArgs struct {
	WorkflowID string `json:"workflow_id"`
}

func decodeGetWorkflowArgs(raw json.RawMessage) (getWorkflowArgs, error) {
	var args getWorkflowArgs
	err := decodeArgs(raw, &args, ToolGetWorkflow)
	return args, err
}

type runWorkflowArgs struct {
	WorkflowID string         `json:"workflow_id"`
	Payload    map[string]any `json:"payload"`
	Track      bool           `json:"track"`
}

func decodeRunWorkflowArgs(raw json.RawMessage) (runWorkflowArgs, error) {
	args := runWorkflowArgs{Track: true}
	if err := decodeArgs(raw, &args, ToolRunWorkflow); err != nil {
		return args, err
	}
	if args.Payload == nil {
		args.Payload = map[string]any{}
	}
	return args, nil
}

type listExecutionsArgs struct {
	Limit      intArg  `json:"limit"`
	Cursor     *string `json:"cursor"`
	WorkflowID *string `json:"workflow_id"`
}

func decodeListExecutionsArgs(raw json.RawMessage) (listExecutionsArgs, error) {
	args := listExecutionsArgs{Limit: 20}
	err := decodeArgs(raw, &args, ToolListExecutions)
	return args, err
}

type getExecutionArgs struct {
	ExecutionID string `json:"execution_id"`
}

func decodeGetExecutionArgs(raw json.RawMessage) (getExecutionArgs, error) {
	var args getExecutionArgs
	err := decodeArgs(raw, &args, ToolGetExecution)
	return args, err
}

// decodeArgs unmarshals schema-validated arguments into their typed struct.
// Failures here are still argument problems from the caller's point of view,
// so they surface as recoverable execution errors.
func decodeArgs(raw json.RawMessage, into any, tool string) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return execErrorf("invalid arguments for %s: %v", tool, err)
	}
	return nil
}

// deref returns the pointed-to string, or "" for nil (absent or null).
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
