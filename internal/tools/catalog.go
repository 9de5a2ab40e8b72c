// ABOUTME: Static tool catalog exposed over MCP with inline JSON input schemas.
// ABOUTME: Definitions are fixed at process start and never mutated.

package tools

import "encoding/json"

// Tool names. Unique within the registry and fixed at compile time.
const (
	ToolListWorkflows  = "n8n_list_workflows"
	ToolGetWorkflow    = "n8n_get_workflow"
	ToolRunWorkflow    = "n8n_run_workflow"
	ToolListExecutions = "n8n_list_executions"
	ToolGetExecution   = "n8n_get_execution"
	ToolTrackingList   = "darcy_tracking_list"
)

// Definition is the immutable static record published for a tool.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// catalog is the fixed tool set. Every schema is closed
// (additionalProperties:false): unrecognized argument keys are rejected.
var catalog = []Definition{
	{
		Name:        ToolListWorkflows,
		Description: "List n8n workflows using pagination and optional active filter.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer","minimum":1,"maximum":200,"default":50},"cursor":{"type":["string","null"],"default":null},"active":{"type":["boolean","null"],"default":null}},"additionalProperties":false}`),
	},
	{
		Name:        ToolGetWorkflow,
		Description: "Retrieve a single workflow by ID.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"workflow_id":{"type":"string"}},"required":["workflow_id"],"additionalProperties":false}`),
	},
	{
		Name:        ToolRunWorkflow,
		Description: "Run a workflow with an optional payload and optional tracking.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"workflow_id":{"type":"string"},"payload":{"type":"object","default":{}},"track":{"type":"boolean","default":true}},"required":["workflow_id"],"additionalProperties":false}`),
	},
	{
		Name:        ToolListExecutions,
		Description: "List executions with pagination and optional workflow filter.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer","minimum":1,"maximum":200,"default":20},"cursor":{"type":["string","null"],"default":null},"workflow_id":{"type":["string","null"],"default":null}},"additionalProperties":false}`),
	},
	{
		Name:        ToolGetExecution,
		Description: "Retrieve execution details by ID.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"execution_id":{"type":"string"}},"required":["execution_id"],"additionalProperties":false}`),
	},
	{
		Name:        ToolTrackingList,
		Description: "List executions started through this bridge during the current runtime.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
	},
}

// Catalog returns the fixed tool definitions in publication order.
func Catalog() []Definition {
	defs := make([]Definition, len(catalog))
	copy(defs, catalog)
	return defs
}
