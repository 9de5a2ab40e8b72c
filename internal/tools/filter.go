// ABOUTME: Allowlist filtering for list-shaped upstream responses.
// ABOUTME: Also holds the identifier-extraction rules for workflows and executions.

package tools

import (
	"maps"
	"math"
	"strconv"
)

// Allowlist is a closed set of workflow identifiers. An empty or nil
// allowlist means unrestricted; membership is only meaningful when
// Restricted reports true.
type Allowlist map[string]struct{}

// NewAllowlist builds an allowlist from the configured identifiers.
// Zero identifiers yield nil, i.e. unrestricted.
func NewAllowlist(ids []string) Allowlist {
	if len(ids) == 0 {
		return nil
	}
	set := make(Allowlist, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Restricted reports whether the allowlist constrains workflow access.
func (a Allowlist) Restricted() bool {
	return len(a) > 0
}

// Allows reports whether the workflow identifier may be accessed.
// An unrestricted allowlist allows everything.
func (a Allowlist) Allows(workflowID string) bool {
	if !a.Restricted() {
		return true
	}
	_, ok := a[workflowID]
	return ok
}

// Keys under which list-shaped responses carry their item arrays.
var (
	workflowListKeys  = []string{"data", "workflows", "items"}
	executionListKeys = []string{"data", "executions", "items"}
	countKeys         = []string{"count", "total", "totalCount"}
)

// filterWorkflows drops workflow items outside the allowlist. Bare arrays
// are filtered directly; objects have each known item array filtered and
// their aggregate count fields rewritten to the filtered length. Other
// values pass through unchanged.
func filterWorkflows(payload any, allow Allowlist) any {
	if !allow.Restricted() {
		return payload
	}
	return filterList(payload, workflowListKeys, func(item any) bool {
		return allow.Allows(workflowItemID(item))
	})
}

// filterExecutions drops execution items whose owning workflow is outside
// the allowlist. Executions are filtered by the workflow they belong to,
// not by their own identifier.
func filterExecutions(payload any, allow Allowlist) any {
	if !allow.Restricted() {
		return payload
	}
	return filterList(payload, executionListKeys, func(item any) bool {
		return allow.Allows(executionItemWorkflowID(item))
	})
}

func filterList(payload any, listKeys []string, keep func(item any) bool) any {
	switch value := payload.(type) {
	case []any:
		return filterItems(value, keep)
	case map[string]any:
		cloned := maps.Clone(value)
		for _, key := range listKeys {
			items, ok := cloned[key].([]any)
			if !ok {
				continue
			}
			filtered := filterItems(items, keep)
			cloned[key] = filtered
			rewriteCounts(cloned, len(filtered))
		}
		return cloned
	default:
		return payload
	}
}

func filterItems(items []any, keep func(item any) bool) []any {
	filtered := make([]any, 0, len(items))
	for _, item := range items {
		if keep(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// rewriteCounts overwrites integer-valued aggregate count fields so they
// reflect the post-filter length instead of the original.
func rewriteCounts(obj map[string]any, length int) {
	for _, key := range countKeys {
		if f, ok := obj[key].(float64); ok && f == math.Trunc(f) {
			obj[key] = length
		}
	}
}

// workflowItemID extracts a workflow item's identifier: first of id,
// workflowId, _id. Items missing all three return "" and are excluded.
func workflowItemID(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	return firstID(obj, "id", "workflowId", "_id")
}

// executionItemWorkflowID extracts the workflow an execution item belongs
// to: first of workflowId, workflow_id.
func executionItemWorkflowID(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	return firstID(obj, "workflowId", "workflow_id")
}

// extractExecutionID pulls a best-effort execution identifier out of a
// run-workflow response: top-level executionId, execution_id, id; then
// data.executionId, data.id. Returns "" when none is present.
func extractExecutionID(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	if id := firstID(obj, "executionId", "execution_id", "id"); id != "" {
		return id
	}
	if data, ok := obj["data"].(map[string]any); ok {
		return firstID(data, "executionId", "id")
	}
	return ""
}

// extractWorkflowID pulls the owning workflow identifier out of an
// execution response, trying the top level before the nested data object.
func extractWorkflowID(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	if id := firstID(obj, "workflowId", "workflow_id"); id != "" {
		return id
	}
	if data, ok := obj["data"].(map[string]any); ok {
		return firstID(data, "workflowId", "workflow_id")
	}
	return ""
}

func firstID(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if id := stringifyID(obj[key]); id != "" {
			return id
		}
	}
	return ""
}

// stringifyID renders scalar identifier values as strings. Upstream IDs are
// usually strings but occasionally bare numbers.
func stringifyID(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
