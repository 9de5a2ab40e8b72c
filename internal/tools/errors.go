// ABOUTME: Recoverable tool-execution error type and the upstream error mapping.
// ABOUTME: Remote API failures are translated to human-readable messages, never leaked raw.

package tools

import (
	"fmt"
	"strings"

	"github.com/elmunoz42/darcy-n8n-bridge/internal/n8n"
)

// ExecError is an expected, recoverable failure local to a single tool call:
// unknown tool name, argument validation failure, allowlist denial, or a
// translated upstream error. The protocol adapter renders it as a text
// result rather than a protocol fault.
type ExecError struct {
	Message string
}

func (e *ExecError) Error() string {
	return e.Message
}

func execErrorf(format string, args ...any) *ExecError {
	return &ExecError{Message: fmt.Sprintf(format, args...)}
}

// friendlyError translates an upstream client error into the user-facing
// message for the given tool.
func friendlyError(err *n8n.Error, tool string) *ExecError {
	switch err.Status {
	case 400:
		if strings.Contains(strings.ToLower(err.Message), "trigger") {
			return &ExecError{Message: "remote API rejected the run: the workflow is missing a trigger node"}
		}
		return execErrorf("remote API returned a bad request for %s: %s", tool, err.Message)
	case 401:
		return &ExecError{Message: "remote API rejected the credentials"}
	case 403:
		return &ExecError{Message: "remote API denied access to this resource"}
	case 404:
		return &ExecError{Message: "requested resource was not found"}
	case 0:
		return &ExecError{Message: "unable to reach remote API"}
	default:
		return execErrorf("remote API error %d: %s", err.Status, err.Message)
	}
}
