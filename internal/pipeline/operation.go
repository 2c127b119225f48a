package pipeline

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
)

// Operation identifies one kind of rewrite a user can select.
type Operation string

const (
	OpPaths          Operation = "paths"
	OpHost           Operation = "host"
	OpUsername       Operation = "username"
	OpPassword       Operation = "password"
	OpFlags          Operation = "flags"
	OpDefaultStopped Operation = "default_stopped"
)

// Operations lists every operation in the order stages run.
var Operations = []Operation{OpPaths, OpHost, OpUsername, OpPassword, OpFlags, OpDefaultStopped}

// Label is the prompt text shown for an operation.
func (o Operation) Label() string {
	switch o {
	case OpPaths:
		return "Update Collector and Distributer disk paths"
	case OpHost:
		return "Update SFTP host IP"
	case OpUsername:
		return "Update SFTP username"
	case OpPassword:
		return "Update encrypted SFTP password"
	case OpFlags:
		return "Set SFTP 'Password Not Required' to no"
	case OpDefaultStopped:
		return "Set 'Default Stopped' to true for all collectors"
	default:
		return string(o)
	}
}

// ParseOperation accepts an operation id, case-insensitively.
func ParseOperation(s string) (Operation, error) {
	want := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, op := range Operations {
		if op == want {
			return op, nil
		}
	}
	return "", errors.New(errors.ErrInput,
		fmt.Sprintf("Unknown operation %q", s),
		"Use one of: paths, host, username, password, flags, default_stopped")
}

// Canonical returns ops deduplicated and in stage order.
func Canonical(ops []Operation) []Operation {
	selected := make(map[Operation]bool, len(ops))
	for _, op := range ops {
		selected[op] = true
	}
	out := make([]Operation, 0, len(selected))
	for _, op := range Operations {
		if selected[op] {
			out = append(out, op)
		}
	}
	return out
}

// Contains reports whether op is in ops.
func Contains(ops []Operation, op Operation) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
