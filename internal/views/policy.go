package views

import (
	"fmt"
	"strings"
)

// Policy decides how a view reconciles its rows after a successful write.
type Policy int

const (
	// PatchLocal edits the loaded rows in place with the write's outcome.
	PatchLocal Policy = iota
	// Reload refetches the whole list from the API.
	Reload
)

func (p Policy) String() string {
	if p == Reload {
		return "reload"
	}
	return "patch"
}

func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "patch", "patch-local", "local":
		return PatchLocal, nil
	case "reload", "refetch":
		return Reload, nil
	default:
		return PatchLocal, fmt.Errorf("unknown reconcile policy %q (want patch or reload)", raw)
	}
}

// Policies is the reconciliation choice for each write the front end makes.
type Policies struct {
	EmployeeCreate Policy
	EmployeeDelete Policy
	AttendanceMark Policy
}

// DefaultPolicies reloads after a create so server-assigned fields show up,
// and patches locally after deletes and attendance marks.
func DefaultPolicies() Policies {
	return Policies{
		EmployeeCreate: Reload,
		EmployeeDelete: PatchLocal,
		AttendanceMark: PatchLocal,
	}
}
