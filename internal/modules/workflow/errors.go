package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the target post does not exist.
	ErrNotFound = errors.New("post not found")
	// ErrInvalidState is returned when the requested target is not a
	// recognized workflow state.
	ErrInvalidState = errors.New("invalid workflow state")
	// ErrRoleNotAllowed is returned by the authorization step before the
	// state machine is consulted.
	ErrRoleNotAllowed = errors.New("role not allowed to perform this transition")
)

// IllegalTransitionError reports a target outside the adjacency set of
// the current state.
type IllegalTransitionError struct {
	From    string
	Target  string
	Allowed []string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s, allowed: [%s]",
		e.From, e.Target, strings.Join(e.Allowed, ", "))
}

// PreconditionError reports a transition-specific requirement that did
// not hold.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}
