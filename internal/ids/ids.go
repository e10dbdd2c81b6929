// Package ids mints the opaque run identifiers attached to one planning
// call end-to-end (the value carried in the tracing span and the logger
// field), using satori/go.uuid for an opaque identity rather than an
// incrementing counter.
package ids

import uuid "github.com/satori/go.uuid"

// RunID identifies a single AST -> plan -> optimize -> register-plan call,
// for correlating logs, traces and metrics across that call's lifetime.
type RunID string

// NewRunID mints a fresh run identifier.
func NewRunID() RunID {
	return RunID(uuid.NewV4().String())
}

// String implements fmt.Stringer.
func (id RunID) String() string { return string(id) }
