// Package planerrors declares the structured error kinds surfaced by the
// planning core. Each kind is a gopkg.in/src-d/go-errors.v1 Kind, following
// the pattern the rest of the ecosystem uses for package-level sentinel
// errors that still carry formatted detail.
package planerrors

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrBadParameter is returned when a bind parameter references an
	// unknown variable or has the wrong type.
	ErrBadParameter = errors.NewKind("bad parameter: %s")

	// ErrNoSuchCollection is returned when a collection named in FOR,
	// INSERT, UPDATE, REPLACE or REMOVE cannot be resolved.
	ErrNoSuchCollection = errors.NewKind("no such collection: %s")

	// ErrNoSuchIndex is returned when a referenced index id is not found
	// while deserializing a plan.
	ErrNoSuchIndex = errors.NewKind("no such index: %s on collection %s")

	// ErrNumberOutOfRange is returned when a LIMIT offset/count is
	// negative, non-numeric, or otherwise out of the representable range.
	ErrNumberOutOfRange = errors.NewKind("number out of range: %s")

	// ErrUnsupportedNodeType is returned when deserialization encounters
	// an unknown plan node variant tag.
	ErrUnsupportedNodeType = errors.NewKind("unsupported node type: %s")

	// ErrInternal signals an invariant violation. It is used for
	// assertions that should be unreachable in a correctly built plan.
	ErrInternal = errors.NewKind("internal error: %s")

	// ErrOutOfMemory is returned when an allocation needed during
	// planning fails.
	ErrOutOfMemory = errors.NewKind("out of memory during planning")

	// ErrCancelled is returned when cooperative cancellation was
	// requested while a plan was being built or optimized.
	ErrCancelled = errors.NewKind("planning cancelled")
)

// Structural reports whether err belongs to one of the structural error
// kinds (malformed AST, undefined variable, cross-collection mismatch).
func Structural(err error) bool {
	return ErrBadParameter.Is(err) ||
		ErrNoSuchCollection.Is(err) ||
		ErrNoSuchIndex.Is(err) ||
		ErrUnsupportedNodeType.Is(err)
}

// Capacity reports whether err belongs to one of the semantic-capacity
// error kinds (limits, overflow, unsupported deserialized shapes).
func Capacity(err error) bool {
	return ErrNumberOutOfRange.Is(err)
}
