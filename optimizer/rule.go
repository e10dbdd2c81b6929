package optimizer

import (
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/plan"
)

// Context carries everything a rule needs beyond the plan it is given:
// read-only collection metadata and cooperative cancellation. Rules
// never mutate Context.
type Context struct {
	Collections catalog.Collections
	Cancelled   func() bool
}

// isCancelled reports whether the context's cancellation flag is set, or
// false if no flag was installed.
func (c *Context) isCancelled() bool {
	return c != nil && c.Cancelled != nil && c.Cancelled()
}

// RuleFunc attempts to rewrite p. It returns the set of resulting
// plans: {p} unchanged when the rule does not apply or detects it
// cannot rewrite safely (never aborts the driver), {p'} when it
// replaces p outright, or {p, p'} when it forks the frontier. A
// RuleFunc must never mutate p in place if
// it intends to also return p unchanged alongside a fork; callers that
// want an in-place rewrite should simply return {p} after mutating it.
type RuleFunc func(ctx *Context, p *plan.Plan) ([]*plan.Plan, error)

// Rule is one entry in the driver's static rule table: rules are
// registered statically as (name, function, level); lower level means
// an earlier pass.
type Rule struct {
	Name             string
	Level            int
	EnabledByDefault bool
	Apply            RuleFunc
}

// RuleDescriptor is the introspectable, data-only view of a Rule exposed
// by Driver.Rules() so callers can build a `+name`/`-name` override list
// without hardcoding rule names.
type RuleDescriptor struct {
	Name             string
	Level            int
	EnabledByDefault bool
}
