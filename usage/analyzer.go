// Package usage implements the variable usage analyzer: a two-pass walk
// over the plan graph that computes, for every node, vars_valid (what's
// been produced upstream) and vars_used_later (what's still needed
// downstream), plus a var_set_by map the cost estimator consults to
// look through an EnumerateList's input.
package usage

import (
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/variable"
)

// Analyze runs the usage analyzer over the whole plan, starting at its
// root, recursing into every subquery's own sub-plan. It returns the
// var_set_by map used by the cost estimator. Node-level results
// (VarsValid, VarsUsedLater) are written onto each plan.Node in place.
func Analyze(p *plan.Plan, reg *variable.Registry) (plan.VarSetByMap, error) {
	varSetBy := make(plan.VarSetByMap)
	subqueryFreeVars := make(map[plan.NodeID]*plan.VariableSet)

	rootId, ok := p.RootId()
	if !ok {
		return varSetBy, nil
	}
	a := &analysis{p: p, reg: reg, varSetBy: varSetBy, subqueryFreeVars: subqueryFreeVars}
	a.analyzeSubtree(rootId, plan.NewVariableSet(), plan.NewVariableSet())
	return varSetBy, nil
}

type analysis struct {
	p                *plan.Plan
	reg              *variable.Registry
	varSetBy         plan.VarSetByMap
	subqueryFreeVars map[plan.NodeID]*plan.VariableSet
}

// analyzeSubtree computes both vars_valid and vars_used_later in a
// single depth-first recursion (equivalent result, since the forward
// pass's output at n only depends on what's downstream of n, which is
// exactly the recursion's call stack so far). passedInUsedLater carries
// "needed by something already visited, closer to the root" down into
// n's dependencies; outerValid seeds vars_valid for a subquery's own
// leaves with whatever was already valid in the enclosing scope — a
// subquery descends with a fresh walker seeded with the outer
// vars_valid. It returns n's own computed vars_valid set.
func (a *analysis) analyzeSubtree(id plan.NodeID, passedInUsedLater, outerValid *plan.VariableSet) *plan.VariableSet {
	n := a.p.MustGetNode(id)
	n.InvalidateEstimate()

	var usedHere *plan.VariableSet
	if n.Kind == plan.KindSubquery {
		usedHere = a.analyzeSubquery(n, outerValid)
	} else {
		usedHere = plan.VariablesUsedHere(n, a.reg)
	}

	n.SetVarsUsedLater(passedInUsedLater)

	outgoing := passedInUsedLater.Union(usedHere)
	deps := n.Dependencies()
	depValid := make([]*plan.VariableSet, len(deps))
	for i, depId := range deps {
		depValid[i] = a.analyzeSubtree(depId, outgoing, outerValid)
	}

	valid := plan.NewVariableSet()
	if len(deps) == 0 {
		valid = valid.Union(outerValid)
	}
	for _, dv := range depValid {
		valid = valid.Union(dv)
	}
	setHere := plan.VariablesSetHere(n)
	valid = valid.Union(setHere)
	for _, v := range setHere.List() {
		a.varSetBy[v.Id] = id
	}
	n.SetVarsValid(valid)
	return valid
}

// analyzeSubquery analyzes a Subquery node's owned sub-plan with its own
// fresh recursion, seeded with outerValid as received from the caller
// (analyzeSubtree visits n before its dependencies, so the variables n's
// own dependency chain produces are not in it). It returns the
// sub-plan's free variables: those it uses but does not itself produce,
// plus any it uses from outerValid.
func (a *analysis) analyzeSubquery(n *plan.Node, outerValid *plan.VariableSet) *plan.VariableSet {
	d := n.Data.(plan.SubqueryData)
	subRootValid := a.analyzeSubtree(d.SubplanRoot, plan.NewVariableSet(), outerValid)

	free := plan.NewVariableSet()
	a.collectFreeVars(d.SubplanRoot, subRootValid, outerValid, make(map[plan.NodeID]bool), free)
	a.subqueryFreeVars[n.Id] = free
	return free
}

// collectFreeVars walks every node of a sub-plan (including nested
// subqueries, whose own free vars were already computed by the time this
// runs, per the recursive order in analyzeSubtree/analyzeSubquery) and
// accumulates references to variables that belong to the enclosing
// scope rather than being produced inside the sub-plan: those in
// outerValid, and those not valid at the sub-plan's root (subValid).
func (a *analysis) collectFreeVars(id plan.NodeID, subValid, outerValid *plan.VariableSet, visited map[plan.NodeID]bool, out *plan.VariableSet) {
	if visited[id] {
		return
	}
	visited[id] = true
	n := a.p.MustGetNode(id)

	var used *plan.VariableSet
	if n.Kind == plan.KindSubquery {
		used = a.subqueryFreeVars[id]
		if used == nil {
			used = plan.NewVariableSet()
		}
	} else {
		used = plan.VariablesUsedHere(n, a.reg)
	}
	for _, v := range used.List() {
		if outerValid.Contains(v.Id) || !subValid.Contains(v.Id) {
			out.Add(v)
		}
	}
	for _, depId := range n.Dependencies() {
		a.collectFreeVars(depId, subValid, outerValid, visited, out)
	}
}
