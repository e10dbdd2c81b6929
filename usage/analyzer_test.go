package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/variable"
)

// FOR u IN users FILTER u RETURN u
func buildScanFilterReturn(t *testing.T) (*plan.Plan, *variable.Registry, *variable.Variable) {
	t.Helper()
	reg := variable.NewRegistry()
	p := plan.New(reg)
	u := reg.CreateUserVariable("u")

	col := catalog.NewStaticCollection("users", 10, nil)
	coll := p.RegisterNode(plan.KindEnumerateCollection, plan.EnumerateCollectionData{Collection: col, OutVar: u})
	filter := p.RegisterNode(plan.KindFilter, plan.FilterData{InVar: u})
	ret := p.RegisterNode(plan.KindReturn, plan.ReturnData{InVar: u})

	_ = p.AddDependency(filter.Id, coll.Id)
	_ = p.AddDependency(ret.Id, filter.Id)
	p.SetRoot(ret.Id)

	return p, reg, u
}

func TestAnalyzeSetsVarsValidAndUsedLater(t *testing.T) {
	p, reg, u := buildScanFilterReturn(t)

	varSetBy, err := Analyze(p, reg)
	require.NoError(t, err)

	setterId, ok := varSetBy[u.Id]
	require.True(t, ok, "varSetBy missing entry for u")
	coll := p.MustGetNode(setterId)
	assert.Equal(t, plan.KindEnumerateCollection, coll.Kind)

	ret := p.Root()
	_, ok = ret.VarsValid()[u.Id]
	assert.True(t, ok, "Return node's VarsValid() missing u")

	// u is used by Filter and Return, both downstream of EnumerateCollection,
	// so at EnumerateCollection u must still show up as used later.
	_, ok = coll.VarsUsedLater()[u.Id]
	assert.True(t, ok, "EnumerateCollection's VarsUsedLater() missing u")
	// Return is the last consumer: nothing is used after it.
	assert.Empty(t, ret.VarsUsedLater())
}

func TestAnalyzeEmptyPlanReturnsEmptyMap(t *testing.T) {
	reg := variable.NewRegistry()
	p := plan.New(reg)

	varSetBy, err := Analyze(p, reg)
	require.NoError(t, err)
	assert.Empty(t, varSetBy)
}

func TestAnalyzeSubqueryFreeVars(t *testing.T) {
	reg := variable.NewRegistry()
	p := plan.New(reg)
	u := reg.CreateUserVariable("u")
	col := catalog.NewStaticCollection("users", 10, nil)
	outerColl := p.RegisterNode(plan.KindEnumerateCollection, plan.EnumerateCollectionData{Collection: col, OutVar: u})

	// subquery: FILTER u.active (referring to outer u) over a singleton
	innerSingleton := p.RegisterNode(plan.KindSingleton, nil)
	expr := &ast.Node{Kind: ast.KindAttributeAccess, Operator: "active", Children: []*ast.Node{ast.NewReference("u")}}
	innerCalc := p.RegisterNode(plan.KindCalculation, plan.CalculationData{Expression: expr, OutVar: reg.CreateTemporaryVariable("cond")})
	_ = p.AddDependency(innerCalc.Id, innerSingleton.Id)

	subOut := reg.CreateTemporaryVariable("sub")
	sub := p.RegisterNode(plan.KindSubquery, plan.SubqueryData{SubplanRoot: innerCalc.Id, OutVar: subOut})
	_ = p.AddDependency(sub.Id, outerColl.Id)

	ret := p.RegisterNode(plan.KindReturn, plan.ReturnData{InVar: subOut})
	_ = p.AddDependency(ret.Id, sub.Id)
	p.SetRoot(ret.Id)

	_, err := Analyze(p, reg)
	require.NoError(t, err)

	// The outer Return sees the subquery's out variable, and u, referenced
	// only inside the subquery, is a free variable of the Subquery node:
	// the outer EnumerateCollection must still count it as used later.
	_, ok := ret.VarsValid()[subOut.Id]
	assert.True(t, ok, "outer Return's VarsValid() missing sub's out variable")
	_, ok = outerColl.VarsUsedLater()[u.Id]
	assert.True(t, ok, "outer EnumerateCollection's VarsUsedLater() missing u, the subquery's free variable")
}
