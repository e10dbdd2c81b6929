package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/variable"
)

// buildConstantFilterPlan builds: Singleton -> Calculation(true) -> Filter -> Return
func buildConstantFilterPlan(t *testing.T, constValue bool) *plan.Plan {
	t.Helper()
	reg := variable.NewRegistry()
	p := plan.New(reg)
	singleton := p.RegisterNode(plan.KindSingleton, nil)
	condVar := reg.CreateTemporaryVariable("cond")
	calc := p.RegisterNode(plan.KindCalculation, plan.CalculationData{Expression: ast.NewValue(constValue), OutVar: condVar})
	filter := p.RegisterNode(plan.KindFilter, plan.FilterData{InVar: condVar})
	retVar := reg.CreateTemporaryVariable("r")
	ret := p.RegisterNode(plan.KindReturn, plan.ReturnData{InVar: retVar})

	_ = p.AddDependency(calc.Id, singleton.Id)
	_ = p.AddDependency(filter.Id, calc.Id)
	_ = p.AddDependency(ret.Id, filter.Id)
	p.SetRoot(ret.Id)
	return p
}

func TestRemoveTrivialFiltersDropsConstantTrueFilter(t *testing.T) {
	p := buildConstantFilterPlan(t, true)
	results, err := removeTrivialFilters(&Context{}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	for _, id := range results[0].NodeIds() {
		assert.NotEqual(t, plan.KindFilter, results[0].MustGetNode(id).Kind, "constant-true filter was not removed")
	}
}

func TestRemoveTrivialFiltersReplacesConstantFalseWithNoResults(t *testing.T) {
	p := buildConstantFilterPlan(t, false)
	results, err := removeTrivialFilters(&Context{}, p)
	require.NoError(t, err)

	rootId, _ := results[0].RootId()
	deps := results[0].MustGetNode(rootId).Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, plan.KindNoResults, results[0].MustGetNode(deps[0]).Kind, "expected NoResults in the Filter's place beneath Return")
}

func TestRemoveTrivialFiltersNoOpWithoutConstantFilter(t *testing.T) {
	reg := variable.NewRegistry()
	p := plan.New(reg)
	u := reg.CreateUserVariable("u")
	col := catalog.NewStaticCollection("users", 10, nil)
	coll := p.RegisterNode(plan.KindEnumerateCollection, plan.EnumerateCollectionData{Collection: col, OutVar: u})
	filter := p.RegisterNode(plan.KindFilter, plan.FilterData{InVar: u})
	_ = p.AddDependency(filter.Id, coll.Id)
	p.SetRoot(filter.Id)

	results, err := removeTrivialFilters(&Context{}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Same(t, p, results[0], "expected the plan to be returned unchanged")
}

func TestUseIndexForFilterReplacesEnumerateWithIndexRange(t *testing.T) {
	reg := variable.NewRegistry()
	p := plan.New(reg)
	u := reg.CreateUserVariable("u")

	idx := catalog.NewIndex("idx_email", catalog.HASH, []string{"email"}, true, false)
	col := catalog.NewStaticCollection("users", 1000, nil, idx)
	coll := p.RegisterNode(plan.KindEnumerateCollection, plan.EnumerateCollectionData{Collection: col, OutVar: u})

	condVar := reg.CreateTemporaryVariable("cond")
	expr := ast.NewBinaryOp("==",
		&ast.Node{Kind: ast.KindAttributeAccess, Operator: "email", Children: []*ast.Node{ast.NewReference("u")}},
		ast.NewValue("x"))
	calc := p.RegisterNode(plan.KindCalculation, plan.CalculationData{Expression: expr, OutVar: condVar})
	filter := p.RegisterNode(plan.KindFilter, plan.FilterData{InVar: condVar})
	ret := p.RegisterNode(plan.KindReturn, plan.ReturnData{InVar: u})

	_ = p.AddDependency(calc.Id, coll.Id)
	_ = p.AddDependency(filter.Id, calc.Id)
	_ = p.AddDependency(ret.Id, filter.Id)
	p.SetRoot(ret.Id)

	results, err := useIndexForFilter(&Context{}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)

	foundIndexRange, foundFilter := false, false
	for _, id := range results[0].NodeIds() {
		switch results[0].MustGetNode(id).Kind {
		case plan.KindIndexRange:
			foundIndexRange = true
		case plan.KindFilter:
			foundFilter = true
		}
	}
	assert.True(t, foundIndexRange, "expected an IndexRange node after the rewrite")
	assert.False(t, foundFilter, "expected the Filter node to be removed after the rewrite")
}

// buildSortLimitPlan builds EnumerateCollection(users) -> Sort(u.name) ->
// Limit(10) -> Return(u), optionally indexing "name" with a skiplist.
func buildSortLimitPlan(t *testing.T, indexed bool) *plan.Plan {
	t.Helper()
	reg := variable.NewRegistry()
	p := plan.New(reg)
	u := reg.CreateUserVariable("u")

	var col catalog.Collection
	if indexed {
		idx := catalog.NewIndex("idx_name", catalog.SKIPLIST, []string{"name"}, false, false)
		col = catalog.NewStaticCollection("users", 10, nil, idx)
	} else {
		col = catalog.NewStaticCollection("users", 10, nil)
	}
	coll := p.RegisterNode(plan.KindEnumerateCollection, plan.EnumerateCollectionData{Collection: col, OutVar: u})
	sortNode := p.RegisterNode(plan.KindSort, plan.SortData{Elements: []plan.SortElement{{Var: u, Ascending: true}}})
	limit := p.RegisterNode(plan.KindLimit, plan.LimitData{Limit: 10})
	ret := p.RegisterNode(plan.KindReturn, plan.ReturnData{InVar: u})

	_ = p.AddDependency(sortNode.Id, coll.Id)
	_ = p.AddDependency(limit.Id, sortNode.Id)
	_ = p.AddDependency(ret.Id, limit.Id)
	p.SetRoot(ret.Id)
	return p
}

func TestPushLimitBelowSort(t *testing.T) {
	p := buildSortLimitPlan(t, true)

	results, err := pushLimitBelowSort(&Context{}, p)
	require.NoError(t, err)

	rootId, _ := results[0].RootId()
	root := results[0].MustGetNode(rootId)
	require.Equal(t, plan.KindReturn, root.Kind)
	rootDeps := root.Dependencies()
	require.Len(t, rootDeps, 1)
	sortNode := results[0].MustGetNode(rootDeps[0])
	require.Equal(t, plan.KindSort, sortNode.Kind)
	deps := sortNode.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, plan.KindLimit, results[0].MustGetNode(deps[0]).Kind, "expected Limit directly beneath Sort after the rewrite")
}

func TestPushLimitBelowSortNoOpWithoutIndexCoverage(t *testing.T) {
	// FOR u IN users SORT u.name LIMIT 10 RETURN u with no index on
	// "name": the upstream input isn't ordered, so limiting before the
	// sort would pick an arbitrary unsorted prefix instead of the
	// top-10 rows by name.
	p := buildSortLimitPlan(t, false)

	results, err := pushLimitBelowSort(&Context{}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Same(t, p, results[0], "expected the plan to be returned unchanged when the sort has no index coverage")
}

func TestEqualityOnAttribute(t *testing.T) {
	expr := ast.NewBinaryOp("==",
		&ast.Node{Kind: ast.KindAttributeAccess, Operator: "email", Children: []*ast.Node{ast.NewReference("u")}},
		ast.NewValue("x"))
	attr, _, ok := equalityOnAttribute(expr)
	require.True(t, ok)
	assert.Equal(t, "email", attr)

	_, _, ok = equalityOnAttribute(ast.NewValue(true))
	assert.False(t, ok)
}
