package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/config"
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/variable"
)

func TestResolveEnabledDefaultsAndOverrides(t *testing.T) {
	rules := []Rule{
		{Name: "a", EnabledByDefault: true},
		{Name: "b", EnabledByDefault: false},
	}
	enabled := resolveEnabled(rules, []string{"-a", "+b"})
	assert.False(t, enabled["a"], "expected rule a disabled by -a override")
	assert.True(t, enabled["b"], "expected rule b enabled by +b override")
}

func TestResolveEnabledAllToken(t *testing.T) {
	rules := []Rule{
		{Name: "a", EnabledByDefault: true},
		{Name: "b", EnabledByDefault: true},
	}
	enabled := resolveEnabled(rules, []string{"-all", "+b"})
	assert.False(t, enabled["a"], "expected -all to disable rule a")
	assert.True(t, enabled["b"], "expected +b to re-enable rule b after -all")
}

func TestResolveEnabledIgnoresUnknownNames(t *testing.T) {
	rules := []Rule{{Name: "a", EnabledByDefault: true}}
	enabled := resolveEnabled(rules, []string{"-ghost"})
	assert.True(t, enabled["a"], "an override for an unknown rule must not affect known rules")
}

func TestNewDriverSortsRulesByLevel(t *testing.T) {
	d := NewDriver([]Rule{
		{Name: "late", Level: 60},
		{Name: "early", Level: 10},
		{Name: "mid", Level: 30},
	}, config.Default())

	descs := d.Rules()
	require.Len(t, descs, 3)
	for i := 1; i < len(descs); i++ {
		assert.LessOrEqualf(t, descs[i-1].Level, descs[i].Level, "Rules() not sorted by level: %v", descs)
	}
	assert.Equal(t, "early", descs[0].Name)
}

// buildDemoPlan returns: EnumerateCollection(users, indexed email) ->
// Calculation(u.email == "x") -> Filter -> Sort(u.name) -> Limit(10) -> Return(u)
func buildDemoPlan(t *testing.T) (*plan.Plan, catalog.Collections) {
	t.Helper()
	idx := catalog.NewIndex("idx_email", catalog.HASH, []string{"email"}, true, false).WithSelectivity(0.001)
	users := catalog.NewStaticCollection("users", 1000, []string{"s1"}, idx)
	collections := catalog.NewStaticCollections(users)

	reg := variable.NewRegistry()
	p := plan.New(reg)
	u := reg.CreateUserVariable("u")

	coll := p.RegisterNode(plan.KindEnumerateCollection, plan.EnumerateCollectionData{Collection: users, OutVar: u})

	condVar := reg.CreateTemporaryVariable("cond")
	expr := ast.NewBinaryOp("==",
		&ast.Node{Kind: ast.KindAttributeAccess, Operator: "email", Children: []*ast.Node{ast.NewReference("u")}},
		ast.NewValue("x"))
	calc := p.RegisterNode(plan.KindCalculation, plan.CalculationData{Expression: expr, OutVar: condVar})
	filter := p.RegisterNode(plan.KindFilter, plan.FilterData{InVar: condVar})
	sortNode := p.RegisterNode(plan.KindSort, plan.SortData{Elements: []plan.SortElement{{Var: u, Ascending: true}}})
	limit := p.RegisterNode(plan.KindLimit, plan.LimitData{Limit: 10})
	ret := p.RegisterNode(plan.KindReturn, plan.ReturnData{InVar: u})

	_ = p.AddDependency(calc.Id, coll.Id)
	_ = p.AddDependency(filter.Id, calc.Id)
	_ = p.AddDependency(sortNode.Id, filter.Id)
	_ = p.AddDependency(limit.Id, sortNode.Id)
	_ = p.AddDependency(ret.Id, limit.Id)
	p.SetRoot(ret.Id)

	return p, collections
}

func TestOptimizeAppliesIndexRuleAndReturnsCostedResult(t *testing.T) {
	p, collections := buildDemoPlan(t)
	driver := NewDriver(DefaultRules(), config.Default())

	result, err := driver.Optimize(&Context{Collections: collections}, p)
	require.NoError(t, err)
	require.NotNil(t, result.Plan)

	foundIndexRange := false
	for _, id := range result.Plan.NodeIds() {
		if result.Plan.MustGetNode(id).Kind == plan.KindIndexRange {
			foundIndexRange = true
		}
	}
	assert.Truef(t, foundIndexRange, "expected useIndexForFilter to have fired, applied rules: %v", result.AppliedRules)
	assert.Contains(t, result.AppliedRules, "useIndexForFilter")
}

func TestOptimizeRespectsDisabledRules(t *testing.T) {
	p, collections := buildDemoPlan(t)
	cfg := config.Default()
	cfg.Rules = []string{"+all", "-useIndexForFilter"}
	driver := NewDriver(DefaultRules(), cfg)

	result, err := driver.Optimize(&Context{Collections: collections}, p)
	require.NoError(t, err)
	assert.NotContains(t, result.AppliedRules, "useIndexForFilter")
}

func TestOptimizeSurfacesCancellation(t *testing.T) {
	p, collections := buildDemoPlan(t)
	driver := NewDriver(DefaultRules(), config.Default())

	_, err := driver.Optimize(&Context{Collections: collections, Cancelled: func() bool { return true }}, p)
	assert.Error(t, err)
}

func TestLessOrdersByCostThenItemsThenSequence(t *testing.T) {
	reg := variable.NewRegistry()
	cheap := plan.New(reg)
	n1 := cheap.RegisterNode(plan.KindSingleton, nil)
	n1.SetEstimate(1.0, 1)
	cheap.SetRoot(n1.Id)

	expensive := plan.New(reg)
	n2 := expensive.RegisterNode(plan.KindSingleton, nil)
	n2.SetEstimate(100.0, 1)
	expensive.SetRoot(n2.Id)

	a := &candidate{p: cheap, sequence: 5}
	b := &candidate{p: expensive, sequence: 1}
	assert.True(t, less(a, b), "expected the cheaper plan to sort first regardless of sequence")
}
