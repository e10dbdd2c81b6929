package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSimplePlan() *Plan {
	p := newTestPlan()
	u := p.Vars.CreateUserVariable("u")
	coll := p.RegisterNode(KindEnumerateCollection, EnumerateCollectionData{OutVar: u})
	ret := p.RegisterNode(KindReturn, ReturnData{InVar: u})
	_ = p.AddDependency(ret.Id, coll.Id)
	p.SetRoot(ret.Id)
	return p
}

func TestCloneSharesVariablesWithoutProperties(t *testing.T) {
	p := buildSimplePlan()
	clone := p.Clone(false)

	assert.Same(t, p.Vars, clone.Vars, "shallow clone should not fork the variable registry")

	rootId, ok := clone.RootId()
	require.True(t, ok)
	root := clone.MustGetNode(rootId)
	rd := root.Data.(ReturnData)
	origRoot := p.MustGetNode(p.Root().Id)
	origRd := origRoot.Data.(ReturnData)
	assert.Same(t, origRd.InVar, rd.InVar, "shallow clone should share the same *Variable identity")
}

func TestCloneForksVariablesWithProperties(t *testing.T) {
	p := buildSimplePlan()
	clone := p.Clone(true)

	assert.NotSame(t, p.Vars, clone.Vars, "deep clone should fork a distinct variable registry")

	rootId, _ := clone.RootId()
	root := clone.MustGetNode(rootId)
	rd := root.Data.(ReturnData)
	origRd := p.Root().Data.(ReturnData)
	assert.NotSame(t, origRd.InVar, rd.InVar, "deep clone should assign a new Variable identity")
	assert.Equal(t, origRd.InVar.Name, rd.InVar.Name, "deep clone should preserve variable names")
}

func TestCloneProducesIndependentGraph(t *testing.T) {
	p := buildSimplePlan()
	clone := p.Clone(true)

	rootId, _ := clone.RootId()
	require.NoError(t, clone.UnlinkNode(rootId, true))

	// original plan's root must be unaffected by mutating the clone.
	_, ok := p.RootId()
	assert.True(t, ok, "mutating the clone affected the original plan's root")
	assert.Len(t, p.NodeIds(), 2)
}

func TestCloneSubqueryRecursesIntoSubplan(t *testing.T) {
	p := newTestPlan()
	inner := p.Vars.CreateTemporaryVariable("inner")
	innerColl := p.RegisterNode(KindEnumerateCollection, EnumerateCollectionData{OutVar: inner})
	innerRet := p.RegisterNode(KindReturn, ReturnData{InVar: inner})
	_ = p.AddDependency(innerRet.Id, innerColl.Id)

	subOut := p.Vars.CreateTemporaryVariable("sub")
	sub := p.RegisterNode(KindSubquery, SubqueryData{SubplanRoot: innerRet.Id, OutVar: subOut})
	ret := p.RegisterNode(KindReturn, ReturnData{InVar: subOut})
	_ = p.AddDependency(ret.Id, sub.Id)
	p.SetRoot(ret.Id)

	clone := p.Clone(true)
	// Subquery body nodes must exist in the clone's node table too.
	assert.Len(t, clone.NodeIds(), len(p.NodeIds()))
}
