package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadnedb/aqlplan/variable"
)

func TestSetEstimateAndInvalidate(t *testing.T) {
	p := newTestPlan()
	n := p.RegisterNode(KindSingleton, nil)

	_, ok := n.EstimatedCost()
	assert.False(t, ok, "fresh node should report no cost estimate")

	n.SetEstimate(12.5, 100)
	cost, ok := n.EstimatedCost()
	require.True(t, ok)
	assert.Equal(t, 12.5, cost)
	items, ok := n.EstimatedNrItems()
	require.True(t, ok)
	assert.Equal(t, uint64(100), items)

	n.InvalidateEstimate()
	_, ok = n.EstimatedCost()
	assert.False(t, ok, "InvalidateEstimate should clear the cost cache")
}

func TestSetVarsValidAndUsedLater(t *testing.T) {
	reg := variable.NewRegistry()
	v := reg.CreateUserVariable("v")
	p := New(reg)
	n := p.RegisterNode(KindSingleton, nil)

	s := NewVariableSet()
	s.Add(v)
	n.SetVarsValid(s)
	n.SetVarsUsedLater(s)

	_, ok := n.VarsValid()[v.Id]
	assert.True(t, ok)
	_, ok = n.VarsUsedLater()[v.Id]
	assert.True(t, ok)
}

func TestRegisterBindingRoundTrip(t *testing.T) {
	p := newTestPlan()
	n := p.RegisterNode(KindSingleton, nil)

	n.SetVarRegister(7, RegisterBinding{Depth: 1, Register: 3})
	b, ok := n.VarRegister(7)
	require.True(t, ok)
	assert.Equal(t, RegisterBinding{Depth: 1, Register: 3}, b)

	_, ok = n.VarRegister(99)
	assert.False(t, ok)
}

func TestRegisterCountersRoundTrip(t *testing.T) {
	p := newTestPlan()
	n := p.RegisterNode(KindSingleton, nil)

	n.SetRegisterCounters(1, 2, 3)
	here, regs, total := n.RegisterCounters()
	assert.Equal(t, 1, here)
	assert.Equal(t, 2, regs)
	assert.Equal(t, 3, total)
}

func TestRegsToClearIsACopy(t *testing.T) {
	p := newTestPlan()
	n := p.RegisterNode(KindSingleton, nil)
	n.SetRegsToClear([]uint64{1, 2, 3})

	got := n.RegsToClear()
	got[0] = 99
	assert.Equal(t, uint64(1), n.RegsToClear()[0], "RegsToClear() leaked a mutable backing array")
}

func TestIntroducesNewRowsAndIsModification(t *testing.T) {
	p := newTestPlan()
	coll := p.RegisterNode(KindEnumerateCollection, EnumerateCollectionData{})
	ins := p.RegisterNode(KindInsert, ModificationData{})

	assert.True(t, coll.IntroducesNewRows())
	assert.True(t, ins.IsModification())
	assert.False(t, coll.IsModification())
}
