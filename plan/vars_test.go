package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/variable"
)

func TestVariableSetAddDedupsByIdInInsertionOrder(t *testing.T) {
	reg := variable.NewRegistry()
	a := reg.CreateUserVariable("a")
	b := reg.CreateUserVariable("b")

	s := NewVariableSet()
	s.Add(a)
	s.Add(b)
	s.Add(a)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []*variable.Variable{a, b}, s.List())
	assert.True(t, s.Contains(a.Id))
	assert.True(t, s.Contains(b.Id))
}

func TestVariableSetUnion(t *testing.T) {
	reg := variable.NewRegistry()
	a := reg.CreateUserVariable("a")
	b := reg.CreateUserVariable("b")
	c := reg.CreateUserVariable("c")

	s1 := NewVariableSet()
	s1.Add(a)
	s1.Add(b)
	s2 := NewVariableSet()
	s2.Add(b)
	s2.Add(c)

	assert.Equal(t, 3, s1.Union(s2).Len())
}

func TestVariablesSetHereEnumerateCollection(t *testing.T) {
	reg := variable.NewRegistry()
	u := reg.CreateUserVariable("u")
	p := New(reg)
	n := p.RegisterNode(KindEnumerateCollection, EnumerateCollectionData{OutVar: u})

	set := VariablesSetHere(n)
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Contains(u.Id))
}

func TestVariablesSetHereFilterIsEmpty(t *testing.T) {
	reg := variable.NewRegistry()
	u := reg.CreateUserVariable("u")
	p := New(reg)
	n := p.RegisterNode(KindFilter, FilterData{InVar: u})

	assert.Equal(t, 0, VariablesSetHere(n).Len())
}

func TestVariablesUsedHereCalculation(t *testing.T) {
	reg := variable.NewRegistry()
	u := reg.CreateUserVariable("u")
	p := New(reg)
	expr := &ast.Node{Kind: ast.KindAttributeAccess, Operator: "email", Children: []*ast.Node{ast.NewReference("u")}}
	n := p.RegisterNode(KindCalculation, CalculationData{Expression: expr})

	set := VariablesUsedHere(n, reg)
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Contains(u.Id))
}

func TestVariablesUsedHereFilter(t *testing.T) {
	reg := variable.NewRegistry()
	u := reg.CreateUserVariable("u")
	p := New(reg)
	n := p.RegisterNode(KindFilter, FilterData{InVar: u})

	set := VariablesUsedHere(n, reg)
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Contains(u.Id))
}
