package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserAndTemporaryVariable(t *testing.T) {
	r := NewRegistry()
	u := r.CreateUserVariable("u")
	tmp := r.CreateTemporaryVariable("t1")

	assert.True(t, u.UserDefined)
	assert.False(t, tmp.UserDefined)
	assert.NotEqual(t, u.Id, tmp.Id)
}

func TestLookup(t *testing.T) {
	r := NewRegistry()
	v := r.CreateUserVariable("doc")

	assert.Same(t, v, r.Lookup(v.Id))
	assert.Nil(t, r.Lookup(v.Id+100))
}

func TestLookupByNameOrdersByFirstId(t *testing.T) {
	r := NewRegistry()
	first := r.CreateUserVariable("x")
	r.CreateTemporaryVariable("y")
	r.CreateTemporaryVariable("x")

	got := r.LookupByName("x")
	require.NotNil(t, got)
	assert.Equal(t, first.Id, got.Id)
	assert.Nil(t, r.LookupByName("nonexistent"))
}

func TestAllOrderedById(t *testing.T) {
	r := NewRegistry()
	a := r.CreateUserVariable("a")
	b := r.CreateUserVariable("b")

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, a.Id, all[0].Id)
	assert.Equal(t, b.Id, all[1].Id)
}

func TestForkPreservesNamesWithFreshIds(t *testing.T) {
	r := NewRegistry()
	u := r.CreateUserVariable("u")
	tmp := r.CreateTemporaryVariable("t1")

	forked, remap := r.Fork()

	fu, ftmp := remap[u.Id], remap[tmp.Id]
	assert.Equal(t, "u", fu.Name)
	assert.True(t, fu.UserDefined)
	assert.Equal(t, "t1", ftmp.Name)
	assert.False(t, ftmp.UserDefined)
	assert.False(t, fu.Equal(u), "forked variable should not be Equal to the original (distinct identity)")
	assert.Len(t, forked.All(), 2)
}

func TestVariableEqual(t *testing.T) {
	r := NewRegistry()
	a := r.CreateUserVariable("a")
	b := r.CreateUserVariable("b")

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
	var nilVar *Variable
	assert.False(t, a.Equal(nilVar))
}
