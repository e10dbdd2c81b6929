// Package variable implements the planner's variable registry: stable
// identity allocation and lookup for the variables referenced throughout a
// query's plan. Variable equality is by id, never by name.
package variable

import "fmt"

// Variable is a single named binding in a query. Two variables are equal
// iff their Ids match; the Name is informational (used for serialization
// and diagnostics) and is not part of identity.
type Variable struct {
	Id          uint64
	Name        string
	UserDefined bool
}

// String implements fmt.Stringer for debug output and plan explain text.
func (v *Variable) String() string {
	if v == nil {
		return "<nil var>"
	}
	return fmt.Sprintf("%s#%d", v.Name, v.Id)
}

// Equal reports whether v and other refer to the same variable identity.
func (v *Variable) Equal(other *Variable) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.Id == other.Id
}

// Registry allocates monotonically increasing variable ids and tracks
// the full set of variables created for one query's lifetime. A
// Registry is not safe for concurrent use; each query plans on its own
// Registry.
type Registry struct {
	nextId uint64
	byId   map[uint64]*Variable
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nextId: 0,
		byId:   make(map[uint64]*Variable),
	}
}

// CreateUserVariable allocates a new user-defined variable (e.g. the `u` in
// `FOR u IN users`).
func (r *Registry) CreateUserVariable(name string) *Variable {
	return r.create(name, true)
}

// CreateTemporaryVariable allocates a new planner-internal variable (e.g.
// an intermediate calculation output introduced by a rewrite rule).
func (r *Registry) CreateTemporaryVariable(name string) *Variable {
	return r.create(name, false)
}

func (r *Registry) create(name string, userDefined bool) *Variable {
	id := r.nextId
	r.nextId++
	v := &Variable{Id: id, Name: name, UserDefined: userDefined}
	r.byId[id] = v
	return v
}

// Lookup returns the variable with the given id, or nil if none exists in
// this registry.
func (r *Registry) Lookup(id uint64) *Variable {
	return r.byId[id]
}

// LookupByName returns the first variable registered under name, in
// ascending id order, or nil if none matches. Multiple variables may share
// a name across nested scopes; callers that need scope-aware resolution
// must track that separately (the registry itself is scope-agnostic).
func (r *Registry) LookupByName(name string) *Variable {
	var best *Variable
	for id, v := range r.byId {
		if v.Name != name {
			continue
		}
		if best == nil || id < best.Id {
			best = v
		}
	}
	return best
}

// All returns every variable known to the registry, ordered by id. The
// returned slice is a fresh copy safe for the caller to mutate.
func (r *Registry) All() []*Variable {
	out := make([]*Variable, 0, len(r.byId))
	for i := uint64(0); i < r.nextId; i++ {
		if v, ok := r.byId[i]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Fork returns a deep copy of the registry with parallel variable ids,
// preserving names and user-defined flags but assigning a fresh identity
// to each variable. It returns the forked registry together with a
// mapping from old id to the corresponding new Variable, so a plan
// clone can rewrite its node payloads consistently.
func (r *Registry) Fork() (*Registry, map[uint64]*Variable) {
	out := NewRegistry()
	remap := make(map[uint64]*Variable, len(r.byId))
	for _, v := range r.All() {
		nv := out.create(v.Name, v.UserDefined)
		remap[v.Id] = nv
	}
	return out, remap
}
