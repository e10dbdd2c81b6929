// Package plan implements the plan graph and node taxonomy: an arena of
// plan nodes owned by a Plan, linked by non-owning dependency/parent
// ids, supporting register/unlink/replace/insert and both shallow and
// deep clone.
package plan

import (
	"fmt"

	"github.com/ariadnedb/aqlplan/planerrors"
	"github.com/ariadnedb/aqlplan/variable"
)

// CollectionUse records how a plan touches a named collection, for the
// serialized output's `collections` list.
type CollectionUse struct {
	Name  string
	Write bool
}

// Plan owns a DAG of plan nodes. Nodes are addressed by NodeID; the Plan
// is the sole owner of node storage, so exposing a node to a caller
// yields a borrowed pointer.
type Plan struct {
	Vars *variable.Registry

	nodes  map[NodeID]*Node
	nextId NodeID
	rootId NodeID
	hasRoot bool

	collections map[string]*CollectionUse
}

// New returns an empty plan backed by the given variable registry.
func New(vars *variable.Registry) *Plan {
	return &Plan{
		Vars:        vars,
		nodes:       make(map[NodeID]*Node),
		collections: make(map[string]*CollectionUse),
	}
}

// RegisterNode takes ownership of node, assigns it an id unique within
// this plan, and indexes it. It does not wire any dependencies; the
// caller must follow up with AddDependency (and SetRoot for whichever
// node becomes the plan's root).
func (p *Plan) RegisterNode(kind Kind, data any) *Node {
	id := p.nextId
	p.nextId++
	n := &Node{Id: id, Kind: kind, Data: data, plan: p}
	p.nodes[id] = n
	return n
}

// GetNode returns the node with the given id and whether it exists in
// this plan.
func (p *Plan) GetNode(id NodeID) (*Node, bool) {
	n, ok := p.nodes[id]
	return n, ok
}

// MustGetNode is GetNode but panics via an internal error if id is
// unknown; used where the caller has already established the id is
// structurally valid (e.g. iterating a node's own Dependencies()).
func (p *Plan) MustGetNode(id NodeID) *Node {
	n, ok := p.nodes[id]
	if !ok {
		panic(planerrors.ErrInternal.New(fmt.Sprintf("node %d not registered in plan", id)))
	}
	return n
}

// SetRoot designates n as the plan's single root.
func (p *Plan) SetRoot(id NodeID) {
	p.rootId = id
	p.hasRoot = true
}

// Root returns the plan's root node. It panics via ErrInternal if no root
// has been set, which is a builder bug, not a user-facing condition.
func (p *Plan) Root() *Node {
	if !p.hasRoot {
		panic(planerrors.ErrInternal.New("plan has no root"))
	}
	return p.MustGetNode(p.rootId)
}

// RootId returns the plan's root node id and whether one has been set.
func (p *Plan) RootId() (NodeID, bool) { return p.rootId, p.hasRoot }

// NodeIds returns every node id registered in the plan, in registration
// order. Useful for deterministic full-plan walks (serialization,
// re-estimation).
func (p *Plan) NodeIds() []NodeID {
	out := make([]NodeID, 0, len(p.nodes))
	for i := NodeID(0); i < p.nextId; i++ {
		if _, ok := p.nodes[i]; ok {
			out = append(out, i)
		}
	}
	return out
}

// NoteCollectionUse records that the plan reads (or writes) the named
// collection, for the `collections` section of the serialized plan.
func (p *Plan) NoteCollectionUse(name string, write bool) {
	cu, ok := p.collections[name]
	if !ok {
		p.collections[name] = &CollectionUse{Name: name, Write: write}
		return
	}
	if write {
		cu.Write = true
	}
}

// CollectionUses returns the plan's recorded collection uses, sorted by
// name for deterministic serialization.
func (p *Plan) CollectionUses() []CollectionUse {
	out := make([]CollectionUse, 0, len(p.collections))
	for _, cu := range p.collections {
		out = append(out, *cu)
	}
	// Simple insertion sort: the number of collections in a query plan
	// is always small, and this keeps the package free of an extra
	// "sort" import for a handful of elements.
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && out[j-1].Name > out[j].Name {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

// AddDependency adds d as an input of n, and adds n to d's parents.
// Both nodes must already be registered in this plan.
func (p *Plan) AddDependency(n, d NodeID) error {
	nn, ok := p.nodes[n]
	if !ok {
		return planerrors.ErrInternal.New(fmt.Sprintf("AddDependency: node %d not in plan", n))
	}
	dn, ok := p.nodes[d]
	if !ok {
		return planerrors.ErrInternal.New(fmt.Sprintf("AddDependency: node %d not in plan", d))
	}
	nn.deps = append(nn.deps, d)
	dn.parents = append(dn.parents, n)
	nn.InvalidateEstimate()
	return nil
}

// UnlinkNode removes n, rewiring each of n's parents to depend directly
// on n's own inputs. Fails if n is the root unless allowRoot is true.
// Invalidates every affected node's cost cache.
func (p *Plan) UnlinkNode(id NodeID, allowRoot bool) error {
	n, ok := p.nodes[id]
	if !ok {
		return planerrors.ErrInternal.New(fmt.Sprintf("UnlinkNode: node %d not in plan", id))
	}
	if p.hasRoot && p.rootId == id && !allowRoot {
		return planerrors.ErrInternal.New("UnlinkNode: cannot unlink the plan root")
	}

	parents := append([]NodeID(nil), n.parents...)
	deps := append([]NodeID(nil), n.deps...)

	for _, parentId := range parents {
		parent := p.MustGetNode(parentId)
		newDeps := make([]NodeID, 0, len(parent.deps)-1+len(deps))
		for _, d := range parent.deps {
			if d == id {
				newDeps = append(newDeps, deps...)
				continue
			}
			newDeps = append(newDeps, d)
		}
		parent.deps = newDeps
		parent.InvalidateEstimate()
	}

	for _, depId := range deps {
		dep := p.MustGetNode(depId)
		newParents := make([]NodeID, 0, len(dep.parents))
		replaced := false
		for _, par := range dep.parents {
			if par == id {
				replaced = true
				continue
			}
			newParents = append(newParents, par)
		}
		if replaced {
			newParents = append(newParents, parents...)
		}
		dep.parents = newParents
	}

	delete(p.nodes, id)
	if p.hasRoot && p.rootId == id {
		if len(deps) == 1 {
			p.rootId = deps[0]
		} else {
			p.hasRoot = false
		}
	}
	return nil
}

// ReplaceNode swaps old for new: new must already be registered and have
// no dependencies of its own. new inherits old's dependency list; every
// parent of old is rewired to depend on new instead. Fails if old is the
// plan root.
func (p *Plan) ReplaceNode(oldId, newId NodeID) error {
	oldN, ok := p.nodes[oldId]
	if !ok {
		return planerrors.ErrInternal.New(fmt.Sprintf("ReplaceNode: node %d not in plan", oldId))
	}
	newN, ok := p.nodes[newId]
	if !ok {
		return planerrors.ErrInternal.New(fmt.Sprintf("ReplaceNode: node %d not in plan", newId))
	}
	if len(newN.deps) != 0 {
		return planerrors.ErrInternal.New("ReplaceNode: replacement node must have no dependencies")
	}
	if p.hasRoot && p.rootId == oldId {
		return planerrors.ErrInternal.New("ReplaceNode: cannot replace the plan root")
	}

	newN.deps = append([]NodeID(nil), oldN.deps...)
	for _, depId := range newN.deps {
		dep := p.MustGetNode(depId)
		for i, par := range dep.parents {
			if par == oldId {
				dep.parents[i] = newId
			}
		}
	}

	newN.parents = append([]NodeID(nil), oldN.parents...)
	for _, parentId := range newN.parents {
		parent := p.MustGetNode(parentId)
		for i, d := range parent.deps {
			if d == oldId {
				parent.deps[i] = newId
			}
		}
		parent.InvalidateEstimate()
	}

	delete(p.nodes, oldId)
	return nil
}

// InsertDependency inserts new as the sole dependency of old, with new
// taking old's former (single) dependency as its own. old must have
// exactly one existing dependency.
func (p *Plan) InsertDependency(oldId, newId NodeID) error {
	oldN, ok := p.nodes[oldId]
	if !ok {
		return planerrors.ErrInternal.New(fmt.Sprintf("InsertDependency: node %d not in plan", oldId))
	}
	newN, ok := p.nodes[newId]
	if !ok {
		return planerrors.ErrInternal.New(fmt.Sprintf("InsertDependency: node %d not in plan", newId))
	}
	if len(oldN.deps) != 1 {
		return planerrors.ErrInternal.New("InsertDependency: old node must have exactly one dependency")
	}
	d := oldN.deps[0]
	dep := p.MustGetNode(d)

	for i, par := range dep.parents {
		if par == oldId {
			dep.parents[i] = newId
		}
	}
	newN.deps = []NodeID{d}
	newN.parents = []NodeID{oldId}

	oldN.deps = []NodeID{newId}
	oldN.InvalidateEstimate()
	return nil
}
