package plan

import (
	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/variable"
)

// VarSetByMap maps a variable id to the node that produces it. The usage
// analyzer (package usage) populates this during its post-order pass;
// the cost estimator (package cost) consumes it to look through an
// EnumerateList's input variable to the node that set it.
type VarSetByMap map[uint64]NodeID

// VariableSet is an ordered-by-insertion set of variables, keyed by id.
// Used as the return type for VariablesSetHere/VariablesUsedHere so
// callers get deterministic iteration without re-sorting every time.
type VariableSet struct {
	order []uint64
	byId  map[uint64]*variable.Variable
}

func newVariableSet() *VariableSet {
	return &VariableSet{byId: make(map[uint64]*variable.Variable)}
}

// NewVariableSet returns an empty VariableSet, exported for callers in
// other packages (usage, optimizer) that build up sets across node
// boundaries.
func NewVariableSet() *VariableSet { return newVariableSet() }

func (s *VariableSet) add(v *variable.Variable) {
	if v == nil {
		return
	}
	if _, ok := s.byId[v.Id]; ok {
		return
	}
	s.byId[v.Id] = v
	s.order = append(s.order, v.Id)
}

func (s *VariableSet) addAll(vs []*variable.Variable) {
	for _, v := range vs {
		s.add(v)
	}
}

// Add inserts v into the set if not already present.
func (s *VariableSet) Add(v *variable.Variable) { s.add(v) }

// AddAll inserts every variable in vs into the set.
func (s *VariableSet) AddAll(vs []*variable.Variable) { s.addAll(vs) }

// Union returns a new set containing every member of s and other.
func (s *VariableSet) Union(other *VariableSet) *VariableSet {
	out := newVariableSet()
	if s != nil {
		out.addAll(s.List())
	}
	if other != nil {
		out.addAll(other.List())
	}
	return out
}

// List returns the set's members in insertion order.
func (s *VariableSet) List() []*variable.Variable {
	out := make([]*variable.Variable, len(s.order))
	for i, id := range s.order {
		out[i] = s.byId[id]
	}
	return out
}

// Contains reports whether a variable with the given id is in the set.
func (s *VariableSet) Contains(id uint64) bool {
	_, ok := s.byId[id]
	return ok
}

// Len reports the number of members in the set.
func (s *VariableSet) Len() int { return len(s.order) }

func resolveNames(names []string, reg *variable.Registry) []*variable.Variable {
	out := make([]*variable.Variable, 0, len(names))
	for _, name := range names {
		if v := reg.LookupByName(name); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func freeVarsOfBound(b RangeBound, reg *variable.Registry) []*variable.Variable {
	if !b.HasBound || b.Expression == nil {
		return nil
	}
	return resolveNames(ast.FreeVariableNames(b.Expression), reg)
}

// VariablesSetHere returns the variables a node of this kind
// introduces.
func VariablesSetHere(n *Node) *VariableSet {
	out := newVariableSet()
	switch n.Kind {
	case KindEnumerateCollection:
		d := n.Data.(EnumerateCollectionData)
		out.add(d.OutVar)
	case KindEnumerateList:
		d := n.Data.(EnumerateListData)
		out.add(d.OutVar)
	case KindIndexRange:
		d := n.Data.(IndexRangeData)
		out.add(d.OutVar)
	case KindCalculation:
		d := n.Data.(CalculationData)
		out.add(d.OutVar)
	case KindSubquery:
		d := n.Data.(SubqueryData)
		out.add(d.OutVar)
	case KindCollect:
		d := n.Data.(CollectData)
		for _, p := range d.GroupPairs {
			out.add(p.Out)
		}
		out.add(d.OutVar)
	case KindInsert, KindRemove, KindUpdate, KindReplace:
		d := n.Data.(ModificationData)
		out.add(d.OutVar)
	}
	return out
}

// VariablesUsedHere returns the variables a node of this kind consumes
// directly (not counting what its dependencies consume). reg resolves
// the names an expression's free variables mention back to stable
// Variable identities.
func VariablesUsedHere(n *Node, reg *variable.Registry) *VariableSet {
	out := newVariableSet()
	switch n.Kind {
	case KindEnumerateList:
		d := n.Data.(EnumerateListData)
		out.add(d.InVar)
	case KindIndexRange:
		d := n.Data.(IndexRangeData)
		for _, disjunct := range d.Ranges {
			for _, r := range disjunct {
				out.addAll(freeVarsOfBound(r.Low, reg))
				out.addAll(freeVarsOfBound(r.High, reg))
			}
		}
	case KindFilter:
		d := n.Data.(FilterData)
		out.add(d.InVar)
	case KindCalculation:
		d := n.Data.(CalculationData)
		out.addAll(resolveNames(ast.FreeVariableNames(d.Expression), reg))
		out.add(d.ConditionVar)
	case KindSort:
		d := n.Data.(SortData)
		for _, e := range d.Elements {
			out.add(e.Var)
		}
	case KindCollect:
		d := n.Data.(CollectData)
		for _, p := range d.GroupPairs {
			out.add(p.In)
		}
		out.add(d.ExpressionVar)
		for _, v := range d.KeepVars {
			out.add(v)
		}
	case KindReturn:
		d := n.Data.(ReturnData)
		out.add(d.InVar)
	case KindInsert, KindRemove:
		d := n.Data.(ModificationData)
		out.add(d.InDocVar)
		out.add(d.InKeyVar)
	case KindUpdate, KindReplace:
		d := n.Data.(ModificationData)
		out.add(d.InDocVar)
		out.add(d.InKeyVar)
	case KindDistribute:
		d := n.Data.(DistributeData)
		out.add(d.ShardVar)
	case KindSubquery:
		// Free vars of the sub-plan minus vars produced inside it. The
		// usage analyzer computes this against the sub-plan's own
		// analysis result rather than duplicating that walk here; see
		// usage.subqueryFreeVars.
	}
	return out
}
