package plan

import "github.com/ariadnedb/aqlplan/variable"

// cloneState threads the bookkeeping a deep clone needs across the
// recursive walk: a memo of already-cloned node ids (a DAG may reach the
// same node through more than one path) and the variable remap to apply
// when withProperties is requested.
type cloneState struct {
	dest     *Plan
	memo     map[NodeID]NodeID
	varRemap map[uint64]*variable.Variable // nil when sharing variables
}

func (cs *cloneState) remap(v *variable.Variable) *variable.Variable {
	if v == nil || cs.varRemap == nil {
		return v
	}
	if nv, ok := cs.varRemap[v.Id]; ok {
		return nv
	}
	return v
}

// CloneSubtree deep-copies the node id (and, if withDeps, everything
// transitively upstream of it) from p into dest, returning the id of the
// copy in dest. varRemap controls whether variables are rewritten
// to fresh ids (varRemap non-nil, produced by variable.Registry.Fork) or
// shared with the source plan (varRemap nil): a clone either shares
// variables (shallow) or creates parallel variable ids (deep, used when
// forking plans).
func (p *Plan) CloneSubtree(dest *Plan, id NodeID, withDeps bool, varRemap map[uint64]*variable.Variable) NodeID {
	cs := &cloneState{dest: dest, memo: make(map[NodeID]NodeID), varRemap: varRemap}
	return p.cloneSubtree(cs, id, withDeps)
}

func (p *Plan) cloneSubtree(cs *cloneState, id NodeID, withDeps bool) NodeID {
	if nid, ok := cs.memo[id]; ok {
		return nid
	}
	n := p.MustGetNode(id)
	data := p.cloneData(cs, n)
	newNode := cs.dest.RegisterNode(n.Kind, data)
	cs.memo[id] = newNode.Id

	if withDeps {
		for _, depId := range n.deps {
			newDep := p.cloneSubtree(cs, depId, true)
			// Ignore the error: both ids were just registered in dest.
			_ = cs.dest.AddDependency(newNode.Id, newDep)
		}
	}
	return newNode.Id
}

// cloneData deep-copies a node's variant payload, remapping variables per
// cs.varRemap and, for Subquery nodes, recursively cloning the owned
// sub-plan into the same destination plan: a Subquery node owns a
// pointer to the root of a sub-plan that lives within the same plan
// object.
func (p *Plan) cloneData(cs *cloneState, n *Node) any {
	switch n.Kind {
	case KindSingleton:
		return nil
	case KindEnumerateCollection:
		d := n.Data.(EnumerateCollectionData)
		return EnumerateCollectionData{Collection: d.Collection, OutVar: cs.remap(d.OutVar), Random: d.Random}
	case KindEnumerateList:
		d := n.Data.(EnumerateListData)
		return EnumerateListData{InVar: cs.remap(d.InVar), OutVar: cs.remap(d.OutVar)}
	case KindIndexRange:
		d := n.Data.(IndexRangeData)
		ranges := make([][]RangeInfo, len(d.Ranges))
		for i, disjunct := range d.Ranges {
			ranges[i] = append([]RangeInfo(nil), disjunct...)
		}
		return IndexRangeData{Collection: d.Collection, OutVar: cs.remap(d.OutVar), Index: d.Index, Ranges: ranges, Reverse: d.Reverse}
	case KindFilter:
		d := n.Data.(FilterData)
		return FilterData{InVar: cs.remap(d.InVar)}
	case KindCalculation:
		d := n.Data.(CalculationData)
		return CalculationData{Expression: d.Expression, OutVar: cs.remap(d.OutVar), ConditionVar: cs.remap(d.ConditionVar)}
	case KindSubquery:
		d := n.Data.(SubqueryData)
		newSubRoot := p.cloneSubtree(cs, d.SubplanRoot, true)
		return SubqueryData{SubplanRoot: newSubRoot, OutVar: cs.remap(d.OutVar)}
	case KindSort:
		d := n.Data.(SortData)
		elems := make([]SortElement, len(d.Elements))
		for i, e := range d.Elements {
			elems[i] = SortElement{Var: cs.remap(e.Var), Ascending: e.Ascending}
		}
		return SortData{Elements: elems, Stable: d.Stable}
	case KindCollect:
		d := n.Data.(CollectData)
		pairs := make([]GroupPair, len(d.GroupPairs))
		for i, pr := range d.GroupPairs {
			pairs[i] = GroupPair{Out: cs.remap(pr.Out), In: cs.remap(pr.In)}
		}
		keep := make([]*variable.Variable, len(d.KeepVars))
		for i, v := range d.KeepVars {
			keep[i] = cs.remap(v)
		}
		return CollectData{
			GroupPairs:    pairs,
			ExpressionVar: cs.remap(d.ExpressionVar),
			OutVar:        cs.remap(d.OutVar),
			KeepVars:      keep,
			CountOnly:     d.CountOnly,
		}
	case KindLimit:
		d := n.Data.(LimitData)
		return d
	case KindReturn:
		d := n.Data.(ReturnData)
		return ReturnData{InVar: cs.remap(d.InVar)}
	case KindInsert, KindRemove, KindUpdate, KindReplace:
		d := n.Data.(ModificationData)
		return ModificationData{
			Collection:      d.Collection,
			Options:         d.Options,
			InDocVar:        cs.remap(d.InDocVar),
			InKeyVar:        cs.remap(d.InKeyVar),
			OutVar:          cs.remap(d.OutVar),
			ReturnNewValues: d.ReturnNewValues,
		}
	case KindScatter:
		return ScatterData{}
	case KindDistribute:
		d := n.Data.(DistributeData)
		return DistributeData{ShardVar: cs.remap(d.ShardVar)}
	case KindGather:
		d := n.Data.(GatherData)
		elems := make([]SortElement, len(d.SortElements))
		for i, e := range d.SortElements {
			elems[i] = SortElement{Var: cs.remap(e.Var), Ascending: e.Ascending}
		}
		return GatherData{SortElements: elems}
	case KindRemote:
		return n.Data.(RemoteData)
	case KindNoResults:
		return NoResultsData{}
	default:
		return n.Data
	}
}

// Clone deep-copies the entire plan, including every subquery sub-plan
// reachable from the root. When withProperties is true, a fresh variable
// registry is forked and all variable references in the copy point at
// the new identities (a "deep" clone, used when forking the
// optimizer's plan frontier); otherwise the clone shares this plan's
// variable registry (shallow clone).
func (p *Plan) Clone(withProperties bool) *Plan {
	var destVars *variable.Registry
	var remap map[uint64]*variable.Variable
	if withProperties {
		destVars, remap = p.Vars.Fork()
	} else {
		destVars = p.Vars
	}
	dest := New(destVars)
	for name, cu := range p.collections {
		dest.collections[name] = &CollectionUse{Name: cu.Name, Write: cu.Write}
	}
	if rootId, ok := p.RootId(); ok {
		newRoot := p.CloneSubtree(dest, rootId, true, remap)
		dest.SetRoot(newRoot)
	}
	return dest
}
