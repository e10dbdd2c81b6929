package serialize

import (
	"encoding/json"
	"fmt"

	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/planerrors"
	"github.com/ariadnedb/aqlplan/variable"
)

// Decode parses a serialized plan document and rebuilds an equivalent
// plan.Plan against a fresh variable registry, resolving every
// collection/index reference against collections. It returns the plan
// and the document's recorded applied-rule list.
//
// Node and variable ids in the rebuilt plan are reassigned by the fresh
// registry/arena rather than forced to match the document's ids exactly
// — the document only carries `{id, name}` for a variable, with no
// user_defined flag, so a byte-exact id round trip isn't meaningful
// across a process boundary anyway. What is preserved exactly is the
// graph's shape and every variant-specific field.
func Decode(data []byte, collections catalog.Collections) (*plan.Plan, []string, error) {
	var doc PlanDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, planerrors.ErrInternal.New(err.Error())
	}
	return FromDoc(doc, collections)
}

// FromDoc is Decode's split-out second half, for callers that already
// have a parsed PlanDoc (e.g. built in-process by ToDoc for a test).
func FromDoc(doc PlanDoc, collections catalog.Collections) (*plan.Plan, []string, error) {
	reg := variable.NewRegistry()
	varByOldId := make(map[uint64]*variable.Variable, len(doc.Variables))
	for _, vd := range doc.Variables {
		varByOldId[vd.Id] = reg.CreateTemporaryVariable(vd.Name)
	}

	p := plan.New(reg)
	nodeByOldId := make(map[uint64]*plan.Node, len(doc.Nodes))

	for _, nd := range doc.Nodes {
		kind, ok := kindFromString(nd.Type)
		if !ok {
			return nil, nil, planerrors.ErrUnsupportedNodeType.New(nd.Type)
		}
		n := p.RegisterNode(kind, nil)
		nodeByOldId[nd.Id] = n
	}

	for _, nd := range doc.Nodes {
		n := nodeByOldId[nd.Id]
		data, err := buildData(nd, n.Kind, collections, varByOldId, nodeByOldId)
		if err != nil {
			return nil, nil, err
		}
		n.Data = data
		n.SetEstimate(nd.EstimatedCost, nd.EstimatedNrItems)
	}

	referenced := make(map[uint64]bool, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		n := nodeByOldId[nd.Id]
		for _, depOldId := range nd.Dependencies {
			dep, ok := nodeByOldId[depOldId]
			if !ok {
				return nil, nil, planerrors.ErrInternal.New(fmt.Sprintf("dependency %d not found", depOldId))
			}
			if err := p.AddDependency(n.Id, dep.Id); err != nil {
				return nil, nil, err
			}
			referenced[depOldId] = true
		}
		if nd.SubplanRoot != nil {
			referenced[*nd.SubplanRoot] = true
		}
	}

	for _, nd := range doc.Nodes {
		if !referenced[nd.Id] {
			p.SetRoot(nodeByOldId[nd.Id].Id)
			break
		}
	}
	for _, cu := range doc.Collections {
		p.NoteCollectionUse(cu.Name, cu.Type == "write")
	}

	return p, append([]string(nil), doc.Rules...), nil
}

func resolveVar(varByOldId map[uint64]*variable.Variable, d *VariableDoc) *variable.Variable {
	if d == nil {
		return nil
	}
	return varByOldId[d.Id]
}

func resolveVars(varByOldId map[uint64]*variable.Variable, ds []VariableDoc) []*variable.Variable {
	out := make([]*variable.Variable, len(ds))
	for i := range ds {
		out[i] = resolveVar(varByOldId, &ds[i])
	}
	return out
}

func sortElementFromDoc(varByOldId map[uint64]*variable.Variable, d SortElementDoc) plan.SortElement {
	return plan.SortElement{Var: resolveVar(varByOldId, &d.InVariable), Ascending: d.Ascending}
}

func exprFromDoc(d *ExprDoc) *ast.Node {
	if d == nil {
		return nil
	}
	kind, ok := astKindFromString(d.Kind)
	if !ok {
		return nil
	}
	n := &ast.Node{
		Kind:           kind,
		Value:          d.Value,
		VariableName:   d.VariableName,
		CollectionName: d.CollectionName,
		Operator:       d.Operator,
		BindParameter:  d.BindParameter,
	}
	for _, c := range d.Children {
		n.Children = append(n.Children, exprFromDoc(c))
	}
	return n
}

func rangeBoundFromDoc(d RangeBoundDoc) plan.RangeBound {
	return plan.RangeBound{
		Attribute:  d.Attribute,
		Expression: exprFromDoc(d.Expression),
		Inclusive:  d.Inclusive,
		HasBound:   d.HasBound,
	}
}

func rangeInfoFromDoc(d RangeInfoDoc) plan.RangeInfo {
	return plan.RangeInfo{
		Attribute: d.Attribute,
		Low:       rangeBoundFromDoc(d.Low),
		High:      rangeBoundFromDoc(d.High),
		Equality:  d.Equality,
	}
}

func resolveCollection(collections catalog.Collections, name *string) (catalog.Collection, error) {
	if name == nil {
		return nil, nil
	}
	c, ok := collections.Get(*name)
	if !ok {
		return nil, planerrors.ErrNoSuchCollection.New(*name)
	}
	return c, nil
}

func resolveIndex(c catalog.Collection, d *IndexDoc) (*catalog.Index, error) {
	if d == nil {
		return nil, nil
	}
	if c == nil {
		return nil, planerrors.ErrNoSuchIndex.New(d.Id, "<nil>")
	}
	idx, ok := c.GetIndex(d.Id)
	if !ok {
		return nil, planerrors.ErrNoSuchIndex.New(d.Id, c.Name())
	}
	return idx, nil
}

func modificationOptionsFromDoc(d *ModificationOptionsDoc) plan.ModificationOptions {
	if d == nil {
		return plan.ModificationOptions{}
	}
	return plan.ModificationOptions{
		WaitForSync:  d.WaitForSync,
		IgnoreErrors: d.IgnoreErrors,
		KeepNull:     d.KeepNull,
		MergeObjects: d.MergeObjects,
	}
}

func buildData(nd NodeDoc, kind plan.Kind, collections catalog.Collections, varByOldId map[uint64]*variable.Variable, nodeByOldId map[uint64]*plan.Node) (any, error) {
	switch kind {
	case plan.KindSingleton:
		return nil, nil
	case plan.KindEnumerateCollection:
		c, err := resolveCollection(collections, nd.Collection)
		if err != nil {
			return nil, err
		}
		return plan.EnumerateCollectionData{Collection: c, OutVar: resolveVar(varByOldId, nd.OutVar), Random: nd.Random}, nil
	case plan.KindEnumerateList:
		return plan.EnumerateListData{InVar: resolveVar(varByOldId, nd.InVar), OutVar: resolveVar(varByOldId, nd.OutVar)}, nil
	case plan.KindIndexRange:
		c, err := resolveCollection(collections, nd.Collection)
		if err != nil {
			return nil, err
		}
		idx, err := resolveIndex(c, nd.Index)
		if err != nil {
			return nil, err
		}
		var ranges [][]plan.RangeInfo
		for _, disjunct := range nd.Ranges {
			var conj []plan.RangeInfo
			for _, r := range disjunct {
				conj = append(conj, rangeInfoFromDoc(r))
			}
			ranges = append(ranges, conj)
		}
		return plan.IndexRangeData{Collection: c, OutVar: resolveVar(varByOldId, nd.OutVar), Index: idx, Ranges: ranges, Reverse: nd.Reverse}, nil
	case plan.KindFilter:
		return plan.FilterData{InVar: resolveVar(varByOldId, nd.InVar)}, nil
	case plan.KindCalculation:
		return plan.CalculationData{
			Expression:   exprFromDoc(nd.Expression),
			OutVar:       resolveVar(varByOldId, nd.OutVar),
			ConditionVar: resolveVar(varByOldId, nd.ConditionVar),
		}, nil
	case plan.KindSubquery:
		var subRoot plan.NodeID
		if nd.SubplanRoot != nil {
			if n, ok := nodeByOldId[*nd.SubplanRoot]; ok {
				subRoot = n.Id
			}
		}
		return plan.SubqueryData{SubplanRoot: subRoot, OutVar: resolveVar(varByOldId, nd.OutVar)}, nil
	case plan.KindSort:
		var elems []plan.SortElement
		for _, e := range nd.Elements {
			elems = append(elems, sortElementFromDoc(varByOldId, e))
		}
		return plan.SortData{Elements: elems, Stable: nd.Stable}, nil
	case plan.KindCollect:
		var pairs []plan.GroupPair
		for _, gp := range nd.GroupPairs {
			pairs = append(pairs, plan.GroupPair{Out: resolveVar(varByOldId, &gp.Out), In: resolveVar(varByOldId, &gp.In)})
		}
		return plan.CollectData{
			GroupPairs:    pairs,
			ExpressionVar: resolveVar(varByOldId, nd.ExpressionVar),
			OutVar:        resolveVar(varByOldId, nd.OutVar),
			KeepVars:      resolveVars(varByOldId, nd.KeepVars),
			CountOnly:     nd.CountOnly,
		}, nil
	case plan.KindLimit:
		var offset, limit uint64
		if nd.Offset != nil {
			offset = *nd.Offset
		}
		if nd.Limit != nil {
			limit = *nd.Limit
		}
		return plan.LimitData{Offset: offset, Limit: limit, FullCount: nd.FullCount}, nil
	case plan.KindReturn:
		return plan.ReturnData{InVar: resolveVar(varByOldId, nd.InVar)}, nil
	case plan.KindInsert, plan.KindRemove, plan.KindUpdate, plan.KindReplace:
		c, err := resolveCollection(collections, nd.Collection)
		if err != nil {
			return nil, err
		}
		return plan.ModificationData{
			Collection:      c,
			Options:         modificationOptionsFromDoc(nd.Options),
			InDocVar:        resolveVar(varByOldId, nd.InDocVar),
			InKeyVar:        resolveVar(varByOldId, nd.InKeyVar),
			OutVar:          resolveVar(varByOldId, nd.OutVar),
			ReturnNewValues: nd.ReturnNewValues,
		}, nil
	case plan.KindScatter:
		return plan.ScatterData{}, nil
	case plan.KindDistribute:
		return plan.DistributeData{ShardVar: resolveVar(varByOldId, nd.ShardVar)}, nil
	case plan.KindGather:
		var elems []plan.SortElement
		for _, e := range nd.SortElements {
			elems = append(elems, sortElementFromDoc(varByOldId, e))
		}
		return plan.GatherData{SortElements: elems}, nil
	case plan.KindRemote:
		return plan.RemoteData{ServerId: nd.ServerId}, nil
	case plan.KindNoResults:
		return plan.NoResultsData{}, nil
	default:
		return nil, planerrors.ErrUnsupportedNodeType.New(nd.Type)
	}
}
