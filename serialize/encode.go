package serialize

import (
	"encoding/json"

	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/variable"
)

// Encode renders p as its serialized document. appliedRules is the
// optimizer's applied-rule list (Result.AppliedRules); p carries
// everything else.
func Encode(p *plan.Plan, appliedRules []string) ([]byte, error) {
	return json.Marshal(ToDoc(p, appliedRules))
}

// ToDoc builds the in-memory PlanDoc, exported separately from Encode so
// callers that want to post-process before marshaling (e.g. cmd/planshow
// pretty-printing) don't need to round-trip through bytes.
func ToDoc(p *plan.Plan, appliedRules []string) PlanDoc {
	doc := PlanDoc{
		Rules:       append([]string(nil), appliedRules...),
		Collections: collectionDocs(p),
		Variables:   variableDocs(p),
	}
	if rootId, ok := p.RootId(); ok {
		root := p.MustGetNode(rootId)
		doc.EstimatedCost, _ = root.EstimatedCost()
		doc.EstimatedNrItems, _ = root.EstimatedNrItems()
	}
	for _, id := range p.NodeIds() {
		n := p.MustGetNode(id)
		doc.Nodes = append(doc.Nodes, nodeDoc(n))
	}
	return doc
}

func collectionDocs(p *plan.Plan) []CollectionUseDoc {
	var out []CollectionUseDoc
	for _, cu := range p.CollectionUses() {
		typ := "read"
		if cu.Write {
			typ = "write"
		}
		out = append(out, CollectionUseDoc{Name: cu.Name, Type: typ})
	}
	return out
}

func variableDocs(p *plan.Plan) []VariableDoc {
	var out []VariableDoc
	for _, v := range p.Vars.All() {
		out = append(out, varDoc(v))
	}
	return out
}

func varDoc(v *variable.Variable) VariableDoc {
	if v == nil {
		return VariableDoc{}
	}
	return VariableDoc{Id: v.Id, Name: v.Name}
}

func varDocPtr(v *variable.Variable) *VariableDoc {
	if v == nil {
		return nil
	}
	d := varDoc(v)
	return &d
}

func exprDoc(n *ast.Node) *ExprDoc {
	if n == nil {
		return nil
	}
	d := &ExprDoc{
		Kind:           n.Kind.String(),
		Value:          n.Value,
		VariableName:   n.VariableName,
		CollectionName: n.CollectionName,
		Operator:       n.Operator,
		BindParameter:  n.BindParameter,
	}
	for _, c := range n.Children {
		d.Children = append(d.Children, exprDoc(c))
	}
	return d
}

func rangeBoundDoc(b plan.RangeBound) RangeBoundDoc {
	return RangeBoundDoc{
		Attribute:  b.Attribute,
		Expression: exprDoc(b.Expression),
		Inclusive:  b.Inclusive,
		HasBound:   b.HasBound,
	}
}

func rangeInfoDoc(r plan.RangeInfo) RangeInfoDoc {
	return RangeInfoDoc{
		Attribute: r.Attribute,
		Low:       rangeBoundDoc(r.Low),
		High:      rangeBoundDoc(r.High),
		Equality:  r.Equality,
	}
}

func indexDoc(idx *catalog.Index) *IndexDoc {
	if idx == nil {
		return nil
	}
	return &IndexDoc{
		Id:     idx.Id,
		Type:   idx.Type.String(),
		Fields: append([]string(nil), idx.Fields...),
		Unique: idx.Unique,
		Sparse: idx.Sparse,
	}
}

func sortElementDoc(e plan.SortElement) SortElementDoc {
	return SortElementDoc{InVariable: varDoc(e.Var), Ascending: e.Ascending}
}

func modificationOptionsDoc(o plan.ModificationOptions) *ModificationOptionsDoc {
	return &ModificationOptionsDoc{
		WaitForSync:  o.WaitForSync,
		IgnoreErrors: o.IgnoreErrors,
		KeepNull:     o.KeepNull,
		MergeObjects: o.MergeObjects,
	}
}

func u64ptr(v uint64) *uint64 { return &v }

// nodeDoc builds one `nodes` entry, populating only the fields n's
// Kind's variant defines.
func nodeDoc(n *plan.Node) NodeDoc {
	doc := NodeDoc{
		Type:         n.Kind.String(),
		Id:           uint64(n.Id),
		Dependencies: depIds(n),
	}
	doc.EstimatedCost, _ = n.EstimatedCost()
	doc.EstimatedNrItems, _ = n.EstimatedNrItems()

	switch n.Kind {
	case plan.KindEnumerateCollection:
		d := n.Data.(plan.EnumerateCollectionData)
		doc.Collection = collName(d.Collection)
		doc.OutVar = varDocPtr(d.OutVar)
		doc.Random = d.Random
	case plan.KindEnumerateList:
		d := n.Data.(plan.EnumerateListData)
		doc.InVar = varDocPtr(d.InVar)
		doc.OutVar = varDocPtr(d.OutVar)
	case plan.KindIndexRange:
		d := n.Data.(plan.IndexRangeData)
		doc.Collection = collName(d.Collection)
		doc.OutVar = varDocPtr(d.OutVar)
		doc.Index = indexDoc(d.Index)
		doc.Reverse = d.Reverse
		for _, disjunct := range d.Ranges {
			var conj []RangeInfoDoc
			for _, r := range disjunct {
				conj = append(conj, rangeInfoDoc(r))
			}
			doc.Ranges = append(doc.Ranges, conj)
		}
	case plan.KindFilter:
		d := n.Data.(plan.FilterData)
		doc.InVar = varDocPtr(d.InVar)
	case plan.KindCalculation:
		d := n.Data.(plan.CalculationData)
		doc.Expression = exprDoc(d.Expression)
		doc.OutVar = varDocPtr(d.OutVar)
		doc.ConditionVar = varDocPtr(d.ConditionVar)
	case plan.KindSubquery:
		d := n.Data.(plan.SubqueryData)
		doc.SubplanRoot = u64ptr(uint64(d.SubplanRoot))
		doc.OutVar = varDocPtr(d.OutVar)
	case plan.KindSort:
		d := n.Data.(plan.SortData)
		for _, e := range d.Elements {
			doc.Elements = append(doc.Elements, sortElementDoc(e))
		}
		doc.Stable = d.Stable
	case plan.KindCollect:
		d := n.Data.(plan.CollectData)
		for _, gp := range d.GroupPairs {
			doc.GroupPairs = append(doc.GroupPairs, GroupPairDoc{Out: varDoc(gp.Out), In: varDoc(gp.In)})
		}
		doc.ExpressionVar = varDocPtr(d.ExpressionVar)
		doc.OutVar = varDocPtr(d.OutVar)
		for _, v := range d.KeepVars {
			doc.KeepVars = append(doc.KeepVars, varDoc(v))
		}
		doc.CountOnly = d.CountOnly
	case plan.KindLimit:
		d := n.Data.(plan.LimitData)
		doc.Offset = u64ptr(d.Offset)
		doc.Limit = u64ptr(d.Limit)
		doc.FullCount = d.FullCount
	case plan.KindReturn:
		d := n.Data.(plan.ReturnData)
		doc.InVar = varDocPtr(d.InVar)
	case plan.KindInsert, plan.KindRemove, plan.KindUpdate, plan.KindReplace:
		d := n.Data.(plan.ModificationData)
		doc.Collection = collName(d.Collection)
		doc.Options = modificationOptionsDoc(d.Options)
		doc.InDocVar = varDocPtr(d.InDocVar)
		doc.InKeyVar = varDocPtr(d.InKeyVar)
		doc.OutVar = varDocPtr(d.OutVar)
		doc.ReturnNewValues = d.ReturnNewValues
	case plan.KindDistribute:
		d := n.Data.(plan.DistributeData)
		doc.ShardVar = varDocPtr(d.ShardVar)
	case plan.KindGather:
		d := n.Data.(plan.GatherData)
		for _, e := range d.SortElements {
			doc.SortElements = append(doc.SortElements, sortElementDoc(e))
		}
	case plan.KindRemote:
		d := n.Data.(plan.RemoteData)
		doc.ServerId = d.ServerId
	}
	return doc
}

func depIds(n *plan.Node) []uint64 {
	deps := n.Dependencies()
	out := make([]uint64, len(deps))
	for i, d := range deps {
		out[i] = uint64(d)
	}
	return out
}

func collName(c catalog.Collection) *string {
	if c == nil {
		return nil
	}
	name := c.Name()
	return &name
}
