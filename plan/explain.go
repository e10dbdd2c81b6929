package plan

import (
	"fmt"
	"strings"
)

// Explain renders p as an indented, human-readable operator tree, deepest
// dependency first — the same order the executor would actually run the
// plan in. Each line names the node's kind, id, estimated cost/cardinality
// (when available), and a short variant-specific summary.
func (p *Plan) Explain() string {
	var sb strings.Builder
	rootId, ok := p.RootId()
	if !ok {
		return "<empty plan>\n"
	}
	p.explainNode(&sb, rootId, 0, make(map[NodeID]bool))
	return sb.String()
}

func (p *Plan) explainNode(sb *strings.Builder, id NodeID, indent int, visited map[NodeID]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	n := p.MustGetNode(id)

	for _, depId := range n.Dependencies() {
		p.explainNode(sb, depId, indent, visited)
	}

	sb.WriteString(strings.Repeat("  ", indent))
	sb.WriteString(n.Kind.String())
	sb.WriteString(fmt.Sprintf(" [%d]", n.Id))
	if c, ok := n.EstimatedCost(); ok {
		items, _ := n.EstimatedNrItems()
		sb.WriteString(fmt.Sprintf("  cost=%.1f items=%d", c, items))
	}
	if summary := n.explainSummary(); summary != "" {
		sb.WriteString("  " + summary)
	}
	sb.WriteString("\n")

	if n.Kind == KindSubquery {
		d := n.Data.(SubqueryData)
		p.explainNode(sb, d.SubplanRoot, indent+1, visited)
	}
}

// explainSummary renders the one-line variant-specific detail Explain
// appends after a node's cost figures.
func (n *Node) explainSummary() string {
	switch n.Kind {
	case KindEnumerateCollection:
		d := n.Data.(EnumerateCollectionData)
		return fmt.Sprintf("%s -> %s", collName(d.Collection), d.OutVar)
	case KindEnumerateList:
		d := n.Data.(EnumerateListData)
		return fmt.Sprintf("%s -> %s", d.InVar, d.OutVar)
	case KindIndexRange:
		d := n.Data.(IndexRangeData)
		idxId := "?"
		if d.Index != nil {
			idxId = d.Index.Id
		}
		return fmt.Sprintf("%s.%s -> %s", collName(d.Collection), idxId, d.OutVar)
	case KindFilter:
		d := n.Data.(FilterData)
		return fmt.Sprintf("%s", d.InVar)
	case KindCalculation:
		d := n.Data.(CalculationData)
		return fmt.Sprintf("-> %s", d.OutVar)
	case KindSubquery:
		d := n.Data.(SubqueryData)
		return fmt.Sprintf("-> %s", d.OutVar)
	case KindSort:
		d := n.Data.(SortData)
		names := make([]string, len(d.Elements))
		for i, e := range d.Elements {
			dir := "ASC"
			if !e.Ascending {
				dir = "DESC"
			}
			names[i] = fmt.Sprintf("%s %s", e.Var, dir)
		}
		return strings.Join(names, ", ")
	case KindLimit:
		d := n.Data.(LimitData)
		return fmt.Sprintf("offset=%d limit=%d", d.Offset, d.Limit)
	case KindReturn:
		d := n.Data.(ReturnData)
		return fmt.Sprintf("%s", d.InVar)
	case KindInsert, KindRemove, KindUpdate, KindReplace:
		d := n.Data.(ModificationData)
		return fmt.Sprintf("%s", collName(d.Collection))
	case KindRemote:
		d := n.Data.(RemoteData)
		return d.ServerId
	default:
		return ""
	}
}

func collName(c interface{ Name() string }) string {
	if c == nil {
		return "?"
	}
	return c.Name()
}
