package optimizer

import (
	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/plan"
)

// DefaultRules returns the built-in rewrite rule set, registered with
// the levels a reader would expect for a pass-ordered optimizer: cheap
// structural clean-ups first, index selection in the middle, physical
// reshuffling last.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "removeTrivialFilters", Level: 10, EnabledByDefault: true, Apply: removeTrivialFilters},
		{Name: "moveCalculationsUpstream", Level: 20, EnabledByDefault: true, Apply: moveCalculationsUpstream},
		{Name: "removeUnusedCalculations", Level: 30, EnabledByDefault: true, Apply: removeUnusedCalculations},
		{Name: "useIndexForFilter", Level: 40, EnabledByDefault: true, Apply: useIndexForFilter},
		{Name: "useIndexForSort", Level: 50, EnabledByDefault: true, Apply: useIndexForSort},
		{Name: "pushLimitBelowSort", Level: 60, EnabledByDefault: true, Apply: pushLimitBelowSort},
	}
}

func unchanged(p *plan.Plan) ([]*plan.Plan, error) { return []*plan.Plan{p}, nil }

func findSetter(p *plan.Plan, varId uint64) (plan.NodeID, bool) {
	for _, id := range p.NodeIds() {
		n, _ := p.GetNode(id)
		for _, v := range plan.VariablesSetHere(n).List() {
			if v.Id == varId {
				return id, true
			}
		}
	}
	return 0, false
}

func constBool(e *ast.Node) (value bool, ok bool) {
	if e == nil || e.Kind != ast.KindValue {
		return false, false
	}
	b, isBool := e.Value.(bool)
	return b, isBool
}

// removeTrivialFilters drops a Filter node whose input variable was set
// by a Calculation over a constant-true expression, and replaces the
// Filter node with a NoResults node when the constant is false (the
// nodes downstream of the Filter stay; if the Filter was the root,
// NoResults becomes the new root).
func removeTrivialFilters(ctx *Context, p *plan.Plan) ([]*plan.Plan, error) {
	for _, id := range p.NodeIds() {
		n, ok := p.GetNode(id)
		if !ok || n.Kind != plan.KindFilter {
			continue
		}
		d := n.Data.(plan.FilterData)
		setterId, ok := findSetter(p, d.InVar.Id)
		if !ok {
			continue
		}
		setter := p.MustGetNode(setterId)
		if setter.Kind != plan.KindCalculation {
			continue
		}
		calcData := setter.Data.(plan.CalculationData)
		b, isConst := constBool(calcData.Expression)
		if !isConst {
			continue
		}

		if b {
			if err := p.UnlinkNode(id, true); err != nil {
				continue
			}
			return []*plan.Plan{p}, nil
		}

		rootId, isRoot := p.RootId()
		isRoot = isRoot && rootId == id
		noResults := p.RegisterNode(plan.KindNoResults, plan.NoResultsData{})
		if isRoot {
			if err := p.UnlinkNode(id, true); err != nil {
				continue
			}
			p.SetRoot(noResults.Id)
		} else {
			if err := p.ReplaceNode(id, noResults.Id); err != nil {
				continue
			}
		}
		return []*plan.Plan{p}, nil
	}
	return unchanged(p)
}

// moveCalculationsUpstream hoists a Calculation node past its immediate
// single dependency when that dependency sets no variable the
// calculation needs and is neither a Filter (which may prune rows the
// calculation should never have seen) nor a modification node.
func moveCalculationsUpstream(ctx *Context, p *plan.Plan) ([]*plan.Plan, error) {
	for _, id := range p.NodeIds() {
		n, ok := p.GetNode(id)
		if !ok || n.Kind != plan.KindCalculation {
			continue
		}
		deps := n.Dependencies()
		if len(deps) != 1 {
			continue
		}
		below := p.MustGetNode(deps[0])
		if below.Kind == plan.KindFilter || below.IsModification() {
			continue
		}
		belowDeps := below.Dependencies()
		if len(belowDeps) != 1 {
			continue
		}
		needed := plan.VariablesUsedHere(n, p.Vars)
		if intersects(needed, plan.VariablesSetHere(below)) {
			continue
		}

		if err := p.UnlinkNode(id, true); err != nil {
			continue
		}
		moved := p.RegisterNode(n.Kind, n.Data)
		if err := p.InsertDependency(below.Id, moved.Id); err != nil {
			continue
		}
		return []*plan.Plan{p}, nil
	}
	return unchanged(p)
}

func intersects(a, b *plan.VariableSet) bool {
	for _, v := range a.List() {
		if b.Contains(v.Id) {
			return true
		}
	}
	return false
}

// removeUnusedCalculations drops a Calculation node whose out variable is
// never referenced downstream, provided its expression cannot throw.
// Conservatively, only literal/reference/array/object/operator
// expressions are considered non-throwing here — function calls are
// assumed able to throw and are left alone.
func removeUnusedCalculations(ctx *Context, p *plan.Plan) ([]*plan.Plan, error) {
	for _, id := range p.NodeIds() {
		n, ok := p.GetNode(id)
		if !ok || n.Kind != plan.KindCalculation {
			continue
		}
		if n.VarsUsedLater() == nil {
			continue
		}
		d := n.Data.(plan.CalculationData)
		if d.OutVar == nil {
			continue
		}
		if _, used := n.VarsUsedLater()[d.OutVar.Id]; used {
			continue
		}
		if !cannotThrow(d.Expression) {
			continue
		}
		if err := p.UnlinkNode(id, true); err != nil {
			continue
		}
		return []*plan.Plan{p}, nil
	}
	return unchanged(p)
}

func cannotThrow(e *ast.Node) bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case ast.KindValue, ast.KindReference, ast.KindBinaryOp, ast.KindUnaryOp, ast.KindArray, ast.KindObject, ast.KindObjectElement:
		for _, c := range e.Children {
			if !cannotThrow(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// useIndexForFilter replaces EnumerateCollection + Filter(equality on an
// indexed attribute) with IndexRange. The Filter may sit directly on the
// EnumerateCollection or on the Calculation that computes its condition.
func useIndexForFilter(ctx *Context, p *plan.Plan) ([]*plan.Plan, error) {
	for _, id := range p.NodeIds() {
		filterNode, ok := p.GetNode(id)
		if !ok || filterNode.Kind != plan.KindFilter {
			continue
		}
		deps := filterNode.Dependencies()
		if len(deps) != 1 {
			continue
		}
		enum := p.MustGetNode(deps[0])
		if enum.Kind == plan.KindCalculation {
			// The builder computes the condition in a Calculation
			// beneath the Filter; look through it.
			calcDeps := enum.Dependencies()
			if len(calcDeps) != 1 {
				continue
			}
			enum = p.MustGetNode(calcDeps[0])
		}
		if enum.Kind != plan.KindEnumerateCollection {
			continue
		}
		filterData := filterNode.Data.(plan.FilterData)
		setterId, ok := findSetter(p, filterData.InVar.Id)
		if !ok {
			continue
		}
		setter := p.MustGetNode(setterId)
		if setter.Kind != plan.KindCalculation {
			continue
		}
		calc := setter.Data.(plan.CalculationData)
		attr, rhs, ok := equalityOnAttribute(calc.Expression)
		if !ok {
			continue
		}
		enumData := enum.Data.(plan.EnumerateCollectionData)
		idx := findEqualityIndex(enumData.Collection, attr)
		if idx == nil {
			continue
		}

		rangeInfo := plan.RangeInfo{
			Attribute: attr,
			Low:       plan.RangeBound{Attribute: attr, Expression: rhs, Inclusive: true, HasBound: true},
			High:      plan.RangeBound{Attribute: attr, Expression: rhs, Inclusive: true, HasBound: true},
			Equality:  true,
		}
		idxNode := p.RegisterNode(plan.KindIndexRange, plan.IndexRangeData{
			Collection: enumData.Collection,
			OutVar:     enumData.OutVar,
			Index:      idx,
			Ranges:     [][]plan.RangeInfo{{rangeInfo}},
		})
		if err := p.ReplaceNode(enum.Id, idxNode.Id); err != nil {
			continue
		}
		if err := p.UnlinkNode(id, true); err != nil {
			continue
		}
		return []*plan.Plan{p}, nil
	}
	return unchanged(p)
}

// equalityOnAttribute recognizes `doc.attr == <expr>` (or the reflexive
// `<expr> == doc.attr`) and reports the attribute path and the other
// side's expression.
func equalityOnAttribute(e *ast.Node) (attr string, rhs *ast.Node, ok bool) {
	if e == nil || e.Kind != ast.KindBinaryOp || e.Operator != "==" || len(e.Children) != 2 {
		return "", nil, false
	}
	lhs, rhsNode := e.Children[0], e.Children[1]
	if a, ok := attributeOf(lhs); ok {
		return a, rhsNode, true
	}
	if a, ok := attributeOf(rhsNode); ok {
		return a, lhs, true
	}
	return "", nil, false
}

func attributeOf(n *ast.Node) (string, bool) {
	if n != nil && n.Kind == ast.KindAttributeAccess && n.Operator != "" {
		return n.Operator, true
	}
	return "", false
}

func findEqualityIndex(c catalog.Collection, attr string) *catalog.Index {
	if c == nil {
		return nil
	}
	for _, idx := range c.GetIndexes() {
		if len(idx.Fields) == 1 && idx.Fields[0] == attr &&
			(idx.Type == catalog.HASH || idx.Type == catalog.SKIPLIST || idx.Type == catalog.PRIMARY || idx.Type == catalog.EDGE) {
			return idx
		}
	}
	return nil
}

// useIndexForSort eliminates a Sort node when its sole sort key matches
// an available skiplist index on the immediately preceding
// EnumerateCollection, marking the resulting scan's direction instead.
func useIndexForSort(ctx *Context, p *plan.Plan) ([]*plan.Plan, error) {
	for _, id := range p.NodeIds() {
		sortNode, ok := p.GetNode(id)
		if !ok || sortNode.Kind != plan.KindSort {
			continue
		}
		deps := sortNode.Dependencies()
		if len(deps) != 1 {
			continue
		}
		sortData := sortNode.Data.(plan.SortData)
		if len(sortData.Elements) == 0 {
			continue
		}
		below := p.MustGetNode(deps[0])
		if below.Kind != plan.KindEnumerateCollection {
			continue
		}
		enumData := below.Data.(plan.EnumerateCollectionData)
		if enumData.Collection == nil {
			continue
		}
		setterId, ok := findSetter(p, sortData.Elements[0].Var.Id)
		if !ok || setterId != below.Id {
			// the sort key must be the collection's own document
			// variable directly, not a calculation derived from it
			continue
		}
		for _, idx := range enumData.Collection.GetIndexes() {
			if idx.Type != catalog.SKIPLIST || !sortMatchesIndexPrefix(sortData, idx) {
				continue
			}
			idxNode := p.RegisterNode(plan.KindIndexRange, plan.IndexRangeData{
				Collection: enumData.Collection,
				OutVar:     enumData.OutVar,
				Index:      idx,
				Ranges:     [][]plan.RangeInfo{{{Attribute: idx.Fields[0]}}},
				Reverse:    !sortData.Elements[0].Ascending,
			})
			if err := p.ReplaceNode(below.Id, idxNode.Id); err != nil {
				continue
			}
			if err := p.UnlinkNode(id, true); err != nil {
				continue
			}
			return []*plan.Plan{p}, nil
		}
	}
	return unchanged(p)
}

// sortMatchesIndexPrefix is a conservative check recognizing only the
// single-attribute case (`SORT doc.field`). Multi-attribute prefix
// matching against constant-bound equalities is left for a future rule.
func sortMatchesIndexPrefix(s plan.SortData, idx *catalog.Index) bool {
	return len(s.Elements) == 1 && len(idx.Fields) >= 1
}

// pushLimitBelowSort relocates a Limit node beneath an adjacent Sort so
// the sort only has to track `offset+limit` rows instead of the whole
// input. This is only safe when the Sort is fully covered by an index
// whose scan order already satisfies it: the executor then streams rows
// off the index in order and the Limit just cuts the stream short. An
// uncovered Sort has to see its entire input before it can know which
// rows belong in the first `offset+limit`, so moving the Limit beneath
// it there would select an arbitrary unsorted prefix instead of the
// top-N rows.
func pushLimitBelowSort(ctx *Context, p *plan.Plan) ([]*plan.Plan, error) {
	for _, id := range p.NodeIds() {
		limitNode, ok := p.GetNode(id)
		if !ok || limitNode.Kind != plan.KindLimit {
			continue
		}
		deps := limitNode.Dependencies()
		if len(deps) != 1 {
			continue
		}
		sortNode := p.MustGetNode(deps[0])
		if sortNode.Kind != plan.KindSort {
			continue
		}
		if len(sortNode.Parents()) != 1 {
			// the sort's output is consumed elsewhere too; reordering
			// would change what that other consumer sees.
			continue
		}
		sortDeps := sortNode.Dependencies()
		if len(sortDeps) != 1 {
			continue
		}
		if !sortCoveredByIndex(p, sortNode) {
			continue
		}
		limitData := limitNode.Data.(plan.LimitData)

		if err := p.UnlinkNode(id, true); err != nil {
			continue
		}
		movedLimit := p.RegisterNode(plan.KindLimit, limitData)
		if err := p.InsertDependency(sortNode.Id, movedLimit.Id); err != nil {
			continue
		}
		return []*plan.Plan{p}, nil
	}
	return unchanged(p)
}

// sortCoveredByIndex reports whether a Sort's single dependency already
// produces rows in the sort's order via a skiplist index on the sort
// key, the same coverage useIndexForSort looks for before eliminating
// the Sort outright. A Sort still present after that rule has run means
// either no such index exists or the key isn't the node's own document
// variable, so the upstream input can't be assumed ordered.
func sortCoveredByIndex(p *plan.Plan, sortNode *plan.Node) bool {
	sortData := sortNode.Data.(plan.SortData)
	if len(sortData.Elements) == 0 {
		return false
	}
	below := p.MustGetNode(sortNode.Dependencies()[0])
	if below.Kind != plan.KindEnumerateCollection {
		return false
	}
	enumData := below.Data.(plan.EnumerateCollectionData)
	if enumData.Collection == nil {
		return false
	}
	setterId, ok := findSetter(p, sortData.Elements[0].Var.Id)
	if !ok || setterId != below.Id {
		// the sort key must be the collection's own document variable
		// directly, not a calculation derived from it
		return false
	}
	for _, idx := range enumData.Collection.GetIndexes() {
		if idx.Type == catalog.SKIPLIST && sortMatchesIndexPrefix(sortData, idx) {
			return true
		}
	}
	return false
}
