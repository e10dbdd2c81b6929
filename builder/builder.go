// Package builder turns a clause-sequence AST into the initial
// plan.Plan the optimizer starts from. Lexing and parsing are out of
// scope; this package only consumes the already-parsed tree.
//
// A query is represented as a flat sequence of clause nodes — one
// ast.Node per FOR/FILTER/LET/COLLECT/SORT/LIMIT/RETURN/modification —
// threaded through a single "current producer" the way the executor
// will later thread rows through the resulting operator chain. A
// SUBQUERY clause's own body is itself such a sequence, held in its
// Children, recursively built into the same Plan's node table: the two
// DAGs share the plan's node table.
package builder

import (
	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/planerrors"
	"github.com/ariadnedb/aqlplan/variable"
	"github.com/spf13/cast"
)

// Build constructs a plan from a clause sequence against vars and
// collections, returning the finished plan with its root already set.
func Build(clauses []*ast.Node, vars *variable.Registry, collections catalog.Collections) (*plan.Plan, error) {
	p := plan.New(vars)
	b := &builder{p: p, collections: collections}
	singleton := p.RegisterNode(plan.KindSingleton, nil)
	current := singleton.Id
	root, err := b.buildSequence(clauses, current)
	if err != nil {
		return nil, err
	}
	p.SetRoot(root)
	return p, nil
}

type builder struct {
	p           *plan.Plan
	collections catalog.Collections
	tmp         int
}

func (b *builder) tempName(prefix string) string {
	b.tmp++
	return prefix + "_" + cast.ToString(b.tmp)
}

// link registers n and wires it to depend on current, returning n's id as
// the new current producer.
func (b *builder) link(current plan.NodeID, kind plan.Kind, data any) (plan.NodeID, error) {
	n := b.p.RegisterNode(kind, data)
	if err := b.p.AddDependency(n.Id, current); err != nil {
		return 0, err
	}
	return n.Id, nil
}

// calcFor synthesizes a Calculation node computing expr into a fresh
// temporary variable, the idiom used whenever a clause needs an
// expression's value as an input variable rather than a raw AST node
// (EnumerateList.in_var, Filter.in_var, Return.in_var, ...).
func (b *builder) calcFor(current plan.NodeID, expr *ast.Node) (plan.NodeID, *variable.Variable, error) {
	out := b.p.Vars.CreateTemporaryVariable(b.tempName("tmp"))
	next, err := b.link(current, plan.KindCalculation, plan.CalculationData{Expression: expr, OutVar: out})
	if err != nil {
		return 0, nil, err
	}
	return next, out, nil
}

// resolveVar returns the variable a reference expression names directly,
// or synthesizes a Calculation when expr is anything else (a literal, a
// function call, an operator tree).
func (b *builder) resolveVar(current plan.NodeID, expr *ast.Node) (plan.NodeID, *variable.Variable, error) {
	if expr != nil && expr.Kind == ast.KindReference {
		if v := b.p.Vars.LookupByName(expr.VariableName); v != nil {
			return current, v, nil
		}
	}
	return b.calcFor(current, expr)
}

func (b *builder) buildSequence(clauses []*ast.Node, current plan.NodeID) (plan.NodeID, error) {
	var err error
	for _, c := range clauses {
		current, err = b.buildClause(c, current)
		if err != nil {
			return 0, err
		}
	}
	return current, nil
}

func (b *builder) resolveCollection(name string) (catalog.Collection, error) {
	if b.collections == nil {
		return nil, planerrors.ErrNoSuchCollection.New(name)
	}
	c, ok := b.collections.Get(name)
	if !ok {
		return nil, planerrors.ErrNoSuchCollection.New(name)
	}
	return c, nil
}

func (b *builder) buildClause(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	switch c.Kind {
	case ast.KindFor:
		return b.buildFor(c, current)
	case ast.KindFilter:
		return b.buildFilter(c, current)
	case ast.KindLet:
		return b.buildLet(c, current)
	case ast.KindSort:
		return b.buildSort(c, current)
	case ast.KindLimit:
		return b.buildLimit(c, current)
	case ast.KindReturn:
		return b.buildReturn(c, current)
	case ast.KindCollect, ast.KindCollectCount, ast.KindCollectExpression:
		return b.buildCollect(c, current)
	case ast.KindInsert, ast.KindRemove, ast.KindUpdate, ast.KindReplace:
		return b.buildModification(c, current)
	case ast.KindSubquery:
		return b.buildSubqueryLet(c, current)
	default:
		return 0, planerrors.ErrUnsupportedNodeType.New(c.Kind.String())
	}
}

func (b *builder) buildFor(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	outVar := b.p.Vars.CreateUserVariable(c.VariableName)
	if c.CollectionName != "" {
		coll, err := b.resolveCollection(c.CollectionName)
		if err != nil {
			return 0, err
		}
		b.p.NoteCollectionUse(c.CollectionName, false)
		return b.link(current, plan.KindEnumerateCollection, plan.EnumerateCollectionData{Collection: coll, OutVar: outVar})
	}
	if len(c.Children) != 1 {
		return 0, planerrors.ErrBadParameter.New("FOR without a collection or source expression")
	}
	next, inVar, err := b.calcFor(current, c.Children[0])
	if err != nil {
		return 0, err
	}
	return b.link(next, plan.KindEnumerateList, plan.EnumerateListData{InVar: inVar, OutVar: outVar})
}

func (b *builder) buildFilter(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	if len(c.Children) != 1 {
		return 0, planerrors.ErrBadParameter.New("FILTER requires exactly one expression")
	}
	next, inVar, err := b.calcFor(current, c.Children[0])
	if err != nil {
		return 0, err
	}
	return b.link(next, plan.KindFilter, plan.FilterData{InVar: inVar})
}

func (b *builder) buildLet(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	if len(c.Children) != 1 {
		return 0, planerrors.ErrBadParameter.New("LET requires exactly one expression")
	}
	outVar := b.p.Vars.CreateUserVariable(c.VariableName)
	return b.link(current, plan.KindCalculation, plan.CalculationData{Expression: c.Children[0], OutVar: outVar})
}

func (b *builder) buildSort(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	var elements []plan.SortElement
	for _, e := range c.Children {
		if len(e.Children) != 1 {
			return 0, planerrors.ErrBadParameter.New("SORT element requires exactly one expression")
		}
		var v *variable.Variable
		var err error
		current, v, err = b.resolveVar(current, e.Children[0])
		if err != nil {
			return 0, err
		}
		elements = append(elements, plan.SortElement{Var: v, Ascending: e.Operator != "DESC"})
	}
	return b.link(current, plan.KindSort, plan.SortData{Elements: elements, Stable: true})
}

func (b *builder) buildLimit(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	var offset, limit int64
	var err error
	switch len(c.Children) {
	case 1:
		limit, err = literalInt(c.Children[0])
	case 2:
		if offset, err = literalInt(c.Children[0]); err == nil {
			limit, err = literalInt(c.Children[1])
		}
	default:
		return 0, planerrors.ErrBadParameter.New("LIMIT requires one or two literal operands")
	}
	if err != nil {
		return 0, err
	}
	if offset < 0 || limit < 0 {
		return 0, planerrors.ErrNumberOutOfRange.New("LIMIT offset/count must be non-negative")
	}
	return b.link(current, plan.KindLimit, plan.LimitData{Offset: uint64(offset), Limit: uint64(limit)})
}

func literalInt(n *ast.Node) (int64, error) {
	if n == nil || n.Kind != ast.KindValue {
		return 0, planerrors.ErrNumberOutOfRange.New("expected a literal number")
	}
	v, err := cast.ToInt64E(n.Value)
	if err != nil {
		return 0, planerrors.ErrNumberOutOfRange.New(err.Error())
	}
	return v, nil
}

func (b *builder) buildReturn(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	if len(c.Children) != 1 {
		return 0, planerrors.ErrBadParameter.New("RETURN requires exactly one expression")
	}
	next, v, err := b.resolveVar(current, c.Children[0])
	if err != nil {
		return 0, err
	}
	return b.link(next, plan.KindReturn, plan.ReturnData{InVar: v})
}

// buildCollect handles COLLECT/COLLECT_COUNT/COLLECT_EXPRESSION. Each
// grouping pair is named by a child REFERENCE-like node whose
// VariableName is the group's out-variable and whose own single child is
// the grouping expression (resolved like any other expression operand).
func (b *builder) buildCollect(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	var pairs []plan.GroupPair
	for _, gp := range c.Children {
		if len(gp.Children) != 1 {
			return 0, planerrors.ErrBadParameter.New("COLLECT grouping requires exactly one expression")
		}
		var in *variable.Variable
		var err error
		current, in, err = b.resolveVar(current, gp.Children[0])
		if err != nil {
			return 0, err
		}
		out := b.p.Vars.CreateUserVariable(gp.VariableName)
		pairs = append(pairs, plan.GroupPair{Out: out, In: in})
	}

	data := plan.CollectData{GroupPairs: pairs, CountOnly: c.Kind == ast.KindCollectCount}
	if c.VariableName != "" {
		data.OutVar = b.p.Vars.CreateUserVariable(c.VariableName)
	}
	if c.Kind == ast.KindCollectExpression && c.Operator != "" {
		data.ExpressionVar = b.p.Vars.CreateUserVariable(c.Operator)
	}
	return b.link(current, plan.KindCollect, data)
}

func (b *builder) buildModification(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	if c.CollectionName == "" {
		return 0, planerrors.ErrNoSuchCollection.New("<empty>")
	}
	coll, err := b.resolveCollection(c.CollectionName)
	if err != nil {
		return 0, err
	}
	b.p.NoteCollectionUse(c.CollectionName, true)

	kind := modificationKind(c.Kind)
	data := plan.ModificationData{Collection: coll}
	switch len(c.Children) {
	case 1:
		current, data.InDocVar, err = b.resolveVar(current, c.Children[0])
	case 2:
		current, data.InKeyVar, err = b.resolveVar(current, c.Children[0])
		if err == nil {
			current, data.InDocVar, err = b.resolveVar(current, c.Children[1])
		}
	}
	if err != nil {
		return 0, err
	}
	if c.VariableName != "" {
		data.OutVar = b.p.Vars.CreateUserVariable(c.VariableName)
		data.ReturnNewValues = true
	}
	return b.link(current, kind, data)
}

func modificationKind(k ast.Kind) plan.Kind {
	switch k {
	case ast.KindInsert:
		return plan.KindInsert
	case ast.KindRemove:
		return plan.KindRemove
	case ast.KindUpdate:
		return plan.KindUpdate
	default:
		return plan.KindReplace
	}
}

// buildSubqueryLet builds a SUBQUERY clause's own body recursively into
// the same plan, then emits the Subquery node binding its result to
// VariableName, continuing the outer chain exactly like a LET would.
func (b *builder) buildSubqueryLet(c *ast.Node, current plan.NodeID) (plan.NodeID, error) {
	inner := b.p.RegisterNode(plan.KindSingleton, nil)
	subRoot, err := b.buildSequence(c.Children, inner.Id)
	if err != nil {
		return 0, err
	}
	outVar := b.p.Vars.CreateUserVariable(c.VariableName)
	return b.link(current, plan.KindSubquery, plan.SubqueryData{SubplanRoot: subRoot, OutVar: outVar})
}
