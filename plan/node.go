package plan

import (
	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/variable"
)

// NodeID identifies a node within the plan that owns it. Ids are plan
// scoped, not globally unique.
type NodeID uint64

// RangeBound is a half-open endpoint of a range predicate on one
// attribute: a constant/expression reference plus inclusivity.
type RangeBound struct {
	Attribute   string
	Expression  *ast.Node
	Inclusive   bool
	HasBound    bool
}

// RangeInfo groups the lower and upper bound for one attribute within one
// index lookup.
type RangeInfo struct {
	Attribute string
	Low       RangeBound
	High      RangeBound
	// Equality is set when Low == High and both are inclusive, i.e. this
	// is an equality predicate rather than a true range.
	Equality bool
}

// GroupPair is one `out = in` grouping expression of a Collect node.
type GroupPair struct {
	Out *variable.Variable
	In  *variable.Variable
}

// SortElement is one sort key of a Sort node.
type SortElement struct {
	Var       *variable.Variable
	Ascending bool
}

// ModificationOptions mirrors the write-options every Insert/Update/
// Replace/Remove node carries: waitForSync, ignoreErrors, keepNull,
// mergeObjects.
type ModificationOptions struct {
	WaitForSync  bool
	IgnoreErrors bool
	KeepNull     bool
	MergeObjects bool
}

// --- Variant payloads -------------------------------------------------
//
// Each *Data type below holds exactly the per-variant attributes that
// node variant needs. A Node carries the Data value matching its Kind
// in the Data field; readers type-assert it after checking Kind (see
// vars.go, the cost package's estimateNode, Explain).

type EnumerateCollectionData struct {
	Collection catalog.Collection
	OutVar     *variable.Variable
	Random     bool
}

type EnumerateListData struct {
	InVar  *variable.Variable
	OutVar *variable.Variable
}

type IndexRangeData struct {
	Collection catalog.Collection
	OutVar     *variable.Variable
	Index      *catalog.Index
	Ranges     [][]RangeInfo // disjunction of conjunctions (DNF)
	Reverse    bool
}

type FilterData struct {
	InVar *variable.Variable
}

type CalculationData struct {
	Expression   *ast.Node
	OutVar       *variable.Variable
	ConditionVar *variable.Variable // optional; nil if unset
}

type SubqueryData struct {
	SubplanRoot NodeID
	OutVar      *variable.Variable
}

type SortData struct {
	Elements []SortElement
	Stable   bool
}

type CollectData struct {
	GroupPairs     []GroupPair
	ExpressionVar  *variable.Variable // optional
	OutVar         *variable.Variable // optional
	KeepVars       []*variable.Variable
	CountOnly      bool
}

type LimitData struct {
	Offset    uint64
	Limit     uint64
	FullCount bool
}

type ReturnData struct {
	InVar *variable.Variable
}

type ModificationData struct {
	Collection       catalog.Collection
	Options          ModificationOptions
	InDocVar         *variable.Variable // optional
	InKeyVar         *variable.Variable // optional
	OutVar           *variable.Variable // optional
	ReturnNewValues  bool
}

type ScatterData struct{}

type DistributeData struct {
	ShardVar *variable.Variable
}

type GatherData struct {
	SortElements []SortElement
}

type RemoteData struct {
	ServerId string
}

type NoResultsData struct{}

// --- Node --------------------------------------------------------------

// Node is one plan operator: a tagged variant plus the graph-structural
// fields (id, dependencies, parents) and the analysis caches every node
// carries (estimated cost/cardinality, vars_valid, vars_used_later,
// regs_to_clear, depth, register info).
type Node struct {
	Id   NodeID
	Kind Kind
	Data any

	deps    []NodeID
	parents []NodeID

	plan *Plan

	// Estimation cache, invalidated by the plan whenever the node
	// graph changes upstream of this node.
	hasCost     bool
	estCost     float64
	hasNrItems  bool
	estNrItems  uint64

	// Usage analysis cache.
	varsValid     map[uint64]*variable.Variable
	varsUsedLater map[uint64]*variable.Variable

	// Register planner cache.
	depth          int
	regsToClear    []uint64
	varRegister    map[uint64]RegisterBinding // var id -> (depth, register)
	nrRegsHere     int
	nrRegs         int
	totalNrRegs    int
}

// RegisterBinding records the (depth, register id) a variable is bound
// to after register planning.
type RegisterBinding struct {
	Depth    int
	Register uint64
}

// Dependencies returns the ids of this node's upstream inputs, in the
// order they were added.
func (n *Node) Dependencies() []NodeID {
	out := make([]NodeID, len(n.deps))
	copy(out, n.deps)
	return out
}

// Parents returns the ids of this node's downstream consumers.
func (n *Node) Parents() []NodeID {
	out := make([]NodeID, len(n.parents))
	copy(out, n.parents)
	return out
}

// EstimatedCost returns the cached cost and whether one has been computed.
func (n *Node) EstimatedCost() (float64, bool) { return n.estCost, n.hasCost }

// EstimatedNrItems returns the cached cardinality estimate and whether one
// has been computed.
func (n *Node) EstimatedNrItems() (uint64, bool) { return n.estNrItems, n.hasNrItems }

// SetEstimate stores a freshly computed (cost, nrItems) pair for this
// node. Only the cost estimator should call this.
func (n *Node) SetEstimate(cost float64, nrItems uint64) {
	n.estCost, n.hasCost = cost, true
	n.estNrItems, n.hasNrItems = nrItems, true
}

// InvalidateEstimate clears the cost/cardinality cache, e.g. when a rule
// rewires this node's dependencies.
func (n *Node) InvalidateEstimate() {
	n.hasCost, n.hasNrItems = false, false
}

// VarsValid returns the set of variables produced by n itself or by some
// transitive dependency of n, keyed by variable id.
func (n *Node) VarsValid() map[uint64]*variable.Variable { return n.varsValid }

// VarsUsedLater returns the set of variables needed by some downstream
// consumer of n (not counting n's own use), keyed by variable id.
func (n *Node) VarsUsedLater() map[uint64]*variable.Variable { return n.varsUsedLater }

// SetVarsValid stores the usage analyzer's computed vars_valid set for n.
func (n *Node) SetVarsValid(s *VariableSet) {
	n.varsValid = make(map[uint64]*variable.Variable, s.Len())
	for _, v := range s.List() {
		n.varsValid[v.Id] = v
	}
}

// SetVarsUsedLater stores the usage analyzer's computed vars_used_later
// set for n.
func (n *Node) SetVarsUsedLater(s *VariableSet) {
	n.varsUsedLater = make(map[uint64]*variable.Variable, s.Len())
	for _, v := range s.List() {
		n.varsUsedLater[v.Id] = v
	}
}

// SetRegsToClear stores the register planner's computed clear set for n.
func (n *Node) SetRegsToClear(regs []uint64) {
	n.regsToClear = append([]uint64(nil), regs...)
}

// SetDepth stores the register planner's computed frame depth for n.
func (n *Node) SetDepth(d int) { n.depth = d }

// SetVarRegister records the (depth, register) binding for a variable
// produced or threaded through n.
func (n *Node) SetVarRegister(varId uint64, b RegisterBinding) {
	if n.varRegister == nil {
		n.varRegister = make(map[uint64]RegisterBinding)
	}
	n.varRegister[varId] = b
}

// VarRegisterMap returns the full var-id -> binding map assigned to n.
func (n *Node) VarRegisterMap() map[uint64]RegisterBinding { return n.varRegister }

// SetRegisterCounters stores the per-depth register bookkeeping the
// register planner computes for n: nrRegsHere, nrRegs, totalNrRegs.
func (n *Node) SetRegisterCounters(nrRegsHere, nrRegs, totalNrRegs int) {
	n.nrRegsHere, n.nrRegs, n.totalNrRegs = nrRegsHere, nrRegs, totalNrRegs
}

// RegisterCounters returns the per-depth register bookkeeping assigned to
// n by the register planner.
func (n *Node) RegisterCounters() (nrRegsHere, nrRegs, totalNrRegs int) {
	return n.nrRegsHere, n.nrRegs, n.totalNrRegs
}

// IntroducesNewRows reports whether n opens a new register-frame depth.
func (n *Node) IntroducesNewRows() bool { return n.Kind.introducesNewRows() }

// IsModification reports whether n is an Insert/Remove/Update/Replace.
func (n *Node) IsModification() bool { return n.Kind.isModification() }

// Depth returns the register-frame depth assigned to this node.
func (n *Node) Depth() int { return n.depth }

// RegsToClear returns the register ids that become dead after this node
// runs.
func (n *Node) RegsToClear() []uint64 {
	out := make([]uint64, len(n.regsToClear))
	copy(out, n.regsToClear)
	return out
}

// VarRegister returns the register binding for variable id, if assigned.
func (n *Node) VarRegister(varId uint64) (RegisterBinding, bool) {
	b, ok := n.varRegister[varId]
	return b, ok
}
