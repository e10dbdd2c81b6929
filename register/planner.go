// Package register implements the register planner: a single walk, run
// after optimization settles on a winning plan, that assigns
// every produced variable a (depth, register) binding in a depth-stratified
// register frame and computes each node's dead-variable clear set.
//
// The walk must run after the usage analyzer (package usage) has populated
// every node's VarsValid/VarsUsedLater; Assign reads both.
package register

import (
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/variable"
)

// frame is the register bookkeeping threaded along one execution path:
// per-depth counts plus the plan-wide running total. Depth 0 is the
// outermost frame, opened implicitly before the first row-introducing
// node runs.
type frame struct {
	depth       int
	nrRegsHere  []int // len == depth+1
	nrRegs      []int // len == depth+1, cumulative through this depth
	totalNrRegs int
}

func rootFrame() frame {
	return frame{depth: 0, nrRegsHere: []int{0}, nrRegs: []int{0}, totalNrRegs: 0}
}

func (f frame) clone() frame {
	return frame{
		depth:       f.depth,
		nrRegsHere:  append([]int(nil), f.nrRegsHere...),
		nrRegs:      append([]int(nil), f.nrRegs...),
		totalNrRegs: f.totalNrRegs,
	}
}

// openNewFrame returns a copy of f one depth deeper: depth increases at
// every node that introduces new rows.
func (f frame) openNewFrame() frame {
	out := f.clone()
	out.depth++
	out.nrRegsHere = append(out.nrRegsHere, 0)
	out.nrRegs = append(out.nrRegs, out.nrRegs[f.depth])
	return out
}

// allocate assigns v the next register id at the frame's current depth,
// recording the binding in varInfo and advancing the frame's counters.
func (f *frame) allocate(v *variable.Variable, varInfo map[uint64]plan.RegisterBinding) {
	if v == nil {
		return
	}
	reg := uint64(f.totalNrRegs)
	varInfo[v.Id] = plan.RegisterBinding{Depth: f.depth, Register: reg}
	f.totalNrRegs++
	f.nrRegsHere[f.depth]++
	f.nrRegs[f.depth]++
}

// Assign walks p from its root, recursing to each node's single
// dependency first so nodes are processed in true execution order
// (sources before consumers), and writes depth, register counters,
// var_info bindings, and regs_to_clear onto every node. It returns the
// plan-wide var id -> binding map, the same shape the serializer needs
// for the `variables` section of its output document.
func Assign(p *plan.Plan, reg *variable.Registry) (map[uint64]plan.RegisterBinding, error) {
	varInfo := make(map[uint64]plan.RegisterBinding)
	rootId, ok := p.RootId()
	if !ok {
		return varInfo, nil
	}
	w := &walker{p: p, reg: reg, varInfo: varInfo, done: make(map[plan.NodeID]bool)}
	w.visit(rootId, rootFrame())

	for _, id := range p.NodeIds() {
		n, ok := p.GetNode(id)
		if !ok {
			continue
		}
		w.assignVarInfo(n)
		w.assignClearSet(n)
	}
	return varInfo, nil
}

type walker struct {
	p       *plan.Plan
	reg     *variable.Registry
	varInfo map[uint64]plan.RegisterBinding
	done    map[plan.NodeID]bool
}

// visit processes id's single dependency (if any) before id itself,
// returning the frame state as it stands immediately after id has made
// its own register allocations. seed supplies the inherited frame for a
// node with no recorded dependency — the plan root in the outermost
// call, or the frame a Subquery node hands its sub-plan: subqueries are
// register-planned recursively, seeded with the parent frame.
func (w *walker) visit(id plan.NodeID, seed frame) frame {
	n := w.p.MustGetNode(id)

	var in frame
	if deps := n.Dependencies(); len(deps) > 0 {
		in = w.visit(deps[0], seed)
	} else {
		in = seed
	}

	out := in
	if n.IntroducesNewRows() {
		out = in.openNewFrame()
	} else {
		out = in.clone()
	}
	n.SetDepth(out.depth)

	if n.Kind == plan.KindSubquery {
		d := n.Data.(plan.SubqueryData)
		out.allocate(d.OutVar, w.varInfo)
		// The sub-plan's own allocations are scoped to its own nodes;
		// they must not advance the outer chain's counters, so we seed
		// a clone and discard whatever frame the recursion returns.
		w.visit(d.SubplanRoot, out.clone())
	} else {
		for _, v := range plan.VariablesSetHere(n).List() {
			out.allocate(v, w.varInfo)
		}
	}

	n.SetRegisterCounters(out.nrRegsHere[out.depth], out.nrRegs[out.depth], out.totalNrRegs)
	w.done[id] = true
	return out
}

// assignVarInfo copies each of n's valid variables' global bindings onto
// n's own var_info map: every v in vars_valid(n) ends up with an entry
// in n's register plan.
func (w *walker) assignVarInfo(n *plan.Node) {
	for id := range n.VarsValid() {
		if b, ok := w.varInfo[id]; ok {
			n.SetVarRegister(id, b)
		}
	}
}

// assignClearSet computes regs_to_clear(n) = { reg(v) : v in
// variables_used_here(n), v not in vars_used_later(n) }. Return nodes
// never clear: they project a single output column and the executor
// tears the whole frame down right after.
func (w *walker) assignClearSet(n *plan.Node) {
	if n.Kind == plan.KindReturn {
		n.SetRegsToClear(nil)
		return
	}
	usedLater := n.VarsUsedLater()
	var clear []uint64
	for _, v := range plan.VariablesUsedHere(n, w.reg).List() {
		if _, later := usedLater[v.Id]; later {
			continue
		}
		if b, ok := w.varInfo[v.Id]; ok {
			clear = append(clear, b.Register)
		}
	}
	n.SetRegsToClear(clear)
}
