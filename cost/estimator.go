package cost

import (
	"math"
	"sync"

	"github.com/mitchellh/hashstructure"
	"github.com/sirupsen/logrus"

	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/plan"
)

var log = logrus.WithField("component", "cost")

// memoKey is the structural fingerprint a node's estimate is cached
// under: its kind, variant payload, and the already-computed estimate
// of its input. visit only memoizes the kinds whose formula reads
// nothing else; for those, two nodes hashing equal produce the same
// (nrItems, cost) pair, so the optimizer frontier's many structurally-identical
// subtrees (a rule forks a plan but leaves most of it untouched) share
// one computation instead of repeating it per candidate.
type memoKey struct {
	Kind    plan.Kind
	Data    any
	InItems uint64
	InCost  float64
}

type memoVal struct {
	items uint64
	cost  float64
}

var memo sync.Map // uint64 (hashstructure hash) -> memoVal

// memoizedEstimate hashes key and returns a cached estimate on hit,
// otherwise computes it via compute and stores the result. Hashing
// failure (possible for payloads holding interface values whose
// concrete type does not support reflection-based hashing) degrades to
// a plain uncached call.
func memoizedEstimate(key memoKey, compute func() (uint64, float64)) (uint64, float64) {
	h, err := hashstructure.Hash(key, nil)
	if err != nil {
		return compute()
	}
	if v, ok := memo.Load(h); ok {
		mv := v.(memoVal)
		return mv.items, mv.cost
	}
	items, cost := compute()
	memo.Store(h, memoVal{items: items, cost: cost})
	return items, cost
}

// Recompute walks the plan bottom-up from its root (and, transitively,
// from every subquery's own root), writing a fresh (nrItems, cost) pair
// into each node's cache. It is the only entry point into this package:
// callers never estimate a single node in isolation, because every
// formula depends on its dependency's already-computed nrItems.
func Recompute(p *plan.Plan, varSetBy plan.VarSetByMap, w Weights) error {
	rootId, ok := p.RootId()
	if !ok {
		return nil
	}
	visited := make(map[plan.NodeID]bool)
	return visit(p, rootId, varSetBy, w, visited)
}

func visit(p *plan.Plan, id plan.NodeID, varSetBy plan.VarSetByMap, w Weights, visited map[plan.NodeID]bool) error {
	if visited[id] {
		return nil
	}
	visited[id] = true
	n := p.MustGetNode(id)

	if n.Kind == plan.KindSubquery {
		d := n.Data.(plan.SubqueryData)
		if err := visit(p, d.SubplanRoot, varSetBy, w, visited); err != nil {
			return err
		}
	}
	for _, depId := range n.Dependencies() {
		if err := visit(p, depId, varSetBy, w, visited); err != nil {
			return err
		}
	}

	in, depCost := inputEstimate(p, n)
	compute := func() (uint64, float64) {
		return estimateNode(p, n, in, depCost, varSetBy, w)
	}
	var nrItems uint64
	var cost float64
	switch n.Kind {
	case plan.KindEnumerateCollection, plan.KindEnumerateList, plan.KindIndexRange, plan.KindSubquery, plan.KindSort:
		// These formulas also read collection counts or index selectivity
		// (unexported, so not hashed), other nodes' estimates, or Weights,
		// none of which memoKey holds; they are always computed directly.
		nrItems, cost = compute()
	default:
		key := memoKey{Kind: n.Kind, Data: n.Data, InItems: in, InCost: depCost}
		nrItems, cost = memoizedEstimate(key, compute)
	}
	n.SetEstimate(cost, nrItems)
	log.WithFields(logrus.Fields{"node": n.Id, "kind": n.Kind.String(), "items": nrItems, "cost": cost}).Debug("estimated node")
	return nil
}

func roundItems(x float64) uint64 {
	if x < 1 {
		x = 1
	}
	return uint64(math.Ceil(x))
}

// inputEstimate returns the combined (nrItems, cost) of n's dependencies:
// nrItems is the single input row count feeding this node (0 deps means a
// source node, which behaves as nrItems=1 per Singleton's own formula),
// and cost is the summed cost of everything upstream.
func inputEstimate(p *plan.Plan, n *plan.Node) (uint64, float64) {
	deps := n.Dependencies()
	if len(deps) == 0 {
		return 1, 0
	}
	var inItems uint64
	var depCost float64
	for i, depId := range deps {
		dep := p.MustGetNode(depId)
		items, _ := dep.EstimatedNrItems()
		c, _ := dep.EstimatedCost()
		depCost += c
		if i == 0 {
			inItems = items
		}
	}
	return inItems, depCost
}

func estimateNode(p *plan.Plan, n *plan.Node, in uint64, depCost float64, varSetBy plan.VarSetByMap, w Weights) (nrItems uint64, cost float64) {
	switch n.Kind {
	case plan.KindSingleton:
		return 1, 1

	case plan.KindEnumerateCollection:
		d := n.Data.(plan.EnumerateCollectionData)
		count := float64(0)
		if d.Collection != nil {
			count = float64(d.Collection.Count())
		}
		out := float64(in) * count
		local := out
		if d.Random {
			local *= w.RandomEnumerationPenalty
		}
		return roundItems(out), depCost + local

	case plan.KindEnumerateList:
		d := n.Data.(plan.EnumerateListData)
		length := enumerateListLength(p, d, varSetBy, w)
		out := float64(in) * float64(length)
		return roundItems(out), depCost + out

	case plan.KindIndexRange:
		return estimateIndexRange(n, in, depCost, w)

	case plan.KindFilter:
		return in, depCost + float64(in)

	case plan.KindCalculation:
		return in, depCost + float64(in)

	case plan.KindSubquery:
		d := n.Data.(plan.SubqueryData)
		subRoot := p.MustGetNode(d.SubplanRoot)
		subItems, _ := subRoot.EstimatedNrItems()
		return in, depCost + float64(in)*float64(subItems)

	case plan.KindSort:
		if in > w.SortLogThreshold {
			return in, depCost + float64(in)*math.Log(float64(in))
		}
		return in, depCost + float64(in)

	case plan.KindCollect:
		d := n.Data.(plan.CollectData)
		if d.CountOnly && len(d.GroupPairs) == 0 {
			return 1, depCost + float64(in)
		}
		return in, depCost + float64(in)

	case plan.KindLimit:
		d := n.Data.(plan.LimitData)
		var out uint64
		if d.Offset >= in {
			out = 0
		} else {
			remaining := in - d.Offset
			if d.Limit < remaining {
				out = d.Limit
			} else {
				out = remaining
			}
		}
		return out, depCost + float64(in)

	case plan.KindReturn:
		return in, depCost + float64(in)

	case plan.KindInsert, plan.KindRemove, plan.KindUpdate, plan.KindReplace:
		return 0, depCost + float64(in)

	case plan.KindNoResults:
		return 0, depCost + 0.5

	case plan.KindScatter:
		shards := uint64(1)
		return in, depCost + float64(in)*float64(shards)

	case plan.KindDistribute, plan.KindGather, plan.KindRemote:
		return in, depCost + float64(in)

	default:
		return in, depCost + float64(in)
	}
}

// enumerateListLength looks through the setter of in_var: array literal
// -> literal length, numeric range -> span, Subquery -> recurse into
// its estimated item count, otherwise a configured default.
func enumerateListLength(p *plan.Plan, d plan.EnumerateListData, varSetBy plan.VarSetByMap, w Weights) uint64 {
	if d.InVar == nil {
		return w.EnumerateListDefaultLength
	}
	setterId, ok := varSetBy[d.InVar.Id]
	if !ok {
		return w.EnumerateListDefaultLength
	}
	setter, ok := p.GetNode(setterId)
	if !ok {
		return w.EnumerateListDefaultLength
	}

	switch setter.Kind {
	case plan.KindCalculation:
		calc := setter.Data.(plan.CalculationData)
		if n, ok := ast.ArrayLength(calc.Expression); ok {
			return uint64(n)
		}
		if low, high, ok := ast.NumericRangeBounds(calc.Expression); ok {
			span := high - low
			if span < 0 {
				span = -span
			}
			return uint64(span) + 1
		}
		return w.EnumerateListDefaultLength
	case plan.KindSubquery:
		items, _ := setter.EstimatedNrItems()
		if items == 0 {
			return w.EnumerateListDefaultLength
		}
		return items
	default:
		return w.EnumerateListDefaultLength
	}
}

func isPureEqualityDNF(ranges [][]plan.RangeInfo) bool {
	for _, disjunct := range ranges {
		for _, r := range disjunct {
			if !r.Equality {
				return false
			}
		}
	}
	return true
}

// countEqualityAttrs counts how many of an index's defined fields are
// actually bound by an equality predicate in the query, using the first
// disjunct of d.Ranges (HASH lookups, unlike SKIPLIST, aren't evaluated
// disjunct by disjunct).
func countEqualityAttrs(ranges [][]plan.RangeInfo, fields []string) int {
	if len(ranges) == 0 {
		return 0
	}
	bound := make(map[string]bool, len(ranges[0]))
	for _, r := range ranges[0] {
		if r.Equality {
			bound[r.Attribute] = true
		}
	}
	matched := 0
	for _, f := range fields {
		if bound[f] {
			matched++
		}
	}
	return matched
}

func estimateIndexRange(n *plan.Node, in uint64, depCost float64, w Weights) (uint64, float64) {
	d := n.Data.(plan.IndexRangeData)
	numDisjuncts := len(d.Ranges)
	if numDisjuncts == 0 {
		numDisjuncts = 1
	}

	idx := d.Index
	count := float64(0)
	if d.Collection != nil {
		count = float64(d.Collection.Count())
	}

	// An index-advertised selectivity estimate on a pure equality lookup
	// is preferred over the type-specific formula for every index type
	// except PRIMARY and EDGE (EDGE already consults it directly below).
	if idx != nil && idx.Type != catalog.PRIMARY && idx.Type != catalog.EDGE {
		if s, ok := idx.SelectivityEstimate(); ok && s > 0 && isPureEqualityDNF(d.Ranges) {
			out := float64(in) * float64(numDisjuncts) * (1.0 / s)
			return roundItems(out), depCost + out
		}
	}

	switch idx.Type {
	case catalog.PRIMARY:
		out := float64(in) * float64(numDisjuncts)
		return roundItems(out), depCost + out

	case catalog.EDGE:
		var out float64
		if s, ok := idx.SelectivityEstimate(); ok && s > 0 {
			out = float64(in) * float64(numDisjuncts) * (1.0 / s)
		} else {
			out = float64(in) * float64(numDisjuncts) * count / w.EdgeIndexFallbackDivisor
		}
		return roundItems(out), depCost + out

	case catalog.HASH:
		attrsMatched := countEqualityAttrs(d.Ranges, idx.Fields)
		if idx.Unique && isPureEqualityDNF(d.Ranges) && attrsMatched == len(idx.Fields) {
			out := float64(in) * float64(numDisjuncts)
			return roundItems(out), depCost + out
		}
		out := float64(in) * count
		for i := 0; i < attrsMatched; i++ {
			out /= w.HashEqualityReductionFactor
		}
		tieBreak := w.HashTieBreakBase - w.HashTieBreakPerAttr*float64(attrsMatched)
		out *= tieBreak
		return roundItems(out), depCost + out

	case catalog.SKIPLIST:
		if idx.Unique && isPureEqualityDNF(d.Ranges) {
			out := float64(in) * float64(numDisjuncts)
			return roundItems(out), depCost + out
		}
		var total float64
		for _, disjunct := range d.Ranges {
			val := count * float64(in)
			equalityAttrs := 0
			hasBoth, hasOne := false, false
			for _, r := range disjunct {
				if r.Equality {
					equalityAttrs++
					continue
				}
				if r.Low.HasBound && r.High.HasBound {
					hasBoth = true
				} else if r.Low.HasBound || r.High.HasBound {
					hasOne = true
				}
			}
			for i := 0; i < equalityAttrs; i++ {
				val /= w.SkiplistEqualityDivisor
			}
			if hasBoth {
				val /= w.SkiplistBothBoundsDivisor
			} else if hasOne {
				val /= w.SkiplistOneBoundDivisor
			}
			additional := len(disjunct) - 1
			if additional > 0 {
				val *= math.Pow(w.SkiplistAdditionalBoundMultiplier, float64(additional))
			}
			total += val
		}
		return roundItems(total), depCost + total

	default:
		out := float64(in) * float64(numDisjuncts)
		return roundItems(out), depCost + out
	}
}
