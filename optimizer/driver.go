// Package optimizer implements the optimization driver: a multi-plan
// frontier, rule scheduling by level, cost-based pruning, and a final
// deterministic sort that picks the cheapest plan.
package optimizer

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariadnedb/aqlplan/config"
	"github.com/ariadnedb/aqlplan/cost"
	"github.com/ariadnedb/aqlplan/internal/ids"
	"github.com/ariadnedb/aqlplan/metrics"
	"github.com/ariadnedb/aqlplan/plan"
	"github.com/ariadnedb/aqlplan/planerrors"
	"github.com/ariadnedb/aqlplan/tracing"
	"github.com/ariadnedb/aqlplan/usage"
)

var log = logrus.WithField("component", "optimizer")

// Driver holds the static rule table and the configuration a particular
// optimization run is parameterized by.
type Driver struct {
	rules []Rule
	cfg   config.OptimizerConfig
}

// NewDriver sorts rules by (level, registration order) once up front and
// returns a Driver ready to Optimize plans with it.
func NewDriver(rules []Rule, cfg config.OptimizerConfig) *Driver {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
	return &Driver{rules: sorted, cfg: cfg}
}

// Rules returns the driver's registered rules as introspectable
// descriptors, in application order.
func (d *Driver) Rules() []RuleDescriptor {
	out := make([]RuleDescriptor, len(d.rules))
	for i, r := range d.rules {
		out[i] = RuleDescriptor{Name: r.Name, Level: r.Level, EnabledByDefault: r.EnabledByDefault}
	}
	return out
}

func resolveEnabled(rules []Rule, tokens []string) map[string]bool {
	enabled := make(map[string]bool, len(rules))
	for _, r := range rules {
		enabled[r.Name] = r.EnabledByDefault
	}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if len(tok) < 2 {
			continue
		}
		sign := tok[0]
		name := tok[1:]
		if sign != '+' && sign != '-' {
			continue
		}
		val := sign == '+'
		if name == "all" {
			for _, r := range rules {
				enabled[r.Name] = val
			}
			continue
		}
		if _, known := enabled[name]; known {
			enabled[name] = val
		}
	}
	return enabled
}

// candidate pairs a plan with the driver bookkeeping it needs: how far
// through the rule levels it has progressed, the applied
// rule names so far (in order), and a creation sequence number used only
// to make the final cost-tie sort fully deterministic.
type candidate struct {
	p          *plan.Plan
	lastLevel  int
	applied    []string
	sequence   int
}

// Result is the outcome of a successful Optimize call.
type Result struct {
	Plan          *plan.Plan
	AppliedRules  []string
	EstimatedCost float64
	EstimatedItems uint64
}

const minLevel = -1 << 30

// Optimize runs the full driver loop over initial: it resolves the
// enabled rule set from cfg.Rules, applies every enabled rule in level
// order (forking the frontier as rules dictate), prunes by cost whenever
// the frontier exceeds MaxNumberOfPlans, and finally cost-sorts the
// surviving plans to pick the cheapest. Each returned plan has already
// been through a final usage analysis + cost recompute pass before the
// sort runs.
func (d *Driver) Optimize(ctx *Context, initial *plan.Plan) (*Result, error) {
	runId := ids.NewRunID()
	runLog := log.WithField("run_id", runId)
	span, _ := tracing.StartOptimize(context.Background())
	defer span.Finish()
	start := time.Now()
	defer func() { metrics.OptimizationDuration.Observe(time.Since(start).Seconds()) }()

	enabled := resolveEnabled(d.rules, d.cfg.Rules)
	seq := 0
	current := []*candidate{{p: initial, lastLevel: minLevel, sequence: seq}}

	iterations := 0
	for _, r := range d.rules {
		if !enabled[r.Name] {
			continue
		}
		iterations++
		if d.cfg.MaxAnalysisIterations > 0 && iterations > d.cfg.MaxAnalysisIterations {
			return nil, planerrors.ErrInternal.New("optimizer exceeded max analysis iterations")
		}
		if ctx.isCancelled() {
			return nil, planerrors.ErrCancelled.New()
		}

		var next []*candidate
		for _, c := range current {
			if ctx.isCancelled() {
				return nil, planerrors.ErrCancelled.New()
			}
			if c.lastLevel >= r.Level {
				next = append(next, c)
				continue
			}
			before := c.p.Explain()
			results, err := r.Apply(ctx, c.p)
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				// A rule must never drop a plan outright; treat an
				// empty result as a no-op.
				results = []*plan.Plan{c.p}
			}
			for _, rp := range results {
				applied := c.applied
				// Rules that rewrite in place return {p}, so an unchanged
				// pointer alone does not mean the rule did nothing.
				if rp != c.p || len(results) > 1 || rp.Explain() != before {
					applied = append(append([]string(nil), c.applied...), r.Name)
					metrics.RuleApplications.WithLabelValues(r.Name).Inc()
				}
				seq++
				metrics.PlansConsidered.Inc()
				next = append(next, &candidate{p: rp, lastLevel: r.Level, applied: applied, sequence: seq})
			}
		}
		current = next

		if d.cfg.MaxNumberOfPlans > 0 && len(current) > d.cfg.MaxNumberOfPlans {
			before := len(current)
			var err error
			current, err = d.pruneByCost(current)
			if err != nil {
				return nil, err
			}
			metrics.PlansPruned.Add(float64(before - len(current)))
			runLog.WithField("kept", len(current)).Warn("pruned optimizer frontier by cost")
		}
	}

	if len(current) == 0 {
		return nil, planerrors.ErrInternal.New("optimizer produced an empty frontier")
	}

	for _, c := range current {
		if err := d.recost(c.p); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(current, func(i, j int) bool { return less(current[i], current[j]) })

	best := current[0]
	bestCost, bestItems := estimateRoot(best.p)
	span.SetPlanCount(len(current))
	span.SetAppliedRules(len(best.applied))
	return &Result{Plan: best.p, AppliedRules: best.applied, EstimatedCost: bestCost, EstimatedItems: bestItems}, nil
}

func (d *Driver) pruneByCost(cands []*candidate) ([]*candidate, error) {
	for _, c := range cands {
		if err := d.recost(c.p); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return less(cands[i], cands[j]) })
	if len(cands) > d.cfg.MaxNumberOfPlans {
		cands = cands[:d.cfg.MaxNumberOfPlans]
	}
	return cands, nil
}

func (d *Driver) recost(p *plan.Plan) error {
	varSetBy, err := usage.Analyze(p, p.Vars)
	if err != nil {
		return err
	}
	return cost.Recompute(p, varSetBy, d.cfg.Weights)
}

func estimateRoot(p *plan.Plan) (float64, uint64) {
	root := p.Root()
	c, _ := root.EstimatedCost()
	items, _ := root.EstimatedNrItems()
	return c, items
}

func less(a, b *candidate) bool {
	ac, ai := estimateRoot(a.p)
	bc, bi := estimateRoot(b.p)
	if ac != bc {
		return ac < bc
	}
	if ai != bi {
		return ai < bi
	}
	return a.sequence < b.sequence
}
