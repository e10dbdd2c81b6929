// Package metrics exposes the optimizer driver's Prometheus
// instrumentation: how many plans the frontier ever considered, how many
// got pruned, how often each named rule actually fired, and how long a
// full Optimize call took.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PlansConsidered counts every candidate plan the driver ever created,
	// including ones later pruned by cost.
	PlansConsidered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aqlplan",
		Subsystem: "optimizer",
		Name:      "plans_considered_total",
		Help:      "Total candidate plans created across all Optimize calls.",
	})

	// PlansPruned counts candidates discarded by pruneByCost when the
	// frontier exceeded MaxNumberOfPlans.
	PlansPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aqlplan",
		Subsystem: "optimizer",
		Name:      "plans_pruned_total",
		Help:      "Total candidate plans discarded by cost-based pruning.",
	})

	// RuleApplications counts how many times each named rule actually
	// changed or forked a plan (as opposed to returning it unchanged).
	RuleApplications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aqlplan",
		Subsystem: "optimizer",
		Name:      "rule_applications_total",
		Help:      "Rule applications that produced a changed or forked plan, by rule name.",
	}, []string{"rule"})

	// OptimizationDuration observes the wall-clock cost of one Optimize
	// call.
	OptimizationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aqlplan",
		Subsystem: "optimizer",
		Name:      "optimization_duration_seconds",
		Help:      "Time spent inside Driver.Optimize.",
		Buckets:   prometheus.DefBuckets,
	})
)

// MustRegister registers every metric in this package with reg. Call once
// at process startup; the zero-value collectors above are otherwise
// inert. Separated from package init so tests and the cmd/planshow demo
// can register against their own registry instead of the global default.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(PlansConsidered, PlansPruned, RuleApplications, OptimizationDuration)
}
