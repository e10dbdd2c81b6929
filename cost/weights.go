// Package cost implements the per-node cardinality and cost formulas: a
// memoized, bottom-up estimator over the plan graph.
package cost

// Weights exposes the estimator's heuristic constants as calibration
// parameters rather than hardcoded contracts. DefaultWeights reproduces
// their historical values.
type Weights struct {
	// RandomEnumerationPenalty multiplies EnumerateCollection's local
	// cost when Random is true.
	RandomEnumerationPenalty float64

	// EnumerateListDefaultLength is used when an EnumerateList's input
	// variable's setter shape cannot be sized statically.
	EnumerateListDefaultLength uint64

	// EdgeIndexFallbackDivisor divides collection count when an EDGE
	// index has no selectivity estimate.
	EdgeIndexFallbackDivisor float64

	// HashEqualityReductionFactor is the per-attribute reduction applied
	// for a non-unique HASH index equality match.
	HashEqualityReductionFactor float64

	// HashTieBreakBase and HashTieBreakPerAttr compute the tie-break
	// multiplier `base - perAttr*attrsMatched` favoring more selective
	// hash indexes.
	HashTieBreakBase    float64
	HashTieBreakPerAttr float64

	// SkiplistEqualityDivisor divides per equality-bound attribute.
	SkiplistEqualityDivisor float64
	// SkiplistBothBoundsDivisor divides when both bounds are present.
	SkiplistBothBoundsDivisor float64
	// SkiplistOneBoundDivisor divides when exactly one bound is present.
	SkiplistOneBoundDivisor float64
	// SkiplistAdditionalBoundMultiplier multiplies per additional bound
	// expression beyond the first.
	SkiplistAdditionalBoundMultiplier float64

	// SortLogThreshold is the `in > 3` cutoff below which Sort's local
	// cost degrades to linear instead of in*log(in).
	SortLogThreshold uint64
}

// DefaultWeights returns the estimator's default heuristic constants.
func DefaultWeights() Weights {
	return Weights{
		RandomEnumerationPenalty:          1.005,
		EnumerateListDefaultLength:        100,
		EdgeIndexFallbackDivisor:          100.0,
		HashEqualityReductionFactor:       100.0,
		HashTieBreakBase:                  0.9999995,
		HashTieBreakPerAttr:               0.01,
		SkiplistEqualityDivisor:           100.0,
		SkiplistBothBoundsDivisor:         10.0,
		SkiplistOneBoundDivisor:           2.0,
		SkiplistAdditionalBoundMultiplier: 0.95,
		SortLogThreshold:                  3,
	}
}
