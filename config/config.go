// Package config holds the optimizer's tunable configuration: the
// driver options (max number of plans, rule enable/disable list) and
// the cost estimator's heuristic weights, exposed as a config struct so
// they can be retuned without a rebuild. Loadable from YAML so
// deployments can retune without a rebuild.
package config

import (
	"gopkg.in/yaml.v2"

	"github.com/ariadnedb/aqlplan/cost"
)

// OptimizerConfig is the full set of knobs the optimizer driver and cost
// estimator accept.
type OptimizerConfig struct {
	// MaxNumberOfPlans bounds the optimizer's plan frontier; once the
	// frontier exceeds this size it is pruned down by estimated cost.
	MaxNumberOfPlans int `yaml:"maxNumberOfPlans"`

	// MaxAnalysisIterations bounds how many rule passes (one per enabled
	// rule) may run before the driver gives up and returns an internal
	// error.
	MaxAnalysisIterations int `yaml:"maxAnalysisIterations"`

	// Rules is a list of `+name`/`-name` tokens (and the pseudo-rule
	// `all`) controlling which named rules run, applied in order.
	Rules []string `yaml:"rules"`

	// Weights are the cost estimator's heuristic constants.
	Weights cost.Weights `yaml:"weights"`
}

// Default returns the optimizer's default configuration: the full rule
// set enabled, a 1000-plan frontier cap, and the cost estimator's default
// weights.
func Default() OptimizerConfig {
	return OptimizerConfig{
		MaxNumberOfPlans:      1000,
		MaxAnalysisIterations: 100,
		Rules:                 []string{"+all"},
		Weights:               cost.DefaultWeights(),
	}
}

// LoadYAML parses a YAML document into an OptimizerConfig, starting from
// Default() so an omitted field keeps its default rather than zeroing
// out.
func LoadYAML(data []byte) (OptimizerConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return OptimizerConfig{}, err
	}
	return cfg, nil
}

// MarshalYAML serializes cfg back to YAML, for round-tripping a tuned
// configuration.
func (c OptimizerConfig) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
