package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEnablesAllRulesWithSaneBounds(t *testing.T) {
	cfg := Default()
	assert.Positive(t, cfg.MaxNumberOfPlans)
	assert.Positive(t, cfg.MaxAnalysisIterations)
	assert.Equal(t, []string{"+all"}, cfg.Rules)
}

func TestLoadYAMLKeepsDefaultsForOmittedFields(t *testing.T) {
	cfg, err := LoadYAML([]byte(`maxNumberOfPlans: 50`))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxNumberOfPlans)
	assert.Equal(t, Default().MaxAnalysisIterations, cfg.MaxAnalysisIterations)
}

func TestLoadYAMLOverridesRules(t *testing.T) {
	cfg, err := LoadYAML([]byte("rules:\n  - \"+all\"\n  - \"-useIndexForSort\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"+all", "-useIndexForSort"}, cfg.Rules)
}

func TestLoadYAMLRejectsMalformedInput(t *testing.T) {
	_, err := LoadYAML([]byte("not: [valid yaml"))
	assert.Error(t, err)
}

func TestMarshalYAMLRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.MaxNumberOfPlans = 42

	data, err := cfg.MarshalYAML()
	require.NoError(t, err)
	reloaded, err := LoadYAML(data)
	require.NoError(t, err)
	assert.Equal(t, 42, reloaded.MaxNumberOfPlans)
}
