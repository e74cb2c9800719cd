// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 0.6, cfg.Allocation.AffinityThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Allocation.ReuseCapStandard)
	assert.Equal(t, 5, cfg.Allocation.ReuseCapCore)
	assert.Len(t, cfg.Allocation.SubsetLimits, NumCategories)
	assert.Len(t, cfg.Validation.CategoryWeights, NumCategories)
	assert.Equal(t, 10, cfg.Vocabulary.MinPerCategory)
	assert.Equal(t, "runs", cfg.Store.RunsDir)

	// Defaults are fresh maps on every call.
	cfg.Allocation.SubsetLimits[CategoryTools] = 99
	assert.Equal(t, 8, DefaultPipelineConfig().Allocation.SubsetLimits[CategoryTools])
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
		want   []string
	}{
		{
			name:   "threshold out of range",
			mutate: func(c *PipelineConfig) { c.Allocation.AffinityThreshold = 1.5 },
			want:   []string{"allocation.affinity_threshold 1.50 outside [0,1]"},
		},
		{
			name: "caps",
			mutate: func(c *PipelineConfig) {
				c.Allocation.ReuseCapStandard = 0
				c.Allocation.ReuseCapCore = -1
			},
			want: []string{"reuse_cap_standard must be at least 1", "reuse_cap_core -1 below reuse_cap_standard 0"},
		},
		{
			name:   "unknown category",
			mutate: func(c *PipelineConfig) { c.Validation.CategoryWeights["gadgets"] = 1 },
			want:   []string{`validation.category_weights: unknown category: "gadgets"`},
		},
		{
			name:   "negative weight",
			mutate: func(c *PipelineConfig) { c.Validation.CategoryWeights[CategoryKPI] = -0.5 },
			want:   []string{"category_weights[industry_specific_kpi] is negative"},
		},
		{
			name: "enforcement and generation",
			mutate: func(c *PipelineConfig) {
				c.Enforcement.MaxUsesPerPass = 0
				c.Generation.MaxRetries = -1
			},
			want: []string{"max_uses_per_pass must be at least 1", "generation.max_retries is negative"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}
