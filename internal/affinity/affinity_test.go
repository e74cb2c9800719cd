// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/phaseplan/pkg/types"
)

func TestDefaultFullyPopulated(t *testing.T) {
	tbl := Default()
	for _, c := range types.Categories() {
		for _, p := range types.Phases() {
			s := tbl.Score(c, p)
			assert.GreaterOrEqual(t, s, 0.0, "%s/%s", c, p)
			assert.LessOrEqual(t, s, 1.0, "%s/%s", c, p)
		}
	}
	assert.Equal(t, 1.0, tbl.Score(types.CategoryMaterials, types.Phase3))
	assert.Equal(t, 0.4, tbl.Score(types.CategoryMaterials, types.Phase7))
	assert.Equal(t, 1.0, tbl.Score(types.CategoryRegulations, types.Phase1))
}

func TestScoreInvalidIdentifiers(t *testing.T) {
	tbl := Default()
	assert.Equal(t, 0.0, tbl.Score(types.Category("bogus"), types.Phase1))
	assert.Equal(t, 0.0, tbl.Score(types.CategoryTools, types.Phase(0)))
	assert.Equal(t, 0.0, tbl.Score(types.CategoryTools, types.Phase(8)))
}

func TestRank(t *testing.T) {
	tbl := Default()

	tests := []struct {
		name     string
		category types.Category
		want     []types.Phase
	}{
		{
			name:     "materials peak at phase_3",
			category: types.CategoryMaterials,
			want:     []types.Phase{types.Phase3, types.Phase2, types.Phase1, types.Phase4, types.Phase7, types.Phase5, types.Phase6},
		},
		{
			name:     "ties keep phase order",
			category: types.CategoryStakeholders,
			want:     types.Phases(),
		},
		{
			name:     "processes descend from phase_3",
			category: types.CategoryProcesses,
			want:     []types.Phase{types.Phase3, types.Phase4, types.Phase7, types.Phase5, types.Phase2, types.Phase1, types.Phase6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tbl.Rank(tt.category))
		})
	}
}

func TestFromMapRoundTrip(t *testing.T) {
	tbl, err := FromMap(Default().Map())
	require.NoError(t, err)
	assert.Equal(t, Default(), tbl)
}

func TestFromMapRejectsPartialTables(t *testing.T) {
	m := Default().Map()
	delete(m[types.CategoryTools], types.Phase5)
	_, err := FromMap(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tools_and_equipment/phase_5")

	m = Default().Map()
	delete(m, types.CategoryKPI)
	_, err = FromMap(m)
	require.Error(t, err)

	m = Default().Map()
	m[types.CategoryKPI][types.Phase2] = 1.5
	_, err = FromMap(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,1]")

	m = Default().Map()
	m[types.Category("extra")] = m[types.CategoryKPI]
	_, err = FromMap(m)
	require.ErrorIs(t, err, types.ErrUnknownCategory)
}
