// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package affinity holds the static suitability scores of each vocabulary
// category for each phase. The allocator, the enforcer and the validator
// share one Table value.
package affinity

import (
	"fmt"
	"sort"

	"github.com/pdiddy/phaseplan/pkg/types"
)

// Table is a fully populated (category, phase) → score matrix with scores
// in [0,1]. The zero value scores everything 0; use Default or FromMap.
type Table struct {
	scores [types.NumCategories][types.NumPhases]float64
}

// defaultScores rows follow types.Categories() order; columns are
// phase_1..phase_7.
var defaultScores = [types.NumCategories][types.NumPhases]float64{
	{0.8, 0.9, 1.0, 0.7, 0.3, 0.2, 0.4}, // materials_or_products
	{0.7, 0.2, 0.8, 1.0, 0.9, 0.1, 0.5}, // tools_and_equipment
	{0.3, 0.4, 1.0, 0.9, 0.6, 0.2, 0.7}, // processes
	{0.5, 0.9, 0.7, 0.6, 1.0, 0.4, 0.8}, // industry_specific_kpi
	{1.0, 0.9, 0.3, 0.2, 0.8, 0.7, 0.4}, // constraints_or_regulations
	{0.4, 0.5, 0.8, 0.7, 0.9, 0.3, 1.0}, // common_failures
	{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, // stakeholders
	{0.6, 0.7, 0.9, 0.5, 1.0, 0.8, 0.6}, // deliverables
}

// Default returns the built-in affinity table.
func Default() Table {
	return Table{scores: defaultScores}
}

// FromMap builds a table from nested maps. Every category and phase must be
// present and every score must lie in [0,1]; a partial map is rejected
// rather than silently scoring the gaps as 0.
func FromMap(m map[types.Category]map[types.Phase]float64) (Table, error) {
	var t Table
	for _, c := range types.Categories() {
		row, ok := m[c]
		if !ok {
			return Table{}, fmt.Errorf("affinity: missing category %s", c)
		}
		for _, p := range types.Phases() {
			s, ok := row[p]
			if !ok {
				return Table{}, fmt.Errorf("affinity: missing score for %s/%s", c, p)
			}
			if s < 0 || s > 1 {
				return Table{}, fmt.Errorf("affinity: score %.2f for %s/%s outside [0,1]", s, c, p)
			}
			t.scores[c.Index()][p.Index()] = s
		}
	}
	for c := range m {
		if !c.Valid() {
			return Table{}, fmt.Errorf("affinity: %w: %q", types.ErrUnknownCategory, string(c))
		}
	}
	return t, nil
}

// Score returns the affinity of c for p. Invalid identifiers score 0.
func (t Table) Score(c types.Category, p types.Phase) float64 {
	ci := c.Index()
	if ci < 0 || !p.Valid() {
		return 0
	}
	return t.scores[ci][p.Index()]
}

// Rank returns all phases ordered by score descending. Ties keep phase
// order, so phase_1 precedes phase_7 at equal scores.
func (t Table) Rank(c types.Category) []types.Phase {
	phases := types.Phases()
	sort.SliceStable(phases, func(i, j int) bool {
		return t.Score(c, phases[i]) > t.Score(c, phases[j])
	})
	return phases
}

// Map returns the table as nested maps, the form used in profile files.
func (t Table) Map() map[types.Category]map[types.Phase]float64 {
	out := make(map[types.Category]map[types.Phase]float64, types.NumCategories)
	for _, c := range types.Categories() {
		row := make(map[types.Phase]float64, types.NumPhases)
		for _, p := range types.Phases() {
			row[p] = t.Score(c, p)
		}
		out[c] = row
	}
	return out
}
