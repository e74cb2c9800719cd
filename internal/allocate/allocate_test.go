// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package allocate

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/phaseplan/internal/affinity"
	"github.com/pdiddy/phaseplan/pkg/types"
)

func sampleVocabulary() types.Vocabulary {
	return types.Vocabulary{
		types.CategoryMaterials:    {"NCM811", "LFP", "LiPF6"},
		types.CategoryTools:        {"XRD", "SEM"},
		types.CategoryProcesses:    {"混練", "塗工", "焼結"},
		types.CategoryKPI:          {"エネルギー密度", "サイクル寿命"},
		types.CategoryRegulations:  {"UN38.3"},
		types.CategoryFailures:     {"熱暴走"},
		types.CategoryStakeholders: {"品質保証", "OEM"},
		types.CategoryDeliverables: {"評価レポート"},
	}
}

func TestAllocatePlacesMaterialsAtPeakPhase(t *testing.T) {
	a := New(affinity.Default(), types.DefaultAllocationConfig())
	plan, report := a.Allocate(NewSession("EV", "材料開発"), sampleVocabulary())

	assert.Equal(t, []string{"NCM811", "LFP", "LiPF6"}, plan.Terms(types.Phase3, types.CategoryMaterials))
	assert.Empty(t, plan.Terms(types.Phase7, types.CategoryMaterials))
	assert.Equal(t, []types.Phase{types.Phase3}, plan.PhasesContaining("NCM811"))

	require.NotEmpty(t, report.Placements)
	first := report.Placements[0]
	assert.Equal(t, Placement{Term: "NCM811", Category: types.CategoryMaterials, Phase: types.Phase3, Score: 1.0}, first)
}

func TestAllocateForcesTopRankedPhaseBelowThreshold(t *testing.T) {
	a := New(affinity.Default(), types.DefaultAllocationConfig())
	plan, report := a.Allocate(NewSession("", ""), types.Vocabulary{
		types.CategoryStakeholders: {"品質保証", "OEM"},
	})

	// Every stakeholder score is 0.5; the tie resolves to phase_1.
	assert.Equal(t, []string{"品質保証", "OEM"}, plan.Terms(types.Phase1, types.CategoryStakeholders))
	assert.Equal(t, 2, report.Forced())
	for _, p := range report.Placements {
		assert.True(t, p.Forced)
		assert.Equal(t, 0.5, p.Score)
	}
}

func TestAllocateCoreTermCap(t *testing.T) {
	cfg := types.DefaultAllocationConfig()
	cfg.CoreTerms = []string{"NCM811"}
	a := New(affinity.Default(), cfg)
	s := NewSession("EV", "材料開発")
	vocab := types.Vocabulary{types.CategoryMaterials: {"NCM811", "LFP"}}

	for call := 1; call <= 5; call++ {
		plan, report := a.Allocate(s, vocab)
		assert.Contains(t, plan.Terms(types.Phase3, types.CategoryMaterials), "NCM811", "call %d", call)
		assert.Equal(t, call, s.Used("NCM811"))
		if call > 3 {
			assert.Equal(t, []Skip{{Term: "LFP", Category: types.CategoryMaterials, Used: 3, Cap: 3}}, report.Skipped)
		}
	}

	plan, report := a.Allocate(s, vocab)
	assert.Empty(t, plan.PhasesContaining("NCM811"))
	assert.Zero(t, plan.Placements())
	assert.Contains(t, report.Skipped, Skip{Term: "NCM811", Category: types.CategoryMaterials, Used: 5, Cap: 5})
	assert.True(t, report.Exhausted(types.CategoryMaterials))
	assert.Equal(t, 5, s.Used("NCM811"))
}

func TestAllocateReuseCapHoldsAcrossCalls(t *testing.T) {
	cfg := types.DefaultAllocationConfig()
	cfg.CoreTerms = []string{"XRD", "混練"}
	a := New(affinity.Default(), cfg)
	s := NewSession("", "")
	vocab := sampleVocabulary()

	placed := make(map[string]int)
	for i := 0; i < 8; i++ {
		plan, _ := a.Allocate(s, vocab)
		for _, term := range vocab.All() {
			placed[term] += len(plan.PhasesContaining(term))
		}
	}
	for term, n := range placed {
		assert.LessOrEqual(t, n, a.Cap(term), term)
		assert.Equal(t, a.Cap(term), n, "term %s should reach its cap exactly", term)
	}
}

func TestAllocateCoversEveryEligibleTerm(t *testing.T) {
	a := New(affinity.Default(), types.DefaultAllocationConfig())
	vocab := sampleVocabulary()
	plan, report := a.Allocate(NewSession("", ""), vocab)

	assert.Empty(t, report.Skipped)
	assert.Equal(t, vocab.Len(), plan.Placements())
	for _, c := range types.Categories() {
		for _, term := range vocab.Terms(c) {
			assert.Len(t, plan.PhasesContaining(term), 1, term)
		}
	}
}

func TestAllocateHonoursSubsetLimits(t *testing.T) {
	a := New(affinity.Default(), types.DefaultAllocationConfig())
	var tools []string
	for i := 1; i <= 12; i++ {
		tools = append(tools, fmt.Sprintf("TOOL%02d", i))
	}
	plan, _ := a.Allocate(NewSession("", ""), types.Vocabulary{types.CategoryTools: tools})

	// Tools peak at phase_4 and only the top 8 are eligible.
	assert.Equal(t, tools[:8], plan.Terms(types.Phase4, types.CategoryTools))
	assert.Empty(t, plan.PhasesContaining("TOOL09"))
}

func TestAllocateCountsUsageAcrossCategories(t *testing.T) {
	a := New(affinity.Default(), types.DefaultAllocationConfig())
	s := NewSession("", "")
	vocab := types.Vocabulary{
		types.CategoryMaterials: {"スラリー"},
		types.CategoryProcesses: {"スラリー"},
	}
	a.Allocate(s, vocab)
	assert.Equal(t, 2, s.Used("スラリー"))

	_, report := a.Allocate(s, vocab)
	// Third placement reaches the cap; the processes entry is skipped.
	assert.Equal(t, []Skip{{Term: "スラリー", Category: types.CategoryProcesses, Used: 3, Cap: 3}}, report.Skipped)
}

func TestAllocateIsDeterministic(t *testing.T) {
	a := New(affinity.Default(), types.DefaultAllocationConfig())
	vocab := sampleVocabulary()

	planA, reportA := a.Allocate(NewSession("", ""), vocab)
	planB, reportB := a.Allocate(NewSession("", ""), vocab)
	if diff := cmp.Diff(planA, planB); diff != "" {
		t.Errorf("plans differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(reportA, reportB); diff != "" {
		t.Errorf("reports differ (-first +second):\n%s", diff)
	}
}

func TestAllocateEmptyCategories(t *testing.T) {
	a := New(affinity.Default(), types.DefaultAllocationConfig())
	plan, report := a.Allocate(nil, types.Vocabulary{
		types.CategoryMaterials: {},
		types.CategoryTools:     nil,
	})
	assert.Zero(t, plan.Placements())
	assert.Len(t, plan, types.NumPhases)
	assert.Empty(t, report.Placements)
	assert.Empty(t, report.Skipped)
	assert.False(t, report.Exhausted(types.CategoryMaterials))
}

func TestAllocateCustomTable(t *testing.T) {
	m := affinity.Default().Map()
	m[types.CategoryMaterials] = map[types.Phase]float64{
		types.Phase1: 0.1, types.Phase2: 0.1, types.Phase3: 0.2, types.Phase4: 0.2,
		types.Phase5: 0.3, types.Phase6: 0.3, types.Phase7: 0.3,
	}
	table, err := affinity.FromMap(m)
	require.NoError(t, err)

	plan, report := New(table, types.DefaultAllocationConfig()).Allocate(nil, types.Vocabulary{
		types.CategoryMaterials: {"LFP"},
	})
	assert.Equal(t, []types.Phase{types.Phase5}, plan.PhasesContaining("LFP"))
	assert.Equal(t, 1, report.Forced())
}

func TestRestoreSession(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	usage := map[string]int{"LFP": 3, "XRD": 1}
	s := RestoreSession("abc", "EV", "材料開発", created, usage)
	usage["LFP"] = 0

	assert.Equal(t, 3, s.Used("LFP"))
	assert.Equal(t, []string{"LFP", "XRD"}, s.Terms())

	_, report := New(affinity.Default(), types.DefaultAllocationConfig()).Allocate(s, types.Vocabulary{
		types.CategoryMaterials: {"LFP"},
	})
	assert.Len(t, report.Skipped, 1)

	snap := s.Usage()
	snap["LFP"] = 99
	assert.Equal(t, 3, s.Used("LFP"))
}

func TestNewSessionHasUniqueID(t *testing.T) {
	a, b := NewSession("x", "y"), NewSession("x", "y")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
