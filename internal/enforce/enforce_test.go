// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enforce

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/phaseplan/internal/affinity"
	"github.com/pdiddy/phaseplan/pkg/types"
)

func vocabulary() types.Vocabulary {
	return types.Vocabulary{
		types.CategoryMaterials:    {"NCM811", "LFP"},
		types.CategoryTools:        {"XRD", "SEM"},
		types.CategoryProcesses:    {"塗工", "焼結"},
		types.CategoryKPI:          {"エネルギー密度", "サイクル寿命", "内部抵抗"},
		types.CategoryFailures:     {"熱暴走", "短絡"},
		types.CategoryDeliverables: {"評価レポート", "仕様書"},
	}
}

// genericTable returns a full table whose fields hold no vocabulary term.
func genericTable() types.PhaseTable {
	t := types.PhaseTable{}
	for _, p := range types.Phases() {
		t[p] = types.PhaseRecord{
			PhaseName:       p.Label(),
			Activities:      "関係者と打合せ",
			Inputs:          "前工程の資料",
			Outputs:         "議事録",
			Tools:           "表計算",
			Stakeholders:    "担当者(R)",
			KPI:             "進捗率",
			Risks:           "遅延",
			Countermeasures: "定例で確認",
		}
	}
	return t
}

func newEnforcer() *Enforcer {
	return New(affinity.Default(), types.DefaultEnforcementConfig())
}

func TestEnforceActivitiesGainsOnlyMissingComponent(t *testing.T) {
	in := genericTable()
	rec := in[types.Phase1]
	rec.Activities = "塗工条件の最適化"
	in[types.Phase1] = rec

	out, report := newEnforcer().Enforce(in, vocabulary())

	got := out[types.Phase1].Activities
	assert.Equal(t, "NCM811 : 塗工条件の最適化", got)
	assert.True(t, strings.HasSuffix(got, "塗工条件の最適化"))
	require.NotEmpty(t, report.Injections)
	assert.Equal(t, Injection{Phase: types.Phase1, Field: types.FieldActivities, Terms: []string{"NCM811"}}, report.Injections[0])
}

func TestEnforceActivitiesBothComponentsMissing(t *testing.T) {
	out, _ := newEnforcer().Enforce(genericTable(), vocabulary())
	assert.Equal(t, "塗工 / NCM811 : 関係者と打合せ", out[types.Phase1].Activities)
}

func TestEnforceActivitiesFallsBackToTools(t *testing.T) {
	v := vocabulary()
	delete(v, types.CategoryMaterials)
	out, _ := newEnforcer().Enforce(genericTable(), v)
	assert.Equal(t, "塗工 / XRD : 関係者と打合せ", out[types.Phase1].Activities)
}

func TestEnforceFieldSeparators(t *testing.T) {
	out, _ := newEnforcer().Enforce(genericTable(), vocabulary())
	rec := out[types.Phase1]

	assert.Equal(t, "XRD, SEM, 表計算", rec.Tools)
	assert.Equal(t, "LFP / 前工程の資料", rec.Inputs)
	assert.Equal(t, "評価レポート / 仕様書 / 議事録", rec.Outputs)
	assert.Equal(t, "エネルギー密度, サイクル寿命, 進捗率", rec.KPI)
	assert.Equal(t, "熱暴走 / 短絡 / 遅延", rec.Risks)

	// Unchecked fields pass through.
	assert.Equal(t, "担当者(R)", rec.Stakeholders)
	assert.Equal(t, "定例で確認", rec.Countermeasures)
}

func TestEnforceSpreadsTermsWithUsagePenalty(t *testing.T) {
	out, _ := newEnforcer().Enforce(genericTable(), vocabulary())

	assert.True(t, strings.HasPrefix(out[types.Phase1].KPI, "エネルギー密度, サイクル寿命, "))
	// phase_2 prefers the unused term, then the earliest-ranked used one.
	assert.True(t, strings.HasPrefix(out[types.Phase2].KPI, "内部抵抗, エネルギー密度, "))
}

func TestEnforceSatisfiesEveryCheckedField(t *testing.T) {
	// A single tool must still reach all seven phases even though the
	// per-pass limit is three.
	v := vocabulary()
	v[types.CategoryTools] = []string{"XRD"}

	out, _ := newEnforcer().Enforce(genericTable(), v)
	for _, p := range types.Phases() {
		assert.True(t, Satisfied(out[p], v), "phase %s", p)
		assert.Contains(t, out[p].Tools, "XRD")
	}
}

// scarceMaterials holds a single material next to enough tools and
// deliverables to fill every field without reaching the per-pass limit.
func scarceMaterials() types.Vocabulary {
	return types.Vocabulary{
		types.CategoryMaterials:    {"NCM811"},
		types.CategoryTools:        {"XRD", "SEM", "EDS", "TEM", "XPS", "DSC"},
		types.CategoryProcesses:    {"混練", "塗工", "乾燥"},
		types.CategoryDeliverables: {"評価レポート", "仕様書", "計画書", "試験成績書", "図面", "手順書"},
	}
}

func TestEnforceRespectsPerPassLimit(t *testing.T) {
	cfg := types.DefaultEnforcementConfig()
	for f := range cfg.InjectCounts {
		cfg.InjectCounts[f] = 1
	}
	v := scarceMaterials()

	out, report := New(affinity.Default(), cfg).Enforce(genericTable(), v)

	counts := make(map[string]int)
	for _, term := range report.Terms() {
		counts[term]++
	}
	for term, n := range counts {
		assert.LessOrEqual(t, n, cfg.MaxUsesPerPass, "term %s", term)
	}
	assert.Equal(t, cfg.MaxUsesPerPass, counts["NCM811"])

	// Once the material is spent the alternatives take over.
	last := out[types.Phase7]
	assert.True(t, containsAny(last.Inputs, v, types.CategoryDeliverables), "inputs %q", last.Inputs)
	assert.True(t, containsAny(last.Activities, v, types.CategoryTools), "activities %q", last.Activities)
	for _, p := range types.Phases() {
		assert.True(t, Satisfied(out[p], v), "phase %s", p)
	}
}

func TestEnforceFallsThroughToAlternativeCategory(t *testing.T) {
	v := scarceMaterials()
	v[types.CategoryTools] = []string{"XRD", "SEM", "EDS"}
	v[types.CategoryDeliverables] = []string{"評価レポート", "仕様書", "計画書"}

	out, report := newEnforcer().Enforce(genericTable(), v)

	// NCM811 fills phase_1 and phase_2; phase_3 turns to tools and
	// deliverables.
	assert.Equal(t, "乾燥 / SEM : 関係者と打合せ", out[types.Phase3].Activities)
	assert.Equal(t, "計画書 / 前工程の資料", out[types.Phase3].Inputs)
	for _, inj := range report.Injections {
		if inj.Phase >= types.Phase3 && (inj.Field == types.FieldInputs || inj.Field == types.FieldActivities) {
			assert.NotContains(t, inj.Terms, "NCM811", "%s %s", inj.Phase, inj.Field)
		}
	}
}

func TestEnforceBuildsMissingPhasesFromSkeleton(t *testing.T) {
	skeleton := types.PhaseTable{
		types.Phase5: {PhaseName: "量産試作", KPI: "歩留まり", Countermeasures: "工程FMEA"},
	}
	in := genericTable()
	delete(in, types.Phase5)
	delete(in, types.Phase6)

	out, report := newEnforcer().WithSkeleton(skeleton).Enforce(in, vocabulary())

	assert.Equal(t, []types.Phase{types.Phase5, types.Phase6}, report.CreatedPhases)
	assert.Equal(t, "量産試作", out[types.Phase5].PhaseName)
	assert.Equal(t, "工程FMEA", out[types.Phase5].Countermeasures)
	assert.True(t, strings.HasSuffix(out[types.Phase5].KPI, ", 歩留まり"), "kpi %q", out[types.Phase5].KPI)
	assert.Equal(t, types.Phase6.Label(), out[types.Phase6].PhaseName)
}

func TestEnforceIsIdempotent(t *testing.T) {
	e := newEnforcer()
	v := vocabulary()

	once, first := e.Enforce(genericTable(), v)
	require.True(t, first.Changed())

	twice, second := e.Enforce(once, v)
	assert.False(t, second.Changed())
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second pass changed the table (-once +twice):\n%s", diff)
	}
}

func TestEnforceLeavesSatisfiedFieldsAlone(t *testing.T) {
	in := genericTable()
	rec := in[types.Phase4]
	rec.Tools = "sem観察"
	rec.Risks = "短絡リスク"
	in[types.Phase4] = rec

	out, report := newEnforcer().Enforce(in, vocabulary())
	assert.Equal(t, "sem観察", out[types.Phase4].Tools)
	assert.Equal(t, "短絡リスク", out[types.Phase4].Risks)
	for _, inj := range report.Injections {
		if inj.Phase == types.Phase4 {
			assert.NotContains(t, []types.Field{types.FieldTools, types.FieldRisks}, inj.Field)
		}
	}
}

func TestEnforceEmptyVocabularyChangesNothing(t *testing.T) {
	in := genericTable()
	out, report := newEnforcer().Enforce(in, types.Vocabulary{})
	assert.False(t, report.Changed())
	assert.Equal(t, in, out)
}

func TestEnforceEmptyCategoryLeavesFieldUnchanged(t *testing.T) {
	v := vocabulary()
	delete(v, types.CategoryFailures)
	out, _ := newEnforcer().Enforce(genericTable(), v)
	for _, p := range types.Phases() {
		assert.Equal(t, "遅延", out[p].Risks)
	}
}

func TestEnforceFillsMissingPhasesAndFields(t *testing.T) {
	in := types.PhaseTable{
		types.Phase2: {PhaseName: "要件整理"},
	}
	out, report := newEnforcer().Enforce(in, vocabulary())

	assert.Len(t, out, types.NumPhases)
	assert.Equal(t, []types.Phase{
		types.Phase1, types.Phase3, types.Phase4, types.Phase5, types.Phase6, types.Phase7,
	}, report.CreatedPhases)
	assert.Equal(t, types.Phase5.Label(), out[types.Phase5].PhaseName)
	assert.Equal(t, "要件整理", out[types.Phase2].PhaseName)

	// Empty fields receive the terms alone, without a dangling separator.
	assert.Equal(t, "塗工 / NCM811", out[types.Phase1].Activities)
	assert.Equal(t, "XRD, SEM", out[types.Phase1].Tools)
}

func TestEnforceDoesNotMutateInputs(t *testing.T) {
	in := genericTable()
	v := vocabulary()
	inCopy, vCopy := in.Clone(), v.Clone()

	newEnforcer().Enforce(in, v)
	assert.Equal(t, inCopy, in)
	assert.Equal(t, vCopy, v)
}

func TestEnforceCaseInsensitiveMembership(t *testing.T) {
	in := genericTable()
	rec := in[types.Phase1]
	rec.Activities = "ncm811スラリーの塗工"
	in[types.Phase1] = rec

	out, _ := newEnforcer().Enforce(in, vocabulary())
	assert.Equal(t, "ncm811スラリーの塗工", out[types.Phase1].Activities)
}
