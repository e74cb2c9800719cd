// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/phaseplan/internal/affinity"
	"github.com/pdiddy/phaseplan/pkg/types"
)

func TestBuiltin(t *testing.T) {
	profiles, err := Builtin()
	require.NoError(t, err)

	var names []string
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"EV材料開発", "電池セル開発", "モーター設計", "生産技術", "汎用製造技術職"}, names)

	ev := profiles[0]
	assert.Contains(t, ev.CoreTerms, "NCM811")
	assert.Equal(t, []string{"ラボ", "パイロット", "量産"}, ev.ScaleStages)
	assert.Equal(t, "A", ev.StakeholderRoles["開発部門長"])
	assert.Len(t, ev.PhaseOverrides, types.NumPhases)
	assert.Equal(t, "ラボ試作 スラリー調整 塗工 乾燥 焼結 パイロット試作", ev.PhaseOverrides[types.Phase4].Activities)
	assert.Equal(t, "試験合格率 性能ばらつきσ", ev.KPITemplates[types.Phase5])
	assert.Contains(t, ev.Hints.Terms(types.CategoryRegulations), "JIS C 8711")
	assert.Nil(t, ev.AllowPatterns)

	cell := profiles[1]
	assert.Equal(t, []string{"18650", "21700", "26650", "4680"}, cell.Hints.Terms(types.CategoryMaterials)[4:8])

	generic := profiles[4]
	assert.True(t, generic.Fallback)
	assert.Empty(t, generic.Match)
}

func TestRegistryResolve(t *testing.T) {
	r, err := NewRegistry(types.ProfileConfig{})
	require.NoError(t, err)

	tests := []struct {
		industry, role string
		want           string
	}{
		{"EV", "材料開発エンジニア", "EV材料開発"},
		{"自動車", "battery material engineer", "EV材料開発"},
		{"電池", "セル開発", "電池セル開発"},
		{"Automotive", "Cell Design Engineer", "電池セル開発"},
		{"自動車", "モーター設計", "モーター設計"},
		{"電機", "生産技術", "生産技術"},
		{"食品", "営業", "汎用製造技術職"},
	}
	for _, tt := range tests {
		t.Run(tt.industry+" "+tt.role, func(t *testing.T) {
			p, err := r.Resolve(tt.industry, tt.role)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
			assert.Equal(t, tt.industry, p.Industry)
			assert.Equal(t, tt.role, p.Role)
		})
	}
}

func TestRegistryResolveCaches(t *testing.T) {
	r := New([]types.Profile{{Name: "one", Match: [][]string{{"alpha"}}}}, time.Minute)

	p, err := r.Resolve("Alpha", "x")
	require.NoError(t, err)
	assert.Equal(t, "one", p.Name)

	// Replacing the list does not affect a cached resolution.
	r.profiles = nil
	p, err = r.Resolve("Alpha", "x")
	require.NoError(t, err)
	assert.Equal(t, "one", p.Name)

	r.Flush()
	_, err = r.Resolve("Alpha", "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryGet(t *testing.T) {
	r, err := NewRegistry(types.ProfileConfig{})
	require.NoError(t, err)

	p, err := r.Get("モーター設計")
	require.NoError(t, err)
	assert.Equal(t, []string{"設計", "試作", "耐久試験", "量産"}, p.ScaleStages)

	_, err = r.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	override := `name: EV材料開発
match:
  - [ev]
  - [材料]
core_terms: [LFP]
`
	extra := `name: 半導体プロセス
match:
  - [半導体, semiconductor]
core_terms: [EUV, CMP]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ev.yaml"), []byte(override), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "semi.yml"), []byte(extra), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r, err := NewRegistry(types.ProfileConfig{Dir: dir, CacheTTL: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, []string{"半導体プロセス", "EV材料開発", "電池セル開発", "モーター設計", "生産技術", "汎用製造技術職"}, r.Names())

	ev, err := r.Get("EV材料開発")
	require.NoError(t, err)
	assert.Equal(t, []string{"LFP"}, ev.CoreTerms)

	p, err := r.Resolve("Semiconductor", "エンジニア")
	require.NoError(t, err)
	assert.Equal(t, "半導体プロセス", p.Name)
}

func TestRegistryRejectsBadDirectory(t *testing.T) {
	_, err := NewRegistry(types.ProfileConfig{Dir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [unclosed"), 0o644))
	_, err = NewRegistry(types.ProfileConfig{Dir: dir})
	require.Error(t, err)
}

func TestParseChecks(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "match: [[x]]\n", "name is required"},
		{"missing match", "name: x\n", "match is required"},
		{"bad raci letter", "name: x\nfallback: true\nstakeholder_roles:\n  部長: Z\n", `RACI letter "Z"`},
		{"bad allow pattern", "name: x\nfallback: true\nallow_patterns:\n  tools_and_equipment: ['(']\n", "allow_patterns"},
		{"partial affinity", "name: x\nfallback: true\nphase_affinity:\n  processes:\n    phase_1: 0.5\n", "phase_affinity"},
		{"unknown category", "name: x\nfallback: true\ntechnical_hints:\n  gadgets: [abc]\n", "unknown category"},
		{"short hint", "name: x\nfallback: true\ntechnical_hints:\n  processes: [a]\n", "technical_hints"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTableOverride(t *testing.T) {
	p := types.Profile{Name: "x", Affinity: affinity.Default().Map()}
	p.Affinity[types.CategoryStakeholders][types.Phase6] = 0.9

	table, err := Table(p)
	require.NoError(t, err)
	assert.Equal(t, 0.9, table.Score(types.CategoryStakeholders, types.Phase6))
	assert.Equal(t, types.Phase6, table.Rank(types.CategoryStakeholders)[0])

	def, err := Table(types.Profile{})
	require.NoError(t, err)
	assert.Equal(t, affinity.Default(), def)
}

func TestRulesFollowProfile(t *testing.T) {
	r, err := NewRegistry(types.ProfileConfig{})
	require.NoError(t, err)

	cell, err := r.Get("電池セル開発")
	require.NoError(t, err)
	rules, err := Rules(cell)
	require.NoError(t, err)
	assert.Equal(t, []string{"18650", "パウチセル"}, rules.Filter(types.CategoryMaterials, []string{"18650", "NCM811", "パウチセル"}))

	generic, err := r.Get("汎用製造技術職")
	require.NoError(t, err)
	rules, err = Rules(generic)
	require.NoError(t, err)
	assert.Equal(t, []string{"食品包装フィルム"}, rules.Filter(types.CategoryMaterials, []string{"食品包装フィルム"}))
}

func TestSkeleton(t *testing.T) {
	r, err := NewRegistry(types.ProfileConfig{})
	require.NoError(t, err)

	ev, err := r.Get("EV材料開発")
	require.NoError(t, err)
	sk := Skeleton(ev)
	assert.Len(t, sk, types.NumPhases)
	assert.Equal(t, "特許DB 文献DB 規格DB", sk[types.Phase1].Tools)

	generic, err := r.Get("汎用製造技術職")
	require.NoError(t, err)
	sk = Skeleton(types.Profile{Name: generic.Name, KPITemplates: map[types.Phase]string{types.Phase2: "要件明確度"}})
	assert.Len(t, sk, types.NumPhases)
	assert.Equal(t, types.Phase3.Label(), sk[types.Phase3].PhaseName)
	assert.Equal(t, "要件明確度", sk[types.Phase2].KPI)
	assert.Empty(t, sk[types.Phase1].Activities)
}
