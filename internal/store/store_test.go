// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/phaseplan/internal/allocate"
	"github.com/pdiddy/phaseplan/internal/validate"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{RunsDir: filepath.Join(t.TempDir(), "runs")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func savedSession(t *testing.T, s *Store) *allocate.Session {
	t.Helper()
	sess := allocate.NewSession("EV", "材料開発")
	sess.Profile = "EV材料開発"
	require.NoError(t, s.SaveSession(context.Background(), sess))
	return sess
}

func sampleVocabulary() types.Vocabulary {
	return types.Vocabulary{
		types.CategoryMaterials: {"NCM811", "LFP", "LiPF6"},
		types.CategoryTools:     {"XRD", "SEM"},
		types.CategoryProcesses: {"スラリー塗工", "乾燥"},
	}
}

// --- tests ---

func TestOpenCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "runs")
	s, err := Open(types.StoreConfig{RunsDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, dbFile))
	require.NoError(t, err)

	// Reopening an existing database keeps the schema.
	s, err = Open(types.StoreConfig{RunsDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	created := time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)
	sess := allocate.RestoreSession("s-1", "EV", "材料開発", created, map[string]int{
		"NCM811": 3,
		"XRD":    1,
	})
	sess.Profile = "EV材料開発"
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.LoadSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "EV", got.Industry)
	assert.Equal(t, "材料開発", got.Role)
	assert.Equal(t, "EV材料開発", got.Profile)
	assert.True(t, created.Equal(got.Created))
	assert.Equal(t, sess.Usage(), got.Usage())
	assert.Equal(t, 3, got.Used("NCM811"))
}

func TestSaveSessionReplacesUsage(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	sess := allocate.RestoreSession("s-1", "EV", "x", time.Now().UTC(), map[string]int{"LFP": 1, "NCA": 2})
	require.NoError(t, s.SaveSession(ctx, sess))

	sess = allocate.RestoreSession("s-1", "EV", "x", sess.Created, map[string]int{"LFP": 2})
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.LoadSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"LFP": 2}, got.Usage())
}

func TestLoadSessionNotFound(t *testing.T) {
	_, err := testStore(t).LoadSession(context.Background(), "nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestVocabularyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	sess := savedSession(t, s)

	require.NoError(t, s.SaveVocabulary(ctx, sess.ID, sampleVocabulary()))
	got, err := s.LoadVocabulary(ctx, sess.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleVocabulary(), got); diff != "" {
		t.Errorf("vocabulary mismatch (-want +got):\n%s", diff)
	}

	// Saving again replaces.
	require.NoError(t, s.SaveVocabulary(ctx, sess.ID, types.Vocabulary{types.CategoryKPI: {"サイクル寿命"}}))
	got, err = s.LoadVocabulary(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Vocabulary{types.CategoryKPI: {"サイクル寿命"}}, got)

	err = s.SaveVocabulary(ctx, "nope", sampleVocabulary())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPlanRuns(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	sess := savedSession(t, s)

	first := types.NewInjectionPlan()
	first.Add(types.Phase3, types.CategoryMaterials, "NCM811")
	first.Add(types.Phase3, types.CategoryMaterials, "LFP")
	first.Add(types.Phase4, types.CategoryTools, "XRD")

	second := types.NewInjectionPlan()
	second.Add(types.Phase5, types.CategoryKPI, "サイクル寿命")

	run, err := s.SavePlan(ctx, sess.ID, first)
	require.NoError(t, err)
	assert.Equal(t, 1, run)
	run, err = s.SavePlan(ctx, sess.ID, second)
	require.NoError(t, err)
	assert.Equal(t, 2, run)

	got, err := s.LoadPlan(ctx, sess.ID, 1)
	require.NoError(t, err)
	if diff := cmp.Diff(first, got); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	latest, err := s.LoadPlan(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"サイクル寿命"}, latest.Terms(types.Phase5, types.CategoryKPI))
	assert.Equal(t, 1, latest.Placements())
}

func TestValidationHistory(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	sess := savedSession(t, s)

	failed := validate.Result{
		Errors: []string{"weighted coverage 0.42 < 0.50"},
		Metrics: validate.Metrics{
			WeightedCoverage:      0.42,
			UnreflectedCategories: []types.Category{types.CategoryRegulations},
			EmptyPhases:           []types.Phase{types.Phase7},
		},
	}
	passed := validate.Result{Passed: true, Metrics: validate.Metrics{WeightedCoverage: 0.61}}

	id1, err := s.SaveValidation(ctx, sess.ID, failed)
	require.NoError(t, err)
	id2, err := s.SaveValidation(ctx, sess.ID, passed)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	recs, err := s.Validations(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.False(t, recs[0].Result.Passed)
	assert.Equal(t, failed.Errors, recs[0].Result.Errors)
	assert.Equal(t, []types.Phase{types.Phase7}, recs[0].Result.Metrics.EmptyPhases)
	assert.Equal(t, []types.Category{types.CategoryRegulations}, recs[0].Result.Metrics.UnreflectedCategories)
	assert.True(t, recs[1].Result.Passed)
	assert.InDelta(t, 0.61, recs[1].Result.Metrics.WeightedCoverage, 1e-9)

	_, err = s.SaveValidation(ctx, "nope", passed)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	older := savedSession(t, s)
	newer := allocate.RestoreSession("s-new", "自動車", "モーター設計", older.Created, map[string]int{"JMAG": 1})
	require.NoError(t, s.SaveSession(ctx, newer))
	_, err := s.SaveValidation(ctx, newer.ID, validate.Result{Passed: true})
	require.NoError(t, err)

	list, err := s.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "s-new", list[0].ID)
	assert.Equal(t, 1, list[0].Terms)
	assert.Equal(t, 1, list[0].Validations)
	require.NotNil(t, list[0].LastPassed)
	assert.True(t, *list[0].LastPassed)

	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, "EV材料開発", list[1].Profile)
	assert.Nil(t, list[1].LastPassed)

	limited, err := s.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	sess := savedSession(t, s)
	require.NoError(t, s.SaveVocabulary(ctx, sess.ID, sampleVocabulary()))

	require.NoError(t, s.DeleteSession(ctx, sess.ID))
	_, err := s.LoadSession(ctx, sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	hits, err := s.SearchTerms(ctx, "NCM", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.ErrorIs(t, s.DeleteSession(ctx, sess.ID), ErrSessionNotFound)
}

func TestSearchTerms(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	sess := savedSession(t, s)
	require.NoError(t, s.SaveVocabulary(ctx, sess.ID, sampleVocabulary()))

	tests := []struct {
		query string
		want  []string
	}{
		{"NCM", []string{"NCM811"}},
		{"ncm8", []string{"NCM811"}},
		{"塗工", []string{"スラリー塗工"}},
		{"スラリー", []string{"スラリー塗工"}},
		{"Li", []string{"LiPF6"}},
		{"100%", nil},
		{"  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hits, err := s.SearchTerms(ctx, tt.query, 10)
			require.NoError(t, err)
			var got []string
			for _, h := range hits {
				got = append(got, h.Term)
				assert.Equal(t, sess.ID, h.SessionID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	hits, err := s.SearchTerms(ctx, "XRD", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, types.CategoryTools, hits[0].Category)
	assert.Equal(t, 0, hits[0].Position)
}
