// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enforce repairs a generated phase table whose fields lack
// vocabulary terms. It injects the best-fitting terms in front of the
// existing text and never discards what the generator wrote.
package enforce

import (
	"sort"
	"strings"

	"github.com/pdiddy/phaseplan/internal/affinity"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// Injection records the terms prepended to one field.
type Injection struct {
	Phase types.Phase `json:"phase" yaml:"phase"`
	Field types.Field `json:"field" yaml:"field"`
	Terms []string    `json:"terms" yaml:"terms"`
}

// Report describes one enforcement pass.
type Report struct {
	Injections []Injection `json:"injections,omitempty" yaml:"injections,omitempty"`

	// CreatedPhases lists phases that were absent from the input table.
	CreatedPhases []types.Phase `json:"created_phases,omitempty" yaml:"created_phases,omitempty"`
}

// Changed reports whether anything was injected or created.
func (r Report) Changed() bool {
	return len(r.Injections) > 0 || len(r.CreatedPhases) > 0
}

// Terms returns every injected term in injection order.
func (r Report) Terms() []string {
	var out []string
	for _, inj := range r.Injections {
		out = append(out, inj.Terms...)
	}
	return out
}

// rule describes the requirement of one checked field.
type rule struct {
	field types.Field

	// anyOf is satisfied by a term of any listed category, tried in order
	// when injecting.
	anyOf []types.Category

	// sep joins injected terms; tail separates them from the existing
	// text.
	sep, tail string
}

var rules = []rule{
	{field: types.FieldTools, anyOf: []types.Category{types.CategoryTools}, sep: ", ", tail: ", "},
	{field: types.FieldInputs, anyOf: []types.Category{types.CategoryMaterials, types.CategoryDeliverables}, sep: " / ", tail: " / "},
	{field: types.FieldOutputs, anyOf: []types.Category{types.CategoryDeliverables}, sep: " / ", tail: " / "},
	{field: types.FieldKPI, anyOf: []types.Category{types.CategoryKPI}, sep: ", ", tail: ", "},
	{field: types.FieldRisks, anyOf: []types.Category{types.CategoryFailures}, sep: " / ", tail: " / "},
}

// Activities need a process term and a materials-or-tools term.
var (
	activityProcess = []types.Category{types.CategoryProcesses}
	activityObject  = []types.Category{types.CategoryMaterials, types.CategoryTools}
)

const (
	activitySep  = " / "
	activityTail = " : "
)

// Enforcer repairs tables. It keeps no state between calls.
type Enforcer struct {
	table    affinity.Table
	cfg      types.EnforcementConfig
	skeleton types.PhaseTable
}

// New returns an enforcer scoring against table. Zero-valued config fields
// fall back to the defaults.
func New(table affinity.Table, cfg types.EnforcementConfig) *Enforcer {
	def := types.DefaultEnforcementConfig()
	if cfg.MaxUsesPerPass <= 0 {
		cfg.MaxUsesPerPass = def.MaxUsesPerPass
	}
	if cfg.UsagePenalty < 0 {
		cfg.UsagePenalty = def.UsagePenalty
	}
	if cfg.InjectCounts == nil {
		cfg.InjectCounts = def.InjectCounts
	}
	return &Enforcer{table: table, cfg: cfg}
}

// WithSkeleton returns a copy of e that starts missing phases from the
// records of sk instead of an empty record.
func (e *Enforcer) WithSkeleton(sk types.PhaseTable) *Enforcer {
	c := *e
	c.skeleton = sk
	return &c
}

// Enforce returns a repaired copy of t. For every phase it checks
// activities, tools, inputs, outputs, kpi and risks; a field that holds no
// term of its required categories gets the best-scoring terms prepended.
// Missing phases start from the skeleton record, if one was set, and take
// their default label when it has none; missing fields are treated as empty. A field whose required categories are all empty in
// vocab is left alone. Neither t nor vocab is modified.
func (e *Enforcer) Enforce(t types.PhaseTable, vocab types.Vocabulary) (types.PhaseTable, Report) {
	out := t.Clone()
	pass := &pass{e: e, vocab: vocab, used: make(map[string]int)}
	var report Report

	for _, p := range types.Phases() {
		rec, ok := out[p]
		if !ok {
			rec = e.skeleton[p]
			if strings.TrimSpace(rec.PhaseName) == "" {
				rec.PhaseName = p.Label()
			}
			report.CreatedPhases = append(report.CreatedPhases, p)
		}

		if terms := pass.activities(p, rec.Activities); len(terms) > 0 {
			rec.Activities = prepend(terms, rec.Activities, activitySep, activityTail)
			report.Injections = append(report.Injections, Injection{Phase: p, Field: types.FieldActivities, Terms: terms})
		}

		for _, r := range rules {
			text := rec.Get(r.field)
			if containsAny(text, vocab, r.anyOf...) {
				continue
			}
			terms := pass.pick(p, r.anyOf, e.count(r.field))
			if len(terms) == 0 {
				continue
			}
			rec.Set(r.field, prepend(terms, text, r.sep, r.tail))
			report.Injections = append(report.Injections, Injection{Phase: p, Field: r.field, Terms: terms})
		}

		out[p] = rec
	}
	return out, report
}

// Satisfied reports whether every checked field of rec holds a qualifying
// term, ignoring requirements whose categories are empty in vocab.
func Satisfied(rec types.PhaseRecord, vocab types.Vocabulary) bool {
	if hasTerms(vocab, activityProcess...) && !containsAny(rec.Activities, vocab, activityProcess...) {
		return false
	}
	if hasTerms(vocab, activityObject...) && !containsAny(rec.Activities, vocab, activityObject...) {
		return false
	}
	for _, r := range rules {
		if hasTerms(vocab, r.anyOf...) && !containsAny(rec.Get(r.field), vocab, r.anyOf...) {
			return false
		}
	}
	return true
}

func (e *Enforcer) count(f types.Field) int {
	if n := e.cfg.InjectCounts[f]; n > 0 {
		return n
	}
	return 1
}

// pass carries the usage counter of one Enforce call.
type pass struct {
	e     *Enforcer
	vocab types.Vocabulary
	used  map[string]int
}

// activities returns the terms to inject for the missing components: one
// process term and one materials-or-tools term, in that order.
func (ps *pass) activities(p types.Phase, text string) []string {
	n := ps.e.count(types.FieldActivities)
	var terms []string
	if !containsAny(text, ps.vocab, activityProcess...) {
		terms = append(terms, ps.pick(p, activityProcess, n)...)
	}
	if !containsAny(text, ps.vocab, activityObject...) {
		terms = append(terms, ps.pick(p, activityObject, n)...)
	}
	return terms
}

// pick selects up to n terms for one requirement. Categories in cats are
// tried in order and the first one holding a term used fewer than
// MaxUsesPerPass times wins. Candidates score affinity minus the usage
// penalty. When every category is exhausted the least-used terms of the
// first non-empty one are taken so the field is still filled.
func (ps *pass) pick(p types.Phase, cats []types.Category, n int) []string {
	var fallback []candidate
	for _, c := range cats {
		terms := ps.vocab.Terms(c)
		if len(terms) == 0 {
			continue
		}
		open, capped := ps.candidates(c, p, dedupe(terms))
		if len(open) > 0 {
			return ps.take(open, n)
		}
		if fallback == nil {
			fallback = capped
		}
	}
	return ps.take(fallback, n)
}

type candidate struct {
	term  string
	rank  int
	score float64
}

// candidates scores the terms of c for phase p and splits them by whether
// they reached the per-pass limit.
func (ps *pass) candidates(c types.Category, p types.Phase, terms []string) (open, capped []candidate) {
	base := ps.e.table.Score(c, p)
	for i, t := range terms {
		cand := candidate{term: t, rank: i, score: base - ps.e.cfg.UsagePenalty*float64(ps.used[t])}
		if ps.used[t] >= ps.e.cfg.MaxUsesPerPass {
			capped = append(capped, cand)
			continue
		}
		open = append(open, cand)
	}
	return open, capped
}

// take returns the n best of cands and counts them as used.
func (ps *pass) take(cands []candidate, n int) []string {
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].rank < cands[j].rank
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]string, len(cands))
	for i, cand := range cands {
		out[i] = cand.term
		ps.used[cand.term]++
	}
	return out
}

func prepend(terms []string, text, sep, tail string) string {
	head := strings.Join(terms, sep)
	if strings.TrimSpace(text) == "" {
		return head
	}
	return head + tail + text
}

// containsAny reports whether text contains, case-insensitively, a term of
// any of cats.
func containsAny(text string, vocab types.Vocabulary, cats ...types.Category) bool {
	lower := strings.ToLower(text)
	for _, c := range cats {
		for _, t := range vocab.Terms(c) {
			if t != "" && strings.Contains(lower, strings.ToLower(t)) {
				return true
			}
		}
	}
	return false
}

func hasTerms(vocab types.Vocabulary, cats ...types.Category) bool {
	for _, c := range cats {
		if len(vocab.Terms(c)) > 0 {
			return true
		}
	}
	return false
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
