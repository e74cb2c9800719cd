// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package allocate distributes a ranked vocabulary across the seven phases
// by phase affinity, bounded by a per-term reuse cap.
package allocate

import (
	"github.com/pdiddy/phaseplan/internal/affinity"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// Placement records one term placed into one phase.
type Placement struct {
	Term     string         `json:"term" yaml:"term"`
	Category types.Category `json:"category" yaml:"category"`
	Phase    types.Phase    `json:"phase" yaml:"phase"`
	Score    float64        `json:"score" yaml:"score"`

	// Forced is set when no phase reached the threshold and the term went
	// to the top-ranked phase anyway.
	Forced bool `json:"forced,omitempty" yaml:"forced,omitempty"`
}

// Skip records a term left out because it already reached its cap.
type Skip struct {
	Term     string         `json:"term" yaml:"term"`
	Category types.Category `json:"category" yaml:"category"`
	Used     int            `json:"used" yaml:"used"`
	Cap      int            `json:"cap" yaml:"cap"`
}

// Report describes one allocation pass.
type Report struct {
	Placements []Placement `json:"placements" yaml:"placements"`
	Skipped    []Skip      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Forced returns the number of placements below the threshold.
func (r Report) Forced() int {
	n := 0
	for _, p := range r.Placements {
		if p.Forced {
			n++
		}
	}
	return n
}

// Exhausted reports whether c had terms but all of them were skipped.
func (r Report) Exhausted(c types.Category) bool {
	skipped := 0
	for _, s := range r.Skipped {
		if s.Category == c {
			skipped++
		}
	}
	if skipped == 0 {
		return false
	}
	for _, p := range r.Placements {
		if p.Category == c {
			return false
		}
	}
	return true
}

// Allocator places terms into phases. It holds no mutable state; usage is
// kept in the Session passed to Allocate.
type Allocator struct {
	table affinity.Table
	cfg   types.AllocationConfig
	core  map[string]bool
}

// New returns an allocator over table. Zero-valued config fields fall back
// to the defaults.
func New(table affinity.Table, cfg types.AllocationConfig) *Allocator {
	def := types.DefaultAllocationConfig()
	if cfg.ReuseCapStandard <= 0 {
		cfg.ReuseCapStandard = def.ReuseCapStandard
	}
	if cfg.ReuseCapCore <= 0 {
		cfg.ReuseCapCore = def.ReuseCapCore
	}
	if cfg.SubsetLimits == nil {
		cfg.SubsetLimits = def.SubsetLimits
	}
	core := make(map[string]bool, len(cfg.CoreTerms))
	for _, t := range cfg.CoreTerms {
		core[t] = true
	}
	return &Allocator{table: table, cfg: cfg, core: core}
}

// Cap returns the reuse cap of term.
func (a *Allocator) Cap(term string) int {
	if a.core[term] {
		return a.cfg.ReuseCapCore
	}
	return a.cfg.ReuseCapStandard
}

// Allocate runs one pass over vocab. Categories are visited in fixed order
// and terms in rank order, limited to the category's subset size. Each term
// below its cap lands in exactly one phase: the first ranked phase scoring
// at least the threshold, or the top-ranked phase when none does. The
// session counter is incremented for every placement.
//
// A nil session allocates against a throwaway counter.
func (a *Allocator) Allocate(s *Session, vocab types.Vocabulary) (types.InjectionPlan, Report) {
	if s == nil {
		s = NewSession("", "")
	}
	plan := types.NewInjectionPlan()
	var report Report
	eligible := vocab.Subset(a.cfg.SubsetLimits)

	for _, c := range types.Categories() {
		terms := eligible.Terms(c)
		if len(terms) == 0 {
			continue
		}
		ranked := a.table.Rank(c)

		for _, term := range terms {
			used, limit := s.Used(term), a.Cap(term)
			if used >= limit {
				report.Skipped = append(report.Skipped, Skip{Term: term, Category: c, Used: used, Cap: limit})
				continue
			}

			target, forced := ranked[0], true
			for _, p := range ranked {
				if a.table.Score(c, p) >= a.cfg.AffinityThreshold {
					target, forced = p, false
					break
				}
			}

			plan.Add(target, c, term)
			s.inc(term)
			report.Placements = append(report.Placements, Placement{
				Term:     term,
				Category: c,
				Phase:    target,
				Score:    a.table.Score(c, target),
				Forced:   forced,
			})
		}
	}
	return plan, report
}
