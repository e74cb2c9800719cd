// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// PlanRow holds the terms assigned to one phase, keyed by category. Terms
// within a cell keep the order in which they were placed.
type PlanRow map[Category][]string

// InjectionPlan assigns vocabulary terms to phases. A term appears in at
// most reuse-cap phases across a whole allocation session.
type InjectionPlan map[Phase]PlanRow

// NewInjectionPlan returns a plan with an empty row for every phase.
func NewInjectionPlan() InjectionPlan {
	plan := make(InjectionPlan, NumPhases)
	for _, p := range Phases() {
		plan[p] = PlanRow{}
	}
	return plan
}

// Add appends term to the (phase, category) cell.
func (pl InjectionPlan) Add(p Phase, c Category, term string) {
	row, ok := pl[p]
	if !ok {
		row = PlanRow{}
		pl[p] = row
	}
	row[c] = append(row[c], term)
}

// Terms returns the terms placed in the (phase, category) cell.
func (pl InjectionPlan) Terms(p Phase, c Category) []string {
	return pl[p][c]
}

// PhasesContaining returns the phases whose row lists term under any
// category, in phase order.
func (pl InjectionPlan) PhasesContaining(term string) []Phase {
	var out []Phase
	for _, p := range Phases() {
		found := false
		for _, terms := range pl[p] {
			for _, t := range terms {
				if t == term {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if found {
			out = append(out, p)
		}
	}
	return out
}

// Placements returns the total number of terms placed in the plan.
func (pl InjectionPlan) Placements() int {
	n := 0
	for _, row := range pl {
		for _, terms := range row {
			n += len(terms)
		}
	}
	return n
}

// Text renders the plan as one line per phase, each listing every category
// by its short name. The output is meant to be embedded in a generation
// prompt:
//
//	phase_1: materials=A, B | tools= | processes=C | ...
func (pl InjectionPlan) Text() string {
	lines := make([]string, 0, NumPhases)
	for _, p := range Phases() {
		cells := make([]string, 0, NumCategories)
		for _, c := range Categories() {
			cells = append(cells, fmt.Sprintf("%s=%s", c.ShortName(), strings.Join(pl[p][c], ", ")))
		}
		lines = append(lines, fmt.Sprintf("%s: %s", p, strings.Join(cells, " | ")))
	}
	return strings.Join(lines, "\n")
}
