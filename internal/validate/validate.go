// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate scores a finished phase table against the vocabulary it
// was built from and returns a pass/fail verdict with every failing check
// itemized.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/phaseplan/pkg/types"
)

// RACI records which role markers appear in the stakeholder fields.
type RACI struct {
	Responsible bool `json:"R" yaml:"R"`
	Accountable bool `json:"A" yaml:"A"`
	Consulted   bool `json:"C" yaml:"C"`
	Informed    bool `json:"I" yaml:"I"`
}

// Missing returns the absent markers in R, A, C, I order.
func (r RACI) Missing() []string {
	var out []string
	for _, m := range []struct {
		letter string
		ok     bool
	}{{"R", r.Responsible}, {"A", r.Accountable}, {"C", r.Consulted}, {"I", r.Informed}} {
		if !m.ok {
			out = append(out, m.letter)
		}
	}
	return out
}

// Complete reports whether all four markers are present.
func (r RACI) Complete() bool {
	return len(r.Missing()) == 0
}

// Metrics are recomputed on every call and never persisted by this
// package.
type Metrics struct {
	SpecificCount int     `json:"specific_count" yaml:"specific_count"`
	GenericCount  int     `json:"generic_count" yaml:"generic_count"`
	TotalWords    int     `json:"total_words" yaml:"total_words"`
	SpecificRatio float64 `json:"specific_ratio" yaml:"specific_ratio"`
	GenericRatio  float64 `json:"generic_ratio" yaml:"generic_ratio"`

	// CategoryCoverage holds, for each non-empty category, the fraction of
	// its reference terms found in the table.
	CategoryCoverage map[types.Category]float64 `json:"category_coverage" yaml:"category_coverage"`
	WeightedCoverage float64                    `json:"weighted_coverage" yaml:"weighted_coverage"`

	// ScaleChecked is false when the profile declares no scale stages.
	ScaleChecked bool `json:"scale_checked" yaml:"scale_checked"`
	ScaleOrderOK bool `json:"scale_order_ok" yaml:"scale_order_ok"`

	// ScaleOutOfOrder names the first stage found before an earlier-listed
	// stage.
	ScaleOutOfOrder string `json:"scale_out_of_order,omitempty" yaml:"scale_out_of_order,omitempty"`

	RACI RACI `json:"raci" yaml:"raci"`

	PhasesWithoutSpecificity []string         `json:"phases_without_specificity,omitempty" yaml:"phases_without_specificity,omitempty"`
	UnreflectedCategories    []types.Category `json:"unreflected_categories,omitempty" yaml:"unreflected_categories,omitempty"`

	// EmptyPhases lists phases whose own text holds no term, by phase id.
	// Used to target regeneration.
	EmptyPhases []types.Phase `json:"empty_phases,omitempty" yaml:"empty_phases,omitempty"`
}

// Result is the verdict of one validation.
type Result struct {
	Passed  bool     `json:"passed" yaml:"passed"`
	Errors  []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Metrics Metrics  `json:"metrics" yaml:"metrics"`
}

// Validator holds thresholds and weights. It never modifies its inputs.
type Validator struct {
	cfg     types.ValidationConfig
	generic []string
}

// New returns a validator. Zero-valued maps and the generic phrase list
// fall back to the defaults; numeric thresholds are taken as given.
func New(cfg types.ValidationConfig) *Validator {
	def := types.DefaultValidationConfig()
	if cfg.ReferenceLimits == nil {
		cfg.ReferenceLimits = def.ReferenceLimits
	}
	if cfg.CategoryWeights == nil {
		cfg.CategoryWeights = def.CategoryWeights
	}
	if cfg.GenericPhrases == nil {
		cfg.GenericPhrases = def.GenericPhrases
	}
	generic := make([]string, 0, len(cfg.GenericPhrases))
	for _, g := range cfg.GenericPhrases {
		if g != "" {
			generic = append(generic, strings.ToLower(g))
		}
	}
	return &Validator{cfg: cfg, generic: generic}
}

// Validate measures t against vocab and meta and applies the thresholds.
func (v *Validator) Validate(t types.PhaseTable, vocab types.Vocabulary, meta types.ProfileMeta) Result {
	m := v.Measure(t, vocab, meta)
	errs := Evaluate(m, v.cfg)
	return Result{Passed: len(errs) == 0, Errors: errs, Metrics: m}
}

// Measure computes the metrics without judging them.
func (v *Validator) Measure(t types.PhaseTable, vocab types.Vocabulary, meta types.ProfileMeta) Metrics {
	text := t.Text()
	lower := strings.ToLower(text)
	terms := vocab.All()

	var m Metrics
	m.SpecificCount = countAll(lower, terms)
	for _, g := range v.generic {
		m.GenericCount += strings.Count(lower, g)
	}
	m.TotalWords = len(strings.Fields(text))
	words := float64(max(m.TotalWords, 1))
	m.SpecificRatio = float64(m.SpecificCount) / words * 100
	m.GenericRatio = float64(m.GenericCount) / words * 100

	m.CategoryCoverage = make(map[types.Category]float64)
	var weighted, weights float64
	for _, c := range types.Categories() {
		ref := vocab.Top(c, v.cfg.ReferenceLimits[c])
		present := 0
		for _, term := range ref {
			if term != "" && strings.Contains(lower, strings.ToLower(term)) {
				present++
			}
		}
		if present == 0 {
			m.UnreflectedCategories = append(m.UnreflectedCategories, c)
		}
		if len(ref) == 0 {
			continue
		}
		cov := float64(present) / float64(len(ref))
		w := v.cfg.CategoryWeights[c]
		m.CategoryCoverage[c] = cov
		weighted += cov * w
		weights += w
	}
	if weights > 0 {
		m.WeightedCoverage = weighted / weights
	}

	if len(meta.ScaleStages) > 0 {
		m.ScaleChecked = true
		m.ScaleOrderOK, m.ScaleOutOfOrder = scaleOrder(text, meta.ScaleStages)
	}

	m.RACI = raciFlags(t.FieldText(types.FieldStakeholders))

	for _, p := range types.Phases() {
		rec, ok := t[p]
		if ok && countAll(strings.ToLower(rec.Text()), terms) > 0 {
			continue
		}
		m.PhasesWithoutSpecificity = append(m.PhasesWithoutSpecificity, rec.DisplayName(p))
		m.EmptyPhases = append(m.EmptyPhases, p)
	}
	return m
}

// Evaluate applies the pass thresholds of cfg to m and returns one message
// per failing check, in a fixed order. An empty result means the table
// passes.
func Evaluate(m Metrics, cfg types.ValidationConfig) []string {
	var errs []string
	if m.SpecificRatio < cfg.MinSpecificRatio {
		errs = append(errs, fmt.Sprintf("specific term ratio %.1f%% < %.1f%%", m.SpecificRatio, cfg.MinSpecificRatio))
	}
	if m.GenericRatio > cfg.MaxGenericRatio {
		errs = append(errs, fmt.Sprintf("generic term ratio %.1f%% > %.1f%%", m.GenericRatio, cfg.MaxGenericRatio))
	}
	if m.SpecificCount < cfg.MinSpecificCount {
		errs = append(errs, fmt.Sprintf("specific term absolute count %d < %d", m.SpecificCount, cfg.MinSpecificCount))
	}
	if m.WeightedCoverage < cfg.MinWeightedCoverage {
		errs = append(errs, fmt.Sprintf("weighted coverage %.2f < %.2f", m.WeightedCoverage, cfg.MinWeightedCoverage))
	}
	if m.ScaleChecked && !m.ScaleOrderOK {
		errs = append(errs, fmt.Sprintf("scale stage order broken at %q", m.ScaleOutOfOrder))
	}
	if missing := m.RACI.Missing(); len(missing) > 0 {
		errs = append(errs, fmt.Sprintf("RACI roles missing: %s", strings.Join(missing, ", ")))
	}
	if len(m.PhasesWithoutSpecificity) > 0 {
		errs = append(errs, fmt.Sprintf("phases without specificity: %s", strings.Join(m.PhasesWithoutSpecificity, ", ")))
	}
	if len(m.UnreflectedCategories) > 0 {
		names := make([]string, len(m.UnreflectedCategories))
		for i, c := range m.UnreflectedCategories {
			names[i] = string(c)
		}
		errs = append(errs, fmt.Sprintf("unreflected categories: %s", strings.Join(names, ", ")))
	}
	return errs
}

// countAll sums the occurrences of every term in lower, which must already
// be lower-cased.
func countAll(lower string, terms []string) int {
	n := 0
	for _, t := range terms {
		if t == "" {
			continue
		}
		n += strings.Count(lower, strings.ToLower(t))
	}
	return n
}

// scaleOrder checks that the stages found in text appear in listed order.
// Stages absent from the text are ignored.
func scaleOrder(text string, stages []string) (bool, string) {
	last := -1
	for _, s := range stages {
		if s == "" {
			continue
		}
		idx := strings.Index(text, s)
		if idx < 0 {
			continue
		}
		if idx < last {
			return false, s
		}
		last = idx
	}
	return true, ""
}

// Markers must stand alone: "R" in "(R)" or "R:担当" counts, the R in "OEM"
// or "Review" does not.
var raciMarkers = [4]*regexp.Regexp{
	regexp.MustCompile(`(^|[^A-Za-z])R([^A-Za-z]|$)`),
	regexp.MustCompile(`(^|[^A-Za-z])A([^A-Za-z]|$)`),
	regexp.MustCompile(`(^|[^A-Za-z])C([^A-Za-z]|$)`),
	regexp.MustCompile(`(^|[^A-Za-z])I([^A-Za-z]|$)`),
}

func raciFlags(stakeholders string) RACI {
	return RACI{
		Responsible: raciMarkers[0].MatchString(stakeholders),
		Accountable: raciMarkers[1].MatchString(stakeholders),
		Consulted:   raciMarkers[2].MatchString(stakeholders),
		Informed:    raciMarkers[3].MatchString(stakeholders),
	}
}
