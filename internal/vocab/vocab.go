// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vocab turns raw extracted term lists into a ranked vocabulary,
// tops up thin categories from profile hints and grades the result before
// it is allowed to drive allocation.
package vocab

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/phaseplan/internal/filter"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// Raw is extractor output: category identifiers to candidate strings. Keys
// are plain strings because extractors may return identifiers outside the
// closed category set.
type Raw map[string][]string

// BuildReport describes what Build discarded.
type BuildReport struct {
	// Dropped counts, per category, the items removed by filtering or
	// de-duplication.
	Dropped map[types.Category]int `json:"dropped,omitempty" yaml:"dropped,omitempty"`

	// UnknownCategories lists raw keys outside the category set, sorted.
	UnknownCategories []string `json:"unknown_categories,omitempty" yaml:"unknown_categories,omitempty"`
}

// Normalize applies NFKC and trims surrounding space, so full-width
// letters, digits and brackets compare equal to their ASCII forms.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// Build normalizes, filters and de-duplicates raw into a vocabulary. Every
// known category is present in the result, possibly empty. The first
// occurrence of a term fixes its rank.
func Build(raw Raw, rules *filter.Rules) (types.Vocabulary, BuildReport) {
	if rules == nil {
		rules = filter.Default()
	}
	v := make(types.Vocabulary, types.NumCategories)
	report := BuildReport{Dropped: make(map[types.Category]int)}

	for key := range raw {
		if _, err := types.ParseCategory(key); err != nil {
			report.UnknownCategories = append(report.UnknownCategories, key)
		}
	}
	sort.Strings(report.UnknownCategories)

	for _, c := range types.Categories() {
		items := raw[string(c)]
		normalized := make([]string, 0, len(items))
		for _, it := range items {
			normalized = append(normalized, Normalize(it))
		}
		kept := dedupe(rules.Apply(c, normalized))
		v[c] = kept
		if d := len(items) - len(kept); d > 0 {
			report.Dropped[c] = d
		}
	}
	return v, report
}

// Supplement tops up every category holding fewer than min terms with
// profile hints, in hint order, skipping any hint already present in any
// category. It returns a new vocabulary and the terms added per category.
func Supplement(v types.Vocabulary, hints types.Vocabulary, min int) (types.Vocabulary, map[types.Category][]string) {
	out := v.Clone()
	added := make(map[types.Category][]string)

	existing := make(map[string]bool)
	for _, t := range out.All() {
		existing[t] = true
	}

	for _, c := range types.Categories() {
		need := min - len(out[c])
		if need <= 0 {
			continue
		}
		for _, h := range hints.Terms(c) {
			if need == 0 {
				break
			}
			h = Normalize(h)
			if h == "" || existing[h] {
				continue
			}
			out[c] = append(out[c], h)
			added[c] = append(added[c], h)
			existing[h] = true
			need--
		}
	}
	return out, added
}

// Merge appends the terms of more to v, keeping first-seen order within
// each category.
func Merge(v, more types.Vocabulary) types.Vocabulary {
	out := v.Clone()
	for _, c := range types.Categories() {
		if len(more[c]) == 0 {
			continue
		}
		out[c] = dedupe(append(out[c], more[c]...))
	}
	return out
}

// Quality is the verdict of the extraction quality gate.
type Quality struct {
	Passed bool     `json:"passed" yaml:"passed"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// ThinCategories hold fewer than the minimum number of terms.
	ThinCategories []types.Category `json:"thin_categories,omitempty" yaml:"thin_categories,omitempty"`

	// MissingRequired are profile terms found in no category.
	MissingRequired []string `json:"missing_required,omitempty" yaml:"missing_required,omitempty"`

	GenericWords int `json:"generic_words" yaml:"generic_words"`
	SpecificHits int `json:"specific_hits" yaml:"specific_hits"`
}

// CheckQuality grades v: every category needs cfg.MinPerCategory terms, the
// joined terms may hold at most cfg.MaxGenericWords generic words and must
// show cfg.MinSpecificHits acronym or part-number matches, and every
// required term must appear somewhere.
func CheckQuality(v types.Vocabulary, required []string, rules *filter.Rules, cfg types.VocabularyConfig) Quality {
	if rules == nil {
		rules = filter.Default()
	}
	var q Quality

	for _, c := range types.Categories() {
		if n := len(v[c]); n < cfg.MinPerCategory {
			q.Errors = append(q.Errors, fmt.Sprintf("%s: %d items < %d", c, n, cfg.MinPerCategory))
			q.ThinCategories = append(q.ThinCategories, c)
		}
	}

	parts := make([]string, 0, types.NumCategories)
	for _, c := range types.Categories() {
		parts = append(parts, strings.Join(v[c], " "))
	}
	content := strings.Join(parts, " ")

	for _, w := range cfg.GenericWords {
		if w != "" {
			q.GenericWords += strings.Count(content, w)
		}
	}
	if q.GenericWords > cfg.MaxGenericWords {
		q.Errors = append(q.Errors, fmt.Sprintf("generic words %d > %d", q.GenericWords, cfg.MaxGenericWords))
	}

	q.SpecificHits = rules.SpecificHits(content)
	if q.SpecificHits < cfg.MinSpecificHits {
		q.Errors = append(q.Errors, fmt.Sprintf("specific term hits %d < %d", q.SpecificHits, cfg.MinSpecificHits))
	}

	lower := strings.ToLower(content)
	for _, t := range required {
		if t != "" && !strings.Contains(lower, strings.ToLower(t)) {
			q.MissingRequired = append(q.MissingRequired, t)
		}
	}
	if len(q.MissingRequired) > 0 {
		q.Errors = append(q.Errors, fmt.Sprintf("required terms missing: %s", strings.Join(q.MissingRequired, ", ")))
	}

	q.Passed = len(q.Errors) == 0
	return q
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
