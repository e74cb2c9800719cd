// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrMalformedVocabulary marks a vocabulary that violates the term
// invariants. Callers check for it before allocation.
var ErrMalformedVocabulary = errors.New("malformed vocabulary")

// MinTermLength is the minimum number of runes in a term.
const MinTermLength = 2

// Vocabulary maps each category to its ranked, de-duplicated terms. The
// first term of a list is the most relevant one. A vocabulary is built once
// per (industry, role) request and read, never mutated, by the allocator and
// the validator.
type Vocabulary map[Category][]string

// Terms returns the ranked terms of c (nil when the category is absent).
func (v Vocabulary) Terms(c Category) []string {
	return v[c]
}

// Top returns at most limit terms of c. A non-positive limit returns all.
func (v Vocabulary) Top(c Category, limit int) []string {
	terms := v[c]
	if limit > 0 && len(terms) > limit {
		return terms[:limit]
	}
	return terms
}

// Subset returns a new vocabulary holding the top-N terms of every category
// according to limits. Categories missing from limits keep all their terms.
func (v Vocabulary) Subset(limits map[Category]int) Vocabulary {
	out := make(Vocabulary, len(v))
	for _, c := range Categories() {
		if _, ok := v[c]; !ok {
			continue
		}
		out[c] = append([]string(nil), v.Top(c, limits[c])...)
	}
	return out
}

// All returns every term in category order. A string listed under two
// categories appears twice.
func (v Vocabulary) All() []string {
	var out []string
	for _, c := range Categories() {
		out = append(out, v[c]...)
	}
	return out
}

// Len returns the total number of terms across categories.
func (v Vocabulary) Len() int {
	n := 0
	for _, terms := range v {
		n += len(terms)
	}
	return n
}

// Contains reports whether term is listed under any category.
func (v Vocabulary) Contains(term string) bool {
	for _, terms := range v {
		for _, t := range terms {
			if t == term {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy.
func (v Vocabulary) Clone() Vocabulary {
	out := make(Vocabulary, len(v))
	for c, terms := range v {
		out[c] = append([]string(nil), terms...)
	}
	return out
}

// Validate checks the term invariants: every category must be known and
// every term must be non-blank with at least MinTermLength runes. All
// problems are reported together.
func (v Vocabulary) Validate() error {
	var problems []string
	for c := range v {
		if !c.Valid() {
			problems = append(problems, fmt.Sprintf("unknown category %q", string(c)))
		}
	}
	sort.Strings(problems)
	for _, c := range Categories() {
		for i, t := range v[c] {
			if strings.TrimSpace(t) == "" || utf8.RuneCountInString(t) < MinTermLength {
				problems = append(problems, fmt.Sprintf("%s[%d]: term %q shorter than %d characters", c, i, t, MinTermLength))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMalformedVocabulary, strings.Join(problems, "; "))
	}
	return nil
}
