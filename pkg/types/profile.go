// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Profile describes a role inside an industry: the terms that must show up
// in its tables, the scale-up stages it moves through, a skeleton table, and
// hint vocabulary used to top up thin extractions.
type Profile struct {
	// Name is the stable profile key (e.g. "EV材料開発").
	Name string `json:"name" yaml:"name"`

	// Industry and Role echo the request the profile was resolved for.
	Industry string `json:"industry,omitempty" yaml:"industry,omitempty"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`

	// Match lists keyword groups tested against the lower-cased
	// "industry role" text. Every group needs at least one hit.
	Match [][]string `json:"match,omitempty" yaml:"match,omitempty"`

	// Fallback marks the profile used when nothing else matches.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	CoreTerms      []string `json:"core_terms" yaml:"core_terms"`
	SecondaryTerms []string `json:"secondary_terms" yaml:"secondary_terms"`
	OptionalTerms  []string `json:"optional_terms,omitempty" yaml:"optional_terms,omitempty"`

	// ScaleStages is the ordered scale-up sequence (e.g. lab, pilot,
	// production) whose order the validator checks.
	ScaleStages []string `json:"scale_stages,omitempty" yaml:"scale_stages,omitempty"`

	KeyTests []string `json:"key_tests,omitempty" yaml:"key_tests,omitempty"`

	// StakeholderRoles maps a role name to its RACI letter.
	StakeholderRoles map[string]string `json:"stakeholder_roles,omitempty" yaml:"stakeholder_roles,omitempty"`

	// PhaseOverrides is the skeleton table for this role.
	PhaseOverrides PhaseTable `json:"phase_overrides,omitempty" yaml:"phase_overrides,omitempty"`

	KPITemplates map[Phase]string `json:"kpi_templates,omitempty" yaml:"kpi_templates,omitempty"`

	// Hints supplies fallback terms per category.
	Hints Vocabulary `json:"technical_hints,omitempty" yaml:"technical_hints,omitempty"`

	DomainKPIs  []string `json:"domain_kpi,omitempty" yaml:"domain_kpi,omitempty"`
	SearchScope string   `json:"search_scope,omitempty" yaml:"search_scope,omitempty"`

	// Queries are per-category search phrases handed to an extractor.
	// The placeholders {industry} and {role} are expanded by QueriesFor.
	Queries map[Category][]string `json:"queries,omitempty" yaml:"queries,omitempty"`

	// AllowPatterns overrides the category allow-lists of the term filter.
	// Nil keeps the default policy; a category mapped to an empty list
	// disables allow-list filtering for it.
	AllowPatterns map[Category][]string `json:"allow_patterns,omitempty" yaml:"allow_patterns,omitempty"`

	// Affinity optionally replaces the default phase affinity table. When
	// set it must cover every category and phase.
	Affinity map[Category]map[Phase]float64 `json:"phase_affinity,omitempty" yaml:"phase_affinity,omitempty"`
}

// ProfileMeta is the part of a profile the coverage validator needs.
type ProfileMeta struct {
	ScaleStages []string `json:"scale_stages,omitempty" yaml:"scale_stages,omitempty"`
}

// Matches reports whether every keyword group has a hit in text.
func (p Profile) Matches(text string) bool {
	if len(p.Match) == 0 {
		return false
	}
	text = strings.ToLower(text)
	for _, group := range p.Match {
		hit := false
		for _, kw := range group {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// RequiredTerms returns core and secondary terms, de-duplicated in order.
func (p Profile) RequiredTerms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range append(append([]string(nil), p.CoreTerms...), p.SecondaryTerms...) {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Meta returns the validator metadata.
func (p Profile) Meta() ProfileMeta {
	return ProfileMeta{ScaleStages: append([]string(nil), p.ScaleStages...)}
}

// QueriesFor returns the search phrases of c with the request substituted.
func (p Profile) QueriesFor(c Category) []string {
	r := strings.NewReplacer("{industry}", p.Industry, "{role}", p.Role)
	out := make([]string, 0, len(p.Queries[c]))
	for _, q := range p.Queries[c] {
		out = append(out, strings.TrimSpace(r.Replace(q)))
	}
	return out
}

// ForRequest returns a copy of p stamped with the requested industry and role.
func (p Profile) ForRequest(industry, role string) Profile {
	p.Industry = industry
	p.Role = role
	return p
}
