// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter removes organization names, off-category text and purely
// abstract words from raw extracted term lists.
//
// Filtering runs in two independent stages. Filter applies the per-category
// exclusion and allow-list rules; FilterAbstract drops items made only of
// abstract words. Both stages are idempotent.
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/phaseplan/pkg/types"
)

// Policy is the uncompiled pattern configuration. Patterns are Go regular
// expressions matched anywhere in an item.
type Policy struct {
	// Exclusion matches organization and institution names.
	Exclusion []string `json:"exclusion" yaml:"exclusion"`

	// Roles matches role tokens that may be salvaged from an excluded
	// stakeholder entry. The first matching pattern wins.
	Roles []string `json:"roles" yaml:"roles"`

	// Allow lists, per category, the patterns an item must match. A
	// category without patterns accepts everything.
	Allow map[types.Category][]string `json:"allow" yaml:"allow"`

	// AbstractTokens are words too generic to stand alone as a term.
	AbstractTokens []string `json:"abstract_tokens" yaml:"abstract_tokens"`

	// Specific matches acronyms and part numbers that rescue an otherwise
	// abstract item.
	Specific []string `json:"specific" yaml:"specific"`
}

// DefaultPolicy returns the built-in patterns, tuned for battery materials
// work.
func DefaultPolicy() Policy {
	return Policy{
		Exclusion: []string{
			`株式会社`, `有限会社`, `合同会社`, `一般社団法人`, `一般財団法人`, `国立研究開発法人`,
			`独立行政法人`, `大学`, `研究所`, `センター`, `協会`, `学会`, `連盟`, `組合`,
			`\p{Han}省`, `\p{Han}庁`, `委員会`,
			`\bInc\b\.?`, `\bCorp\b\.?`, `\bLtd\b\.?`, `\bLLC\b`, `\bCo\.`,
			`\bUniversity\b`, `\bInstitute\b`, `\bAssociation\b`, `\bSociety\b`,
		},
		Roles: []string{`OEM`, `品質保証`, `製造技術`, `開発部門`, `エンジニア`, `担当`, `部門`, `チーム`},
		Allow: map[types.Category][]string{
			types.CategoryMaterials:    {`NCM[0-9]+`, `LFP`, `NCA`, `LiPF6`, `Li[A-Za-z0-9]+`, `セパレータ`, `バインダー`, `スラリー`, `焼結`, `混練`},
			types.CategoryTools:        {`XRD`, `SEM`, `EDS`, `AFM`, `VSM`, `JMP`, `Minitab`, `CAD`, `CAE`, `FEA`, `LCR`},
			types.CategoryProcesses:    {`混練`, `スラリー`, `塗工`, `乾燥`, `焼結`, `DOE`, `フォーメーション`, `化成`},
			types.CategoryKPI:          {`エネルギー密度`, `サイクル寿命`, `内部抵抗`, `Wh/kg`, `Ah`, `歩留まり`},
			types.CategoryRegulations:  {`UN38\.3`, `IEC[0-9]+`, `AEC-Q[0-9]+`, `RoHS`, `REACH`, `JIS`, `ISO`, `規格`},
			types.CategoryFailures:     {`劣化`, `膨張`, `短絡`, `熱暴走`, `SEI`, `デンドライト`, `ガス`},
			types.CategoryStakeholders: {`OEM`, `品質保証`, `製造技術`, `開発部門`, `プロセスエンジニア`, `法務`, `環境安全`},
			types.CategoryDeliverables: {`仕様書`, `計画書`, `レポート`, `要件仕様`, `評価レポート`, `試験レポート`},
		},
		AbstractTokens: []string{
			"材料", "ツール", "装置", "システム", "工程", "手法", "方法", "測定", "評価",
			"material", "materials", "tool", "tools", "equipment", "system", "systems",
			"method", "methods", "process", "processes", "measurement", "evaluation",
		},
		Specific: []string{`[A-Z]{2,}`, `\d+[A-Za-z]+`, `[A-Za-z]+\d+`},
	}
}

// tokenPattern splits an item into word tokens, CJK runs included.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]+`)

// Rules is a compiled Policy. It is immutable and safe for concurrent use.
type Rules struct {
	exclusion []*regexp.Regexp
	roles     []*regexp.Regexp
	allow     map[types.Category][]*regexp.Regexp
	abstract  map[string]bool
	specific  []*regexp.Regexp
}

// Compile compiles every pattern of p.
func Compile(p Policy) (*Rules, error) {
	r := &Rules{
		allow:    make(map[types.Category][]*regexp.Regexp, len(p.Allow)),
		abstract: make(map[string]bool, len(p.AbstractTokens)),
	}
	var err error
	if r.exclusion, err = compileAll("exclusion", p.Exclusion); err != nil {
		return nil, err
	}
	if r.roles, err = compileAll("roles", p.Roles); err != nil {
		return nil, err
	}
	if r.specific, err = compileAll("specific", p.Specific); err != nil {
		return nil, err
	}
	for c, pats := range p.Allow {
		if !c.Valid() {
			return nil, fmt.Errorf("allow patterns: %w: %q", types.ErrUnknownCategory, string(c))
		}
		if r.allow[c], err = compileAll("allow "+string(c), pats); err != nil {
			return nil, err
		}
	}
	for _, tok := range p.AbstractTokens {
		r.abstract[strings.ToLower(tok)] = true
	}
	return r, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
func MustCompile(p Policy) *Rules {
	r, err := Compile(p)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultRules = MustCompile(DefaultPolicy())

// Default returns the compiled default policy.
func Default() *Rules {
	return defaultRules
}

// WithAllow returns a copy of r whose allow-lists are replaced, category by
// category, with the given patterns. Categories absent from allow keep
// their current patterns; an empty list disables the allow-list.
func (r *Rules) WithAllow(allow map[types.Category][]string) (*Rules, error) {
	out := *r
	out.allow = make(map[types.Category][]*regexp.Regexp, len(r.allow))
	for c, pats := range r.allow {
		out.allow[c] = pats
	}
	for c, pats := range allow {
		if !c.Valid() {
			return nil, fmt.Errorf("allow patterns: %w: %q", types.ErrUnknownCategory, string(c))
		}
		compiled, err := compileAll("allow "+string(c), pats)
		if err != nil {
			return nil, err
		}
		out.allow[c] = compiled
	}
	return &out, nil
}

// Filter applies the category rules to items in order:
//
//  1. an item matching an exclusion pattern is dropped; for stakeholders
//     an item that also matches a role pattern is replaced by the role
//     token alone;
//  2. an item matching none of the category's allow patterns is dropped
//     (role tokens are always allowed for stakeholders);
//  3. an item shorter than two characters is dropped.
//
// Order is preserved and duplicates are kept.
func (r *Rules) Filter(c types.Category, items []string) []string {
	out := make([]string, 0, len(items))
	for _, raw := range items {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}

		if r.IsOrganization(item) {
			if c != types.CategoryStakeholders {
				continue
			}
			role := r.roleToken(item)
			if role != "" && !r.IsOrganization(role) && utf8.RuneCountInString(role) >= types.MinTermLength {
				out = append(out, role)
			}
			continue
		}

		if !r.allowed(c, item) {
			continue
		}

		if utf8.RuneCountInString(item) < types.MinTermLength {
			continue
		}
		out = append(out, item)
	}
	return out
}

// FilterAbstract drops items whose tokens are all abstract words, unless
// the item looks specific (an acronym or a letter/digit code). An item with
// no word tokens at all counts as abstract.
func (r *Rules) FilterAbstract(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if r.isAbstract(item) && !r.IsSpecific(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Apply runs Filter then FilterAbstract.
func (r *Rules) Apply(c types.Category, items []string) []string {
	return r.FilterAbstract(r.Filter(c, items))
}

// IsOrganization reports whether s matches an exclusion pattern.
func (r *Rules) IsOrganization(s string) bool {
	return matchAny(r.exclusion, s)
}

// IsSpecific reports whether s matches a specific-pattern heuristic.
func (r *Rules) IsSpecific(s string) bool {
	return matchAny(r.specific, s)
}

// SpecificHits counts every specific-pattern match in s, summed over
// patterns.
func (r *Rules) SpecificHits(s string) int {
	n := 0
	for _, re := range r.specific {
		n += len(re.FindAllStringIndex(s, -1))
	}
	return n
}

func (r *Rules) isAbstract(item string) bool {
	for _, tok := range tokenPattern.FindAllString(item, -1) {
		if !r.abstract[strings.ToLower(tok)] {
			return false
		}
	}
	return true
}

func (r *Rules) roleToken(s string) string {
	for _, re := range r.roles {
		if m := re.FindString(s); m != "" {
			return m
		}
	}
	return ""
}

func (r *Rules) allowed(c types.Category, item string) bool {
	if c == types.CategoryStakeholders && r.roleToken(item) != "" {
		return true
	}
	pats := r.allow[c]
	if len(pats) == 0 {
		return true
	}
	return matchAny(pats, item)
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func compileAll(kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling %s pattern %q: %w", kind, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
