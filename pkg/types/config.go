// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// AllocationConfig holds settings for distributing terms across phases.
type AllocationConfig struct {
	// AffinityThreshold is the minimum affinity score a phase needs to
	// receive a term without being forced (default 0.6).
	AffinityThreshold float64 `json:"affinity_threshold" yaml:"affinity_threshold"`

	// ReuseCapStandard is the maximum number of phases an ordinary term may
	// be placed in over one session (default 3).
	ReuseCapStandard int `json:"reuse_cap_standard" yaml:"reuse_cap_standard"`

	// ReuseCapCore is the cap for core terms (default 5).
	ReuseCapCore int `json:"reuse_cap_core" yaml:"reuse_cap_core"`

	// CoreTerms are the highest-priority terms for the role. Profiles add
	// their own core terms at runtime.
	CoreTerms []string `json:"core_terms,omitempty" yaml:"core_terms,omitempty"`

	// SubsetLimits bounds how many ranked terms of each category are
	// eligible for allocation at all.
	SubsetLimits map[Category]int `json:"subset_limits" yaml:"subset_limits"`
}

// EnforcementConfig holds settings for repairing generated tables.
type EnforcementConfig struct {
	// UsagePenalty is subtracted from a term's affinity for every time it
	// was already injected in the current pass (default 0.3).
	UsagePenalty float64 `json:"usage_penalty" yaml:"usage_penalty"`

	// MaxUsesPerPass excludes a term once it was injected this many times
	// in one pass (default 3).
	MaxUsesPerPass int `json:"max_uses_per_pass" yaml:"max_uses_per_pass"`

	// InjectCounts is the number of terms injected into a failing field.
	InjectCounts map[Field]int `json:"inject_counts" yaml:"inject_counts"`
}

// ValidationConfig holds the pass/fail thresholds and scoring weights of the
// coverage validator.
type ValidationConfig struct {
	MinSpecificRatio    float64 `json:"min_specific_ratio" yaml:"min_specific_ratio"`
	MaxGenericRatio     float64 `json:"max_generic_ratio" yaml:"max_generic_ratio"`
	MinSpecificCount    int     `json:"min_specific_count" yaml:"min_specific_count"`
	MinWeightedCoverage float64 `json:"min_weighted_coverage" yaml:"min_weighted_coverage"`

	// ReferenceLimits is the number of top-ranked terms per category used
	// as the coverage reference set.
	ReferenceLimits map[Category]int `json:"reference_limits" yaml:"reference_limits"`

	// CategoryWeights is the importance weight of each category in
	// weighted coverage.
	CategoryWeights map[Category]float64 `json:"category_weights" yaml:"category_weights"`

	// GenericPhrases are counted toward the generic-term ratio.
	GenericPhrases []string `json:"generic_phrases" yaml:"generic_phrases"`
}

// VocabularyConfig holds settings for building and grading a vocabulary.
type VocabularyConfig struct {
	// MinPerCategory is the item count below which a category is topped up
	// from profile hints and flagged by the quality check (default 10).
	MinPerCategory int `json:"min_per_category" yaml:"min_per_category"`

	// MaxGenericWords is the largest tolerated number of generic words in
	// the extracted terms (default 5).
	MaxGenericWords int `json:"max_generic_words" yaml:"max_generic_words"`

	// MinSpecificHits is the minimum number of acronym or part-number
	// matches across all terms (default 10).
	MinSpecificHits int `json:"min_specific_hits" yaml:"min_specific_hits"`

	// GenericWords are counted toward MaxGenericWords.
	GenericWords []string `json:"generic_words" yaml:"generic_words"`
}

// DefaultVocabularyConfig returns the extraction quality defaults.
func DefaultVocabularyConfig() VocabularyConfig {
	return VocabularyConfig{
		MinPerCategory:  10,
		MaxGenericWords: 5,
		MinSpecificHits: 10,
		GenericWords: []string{
			"ツール", "システム", "ソフトウェア", "材料", "装置", "機器",
			"データ", "情報", "レポート", "資料", "文書", "手法", "方法",
		},
	}
}

// GenerationConfig holds settings for calling a table generator.
type GenerationConfig struct {
	// MaxRetries is the number of retry attempts for failed generator
	// calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// RegenerateMissing asks the generator to redo phases that contain no
	// vocabulary term, once, before the final validation.
	RegenerateMissing bool `json:"regenerate_missing" yaml:"regenerate_missing"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// RunsDir is the directory holding phaseplan.db.
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`
}

// ProfileConfig holds settings for profile resolution.
type ProfileConfig struct {
	// Dir is an optional directory of *.yaml profiles that take precedence
	// over the built-in ones.
	Dir string `json:"dir" yaml:"dir"`

	// CacheTTL is how long a resolved profile is kept (default 10m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// Format is console or json (default console).
	Format string `json:"format" yaml:"format"`

	// File, when set, receives JSON logs rotated by size.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Allocation  AllocationConfig  `json:"allocation" yaml:"allocation"`
	Enforcement EnforcementConfig `json:"enforcement" yaml:"enforcement"`
	Validation  ValidationConfig  `json:"validation" yaml:"validation"`
	Vocabulary  VocabularyConfig  `json:"vocabulary" yaml:"vocabulary"`
	Generation  GenerationConfig  `json:"generation" yaml:"generation"`
	Store       StoreConfig       `json:"store" yaml:"store"`
	Profiles    ProfileConfig     `json:"profiles" yaml:"profiles"`
	Log         LogConfig         `json:"log" yaml:"log"`
}

// DefaultSubsetLimits returns the per-category eligibility limits. The same
// numbers serve as coverage reference limits.
func DefaultSubsetLimits() map[Category]int {
	return map[Category]int{
		CategoryMaterials:    10,
		CategoryTools:        8,
		CategoryProcesses:    10,
		CategoryKPI:          8,
		CategoryRegulations:  8,
		CategoryFailures:     8,
		CategoryStakeholders: 10,
		CategoryDeliverables: 8,
	}
}

// DefaultAllocationConfig returns the allocation defaults.
func DefaultAllocationConfig() AllocationConfig {
	return AllocationConfig{
		AffinityThreshold: 0.6,
		ReuseCapStandard:  3,
		ReuseCapCore:      5,
		SubsetLimits:      DefaultSubsetLimits(),
	}
}

// DefaultEnforcementConfig returns the enforcement defaults.
func DefaultEnforcementConfig() EnforcementConfig {
	return EnforcementConfig{
		UsagePenalty:   0.3,
		MaxUsesPerPass: 3,
		InjectCounts: map[Field]int{
			FieldActivities: 1,
			FieldTools:      2,
			FieldInputs:     1,
			FieldOutputs:    2,
			FieldKPI:        2,
			FieldRisks:      2,
		},
	}
}

// DefaultValidationConfig returns the validation thresholds and weights.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MinSpecificRatio:    3.0,
		MaxGenericRatio:     20.0,
		MinSpecificCount:    10,
		MinWeightedCoverage: 0.50,
		ReferenceLimits:     DefaultSubsetLimits(),
		CategoryWeights: map[Category]float64{
			CategoryMaterials:    2.0,
			CategoryProcesses:    2.0,
			CategoryTools:        1.5,
			CategoryKPI:          1.5,
			CategoryRegulations:  1.2,
			CategoryFailures:     1.2,
			CategoryStakeholders: 1.0,
			CategoryDeliverables: 1.0,
		},
		GenericPhrases: []string{
			"市場調査", "資料作成", "データ分析", "会議", "レポート作成",
			"情報収集", "課題抽出", "改善提案", "品質管理", "プロジェクト管理",
			"ツール", "システム", "ソフトウェア", "装置", "機器",
		},
	}
}

// DefaultPipelineConfig returns a fully populated configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Allocation:  DefaultAllocationConfig(),
		Enforcement: DefaultEnforcementConfig(),
		Validation:  DefaultValidationConfig(),
		Vocabulary:  DefaultVocabularyConfig(),
		Generation: GenerationConfig{
			MaxRetries:        3,
			RetryBaseDelay:    time.Second,
			RegenerateMissing: true,
		},
		Store:    StoreConfig{RunsDir: "runs"},
		Profiles: ProfileConfig{CacheTTL: 10 * time.Minute},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// Validate checks value ranges. All problems are reported together.
func (c PipelineConfig) Validate() error {
	var errs []error
	a := c.Allocation
	if a.AffinityThreshold < 0 || a.AffinityThreshold > 1 {
		errs = append(errs, fmt.Errorf("allocation.affinity_threshold %.2f outside [0,1]", a.AffinityThreshold))
	}
	if a.ReuseCapStandard < 1 {
		errs = append(errs, fmt.Errorf("allocation.reuse_cap_standard must be at least 1, got %d", a.ReuseCapStandard))
	}
	if a.ReuseCapCore < a.ReuseCapStandard {
		errs = append(errs, fmt.Errorf("allocation.reuse_cap_core %d below reuse_cap_standard %d", a.ReuseCapCore, a.ReuseCapStandard))
	}
	for cat := range a.SubsetLimits {
		if !cat.Valid() {
			errs = append(errs, fmt.Errorf("allocation.subset_limits: %w: %q", ErrUnknownCategory, string(cat)))
		}
	}
	for cat := range c.Validation.ReferenceLimits {
		if !cat.Valid() {
			errs = append(errs, fmt.Errorf("validation.reference_limits: %w: %q", ErrUnknownCategory, string(cat)))
		}
	}
	for cat, w := range c.Validation.CategoryWeights {
		if !cat.Valid() {
			errs = append(errs, fmt.Errorf("validation.category_weights: %w: %q", ErrUnknownCategory, string(cat)))
		}
		if w < 0 {
			errs = append(errs, fmt.Errorf("validation.category_weights[%s] is negative", cat))
		}
	}
	if c.Enforcement.MaxUsesPerPass < 1 {
		errs = append(errs, fmt.Errorf("enforcement.max_uses_per_pass must be at least 1, got %d", c.Enforcement.MaxUsesPerPass))
	}
	if c.Generation.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("generation.max_retries is negative"))
	}
	return errors.Join(errs...)
}
