// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned when a category identifier is outside the
// closed set of eight categories.
var ErrUnknownCategory = errors.New("unknown category")

// Category identifies one kind of domain vocabulary. The set is closed; new
// categories are never introduced at runtime.
type Category string

const (
	CategoryMaterials    Category = "materials_or_products"
	CategoryTools        Category = "tools_and_equipment"
	CategoryProcesses    Category = "processes"
	CategoryKPI          Category = "industry_specific_kpi"
	CategoryRegulations  Category = "constraints_or_regulations"
	CategoryFailures     Category = "common_failures"
	CategoryStakeholders Category = "stakeholders"
	CategoryDeliverables Category = "deliverables"
)

// NumCategories is the size of the closed category set.
const NumCategories = 8

// categoryOrder fixes the iteration order used by allocation, plan
// rendering, and reports.
var categoryOrder = [NumCategories]Category{
	CategoryMaterials,
	CategoryTools,
	CategoryProcesses,
	CategoryKPI,
	CategoryRegulations,
	CategoryFailures,
	CategoryStakeholders,
	CategoryDeliverables,
}

// shortNames are the labels used when a plan is embedded in prompt text.
var shortNames = map[Category]string{
	CategoryMaterials:    "materials",
	CategoryTools:        "tools",
	CategoryProcesses:    "processes",
	CategoryKPI:          "kpi",
	CategoryRegulations:  "regulations",
	CategoryFailures:     "failures",
	CategoryStakeholders: "stakeholders",
	CategoryDeliverables: "deliverables",
}

// Categories returns all categories in their canonical order.
func Categories() []Category {
	out := make([]Category, NumCategories)
	copy(out, categoryOrder[:])
	return out
}

// ParseCategory converts an identifier such as "processes" into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the eight known categories.
func (c Category) Valid() bool {
	_, ok := shortNames[c]
	return ok
}

// Index returns the position of c in the canonical order, or -1.
func (c Category) Index() int {
	for i, known := range categoryOrder {
		if known == c {
			return i
		}
	}
	return -1
}

// ShortName returns the compact label used in injection plan text.
func (c Category) ShortName() string {
	return shortNames[c]
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// UnmarshalText rejects identifiers outside the closed set, so YAML and JSON
// documents with a misspelled category fail to load instead of scoring zero.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
