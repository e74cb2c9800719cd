// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile resolves an (industry, role) request to a domain profile:
// the core terms, scale stages, skeleton table and hint vocabulary that
// steer allocation and validation.
//
// Built-in profiles are embedded YAML files; a profile directory can add
// new ones or replace a built-in by name.
package profile

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/phaseplan/internal/affinity"
	"github.com/pdiddy/phaseplan/internal/filter"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// ErrNotFound is returned when no profile has the requested name or no
// profile, fallback included, matches a request.
var ErrNotFound = errors.New("profile not found")

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns the embedded profiles in match order.
func Builtin() ([]types.Profile, error) {
	return loadFS(builtinFS, "builtin")
}

// LoadDir reads every *.yaml and *.yml file of dir, sorted by file name.
func LoadDir(dir string) ([]types.Profile, error) {
	return loadFS(os.DirFS(dir), ".")
}

func loadFS(fsys fs.FS, dir string) ([]types.Profile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]types.Profile, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, name)))
		if err != nil {
			return nil, fmt.Errorf("reading profile %s: %w", name, err)
		}
		p, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Parse decodes and checks one YAML profile.
func Parse(data []byte) (types.Profile, error) {
	var p types.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return types.Profile{}, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := Check(p); err != nil {
		return types.Profile{}, err
	}
	return p, nil
}

// Check reports the problems of p: a missing name, an unusable match or
// affinity table, allow patterns that do not compile, or an unknown RACI
// letter.
func Check(p types.Profile) error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(p.Match) == 0 && !p.Fallback {
		errs = append(errs, errors.New("match is required unless fallback is set"))
	}
	if _, err := Table(p); err != nil {
		errs = append(errs, err)
	}
	if _, err := Rules(p); err != nil {
		errs = append(errs, err)
	}
	for role, letter := range p.StakeholderRoles {
		if len(letter) != 1 || !strings.Contains("RACI", letter) {
			errs = append(errs, fmt.Errorf("stakeholder %s: RACI letter %q", role, letter))
		}
	}
	if err := p.Hints.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("technical_hints: %w", err))
	}
	return errors.Join(errs...)
}

// Table returns the affinity table of p: its override when present,
// otherwise the default table.
func Table(p types.Profile) (affinity.Table, error) {
	if len(p.Affinity) == 0 {
		return affinity.Default(), nil
	}
	t, err := affinity.FromMap(p.Affinity)
	if err != nil {
		return affinity.Table{}, fmt.Errorf("phase_affinity: %w", err)
	}
	return t, nil
}

// Rules returns the filter rules of p: the default policy with the
// profile's allow-lists applied.
func Rules(p types.Profile) (*filter.Rules, error) {
	if p.AllowPatterns == nil {
		return filter.Default(), nil
	}
	r, err := filter.Default().WithAllow(p.AllowPatterns)
	if err != nil {
		return nil, fmt.Errorf("allow_patterns: %w", err)
	}
	return r, nil
}

// Skeleton returns the phase table a generator starts from: the profile's
// phase overrides, with every phase present and labelled, and KPI templates
// filling empty kpi fields.
func Skeleton(p types.Profile) types.PhaseTable {
	out := p.PhaseOverrides.Clone()
	for _, ph := range types.Phases() {
		rec := out[ph]
		if strings.TrimSpace(rec.PhaseName) == "" {
			rec.PhaseName = ph.Label()
		}
		if strings.TrimSpace(rec.KPI) == "" {
			rec.KPI = p.KPITemplates[ph]
		}
		out[ph] = rec
	}
	return out
}
