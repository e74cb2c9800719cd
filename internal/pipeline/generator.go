// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/profile"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// ErrEmptyTable is returned when a generator produces no phases.
var ErrEmptyTable = errors.New("generator returned an empty table")

// GenerateRequest is everything a generator needs to write a table.
type GenerateRequest struct {
	Profile    types.Profile
	Plan       types.InjectionPlan
	Vocabulary types.Vocabulary

	// Skeleton is the starting table of the profile.
	Skeleton types.PhaseTable

	// Phases restricts generation to the listed phases. Nil means all.
	Phases []types.Phase

	// Previous is the table being repaired when Phases is set.
	Previous types.PhaseTable
}

// Generator turns a plan into a phase table. Implementations may call out
// to a language model; the pipeline retries failures.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (types.PhaseTable, error)
}

// FileGenerator returns a table written elsewhere, read from Path.
type FileGenerator struct {
	Path string
}

// Generate implements Generator.
func (f FileGenerator) Generate(ctx context.Context, _ GenerateRequest) (types.PhaseTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return export.ReadTable(f.Path)
}

// slot says where a category's terms go in a scaffolded record.
type slot struct {
	field types.Field
	sep   string
}

var scaffoldSlots = map[types.Category]slot{
	types.CategoryMaterials:    {types.FieldInputs, " / "},
	types.CategoryTools:        {types.FieldTools, ", "},
	types.CategoryProcesses:    {types.FieldActivities, " / "},
	types.CategoryKPI:          {types.FieldKPI, ", "},
	types.CategoryRegulations:  {types.FieldCountermeasures, " / "},
	types.CategoryFailures:     {types.FieldRisks, " / "},
	types.CategoryStakeholders: {types.FieldStakeholders, ", "},
	types.CategoryDeliverables: {types.FieldOutputs, " / "},
}

// ScaffoldGenerator writes a table without a model: it starts from the
// skeleton and appends the plan's terms of each phase to the field their
// category belongs in. Stakeholders known to the profile carry their RACI
// letter.
type ScaffoldGenerator struct{}

// Generate implements Generator.
func (ScaffoldGenerator) Generate(ctx context.Context, req GenerateRequest) (types.PhaseTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	skeleton := req.Skeleton
	if skeleton == nil {
		skeleton = profile.Skeleton(req.Profile)
	}
	phases := req.Phases
	if len(phases) == 0 {
		phases = types.Phases()
	}

	out := make(types.PhaseTable, len(phases))
	for _, p := range phases {
		rec := skeleton[p]
		if strings.TrimSpace(rec.PhaseName) == "" {
			rec.PhaseName = p.Label()
		}
		for _, c := range types.Categories() {
			terms := req.Plan.Terms(p, c)
			if len(terms) == 0 {
				continue
			}
			if c == types.CategoryStakeholders {
				terms = withRACI(terms, req.Profile.StakeholderRoles)
			}
			s := scaffoldSlots[c]
			rec.Set(s.field, appendTerms(rec.Get(s.field), terms, s.sep))
		}
		out[p] = rec
	}
	return out, nil
}

func withRACI(terms []string, roles map[string]string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		if letter, ok := roles[t]; ok {
			out[i] = fmt.Sprintf("%s(%s)", t, letter)
			continue
		}
		out[i] = t
	}
	return out
}

// appendTerms adds the terms not already present in text.
func appendTerms(text string, terms []string, sep string) string {
	var add []string
	for _, t := range terms {
		if !strings.Contains(text, t) {
			add = append(add, t)
		}
	}
	if len(add) == 0 {
		return text
	}
	joined := strings.Join(add, sep)
	if strings.TrimSpace(text) == "" {
		return joined
	}
	return text + sep + joined
}

// generateWithRetry calls the generator with exponential backoff, making
// at most maxRetries+1 attempts. The delay starts at base and doubles.
func generateWithRetry(ctx context.Context, g Generator, req GenerateRequest, maxRetries int, base time.Duration) (types.PhaseTable, int, error) {
	if base <= 0 {
		base = time.Second
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = base << 6
	bo.MaxElapsedTime = 0

	attempts := 0
	table, err := backoff.RetryWithData(func() (types.PhaseTable, error) {
		attempts++
		t, err := g.Generate(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if len(t) == 0 {
			return nil, ErrEmptyTable
		}
		return t, nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(max(maxRetries, 0))), ctx))
	if err != nil {
		return nil, attempts, fmt.Errorf("generating table after %d attempts: %w", attempts, err)
	}
	return table, attempts, nil
}
