// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"

	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/vocab"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// Extractor produces raw candidate terms for a resolved profile. The
// profile carries the request (industry, role) and its search queries.
type Extractor interface {
	Extract(ctx context.Context, p types.Profile) (vocab.Raw, error)
}

// FileExtractor reads raw terms from a YAML or JSON file mapping category
// identifiers to string lists.
type FileExtractor struct {
	Path string
}

// Extract implements Extractor.
func (f FileExtractor) Extract(ctx context.Context, _ types.Profile) (vocab.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := export.ReadRaw(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading raw terms: %w", err)
	}
	return raw, nil
}

// HintExtractor returns the profile's own hint vocabulary. It lets a run
// proceed offline, with the quality gate reporting how thin the result is.
type HintExtractor struct{}

// Extract implements Extractor.
func (HintExtractor) Extract(ctx context.Context, p types.Profile) (vocab.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := make(vocab.Raw, len(p.Hints))
	for c, terms := range p.Hints {
		raw[string(c)] = append([]string(nil), terms...)
	}
	return raw, nil
}
