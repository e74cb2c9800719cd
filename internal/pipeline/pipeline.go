// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one request end to end: resolve the profile,
// extract and build the vocabulary, allocate it over the phases, generate a
// table, then enforce and validate it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/phaseplan/internal/allocate"
	"github.com/pdiddy/phaseplan/internal/enforce"
	"github.com/pdiddy/phaseplan/internal/profile"
	"github.com/pdiddy/phaseplan/internal/validate"
	"github.com/pdiddy/phaseplan/internal/vocab"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// Request names the role a table is built for. Session, when set, carries
// term usage over from earlier runs so reuse caps hold across them.
type Request struct {
	Industry string `json:"industry" yaml:"industry"`
	Role     string `json:"role" yaml:"role"`

	// Extra holds curated terms merged into the built vocabulary ahead of
	// the profile hints.
	Extra types.Vocabulary `json:"extra,omitempty" yaml:"extra,omitempty"`

	Session *allocate.Session `json:"-" yaml:"-"`
}

// Result holds every artifact of a run.
type Result struct {
	SessionID string        `json:"session_id" yaml:"session_id"`
	Profile   string        `json:"profile" yaml:"profile"`
	Started   time.Time     `json:"started" yaml:"started"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`

	Build        vocab.BuildReport           `json:"build" yaml:"build"`
	Supplemented map[types.Category][]string `json:"supplemented,omitempty" yaml:"supplemented,omitempty"`
	Vocabulary   types.Vocabulary            `json:"vocabulary" yaml:"vocabulary"`
	Quality      vocab.Quality               `json:"quality" yaml:"quality"`

	Plan       types.InjectionPlan `json:"plan" yaml:"plan"`
	Allocation allocate.Report     `json:"allocation" yaml:"allocation"`

	GenerateAttempts int              `json:"generate_attempts" yaml:"generate_attempts"`
	Generated        types.PhaseTable `json:"generated" yaml:"generated"`
	Table            types.PhaseTable `json:"table" yaml:"table"`
	Enforcement      enforce.Report   `json:"enforcement" yaml:"enforcement"`

	// Unsatisfied lists phases with a checked field still lacking a term
	// after enforcement.
	Unsatisfied []types.Phase `json:"unsatisfied,omitempty" yaml:"unsatisfied,omitempty"`

	// Regenerated lists the phases redone because they held no term.
	Regenerated []types.Phase   `json:"regenerated,omitempty" yaml:"regenerated,omitempty"`
	Validation  validate.Result `json:"validation" yaml:"validation"`

	Session *allocate.Session `json:"-" yaml:"-"`
}

// Pipeline wires the stages together. It is safe for concurrent use when
// its extractor and generator are.
type Pipeline struct {
	profiles  *profile.Registry
	extractor Extractor
	generator Generator
	cfg       types.PipelineConfig
	log       *zap.Logger
}

// New returns a pipeline. A nil logger discards output.
func New(profiles *profile.Registry, ex Extractor, gen Generator, cfg types.PipelineConfig, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{profiles: profiles, extractor: ex, generator: gen, cfg: cfg, log: log}
}

// Run processes one request. A failing quality gate or validation is
// reported in the result, not as an error; errors mean a stage could not
// run at all.
func (pl *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	p, err := pl.profiles.Resolve(req.Industry, req.Role)
	if err != nil {
		return nil, fmt.Errorf("resolving profile: %w", err)
	}
	table, err := profile.Table(p)
	if err != nil {
		return nil, err
	}
	rules, err := profile.Rules(p)
	if err != nil {
		return nil, err
	}

	session := req.Session
	if session == nil {
		session = allocate.NewSession(req.Industry, req.Role)
	}
	session.Profile = p.Name
	log := pl.log.With(zap.String("session", session.ID), zap.String("profile", p.Name))
	res := &Result{SessionID: session.ID, Profile: p.Name, Started: started.UTC(), Session: session}

	raw, err := pl.extractor.Extract(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("extracting vocabulary: %w", err)
	}
	v, build := vocab.Build(raw, rules)
	res.Build = build
	if len(build.UnknownCategories) > 0 {
		log.Warn("dropped unknown categories", zap.Strings("categories", build.UnknownCategories))
	}

	if len(req.Extra) > 0 {
		v = vocab.Merge(v, req.Extra)
	}
	v, res.Supplemented = vocab.Supplement(v, p.Hints, pl.cfg.Vocabulary.MinPerCategory)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	res.Vocabulary = v
	log.Info("built vocabulary", zap.Int("terms", v.Len()), zap.Int("supplemented", countTerms(res.Supplemented)))

	res.Quality = vocab.CheckQuality(v, p.RequiredTerms(), rules, pl.cfg.Vocabulary)
	if !res.Quality.Passed {
		log.Warn("extraction quality gate failed", zap.Strings("errors", res.Quality.Errors))
	}

	acfg := pl.cfg.Allocation
	acfg.CoreTerms = append(append([]string(nil), acfg.CoreTerms...), p.CoreTerms...)
	res.Plan, res.Allocation = allocate.New(table, acfg).Allocate(session, v)
	log.Info("allocated terms",
		zap.Int("placements", len(res.Allocation.Placements)),
		zap.Int("forced", res.Allocation.Forced()),
		zap.Int("skipped", len(res.Allocation.Skipped)))

	gen := GenerateRequest{Profile: p, Plan: res.Plan, Vocabulary: v, Skeleton: profile.Skeleton(p)}
	gcfg := pl.cfg.Generation
	res.Generated, res.GenerateAttempts, err = generateWithRetry(ctx, pl.generator, gen, gcfg.MaxRetries, gcfg.RetryBaseDelay)
	if err != nil {
		return nil, err
	}

	enforcer := enforce.New(table, pl.cfg.Enforcement).WithSkeleton(gen.Skeleton)
	validator := validate.New(pl.cfg.Validation)

	res.Table, res.Enforcement = enforcer.Enforce(res.Generated, v)
	res.Validation = validator.Validate(res.Table, v, p.Meta())

	if !res.Validation.Passed && gcfg.RegenerateMissing && len(res.Validation.Metrics.EmptyPhases) > 0 {
		phases := res.Validation.Metrics.EmptyPhases
		log.Info("regenerating phases without specificity", zap.Stringers("phases", phases))

		gen.Phases = phases
		gen.Previous = res.Table
		redo, attempts, err := generateWithRetry(ctx, pl.generator, gen, gcfg.MaxRetries, gcfg.RetryBaseDelay)
		res.GenerateAttempts += attempts
		if err != nil {
			return nil, err
		}
		merged := res.Table.Clone()
		for _, ph := range phases {
			if rec, ok := redo[ph]; ok {
				merged[ph] = rec
			}
		}
		var again enforce.Report
		res.Table, again = enforcer.Enforce(merged, v)
		res.Enforcement.Injections = append(res.Enforcement.Injections, again.Injections...)
		res.Enforcement.CreatedPhases = append(res.Enforcement.CreatedPhases, again.CreatedPhases...)
		res.Regenerated = phases
		res.Validation = validator.Validate(res.Table, v, p.Meta())
	}

	res.Unsatisfied = unsatisfied(res.Table, v)
	if len(res.Unsatisfied) > 0 {
		log.Warn("fields still lack terms after enforcement", zap.Stringers("phases", res.Unsatisfied))
	}

	res.Elapsed = time.Since(started)
	log.Info("validated table",
		zap.Bool("passed", res.Validation.Passed),
		zap.Int("injections", len(res.Enforcement.Injections)),
		zap.Float64("weighted_coverage", res.Validation.Metrics.WeightedCoverage),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// RunBatch processes reqs with at most limit runs in flight. Results keep
// the order of reqs. The first error cancels the remaining runs.
func (pl *Pipeline) RunBatch(ctx context.Context, reqs []Request, limit int) ([]*Result, error) {
	out := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := pl.Run(gctx, req)
			if err != nil {
				return fmt.Errorf("%s %s: %w", req.Industry, req.Role, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func unsatisfied(t types.PhaseTable, v types.Vocabulary) []types.Phase {
	var out []types.Phase
	for _, p := range types.Phases() {
		if !enforce.Satisfied(t[p], v) {
			out = append(out, p)
		}
	}
	return out
}

func countTerms(m map[types.Category][]string) int {
	n := 0
	for _, terms := range m {
		n += len(terms)
	}
	return n
}
