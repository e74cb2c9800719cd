// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/pipeline"
	"github.com/pdiddy/phaseplan/internal/profile"
	"github.com/pdiddy/phaseplan/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build, allocate, generate, enforce and validate in one pass",
	Long: `Run chains every stage for one role: it builds the vocabulary (from --raw
or the profile hints), allocates it over the phases, generates a table
(scaffolded from the profile skeleton, or read from --table), enforces
concrete terms and validates the result. Phases left without any term are
regenerated once before the final verdict.

Every run is recorded in the run store. --session continues the usage
counters of an earlier session. --batch runs several roles concurrently
from a YAML list of {industry, role} entries.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	rawPath, _ := cmd.Flags().GetString("raw")
	tablePath, _ := cmd.Flags().GetString("table")
	sessionID, _ := cmd.Flags().GetString("session")
	batchPath, _ := cmd.Flags().GetString("batch")
	parallel, _ := cmd.Flags().GetInt("parallel")
	outDir, _ := cmd.Flags().GetString("out")
	noSave, _ := cmd.Flags().GetBool("no-save")
	mergePaths, _ := cmd.Flags().GetStringSlice("merge")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reqs, err := runRequests(cmd, batchPath)
	if err != nil {
		return err
	}
	extra, err := readExtraVocabulary(mergePaths)
	if err != nil {
		return err
	}
	for i := range reqs {
		reqs[i].Extra = extra
	}
	if sessionID != "" && len(reqs) > 1 {
		return fmt.Errorf("--session cannot be combined with --batch")
	}

	var st *store.Store
	if !noSave || sessionID != "" {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}
	if sessionID != "" {
		if reqs[0].Session, err = st.LoadSession(ctx, sessionID); err != nil {
			return err
		}
	}

	reg, err := profile.NewRegistry(cfg.Profiles)
	if err != nil {
		return err
	}
	var ex pipeline.Extractor = pipeline.HintExtractor{}
	if rawPath != "" {
		ex = pipeline.FileExtractor{Path: rawPath}
	}
	var gen pipeline.Generator = pipeline.ScaffoldGenerator{}
	if tablePath != "" {
		gen = pipeline.FileGenerator{Path: tablePath}
	}
	pl := pipeline.New(reg, ex, gen, cfg, logger)

	results, err := pl.RunBatch(ctx, reqs, parallel)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if st != nil && !noSave {
			if err := recordRun(ctx, st, res); err != nil {
				return err
			}
		}
		if outDir != "" {
			if err := writeRunArtifacts(filepath.Join(outDir, res.SessionID), res); err != nil {
				return err
			}
		}
		printRunSummary(res)
		if !res.Validation.Passed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d table(s) failed validation", failed, len(results))
	}
	return nil
}

// batchEntry is one line of a --batch file.
type batchEntry struct {
	Industry string `yaml:"industry"`
	Role     string `yaml:"role"`
}

func runRequests(cmd *cobra.Command, batchPath string) ([]pipeline.Request, error) {
	if batchPath == "" {
		industry, role := roleFlags(cmd)
		if strings.TrimSpace(industry+role) == "" {
			return nil, fmt.Errorf("--industry or --role required (or --batch)")
		}
		return []pipeline.Request{{Industry: industry, Role: role}}, nil
	}

	data, err := os.ReadFile(batchPath)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var entries []batchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing batch file %s: %w", batchPath, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("batch file %s lists no roles", batchPath)
	}
	reqs := make([]pipeline.Request, len(entries))
	for i, e := range entries {
		reqs[i] = pipeline.Request{Industry: e.Industry, Role: e.Role}
	}
	return reqs, nil
}

func recordRun(ctx context.Context, st *store.Store, res *pipeline.Result) error {
	if err := st.SaveSession(ctx, res.Session); err != nil {
		return err
	}
	if err := st.SaveVocabulary(ctx, res.SessionID, res.Vocabulary); err != nil {
		return err
	}
	if _, err := st.SavePlan(ctx, res.SessionID, res.Plan); err != nil {
		return err
	}
	_, err := st.SaveValidation(ctx, res.SessionID, res.Validation)
	return err
}

func writeRunArtifacts(dir string, res *pipeline.Result) error {
	if err := export.WriteVocabulary(filepath.Join(dir, "vocabulary.yaml"), res.Vocabulary); err != nil {
		return err
	}
	if err := export.WritePlan(filepath.Join(dir, "plan.yaml"), res.Plan); err != nil {
		return err
	}
	if err := export.WriteTable(filepath.Join(dir, "table.yaml"), res.Table); err != nil {
		return err
	}
	if err := export.WriteReport(filepath.Join(dir, "result.json"), res); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "table.tsv"))
	if err != nil {
		return fmt.Errorf("creating TSV: %w", err)
	}
	defer f.Close()
	return export.WriteTSV(f, res.Table)
}

func printRunSummary(res *pipeline.Result) {
	m := res.Validation.Metrics
	fmt.Printf("%s  %s  session %s\n", verdict(res.Validation.Passed), res.Profile, res.SessionID)
	fmt.Printf("  vocabulary %d terms, %d placements (%d forced), %d injection(s)\n",
		res.Vocabulary.Len(), len(res.Allocation.Placements), res.Allocation.Forced(), len(res.Enforcement.Injections))
	fmt.Printf("  specific %d (%.1f%%), weighted coverage %.2f, generated in %d attempt(s)\n",
		m.SpecificCount, m.SpecificRatio, m.WeightedCoverage, res.GenerateAttempts)
	if len(res.Regenerated) > 0 {
		names := make([]string, len(res.Regenerated))
		for i, p := range res.Regenerated {
			names[i] = p.String()
		}
		fmt.Printf("  regenerated %s\n", strings.Join(names, ", "))
	}
	if len(res.Unsatisfied) > 0 {
		names := make([]string, len(res.Unsatisfied))
		for i, p := range res.Unsatisfied {
			names[i] = p.String()
		}
		fmt.Printf("  %s unfilled fields in %s\n", dimColor.Sprint("warn"), strings.Join(names, ", "))
	}
	if !res.Quality.Passed {
		fmt.Printf("  %s extraction quality: %s\n", dimColor.Sprint("warn"), strings.Join(res.Quality.Errors, "; "))
	}
	for _, e := range res.Validation.Errors {
		fmt.Printf("  - %s\n", e)
	}
}

func init() {
	addRoleFlags(runCmd)
	runCmd.Flags().String("raw", "", "raw terms file (default: profile hints)")
	runCmd.Flags().String("table", "", "generated table file (default: scaffold from the profile)")
	runCmd.Flags().String("session", "", "continue a stored session by id")
	runCmd.Flags().String("batch", "", "YAML list of {industry, role} to run concurrently")
	runCmd.Flags().Int("parallel", 4, "maximum concurrent runs in batch mode")
	runCmd.Flags().StringP("out", "o", "", "directory receiving per-session artifacts")
	runCmd.Flags().Bool("no-save", false, "do not record runs in the run store")
	runCmd.Flags().StringSlice("merge", nil, "vocabulary files whose terms are merged into every run")

	rootCmd.AddCommand(runCmd)
}
