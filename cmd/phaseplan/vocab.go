// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/pipeline"
	"github.com/pdiddy/phaseplan/internal/profile"
	"github.com/pdiddy/phaseplan/internal/vocab"
	"github.com/pdiddy/phaseplan/pkg/types"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Build a filtered vocabulary from raw extracted terms",
	Long: `Vocab reads raw terms per category (YAML or JSON), normalizes them,
drops abstract words, organization names and generic items, merges any
--merge files, tops up thin categories from the profile's hint sets, and
runs the extraction quality gate. Without --raw the profile hints alone are
used.

The vocabulary is written to --out, or as YAML to stdout.`,
	RunE: runVocab,
}

func runVocab(cmd *cobra.Command, args []string) error {
	rawPath, _ := cmd.Flags().GetString("raw")
	outPath, _ := cmd.Flags().GetString("out")
	strict, _ := cmd.Flags().GetBool("strict")
	mergePaths, _ := cmd.Flags().GetStringSlice("merge")

	p, err := resolveProfile(roleFlags(cmd))
	if err != nil {
		return err
	}
	rules, err := profile.Rules(p)
	if err != nil {
		return err
	}

	var ex pipeline.Extractor = pipeline.HintExtractor{}
	if rawPath != "" {
		ex = pipeline.FileExtractor{Path: rawPath}
	}
	raw, err := ex.Extract(context.Background(), p)
	if err != nil {
		return err
	}

	v, build := vocab.Build(raw, rules)
	extra, err := readExtraVocabulary(mergePaths)
	if err != nil {
		return err
	}
	v = vocab.Merge(v, extra)
	v, added := vocab.Supplement(v, p.Hints, cfg.Vocabulary.MinPerCategory)
	if err := v.Validate(); err != nil {
		return err
	}
	q := vocab.CheckQuality(v, p.RequiredTerms(), rules, cfg.Vocabulary)

	logger.Info("built vocabulary",
		zap.String("profile", p.Name),
		zap.Int("terms", v.Len()),
		zap.Strings("unknown_categories", build.UnknownCategories))

	if outPath != "" {
		if err := export.WriteVocabulary(outPath, v); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d terms to %s\n", v.Len(), outPath)
	} else if err := export.Encode(os.Stdout, export.FormatYAML, v); err != nil {
		return err
	}

	printVocabSummary(p.Name, build, added, q)
	if strict && !q.Passed {
		return fmt.Errorf("extraction quality gate failed with %d error(s)", len(q.Errors))
	}
	return nil
}

func printVocabSummary(name string, build vocab.BuildReport, added map[types.Category][]string, q vocab.Quality) {
	fmt.Fprintf(os.Stderr, "Profile: %s\n", name)
	for _, c := range types.Categories() {
		dropped := build.Dropped[c]
		if dropped == 0 && len(added[c]) == 0 {
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-13s dropped %d, supplemented %d\n", c, dropped, len(added[c]))
	}
	fmt.Fprintf(os.Stderr, "Quality gate: %s\n", verdict(q.Passed))
	for _, e := range q.Errors {
		fmt.Fprintf(os.Stderr, "  - %s\n", e)
	}
}

func init() {
	addRoleFlags(vocabCmd)
	vocabCmd.Flags().String("raw", "", "raw terms file: category -> list of strings (YAML or JSON)")
	vocabCmd.Flags().StringP("out", "o", "", "write the vocabulary to this file instead of stdout")
	vocabCmd.Flags().Bool("strict", false, "exit non-zero when the quality gate fails")
	vocabCmd.Flags().StringSlice("merge", nil, "curated vocabulary files merged in before hints top up thin categories")

	rootCmd.AddCommand(vocabCmd)
}

// readExtraVocabulary merges the vocabulary files at paths, in order.
func readExtraVocabulary(paths []string) (types.Vocabulary, error) {
	extra := types.Vocabulary{}
	for _, path := range paths {
		v, err := export.ReadVocabulary(path)
		if err != nil {
			return nil, err
		}
		extra = vocab.Merge(extra, v)
	}
	return extra, nil
}
