// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/validate"
	"github.com/pdiddy/phaseplan/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Score a table for specificity and vocabulary coverage",
	Long: `Validate measures how many vocabulary terms a table contains, how many
generic phrases it leans on, how much of each category's reference terms it
reflects, whether scale-up stages appear in order, and whether the four RACI
markers are present. It exits non-zero when any threshold is missed.

With --session the verdict is appended to that session's history.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	tablePath, _ := cmd.Flags().GetString("table")
	vocabPath, _ := cmd.Flags().GetString("vocab")
	sessionID, _ := cmd.Flags().GetString("session")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if tablePath == "" || vocabPath == "" {
		return fmt.Errorf("--table and --vocab are required")
	}
	t, err := export.ReadTable(tablePath)
	if err != nil {
		return err
	}
	v, err := export.ReadVocabulary(vocabPath)
	if err != nil {
		return err
	}

	var meta types.ProfileMeta
	if industry, role := roleFlags(cmd); industry != "" || role != "" {
		p, err := resolveProfile(industry, role)
		if err != nil {
			return err
		}
		meta = p.Meta()
	}

	res := validate.New(cfg.Validation).Validate(t, v, meta)

	if sessionID != "" {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if _, err := st.SaveValidation(context.Background(), sessionID, res); err != nil {
			return err
		}
	}

	if jsonOutput {
		if err := encodeJSON(res); err != nil {
			return err
		}
	} else {
		printValidation(res)
	}

	if !res.Passed {
		return fmt.Errorf("validation failed with %d error(s)", len(res.Errors))
	}
	return nil
}

func printValidation(res validate.Result) {
	m := res.Metrics
	fmt.Printf("Verdict: %s\n\n", verdict(res.Passed))
	fmt.Printf("  Specific terms     %d\n", m.SpecificCount)
	fmt.Printf("  Generic phrases    %d\n", m.GenericCount)
	fmt.Printf("  Specific ratio     %.2f%%\n", m.SpecificRatio)
	fmt.Printf("  Generic ratio      %.2f%%\n", m.GenericRatio)
	fmt.Printf("  Weighted coverage  %.2f\n", m.WeightedCoverage)
	if m.ScaleChecked {
		order := "in order"
		if !m.ScaleOrderOK {
			order = "out of order at " + m.ScaleOutOfOrder
		}
		fmt.Printf("  Scale stages       %s\n", order)
	}
	raci := "complete"
	if missing := m.RACI.Missing(); len(missing) > 0 {
		raci = "missing " + strings.Join(missing, ", ")
	}
	fmt.Printf("  RACI               %s\n", raci)

	fmt.Println()
	for _, c := range types.Categories() {
		cov, ok := m.CategoryCoverage[c]
		if !ok {
			fmt.Printf("  %-13s %s\n", c, dimColor.Sprint("no terms"))
			continue
		}
		fmt.Printf("  %-13s %5.1f%%\n", c, cov*100)
	}

	if len(res.Errors) > 0 {
		fmt.Println()
		for _, e := range res.Errors {
			fmt.Printf("  %s %s\n", failColor.Sprint("✗"), e)
		}
	}
}

func init() {
	addRoleFlags(validateCmd)
	validateCmd.Flags().String("table", "", "table file (YAML or JSON)")
	validateCmd.Flags().String("vocab", "", "vocabulary file (YAML or JSON)")
	validateCmd.Flags().String("session", "", "record the verdict under this stored session")
	validateCmd.Flags().Bool("json", false, "output the result as JSON")

	rootCmd.AddCommand(validateCmd)
}
