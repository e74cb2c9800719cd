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
)

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Write a draft table from an injection plan",
	Long: `Scaffold starts from the profile skeleton and writes the plan's terms of
each phase into the field their category belongs in. The plan comes from
--plan, as written by allocate. The draft is ready for enforce and validate.`,
	RunE: runScaffold,
}

func runScaffold(cmd *cobra.Command, args []string) error {
	planPath, _ := cmd.Flags().GetString("plan")
	outPath, _ := cmd.Flags().GetString("out")

	if planPath == "" {
		return fmt.Errorf("--plan is required")
	}
	plan, err := export.ReadPlan(planPath)
	if err != nil {
		return err
	}
	p, err := resolveProfile(roleFlags(cmd))
	if err != nil {
		return err
	}

	t, err := pipeline.ScaffoldGenerator{}.Generate(context.Background(), pipeline.GenerateRequest{
		Profile:  p,
		Plan:     plan,
		Skeleton: profile.Skeleton(p),
	})
	if err != nil {
		return err
	}
	logger.Info("scaffolded table", zap.String("profile", p.Name), zap.Int("placements", plan.Placements()))

	if outPath == "" {
		return export.Encode(os.Stdout, export.FormatYAML, t)
	}
	if err := export.WriteTable(outPath, t); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d phases to %s\n", len(t), outPath)
	return nil
}

func init() {
	addRoleFlags(scaffoldCmd)
	scaffoldCmd.Flags().String("plan", "", "injection plan file (YAML or JSON)")
	scaffoldCmd.Flags().StringP("out", "o", "", "write the table to this file instead of stdout")

	rootCmd.AddCommand(scaffoldCmd)
}
