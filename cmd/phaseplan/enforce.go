// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/phaseplan/internal/enforce"
	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/profile"
	"github.com/pdiddy/phaseplan/pkg/types"
)

var enforceCmd = &cobra.Command{
	Use:   "enforce",
	Short: "Inject vocabulary terms into fields that lack them",
	Long: `Enforce checks every phase of a generated table for concrete terms in
its activities, tools, inputs, outputs, KPI and risk fields. Fields that hold
none get the best-scoring vocabulary terms prepended; missing phases are
created from the profile skeleton. Fields that already pass are left as is.

A term is injected at most max_uses_per_pass times per run while another
candidate remains.`,
	RunE: runEnforce,
}

func runEnforce(cmd *cobra.Command, args []string) error {
	tablePath, _ := cmd.Flags().GetString("table")
	vocabPath, _ := cmd.Flags().GetString("vocab")
	outPath, _ := cmd.Flags().GetString("out")
	reportPath, _ := cmd.Flags().GetString("report")

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
	p, err := resolveProfile(roleFlags(cmd))
	if err != nil {
		return err
	}
	table, err := profile.Table(p)
	if err != nil {
		return err
	}

	fixed, report := enforce.New(table, cfg.Enforcement).WithSkeleton(profile.Skeleton(p)).Enforce(t, v)
	logger.Info("enforced table",
		zap.String("profile", p.Name),
		zap.Int("injections", len(report.Injections)),
		zap.Stringers("created_phases", report.CreatedPhases))

	if outPath == "" {
		outPath = tablePath
	}
	if err := export.WriteTable(outPath, fixed); err != nil {
		return err
	}
	if reportPath != "" {
		if err := export.WriteReport(reportPath, report); err != nil {
			return err
		}
	}

	for _, ph := range types.Phases() {
		if !enforce.Satisfied(fixed[ph], v) {
			fmt.Fprintf(os.Stderr, "%s %s still has a field without a term\n", dimColor.Sprint("warn"), ph)
		}
	}

	if !report.Changed() {
		fmt.Println("Table already satisfies every field; nothing injected.")
		return nil
	}
	for _, inj := range report.Injections {
		fmt.Printf("%-8s %-14s + %s\n", inj.Phase, inj.Field, strings.Join(inj.Terms, ", "))
	}
	fmt.Printf("\n%d injection(s), %d created phase(s), written to %s\n",
		len(report.Injections), len(report.CreatedPhases), outPath)
	return nil
}

func init() {
	addRoleFlags(enforceCmd)
	enforceCmd.Flags().String("table", "", "generated table file (YAML or JSON)")
	enforceCmd.Flags().String("vocab", "", "vocabulary file (YAML or JSON)")
	enforceCmd.Flags().StringP("out", "o", "", "output table file (default: overwrite --table)")
	enforceCmd.Flags().String("report", "", "write the injection report to this file")

	rootCmd.AddCommand(enforceCmd)
}
