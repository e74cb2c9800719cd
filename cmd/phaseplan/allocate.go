// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/phaseplan/internal/allocate"
	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/profile"
	"github.com/pdiddy/phaseplan/internal/store"
	"github.com/pdiddy/phaseplan/pkg/types"
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Distribute vocabulary terms over the seven phases",
	Long: `Allocate places every eligible term into the phases whose affinity for
its category reaches the threshold, capped by how many phases a term may
appear in over one session. Terms below the threshold everywhere go to their
best phase and are marked forced.

With --session the usage counters of a stored session are restored, so the
caps hold across runs. With --save the session and plan are recorded.`,
	RunE: runAllocate,
}

func runAllocate(cmd *cobra.Command, args []string) error {
	vocabPath, _ := cmd.Flags().GetString("vocab")
	outPath, _ := cmd.Flags().GetString("out")
	sessionID, _ := cmd.Flags().GetString("session")
	save, _ := cmd.Flags().GetBool("save")
	showText, _ := cmd.Flags().GetBool("text")

	if vocabPath == "" {
		return fmt.Errorf("--vocab is required")
	}
	v, err := export.ReadVocabulary(vocabPath)
	if err != nil {
		return err
	}

	industry, role := roleFlags(cmd)
	p, err := resolveProfile(industry, role)
	if err != nil {
		return err
	}
	table, err := profile.Table(p)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var st *store.Store
	sess := allocate.NewSession(industry, role)
	if sessionID != "" || save {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
		if sessionID != "" {
			if sess, err = st.LoadSession(ctx, sessionID); err != nil {
				return err
			}
		}
	}
	sess.Profile = p.Name

	acfg := cfg.Allocation
	acfg.CoreTerms = append(append([]string(nil), acfg.CoreTerms...), p.CoreTerms...)
	plan, report := allocate.New(table, acfg).Allocate(sess, v)

	logger.Info("allocated terms",
		zap.String("session", sess.ID),
		zap.Int("placements", len(report.Placements)),
		zap.Int("forced", report.Forced()),
		zap.Int("skipped", len(report.Skipped)))

	if showText {
		fmt.Print(plan.Text())
	} else if outPath != "" {
		if err := export.WritePlan(outPath, plan); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote plan with %d placements to %s\n", plan.Placements(), outPath)
	} else if err := export.Encode(os.Stdout, export.FormatYAML, plan); err != nil {
		return err
	}

	if st != nil {
		if err := st.SaveSession(ctx, sess); err != nil {
			return err
		}
		if err := st.SaveVocabulary(ctx, sess.ID, v); err != nil {
			return err
		}
		run, err := st.SavePlan(ctx, sess.ID, plan)
		if err != nil {
			return err
		}
		logger.Debug("recorded plan", zap.String("session", sess.ID), zap.Int("run", run))
	}

	fmt.Fprintf(os.Stderr, "Session %s: %d placed (%d forced), %d skipped\n",
		sess.ID, len(report.Placements), report.Forced(), len(report.Skipped))
	for _, c := range types.Categories() {
		if report.Exhausted(c) {
			fmt.Fprintf(os.Stderr, "  %s exhausted: every term reached its cap\n", c)
		}
	}
	return nil
}

func init() {
	addRoleFlags(allocateCmd)
	allocateCmd.Flags().String("vocab", "", "vocabulary file (YAML or JSON)")
	allocateCmd.Flags().StringP("out", "o", "", "write the plan to this file instead of stdout")
	allocateCmd.Flags().String("session", "", "continue a stored session by id")
	allocateCmd.Flags().Bool("save", false, "record the session in the run store")
	allocateCmd.Flags().Bool("text", false, "print the plan as prompt text")

	rootCmd.AddCommand(allocateCmd)
}
