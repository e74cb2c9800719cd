// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/phaseplan/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a table to TSV, YAML or JSON, or export a stored session",
	Long: `Export converts a table file. TSV output has a label column followed by
one column per phase; tabs and newlines inside cells become spaces.

With --session the vocabulary and latest plan of a stored session are
written to --dir instead.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	tablePath, _ := cmd.Flags().GetString("table")
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")
	sessionID, _ := cmd.Flags().GetString("session")
	dir, _ := cmd.Flags().GetString("dir")

	if sessionID != "" {
		return exportSession(sessionID, dir)
	}
	if tablePath == "" {
		return fmt.Errorf("--table or --session is required")
	}
	t, err := export.ReadTable(tablePath)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "tsv", "":
		err = export.WriteTSV(w, t)
	case "yaml":
		err = export.Encode(w, export.FormatYAML, t)
	case "json":
		err = export.Encode(w, export.FormatJSON, t)
	default:
		return fmt.Errorf("unsupported format %q: use tsv, yaml or json", format)
	}
	if err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", outPath)
	}
	return nil
}

func exportSession(id, dir string) error {
	ctx := context.Background()
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.LoadSession(ctx, id)
	if err != nil {
		return err
	}
	v, err := st.LoadVocabulary(ctx, id)
	if err != nil {
		return err
	}
	plan, err := st.LoadPlan(ctx, id, 0)
	if err != nil {
		return err
	}

	if dir == "" {
		dir = filepath.Join(cfg.Store.RunsDir, id)
	}
	if err := export.WriteVocabulary(filepath.Join(dir, "vocabulary.yaml"), v); err != nil {
		return err
	}
	if err := export.WritePlan(filepath.Join(dir, "plan.yaml"), plan); err != nil {
		return err
	}
	if err := export.WriteReport(filepath.Join(dir, "usage.yaml"), sess.Usage()); err != nil {
		return err
	}
	fmt.Printf("Exported session %s (%s) to %s\n", id, sess.Profile, dir)
	return nil
}

func init() {
	exportCmd.Flags().String("table", "", "table file (YAML or JSON)")
	exportCmd.Flags().String("format", "tsv", "output format: tsv, yaml or json")
	exportCmd.Flags().StringP("out", "o", "", "output file (default: stdout)")
	exportCmd.Flags().String("session", "", "export a stored session instead of a table")
	exportCmd.Flags().String("dir", "", "output directory for --session (default: <runs-dir>/<session>)")

	rootCmd.AddCommand(exportCmd)
}
