// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/store"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// verdict renders a pass/fail flag, colored when stdout is a terminal.
func verdict(passed bool) string {
	if passed {
		return passColor.Sprint("PASS")
	}
	return failColor.Sprint("FAIL")
}

// writeOut encodes v to path, or as YAML to stdout when path is empty.
func writeOut(path string, v any) error {
	if path == "" {
		return export.Encode(os.Stdout, export.FormatYAML, v)
	}
	return export.WriteReport(path, v)
}

// openStore opens the run store configured for this invocation.
func openStore() (*store.Store, error) {
	return store.Open(cfg.Store)
}
