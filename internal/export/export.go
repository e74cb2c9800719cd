// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export reads and writes phase tables, vocabularies and injection
// plans as YAML or JSON files, and renders tables as TSV for spreadsheets.
// The file format follows the extension: .yaml and .yml for YAML, .json for
// JSON.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/phaseplan/pkg/types"
)

// ErrUnsupportedFormat is returned for a path whose extension is neither
// YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format is a serialization format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// ReadTable loads a phase table. Unknown phase keys are an error; missing
// phases are not.
func ReadTable(path string) (types.PhaseTable, error) {
	var t types.PhaseTable
	if err := readFile(path, &t); err != nil {
		return nil, err
	}
	if t == nil {
		t = types.PhaseTable{}
	}
	return t, nil
}

// WriteTable saves t.
func WriteTable(path string, t types.PhaseTable) error {
	return writeFile(path, t)
}

// ReadVocabulary loads a vocabulary and checks its term invariants.
func ReadVocabulary(path string) (types.Vocabulary, error) {
	var v types.Vocabulary
	if err := readFile(path, &v); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ReadRaw loads unfiltered extractor output. Keys are not checked.
func ReadRaw(path string) (map[string][]string, error) {
	var raw map[string][]string
	if err := readFile(path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// WriteVocabulary saves v.
func WriteVocabulary(path string, v types.Vocabulary) error {
	return writeFile(path, v)
}

// WritePlan saves plan.
func WritePlan(path string, plan types.InjectionPlan) error {
	return writeFile(path, plan)
}

// ReadPlan loads an injection plan.
func ReadPlan(path string) (types.InjectionPlan, error) {
	var plan types.InjectionPlan
	if err := readFile(path, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// WriteReport saves any result value, such as a validation verdict.
func WriteReport(path string, v any) error {
	return writeFile(path, v)
}

// Encode writes v to w in format f.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

// fieldLabels are the row headings of the TSV rendering.
var fieldLabels = map[types.Field]string{
	types.FieldActivities:      "主要アクティビティ",
	types.FieldInputs:          "インプット",
	types.FieldOutputs:         "アウトプット",
	types.FieldTools:           "使用ツール",
	types.FieldStakeholders:    "ステークホルダー",
	types.FieldKPI:             "KPI",
	types.FieldRisks:           "リスク",
	types.FieldCountermeasures: "対策",
}

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// WriteTSV renders t for pasting into a spreadsheet: a header row of phase
// names, then one row per field with the phases as columns. Tabs and line
// breaks inside cells become spaces.
func WriteTSV(w io.Writer, t types.PhaseTable) error {
	bw := bufio.NewWriter(w)

	header := []string{"項目"}
	for _, p := range types.Phases() {
		header = append(header, cellReplacer.Replace(t[p].DisplayName(p)))
	}
	fmt.Fprintln(bw, strings.Join(header, "\t"))

	for _, f := range types.Fields() {
		if f == types.FieldPhaseName {
			continue
		}
		row := []string{fieldLabels[f]}
		for _, p := range types.Phases() {
			row = append(row, cellReplacer.Replace(t[p].Get(f)))
		}
		fmt.Fprintln(bw, strings.Join(row, "\t"))
	}
	return bw.Flush()
}

func readFile(path string, v any) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, v)
	default:
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, v any) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Encode(out, f, v); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}
