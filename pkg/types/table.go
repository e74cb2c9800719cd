// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field names one text field of a phase record. The names are the shared
// contract with generators and exporters and never change.
type Field string

const (
	FieldPhaseName       Field = "phase_name"
	FieldActivities      Field = "activities"
	FieldInputs          Field = "inputs"
	FieldOutputs         Field = "outputs"
	FieldTools           Field = "tools"
	FieldStakeholders    Field = "stakeholders"
	FieldKPI             Field = "kpi"
	FieldRisks           Field = "risks"
	FieldCountermeasures Field = "countermeasures"
)

// Fields returns every record field in serialization order.
func Fields() []Field {
	return []Field{
		FieldPhaseName,
		FieldActivities,
		FieldInputs,
		FieldOutputs,
		FieldTools,
		FieldStakeholders,
		FieldKPI,
		FieldRisks,
		FieldCountermeasures,
	}
}

// PhaseRecord is the text content of one phase.
type PhaseRecord struct {
	PhaseName       string `json:"phase_name" yaml:"phase_name"`
	Activities      string `json:"activities" yaml:"activities"`
	Inputs          string `json:"inputs" yaml:"inputs"`
	Outputs         string `json:"outputs" yaml:"outputs"`
	Tools           string `json:"tools" yaml:"tools"`
	Stakeholders    string `json:"stakeholders" yaml:"stakeholders"`
	KPI             string `json:"kpi" yaml:"kpi"`
	Risks           string `json:"risks" yaml:"risks"`
	Countermeasures string `json:"countermeasures" yaml:"countermeasures"`
}

// Get returns the value of f.
func (r PhaseRecord) Get(f Field) string {
	switch f {
	case FieldPhaseName:
		return r.PhaseName
	case FieldActivities:
		return r.Activities
	case FieldInputs:
		return r.Inputs
	case FieldOutputs:
		return r.Outputs
	case FieldTools:
		return r.Tools
	case FieldStakeholders:
		return r.Stakeholders
	case FieldKPI:
		return r.KPI
	case FieldRisks:
		return r.Risks
	case FieldCountermeasures:
		return r.Countermeasures
	}
	return ""
}

// Set assigns value to f. Unknown fields are ignored.
func (r *PhaseRecord) Set(f Field, value string) {
	switch f {
	case FieldPhaseName:
		r.PhaseName = value
	case FieldActivities:
		r.Activities = value
	case FieldInputs:
		r.Inputs = value
	case FieldOutputs:
		r.Outputs = value
	case FieldTools:
		r.Tools = value
	case FieldStakeholders:
		r.Stakeholders = value
	case FieldKPI:
		r.KPI = value
	case FieldRisks:
		r.Risks = value
	case FieldCountermeasures:
		r.Countermeasures = value
	}
}

// DisplayName returns the phase name, falling back to the phase identifier.
func (r PhaseRecord) DisplayName(p Phase) string {
	if strings.TrimSpace(r.PhaseName) != "" {
		return r.PhaseName
	}
	return p.String()
}

// Text returns the record serialized as compact JSON, the unit used for
// per-phase term counting.
func (r PhaseRecord) Text() string {
	return encodeJSON(r, "")
}

// PhaseTable is a generated business-process table keyed by phase. A table
// read from disk may lack phases; consumers treat missing phases and fields
// as empty.
type PhaseTable map[Phase]PhaseRecord

// Clone returns a copy of t. Records are values, so a shallow map copy is
// enough.
func (t PhaseTable) Clone() PhaseTable {
	out := make(PhaseTable, len(t))
	for p, r := range t {
		out[p] = r
	}
	return out
}

// Missing returns the phases absent from t, in order.
func (t PhaseTable) Missing() []Phase {
	var out []Phase
	for _, p := range Phases() {
		if _, ok := t[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// Text returns the whole table serialized as indented JSON with phases in
// order. Validation metrics (word counts, text offsets) are computed over
// this form, so it must stay stable.
func (t PhaseTable) Text() string {
	return encodeJSON(t, "  ")
}

// FieldText concatenates f across all phases, separated by spaces.
func (t PhaseTable) FieldText(f Field) string {
	var b strings.Builder
	for _, p := range Phases() {
		r, ok := t[p]
		if !ok {
			continue
		}
		b.WriteString(r.Get(f))
		b.WriteByte(' ')
	}
	return b.String()
}

func encodeJSON(v any, indent string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
