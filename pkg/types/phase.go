// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownPhase is returned when a phase identifier is not phase_1..phase_7.
var ErrUnknownPhase = errors.New("unknown phase")

// Phase is one of the seven ordered stages of a business-process table.
// The zero value is invalid.
type Phase int

const (
	Phase1 Phase = iota + 1
	Phase2
	Phase3
	Phase4
	Phase5
	Phase6
	Phase7
)

// NumPhases is the number of phases in every table.
const NumPhases = 7

// Stage is the coarse position of a phase in the value chain.
type Stage string

const (
	StageUpstream   Stage = "upstream"
	StageMidstream  Stage = "midstream"
	StageDownstream Stage = "downstream"
)

type phaseInfo struct {
	label string
	stage Stage
}

var phaseTemplate = [NumPhases]phaseInfo{
	{label: "情報収集", stage: StageUpstream},
	{label: "要件定義", stage: StageUpstream},
	{label: "設計・計画", stage: StageMidstream},
	{label: "実行", stage: StageMidstream},
	{label: "検証・評価", stage: StageMidstream},
	{label: "承認・リリース", stage: StageDownstream},
	{label: "改善", stage: StageDownstream},
}

const phasePrefix = "phase_"

// Phases returns phase_1 through phase_7 in order.
func Phases() []Phase {
	out := make([]Phase, 0, NumPhases)
	for p := Phase1; p <= Phase7; p++ {
		out = append(out, p)
	}
	return out
}

// ParsePhase converts "phase_3" into Phase3.
func ParsePhase(s string) (Phase, error) {
	if !strings.HasPrefix(s, phasePrefix) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, phasePrefix))
	if err != nil || !Phase(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	return Phase(n), nil
}

// Valid reports whether p is within phase_1..phase_7.
func (p Phase) Valid() bool {
	return p >= Phase1 && p <= Phase7
}

// Index returns the zero-based position of p.
func (p Phase) Index() int {
	return int(p) - 1
}

// Label returns the default human-readable phase name.
func (p Phase) Label() string {
	if !p.Valid() {
		return ""
	}
	return phaseTemplate[p.Index()].label
}

// Stage returns the coarse stage tag of p.
func (p Phase) Stage() Stage {
	if !p.Valid() {
		return ""
	}
	return phaseTemplate[p.Index()].stage
}

// String returns the identifier form, e.g. "phase_4".
func (p Phase) String() string {
	return phasePrefix + strconv.Itoa(int(p))
}

// MarshalText encodes p as its identifier so phases serialize as
// "phase_N" map keys in YAML and JSON.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPhase, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText parses "phase_N".
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
