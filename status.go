// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package topovisor

import (
	"strings"
)

// State is the normalized run state of a managed process.
type State int

const (
	StateOther State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	}
	return "OTHER"
}

// ParseState maps a normalized state name (as returned by String) back
// to a State.  Unknown names yield StateOther.
func ParseState(name string) State {
	switch name {
	case "RUNNING":
		return StateRunning
	case "STOPPED":
		return StateStopped
	}
	return StateOther
}

// stateTokens lists the supervisor state tokens we recognize.  Matching
// is case-sensitive.  Anything absent here (STARTING, BACKOFF, STOPPING,
// UNKNOWN, or states added by future supervisor releases) is StateOther,
// so that we never report an unfamiliar state as healthy.
var stateTokens = map[string]State{
	"RUNNING": StateRunning,
	"STOPPED": StateStopped,
	"EXITED":  StateStopped,
	"FATAL":   StateStopped,
}

// StateFromToken normalizes a supervisor state token.
func StateFromToken(tok string) State {
	if s, ok := stateTokens[tok]; ok {
		return s
	}
	return StateOther
}

// ProcessRecord is one managed process as reported by the supervisor.
type ProcessRecord struct {
	Name   string
	State  State
	Token  string // state token exactly as the supervisor printed it
	Detail string
}

// Running is true if the supervisor reports the process as RUNNING.
func (r ProcessRecord) Running() bool {
	return r.State == StateRunning
}

// ParseStatus turns supervisorctl status output into process records,
// in the order they were reported.  It never fails; lines that are blank
// or have fewer than two fields are skipped.  Duplicate names are kept.
func ParseStatus(raw string) []ProcessRecord {
	recs, _ := ParseStatusCounts(raw)
	return recs
}

// ParseStatusCounts is ParseStatus, but also returns the number of input
// lines that were discarded, blank ones included.  A newline ends a line,
// so empty input has no lines and a trailing newline adds none.
func ParseStatusCounts(raw string) ([]ProcessRecord, int) {
	recs := []ProcessRecord{}
	dropped := 0
	for _, line := range statusLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			dropped++
			continue
		}
		recs = append(recs, ProcessRecord{
			Name:   fields[0],
			State:  StateFromToken(fields[1]),
			Token:  fields[1],
			Detail: strings.Join(fields[2:], " "),
		})
	}
	return recs, dropped
}

func statusLines(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(raw, "\n"), "\n")
}
