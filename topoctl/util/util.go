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

// Package util is used for internal implementation bits in the CLI/UI.
package util

import (
	"sort"
	"strings"

	"github.com/gdamore/topovisor"
	"github.com/gdamore/topovisor/render"
)

// Counts tallies managed processes by normalized state.
type Counts struct {
	Total   int
	Running int
	Stopped int
	Other   int
}

func Count(procs []render.ProcessDoc) Counts {
	c := Counts{Total: len(procs)}
	for _, p := range procs {
		switch topovisor.ParseState(p.Status) {
		case topovisor.StateRunning:
			c.Running++
		case topovisor.StateStopped:
			c.Stopped++
		default:
			c.Other++
		}
	}
	return c
}

func rank(p render.ProcessDoc) int {
	switch topovisor.ParseState(p.Status) {
	case topovisor.StateStopped:
		return 0
	case topovisor.StateOther:
		return 1
	}
	return 2
}

type sorted []render.ProcessDoc

func (s sorted) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s sorted) Len() int {
	return len(s)
}

func (s sorted) Less(i, j int) bool {
	a := s[i]
	b := s[j]

	// stopped processes first, then ones in transition
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra < rb
	}
	return a.Name < b.Name
}

// SortProcesses orders processes for display, the ones needing
// attention first.  The slice is sorted in place.
func SortProcesses(items []render.ProcessDoc) {
	sort.Stable(sorted(items))
}

// SplitAuth splits a "user:pass" string.
func SplitAuth(auth string) (string, string, bool) {
	a := strings.SplitN(auth, ":", 2)
	if len(a) != 2 || a[0] == "" {
		return "", "", false
	}
	return a[0], a[1], true
}
