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

package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/gdamore/topovisor"
)

type termStyles struct {
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	box   lipgloss.Style
	pid1  lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
	dim   lipgloss.Style
}

func newTermStyles(r *lipgloss.Renderer) termStyles {
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	return termStyles{
		title: r.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Underline(true),
		label: r.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		value: r.NewStyle().Foreground(lipgloss.Color("220")),
		box:   box,
		pid1:  box.BorderForeground(lipgloss.Color("33")),
		good:  r.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		bad:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Badge returns the status marker for a process, e.g. "● RUNNING".
func Badge(p topovisor.ProcessRecord) string {
	if p.Running() {
		return "● " + p.Token
	}
	return "✖ " + p.Token
}

// Terminal renders the snapshot for a terminal.  The renderer decides the
// color profile; with nil, lipgloss' default renderer (stdout) is used.
// Control characters in snapshot text are replaced, so that a hostile
// process name cannot drive the terminal.
func Terminal(snap *topovisor.TopologySnapshot, r *lipgloss.Renderer) string {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	st := newTermStyles(r)

	pid1 := st.pid1.Render(lipgloss.JoinVertical(lipgloss.Left,
		st.label.Render("PID 1")+" supervisor",
		clean(snap.Pid1.CommandLine),
		st.dim.Render(clean(snap.Pid1.Role)),
	))

	var boxes []string
	up := 0
	for _, p := range snap.ManagedProcesses {
		badge := st.bad.Render(Badge(p))
		if p.Running() {
			badge = st.good.Render(Badge(p))
			up++
		}
		lines := []string{st.label.Render(clean(p.Name)), badge}
		if p.Detail != "" {
			lines = append(lines, st.dim.Render(clean(p.Detail)))
		}
		boxes = append(boxes, st.box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	row := st.dim.Render("no managed processes reported")
	if len(boxes) != 0 {
		row = lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
	}

	metric := func(k string, v interface{}) string {
		return st.label.Render(k+":") + " " + st.value.Render(clean(fmt.Sprint(v)))
	}

	parts := []string{
		st.title.Render("Container topology"),
		"",
		pid1,
		"   │",
		"   ▼",
		row,
		fmt.Sprintf("%d of %d managed processes running", up, len(snap.ManagedProcesses)),
		"",
		st.title.Render("Current request"),
		metric("Handler PID", snap.Request.HandlerPid),
		metric("Parent PID", snap.Request.HandlerParentPid),
		metric("Process", snap.Request.ProcessName),
		"",
		st.title.Render("Supervisor status"),
		cleanBlock(snap.RawSupervisorStatus),
		"",
		st.title.Render("Process tree"),
		cleanBlock(snap.RawProcessTree),
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// clean replaces control characters, C0 and C1 alike, with U+FFFD.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '�'
		}
		return r
	}, s)
}

func cleanBlock(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = clean(strings.TrimRight(line, "\r"))
	}
	return strings.Join(lines, "\n")
}
