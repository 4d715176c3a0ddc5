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

package ui

import (
	"errors"
	"fmt"
	"net/http"
	"unicode"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/gdamore/topovisor"
	"github.com/gdamore/topovisor/render"
	"github.com/gdamore/topovisor/rest"
	"github.com/gdamore/topovisor/topoctl/util"
)

var (
	StyleNormal = tcell.StyleDefault.
			Foreground(tcell.ColorSilver).
			Background(tcell.ColorBlack)
	StyleTitle = StyleNormal.Bold(true)
	StyleDim   = tcell.StyleDefault.
			Foreground(tcell.ColorGray).
			Background(tcell.ColorBlack)
	StyleGood = tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack)
	StyleWarn = tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Background(tcell.ColorBlack)
	StyleError = tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Background(tcell.ColorBlack)
)

// printable replaces control characters, which would otherwise end up
// on the terminal verbatim.
func printable(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		if unicode.IsControl(c) {
			r[i] = '?'
		}
	}
	return r
}

type line struct {
	text  []rune
	style tcell.Style
}

func newLine(style tcell.Style, format string, v ...interface{}) line {
	return line{text: printable(fmt.Sprintf(format, v...)), style: style}
}

func processStyle(p render.ProcessDoc) tcell.Style {
	switch topovisor.ParseState(p.Status) {
	case topovisor.StateRunning:
		return StyleGood
	case topovisor.StateStopped:
		return StyleError
	}
	return StyleWarn
}

// topologyLines lays out a report: PID 1 at the top, the managed
// processes below it, and the identity of the reporting process last.
// Processes keep the supervisor's order unless byState is set, in which
// case the ones needing attention come first.
func topologyLines(doc *render.Document, byState bool) []line {
	arch := doc.Architecture
	lines := []line{
		newLine(StyleTitle, "PID 1  %s  (%s)", arch.Pid1.Process, arch.Pid1.Role),
		newLine(StyleNormal, "       %s", arch.Pid1.Command),
		newLine(StyleDim, "         │"),
		newLine(StyleDim, "         ▼"),
	}

	procs := arch.ManagedProcesses
	if byState {
		procs = append([]render.ProcessDoc(nil), procs...)
		util.SortProcesses(procs)
	}
	if len(procs) == 0 {
		lines = append(lines, newLine(StyleDim, "       No managed processes reported"))
	} else {
		lines = append(lines, newLine(StyleTitle, "       %-20s %-10s %s", "NAME", "STATE", "DETAILS"))
	}
	for _, p := range procs {
		lines = append(lines, newLine(processStyle(p),
			"       %-20s %-10s %s", p.Name, p.State, p.Details))
	}

	req := doc.CurrentRequest
	lines = append(lines,
		newLine(StyleNormal, ""),
		newLine(StyleDim, "Reported by %s: handler PID %d, parent PID %d",
			req.ProcessName, req.HandlerPid, req.ParentPid),
	)
	return lines
}

// describeError turns a fetch failure into a status line.
func describeError(err error) string {
	var re *rest.ReportError
	var he *rest.Error
	switch {
	case errors.As(err, &re):
		return fmt.Sprintf("Report failed on server (pid %d): %s",
			re.Doc.CurrentProcess.Pid, re.Doc.Error)
	case errors.As(err, &he) && he.Code == http.StatusUnauthorized:
		return "Not authorized: check the user and password"
	}
	return fmt.Sprintf("Cannot load report: %v", err)
}

// MainPanel shows the topology, using data loaded from the topovisord
// REST API.
type MainPanel struct {
	content *views.CellView
	lines   []line
	byState bool
	Panel
}

// mainModel provides the model for a CellView.
type mainModel struct {
	m *MainPanel
}

func NewMainPanel(app *App) *MainPanel {
	m := &MainPanel{}

	m.Panel.Init(app)
	m.content = views.NewCellView()
	m.SetContent(m.content)

	m.content.SetModel(&mainModel{m})
	m.content.SetStyle(StyleNormal)

	m.SetTitle("Topology")
	m.SetKeys([]string{"[Q] Quit", "[H] Help", "[L] Log", "[T] Tree", "[S] Sort"})

	return m
}

// ToggleOrder switches between the supervisor's order and ordering
// by state.
func (m *MainPanel) ToggleOrder() {
	m.byState = !m.byState
	if m.byState {
		m.SetTitle("Topology (by state)")
	} else {
		m.SetTitle("Topology")
	}
}

func (m *MainPanel) Draw() {
	m.update()
	m.Panel.Draw()
}

func (m *MainPanel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyF1:
			m.App().ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				m.App().Quit()
				return true
			case 'H', 'h':
				m.App().ShowHelp()
				return true
			case 'L', 'l':
				m.App().ShowLog()
				return true
			case 'T', 't':
				m.App().ShowTree()
				return true
			case 'S', 's':
				m.ToggleOrder()
				m.App().Refresh()
				return true
			}
		}
	}
	return m.Panel.HandleEvent(ev)
}

// Model items
func (model *mainModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	m := model.m

	if y < 0 || y >= len(m.lines) {
		return ' ', StyleNormal, nil, 1
	}
	l := m.lines[y]
	if x >= 0 && x < len(l.text) {
		return l.text[x], l.style, nil, 1
	}
	return ' ', l.style, nil, 1
}

func (model *mainModel) GetBounds() (int, int) {
	// This assumes that all content is displayable runes of width 1.
	m := model.m
	x := 0
	for _, l := range m.lines {
		if x < len(l.text) {
			x = len(l.text)
		}
	}
	return x, len(m.lines)
}

// There is no cursor; the arrow keys scroll the view instead.
func (model *mainModel) GetCursor() (int, int, bool, bool) {
	return 0, 0, false, false
}

func (model *mainModel) MoveCursor(offx, offy int) {}

func (model *mainModel) SetCursor(x, y int) {}

// update is called to update content, e.g. in response to Draw() or
// as part of another update.  It is called with the AppLock held.
func (m *MainPanel) update() {
	doc, err := m.App().GetReport()
	m.ShowReport(doc, err)
	if doc == nil {
		m.lines = nil
		return
	}
	m.lines = topologyLines(doc, m.byState)
}
