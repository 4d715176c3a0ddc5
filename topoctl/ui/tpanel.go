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
	"strings"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/gdamore/topovisor/render"
)

// rawLines shows the raw supervisor status and process tree, exactly as
// the server captured them.
func rawLines(doc *render.Document) []string {
	lines := []string{"Supervisor status:", ""}
	for _, l := range strings.Split(strings.TrimRight(doc.RawData.SupervisorStatus, "\n"), "\n") {
		lines = append(lines, "  "+string(printable(l)))
	}
	lines = append(lines, "", "Process tree:", "")
	for _, l := range strings.Split(strings.TrimRight(doc.RawData.ProcessTree, "\n"), "\n") {
		lines = append(lines, string(printable(l)))
	}
	return lines
}

// TreePanel shows the raw data behind the topology.
type TreePanel struct {
	text *views.TextArea
	Panel
}

func NewTreePanel(app *App) *TreePanel {
	p := &TreePanel{}

	p.Panel.Init(app)
	p.SetTitle("Process tree")
	p.SetKeys([]string{"[ESC] Main", "[H] Help", "[L] Log"})

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(StyleNormal)
	p.SetContent(p.text)

	return p
}

func (p *TreePanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *TreePanel) HandleEvent(ev tcell.Event) bool {
	app := p.app
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowMain()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.ShowMain()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'L', 'l':
				app.ShowLog()
				return true
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

// update must be called with AppLock held.
func (p *TreePanel) update() {
	doc, err := p.app.GetReport()
	p.ShowReport(doc, err)
	if doc == nil {
		p.text.SetLines([]string{""})
		return
	}
	p.text.SetLines(rawLines(doc))
}
