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
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/views"

	"github.com/gdamore/topovisor/render"
	"github.com/gdamore/topovisor/topoctl/util"
)

// health is the condition of the topology, as the status bar color
// shows it.
type health int

const (
	healthUnknown health = iota
	healthGood
	healthWarn
	healthBad
)

// topologyHealth is bad when any managed process is stopped, and a
// warning when any is neither stopped nor running.
func topologyHealth(c util.Counts) health {
	switch {
	case c.Stopped > 0:
		return healthBad
	case c.Other > 0:
		return healthWarn
	case c.Running > 0:
		return healthGood
	}
	return healthUnknown
}

// reportStatus describes the latest report for the status bar.  When
// the last fetch failed but an older report is still shown, the text
// says how old it is.
func reportStatus(doc *render.Document, err error, updated, now time.Time) (string, health) {
	switch {
	case doc == nil && err != nil:
		return describeError(err), healthBad
	case doc == nil:
		return "Loading ...", healthUnknown
	case err != nil:
		age := now.Sub(updated)
		age -= age % time.Second
		return fmt.Sprintf("%s (showing data from %v ago)",
			describeError(err), age), healthBad
	}
	c := util.Count(doc.Architecture.ManagedProcesses)
	return fmt.Sprintf("%6d Processes %6d Running %6d Stopped %6d Other",
		c.Total, c.Running, c.Stopped, c.Other), topologyHealth(c)
}

// Panel is a views.Panel with the bars topoctl uses: the title bar on
// top, the status bar under it, and the key bar at the bottom.
type Panel struct {
	tb   *TitleBar
	sb   *StatusBar
	kb   *KeyBar
	once sync.Once
	app  *App

	views.Panel
}

// SetTitle names the view shown by the panel.
func (p *Panel) SetTitle(view string) {
	p.tb.SetViewName(view)
}

func (p *Panel) SetKeys(words []string) {
	p.kb.SetKeys(words)
}

func (p *Panel) SetStatus(status string) {
	p.sb.SetText(status)
}

func (p *Panel) SetNormal() {
	p.sb.SetNormal()
}

func (p *Panel) SetError() {
	p.sb.SetError()
}

func (p *Panel) setHealth(h health) {
	switch h {
	case healthGood:
		p.sb.SetGood()
	case healthWarn:
		p.sb.SetWarn()
	case healthBad:
		p.sb.SetError()
	default:
		p.sb.SetNormal()
	}
}

// ShowReport puts the state of the latest report in the status bar.
func (p *Panel) ShowReport(doc *render.Document, err error) {
	text, h := reportStatus(doc, err, p.app.Updated(), time.Now())
	p.SetStatus(text)
	p.setHealth(h)
}

func (p *Panel) Draw() {
	p.tb.SetUpdated(p.app.Updated())
	p.Panel.Draw()
}

func (p *Panel) Init(app *App) {
	p.once.Do(func() {
		p.app = app

		p.tb = NewTitleBar()
		p.tb.SetServer(app.Server())
		p.tb.SetViewName(" ")

		p.kb = NewKeyBar()

		p.sb = NewStatusBar()

		p.Panel.SetTitle(p.tb)
		p.Panel.SetMenu(p.sb)
		p.Panel.SetStatus(p.kb)
	})
}

func (p *Panel) App() *App {
	return p.app
}
