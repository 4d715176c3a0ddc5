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

// Package ui implements the live terminal view of topoctl.
package ui

import (
	"context"
	"log"
	"time"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/gdamore/topovisor"
	"github.com/gdamore/topovisor/render"
	"github.com/gdamore/topovisor/rest"
)

const DefaultInterval = 2 * time.Second

// Client is the part of *rest.Client the UI needs.
type Client interface {
	Report(ctx context.Context) (*render.Document, error)
	Log(ctx context.Context, last *rest.LogInfo) (*rest.LogInfo, error)
}

type App struct {
	app      *views.Application
	view     views.View
	panel    views.Widget
	help     *HelpPanel
	log      *LogPanel
	tree     *TreePanel
	main     *MainPanel
	client   Client
	server   string
	logger   *log.Logger
	interval time.Duration

	// Written only from PostFunc callbacks, so that readers running
	// under the application lock see consistent values.
	doc     *render.Document
	err     error
	updated time.Time
	logInfo *rest.LogInfo
	logErr  error

	views.WidgetWatchers
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

func (a *App) ShowLog() {
	a.show(a.log)
}

func (a *App) ShowTree() {
	a.show(a.tree)
}

func (a *App) ShowMain() {
	a.show(a.main)
}

func (a *App) Quit() {
	/* This just posts the quit event. */
	a.app.Quit()
}

func (a *App) SetLogger(logger *log.Logger) {
	a.logger = logger
}

func (a *App) Logf(fmt string, v ...interface{}) {
	if a.logger != nil {
		a.logger.Printf(fmt, v...)
	}
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		// Intercept a few control keys up front, for global handling.
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

// Server is the address of the topovisord being watched.
func (a *App) Server() string {
	return a.server
}

func (a *App) Refresh() {
	a.app.Update()
}

// GetReport returns the most recent report, and the error from the
// most recent attempt to fetch one.  The report may be stale when the
// error is not nil.
func (a *App) GetReport() (*render.Document, error) {
	return a.doc, a.err
}

func (a *App) GetLog() (*rest.LogInfo, error) {
	return a.logInfo, a.logErr
}

// Updated is when the report was last fetched successfully.
func (a *App) Updated() time.Time {
	return a.updated
}

// refresh keeps the report current until ctx is done.
func (a *App) refresh(ctx context.Context) {
	for {
		rctx, cancel := context.WithTimeout(ctx, a.interval)
		doc, e := a.client.Report(rctx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if e != nil {
			a.Logf("report: %v", e)
		}
		a.app.PostFunc(func() {
			a.err = e
			if doc != nil {
				a.doc = doc
				a.updated = time.Now()
			}
			a.app.Update()
		})
		if topovisor.Sleep(ctx, a.interval) != nil {
			return
		}
	}
}

// refreshLog keeps the task log current until ctx is done.  Unchanged
// logs are not transferred again.
func (a *App) refreshLog(ctx context.Context) {
	var last *rest.LogInfo
	for {
		rctx, cancel := context.WithTimeout(ctx, a.interval)
		info, e := a.client.Log(rctx, last)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if e == nil && info != last {
			last = info
			a.app.PostFunc(func() {
				a.logInfo = info
				a.logErr = nil
				a.app.Update()
			})
		} else if e != nil {
			a.app.PostFunc(func() {
				a.logErr = e
				a.app.Update()
			})
		}
		if topovisor.Sleep(ctx, a.interval) != nil {
			return
		}
	}
}

// Run shows the UI until the user quits.
func (a *App) Run() error {
	a.Logf("Starting up user interface")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.app.SetRootWidget(a)
	a.ShowMain()
	go a.refresh(ctx)
	go a.refreshLog(ctx)
	a.Logf("Starting app loop")
	return a.app.Run()
}

// NewApp creates the UI.  The server is only used for the title.  A
// non-positive interval selects DefaultInterval.
func NewApp(client Client, server string, interval time.Duration) *App {
	if interval <= 0 {
		interval = DefaultInterval
	}
	app := &App{
		app:      &views.Application{},
		client:   client,
		server:   server,
		interval: interval,
	}
	app.help = NewHelpPanel(app)
	app.log = NewLogPanel(app)
	app.tree = NewTreePanel(app)
	app.main = NewMainPanel(app)
	app.panel = app.main
	return app
}
