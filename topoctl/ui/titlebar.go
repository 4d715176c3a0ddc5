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
	"sync"
	"time"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"
)

// TitleBar names the server being watched on the left, the current
// view in the center, and the time of the last good report on the right.
type TitleBar struct {
	once    sync.Once
	updated time.Time
	views.SimpleStyledTextBar
}

func (tb *TitleBar) Init() {
	tb.once.Do(func() {
		normal := tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorSilver)
		alternate := tcell.StyleDefault.
			Foreground(tcell.ColorNavy).
			Background(tcell.ColorSilver).
			Bold(true)

		tb.SimpleStyledTextBar.Init()
		tb.SimpleStyledTextBar.SetStyle(normal)
		tb.RegisterLeftStyle('N', normal)
		tb.RegisterCenterStyle('A', alternate)
		tb.RegisterRightStyle('N', normal)
		tb.SetRight(updatedText(time.Time{}))
	})
}

// escapeMarkup doubles any %, which the text bars take as markup.
func escapeMarkup(s string) string {
	return strings.Replace(s, "%", "%%", -1)
}

// updatedText describes when the report shown was fetched.
func updatedText(t time.Time) string {
	if t.IsZero() {
		return "not updated yet"
	}
	return "updated " + t.Format("15:04:05")
}

func (tb *TitleBar) SetServer(server string) {
	tb.SetLeft(escapeMarkup(server))
}

func (tb *TitleBar) SetViewName(name string) {
	tb.SetCenter("%A" + escapeMarkup(name))
}

func (tb *TitleBar) SetUpdated(t time.Time) {
	if t.Equal(tb.updated) {
		return
	}
	tb.updated = t
	tb.SetRight(updatedText(t))
}

func NewTitleBar() *TitleBar {
	tb := &TitleBar{}
	tb.Init()
	return tb
}
