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
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/gdamore/topovisor"
	"github.com/gdamore/topovisor/render"
	"github.com/gdamore/topovisor/rest"
	"github.com/gdamore/topovisor/topoctl/util"
)

func testDocument() *render.Document {
	return render.Structured(topovisor.Assemble(
		topovisor.Fetched{Text: "USER PID COMMAND\nroot 1 supervisord -n\n"},
		topovisor.Fetched{Text: "/usr/bin/supervisord -n"},
		topovisor.Fetched{Text: "web RUNNING pid 9, uptime 1:00:00\n" +
			"cron BACKOFF Exited too quickly\n" +
			"worker FATAL can't find command\n"},
		topovisor.RequestContext{HandlerPid: 9, HandlerParentPid: 1, ProcessName: "topovisord"},
	))
}

func texts(lines []line) []string {
	s := make([]string, 0, len(lines))
	for _, l := range lines {
		s = append(s, string(l.text))
	}
	return s
}

func TestTopologyLines(t *testing.T) {
	Convey("Given a report", t, func() {
		doc := testDocument()

		Convey("Processes keep the supervisor's order", func() {
			s := texts(topologyLines(doc, false))
			So(s[5], ShouldStartWith, "       web")
			So(s[6], ShouldStartWith, "       cron")
			So(s[7], ShouldStartWith, "       worker")
		})

		Convey("PID 1 comes first, then the processes, trouble first", func() {
			lines := topologyLines(doc, true)
			s := texts(lines)
			So(s[0], ShouldEqual, "PID 1  supervisor  (process manager (supervisord))")
			So(s[1], ShouldEqual, "       /usr/bin/supervisord -n")
			So(s[5], ShouldStartWith, "       worker")
			So(s[6], ShouldStartWith, "       cron")
			So(s[7], ShouldStartWith, "       web")
			So(s[len(s)-1], ShouldEqual,
				"Reported by topovisord: handler PID 9, parent PID 1")

			Convey("And colors reflect the state", func() {
				So(lines[5].style, ShouldResemble, StyleError)
				So(lines[6].style, ShouldResemble, StyleWarn)
				So(lines[7].style, ShouldResemble, StyleGood)
			})
		})

		Convey("The report itself is not reordered", func() {
			topologyLines(doc, true)
			So(doc.Architecture.ManagedProcesses[0].Name, ShouldEqual, "web")
		})

		Convey("Without processes we say so", func() {
			doc.Architecture.ManagedProcesses = nil
			So(texts(topologyLines(doc, false)), ShouldContain,
				"       No managed processes reported")
		})

		Convey("Control characters are neutralized", func() {
			doc.Architecture.ManagedProcesses[0].Name = "bad\x1b[2J"
			for _, s := range texts(topologyLines(doc, false)) {
				So(s, ShouldNotContainSubstring, "\x1b")
			}
		})

		Convey("So are 8-bit control characters", func() {
			doc.Architecture.ManagedProcesses[0].Name = "bad\u009b2J"
			s := texts(topologyLines(doc, false))
			So(s[5], ShouldNotContainSubstring, "\u009b")
			So(s[5], ShouldStartWith, "       bad?2J")
		})

		Convey("The raw view carries the raw data", func() {
			s := rawLines(doc)
			So(s, ShouldContain, "  web RUNNING pid 9, uptime 1:00:00")
			So(s, ShouldContain, "root 1 supervisord -n")
		})
	})
}

func TestLogLines(t *testing.T) {
	Convey("Log records are one line each", t, func() {
		when := time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.UTC)
		s := logLines([]topovisor.LogRecord{
			{Id: 1, Time: when, Text: "Worker iteration 1 - Processing tasks..."},
		})
		So(s, ShouldResemble, []string{
			"Jan  2 03:04:05.006 Worker iteration 1 - Processing tasks...",
		})
	})
}

func TestDescribeError(t *testing.T) {
	Convey("Errors are described for the status bar", t, func() {
		re := &rest.ReportError{Code: 500}
		re.Doc.Error = "Unable to assemble topology"
		re.Doc.CurrentProcess.Pid = 42
		So(describeError(fmt.Errorf("fetch: %w", re)), ShouldEqual,
			"Report failed on server (pid 42): Unable to assemble topology")

		So(describeError(&rest.Error{Code: 401, Message: "Unauthorized"}),
			ShouldEqual, "Not authorized: check the user and password")

		So(describeError(errors.New("connection refused")), ShouldEqual,
			"Cannot load report: connection refused")
	})
}

func TestReportStatus(t *testing.T) {
	Convey("Given a report", t, func() {
		doc := testDocument()
		now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		updated := now.Add(-90*time.Second - 300*time.Millisecond)

		Convey("Counts are shown, colored by the worst state", func() {
			text, h := reportStatus(doc, nil, updated, now)
			So(text, ShouldEqual,
				"     3 Processes      1 Running      1 Stopped      1 Other")
			So(h, ShouldEqual, healthBad)
		})

		Convey("Stale data says how old it is", func() {
			text, h := reportStatus(doc, errors.New("timeout"), updated, now)
			So(text, ShouldEqual,
				"Cannot load report: timeout (showing data from 1m30s ago)")
			So(h, ShouldEqual, healthBad)
		})

		Convey("Without a report we are loading, or failing", func() {
			text, h := reportStatus(nil, nil, time.Time{}, now)
			So(text, ShouldEqual, "Loading ...")
			So(h, ShouldEqual, healthUnknown)

			text, h = reportStatus(nil, errors.New("refused"), time.Time{}, now)
			So(text, ShouldEqual, "Cannot load report: refused")
			So(h, ShouldEqual, healthBad)
		})
	})

	Convey("Health follows the worst state", t, func() {
		So(topologyHealth(util.Counts{Total: 2, Running: 2}), ShouldEqual, healthGood)
		So(topologyHealth(util.Counts{Total: 2, Running: 1, Other: 1}), ShouldEqual, healthWarn)
		So(topologyHealth(util.Counts{Total: 2, Other: 1, Stopped: 1}), ShouldEqual, healthBad)
		So(topologyHealth(util.Counts{}), ShouldEqual, healthUnknown)
	})
}

func TestTitleText(t *testing.T) {
	Convey("The title bar text", t, func() {
		So(updatedText(time.Time{}), ShouldEqual, "not updated yet")
		So(updatedText(time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)),
			ShouldEqual, "updated 03:04:05")
		So(escapeMarkup("100% up"), ShouldEqual, "100%% up")
	})
}

func TestKeyMarkup(t *testing.T) {
	Convey("Bracketed keys are highlighted", t, func() {
		So(keyMarkup([]string{"[Q] Quit", "[H] Help"}), ShouldEqual,
			"[%AQ%N] Quit [%AH%N] Help")
		So(keyMarkup([]string{"100%"}), ShouldEqual, "100%%")
	})
}
