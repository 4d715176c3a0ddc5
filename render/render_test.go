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
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/net/html"

	"github.com/gdamore/topovisor"
)

func testSnapshot() *topovisor.TopologySnapshot {
	return topovisor.Assemble(
		topovisor.Fetched{Text: "USER PID COMMAND\nroot 1 supervisord -n\nroot 17  \\_ topovisord\n"},
		topovisor.Fetched{Text: "/usr/bin/supervisord -n"},
		topovisor.Fetched{Text: "app RUNNING pid 17, uptime 0:05:00\nworker FATAL Exited too quickly\n"},
		topovisor.RequestContext{HandlerPid: 17, HandlerParentPid: 1, ProcessName: "topovisord"},
	)
}

func asciiRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return r
}

func TestStructured(t *testing.T) {
	Convey("The structured document mirrors the snapshot", t, func() {
		snap := testSnapshot()
		doc := Structured(snap)

		So(doc.Status, ShouldEqual, "ok")
		So(doc.Architecture.Description, ShouldEqual, Description)
		So(doc.Architecture.Pid1, ShouldResemble, Pid1{
			Process: "supervisor",
			Command: "/usr/bin/supervisord -n",
			Role:    "process manager (supervisord)",
		})
		So(doc.Architecture.ManagedProcesses, ShouldResemble, []ProcessDoc{
			{Name: "app", Status: "RUNNING", State: "RUNNING", Details: "pid 17, uptime 0:05:00"},
			{Name: "worker", Status: "STOPPED", State: "FATAL", Details: "Exited too quickly"},
		})
		So(doc.CurrentRequest, ShouldResemble, CurrentRequest{
			HandlerPid: 17, ParentPid: 1, ProcessName: "topovisord",
		})
		So(doc.RawData.ProcessTree, ShouldEqual, snap.RawProcessTree)
		So(doc.RawData.SupervisorStatus, ShouldEqual, snap.RawSupervisorStatus)

		Convey("And survives JSON and conversion back", func() {
			b, e := json.Marshal(doc)
			So(e, ShouldBeNil)
			back := &Document{}
			So(json.Unmarshal(b, back), ShouldBeNil)
			So(back.Snapshot(), ShouldResemble, snap)
		})

		Convey("Uses the documented keys", func() {
			b, _ := json.Marshal(doc)
			m := map[string]interface{}{}
			So(json.Unmarshal(b, &m), ShouldBeNil)
			arch := m["architecture"].(map[string]interface{})
			So(arch["pid_1"], ShouldNotBeNil)
			So(arch["managed_processes"], ShouldNotBeNil)
			req := m["current_request"].(map[string]interface{})
			So(req["handler_pid"], ShouldEqual, float64(17))
			So(req["parent_pid"], ShouldEqual, float64(1))
			raw := m["raw_data"].(map[string]interface{})
			So(raw["process_tree"], ShouldEqual, snap.RawProcessTree)
		})

		Convey("An empty process list is an empty array", func() {
			snap.ManagedProcesses = []topovisor.ProcessRecord{}
			b, _ := json.Marshal(Structured(snap))
			So(string(b), ShouldContainSubstring, `"managed_processes":[]`)
		})
	})
}

func TestFailure(t *testing.T) {
	Convey("The error document carries our identity", t, func() {
		doc := Failure(topovisor.ErrAssembly, topovisor.RequestContext{HandlerPid: 5, HandlerParentPid: 1})
		b, e := json.Marshal(doc)
		So(e, ShouldBeNil)
		So(string(b), ShouldEqual,
			`{"error":"Unable to assemble topology","current_process":{"pid":5,"ppid":1}}`)
	})
}

// textOf returns all the text content of an HTML page, and whether any
// element with the given tag name occurs in it.
func textOf(page string, tag string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(page))
	var sb strings.Builder
	found := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String(), found
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == tag {
				found = true
			}
		}
	}
}

func TestVisual(t *testing.T) {
	Convey("The visual report", t, func() {
		snap := testSnapshot()
		page, e := VisualString(snap)
		So(e, ShouldBeNil)

		Convey("Shows every process with a status badge", func() {
			So(page, ShouldContainSubstring, `<span class="badge running">RUNNING</span>`)
			So(page, ShouldContainSubstring, `<span class="badge down">FATAL</span>`)
			So(page, ShouldContainSubstring, "<strong>app</strong>")
			So(page, ShouldContainSubstring, "<strong>worker</strong>")
			So(page, ShouldContainSubstring, "1 of 2 managed processes running")
		})

		Convey("Shows the current request and the raw tree", func() {
			text, _ := textOf(page, "pre")
			So(text, ShouldContainSubstring, "Handler PID")
			So(text, ShouldContainSubstring, "17")
			So(text, ShouldContainSubstring, snap.RawProcessTree)
		})

		Convey("Is deterministic", func() {
			again, e := VisualString(snap)
			So(e, ShouldBeNil)
			So(again, ShouldEqual, page)
		})

		Convey("Escapes hostile text", func() {
			snap.ManagedProcesses[0].Name = "<script>alert(1)</script>"
			snap.ManagedProcesses[1].Detail = `"><img src=x onerror=alert(2)>`
			snap.RawProcessTree = "</pre><script>alert(3)</script>"
			snap.Pid1.CommandLine = "<b>init</b> & friends"
			page, e := VisualString(snap)
			So(e, ShouldBeNil)
			So(page, ShouldNotContainSubstring, "<script>")
			So(page, ShouldNotContainSubstring, "<img")
			So(page, ShouldNotContainSubstring, "<b>init")

			text, sawScript := textOf(page, "script")
			So(sawScript, ShouldBeFalse)
			_, sawImg := textOf(page, "img")
			So(sawImg, ShouldBeFalse)
			// The text is still shown, just inert.
			So(text, ShouldContainSubstring, "<script>alert(1)</script>")
			So(text, ShouldContainSubstring, "<b>init</b> & friends")
		})

		Convey("Copes with no processes at all", func() {
			snap.ManagedProcesses = nil
			page, e := VisualString(snap)
			So(e, ShouldBeNil)
			So(page, ShouldContainSubstring, "No managed processes reported")
		})
	})
}

func TestTerminal(t *testing.T) {
	Convey("The terminal report", t, func() {
		snap := testSnapshot()
		r := asciiRenderer()
		out := Terminal(snap, r)

		So(out, ShouldContainSubstring, "PID 1")
		So(out, ShouldContainSubstring, "/usr/bin/supervisord -n")
		So(out, ShouldContainSubstring, "● RUNNING")
		So(out, ShouldContainSubstring, "✖ FATAL")
		So(out, ShouldContainSubstring, "Exited too quickly")
		So(out, ShouldContainSubstring, "Handler PID: 17")
		So(out, ShouldContainSubstring, "Parent PID: 1")
		So(out, ShouldContainSubstring, "1 of 2 managed processes running")
		So(out, ShouldContainSubstring, `\_ topovisord`)

		Convey("Is deterministic", func() {
			So(Terminal(snap, r), ShouldEqual, out)
		})

		Convey("Neutralizes escape sequences", func() {
			snap.ManagedProcesses[0].Name = "evil\x1b]0;pwned\x07"
			out := Terminal(snap, r)
			So(out, ShouldNotContainSubstring, "\x1b]0;")
			So(out, ShouldContainSubstring, "evil�]0;pwned�")
		})

		Convey("Neutralizes 8-bit control sequences", func() {
			snap.ManagedProcesses[0].Name = "evil\u009b2J"
			out := Terminal(snap, r)
			So(out, ShouldNotContainSubstring, "\u009b")
			So(out, ShouldContainSubstring, "evil�2J")
		})
	})
}
