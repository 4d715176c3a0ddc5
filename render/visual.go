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
	"bytes"
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"

	"github.com/gdamore/topovisor"
)

// The page is self-contained: styles are inline and nothing is fetched.
// html/template escapes every value taken from the snapshot.
const visualPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Container topology</title>
<style>
body { font-family: sans-serif; background: #f4f5f7; color: #1d2330; margin: 2em; }
h1 { font-size: 1.5em; }
h2 { font-size: 1.1em; margin-top: 2em; }
.diagram { text-align: center; }
.box { display: inline-block; background: #fff; border: 2px solid #5b6475; border-radius: 8px; padding: 0.8em 1.2em; margin: 0.4em; vertical-align: top; min-width: 10em; }
.pid1 { border-color: #2f5fb3; }
.arrow { font-size: 1.5em; color: #5b6475; }
.badge { display: inline-block; border-radius: 4px; padding: 0.1em 0.5em; color: #fff; font-size: 0.8em; font-weight: bold; }
.badge.running { background: #1f9d55; }
.badge.down { background: #cc1f1a; }
.detail { color: #5b6475; font-size: 0.85em; }
.metrics td { padding: 0.2em 1em 0.2em 0; }
pre { background: #1d2330; color: #e8eaee; padding: 1em; overflow-x: auto; font-family: monospace; }
</style>
</head>
<body>
<h1>Container topology</h1>
<p>{{ .Description }}</p>

<div class="diagram">
  <div class="box pid1">
    <strong>PID 1</strong> &middot; supervisor<br>
    <code>{{ .Pid1.CommandLine }}</code><br>
    <span class="detail">{{ .Pid1.Role | default "unknown" }}</span>
  </div>
  <div class="arrow">&darr;</div>
  <div class="row">
{{- range .ManagedProcesses }}
    <div class="box">
      <strong>{{ .Name }}</strong><br>
      <span class="badge {{ if .Running }}running{{ else }}down{{ end }}">{{ .Token | upper }}</span><br>
      <span class="detail">{{ .Detail }}</span>
    </div>
{{- else }}
    <div class="box"><span class="detail">No managed processes reported</span></div>
{{- end }}
  </div>
</div>

<p>{{ .Up }} of {{ len .ManagedProcesses }} managed processes running.</p>

<h2>Current request</h2>
<table class="metrics">
  <tr><td>Handler PID</td><td>{{ .Request.HandlerPid }}</td></tr>
  <tr><td>Parent PID</td><td>{{ .Request.HandlerParentPid }}</td></tr>
  <tr><td>Process</td><td>{{ .Request.ProcessName | default "unknown" }}</td></tr>
</table>

<h2>Supervisor status</h2>
<pre>{{ .RawSupervisorStatus }}</pre>

<h2>Process tree</h2>
<pre>{{ .RawProcessTree }}</pre>
</body>
</html>
`

var visualTemplate = template.Must(template.New("visual").
	Funcs(sprig.HtmlFuncMap()).
	Parse(visualPage))

type visualView struct {
	*topovisor.TopologySnapshot
	Description string
	Up          int
}

// Visual writes the snapshot as a standalone HTML page: PID 1 above a
// row of managed processes with a green or red badge each, the identity
// of the handling process, and the raw process tree.
func Visual(w io.Writer, snap *topovisor.TopologySnapshot) error {
	v := visualView{TopologySnapshot: snap, Description: Description}
	for _, p := range snap.ManagedProcesses {
		if p.Running() {
			v.Up++
		}
	}
	return visualTemplate.Execute(w, v)
}

// VisualString is Visual, returning the page as a string.
func VisualString(snap *topovisor.TopologySnapshot) (string, error) {
	var buf bytes.Buffer
	if e := Visual(&buf, snap); e != nil {
		return "", e
	}
	return buf.String(), nil
}
