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

package topovisor

import (
	"path/filepath"
	"strings"
)

// RequestContext identifies the process handling one report request.
type RequestContext struct {
	HandlerPid       int
	HandlerParentPid int
	ProcessName      string
}

// Pid1Info describes the init process of the container.  CommandLine
// holds an error description if it could not be retrieved.
type Pid1Info struct {
	CommandLine string
	Role        string
}

// TopologySnapshot is a point-in-time view of the container.  It is
// never modified once Assemble returns it.
type TopologySnapshot struct {
	Pid1                Pid1Info
	ManagedProcesses    []ProcessRecord
	Request             RequestContext
	RawProcessTree      string
	RawSupervisorStatus string
}

// Fetched is the outcome of one raw data query.
type Fetched struct {
	Text string
	Err  error
}

// Failed reports whether the query failed.
func (f Fetched) Failed() bool {
	return f.Err != nil
}

// Assemble builds a snapshot from the results of the three raw queries
// and the identity of the calling process.  A failed query is recorded
// as an error string in its field; it never prevents the others from
// being reported.
func Assemble(tree, pid1, status Fetched, id RequestContext) *TopologySnapshot {
	snap := &TopologySnapshot{
		Request:          id,
		ManagedProcesses: []ProcessRecord{},
	}

	if tree.Failed() {
		snap.RawProcessTree = "Error getting process tree: " + tree.Err.Error()
	} else {
		snap.RawProcessTree = tree.Text
	}

	if pid1.Failed() {
		snap.Pid1.CommandLine = "Error: " + pid1.Err.Error()
		snap.Pid1.Role = RoleUnknown
	} else {
		snap.Pid1.CommandLine = strings.TrimSpace(pid1.Text)
		snap.Pid1.Role = Role(snap.Pid1.CommandLine)
	}

	if status.Failed() {
		snap.RawSupervisorStatus = "Error getting supervisor status: " +
			status.Err.Error()
	} else {
		snap.RawSupervisorStatus = status.Text
		snap.ManagedProcesses = ParseStatus(status.Text)
	}
	return snap
}

const (
	RoleUnknown = "unknown"
	roleInit    = "init process"
)

// knownSupervisors maps executable names to the supervisor they belong to.
var knownSupervisors = map[string]string{
	"supervisord":  "supervisord",
	"s6-svscan":    "s6",
	"s6-supervise": "s6",
	"runsvdir":     "runit",
	"runsv":        "runit",
	"circusd":      "circus",
	"pm2":          "pm2",
	"tini":         "tini",
	"docker-init":  "docker-init",
	"dumb-init":    "dumb-init",
	"systemd":      "systemd",
	"govisord":     "govisor",
}

// Role describes what PID 1 is, based on its command line.  Interpreters
// (python supervisord.py and the like) are looked through, by checking
// each of the first few arguments.
func Role(cmdline string) string {
	args := strings.Fields(cmdline)
	if len(args) == 0 {
		return RoleUnknown
	}
	for i, arg := range args {
		if i > 3 {
			break
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		base := filepath.Base(arg)
		base = strings.TrimSuffix(base, ".py")
		if name, ok := knownSupervisors[base]; ok {
			return "process manager (" + name + ")"
		}
	}
	return roleInit
}
