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
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

var testID = RequestContext{
	HandlerPid:       17,
	HandlerParentPid: 1,
	ProcessName:      "topovisord",
}

const testTree = "USER PID COMMAND\nroot 1 supervisord\nroot 17 \\_ topovisord\n"

func TestAssemble(t *testing.T) {
	Convey("Assembling a snapshot", t, func() {
		tree := Fetched{Text: testTree}
		pid1 := Fetched{Text: "/usr/bin/supervisord -n\n"}
		status := Fetched{Text: "app RUNNING pid 17, uptime 0:05:00\nworker FATAL Exited too quickly\n"}

		Convey("With every source working", func() {
			snap := Assemble(tree, pid1, status, testID)
			So(snap.RawProcessTree, ShouldEqual, testTree)
			So(snap.Pid1.CommandLine, ShouldEqual, "/usr/bin/supervisord -n")
			So(snap.Pid1.Role, ShouldEqual, "process manager (supervisord)")
			So(snap.Request, ShouldResemble, testID)
			So(snap.RawSupervisorStatus, ShouldEqual, status.Text)
			So(len(snap.ManagedProcesses), ShouldEqual, 2)
			So(snap.ManagedProcesses[0].Name, ShouldEqual, "app")
			So(snap.ManagedProcesses[1].Name, ShouldEqual, "worker")
		})

		Convey("Supervisor failure leaves the rest intact", func() {
			status = Fetched{Err: fmt.Errorf("%w: exec: not found", ErrSupervisorUnavailable)}
			snap := Assemble(tree, pid1, status, testID)
			So(snap.ManagedProcesses, ShouldNotBeNil)
			So(len(snap.ManagedProcesses), ShouldEqual, 0)
			So(snap.RawSupervisorStatus, ShouldStartWith, "Error getting supervisor status: ")
			So(snap.RawSupervisorStatus, ShouldContainSubstring, "not found")
			So(snap.RawProcessTree, ShouldEqual, testTree)
			So(snap.Pid1.CommandLine, ShouldEqual, "/usr/bin/supervisord -n")
		})

		Convey("OS failures leave the supervisor data intact", func() {
			e := fmt.Errorf("%w: ps: permission denied", ErrSourceUnavailable)
			snap := Assemble(Fetched{Err: e}, Fetched{Err: e}, status, testID)
			So(snap.RawProcessTree, ShouldStartWith, "Error getting process tree: ")
			So(snap.Pid1.CommandLine, ShouldStartWith, "Error: ")
			So(snap.Pid1.Role, ShouldEqual, RoleUnknown)
			So(len(snap.ManagedProcesses), ShouldEqual, 2)
			So(snap.RawSupervisorStatus, ShouldEqual, status.Text)
		})

		Convey("Everything failing still yields a complete snapshot", func() {
			e := errors.New("boom")
			snap := Assemble(Fetched{Err: e}, Fetched{Err: e}, Fetched{Err: e}, testID)
			So(snap.RawProcessTree, ShouldNotBeEmpty)
			So(snap.Pid1.CommandLine, ShouldNotBeEmpty)
			So(snap.RawSupervisorStatus, ShouldNotBeEmpty)
			So(snap.ManagedProcesses, ShouldNotBeNil)
			So(snap.Request, ShouldResemble, testID)
		})
	})
}

func TestRole(t *testing.T) {
	Convey("PID 1 roles", t, func() {
		So(Role("/usr/bin/supervisord -n"), ShouldEqual, "process manager (supervisord)")
		So(Role("/usr/bin/python3 -u /usr/local/bin/supervisord -c /etc/s.conf"),
			ShouldEqual, "process manager (supervisord)")
		So(Role("/sbin/tini -- /app/server"), ShouldEqual, "process manager (tini)")
		So(Role("s6-svscan /run/service"), ShouldEqual, "process manager (s6)")
		So(Role("/app/server --port 8080"), ShouldEqual, "init process")
		So(Role("   "), ShouldEqual, RoleUnknown)
	})
}
