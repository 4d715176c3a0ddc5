//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

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

// These tests run the shell scripts in testdata in place of ps and
// supervisorctl, so they are specific to POSIX systems.

package topovisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testScript(name string) string {
	dir, _ := os.Getwd()
	return filepath.Join(dir, "testdata", name)
}

func TestSystemSource(t *testing.T) {
	Convey("Given a SystemSource using a fake ps", t, func() {
		src := &SystemSource{Ps: testScript("ps.sh")}
		ctx := context.Background()

		Convey("The tree is returned verbatim", func() {
			tree, e := src.ProcessTree(ctx)
			So(e, ShouldBeNil)
			So(tree, ShouldStartWith, "USER       PID")
			So(tree, ShouldContainSubstring, `\_ /app/topovisord`)
		})

		Convey("PID 1 command line is trimmed", func() {
			cmd, e := src.Pid1CommandLine(ctx)
			So(e, ShouldBeNil)
			So(cmd, ShouldEqual, "/usr/bin/python3 /usr/bin/supervisord -n -c /etc/supervisor/conf.d/supervisord.conf")
		})

		Convey("Identity is our own", func() {
			id := src.Identity()
			So(id.HandlerPid, ShouldEqual, os.Getpid())
			So(id.HandlerParentPid, ShouldEqual, os.Getppid())
			So(id.ProcessName, ShouldNotBeEmpty)
		})
	})

	Convey("A missing ps is SourceUnavailable", t, func() {
		src := &SystemSource{Ps: "/nonexistent/ps"}
		_, e := src.ProcessTree(context.Background())
		So(errors.Is(e, ErrSourceUnavailable), ShouldBeTrue)
		_, e = src.Pid1CommandLine(context.Background())
		So(errors.Is(e, ErrSourceUnavailable), ShouldBeTrue)
	})
}

func TestSupervisorctl(t *testing.T) {
	Convey("Given a fake supervisorctl", t, func() {
		sup := &Supervisorctl{Path: testScript("supervisorctl.sh")}
		ctx := context.Background()

		Convey("A clean exit is data", func() {
			t.Setenv("FAKE_MODE", "")
			out, e := sup.Status(ctx)
			So(e, ShouldBeNil)
			So(len(ParseStatus(out)), ShouldEqual, 1)
		})

		Convey("Exit status 3 is still data", func() {
			t.Setenv("FAKE_MODE", "partial")
			out, e := sup.Status(ctx)
			So(e, ShouldBeNil)
			recs := ParseStatus(out)
			So(len(recs), ShouldEqual, 2)
			So(recs[1].State, ShouldEqual, StateStopped)
		})

		Convey("Other failures keep the tool's message", func() {
			t.Setenv("FAKE_MODE", "refused")
			out, e := sup.Status(ctx)
			So(out, ShouldEqual, "")
			So(errors.Is(e, ErrSupervisorUnavailable), ShouldBeTrue)
			So(e.Error(), ShouldContainSubstring, "refused connection")
		})

		Convey("Failures without output still report", func() {
			t.Setenv("FAKE_MODE", "silent")
			_, e := sup.Status(ctx)
			So(errors.Is(e, ErrSupervisorUnavailable), ShouldBeTrue)
		})

		Convey("The config file is passed along", func() {
			t.Setenv("FAKE_MODE", "args")
			sup.Config = "/etc/supervisor/conf.d/supervisord.conf"
			out, e := sup.Status(ctx)
			So(e, ShouldBeNil)
			So(out, ShouldEqual, "args -c /etc/supervisor/conf.d/supervisord.conf status\n")
		})
	})

	Convey("A missing supervisorctl is SupervisorUnavailable", t, func() {
		sup := &Supervisorctl{Path: "/nonexistent/supervisorctl"}
		_, e := sup.Status(context.Background())
		So(errors.Is(e, ErrSupervisorUnavailable), ShouldBeTrue)
	})
}
