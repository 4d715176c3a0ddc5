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
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/gdamore/topovisor/telemetry"
)

// testOS is an OSSource with canned answers.
type testOS struct {
	tree     string
	treeErr  error
	pid1     string
	pid1Err  error
	panicked bool
	delay    time.Duration
}

func (o *testOS) ProcessTree(ctx context.Context) (string, error) {
	if o.panicked {
		panic("injected")
	}
	time.Sleep(o.delay)
	return o.tree, o.treeErr
}

func (o *testOS) Pid1CommandLine(ctx context.Context) (string, error) {
	return o.pid1, o.pid1Err
}

func (o *testOS) Identity() RequestContext {
	return testID
}

// testSup is a SupervisorSource with a canned answer.  It records
// whether its context was canceled while it ran.
type testSup struct {
	text     string
	err      error
	delay    time.Duration
	canceled bool
	sync.Mutex
}

func (s *testSup) Status(ctx context.Context) (string, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		s.Lock()
		s.canceled = true
		s.Unlock()
	}
	return s.text, s.err
}

func TestReporter(t *testing.T) {
	Convey("Given a reporter with working sources", t, func() {
		os := &testOS{tree: testTree, pid1: "supervisord -n"}
		sup := &testSup{text: "app RUNNING pid 17, uptime 0:05:00\n"}
		tel, e := telemetry.New(context.Background(), telemetry.Config{Metrics: true})
		So(e, ShouldBeNil)
		r := NewReporter(os, sup, tel)

		Convey("Report returns the assembled snapshot", func() {
			snap, e := r.Report(context.Background())
			So(e, ShouldBeNil)
			So(snap.RawProcessTree, ShouldEqual, testTree)
			So(snap.Pid1.CommandLine, ShouldEqual, "supervisord -n")
			So(len(snap.ManagedProcesses), ShouldEqual, 1)
			So(snap.Request, ShouldResemble, testID)
		})

		Convey("A slow, failing OS source does not cancel the supervisor", func() {
			os.delay = time.Millisecond * 20
			os.treeErr = fmt.Errorf("%w: ps missing", ErrSourceUnavailable)
			sup.delay = time.Millisecond * 40
			snap, e := r.Report(context.Background())
			So(e, ShouldBeNil)
			So(sup.canceled, ShouldBeFalse)
			So(len(snap.ManagedProcesses), ShouldEqual, 1)
			So(snap.RawProcessTree, ShouldContainSubstring, "ps missing")
		})

		Convey("Source failures are counted", func() {
			sup.err = errors.New("no supervisorctl")
			_, e := r.Report(context.Background())
			So(e, ShouldBeNil)
			expected := `
# HELP topovisor_source_failures_total Failed raw data queries, by source.
# TYPE topovisor_source_failures_total counter
topovisor_source_failures_total{source="supervisor"} 1
`
			e = testutil.GatherAndCompare(tel.Registry(),
				strings.NewReader(expected), "topovisor_source_failures_total")
			So(e, ShouldBeNil)
		})

		Convey("A panicking source fails the whole report", func() {
			os.panicked = true
			snap, e := r.Report(context.Background())
			So(snap, ShouldBeNil)
			So(errors.Is(e, ErrAssembly), ShouldBeTrue)
		})

		Convey("A canceled request fails the whole report", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			snap, e := r.Report(ctx)
			So(snap, ShouldBeNil)
			So(errors.Is(e, ErrAssembly), ShouldBeTrue)
		})
	})

	Convey("A panicking source still ends its span", t, func() {
		buf := &bytes.Buffer{}
		tel, e := telemetry.New(context.Background(), telemetry.Config{
			ServiceName:   "test",
			TraceExporter: "stdout",
			TraceWriter:   buf,
		})
		So(e, ShouldBeNil)
		r := NewReporter(&testOS{panicked: true}, &testSup{}, tel)
		_, e = r.Report(context.Background())
		So(errors.Is(e, ErrAssembly), ShouldBeTrue)
		So(tel.Shutdown(context.Background()), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "topovisor.fetch."+SourceProcessTree)
		So(buf.String(), ShouldContainSubstring, "injected")
	})

	Convey("A reporter works without telemetry", t, func() {
		r := NewReporter(&testOS{}, &testSup{}, nil)
		snap, e := r.Report(context.Background())
		So(e, ShouldBeNil)
		So(snap, ShouldNotBeNil)
		So(len(snap.ManagedProcesses), ShouldEqual, 0)
	})
}
