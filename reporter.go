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
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gdamore/topovisor/telemetry"
)

// Source names, as used in telemetry.
const (
	SourceProcessTree = "process_tree"
	SourcePid1        = "pid1"
	SourceSupervisor  = "supervisor"
)

// Reporter produces topology snapshots on demand.  It holds no state
// between calls, so a single Reporter may serve concurrent requests.
type Reporter struct {
	os  OSSource
	sup SupervisorSource
	tel *telemetry.Telemetry
}

// NewReporter returns a Reporter using the given sources.  The telemetry
// may be nil.
func NewReporter(src OSSource, sup SupervisorSource, tel *telemetry.Telemetry) *Reporter {
	return &Reporter{os: src, sup: sup, tel: tel}
}

// Self returns the identity of the calling process.
func Self() RequestContext {
	return currentIdentity()
}

func (r *Reporter) fetch(ctx context.Context, source string,
	fn func(context.Context) (string, error), dst *Fetched) (err error) {

	ctx, end := r.tel.Start(ctx, "topovisor.fetch."+source)
	var e error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrAssembly, source, p)
			e = err
		}
		end(e)
	}()

	var text string
	text, e = fn(ctx)
	if e != nil {
		r.tel.CountSourceFailure(source)
	}
	*dst = Fetched{Text: text, Err: e}
	return nil
}

func (r *Reporter) assemble(tree, pid1, status Fetched) (snap *TopologySnapshot, err error) {
	defer func() {
		if p := recover(); p != nil {
			snap = nil
			err = fmt.Errorf("%w: %v", ErrAssembly, p)
		}
	}()
	return Assemble(tree, pid1, status, r.os.Identity()), nil
}

// Report gathers the raw data and assembles a snapshot.  The three
// queries run concurrently; a failing query is recorded in the snapshot
// and does not stop the others.  An error is only returned when no
// coherent snapshot can be built at all, in which case it wraps
// ErrAssembly.
func (r *Reporter) Report(ctx context.Context) (snap *TopologySnapshot, err error) {
	ctx, end := r.tel.Start(ctx, "topovisor.report")
	defer func() { end(err) }()

	var tree, pid1, status Fetched

	// No errgroup context here: a failing query must not cancel its peers.
	var g errgroup.Group
	g.Go(func() error {
		return r.fetch(ctx, SourceProcessTree, r.os.ProcessTree, &tree)
	})
	g.Go(func() error {
		return r.fetch(ctx, SourcePid1, r.os.Pid1CommandLine, &pid1)
	})
	g.Go(func() error {
		return r.fetch(ctx, SourceSupervisor, r.sup.Status, &status)
	})
	if e := g.Wait(); e != nil {
		return nil, e
	}
	if e := ctx.Err(); e != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssembly, e)
	}
	return r.assemble(tree, pid1, status)
}
