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
	"log"
	"time"

	"github.com/gdamore/topovisor/telemetry"
)

const (
	DefaultTaskIdle     = time.Second * 30
	DefaultTaskRecovery = time.Second * 5
	DefaultHealthEvery  = 10
)

// TaskState is the state of a Task's loop.
type TaskState int

const (
	TaskRunning TaskState = iota
	TaskRecovering
)

func (s TaskState) String() string {
	if s == TaskRecovering {
		return "recovering"
	}
	return "running"
}

// Task runs a unit of work over and over, until its context is canceled.
//
// After a unit succeeds the task idles for Idle before starting the next
// one.  When a unit fails (returns an error or panics) the failure is
// logged, and the task waits Recovery before trying again.  A failing
// unit never stops the loop.
//
//          +---------+   error    +------------+
//     +--->| Running +----------->| Recovering |
//     |    +----+----+            +-----+------+
//     |         | ok                    | Recovery elapsed
//     +---------+ Idle elapsed          |
//          ^                            |
//          +----------------------------+
//
// Cancellation is checked during every delay, so shutdown is prompt.
type Task struct {
	Name        string
	Work        func(ctx context.Context, iteration int) error
	Idle        time.Duration
	Recovery    time.Duration
	HealthEvery int // log a health line every HealthEvery successes
	Logger      *log.Logger

	// Sleep waits for the given duration or until ctx is done, in which
	// case it returns the context's error.  Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnTransition, if set, is called on every state change.
	OnTransition func(from, to TaskState)

	Telemetry *telemetry.Telemetry
}

// Sleep is the default Task delay.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Task) logf(format string, v ...interface{}) {
	if t.Logger != nil {
		t.Logger.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}

func (t *Task) name() string {
	if t.Name == "" {
		return "Worker"
	}
	return t.Name
}

func (t *Task) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (t *Task) unit(ctx context.Context, n int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrUnitPanic, p)
		}
	}()
	if t.Work == nil {
		return nil
	}
	return t.Work(ctx, n)
}

func (t *Task) move(state *TaskState, to TaskState) {
	from := *state
	*state = to
	if t.OnTransition != nil {
		t.OnTransition(from, to)
	}
}

// Run executes the loop.  It returns only once ctx is canceled.
func (t *Task) Run(ctx context.Context) {
	idle := t.Idle
	if idle <= 0 {
		idle = DefaultTaskIdle
	}
	recovery := t.Recovery
	if recovery <= 0 {
		recovery = DefaultTaskRecovery
	}
	every := t.HealthEvery
	if every <= 0 {
		every = DefaultHealthEvery
	}
	name := t.name()

	t.logf("%s process starting...", name)
	state := TaskRunning
	iteration := 0
	successes := 0

	for ctx.Err() == nil {
		iteration++
		t.logf("%s iteration %d - Processing tasks...", name, iteration)

		if e := t.unit(ctx, iteration); e != nil {
			if ctx.Err() != nil {
				break
			}
			t.Telemetry.CountIteration("failed")
			t.logf("%s error in iteration %d: %v", name, iteration, e)
			t.move(&state, TaskRecovering)
			if t.sleep(ctx, recovery) != nil {
				break
			}
			t.move(&state, TaskRunning)
			continue
		}

		successes++
		t.Telemetry.CountIteration("ok")
		t.logf("%s iteration %d done", name, iteration)
		if successes%every == 0 {
			t.logf("%s health check - %d iterations completed",
				name, successes)
		}
		if t.sleep(ctx, idle) != nil {
			break
		}
	}

	t.logf("%s received shutdown signal", name)
	t.logf("%s process shutting down...", name)
}
