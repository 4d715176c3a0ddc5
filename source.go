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
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds each external command we run.
const DefaultCommandTimeout = time.Second * 5

// supervisorctl exits with this (LSB "program is not running") when at
// least one program is not RUNNING.  The output is still a valid report.
const exitSomeNotRunning = 3

// OSSource obtains raw process information from the operating system.
// It does no parsing.
type OSSource interface {
	// ProcessTree returns the full process listing as free-form text.
	ProcessTree(ctx context.Context) (string, error)

	// Pid1CommandLine returns the command line of PID 1.
	Pid1CommandLine(ctx context.Context) (string, error)

	// Identity returns the pid and parent pid of the calling process.
	// It cannot fail.
	Identity() RequestContext
}

// SupervisorSource obtains the status of all processes managed by the
// supervisor, as line oriented text.  It makes a single attempt.
type SupervisorSource interface {
	Status(ctx context.Context) (string, error)
}

// SystemSource is an OSSource backed by ps(1).
type SystemSource struct {
	Ps      string        // path of ps, "ps" if empty
	Timeout time.Duration // per command, DefaultCommandTimeout if zero
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultCommandTimeout
	}
	return context.WithTimeout(ctx, d)
}

func (s *SystemSource) run(ctx context.Context, args ...string) (string, error) {
	ps := s.Ps
	if ps == "" {
		ps = "ps"
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	out, e := exec.CommandContext(ctx, ps, args...).Output()
	if e != nil {
		var ee *exec.ExitError
		if errors.As(e, &ee) && len(ee.Stderr) != 0 {
			return "", fmt.Errorf("%w: %s %s: %v: %s", ErrSourceUnavailable,
				ps, strings.Join(args, " "), e,
				strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("%w: %s %s: %v", ErrSourceUnavailable,
			ps, strings.Join(args, " "), e)
	}
	return string(out), nil
}

func (s *SystemSource) ProcessTree(ctx context.Context) (string, error) {
	return s.run(ctx, "auxf")
}

func (s *SystemSource) Pid1CommandLine(ctx context.Context) (string, error) {
	out, e := s.run(ctx, "-p", "1", "-o", "args=")
	if e != nil {
		return "", e
	}
	if out = strings.TrimSpace(out); out == "" {
		return "", fmt.Errorf("%w: no command line for pid 1",
			ErrSourceUnavailable)
	}
	return out, nil
}

func (s *SystemSource) Identity() RequestContext {
	return currentIdentity()
}

// Supervisorctl is a SupervisorSource that runs "supervisorctl status".
type Supervisorctl struct {
	Path    string // "supervisorctl" if empty
	Config  string // passed with -c, if set
	Timeout time.Duration
}

func (s *Supervisorctl) Status(ctx context.Context) (string, error) {
	path := s.Path
	if path == "" {
		path = "supervisorctl"
	}
	args := []string{}
	if s.Config != "" {
		args = append(args, "-c", s.Config)
	}
	args = append(args, "status")

	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	out, e := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if e == nil {
		return string(out), nil
	}
	var ee *exec.ExitError
	if errors.As(e, &ee) && ee.ExitCode() == exitSomeNotRunning &&
		len(out) != 0 {
		return string(out), nil
	}
	// The tool's own complaint is usually the most useful part.
	if text := strings.TrimSpace(string(out)); text != "" {
		return "", fmt.Errorf("%w: %v: %s", ErrSupervisorUnavailable, e, text)
	}
	return "", fmt.Errorf("%w: %v", ErrSupervisorUnavailable, e)
}
