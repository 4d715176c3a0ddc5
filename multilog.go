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
	"log"
	"strings"
	"sync"
)

// MultiLogger fans log lines out to several log.Loggers.  Each
// destination keeps its own prefix and flags, so for example stderr can
// carry timestamps while a Log (which stamps records itself) does not.
type MultiLogger struct {
	loggers []*log.Logger
	lock    sync.Mutex
}

// Write splits b into lines and hands each line to every destination.
func (l *MultiLogger) Write(b []byte) (int, error) {
	lines := strings.Split(strings.Trim(string(b), "\n"), "\n")
	l.lock.Lock()
	for _, line := range lines {
		for _, dst := range l.loggers {
			dst.Println(line)
		}
	}
	l.lock.Unlock()
	return len(b), nil
}

// AddLogger registers a destination.  Adding the same logger twice has
// no effect.
func (l *MultiLogger) AddLogger(dst *log.Logger) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for _, x := range l.loggers {
		if x == dst {
			return
		}
	}
	l.loggers = append(l.loggers, dst)
}

// Logger returns a log.Logger writing through the MultiLogger, with
// the given prefix in front of every line.
func (l *MultiLogger) Logger(prefix string) *log.Logger {
	return log.New(l, prefix, 0)
}

func NewMultiLogger(dsts ...*log.Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, dst := range dsts {
		m.AddLogger(dst)
	}
	return m
}
