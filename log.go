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
	"strings"
	"sync"
	"time"
)

const DefaultLogRecords = 1000

type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log is a bounded, in-memory log.  It keeps the most recent lines
// written to it, which lets the daemon serve the background task's
// recent history without any persistence.
type Log struct {
	records []LogRecord
	next    int // index of the slot to write next
	count   int // number of valid records, at most len(records)
	id      int64
	mx      sync.Mutex
}

// Write implements io.Writer, so a Log can be the destination of a
// log.Logger.  Each line becomes its own record.
func (l *Log) Write(b []byte) (int, error) {
	str := strings.Trim(string(b), "\n")
	now := time.Now()
	l.mx.Lock()
	for _, line := range strings.Split(str, "\n") {
		l.id++
		l.records[l.next] = LogRecord{Id: l.id, Time: now, Text: line}
		l.next = (l.next + 1) % len(l.records)
		if l.count < len(l.records) {
			l.count++
		}
	}
	l.mx.Unlock()
	return len(b), nil
}

// Clear discards all records.
func (l *Log) Clear() {
	l.mx.Lock()
	l.next = 0
	l.count = 0
	// IDs are bumped rather than reset, so that a cleared log does
	// not look unchanged to a client holding an old ID.
	l.id = time.Now().UnixNano()
	l.mx.Unlock()
}

// Records returns the stored records, oldest first, along with an ID
// that changes whenever the log does.  If last matches the current ID,
// nil is returned.  The ID is suitable for use as an Etag.
func (l *Log) Records(last int64) ([]LogRecord, int64) {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.id == last {
		return nil, last
	}
	recs := make([]LogRecord, 0, l.count)
	start := (l.next - l.count + len(l.records)) % len(l.records)
	for i := 0; i < l.count; i++ {
		recs = append(recs, l.records[(start+i)%len(l.records)])
	}
	return recs, l.id
}

// NewLog returns a Log holding at most max records; DefaultLogRecords
// is used if max is not positive.
func NewLog(max int) *Log {
	if max <= 0 {
		max = DefaultLogRecords
	}
	// Starting from the clock keeps IDs distinct across restarts.
	return &Log{
		records: make([]LogRecord, max),
		id:      time.Now().UnixNano(),
	}
}
