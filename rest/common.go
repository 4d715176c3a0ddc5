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

package rest

import (
	"github.com/gdamore/topovisor"
)

const (
	mimeJson = "application/json; charset=UTF-8"
	mimeHtml = "text/html; charset=UTF-8"
	mimeText = "text/plain; charset=UTF-8"
)

// Report formats, as given by the format query parameter.
const (
	FormatJSON = "json"
	FormatHTML = "html"
	FormatText = "text"
)

type Hello struct {
	Message   string `json:"message"`
	Status    string `json:"status"`
	Processes string `json:"processes"`
}

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Info describes the environment the server runs in.  The environment
// values are reported as strings, the way they were set.
type Info struct {
	Environment    map[string]string `json:"environment"`
	ProcessManager string            `json:"process_manager"`
	GoVersion      string            `json:"go_version"`
}

// LogInfo is a copy of the background task log.  Etag changes whenever
// the log does.
type LogInfo struct {
	Etag    string                `json:"-"`
	Records []topovisor.LogRecord `json:"records"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
