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

// Package render turns topology snapshots into documents for people and
// programs.  Every renderer is a pure function of the snapshot: the same
// snapshot always renders to the same output.
package render

import (
	"github.com/gdamore/topovisor"
)

const Description = "PID 1 is the supervisor; it starts and monitors the " +
	"managed processes listed here.  This report was produced by one of them."

type Document struct {
	Status         string         `json:"status"`
	Architecture   Architecture   `json:"architecture"`
	CurrentRequest CurrentRequest `json:"current_request"`
	RawData        RawData        `json:"raw_data"`
}

type Architecture struct {
	Description      string       `json:"description"`
	Pid1             Pid1         `json:"pid_1"`
	ManagedProcesses []ProcessDoc `json:"managed_processes"`
}

type Pid1 struct {
	Process string `json:"process"`
	Command string `json:"command"`
	Role    string `json:"role"`
}

// ProcessDoc is one managed process.  Status is the normalized state
// (RUNNING, STOPPED or OTHER), State the supervisor's own token.
type ProcessDoc struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	State   string `json:"state"`
	Details string `json:"details"`
}

type CurrentRequest struct {
	HandlerPid  int    `json:"handler_pid"`
	ParentPid   int    `json:"parent_pid"`
	ProcessName string `json:"process_name"`
}

type RawData struct {
	SupervisorStatus string `json:"supervisor_status"`
	ProcessTree      string `json:"process_tree"`
}

// ErrorDocument is returned instead of a Document when no snapshot could
// be assembled.
type ErrorDocument struct {
	Error          string         `json:"error"`
	CurrentProcess CurrentProcess `json:"current_process"`
}

type CurrentProcess struct {
	Pid  int `json:"pid"`
	Ppid int `json:"ppid"`
}

// Structured maps a snapshot onto a Document, field for field.  Raw text
// is carried over untouched.
func Structured(snap *topovisor.TopologySnapshot) *Document {
	procs := make([]ProcessDoc, 0, len(snap.ManagedProcesses))
	for _, p := range snap.ManagedProcesses {
		procs = append(procs, ProcessDoc{
			Name:    p.Name,
			Status:  p.State.String(),
			State:   p.Token,
			Details: p.Detail,
		})
	}
	return &Document{
		Status: "ok",
		Architecture: Architecture{
			Description: Description,
			Pid1: Pid1{
				Process: "supervisor",
				Command: snap.Pid1.CommandLine,
				Role:    snap.Pid1.Role,
			},
			ManagedProcesses: procs,
		},
		CurrentRequest: CurrentRequest{
			HandlerPid:  snap.Request.HandlerPid,
			ParentPid:   snap.Request.HandlerParentPid,
			ProcessName: snap.Request.ProcessName,
		},
		RawData: RawData{
			SupervisorStatus: snap.RawSupervisorStatus,
			ProcessTree:      snap.RawProcessTree,
		},
	}
}

// Snapshot converts a Document back into the snapshot it describes.
// Clients use this to render a report fetched from a server.
func (d *Document) Snapshot() *topovisor.TopologySnapshot {
	procs := make([]topovisor.ProcessRecord, 0, len(d.Architecture.ManagedProcesses))
	for _, p := range d.Architecture.ManagedProcesses {
		procs = append(procs, topovisor.ProcessRecord{
			Name:   p.Name,
			State:  topovisor.ParseState(p.Status),
			Token:  p.State,
			Detail: p.Details,
		})
	}
	return &topovisor.TopologySnapshot{
		Pid1: topovisor.Pid1Info{
			CommandLine: d.Architecture.Pid1.Command,
			Role:        d.Architecture.Pid1.Role,
		},
		ManagedProcesses: procs,
		Request: topovisor.RequestContext{
			HandlerPid:       d.CurrentRequest.HandlerPid,
			HandlerParentPid: d.CurrentRequest.ParentPid,
			ProcessName:      d.CurrentRequest.ProcessName,
		},
		RawProcessTree:      d.RawData.ProcessTree,
		RawSupervisorStatus: d.RawData.SupervisorStatus,
	}
}

// Failure builds the error document for a report that could not be
// assembled.
func Failure(err error, id topovisor.RequestContext) *ErrorDocument {
	return &ErrorDocument{
		Error: err.Error(),
		CurrentProcess: CurrentProcess{
			Pid:  id.HandlerPid,
			Ppid: id.HandlerParentPid,
		},
	}
}
