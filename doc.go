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

// Package topovisor reports the topology of a multi-process container:
// what runs as PID 1, which programs the supervisor manages and in what
// state they are, and which process is handling the current request.
//
// Topovisor does not manage processes itself.  It observes the state that
// the operating system and an external supervisor (supervisord, via
// supervisorctl) expose, and turns it into an immutable TopologySnapshot.
// Each snapshot is assembled so that the failure of one data source never
// hides the data from the others; a missing supervisorctl simply shows up
// as an error string in the supervisor status field.
//
// Snapshots are rendered by the render package, and served over HTTP by
// the rest package.  A Task type is also provided, for running periodic
// background work that survives failures of individual iterations.
//
package topovisor
