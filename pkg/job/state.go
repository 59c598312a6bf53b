// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package job

// State is the lifecycle state of a submitted job.
type State int

const (
	Pending State = iota
	Running
	Held
	Completed
	Failed
	Removed
)

// States lists all states in reporting order.
var States = []State{Pending, Running, Held, Completed, Failed, Removed}

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Held:
		return "held"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Removed
}

// Handle correlates a backend-assigned job id with the logical work it
// originated from.
type Handle struct {
	ID       string
	Identity Identity
}

func (h Handle) String() string {
	return h.ID + " (" + h.Identity.String() + ")"
}
