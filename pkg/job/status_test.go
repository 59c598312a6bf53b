// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package job

import (
	"testing"

	"github.com/fatih/color"
)

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
	}{
		{Pending, false},
		{Running, false},
		{Held, false},
		{Completed, true},
		{Failed, true},
		{Removed, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestStatusCounts(t *testing.T) {
	counts := StatusCounts{Pending: 2, Running: 3, Completed: 5}
	if got := counts.Total(); got != 10 {
		t.Errorf("Total() = %d, want 10", got)
	}
	if counts.AllTerminal() {
		t.Error("AllTerminal() = true with pending and running jobs")
	}

	done := StatusCounts{Completed: 5, Failed: 1, Removed: 2}
	if !done.AllTerminal() {
		t.Error("AllTerminal() = false with only terminal jobs")
	}
}

func TestSummaryLine(t *testing.T) {
	color.NoColor = true

	counts := StatusCounts{Pending: 1, Running: 2, Completed: 3}
	last := StatusCounts{Pending: 3, Running: 2, Completed: 1}

	got := SummaryLine(counts, last)
	want := "all: 6, pending: 1 (-2), running: 2, held: 0, completed: 3 (+2), failed: 0, removed: 0"
	if got != want {
		t.Errorf("SummaryLine() = %q, want %q", got, want)
	}

	// without a previous snapshot no diffs are shown
	got = SummaryLine(counts, nil)
	want = "all: 6, pending: 1, running: 2, held: 0, completed: 3, failed: 0, removed: 0"
	if got != want {
		t.Errorf("SummaryLine() = %q, want %q", got, want)
	}
}
