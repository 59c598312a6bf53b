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

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// StatusCounts holds the number of jobs per state at one point in time.
type StatusCounts map[State]int

// Total returns the total number of counted jobs.
func (c StatusCounts) Total() int {
	n := 0
	for _, count := range c {
		n += count
	}
	return n
}

// AllTerminal reports whether every counted job is in a terminal state.
func (c StatusCounts) AllTerminal() bool {
	return c[Pending] == 0 && c[Running] == 0 && c[Held] == 0
}

var (
	goodDiff = color.New(color.FgGreen).SprintfFunc()
	badDiff  = color.New(color.FgRed, color.Bold).SprintfFunc()
)

// SummaryLine renders a one-line progress summary such as
//
//	all: 10, pending: 2, running: 5, held: 0, completed: 3 (+2), failed: 0, removed: 0
//
// When last is non-nil, per-state differences against it are appended.
// Growth of completed counts is colored green, growth of failed or held
// counts red.
func SummaryLine(counts, last StatusCounts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "all: %d", counts.Total())

	for _, state := range States {
		fmt.Fprintf(&b, ", %s: %d", state, counts[state])
		if last == nil {
			continue
		}
		diff := counts[state] - last[state]
		if diff == 0 {
			continue
		}
		text := fmt.Sprintf("%+d", diff)
		switch {
		case diff > 0 && state == Completed:
			text = goodDiff("%+d", diff)
		case diff > 0 && (state == Failed || state == Held):
			text = badDiff("%+d", diff)
		}
		fmt.Fprintf(&b, " (%s)", text)
	}
	return b.String()
}
