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

package supervisor

import (
	"batch-toolkit/pkg/job"
)

// HoldDecision is the action taken on a job observed in the Held state.
type HoldDecision int

const (
	// ReleaseJob releases the job back into the queue.
	ReleaseJob HoldDecision = iota
	// EscalateJob leaves the job held for an operator to inspect.
	EscalateJob
	// FailJob removes the job from the queue and records it as failed.
	FailJob
)

// HoldPolicy decides what happens to held jobs. releases is the number of
// automatic releases already granted to this job.
type HoldPolicy interface {
	OnHold(h job.Handle, releases int) HoldDecision
}

type releaseUpTo struct {
	max int
}

// ReleaseUpTo auto-releases a held job up to max times, treating the hold
// as transient, and fails it once the budget is exhausted.
func ReleaseUpTo(max int) HoldPolicy {
	return releaseUpTo{max: max}
}

func (p releaseUpTo) OnHold(h job.Handle, releases int) HoldDecision {
	if releases < p.max {
		return ReleaseJob
	}
	return FailJob
}

type escalate struct{}

// Escalate never auto-releases; every held job is left for an operator.
func Escalate() HoldPolicy {
	return escalate{}
}

func (escalate) OnHold(job.Handle, int) HoldDecision {
	return EscalateJob
}
