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

// Package supervisor drives submitted batch jobs through their lifecycle:
// bounded parallel submission, batched status polling, hold/retry policy
// and terminal outcome reporting.
package supervisor

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"batch-toolkit/pkg/job"
	"batch-toolkit/pkg/logging"
	"batch-toolkit/pkg/render"
)

// Gateway is the scheduler capability the supervisor depends on. It is
// injected at construction; pkg/condor provides the HTCondor
// implementation.
type Gateway interface {
	Submit(ctx context.Context, cfg *render.Config, identity job.Identity) (job.Handle, error)
	Poll(ctx context.Context, handles []job.Handle) (map[job.Handle]job.State, error)
	Release(ctx context.Context, h job.Handle) error
	Remove(ctx context.Context, h job.Handle) error
}

// Renderer is the payload-building capability the supervisor depends on.
type Renderer interface {
	Render(d *job.Descriptor, extraVars map[string]string) (*render.Config, error)
}

// Options tunes the supervision loop.
type Options struct {
	// PollInterval is the delay between ticks in WaitUntilDone.
	PollInterval time.Duration
	// SubmitConcurrency bounds parallel submissions to respect backend
	// rate limits.
	SubmitConcurrency int
	// SubmitRetries is the number of additional attempts granted to
	// retryable submission failures.
	SubmitRetries int
	// SubmitRetryDelay is the base delay before a resubmission; it
	// doubles per attempt.
	SubmitRetryDelay time.Duration
	// HoldPolicy decides the fate of held jobs.
	HoldPolicy HoldPolicy
	// EnforceMaxRuntime removes jobs whose observed wall time exceeds
	// their descriptor's max runtime. Off by default: sites that kill
	// overrunning jobs themselves need no client-side cap.
	EnforceMaxRuntime bool
	// RenderVariables are merged into every rendered payload, e.g.
	// environment-derived paths.
	RenderVariables map[string]string
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.SubmitConcurrency <= 0 {
		o.SubmitConcurrency = 4
	}
	if o.SubmitRetryDelay <= 0 {
		o.SubmitRetryDelay = 5 * time.Second
	}
	if o.HoldPolicy == nil {
		o.HoldPolicy = ReleaseUpTo(3)
	}
	return o
}

// tracked is the supervisor's record of one submitted job.
type tracked struct {
	descriptor   *job.Descriptor
	state        job.State
	releases     int
	runningSince time.Time
}

// Supervisor owns the set of submitted jobs and their last-known states.
// All state mutation happens on the goroutine calling SubmitAll, Tick,
// WaitUntilDone and Cancel; run one control loop per workflow instance and
// do not call these concurrently. Submission worker goroutines report back
// through a channel consumed by that same control goroutine.
type Supervisor struct {
	gateway  Gateway
	renderer Renderer
	opts     Options

	jobs       map[job.Handle]*tracked
	lastCounts job.StatusCounts
}

// New creates a Supervisor with the given capabilities.
func New(gateway Gateway, renderer Renderer, opts Options) *Supervisor {
	return &Supervisor{
		gateway:  gateway,
		renderer: renderer,
		opts:     opts.withDefaults(),
		jobs:     make(map[job.Handle]*tracked),
	}
}

// SubmitFailure reports a descriptor that could not be submitted.
type SubmitFailure struct {
	Descriptor *job.Descriptor
	Err        error
}

type submitResult struct {
	descriptor *job.Descriptor
	handle     job.Handle
	err        error
}

// SubmitAll renders and submits each descriptor, at most
// SubmitConcurrency in flight at a time. Retryable failures are retried
// with exponential backoff up to SubmitRetries; non-retryable failures are
// reported without blocking the rest of the batch. Returned handles are
// tracked by the supervisor from this point on.
func (s *Supervisor) SubmitAll(ctx context.Context, descriptors []*job.Descriptor) ([]job.Handle, []SubmitFailure) {
	sem := semaphore.NewWeighted(int64(s.opts.SubmitConcurrency))
	results := make(chan submitResult, len(descriptors))

	for _, d := range descriptors {
		d := d
		if err := sem.Acquire(ctx, 1); err != nil {
			results <- submitResult{descriptor: d, err: err}
			continue
		}
		go func() {
			defer sem.Release(1)
			handle, err := s.submitOne(ctx, d)
			results <- submitResult{descriptor: d, handle: handle, err: err}
		}()
	}

	var handles []job.Handle
	var failures []SubmitFailure
	for range descriptors {
		res := <-results
		if res.err != nil {
			logging.Error("submission of %s failed: %v", res.descriptor.Identity(), res.err)
			failures = append(failures, SubmitFailure{Descriptor: res.descriptor, Err: res.err})
			continue
		}
		s.jobs[res.handle] = &tracked{descriptor: res.descriptor, state: job.Pending}
		handles = append(handles, res.handle)
	}

	sort.Slice(handles, func(i, j int) bool { return handles[i].ID < handles[j].ID })
	logging.Info("submitted %d of %d job(s)", len(handles), len(descriptors))
	return handles, failures
}

// submitOne renders the descriptor once and retries retryable submission
// failures with exponential backoff.
func (s *Supervisor) submitOne(ctx context.Context, d *job.Descriptor) (job.Handle, error) {
	cfg, err := s.renderer.Render(d, s.opts.RenderVariables)
	if err != nil {
		return job.Handle{}, err
	}

	delay := s.opts.SubmitRetryDelay
	for attempt := 0; ; attempt++ {
		handle, err := s.gateway.Submit(ctx, cfg, d.Identity())
		if err == nil {
			return handle, nil
		}
		if !job.Retryable(err) || attempt >= s.opts.SubmitRetries {
			return job.Handle{}, err
		}
		logging.Warn("retryable submission failure for %s (attempt %d/%d): %v",
			d.Identity(), attempt+1, s.opts.SubmitRetries, err)
		if !sleepContext(ctx, delay) {
			return job.Handle{}, ctx.Err()
		}
		delay *= 2
	}
}

// Tick performs a single polling pass: one batched gateway poll, state
// table update, hold policy application and optional runtime enforcement.
// It returns the jobs that reached a terminal state during this tick.
// Gateway connectivity failures are logged and retried on the next tick;
// they never mark jobs failed and never propagate out of Tick.
func (s *Supervisor) Tick(ctx context.Context) []job.Handle {
	outstanding := s.Outstanding()
	if len(outstanding) == 0 {
		return nil
	}

	states, err := s.gateway.Poll(ctx, outstanding)
	if err != nil {
		logging.Warn("status poll failed, retrying on next tick: %v", err)
		return nil
	}

	now := time.Now()
	var newlyTerminal []job.Handle
	for _, h := range outstanding {
		state, ok := states[h]
		if !ok {
			continue
		}
		t := s.jobs[h]
		prev := t.state

		if state == job.Running && t.runningSince.IsZero() {
			t.runningSince = now
		}
		if state == job.Held && prev != job.Held {
			state = s.applyHoldPolicy(ctx, h, t)
		}
		if state == job.Running && s.overMaxRuntime(t, now) {
			logging.Warn("job %s exceeded max runtime %s, removing", h, t.descriptor.Resources().MaxRuntime)
			if err := s.gateway.Remove(ctx, h); err != nil {
				logging.Error("failed to remove overrunning job %s: %v", h, err)
			}
			state = job.Removed
		}

		t.state = state
		if state != prev {
			logging.Debug("job %s: %s -> %s", h, prev, state)
		}
		if state.Terminal() && !prev.Terminal() {
			newlyTerminal = append(newlyTerminal, h)
		}
	}

	counts := s.Counts()
	logging.Info("%s", job.SummaryLine(counts, s.lastCounts))
	s.lastCounts = counts

	return newlyTerminal
}

// applyHoldPolicy handles a job newly observed in the Held state and
// returns the state to record for it.
func (s *Supervisor) applyHoldPolicy(ctx context.Context, h job.Handle, t *tracked) job.State {
	switch s.opts.HoldPolicy.OnHold(h, t.releases) {
	case ReleaseJob:
		t.releases++
		logging.Info("releasing held job %s (release %d)", h, t.releases)
		if err := s.gateway.Release(ctx, h); err != nil {
			logging.Error("failed to release job %s: %v", h, err)
		}
		return job.Held
	case FailJob:
		logging.Warn("job %s exhausted %d release(s), marking failed", h, t.releases)
		if err := s.gateway.Remove(ctx, h); err != nil {
			logging.Error("failed to remove job %s: %v", h, err)
		}
		return job.Failed
	default:
		logging.Warn("job %s held, leaving for operator", h)
		return job.Held
	}
}

func (s *Supervisor) overMaxRuntime(t *tracked, now time.Time) bool {
	if !s.opts.EnforceMaxRuntime || t.runningSince.IsZero() {
		return false
	}
	return now.Sub(t.runningSince) > t.descriptor.Resources().MaxRuntime
}

// WaitUntilDone ticks at the configured poll interval until every job is
// terminal or the timeout elapses. On timeout or cancellation it returns
// the still-non-terminal jobs without error; cancellation additionally
// removes them from the backend queue.
func (s *Supervisor) WaitUntilDone(ctx context.Context, timeout time.Duration) []job.Handle {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		if len(s.Outstanding()) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			outstanding := s.Outstanding()
			s.Cancel(context.Background())
			return outstanding
		case <-deadline.C:
			logging.Warn("timeout after %s with %d job(s) still active", timeout, len(s.Outstanding()))
			return s.Outstanding()
		case <-ticker.C:
		}
	}
}

// Cancel removes all non-terminal jobs from the backend queue and records
// them as Removed. Terminal jobs are left untouched.
func (s *Supervisor) Cancel(ctx context.Context) {
	for _, h := range s.Outstanding() {
		if err := s.gateway.Remove(ctx, h); err != nil {
			logging.Error("failed to remove job %s during cancellation: %v", h, err)
		}
		s.jobs[h].state = job.Removed
	}
}

// Outstanding returns the handles of all non-terminal jobs, ordered by id.
func (s *Supervisor) Outstanding() []job.Handle {
	var handles []job.Handle
	for h, t := range s.jobs {
		if !t.state.Terminal() {
			handles = append(handles, h)
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].ID < handles[j].ID })
	return handles
}

// State returns the last-known state of a tracked job.
func (s *Supervisor) State(h job.Handle) (job.State, bool) {
	t, ok := s.jobs[h]
	if !ok {
		return 0, false
	}
	return t.state, true
}

// Counts returns the current number of jobs per state.
func (s *Supervisor) Counts() job.StatusCounts {
	counts := make(job.StatusCounts)
	for _, t := range s.jobs {
		counts[t.state]++
	}
	return counts
}

// sleepContext waits for d, returning false if ctx is canceled first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
