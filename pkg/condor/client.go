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

// Package condor talks to an HTCondor scheduler through its command line
// tools. The client is a pure gateway: it keeps no job state between calls.
package condor

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"batch-toolkit/pkg/job"
	"batch-toolkit/pkg/render"
	"batch-toolkit/pkg/shell"
)

// runCommand executes one scheduler tool invocation. Swapped out in tests.
type runCommand func(ctx context.Context, input string, name string, args ...string) shell.Result

func shellRun(ctx context.Context, input string, name string, args ...string) shell.Result {
	cmd := shell.NewCommand(name, args...)
	if input != "" {
		cmd.SetInput(input)
	}
	return cmd.ExecuteContext(ctx)
}

// ClientOptions holds the connection parameters of the scheduler gateway.
type ClientOptions struct {
	// Pool is the central manager to query (-pool). Empty uses the local
	// configuration.
	Pool string
	// Schedd is the scheduler daemon to address (-name). Empty uses the
	// local schedd.
	Schedd string
}

// Client submits and supervises jobs via condor_submit, condor_q,
// condor_hold, condor_release and condor_rm.
type Client struct {
	opts ClientOptions
	run  runCommand
}

// NewClient creates a Client for the given scheduler.
func NewClient(opts ClientOptions) *Client {
	return &Client{opts: opts, run: shellRun}
}

// locationArgs returns the -pool/-name arguments shared by all tools.
func (c *Client) locationArgs() []string {
	var args []string
	if c.opts.Pool != "" {
		args = append(args, "-pool", c.opts.Pool)
	}
	if c.opts.Schedd != "" {
		args = append(args, "-name", c.opts.Schedd)
	}
	return args
}

// Submit pipes the rendered submit description into condor_submit and
// returns the handle of the created job. Failures are classified into the
// retryable ErrSubmission/ErrQuotaExceeded and the non-retryable
// ErrMalformedConfig.
func (c *Client) Submit(ctx context.Context, cfg *render.Config, identity job.Identity) (job.Handle, error) {
	content, err := cfg.SubmitFile()
	if err != nil {
		return job.Handle{}, errors.Wrapf(job.ErrMalformedConfig, "failed to serialize submit description: %v", err)
	}

	args := append(c.locationArgs(), "-terse", "-")
	res := c.run(ctx, content, "condor_submit", args...)
	if res.Err != nil {
		return job.Handle{}, errors.Wrapf(job.ErrSubmission, "condor_submit did not run: %v", res.Err)
	}
	if res.ExitCode != 0 {
		return job.Handle{}, classifySubmitFailure(res)
	}

	id, err := parseSubmitOutput(res.Stdout)
	if err != nil {
		return job.Handle{}, err
	}
	logrus.Debugf("submitted job %s as %s", identity, id)
	return job.Handle{ID: id, Identity: identity}, nil
}

// Poll queries the states of all given handles in a single condor_q round
// trip. Handles unknown to the scheduler are reported as Removed, never as
// an error. An empty handle set returns an empty mapping without touching
// the scheduler.
func (c *Client) Poll(ctx context.Context, handles []job.Handle) (map[job.Handle]job.State, error) {
	states := make(map[job.Handle]job.State, len(handles))
	if len(handles) == 0 {
		return states, nil
	}

	args := c.locationArgs()
	for _, h := range handles {
		args = append(args, h.ID)
	}
	args = append(args, "-json", "-attributes", queryAttributes)

	res := c.run(ctx, "", "condor_q", args...)
	if res.Err != nil {
		return nil, errors.Wrapf(res.Err, "condor_q did not run")
	}
	if res.ExitCode != 0 {
		return nil, errors.Errorf("condor_q failed with exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	polled, err := parseQueueJSON(res.Stdout)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		state, known := polled[h.ID]
		if !known {
			state = job.Removed
		}
		states[h] = state
	}
	return states, nil
}

// Hold puts a job on hold. Holding an already-held or vanished job is a
// no-op.
func (c *Client) Hold(ctx context.Context, h job.Handle) error {
	return c.jobControl(ctx, "condor_hold", h)
}

// Release releases a held job. Releasing a job that is not held or has
// vanished is a no-op.
func (c *Client) Release(ctx context.Context, h job.Handle) error {
	return c.jobControl(ctx, "condor_release", h)
}

// Remove removes a job from the queue. Removing an already-removed job is
// a no-op.
func (c *Client) Remove(ctx context.Context, h job.Handle) error {
	return c.jobControl(ctx, "condor_rm", h)
}

func (c *Client) jobControl(ctx context.Context, tool string, h job.Handle) error {
	args := append(c.locationArgs(), h.ID)
	res := c.run(ctx, "", tool, args...)
	if res.Err != nil {
		return errors.Wrapf(res.Err, "%s did not run", tool)
	}
	if res.ExitCode != 0 && !benignControlFailure(res.Stderr) {
		return errors.Errorf("%s %s failed with exit code %d: %s", tool, h.ID, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// benignControlFailure detects hold/release/remove failures that only mean
// the job is already in the requested state or gone from the queue.
func benignControlFailure(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{
		"couldn't find",
		"not found",
		"already held",
		"not held",
		"marked for removal",
		"already been removed",
	} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
