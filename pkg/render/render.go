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

// Package render turns job descriptors into backend submission payloads.
package render

import (
	"fmt"
	"strings"

	"batch-toolkit/pkg/job"
)

// Config is the rendered submission payload for one attempt. It is created
// fresh per submission, never mutated after being handed to the batch
// client, and discarded after submission.
type Config struct {
	JobName    string
	Executable string
	Bootstrap  string
	OutputDir  string

	// Directives is the final ordered directive list: policy entries
	// first, descriptor entries merged in after.
	Directives []job.Directive

	// RenderVariables are substituted into all files shipped with the job.
	RenderVariables map[string]string
}

// Policy supplies the directives a backend site mandates for every job.
// New backends are added by implementing this interface.
type Policy interface {
	Name() string
	Directives(d *job.Descriptor) []job.Directive
}

// HoldOnExitExpression puts a job on hold depending on exit status, signal
// or code, so that failed jobs stay inspectable instead of leaving the queue.
const HoldOnExitExpression = "(ExitBySignal == True) || (ExitStatus != 0) || (ExitCode != 0)"

// SiteOptions configures an HTCondor site policy.
type SiteOptions struct {
	// OSRequirement is a requirements clause forced onto every job,
	// e.g. `(OpSysAndVer =?= "CentOS7")`. Empty disables it.
	OSRequirement string
	// InheritEnvironment copies the full submitter environment into the
	// job (getenv = true).
	InheritEnvironment bool
	// HoldOnNonzeroExit holds jobs that exit by signal or with a nonzero
	// code instead of letting them leave the queue.
	HoldOnNonzeroExit bool
	// RequestRuntime emits a +RequestRuntime entry from the descriptor's
	// max runtime. Sites that schedule standard jobs into opportunistic
	// quota slots want this off, since the entry would pin the job to the
	// dedicated quota.
	RequestRuntime bool
}

// SitePolicy is the HTCondor implementation of Policy.
type SitePolicy struct {
	opts SiteOptions
}

// NewSitePolicy creates a policy from site options.
func NewSitePolicy(opts SiteOptions) *SitePolicy {
	return &SitePolicy{opts: opts}
}

func (p *SitePolicy) Name() string { return "htcondor" }

// Directives returns the policy-mandated entries in submission order.
func (p *SitePolicy) Directives(d *job.Descriptor) []job.Directive {
	res := d.Resources()

	directives := []job.Directive{
		{Key: "universe", Value: "vanilla"},
	}
	if p.opts.OSRequirement != "" {
		directives = append(directives, job.Directive{Key: "requirements", Value: p.opts.OSRequirement})
	}
	if p.opts.InheritEnvironment {
		directives = append(directives, job.Directive{Key: "getenv", Value: "true"})
	}
	if p.opts.HoldOnNonzeroExit {
		directives = append(directives, job.Directive{Key: "on_exit_hold", Value: HoldOnExitExpression})
	}
	directives = append(directives,
		job.Directive{Key: "request_cpus", Value: fmt.Sprintf("%d", res.CPUs)},
		job.Directive{Key: "request_memory", Value: fmt.Sprintf("%d", res.MemoryMB)},
	)
	if p.opts.RequestRuntime {
		// one second below the cap so the request stays within the slot;
		// never below one second
		seconds := int(res.MaxRuntime.Seconds()) - 1
		if seconds < 1 {
			seconds = 1
		}
		directives = append(directives, job.Directive{
			Key:   "+RequestRuntime",
			Value: fmt.Sprintf("%d", seconds),
		})
	}
	return directives
}

// Renderer builds submission configs from descriptors and a site policy.
type Renderer struct {
	policy Policy
}

// NewRenderer creates a Renderer for the given backend policy.
func NewRenderer(policy Policy) *Renderer {
	return &Renderer{policy: policy}
}

// Render merges extraVars into the descriptor's render variables (extraVars
// win on collision) and builds the final ordered directive list. Descriptor
// directives may add to but never silently replace a policy-mandated key;
// a conflicting entry must carry the Override flag or Render fails with
// ErrMalformedConfig. Render is a pure function: identical inputs produce
// identical output, which makes resubmission after a transient failure
// idempotent.
func (r *Renderer) Render(d *job.Descriptor, extraVars map[string]string) (*Config, error) {
	vars := d.RenderVariables()
	for k, v := range extraVars {
		vars[k] = v
	}
	for k, v := range vars {
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%w: render variable %q is empty", job.ErrMalformedConfig, k)
		}
	}

	directives := r.policy.Directives(d)
	index := make(map[string]int, len(directives))
	for i, dir := range directives {
		index[strings.ToLower(dir.Key)] = i
	}

	for _, dir := range d.Directives() {
		key := strings.ToLower(dir.Key)
		prev, mandated := index[key]
		switch {
		case !mandated:
			index[key] = len(directives)
			directives = append(directives, dir)
		case job.MergeableKey(key):
			directives[prev].Value = job.MergeRequirements(directives[prev].Value, dir.Value)
		case dir.Override:
			directives[prev].Value = dir.Value
		default:
			return nil, fmt.Errorf("%w: directive %q conflicts with the %s site policy (set Override to replace it)",
				job.ErrMalformedConfig, dir.Key, r.policy.Name())
		}
	}

	return &Config{
		JobName:         d.Identity().String(),
		Executable:      d.Executable(),
		Bootstrap:       d.Bootstrap(),
		OutputDir:       d.OutputDir(),
		Directives:      directives,
		RenderVariables: vars,
	}, nil
}
