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

// Package run wires configuration, renderer, scheduler gateway and
// supervisor into a complete submit-and-wait workflow.
package run

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"batch-toolkit/pkg/condor"
	"batch-toolkit/pkg/config"
	"batch-toolkit/pkg/job"
	"batch-toolkit/pkg/logging"
	"batch-toolkit/pkg/render"
	"batch-toolkit/pkg/supervisor"
)

// SubmitFileName is the name under which the submit description is kept
// in each job's output directory.
const SubmitFileName = "job.jdl"

// Options holds the parameters of one workflow run.
type Options struct {
	// ConfigFile is the optional YAML config path; environment
	// variables apply on top either way.
	ConfigFile string
	// Site configures the backend policy applied to every job.
	Site render.SiteOptions
	// Descriptors are the work units to submit.
	Descriptors []*job.Descriptor
	// Timeout bounds the supervision phase.
	Timeout time.Duration
}

// Report is the outcome of a workflow run.
type Report struct {
	// Handles are the successfully submitted jobs.
	Handles []job.Handle
	// Failures are descriptors that could not be submitted.
	Failures []supervisor.SubmitFailure
	// Unfinished are jobs still non-terminal when the timeout elapsed.
	Unfinished []job.Handle
	// Counts is the final per-state tally.
	Counts job.StatusCounts
}

// ExecuteRun loads the configuration, connects to the configured HTCondor
// scheduler and runs the workflow to completion. Only a process-fatal
// configuration problem returns an error; per-job failures are reported
// through the Report.
func ExecuteRun(ctx context.Context, fsys afero.Fs, opts Options) (*Report, error) {
	cfg, err := config.Load(fsys, opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	gateway := condor.NewClient(condor.ClientOptions{Pool: cfg.Pool, Schedd: cfg.Schedd})
	return Execute(ctx, fsys, cfg, gateway, opts)
}

// Execute runs the workflow against an already-constructed gateway.
func Execute(ctx context.Context, fsys afero.Fs, cfg *config.Config, gateway supervisor.Gateway, opts Options) (*Report, error) {
	logging.Info("starting batch workflow with %d job(s)", len(opts.Descriptors))

	renderer := render.NewRenderer(render.NewSitePolicy(opts.Site))
	sup := supervisor.New(gateway, renderer, supervisor.Options{
		PollInterval:      cfg.PollInterval,
		SubmitConcurrency: cfg.SubmitConcurrency,
		SubmitRetries:     cfg.SubmitRetries,
		HoldPolicy:        supervisor.ReleaseUpTo(cfg.MaxHoldReleases),
		EnforceMaxRuntime: cfg.EnforceMaxRuntime,
		RenderVariables:   cfg.RenderVariables(),
	})

	if err := writeSubmissionMeta(fsys, renderer, cfg, opts.Descriptors); err != nil {
		return nil, err
	}

	handles, failures := sup.SubmitAll(ctx, opts.Descriptors)
	unfinished := sup.WaitUntilDone(ctx, opts.Timeout)

	report := &Report{
		Handles:    handles,
		Failures:   failures,
		Unfinished: unfinished,
		Counts:     sup.Counts(),
	}
	logging.Info("batch workflow finished: %s", job.SummaryLine(report.Counts, nil))
	return report, nil
}

// writeSubmissionMeta records the rendered submit description and the
// variable-substituted bootstrap script in each job's output directory,
// so a submission can be inspected and reproduced later. A failure here
// is process-fatal: it happens before anything reaches the scheduler.
func writeSubmissionMeta(fsys afero.Fs, renderer *render.Renderer, cfg *config.Config, descriptors []*job.Descriptor) error {
	for _, d := range descriptors {
		rendered, err := renderer.Render(d, cfg.RenderVariables())
		if err != nil {
			return err
		}
		if _, err := render.WriteSubmitFile(fsys, rendered, SubmitFileName); err != nil {
			return err
		}
		if bootstrap := d.Bootstrap(); bootstrap != "" {
			if _, err := render.WriteJobFiles(fsys, rendered, "", []string{bootstrap}); err != nil {
				return err
			}
		}
		logging.Debug("wrote submission meta data for %s to %s", d.Identity(), d.OutputDir())
	}
	return nil
}
