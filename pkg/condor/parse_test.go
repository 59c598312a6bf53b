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

package condor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"batch-toolkit/pkg/job"
	"batch-toolkit/pkg/shell"
)

func TestParseSubmitOutput(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
		fails  bool
	}{
		{name: "single proc", stdout: "123.0 - 123.0\n", want: "123.0"},
		{name: "proc range", stdout: "4589.0 - 4589.4", want: "4589.0"},
		{name: "garbage", stdout: "Submitting job(s).", fails: true},
		{name: "empty", stdout: "", fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSubmitOutput(tt.stdout)
			if tt.fails {
				if !errors.Is(err, job.ErrSubmission) {
					t.Errorf("expected ErrSubmission, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSubmitOutput failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseSubmitOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseQueueJSON(t *testing.T) {
	stdout := `[
		{"ClusterId": 100, "ProcId": 0, "JobStatus": 1},
		{"ClusterId": 101, "ProcId": 0, "JobStatus": 2},
		{"ClusterId": 102, "ProcId": 0, "JobStatus": 5},
		{"ClusterId": 103, "ProcId": 0, "JobStatus": 4, "ExitCode": 0, "ExitBySignal": false},
		{"ClusterId": 104, "ProcId": 0, "JobStatus": 4, "ExitCode": 1, "ExitBySignal": false},
		{"ClusterId": 105, "ProcId": 0, "JobStatus": 4, "ExitBySignal": true},
		{"ClusterId": 106, "ProcId": 0, "JobStatus": 3}
	]`

	got, err := parseQueueJSON(stdout)
	if err != nil {
		t.Fatalf("parseQueueJSON failed: %v", err)
	}

	want := map[string]job.State{
		"100.0": job.Pending,
		"101.0": job.Running,
		"102.0": job.Held,
		"103.0": job.Completed,
		"104.0": job.Failed,
		"105.0": job.Failed,
		"106.0": job.Removed,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestParseQueueJSONEmpty(t *testing.T) {
	// condor_q prints nothing when no queried job is in the queue
	got, err := parseQueueJSON("")
	if err != nil {
		t.Fatalf("parseQueueJSON failed on empty output: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no states, got %v", got)
	}
}

func TestClassifySubmitFailure(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{
			name:   "quota",
			stderr: "ERROR: Number of submitted jobs would exceed MAX_JOBS_PER_OWNER",
			want:   job.ErrQuotaExceeded,
		},
		{
			name:   "parse error",
			stderr: "Submit error: Parse error on line 4",
			want:   job.ErrMalformedConfig,
		},
		{
			name:   "connectivity",
			stderr: "ERROR: Failed to connect to local queue manager",
			want:   job.ErrSubmission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifySubmitFailure(shell.Result{ExitCode: 1, Stderr: tt.stderr})
			if !errors.Is(err, tt.want) {
				t.Errorf("classifySubmitFailure(%q) = %v, want %v", tt.stderr, err, tt.want)
			}
		})
	}
}
