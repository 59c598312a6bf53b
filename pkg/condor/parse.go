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

package condor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"batch-toolkit/pkg/job"
	"batch-toolkit/pkg/shell"
)

// queryAttributes limits the condor_q response to the class ad attributes
// needed for state mapping.
const queryAttributes = "ClusterId,ProcId,JobStatus,ExitCode,ExitBySignal"

// HTCondor JobStatus values, see the condor_q manual.
const (
	statusIdle         = 1
	statusRunning      = 2
	statusRemoved      = 3
	statusCompleted    = 4
	statusHeld         = 5
	statusTransferring = 6
	statusSuspended    = 7
)

// condor_submit -terse prints "<cluster>.<first proc> - <cluster>.<last proc>".
var submitTerseRe = regexp.MustCompile(`^(\d+\.\d+) - \d+\.\d+`)

func parseSubmitOutput(stdout string) (string, error) {
	m := submitTerseRe.FindStringSubmatch(strings.TrimSpace(stdout))
	if m == nil {
		return "", errors.Wrapf(job.ErrSubmission, "cannot parse job id from condor_submit output: %q", strings.TrimSpace(stdout))
	}
	return m[1], nil
}

// queueAd is one job class ad from condor_q -json output.
type queueAd struct {
	ClusterID    int   `json:"ClusterId"`
	ProcID       int   `json:"ProcId"`
	JobStatus    int   `json:"JobStatus"`
	ExitCode     *int  `json:"ExitCode"`
	ExitBySignal *bool `json:"ExitBySignal"`
}

func (ad queueAd) id() string {
	return fmt.Sprintf("%d.%d", ad.ClusterID, ad.ProcID)
}

// parseQueueJSON maps condor_q -json output to states keyed by job id.
func parseQueueJSON(stdout string) (map[string]job.State, error) {
	states := make(map[string]job.State)

	stdout = strings.TrimSpace(stdout)
	// condor_q prints nothing at all when no queried job is in the queue
	if stdout == "" {
		return states, nil
	}

	var ads []queueAd
	if err := json.Unmarshal([]byte(stdout), &ads); err != nil {
		return nil, errors.Wrapf(err, "cannot parse condor_q json output")
	}

	for _, ad := range ads {
		states[ad.id()] = mapJobStatus(ad)
	}
	return states, nil
}

// mapJobStatus translates an HTCondor JobStatus into the toolkit lifecycle.
func mapJobStatus(ad queueAd) job.State {
	switch ad.JobStatus {
	case statusIdle:
		return job.Pending
	case statusRunning, statusTransferring:
		return job.Running
	case statusHeld, statusSuspended:
		return job.Held
	case statusRemoved:
		return job.Removed
	case statusCompleted:
		if ad.ExitBySignal != nil && *ad.ExitBySignal {
			return job.Failed
		}
		if ad.ExitCode != nil && *ad.ExitCode != 0 {
			return job.Failed
		}
		return job.Completed
	default:
		return job.Failed
	}
}

// classifySubmitFailure sorts a nonzero condor_submit exit into the error
// taxonomy: quota rejections and connectivity problems are retryable,
// rejected submit descriptions are not.
func classifySubmitFailure(res shell.Result) error {
	stderr := strings.TrimSpace(res.Stderr)
	s := strings.ToLower(stderr)

	switch {
	case strings.Contains(s, "max_jobs") ||
		strings.Contains(s, "would exceed") ||
		strings.Contains(s, "quota"):
		return errors.Wrapf(job.ErrQuotaExceeded, "condor_submit: %s", stderr)
	case strings.Contains(s, "parse error") ||
		strings.Contains(s, "submit error") ||
		strings.Contains(s, "invalid submit") ||
		strings.Contains(s, "error: on line"):
		return errors.Wrapf(job.ErrMalformedConfig, "condor_submit: %s", stderr)
	default:
		return errors.Wrapf(job.ErrSubmission, "condor_submit exited with code %d: %s", res.ExitCode, stderr)
	}
}
