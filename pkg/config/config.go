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

// Package config resolves the process configuration once at startup, from
// an optional YAML file overlaid with environment variables. Constructors
// elsewhere take the resulting struct instead of reading the environment
// themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load. They override file values.
const (
	EnvAnalysisPath     = "ANALYSIS_PATH"
	EnvAnalysisDataPath = "ANALYSIS_DATA_PATH"
	EnvCondorPool       = "CONDOR_POOL"
	EnvCondorSchedd     = "CONDOR_SCHEDD"
)

// Config holds everything the toolkit needs to submit and supervise jobs.
type Config struct {
	// AnalysisPath is the analysis software root, injected as a render
	// variable into all files shipped with a job.
	AnalysisPath string `yaml:"analysis_path"`
	// AnalysisDataPath is the root under which per-job output
	// directories are resolved. Must be absolute.
	AnalysisDataPath string `yaml:"analysis_data_path"`

	// Pool and Schedd address the HTCondor scheduler. Both optional.
	Pool   string `yaml:"pool"`
	Schedd string `yaml:"schedd"`

	// PollInterval is the supervision polling interval.
	PollInterval time.Duration `yaml:"-"`
	// SubmitConcurrency bounds parallel submissions.
	SubmitConcurrency int `yaml:"submit_concurrency"`
	// SubmitRetries bounds resubmission of retryable failures.
	SubmitRetries int `yaml:"submit_retries"`
	// MaxHoldReleases bounds automatic releases of held jobs.
	MaxHoldReleases int `yaml:"max_hold_releases"`
	// EnforceMaxRuntime enables client-side removal of overrunning jobs.
	EnforceMaxRuntime bool `yaml:"enforce_max_runtime"`

	// PollIntervalRaw is the file representation of PollInterval, in
	// time.ParseDuration syntax ("30s", "2m").
	PollIntervalRaw string `yaml:"poll_interval"`
}

// Load reads the optional YAML file at path (empty path skips the file),
// overlays environment variables and validates the result. A validation
// failure here is process-fatal by design: it aborts the run before any
// submission occurs.
func Load(fsys afero.Fs, path string) (*Config, error) {
	cfg := &Config{
		PollInterval:      30 * time.Second,
		SubmitConcurrency: 4,
		SubmitRetries:     3,
		MaxHoldReleases:   3,
	}

	if path != "" {
		content, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if cfg.PollIntervalRaw != "" {
			interval, err := time.ParseDuration(cfg.PollIntervalRaw)
			if err != nil {
				return nil, fmt.Errorf("invalid poll_interval %q in %s: %w", cfg.PollIntervalRaw, path, err)
			}
			cfg.PollInterval = interval
		}
	}

	if v := os.Getenv(EnvAnalysisPath); v != "" {
		cfg.AnalysisPath = v
	}
	if v := os.Getenv(EnvAnalysisDataPath); v != "" {
		cfg.AnalysisDataPath = v
	}
	if v := os.Getenv(EnvCondorPool); v != "" {
		cfg.Pool = v
	}
	if v := os.Getenv(EnvCondorSchedd); v != "" {
		cfg.Schedd = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants required before any job can be submitted.
func (c *Config) Validate() error {
	if c.AnalysisPath == "" {
		return fmt.Errorf("analysis path is not set (file key analysis_path or %s)", EnvAnalysisPath)
	}
	if c.AnalysisDataPath == "" {
		return fmt.Errorf("analysis data path is not set (file key analysis_data_path or %s)", EnvAnalysisDataPath)
	}
	if !filepath.IsAbs(c.AnalysisDataPath) {
		return fmt.Errorf("analysis data path %q must be absolute", c.AnalysisDataPath)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

// RenderVariables returns the environment-derived variables injected into
// every rendered payload.
func (c *Config) RenderVariables() map[string]string {
	return map[string]string{
		"analysis_path": c.AnalysisPath,
	}
}

// OutputDir resolves the output directory for a unit of work from its
// identity parts, mirroring the task/version directory convention of the
// data store.
func (c *Config) OutputDir(parts ...string) string {
	return filepath.Join(append([]string{c.AnalysisDataPath}, parts...)...)
}
