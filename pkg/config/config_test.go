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

package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
)

const configYaml = `
analysis_path: /analysis
analysis_data_path: /data
pool: cm.example.org
poll_interval: 10s
submit_concurrency: 8
`

func TestLoadFromFile(t *testing.T) {
	t.Setenv(EnvAnalysisPath, "")
	t.Setenv(EnvAnalysisDataPath, "")
	t.Setenv(EnvCondorPool, "")
	t.Setenv(EnvCondorSchedd, "")

	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/etc/batch.yaml", []byte(configYaml), 0644); err != nil {
		t.Fatalf("failed to seed config file: %v", err)
	}

	cfg, err := Load(fsys, "/etc/batch.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AnalysisPath != "/analysis" {
		t.Errorf("AnalysisPath = %q", cfg.AnalysisPath)
	}
	if cfg.AnalysisDataPath != "/data" {
		t.Errorf("AnalysisDataPath = %q", cfg.AnalysisDataPath)
	}
	if cfg.Pool != "cm.example.org" {
		t.Errorf("Pool = %q", cfg.Pool)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %s", cfg.PollInterval)
	}
	if cfg.SubmitConcurrency != 8 {
		t.Errorf("SubmitConcurrency = %d", cfg.SubmitConcurrency)
	}
	// untouched fields keep their defaults
	if cfg.SubmitRetries != 3 {
		t.Errorf("SubmitRetries = %d, want default 3", cfg.SubmitRetries)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv(EnvAnalysisPath, "/env/analysis")
	t.Setenv(EnvAnalysisDataPath, "/env/data")
	t.Setenv(EnvCondorPool, "other.example.org")
	t.Setenv(EnvCondorSchedd, "schedd02")

	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/etc/batch.yaml", []byte(configYaml), 0644); err != nil {
		t.Fatalf("failed to seed config file: %v", err)
	}

	cfg, err := Load(fsys, "/etc/batch.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AnalysisPath != "/env/analysis" {
		t.Errorf("AnalysisPath = %q, want env value", cfg.AnalysisPath)
	}
	if cfg.AnalysisDataPath != "/env/data" {
		t.Errorf("AnalysisDataPath = %q, want env value", cfg.AnalysisDataPath)
	}
	if cfg.Pool != "other.example.org" {
		t.Errorf("Pool = %q, want env value", cfg.Pool)
	}
	if cfg.Schedd != "schedd02" {
		t.Errorf("Schedd = %q, want env value", cfg.Schedd)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvAnalysisPath, "/analysis")
	t.Setenv(EnvAnalysisDataPath, "/data")
	t.Setenv(EnvCondorPool, "")
	t.Setenv(EnvCondorSchedd, "")

	cfg, err := Load(afero.NewMemMapFs(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %s, want default 30s", cfg.PollInterval)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name     string
		analysis string
		data     string
	}{
		{name: "missing analysis path", analysis: "", data: "/data"},
		{name: "missing data path", analysis: "/analysis", data: ""},
		{name: "relative data path", analysis: "/analysis", data: "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvAnalysisPath, tt.analysis)
			t.Setenv(EnvAnalysisDataPath, tt.data)

			if _, err := Load(afero.NewMemMapFs(), ""); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestOutputDirAndRenderVariables(t *testing.T) {
	cfg := &Config{AnalysisPath: "/analysis", AnalysisDataPath: "/data"}

	if got, want := cfg.OutputDir("Selection", "v1"), "/data/Selection/v1"; got != want {
		t.Errorf("OutputDir() = %q, want %q", got, want)
	}
	if got := cfg.RenderVariables()["analysis_path"]; got != "/analysis" {
		t.Errorf("render variable analysis_path = %q", got)
	}
}
