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

// Package job defines the value types shared by the submission and
// supervision layers: descriptors, handles, states and the error taxonomy.
package job

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Identity names one unit of logical work. Fields are fixed at descriptor
// construction and travel with the job handle through its whole lifecycle.
type Identity struct {
	Task    string
	Version string
	Branch  int
}

func (id Identity) String() string {
	return fmt.Sprintf("%s_%s_%d", id.Task, id.Version, id.Branch)
}

// Resources holds the per-job resource requests.
type Resources struct {
	CPUs       int
	MemoryMB   int
	MaxRuntime time.Duration
}

// Directive is one key/value entry of the submit description. Order matters
// to some backends, so directives are kept as an ordered sequence rather
// than a map. Override marks a directive that is allowed to replace a
// policy-mandated key of the same name.
type Directive struct {
	Key      string
	Value    string
	Override bool
}

// mergeableKeys are directive keys whose duplicate occurrences are combined
// into a single clause instead of being treated as a conflict.
var mergeableKeys = map[string]bool{
	"requirements": true,
}

// MergeableKey reports whether duplicate directives for key are combined
// with a logical AND rather than rejected.
func MergeableKey(key string) bool {
	return mergeableKeys[strings.ToLower(key)]
}

// MergeRequirements combines two requirements clauses with a logical AND.
func MergeRequirements(a, b string) string {
	return fmt.Sprintf("(%s) && (%s)", strings.TrimSpace(a), strings.TrimSpace(b))
}

// DescriptorOptions holds all parameters needed to construct a Descriptor.
type DescriptorOptions struct {
	Task    string
	Version string
	Branch  int

	CPUs       int
	MemoryMB   int
	MaxRuntime time.Duration

	Executable string
	// Bootstrap is the path of a setup script run before the executable.
	// Its contents are never inspected, only passed through.
	Bootstrap string
	// OutputDir is where submission meta data and job output are stored.
	// Must be absolute.
	OutputDir string

	// Directives are backend-specific submit entries appended after the
	// site policy entries.
	Directives []Directive

	// RenderVariables are substituted into all files shipped with the job.
	RenderVariables map[string]string
}

// Descriptor is an immutable description of one unit of batch work. All
// invariants are checked by NewDescriptor; a Descriptor obtained from it is
// safe to share across goroutines.
type Descriptor struct {
	identity   Identity
	resources  Resources
	executable string
	bootstrap  string
	outputDir  string
	directives []Directive
	renderVars map[string]string
}

// NewDescriptor validates opts and constructs an immutable Descriptor.
// Violations are reported as ErrInvalidDescriptor.
func NewDescriptor(opts DescriptorOptions) (*Descriptor, error) {
	if opts.Task == "" {
		return nil, fmt.Errorf("%w: task name must not be empty", ErrInvalidDescriptor)
	}
	if opts.Executable == "" {
		return nil, fmt.Errorf("%w: executable must not be empty", ErrInvalidDescriptor)
	}
	if opts.CPUs <= 0 {
		return nil, fmt.Errorf("%w: cpus must be positive, got %d", ErrInvalidDescriptor, opts.CPUs)
	}
	if opts.MemoryMB <= 0 {
		return nil, fmt.Errorf("%w: memory must be positive, got %d MB", ErrInvalidDescriptor, opts.MemoryMB)
	}
	if opts.MaxRuntime <= 0 {
		return nil, fmt.Errorf("%w: max runtime must be positive, got %s", ErrInvalidDescriptor, opts.MaxRuntime)
	}
	if !filepath.IsAbs(opts.OutputDir) {
		return nil, fmt.Errorf("%w: output directory %q must be absolute", ErrInvalidDescriptor, opts.OutputDir)
	}

	directives, err := normalizeDirectives(opts.Directives)
	if err != nil {
		return nil, err
	}

	renderVars := make(map[string]string, len(opts.RenderVariables))
	for k, v := range opts.RenderVariables {
		renderVars[k] = v
	}

	return &Descriptor{
		identity:   Identity{Task: opts.Task, Version: opts.Version, Branch: opts.Branch},
		resources:  Resources{CPUs: opts.CPUs, MemoryMB: opts.MemoryMB, MaxRuntime: opts.MaxRuntime},
		executable: opts.Executable,
		bootstrap:  opts.Bootstrap,
		outputDir:  opts.OutputDir,
		directives: directives,
		renderVars: renderVars,
	}, nil
}

// normalizeDirectives rejects semantically conflicting duplicate keys and
// merges duplicates of mergeable keys into a single entry, preserving the
// position of the first occurrence.
func normalizeDirectives(in []Directive) ([]Directive, error) {
	out := make([]Directive, 0, len(in))
	index := make(map[string]int)

	for _, d := range in {
		key := strings.ToLower(d.Key)
		prev, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, d)
			continue
		}
		if !MergeableKey(key) {
			return nil, fmt.Errorf("%w: conflicting duplicate directive %q", ErrInvalidDescriptor, d.Key)
		}
		out[prev].Value = MergeRequirements(out[prev].Value, d.Value)
	}
	return out, nil
}

// Identity returns the immutable identity of the work unit.
func (d *Descriptor) Identity() Identity { return d.identity }

// Resources returns the resource requests.
func (d *Descriptor) Resources() Resources { return d.resources }

// Executable returns the path of the job executable.
func (d *Descriptor) Executable() string { return d.executable }

// Bootstrap returns the path of the bootstrap script, or "" if none.
func (d *Descriptor) Bootstrap() string { return d.bootstrap }

// OutputDir returns the absolute output directory.
func (d *Descriptor) OutputDir() string { return d.outputDir }

// Directives returns a copy of the ordered custom directives.
func (d *Descriptor) Directives() []Directive {
	out := make([]Directive, len(d.directives))
	copy(out, d.directives)
	return out
}

// RenderVariables returns a copy of the render-variable mapping.
func (d *Descriptor) RenderVariables() map[string]string {
	out := make(map[string]string, len(d.renderVars))
	for k, v := range d.renderVars {
		out[k] = v
	}
	return out
}
