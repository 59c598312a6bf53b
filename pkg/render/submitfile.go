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

package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/afero"
)

// SubmitFileTemplate is the Go template for the HTCondor submit description.
// stdout and stderr are combined into a single stdall.txt; the HTCondor
// event log is not collected since the site keeps it itself.
const SubmitFileTemplate = `batch_name = {{.JobName}}
executable = {{.Executable}}
initialdir = {{.OutputDir}}
output = stdall.txt
error = stdall.txt
should_transfer_files = YES
when_to_transfer_output = ON_EXIT
{{- if .Bootstrap}}
transfer_input_files = {{.Bootstrap}}
{{- end}}
{{- range .Directives}}
{{.Key}} = {{.Value}}
{{- end}}
queue
`

var submitFileTmpl = template.Must(template.New("submitFile").Parse(SubmitFileTemplate))

// SubmitFile serializes the config into an HTCondor submit description.
// Output is byte-identical for identical configs.
func (c *Config) SubmitFile() (string, error) {
	var buf bytes.Buffer
	if err := submitFileTmpl.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("failed to execute submit file template: %w", err)
	}
	return buf.String(), nil
}

// WriteSubmitFile writes the serialized submit description into the
// config's output directory and returns its path.
func WriteSubmitFile(fsys afero.Fs, c *Config, name string) (string, error) {
	content, err := c.SubmitFile()
	if err != nil {
		return "", err
	}
	if err := fsys.MkdirAll(c.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", c.OutputDir, err)
	}
	path := filepath.Join(c.OutputDir, name)
	if err := afero.WriteFile(fsys, path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write submit file %s: %w", path, err)
	}
	return path, nil
}

// InjectVariables substitutes {{key}} placeholders in content. Keys are
// applied in sorted order so the result does not depend on map iteration.
func InjectVariables(content string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		content = strings.ReplaceAll(content, "{{"+k+"}}", vars[k])
	}
	return content
}

// PostfixFile inserts a postfix before the file extension, e.g.
// "bootstrap.sh" with postfix "_0" becomes "bootstrap_0.sh".
func PostfixFile(path, postfix string) string {
	if postfix == "" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + postfix + ext
}

// WriteJobFiles copies the given input files into the config's output
// directory, substituting render variables into each and applying the
// postfix to the copied names. Returns the paths of the written copies.
func WriteJobFiles(fsys afero.Fs, c *Config, postfix string, inputs []string) ([]string, error) {
	if err := fsys.MkdirAll(c.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", c.OutputDir, err)
	}

	var written []string
	for _, src := range inputs {
		content, err := afero.ReadFile(fsys, src)
		if err != nil {
			return nil, fmt.Errorf("failed to read job input file %s: %w", src, err)
		}
		rendered := InjectVariables(string(content), c.RenderVariables)

		dst := filepath.Join(c.OutputDir, PostfixFile(filepath.Base(src), postfix))
		if err := afero.WriteFile(fsys, dst, []byte(rendered), 0644); err != nil {
			return nil, fmt.Errorf("failed to write job input file %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}
