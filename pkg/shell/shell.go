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

// Package shell executes external commands and captures their output.
package shell

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Result holds the outcome of an executed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Err is set when the command could not be started at all,
	// e.g. the binary is missing from PATH.
	Err error
}

// Command is an external command prepared for execution.
type Command struct {
	name  string
	args  []string
	input string
}

// NewCommand prepares a command for execution.
func NewCommand(name string, args ...string) *Command {
	return &Command{name: name, args: args}
}

// SetInput sets the data piped to the command's stdin.
func (c *Command) SetInput(input string) *Command {
	c.input = input
	return c
}

// ExecuteContext runs the command under the given context and captures
// stdout, stderr and the exit code. A canceled or expired context kills
// the process and is reported through Result.Err.
func (c *Command) ExecuteContext(ctx context.Context) Result {
	logrus.Debugf("executing: %s %s", c.name, strings.Join(c.args, " "))

	cmd := exec.CommandContext(ctx, c.name, c.args...)
	if c.input != "" {
		cmd.Stdin = strings.NewReader(c.input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
	}
	// ProcessState is nil when the command never started
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			res.Err = err
			res.ExitCode = -1
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Err = ctxErr
		}
	}
	return res
}
