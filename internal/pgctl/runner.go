// SPDX-License-Identifier: MPL-2.0

package pgctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrCommandFailed is the sentinel error wrapped by CommandError.
var ErrCommandFailed = errors.New("engine command failed")

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// RunnerOption configures a Runner.
	RunnerOption func(*Runner)

	// Runner executes engine binaries. It exists so the commands the
	// entrypoint issues can be inspected in tests and so per-command
	// environment defaults have one place to live.
	Runner struct {
		execCommand ExecCommandFunc
		envDefaults map[string]string
		stdout      io.Writer
		stderr      io.Writer
	}

	// CommandError reports a failed engine command together with the full
	// argument list, which is usually the fastest way to reproduce the
	// failure by hand.
	CommandError struct {
		Name string
		Args []string
		Err  error
	}
)

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() []error { return []error{ErrCommandFailed, e.Err} }

// --- Option Functions ---

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) RunnerOption {
	return func(r *Runner) {
		r.execCommand = fn
	}
}

// WithEnvDefault sets an environment variable on every created command
// unless the command's environment already defines it.
func WithEnvDefault(key, value string) RunnerOption {
	return func(r *Runner) {
		if r.envDefaults == nil {
			r.envDefaults = make(map[string]string)
		}
		r.envDefaults[key] = value
	}
}

// WithOutput redirects command output. Defaults to the process's own
// stdout and stderr, which is where container logs are collected.
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// --- Constructor ---

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		execCommand: exec.CommandContext,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// --- Command Execution ---

// CreateCommand creates an exec.Cmd for the given binary and arguments with
// the runner's environment defaults applied.
func (r *Runner) CreateCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := r.execCommand(ctx, name, args...)
	r.applyEnvDefaults(cmd)
	return cmd
}

// Run executes a command with output attached to the runner's writers and
// waits for it to finish. A non-zero exit is returned as a CommandError.
func (r *Runner) Run(ctx context.Context, name string, args ...string) error {
	cmd := r.CreateCommand(ctx, name, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	if err := cmd.Run(); err != nil {
		return &CommandError{Name: name, Args: args, Err: err}
	}
	return nil
}

// applyEnvDefaults fills in default environment variables on a command.
// A nil cmd.Env means "inherit the process environment", so the defaults
// start from os.Environ(); an explicit cmd.Env (tests) is preserved.
func (r *Runner) applyEnvDefaults(cmd *exec.Cmd) {
	if len(r.envDefaults) == 0 {
		return
	}
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	for key, value := range r.envDefaults {
		if !envContains(env, key) {
			env = append(env, key+"="+value)
		}
	}
	cmd.Env = env
}

func envContains(env []string, key string) bool {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}
	return false
}
