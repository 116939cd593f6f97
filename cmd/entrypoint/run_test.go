// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/lmm-git/docker-postgres-multi/internal/issue"
	"github.com/lmm-git/docker-postgres-multi/internal/testutil"

	"github.com/spf13/cobra"
)

func TestNormalizeArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "empty stays empty",
			args: nil,
			want: nil,
		},
		{
			name: "server command passes through",
			args: []string{"postgres"},
			want: []string{"postgres"},
		},
		{
			name: "leading long flag gets the server prepended",
			args: []string{"--max_connections=100", "-c", "fsync=off"},
			want: []string{"postgres", "--max_connections=100", "-c", "fsync=off"},
		},
		{
			name: "short flag is not a server shorthand",
			args: []string{"-c", "fsync=off"},
			want: []string{"-c", "fsync=off"},
		},
		{
			name: "alternate command passes through",
			args: []string{"bash", "-c", "id"},
			want: []string{"bash", "-c", "id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := normalizeArgs(tt.args)
			if !slices.Equal(got, tt.want) {
				t.Errorf("normalizeArgs(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestReexecArgv(t *testing.T) {
	t.Parallel()

	got := reexecArgv([]string{"postgres", "-c", "fsync=off"})
	want := []string{"gosu", "postgres", os.Args[0], "postgres", "-c", "fsync=off"}

	if !slices.Equal(got, want) {
		t.Errorf("reexecArgv() = %v, want %v", got, want)
	}
}

func TestRunEntrypointNoCommand(t *testing.T) {
	t.Parallel()

	c := &cobra.Command{}
	var stderr bytes.Buffer
	c.SetErr(&stderr)

	err := runEntrypoint(c, nil)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if exitErr.Code != 1 {
		t.Errorf("Code = %d, want 1", exitErr.Code)
	}
	if !c.SilenceUsage || !c.SilenceErrors {
		t.Error("usage and error output should be silenced after rendering")
	}

	out := stderr.String()
	if !strings.Contains(out, "no command given") {
		t.Errorf("stderr missing error text:\n%s", out)
	}
	if !strings.Contains(out, "No command given") {
		t.Errorf("stderr missing the rendered catalog entry:\n%s", out)
	}
}

func TestRunEntrypointAlternateCommandHandoffFailure(t *testing.T) {
	t.Parallel()

	c := &cobra.Command{}
	var stderr bytes.Buffer
	c.SetErr(&stderr)

	// A path that cannot exist, so the exec fails before replacing the
	// test process.
	err := runEntrypoint(c, []string{"/nonexistent/alternate-command"})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("err = %v, want *ExitError with code 1", err)
	}

	out := stderr.String()
	if !strings.Contains(out, "/nonexistent/alternate-command") {
		t.Errorf("stderr missing the failing command:\n%s", out)
	}
	if !strings.Contains(out, "Could not start the requested command") {
		t.Errorf("stderr missing the rendered catalog entry:\n%s", out)
	}
}

func TestRunEntrypointReportsMissingDataDir(t *testing.T) {
	// Not parallel: scrubs the process environment.
	testutil.ScrubEnv(t, "PGDATA", "POSTGRES_")

	c := &cobra.Command{}
	c.SetContext(context.Background())
	var stderr bytes.Buffer
	c.SetErr(&stderr)

	err := runEntrypoint(c, []string{"postgres"})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("err = %v, want *ExitError with code 1", err)
	}

	out := stderr.String()
	if !strings.Contains(out, "PGDATA must be set") {
		t.Errorf("stderr missing error text:\n%s", out)
	}
	if !strings.Contains(out, "PGDATA is not set") {
		t.Errorf("stderr missing the rendered catalog entry:\n%s", out)
	}
}

func TestReportFailureNilError(t *testing.T) {
	t.Parallel()

	c := &cobra.Command{}
	if err := reportFailure(c, nil, issue.HandoffFailedId, false); err != nil {
		t.Errorf("reportFailure(nil) = %v, want nil", err)
	}
	if err := reportBootstrapFailure(c, nil, false); err != nil {
		t.Errorf("reportBootstrapFailure(nil) = %v, want nil", err)
	}
}
