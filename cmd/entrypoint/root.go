// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the container entrypoint CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/lmm-git/docker-postgres-multi/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// rootCmd represents the entrypoint invocation itself. Flag parsing is
	// disabled so the container CMD reaches the server untouched:
	// `docker run image postgres -c max_connections=100` must not be
	// interpreted as entrypoint flags.
	rootCmd = &cobra.Command{
		Use:   "docker-entrypoint [command] [args...]",
		Short: "PostgreSQL entrypoint for multiple users and databases",
		Long: TitleStyle.Render("docker-postgres-multi") + SubtitleStyle.Render(" - PostgreSQL entrypoint for multiple users and databases") + `

The entrypoint provisions the roles, databases and server settings
declared in environment variables when a container starts on an empty
data directory, then replaces itself with the real server process. On
an already initialized data directory provisioning is skipped entirely.

` + SubtitleStyle.Render("Invocation:") + `
  docker-entrypoint postgres         Provision on first run, then exec postgres
  docker-entrypoint --some-flag ...  Same; 'postgres' is prepended
  docker-entrypoint bash             Exec bash, no provisioning
  docker-entrypoint validate         Print the provisioning plan and exit

` + SubtitleStyle.Render("Declarations:") + `
  ` + CmdStyle.Render(`POSTGRES_USERS='app:secret|!admin:masterpw|readonly:'`) + `
  ` + CmdStyle.Render(`POSTGRES_DATABASES='app_db:app|metrics'`) + `
  ` + CmdStyle.Render(`POSTGRES_CONFIGS='max_connections:300'`),
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		RunE:               runEntrypoint,
	}
)

func init() {
	rootCmd.AddCommand(newValidateCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the entrypoint command tree. This is called by main.main().
// It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling.
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version.
	// SIGTERM is what `docker stop` sends while the bootstrap still owns
	// the process; after the handoff the server receives it directly.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
