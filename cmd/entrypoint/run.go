// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lmm-git/docker-postgres-multi/internal/admin"
	"github.com/lmm-git/docker-postgres-multi/internal/config"
	"github.com/lmm-git/docker-postgres-multi/internal/issue"
	"github.com/lmm-git/docker-postgres-multi/internal/pgctl"
	"github.com/lmm-git/docker-postgres-multi/internal/provision"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// serverCommand is the argv[0] that triggers provisioning. Every other
// command is handed off verbatim with no provisioning, matching the stock
// image contract.
const serverCommand = "postgres"

// errNoCommand is the fatal empty-argv error. The container must always say
// what to run; an image CMD of at least ["postgres"] is expected.
var errNoCommand = errors.New("no command given; at least 'postgres' must be specified to start the database")

// runEntrypoint implements the container argv contract:
//
//	(no args)        fatal
//	--flag ...       'postgres' is prepended, then treated as below
//	postgres ...     first-run provisioning, then exec the server
//	anything else    exec'd verbatim, no provisioning
//
// On the postgres path with root privileges the entrypoint fixes directory
// ownership and re-execs itself through gosu as the system account, so the
// bootstrap instance and the final server never run as root.
func runEntrypoint(cmd *cobra.Command, args []string) error {
	args = normalizeArgs(args)
	if len(args) == 0 {
		return reportFailure(cmd, errNoCommand, issue.NoCommandGivenId, false)
	}

	if args[0] != serverCommand {
		return reportFailure(cmd, pgctl.Handoff(args), issue.HandoffFailedId, false)
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return reportBootstrapFailure(cmd, err, false)
	}

	logger := newBootstrapLogger(cfg.Verbose)
	cluster := pgctl.NewCluster(cfg.DataDir, cfg.RunDir,
		pgctl.WithLogger(logger.WithPrefix("pgctl")))

	if os.Geteuid() == 0 {
		// Root: fix ownership first, then re-exec the whole invocation
		// through gosu so everything below runs as the system account.
		if err := cluster.PrepareDirectories(); err != nil {
			return reportBootstrapFailure(cmd, err, cfg.Verbose)
		}
		logger.Debug("re-executing as system account", "account", pgctl.SystemAccount)
		return reportFailure(cmd, pgctl.Handoff(reexecArgv(args)), issue.HandoffFailedId, cfg.Verbose)
	}

	dialer := admin.NewDialer(admin.Options{
		Host:   cfg.RunDir,
		Logger: logger.WithPrefix("admin"),
	})
	provisioner := provision.New(cluster, provision.NewEngineDialer(dialer),
		provision.WithLogger(logger.WithPrefix("provision")))
	if err := provisioner.Run(cmd.Context(), cfg.Registry, cfg.InitDBArgs); err != nil {
		return reportBootstrapFailure(cmd, err, cfg.Verbose)
	}

	return reportFailure(cmd, pgctl.Handoff(args), issue.HandoffFailedId, cfg.Verbose)
}

// normalizeArgs applies the stock image argv rule: a leading long flag means
// "run the server with these flags", so 'postgres' is prepended.
func normalizeArgs(args []string) []string {
	if len(args) > 0 && strings.HasPrefix(args[0], "--") {
		return append([]string{serverCommand}, args...)
	}
	return args
}

// reexecArgv rebuilds the full entrypoint invocation behind gosu so the
// bootstrap continues as the system account with the original arguments.
func reexecArgv(args []string) []string {
	return append([]string{"gosu", pgctl.SystemAccount, os.Args[0]}, args...)
}

// newBootstrapLogger builds the shared entrypoint logger. Debug logging is
// gated by POSTGRES_ENTRYPOINT_VERBOSE through the config layer.
func newBootstrapLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "entrypoint"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// reportFailure renders err with the given issue catalog entry and converts
// it to a bare ExitError: everything worth printing has been printed, so
// cobra must not format the error again. A nil err passes through, which
// keeps `return reportFailure(cmd, pgctl.Handoff(args), ...)` correct even
// though a successful handoff never actually returns.
func reportFailure(cmd *cobra.Command, err error, issueID issue.Id, verbose bool) error {
	if err == nil {
		return nil
	}
	styledMsg := fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	return renderFailure(cmd, newServiceError(err, issueID, styledMsg))
}

// reportBootstrapFailure is reportFailure with the issue ID picked by
// classifying the error chain.
func reportBootstrapFailure(cmd *cobra.Command, err error, verbose bool) error {
	if err == nil {
		return nil
	}
	issueID, styledMsg := classifyBootstrapError(err, verbose)
	return renderFailure(cmd, newServiceError(err, issueID, styledMsg))
}

func renderFailure(cmd *cobra.Command, svcErr *ServiceError) error {
	renderServiceError(cmd.ErrOrStderr(), svcErr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: 1}
}
