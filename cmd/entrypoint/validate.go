// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/lmm-git/docker-postgres-multi/internal/config"
	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"

	"github.com/spf13/cobra"
)

// Icons for plan rendering.
var (
	planSuccessIcon = SuccessStyle.Render("✓")
	planInfoIcon    = SubtitleStyle.Render("•")
	planWarnIcon    = WarningStyle.Render("!")
)

// newValidateCommand creates the `validate` subcommand: a dry run of the
// configuration layer for CI pipelines and compose authors.
func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate provisioning variables and print the resolved plan",
		Long: `Validate provisioning variables and print the resolved plan.

Runs the exact configuration loading of a real startup: the legacy
single-user variables, the provisioning manifest, the delimited
variables and the indexed family are folded in declaration order, with
every malformed entry, duplicate name and unknown owner reported. No
engine is started and no directory is touched.

PGDATA must be set, exactly as it must be for the real startup. Note
that 'validate' is a reserved first argument: a container command named
validate cannot be exec'd through this entrypoint.

Examples:
  docker run --rm -e PGDATA=/tmp/x -e POSTGRES_USERS='app:secret' image validate
  docker compose run --rm db validate`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		// The dry run is a debugging tool, so the full error chain is
		// always shown.
		return reportBootstrapFailure(cmd, err, true)
	}

	printPlan(cmd.OutOrStdout(), cfg)
	return nil
}

// printPlan renders the resolved provisioning plan in apply order. Password
// values never appear; the specs redact themselves.
func printPlan(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, TitleStyle.Render("Provisioning Plan"))
	fmt.Fprintf(w, "%s Data directory: %s\n", planInfoIcon, cfg.DataDir)
	fmt.Fprintf(w, "%s Run directory:  %s\n", planInfoIcon, cfg.RunDir)
	if cfg.ManifestPath != "" {
		fmt.Fprintf(w, "%s Manifest:       %s\n", planInfoIcon, cfg.ManifestPath)
	}
	if len(cfg.InitDBArgs) > 0 {
		fmt.Fprintf(w, "%s initdb args:    %s\n", planInfoIcon, VerboseStyle.Render(strings.Join(cfg.InitDBArgs, " ")))
	}

	reg := cfg.Registry
	if reg.Empty() {
		fmt.Fprintf(w, "\n%s Nothing declared; the engine defaults apply.\n", planInfoIcon)
	}

	if pw := reg.SuperuserPassword(); pw.Declared {
		fmt.Fprintf(w, "\n%s postgres password: %s\n", planInfoIcon, VerboseStyle.Render(pw.String()))
	}

	if users := reg.Users(); len(users) > 0 {
		fmt.Fprintf(w, "\n%s\n", SubtitleStyle.Render("Users:"))
		for _, u := range users {
			fmt.Fprintf(w, "  %s %s\n", planSuccessIcon, u)
		}
	}

	if databases := reg.Databases(); len(databases) > 0 {
		fmt.Fprintf(w, "\n%s\n", SubtitleStyle.Render("Databases:"))
		for _, d := range databases {
			fmt.Fprintf(w, "  %s %s\n", planSuccessIcon, d)
		}
	}

	if settings := reg.Settings(); len(settings) > 0 {
		fmt.Fprintf(w, "\n%s\n", SubtitleStyle.Render("Settings:"))
		for _, s := range settings {
			fmt.Fprintf(w, "  %s %s\n", planSuccessIcon, s)
		}
	}

	if trusted := reg.TrustRoles(); len(trusted) > 0 {
		fmt.Fprintf(w, "\n%s trust login enabled for: %s\n", planWarnIcon, WarningStyle.Render(joinRoles(trusted)))
	}

	fmt.Fprintf(w, "\n%s Configuration is valid.\n", planSuccessIcon)
}

func joinRoles(roles []pgspec.RoleName) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}
