// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/lmm-git/docker-postgres-multi/internal/admin"
	"github.com/lmm-git/docker-postgres-multi/internal/config"
	"github.com/lmm-git/docker-postgres-multi/internal/issue"
	"github.com/lmm-git/docker-postgres-multi/internal/pgctl"
	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// classifyBootstrapError maps bootstrap failures to issue catalog IDs and
// returns a styled message for CLI rendering. It preserves actionable error
// details. Errors outside the catalog keep issue ID zero, which skips the
// help section.
func classifyBootstrapError(err error, verbose bool) (issueID issue.Id, styledMsg string) {
	var (
		envConflict *config.EnvConflictError
		envFile     *config.EnvFileError
		manifest    *config.ManifestReadError
		command     *pgctl.CommandError
	)

	// The typed config errors all wrap ErrConfigParse, so they must be
	// matched before the generic parse case.
	switch {
	case errors.Is(err, config.ErrMissingDataDir):
		issueID = issue.DataDirNotSetId
	case errors.As(err, &envConflict), errors.As(err, &envFile):
		issueID = issue.EnvFileConflictId
	case errors.As(err, &manifest):
		issueID = issue.ManifestErrorId
	case errors.Is(err, pgspec.ErrConfigParse):
		issueID = issue.ConfigParseId
	case errors.As(err, &command):
		if command.Name == "initdb" {
			issueID = issue.InitDBFailedId
		} else {
			issueID = issue.EngineStartFailedId
		}
	case errors.Is(err, admin.ErrDial):
		issueID = issue.EngineConnectFailedId
	case errors.Is(err, admin.ErrProvisioning):
		issueID = issue.ProvisioningRejectedId
	}

	return issueID, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}
