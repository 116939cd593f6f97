// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

const trustWarningBody = `Anyone with access to the Postgres port can access
your database as these roles without a password. In
Docker's default configuration, this is effectively
any other container on the same system.

Use "-e POSTGRES_PASSWORD=password" or declare a
password for every user to disable trust access.`

// trustWarningBanner renders the warning printed whenever trust rules were
// appended to the client authentication file.
func trustWarningBanner(trusted []pgspec.RoleName) string {
	names := make([]string, len(trusted))
	for i, role := range trusted {
		names[i] = role.String()
	}

	var b strings.Builder
	b.WriteString("WARNING: Trust authentication is enabled.\n\n")
	b.WriteString("Roles with passwordless access: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n\n")
	b.WriteString(trustWarningBody)

	return warningStyle().Render(b.String())
}

// warningStyle returns the style for the trust warning banner.
func warningStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("#EF4444")).
		Padding(0, 1)
}
