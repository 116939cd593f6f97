// SPDX-License-Identifier: MPL-2.0

package pgctl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// hbaFileName is the client authentication file initdb writes into the data
// directory.
const hbaFileName = "pg_hba.conf"

// authRules renders the authentication lines appended after initdb: one
// trust line per passwordless role, then the catch-all that gives every
// other role password access from any address. Role names are quoted so a
// role that happens to be named like an hba keyword ("all") cannot widen
// the rule to every user.
func authRules(trusted []pgspec.RoleName) []string {
	rules := make([]string, 0, len(trusted)+1)
	for _, role := range trusted {
		rules = append(rules, fmt.Sprintf(`host all "%s" all trust`, role))
	}
	return append(rules, "host all all all md5")
}

// AppendAuthRules appends the rendered rules to pg_hba.conf. Must run after
// InitDB created the file and before Start, or the bootstrap instance would
// have to be reloaded to pick the rules up.
func (c *Cluster) AppendAuthRules(trusted []pgspec.RoleName) error {
	path := filepath.Join(c.dataDir, hbaFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	for _, rule := range authRules(trusted) {
		if _, err := fmt.Fprintln(f, rule); err != nil {
			f.Close()
			return fmt.Errorf("append to %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
