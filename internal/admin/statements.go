// SPDX-License-Identifier: MPL-2.0

package admin

import (
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// quoteIdent renders a role or database name as a quoted SQL identifier.
func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// alterSuperuserPasswordSQL sets the bootstrap superuser's password. Only
// called with a non-empty password: an empty one means trust login, which
// is handled by pg_hba.conf rules instead.
func alterSuperuserPasswordSQL(password string) string {
	return "ALTER USER " + quoteIdent(pgspec.SuperuserRole.String()) +
		" WITH SUPERUSER PASSWORD " + QuoteLiteral(password)
}

// createRoleSQL renders the CREATE USER statement for one declared user.
// The password clause is only present when a login password was declared;
// trust-login users get their access from pg_hba.conf.
func createRoleSQL(u pgspec.UserSpec) string {
	var clauses []string
	if u.Password.IsSet() {
		clauses = append(clauses, "PASSWORD "+QuoteLiteral(u.Password.Value))
	}
	if u.Superuser {
		clauses = append(clauses, "SUPERUSER")
	}

	sql := "CREATE USER " + quoteIdent(u.Name.String())
	if len(clauses) > 0 {
		sql += " WITH " + strings.Join(clauses, " ")
	}
	return sql
}

// createDatabaseSQL renders the CREATE DATABASE statement for one declared
// database. Without an owner the database belongs to the bootstrap
// superuser, which is the engine default.
func createDatabaseSQL(d pgspec.DatabaseSpec) string {
	sql := "CREATE DATABASE " + quoteIdent(d.Name.String())
	if d.Owner != "" {
		sql += " WITH OWNER " + quoteIdent(d.Owner.String())
	}
	return sql
}

// revokePublicSchemaSQL locks the connected database's public schema so
// roles cannot create or use objects in databases they were not granted.
func revokePublicSchemaSQL() string {
	return "REVOKE ALL ON SCHEMA public FROM PUBLIC"
}

// grantPublicSchemaSQL hands the connected database's public schema to its
// owner after the blanket revoke.
func grantPublicSchemaSQL(owner pgspec.RoleName) string {
	return "GRANT ALL ON SCHEMA public TO " + quoteIdent(owner.String())
}

// applySettingSQL renders the ALTER SYSTEM statement for one server
// parameter. The name was validated against the parameter grammar, so it is
// interpolated bare; the value is always a quoted literal.
func applySettingSQL(s pgspec.SettingSpec) string {
	return "ALTER SYSTEM SET " + s.Name.String() + " = " + QuoteLiteral(s.Value)
}
