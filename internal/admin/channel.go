// SPDX-License-Identifier: MPL-2.0

package admin

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// Channel is one administrative connection. Schema-level statements
// (REVOKE/GRANT) act on the database the channel is connected to; the
// cluster-level statements can be issued from any channel.
type Channel struct {
	conn     *pgx.Conn
	database pgspec.DatabaseName
}

// Database returns the database this channel is connected to.
func (ch *Channel) Database() pgspec.DatabaseName { return ch.database }

// Close terminates the connection.
func (ch *Channel) Close(ctx context.Context) error {
	return ch.conn.Close(ctx)
}

// AlterSuperuserPassword sets the bootstrap superuser's login password.
func (ch *Channel) AlterSuperuserPassword(ctx context.Context, password string) error {
	return ch.exec(ctx, "set password of role", pgspec.SuperuserRole.String(), alterSuperuserPasswordSQL(password))
}

// CreateRole creates one declared user.
func (ch *Channel) CreateRole(ctx context.Context, u pgspec.UserSpec) error {
	return ch.exec(ctx, "create role", u.Name.String(), createRoleSQL(u))
}

// CreateDatabase creates one declared database.
func (ch *Channel) CreateDatabase(ctx context.Context, d pgspec.DatabaseSpec) error {
	return ch.exec(ctx, "create database", d.Name.String(), createDatabaseSQL(d))
}

// RevokePublicSchema revokes the default public-schema privileges on the
// connected database.
func (ch *Channel) RevokePublicSchema(ctx context.Context) error {
	return ch.exec(ctx, "revoke public schema access on", ch.database.String(), revokePublicSchemaSQL())
}

// GrantPublicSchema grants the connected database's public schema to its
// owner.
func (ch *Channel) GrantPublicSchema(ctx context.Context, owner pgspec.RoleName) error {
	return ch.exec(ctx, "grant public schema access to", owner.String(), grantPublicSchemaSQL(owner))
}

// ApplySetting persists one server parameter through ALTER SYSTEM. The
// value takes effect when the real server process starts.
func (ch *Channel) ApplySetting(ctx context.Context, s pgspec.SettingSpec) error {
	return ch.exec(ctx, "apply server setting", s.Name.String(), applySettingSQL(s))
}

func (ch *Channel) exec(ctx context.Context, op, object, sql string) error {
	if _, err := ch.conn.Exec(ctx, sql); err != nil {
		return &OperationError{Op: op, Object: object, Database: ch.database.String(), Err: err}
	}
	return nil
}
