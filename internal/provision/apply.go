// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// ApplyRegistry issues the declared statements over administrative channels
// in declaration order: the superuser password override first, then roles,
// then the public schema lockdown of the default database, then databases
// with their own lockdown and owner grant, then server settings. The first
// rejected statement aborts the pass; statements are individually atomic,
// so there is nothing to roll back.
func ApplyRegistry(ctx context.Context, dial Dialer, reg *pgspec.Registry, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ch, err := dial.Dial(ctx, pgspec.DefaultDatabase)
	if err != nil {
		return err
	}
	defer ch.Close(ctx)

	if pw := reg.SuperuserPassword(); pw.IsSet() {
		logger.Debug("setting bootstrap superuser password")
		if err := ch.AlterSuperuserPassword(ctx, pw.Value); err != nil {
			return err
		}
	}

	for _, u := range reg.Users() {
		logger.Debug("creating role", "name", u.Name, "superuser", u.Superuser, "password", u.Password)
		if err := ch.CreateRole(ctx, u); err != nil {
			return err
		}
	}

	// The default database gets the same public schema lockdown as every
	// provisioned database. Its owner is the bootstrap superuser, who keeps
	// access regardless, so no grant follows.
	if err := ch.RevokePublicSchema(ctx); err != nil {
		return err
	}

	for _, d := range reg.Databases() {
		logger.Debug("creating database", "name", d.Name, "owner", d.Owner)
		if err := ch.CreateDatabase(ctx, d); err != nil {
			return err
		}
		if err := lockDownDatabase(ctx, dial, d); err != nil {
			return err
		}
	}

	for _, s := range reg.Settings() {
		logger.Debug("applying server setting", "name", s.Name, "value", s.Value)
		if err := ch.ApplySetting(ctx, s); err != nil {
			return err
		}
	}

	return nil
}

// lockDownDatabase connects to a freshly created database, revokes the
// default public schema privileges and grants them back to the owner alone.
func lockDownDatabase(ctx context.Context, dial Dialer, d pgspec.DatabaseSpec) error {
	ch, err := dial.Dial(ctx, d.Name)
	if err != nil {
		return err
	}
	defer ch.Close(ctx)

	if err := ch.RevokePublicSchema(ctx); err != nil {
		return err
	}
	if d.Owner != "" {
		return ch.GrantPublicSchema(ctx, d.Owner)
	}
	return nil
}
