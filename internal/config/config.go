// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"slices"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"

	"mvdan.cc/sh/v3/shell"
)

// ErrLegacyDatabaseWithoutUser is returned when POSTGRES_DATABASE is set
// without POSTGRES_USER. The variable only flags that a database named after
// the legacy user should exist, so without a user there is nothing to name
// it after.
var ErrLegacyDatabaseWithoutUser = fmt.Errorf("%w: POSTGRES_DATABASE requires POSTGRES_USER", pgspec.ErrConfigParse)

type (
	// Config is the fully validated provisioning plan plus the runtime
	// options the cluster lifecycle needs.
	Config struct {
		// DataDir is the cluster data directory (PGDATA).
		DataDir string
		// RunDir is the socket and lock directory.
		RunDir string
		// Verbose enables debug logging.
		Verbose bool
		// InitDBArgs are extra initdb arguments: manifest args first, then
		// POSTGRES_INITDB_ARGS split with shell word rules.
		InitDBArgs []string
		// ManifestPath is the provisioning manifest that was folded in, if
		// any.
		ManifestPath string
		// Registry holds every declaration in apply order.
		Registry *pgspec.Registry
	}

	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// Lookup overrides the process environment for the provisioning
		// variables, usually with a map in tests. Runtime options (PGDATA
		// and friends) always come from the process environment.
		Lookup LookupFunc
	}
)

// Load reads and validates the whole provisioning configuration from the
// process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWithOptions(ctx, LoadOptions{})
}

// LoadWithOptions performs option-driven config loading. Sources are folded
// into the registry in a fixed order (legacy single-user variables, the
// manifest, the delimited variables, then the indexed family) so apply
// order and duplicate attribution are stable no matter how the declarations
// are spread across sources.
func LoadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	runtime, err := loadRuntimeOptions()
	if err != nil {
		return nil, err
	}

	src := NewSource()
	if opts.Lookup != nil {
		src = NewSourceFrom(opts.Lookup)
	}

	vars, err := resolveVariables(ctx, src)
	if err != nil {
		return nil, err
	}

	reg := pgspec.NewRegistry()
	cfg := &Config{
		DataDir:  runtime.DataDir,
		RunDir:   runtime.RunDir,
		Verbose:  runtime.Verbose,
		Registry: reg,
	}

	// Legacy single-user variables. The user is always a superuser and the
	// database variable is a flag: any value asks for a database named after
	// the legacy user, owned by it.
	if vars.LegacyUser != nil {
		spec := pgspec.UserSpec{Name: pgspec.RoleName(*vars.LegacyUser), Superuser: true}
		if vars.LegacyPassword != nil {
			spec.Password = pgspec.NewPassword(*vars.LegacyPassword)
		}
		if err := reg.AddUser(envLegacyUser, spec); err != nil {
			return nil, err
		}
	}
	if vars.LegacyDatabase != nil {
		if vars.LegacyUser == nil {
			return nil, ErrLegacyDatabaseWithoutUser
		}
		db := pgspec.DatabaseSpec{
			Name:  pgspec.DatabaseName(*vars.LegacyUser),
			Owner: pgspec.RoleName(*vars.LegacyUser),
		}
		if err := reg.AddDatabase(envLegacyDatabase, db); err != nil {
			return nil, err
		}
	}

	// Manifest.
	var manifestArgs []string
	if vars.ManifestPath != "" {
		manifest, err := loadManifest(vars.ManifestPath)
		if err != nil {
			return nil, err
		}
		if err := foldManifest(reg, vars.ManifestPath, manifest); err != nil {
			return nil, err
		}
		manifestArgs = manifest.InitDBArgs
		cfg.ManifestPath = vars.ManifestPath
	}

	// Delimited variables.
	users, err := pgspec.ParseUsers(envUsers, vars.Users)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if err := reg.AddUser(envUsers, u); err != nil {
			return nil, err
		}
	}

	databases, err := pgspec.ParseDatabases(envDatabases, vars.Databases)
	if err != nil {
		return nil, err
	}
	for _, d := range databases {
		if err := reg.AddDatabase(envDatabases, d); err != nil {
			return nil, err
		}
	}

	settings, err := pgspec.ParseSettings(envSettings, vars.Settings)
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		if err := reg.AddSetting(envSettings, s); err != nil {
			return nil, err
		}
	}

	// Indexed variables.
	indexed, err := walkIndexedUsers(src)
	if err != nil {
		return nil, err
	}
	for _, block := range indexed {
		if err := reg.AddUser(block.Source, block.User); err != nil {
			return nil, err
		}
		for _, name := range block.Databases {
			db := pgspec.DatabaseSpec{Name: name, Owner: block.User.Name}
			if err := reg.AddDatabase(block.DatabasesSource, db); err != nil {
				return nil, err
			}
		}
	}

	if err := reg.Finalize(); err != nil {
		return nil, err
	}

	extraArgs, err := shell.Fields(vars.InitDBArgs, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pgspec.ErrConfigParse, envInitDBArgs, err)
	}
	cfg.InitDBArgs = slices.Concat(manifestArgs, extraArgs)

	return cfg, nil
}
