// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"

	"github.com/sethvargo/go-envconfig"
)

// Fixed provisioning variables. Every one of them supports the <VAR>_FILE
// indirection described on FileSuffix.
const (
	envLegacyUser     = "POSTGRES_USER"
	envLegacyPassword = "POSTGRES_PASSWORD"
	envLegacyDatabase = "POSTGRES_DATABASE"
	envUsers          = "POSTGRES_USERS"
	envDatabases      = "POSTGRES_DATABASES"
	envSettings       = "POSTGRES_CONFIGS"
	envInitDBArgs     = "POSTGRES_INITDB_ARGS"
	envManifestPath   = "POSTGRES_PROVISION_FILE"
)

// Indexed variable prefixes, completed with a decimal index starting at 0.
const (
	envIndexedUserPrefix      = "POSTGRES_USER_"
	envIndexedPasswordPrefix  = "POSTGRES_PASSWORD_"
	envIndexedSuperuserPrefix = "POSTGRES_SUPERUSER_"
	envIndexedDatabasesPrefix = "POSTGRES_DATABASES_"
)

// superuserFlagValue is the only value that turns an indexed user into a
// superuser.
const superuserFlagValue = "1"

var fixedVars = []string{
	envLegacyUser,
	envLegacyPassword,
	envLegacyDatabase,
	envUsers,
	envDatabases,
	envSettings,
	envInitDBArgs,
	envManifestPath,
}

type (
	// variables is the typed view of the fixed provisioning variables.
	// Pointer fields distinguish unset from empty, which the tri-state
	// password semantics depend on; noinit keeps them nil when the
	// variable is absent.
	variables struct {
		LegacyUser     *string `env:"POSTGRES_USER, noinit"`
		LegacyPassword *string `env:"POSTGRES_PASSWORD, noinit"`
		LegacyDatabase *string `env:"POSTGRES_DATABASE, noinit"`
		Users          string  `env:"POSTGRES_USERS"`
		Databases      string  `env:"POSTGRES_DATABASES"`
		Settings       string  `env:"POSTGRES_CONFIGS"`
		InitDBArgs     string  `env:"POSTGRES_INITDB_ARGS"`
		ManifestPath   string  `env:"POSTGRES_PROVISION_FILE"`
	}

	// indexedUser is one decoded POSTGRES_USER_<n> block: the user itself
	// plus the databases it owns. The two source fields keep error messages
	// pointing at the exact variable that declared the offending entry.
	indexedUser struct {
		Source          string
		DatabasesSource string
		User            pgspec.UserSpec
		Databases       []pgspec.DatabaseName
	}
)

// resolveVariables pre-resolves the fixed variables through the Source, so
// file indirection, conflict detection and trimming all apply, then decodes
// the resulting map with envconfig.
func resolveVariables(ctx context.Context, src *Source) (*variables, error) {
	values := make(map[string]string, len(fixedVars))
	for _, name := range fixedVars {
		value, ok, err := src.Lookup(name)
		if err != nil {
			return nil, err
		}
		if ok {
			values[name] = value
		}
	}

	var vars variables
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &vars,
		Lookuper: envconfig.MapLookuper(values),
	}); err != nil {
		return nil, fmt.Errorf("decode provisioning variables: %w", err)
	}
	return &vars, nil
}

// walkIndexedUsers reads the POSTGRES_USER_<n> family starting at 0 and
// stops at the first missing index. Blocks after a gap are ignored, matching
// the documented contract that blocks are numbered consecutively.
func walkIndexedUsers(src *Source) ([]indexedUser, error) {
	var users []indexedUser
	for i := 0; ; i++ {
		suffix := strconv.Itoa(i)
		userVar := envIndexedUserPrefix + suffix

		name, ok, err := src.Lookup(userVar)
		if err != nil {
			return nil, err
		}
		if !ok {
			return users, nil
		}

		spec := pgspec.UserSpec{Name: pgspec.RoleName(name)}

		password, ok, err := src.Lookup(envIndexedPasswordPrefix + suffix)
		if err != nil {
			return nil, err
		}
		if ok {
			spec.Password = pgspec.NewPassword(password)
		}

		superuser, _, err := src.Lookup(envIndexedSuperuserPrefix + suffix)
		if err != nil {
			return nil, err
		}
		spec.Superuser = superuser == superuserFlagValue

		databasesVar := envIndexedDatabasesPrefix + suffix
		rawDatabases, _, err := src.Lookup(databasesVar)
		if err != nil {
			return nil, err
		}
		databases, err := pgspec.ParseDatabaseNames(databasesVar, rawDatabases)
		if err != nil {
			return nil, err
		}

		users = append(users, indexedUser{
			Source:          userVar,
			DatabasesSource: databasesVar,
			User:            spec,
			Databases:       databases,
		})
	}
}
