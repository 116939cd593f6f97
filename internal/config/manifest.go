// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/lmm-git/docker-postgres-multi/pkg/cueutil"
	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

//go:embed manifest_schema.cue
var manifestSchema string

type (
	// Manifest is the CUE provisioning manifest named by
	// POSTGRES_PROVISION_FILE. It expresses the same declarations as the
	// delimited variables in structured form and is folded into the same
	// registry, so the usual ordering and conflict rules apply.
	Manifest struct {
		Users      []ManifestUser     `json:"users"`
		Databases  []ManifestDatabase `json:"databases"`
		Settings   []ManifestSetting  `json:"settings"`
		InitDBArgs []string           `json:"initdb_args"`
	}

	// ManifestUser is one role declaration. Password is a pointer to keep
	// the tri-state semantics: nil means no login, empty means trust login.
	ManifestUser struct {
		Name      string  `json:"name"`
		Password  *string `json:"password"`
		Superuser bool    `json:"superuser"`
	}

	// ManifestDatabase is one database declaration.
	ManifestDatabase struct {
		Name  string `json:"name"`
		Owner string `json:"owner"`
	}

	// ManifestSetting is one server parameter declaration.
	ManifestSetting struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}

	// ManifestReadError reports a POSTGRES_PROVISION_FILE path that cannot
	// be read. A manifest that was asked for but cannot be loaded always
	// aborts startup.
	ManifestReadError struct {
		Path string
		Err  error
	}
)

func (e *ManifestReadError) Error() string {
	return fmt.Sprintf("%s: cannot read provisioning manifest %s: %v", envManifestPath, e.Path, e.Err)
}

func (e *ManifestReadError) Unwrap() []error { return []error{pgspec.ErrConfigParse, e.Err} }

// loadManifest reads the manifest at path and validates it against the
// embedded schema.
func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestReadError{Path: path, Err: err}
	}

	result, err := cueutil.ParseAndDecodeString[Manifest](manifestSchema, data, "#Manifest", cueutil.WithFilename(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pgspec.ErrConfigParse, err)
	}
	return result.Value, nil
}

// foldManifest hands every manifest declaration to the registry, attributing
// errors to the manifest path and entry index.
func foldManifest(reg *pgspec.Registry, path string, m *Manifest) error {
	for i, u := range m.Users {
		spec := pgspec.UserSpec{Name: pgspec.RoleName(u.Name), Superuser: u.Superuser}
		if u.Password != nil {
			spec.Password = pgspec.NewPassword(*u.Password)
		}
		if err := reg.AddUser(fmt.Sprintf("%s: users[%d]", path, i), spec); err != nil {
			return err
		}
	}

	for i, d := range m.Databases {
		spec := pgspec.DatabaseSpec{Name: pgspec.DatabaseName(d.Name), Owner: pgspec.RoleName(d.Owner)}
		if err := reg.AddDatabase(fmt.Sprintf("%s: databases[%d]", path, i), spec); err != nil {
			return err
		}
	}

	for i, s := range m.Settings {
		spec := pgspec.SettingSpec{Name: pgspec.SettingName(s.Name), Value: s.Value}
		if err := reg.AddSetting(fmt.Sprintf("%s: settings[%d]", path, i), spec); err != nil {
			return err
		}
	}

	return nil
}
