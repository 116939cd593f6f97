// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "provision.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestDecodes(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `
users: [
	{name: "svc", password: "pw", superuser: true},
	{name: "ro", password: ""},
	{name: "nologin"},
]
databases: [
	{name: "svc_db", owner: "svc"},
	{name: "scratch"},
]
settings: [
	{name: "work_mem", value: "64MB"},
]
initdb_args: ["--data-checksums"]
`)

	m, err := loadManifest(path)
	if err != nil {
		t.Fatalf("loadManifest returned error: %v", err)
	}

	if len(m.Users) != 3 {
		t.Fatalf("users = %+v", m.Users)
	}
	if m.Users[0].Password == nil || *m.Users[0].Password != "pw" || !m.Users[0].Superuser {
		t.Errorf("svc = %+v", m.Users[0])
	}
	if m.Users[1].Password == nil || *m.Users[1].Password != "" {
		t.Errorf("an empty password must decode as set-but-empty: %+v", m.Users[1])
	}
	if m.Users[2].Password != nil {
		t.Errorf("an omitted password must decode as nil: %+v", m.Users[2])
	}
	if m.Users[2].Superuser {
		t.Errorf("superuser must default to false: %+v", m.Users[2])
	}

	if len(m.Databases) != 2 || m.Databases[0].Owner != "svc" || m.Databases[1].Owner != "" {
		t.Errorf("databases = %+v", m.Databases)
	}
	if len(m.Settings) != 1 || m.Settings[0].Value != "64MB" {
		t.Errorf("settings = %+v", m.Settings)
	}
	if len(m.InitDBArgs) != 1 || m.InitDBArgs[0] != "--data-checksums" {
		t.Errorf("initdb_args = %+v", m.InitDBArgs)
	}
}

func TestLoadManifestRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "empty user name",
			content: `users: [{name: ""}]`,
		},
		{
			name:    "unknown field",
			content: `users: [{name: "svc", pasword: "typo"}]`,
		},
		{
			name:    "wrong type",
			content: `settings: [{name: "work_mem", value: 64}]`,
		},
		{
			name:    "empty initdb arg",
			content: `initdb_args: [""]`,
		},
		{
			name:    "syntax error",
			content: `users: [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeManifest(t, tt.content)
			_, err := loadManifest(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, pgspec.ErrConfigParse) {
				t.Errorf("error does not wrap pgspec.ErrConfigParse: %v", err)
			}
			if !strings.Contains(err.Error(), "provision.cue") {
				t.Errorf("error must name the manifest file: %v", err)
			}
		})
	}
}

func TestLoadManifestMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.cue")
	_, err := loadManifest(path)

	var readErr *ManifestReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("error is not a *ManifestReadError: %v", err)
	}
	if readErr.Path != path {
		t.Errorf("Path = %q, want %q", readErr.Path, path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error must expose the underlying cause: %v", err)
	}
	if !errors.Is(err, pgspec.ErrConfigParse) {
		t.Errorf("error does not wrap pgspec.ErrConfigParse: %v", err)
	}
}

func TestFoldManifestAttributesSources(t *testing.T) {
	t.Parallel()

	reg := pgspec.NewRegistry()
	m := &Manifest{
		Users: []ManifestUser{
			{Name: "svc"},
			{Name: "svc"},
		},
	}

	err := foldManifest(reg, "/etc/provision.cue", m)
	if !errors.Is(err, pgspec.ErrDuplicateName) {
		t.Fatalf("expected duplicate error, got: %v", err)
	}

	var dup *pgspec.DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("error is not a *DuplicateNameError: %v", err)
	}
	if dup.Second != "/etc/provision.cue: users[1]" {
		t.Errorf("Second = %q", dup.Second)
	}
}
