// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/lmm-git/docker-postgres-multi/internal/testutil"
	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// loadWithEnv runs LoadWithOptions against a map-backed environment for the
// provisioning variables. PGDATA is set via t.Setenv because the runtime
// options always read the process environment.
func loadWithEnv(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	t.Setenv("PGDATA", "/var/lib/postgresql/data")
	return LoadWithOptions(context.Background(), LoadOptions{Lookup: mapLookup(env)})
}

func roleNames(users []pgspec.UserSpec) []pgspec.RoleName {
	names := make([]pgspec.RoleName, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	return names
}

func TestLoadRequiresDataDir(t *testing.T) {
	testutil.Unsetenv(t, "PGDATA")

	_, err := LoadWithOptions(context.Background(), LoadOptions{Lookup: mapLookup(nil)})
	if !errors.Is(err, ErrMissingDataDir) {
		t.Fatalf("expected ErrMissingDataDir, got: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	// The host environment must not leak into the default assertions.
	testutil.ScrubEnv(t, "POSTGRES_RUN_DIR", "POSTGRES_ENTRYPOINT_VERBOSE")

	cfg, err := loadWithEnv(t, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DataDir != "/var/lib/postgresql/data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.RunDir != DefaultRunDir {
		t.Errorf("RunDir = %q, want default %q", cfg.RunDir, DefaultRunDir)
	}
	if cfg.Verbose {
		t.Error("Verbose must default to false")
	}
	if !cfg.Registry.Empty() {
		t.Error("registry must be empty without provisioning variables")
	}
	if len(cfg.InitDBArgs) != 0 {
		t.Errorf("InitDBArgs = %v", cfg.InitDBArgs)
	}
}

func TestLoadRuntimeOverrides(t *testing.T) {
	t.Setenv("POSTGRES_RUN_DIR", "/tmp/pgrun")
	t.Setenv("POSTGRES_ENTRYPOINT_VERBOSE", "1")

	cfg, err := loadWithEnv(t, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RunDir != "/tmp/pgrun" {
		t.Errorf("RunDir = %q", cfg.RunDir)
	}
	if !cfg.Verbose {
		t.Error("Verbose must honor POSTGRES_ENTRYPOINT_VERBOSE=1")
	}
}

func TestLoadLegacyVariables(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_USER":     "app",
		"POSTGRES_PASSWORD": "pw",
		"POSTGRES_DATABASE": "yes",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	users := cfg.Registry.Users()
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %v", users)
	}
	if users[0].Name != "app" || !users[0].Superuser {
		t.Errorf("legacy user must be a superuser: %+v", users[0])
	}
	if !users[0].Password.IsSet() || users[0].Password.Value != "pw" {
		t.Errorf("legacy password not captured: %+v", users[0].Password)
	}

	// The POSTGRES_DATABASE value is only a flag: the database is named
	// after the legacy user and owned by it.
	dbs := cfg.Registry.Databases()
	want := []pgspec.DatabaseSpec{{Name: "app", Owner: "app"}}
	if !reflect.DeepEqual(dbs, want) {
		t.Errorf("Databases() = %+v, want %+v", dbs, want)
	}
}

func TestLoadLegacyDatabaseRequiresUser(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"POSTGRES_DATABASE": "1",
	})
	if !errors.Is(err, ErrLegacyDatabaseWithoutUser) {
		t.Fatalf("expected ErrLegacyDatabaseWithoutUser, got: %v", err)
	}
}

func TestLoadLegacyPostgresUserBecomesOverride(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_USER":     "postgres",
		"POSTGRES_PASSWORD": "root",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(cfg.Registry.Users()) != 0 {
		t.Errorf("postgres must not be scheduled for CREATE: %v", cfg.Registry.Users())
	}
	if pw := cfg.Registry.SuperuserPassword(); !pw.IsSet() || pw.Value != "root" {
		t.Errorf("superuser password override = %+v", pw)
	}
}

func TestLoadDelimitedVariables(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_USERS":     "user1:pass1|!user2:",
		"POSTGRES_DATABASES": "db1:user1|db2:user1|db3",
		"POSTGRES_CONFIGS":   "max_connections:300|log_statement:all",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	users := cfg.Registry.Users()
	if got := roleNames(users); !reflect.DeepEqual(got, []pgspec.RoleName{"user1", "user2"}) {
		t.Fatalf("users = %v", got)
	}
	if users[1].Superuser != true || !users[1].Password.IsTrust() {
		t.Errorf("user2 must be a trust-login superuser: %+v", users[1])
	}

	dbs := cfg.Registry.Databases()
	wantDBs := []pgspec.DatabaseSpec{
		{Name: "db1", Owner: "user1"},
		{Name: "db2", Owner: "user1"},
		{Name: "db3"},
	}
	if !reflect.DeepEqual(dbs, wantDBs) {
		t.Errorf("databases = %+v, want %+v", dbs, wantDBs)
	}

	settings := cfg.Registry.Settings()
	wantSettings := []pgspec.SettingSpec{
		{Name: "max_connections", Value: "300"},
		{Name: "log_statement", Value: "all"},
	}
	if !reflect.DeepEqual(settings, wantSettings) {
		t.Errorf("settings = %+v, want %+v", settings, wantSettings)
	}
}

func TestLoadIndexedVariables(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_USER_0":      "user1",
		"POSTGRES_PASSWORD_0":  "pass1",
		"POSTGRES_DATABASES_0": "db1|db2",
		"POSTGRES_USER_1":      "user2",
		"POSTGRES_PASSWORD_1":  "",
		"POSTGRES_SUPERUSER_1": "1",
		// Index 3 is unreachable because index 2 is missing.
		"POSTGRES_USER_3": "ghost",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	users := cfg.Registry.Users()
	if got := roleNames(users); !reflect.DeepEqual(got, []pgspec.RoleName{"user1", "user2"}) {
		t.Fatalf("users = %v (the block after the gap must be ignored)", got)
	}
	if !users[1].Password.IsTrust() || !users[1].Superuser {
		t.Errorf("user2 = %+v", users[1])
	}

	dbs := cfg.Registry.Databases()
	wantDBs := []pgspec.DatabaseSpec{
		{Name: "db1", Owner: "user1"},
		{Name: "db2", Owner: "user1"},
	}
	if !reflect.DeepEqual(dbs, wantDBs) {
		t.Errorf("databases = %+v, want %+v", dbs, wantDBs)
	}
}

func TestLoadIndexedSuperuserFlagIsExact(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_USER_0":      "u0",
		"POSTGRES_SUPERUSER_0": "true",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Registry.Users()[0].Superuser {
		t.Error(`only "1" may enable the superuser flag`)
	}
}

func TestLoadRejectsDuplicatesAcrossSources(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"POSTGRES_USER":   "app",
		"POSTGRES_USER_0": "app",
	})
	if !errors.Is(err, pgspec.ErrDuplicateName) {
		t.Fatalf("expected duplicate error, got: %v", err)
	}
}

func TestLoadRejectsUnknownOwner(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"POSTGRES_DATABASES": "db1:ghost",
	})
	if !errors.Is(err, pgspec.ErrUnknownOwner) {
		t.Fatalf("expected unknown owner error, got: %v", err)
	}
}

func TestLoadAcceptsOwnerFromLaterSource(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_DATABASES": "db1:late",
		"POSTGRES_USER_0":    "late",
	})
	if err != nil {
		t.Fatalf("owner declared by a later source must be accepted: %v", err)
	}
	if dbs := cfg.Registry.Databases(); dbs[0].Owner != "late" {
		t.Errorf("databases = %+v", dbs)
	}
}

func TestLoadInitDBArgs(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_INITDB_ARGS": `--locale="en_US.UTF-8" --data-checksums`,
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := []string{"--locale=en_US.UTF-8", "--data-checksums"}
	if !reflect.DeepEqual(cfg.InitDBArgs, want) {
		t.Errorf("InitDBArgs = %v, want %v", cfg.InitDBArgs, want)
	}
}

func TestLoadInitDBArgsRejectsUnbalancedQuote(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"POSTGRES_INITDB_ARGS": `--locale="broken`,
	})
	if err == nil {
		t.Fatal("expected error for unbalanced quote")
	}
	if !errors.Is(err, pgspec.ErrConfigParse) {
		t.Errorf("error does not wrap pgspec.ErrConfigParse: %v", err)
	}
}

func TestLoadPasswordFileIndirection(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(secret, []byte("filesecret\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_USER":          "app",
		"POSTGRES_PASSWORD_FILE": secret,
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	users := cfg.Registry.Users()
	if !users[0].Password.IsSet() || users[0].Password.Value != "filesecret" {
		t.Errorf("file-backed password not applied: %+v", users[0].Password)
	}
}

func TestLoadManifest(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "provision.cue")
	content := `
users: [
	{name: "svc", password: "pw"},
	{name: "ro", password: ""},
]
databases: [
	{name: "svc_db", owner: "svc"},
]
settings: [
	{name: "work_mem", value: "64MB"},
]
initdb_args: ["--data-checksums"]
`
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	cfg, err := loadWithEnv(t, map[string]string{
		"POSTGRES_PROVISION_FILE": manifest,
		"POSTGRES_INITDB_ARGS":    "--locale=C",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ManifestPath != manifest {
		t.Errorf("ManifestPath = %q", cfg.ManifestPath)
	}

	users := cfg.Registry.Users()
	if got := roleNames(users); !reflect.DeepEqual(got, []pgspec.RoleName{"svc", "ro"}) {
		t.Fatalf("users = %v", got)
	}
	if !users[1].Password.IsTrust() {
		t.Errorf("empty manifest password must mean trust: %+v", users[1].Password)
	}

	dbs := cfg.Registry.Databases()
	if len(dbs) != 1 || dbs[0].Owner != "svc" {
		t.Errorf("databases = %+v", dbs)
	}

	// Manifest initdb args come before the variable's.
	want := []string{"--data-checksums", "--locale=C"}
	if !reflect.DeepEqual(cfg.InitDBArgs, want) {
		t.Errorf("InitDBArgs = %v, want %v", cfg.InitDBArgs, want)
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"POSTGRES_PROVISION_FILE": filepath.Join(t.TempDir(), "absent.cue"),
	})
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}

	var readErr *ManifestReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("error is not a *ManifestReadError: %v", err)
	}
	if !errors.Is(err, pgspec.ErrConfigParse) {
		t.Errorf("error does not wrap pgspec.ErrConfigParse: %v", err)
	}
}

func TestLoadManifestConflictsWithVariables(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "provision.cue")
	if err := os.WriteFile(manifest, []byte(`users: [{name: "app"}]`), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	_, err := loadWithEnv(t, map[string]string{
		"POSTGRES_PROVISION_FILE": manifest,
		"POSTGRES_USERS":          "app:pw",
	})
	if !errors.Is(err, pgspec.ErrDuplicateName) {
		t.Fatalf("expected duplicate error across manifest and variables, got: %v", err)
	}
}
