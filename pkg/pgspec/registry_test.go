// SPDX-License-Identifier: MPL-2.0

package pgspec

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistryAddUser(t *testing.T) {
	t.Parallel()

	t.Run("preserves declaration order", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		for _, name := range []RoleName{"c", "a", "b"} {
			if err := r.AddUser("POSTGRES_USERS", UserSpec{Name: name}); err != nil {
				t.Fatalf("AddUser(%q) returned error: %v", name, err)
			}
		}

		var got []RoleName
		for _, u := range r.Users() {
			got = append(got, u.Name)
		}
		want := []RoleName{"c", "a", "b"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Users() order = %v, want %v", got, want)
		}
	})

	t.Run("rejects duplicates across sources", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if err := r.AddUser("POSTGRES_USERS", UserSpec{Name: "app"}); err != nil {
			t.Fatalf("first AddUser returned error: %v", err)
		}

		err := r.AddUser("POSTGRES_USER_0", UserSpec{Name: "app"})
		if err == nil {
			t.Fatal("expected duplicate error")
		}
		if !errors.Is(err, ErrDuplicateName) {
			t.Errorf("error does not wrap ErrDuplicateName: %v", err)
		}

		var dupErr *DuplicateNameError
		if !errors.As(err, &dupErr) {
			t.Fatalf("error is not a *DuplicateNameError: %v", err)
		}
		if dupErr.First != "POSTGRES_USERS" || dupErr.Second != "POSTGRES_USER_0" {
			t.Errorf("sources not attributed: %+v", dupErr)
		}
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		err := r.AddUser("POSTGRES_USERS", UserSpec{Name: ""})
		if !errors.Is(err, ErrInvalidRoleName) {
			t.Errorf("expected invalid role name error, got: %v", err)
		}
	})
}

func TestRegistrySuperuserRole(t *testing.T) {
	t.Parallel()

	t.Run("declaration becomes a password override", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		u := UserSpec{Name: SuperuserRole, Password: NewPassword("root"), Superuser: true}
		if err := r.AddUser("POSTGRES_USERS", u); err != nil {
			t.Fatalf("AddUser returned error: %v", err)
		}

		if len(r.Users()) != 0 {
			t.Errorf("postgres must not be scheduled for CREATE, got %v", r.Users())
		}
		if pw := r.SuperuserPassword(); !pw.IsSet() || pw.Value != "root" {
			t.Errorf("password override not captured: %+v", pw)
		}
	})

	t.Run("cannot be demoted", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		err := r.AddUser("POSTGRES_USERS", UserSpec{Name: SuperuserRole, Password: NewPassword("x")})
		if err == nil {
			t.Fatal("expected error for non-superuser postgres declaration")
		}
		if !errors.Is(err, ErrReservedName) {
			t.Errorf("error does not wrap ErrReservedName: %v", err)
		}
	})

	t.Run("cannot be declared twice", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		u := UserSpec{Name: SuperuserRole, Password: NewPassword("a"), Superuser: true}
		if err := r.AddUser("POSTGRES_USER", u); err != nil {
			t.Fatalf("first declaration returned error: %v", err)
		}

		u.Password = NewPassword("b")
		if err := r.AddUser("POSTGRES_USERS", u); !errors.Is(err, ErrDuplicateName) {
			t.Errorf("expected duplicate error for second postgres declaration, got: %v", err)
		}
	})
}

func TestRegistryAddDatabase(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicates", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if err := r.AddDatabase("POSTGRES_DATABASES", DatabaseSpec{Name: "db1"}); err != nil {
			t.Fatalf("first AddDatabase returned error: %v", err)
		}
		err := r.AddDatabase("POSTGRES_DATABASES_0", DatabaseSpec{Name: "db1", Owner: "u0"})
		if !errors.Is(err, ErrDuplicateName) {
			t.Errorf("expected duplicate error, got: %v", err)
		}
	})

	t.Run("default database is a validated no-op", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		for range 2 {
			if err := r.AddDatabase("POSTGRES_DATABASES", DatabaseSpec{Name: DefaultDatabase}); err != nil {
				t.Fatalf("declaring the default database must be tolerated: %v", err)
			}
		}
		if err := r.AddDatabase("POSTGRES_DATABASES", DatabaseSpec{Name: DefaultDatabase, Owner: SuperuserRole}); err != nil {
			t.Fatalf("postgres owner for the default database must be tolerated: %v", err)
		}
		if len(r.Databases()) != 0 {
			t.Errorf("the default database must not be scheduled for CREATE, got %v", r.Databases())
		}
	})

	t.Run("default database owner cannot change", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		err := r.AddDatabase("POSTGRES_DATABASES", DatabaseSpec{Name: DefaultDatabase, Owner: "app"})
		if !errors.Is(err, ErrReservedName) {
			t.Errorf("expected reserved name error, got: %v", err)
		}
	})
}

func TestRegistryAddSetting(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.AddSetting("POSTGRES_CONFIGS", SettingSpec{Name: "max_connections", Value: "300"}); err != nil {
		t.Fatalf("AddSetting returned error: %v", err)
	}

	err := r.AddSetting("POSTGRES_CONFIGS", SettingSpec{Name: "max_connections", Value: "400"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected duplicate error for repeated parameter, got: %v", err)
	}
}

func TestRegistryFinalize(t *testing.T) {
	t.Parallel()

	t.Run("owner declared later is accepted", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if err := r.AddDatabase("POSTGRES_DATABASES", DatabaseSpec{Name: "db1", Owner: "u0"}); err != nil {
			t.Fatalf("AddDatabase returned error: %v", err)
		}
		if err := r.AddUser("POSTGRES_USER_0", UserSpec{Name: "u0"}); err != nil {
			t.Fatalf("AddUser returned error: %v", err)
		}

		if err := r.Finalize(); err != nil {
			t.Errorf("Finalize rejected an owner declared by a later source: %v", err)
		}
		if !r.Finalized() {
			t.Error("Finalized() = false after successful Finalize")
		}
	})

	t.Run("superuser role is always a valid owner", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if err := r.AddDatabase("POSTGRES_DATABASES", DatabaseSpec{Name: "db1", Owner: SuperuserRole}); err != nil {
			t.Fatalf("AddDatabase returned error: %v", err)
		}
		if err := r.Finalize(); err != nil {
			t.Errorf("Finalize returned error: %v", err)
		}
	})

	t.Run("undeclared owner is rejected", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if err := r.AddDatabase("POSTGRES_DATABASES", DatabaseSpec{Name: "db1", Owner: "ghost"}); err != nil {
			t.Fatalf("AddDatabase returned error: %v", err)
		}

		err := r.Finalize()
		if err == nil {
			t.Fatal("expected unknown owner error")
		}
		if !errors.Is(err, ErrUnknownOwner) {
			t.Errorf("error does not wrap ErrUnknownOwner: %v", err)
		}
		var ownerErr *UnknownOwnerError
		if !errors.As(err, &ownerErr) {
			t.Fatalf("error is not an *UnknownOwnerError: %v", err)
		}
		if ownerErr.Database != "db1" || ownerErr.Owner != "ghost" {
			t.Errorf("error fields = %+v", ownerErr)
		}
	})
}

func TestRegistryTrustRoles(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.AddUser("POSTGRES_USERS", UserSpec{Name: SuperuserRole, Password: NewPassword(""), Superuser: true}); err != nil {
		t.Fatalf("AddUser returned error: %v", err)
	}
	if err := r.AddUser("POSTGRES_USERS", UserSpec{Name: "secured", Password: NewPassword("pw")}); err != nil {
		t.Fatalf("AddUser returned error: %v", err)
	}
	if err := r.AddUser("POSTGRES_USERS", UserSpec{Name: "trusted", Password: NewPassword("")}); err != nil {
		t.Fatalf("AddUser returned error: %v", err)
	}
	if err := r.AddUser("POSTGRES_USERS", UserSpec{Name: "nologin"}); err != nil {
		t.Fatalf("AddUser returned error: %v", err)
	}

	got := r.TrustRoles()
	want := []RoleName{SuperuserRole, "trusted"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TrustRoles() = %v, want %v", got, want)
	}
}

func TestRegistryEmpty(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if !r.Empty() {
		t.Error("new registry must be empty")
	}

	if err := r.AddSetting("POSTGRES_CONFIGS", SettingSpec{Name: "work_mem", Value: "64MB"}); err != nil {
		t.Fatalf("AddSetting returned error: %v", err)
	}
	if r.Empty() {
		t.Error("registry with a setting must not be empty")
	}
}
