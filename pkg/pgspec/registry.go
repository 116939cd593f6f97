// SPDX-License-Identifier: MPL-2.0

package pgspec

import (
	"fmt"
	"slices"
)

// SuperuserRole is the bootstrap superuser created by initdb. It always
// exists, is always a superuser and owns the default database, so
// declarations touching it are folded into a password override instead of a
// CREATE.
const SuperuserRole RoleName = "postgres"

// DefaultDatabase is the database created by initdb. Declaring it is a
// validated no-op: it already exists and its owner cannot be changed.
const DefaultDatabase DatabaseName = "postgres"

// --- Sentinel errors ---

var (
	// ErrDuplicateName is the sentinel error wrapped by DuplicateNameError.
	ErrDuplicateName = fmt.Errorf("%w: duplicate name", ErrConfigParse)
	// ErrReservedName is the sentinel error wrapped by ReservedNameError.
	ErrReservedName = fmt.Errorf("%w: reserved name", ErrConfigParse)
	// ErrUnknownOwner is the sentinel error wrapped by UnknownOwnerError.
	ErrUnknownOwner = fmt.Errorf("%w: unknown owner", ErrConfigParse)
)

type (
	// ObjectKind distinguishes the three declaration namespaces.
	ObjectKind string

	// DuplicateNameError reports a name declared twice, with both declaring
	// sources so the collision can be found across variables.
	DuplicateNameError struct {
		Kind   ObjectKind
		Name   string
		First  string
		Second string
	}

	// ReservedNameError reports a declaration that tries to change what the
	// engine guarantees about the bootstrap superuser or default database.
	ReservedNameError struct {
		Kind   ObjectKind
		Name   string
		Source string
		Reason string
	}

	// UnknownOwnerError reports a database whose owner was never declared.
	UnknownOwnerError struct {
		Database DatabaseName
		Owner    RoleName
		Source   string
	}
)

// Declaration namespaces.
const (
	KindUser     ObjectKind = "user"
	KindDatabase ObjectKind = "database"
	KindSetting  ObjectKind = "setting"
)

func (e *DuplicateNameError) Error() string {
	if e.First == e.Second {
		return fmt.Sprintf("%s %q declared twice by %s", e.Kind, e.Name, e.First)
	}
	return fmt.Sprintf("%s %q declared by both %s and %s", e.Kind, e.Name, e.First, e.Second)
}

func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("%s: %s %q: %s", e.Source, e.Kind, e.Name, e.Reason)
}

func (e *ReservedNameError) Unwrap() error { return ErrReservedName }

func (e *UnknownOwnerError) Error() string {
	return fmt.Sprintf("%s: database %q: owner %q is not a declared user", e.Source, e.Database, e.Owner)
}

func (e *UnknownOwnerError) Unwrap() error { return ErrUnknownOwner }

// Registry accumulates validated declarations in the order they arrive and
// rejects conflicts as they are added. Owner references are only resolved by
// Finalize, because a database may legitimately name a user that a later
// variable declares.
type Registry struct {
	users     []UserSpec
	databases []DatabaseSpec
	settings  []SettingSpec

	// superuserPassword is the password override for SuperuserRole, captured
	// from whichever source declared the postgres user.
	superuserPassword PasswordSpec

	userSources     map[RoleName]string
	databaseSources map[DatabaseName]string
	settingSources  map[SettingName]string

	finalized bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		userSources:     make(map[RoleName]string),
		databaseSources: make(map[DatabaseName]string),
		settingSources:  make(map[SettingName]string),
	}
}

// AddUser records one user declaration. Declaring SuperuserRole is allowed
// only with the superuser flag set; it stores the password override instead
// of scheduling a CREATE. Names are unique across all sources.
func (r *Registry) AddUser(source string, u UserSpec) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	if first, ok := r.userSources[u.Name]; ok {
		return &DuplicateNameError{Kind: KindUser, Name: u.Name.String(), First: first, Second: source}
	}

	if u.Name == SuperuserRole {
		if !u.Superuser {
			return &ReservedNameError{
				Kind:   KindUser,
				Name:   u.Name.String(),
				Source: source,
				Reason: "cannot be declared as a non-superuser",
			}
		}
		r.superuserPassword = u.Password
	} else {
		r.users = append(r.users, u)
	}
	r.userSources[u.Name] = source
	return nil
}

// AddDatabase records one database declaration. Declaring DefaultDatabase is
// a no-op after checking that no owner change is requested; it may repeat
// across sources since it never creates anything.
func (r *Registry) AddDatabase(source string, d DatabaseSpec) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	if d.Name == DefaultDatabase {
		if d.Owner != "" && d.Owner != SuperuserRole {
			return &ReservedNameError{
				Kind:   KindDatabase,
				Name:   d.Name.String(),
				Source: source,
				Reason: fmt.Sprintf("owner cannot be changed to %q", d.Owner),
			}
		}
		return nil
	}

	if first, ok := r.databaseSources[d.Name]; ok {
		return &DuplicateNameError{Kind: KindDatabase, Name: d.Name.String(), First: first, Second: source}
	}
	r.databases = append(r.databases, d)
	r.databaseSources[d.Name] = source
	return nil
}

// AddSetting records one server parameter declaration. Names are unique;
// declaring the same parameter twice would make the effective value depend
// on apply order, which is exactly the ambiguity this registry exists to
// refuse.
func (r *Registry) AddSetting(source string, s SettingSpec) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	if first, ok := r.settingSources[s.Name]; ok {
		return &DuplicateNameError{Kind: KindSetting, Name: s.Name.String(), First: first, Second: source}
	}
	r.settings = append(r.settings, s)
	r.settingSources[s.Name] = source
	return nil
}

// Finalize resolves deferred checks once every source has been folded in:
// each database owner must be a declared user or SuperuserRole.
func (r *Registry) Finalize() error {
	for _, d := range r.databases {
		if d.Owner == "" || d.Owner == SuperuserRole {
			continue
		}
		if _, ok := r.userSources[d.Owner]; !ok {
			return &UnknownOwnerError{
				Database: d.Name,
				Owner:    d.Owner,
				Source:   r.databaseSources[d.Name],
			}
		}
	}
	r.finalized = true
	return nil
}

// Finalized reports whether Finalize has completed successfully.
func (r *Registry) Finalized() bool { return r.finalized }

// Users returns the declared users in declaration order, excluding
// SuperuserRole.
func (r *Registry) Users() []UserSpec { return slices.Clone(r.users) }

// Databases returns the declared databases in declaration order, excluding
// DefaultDatabase.
func (r *Registry) Databases() []DatabaseSpec { return slices.Clone(r.databases) }

// Settings returns the declared server parameters in declaration order.
func (r *Registry) Settings() []SettingSpec { return slices.Clone(r.settings) }

// SuperuserPassword returns the password override declared for
// SuperuserRole, if any.
func (r *Registry) SuperuserPassword() PasswordSpec { return r.superuserPassword }

// TrustRoles returns every role that declared trust login, SuperuserRole
// first when its override asks for trust. These are the roles that need
// trust lines in pg_hba.conf.
func (r *Registry) TrustRoles() []RoleName {
	var roles []RoleName
	if r.superuserPassword.IsTrust() {
		roles = append(roles, SuperuserRole)
	}
	for _, u := range r.users {
		if u.Password.IsTrust() {
			roles = append(roles, u.Name)
		}
	}
	return roles
}

// Empty reports whether nothing beyond the engine defaults was declared.
func (r *Registry) Empty() bool {
	return len(r.users) == 0 && len(r.databases) == 0 && len(r.settings) == 0 &&
		!r.superuserPassword.Declared
}
