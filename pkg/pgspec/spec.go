// SPDX-License-Identifier: MPL-2.0

package pgspec

import "fmt"

type (
	// UserSpec is one role declaration: a validated name, the tri-state
	// password and the superuser flag.
	UserSpec struct {
		Name      RoleName
		Password  PasswordSpec
		Superuser bool
	}

	// DatabaseSpec is one database declaration. Owner is optional; when set
	// it must reference a declared user (or the bootstrap superuser) and the
	// role receives ownership plus full rights on the public schema.
	DatabaseSpec struct {
		Name  DatabaseName
		Owner RoleName
	}

	// SettingSpec is one server parameter declaration applied through
	// ALTER SYSTEM SET after initialization.
	SettingSpec struct {
		Name  SettingName
		Value string
	}
)

// Validate checks the user name.
func (u UserSpec) Validate() error {
	return u.Name.Validate()
}

// String renders the declaration with the password state redacted.
func (u UserSpec) String() string {
	if u.Superuser {
		return fmt.Sprintf("%s (superuser, password %s)", u.Name, u.Password)
	}
	return fmt.Sprintf("%s (password %s)", u.Name, u.Password)
}

// Validate checks the database name and, when present, the owner name.
// Whether the owner is actually declared is the Registry's business.
func (d DatabaseSpec) Validate() error {
	if err := d.Name.Validate(); err != nil {
		return err
	}
	if d.Owner != "" {
		return d.Owner.Validate()
	}
	return nil
}

// String renders the declaration.
func (d DatabaseSpec) String() string {
	if d.Owner == "" {
		return d.Name.String()
	}
	return fmt.Sprintf("%s (owner %s)", d.Name, d.Owner)
}

// Validate checks the setting name.
func (s SettingSpec) Validate() error {
	return s.Name.Validate()
}

// String renders the declaration.
func (s SettingSpec) String() string {
	return fmt.Sprintf("%s = %s", s.Name, s.Value)
}
