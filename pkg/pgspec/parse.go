// SPDX-License-Identifier: MPL-2.0

package pgspec

import (
	"fmt"
	"strings"
)

// Grammar characters. EntryDelimiter separates declarations inside one
// variable, FieldDelimiter separates a name from its single field inside one
// entry, and SuperuserMarker prefixes a user name to request superuser.
const (
	EntryDelimiter  = '|'
	FieldDelimiter  = ':'
	SuperuserMarker = '!'
)

// ErrMalformedEntry is the sentinel error wrapped by MalformedEntryError.
var ErrMalformedEntry = fmt.Errorf("%w: malformed entry", ErrConfigParse)

// MalformedEntryError reports an entry that does not fit the grammar, along
// with the variable or manifest path the entry came from.
type MalformedEntryError struct {
	Source string
	Entry  string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("%s: malformed entry %q: %s", e.Source, e.Entry, e.Reason)
}

func (e *MalformedEntryError) Unwrap() error { return ErrMalformedEntry }

// SplitEntries tokenizes a spec string into trimmed entries. Empty entries
// are dropped, so trailing or doubled delimiters are tolerated:
// "a||b|" yields ["a", "b"].
func SplitEntries(raw string) []string {
	parts := strings.Split(raw, string(EntryDelimiter))
	entries := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// cutEntry splits one entry on the field delimiter into a trimmed name and a
// trimmed field. More than one delimiter does not fit any declaration form
// and is rejected rather than guessed at.
func cutEntry(source, entry string) (name, field string, hasField bool, err error) {
	if strings.Count(entry, string(FieldDelimiter)) > 1 {
		return "", "", false, &MalformedEntryError{
			Source: source,
			Entry:  entry,
			Reason: fmt.Sprintf("at most one %q separator allowed", FieldDelimiter),
		}
	}
	name, field, hasField = strings.Cut(entry, string(FieldDelimiter))
	return strings.TrimSpace(name), strings.TrimSpace(field), hasField, nil
}

// ParseUserEntry parses a single user declaration of the form
// "[!]name[:password]". The password is tri-state: absent, empty (trust) or
// set. A leading SuperuserMarker is stripped off the name.
func ParseUserEntry(source, entry string) (UserSpec, error) {
	name, field, hasField, err := cutEntry(source, strings.TrimSpace(entry))
	if err != nil {
		return UserSpec{}, err
	}

	spec := UserSpec{}
	if strings.HasPrefix(name, string(SuperuserMarker)) {
		spec.Superuser = true
		name = strings.TrimSpace(name[1:])
	}
	spec.Name = RoleName(name)
	if hasField {
		spec.Password = NewPassword(field)
	}

	if err := spec.Validate(); err != nil {
		return UserSpec{}, fmt.Errorf("%s: %w", source, err)
	}
	return spec, nil
}

// ParseUsers parses a POSTGRES_USERS-shaped string: EntryDelimiter-separated
// user declarations.
func ParseUsers(source, raw string) ([]UserSpec, error) {
	entries := SplitEntries(raw)
	users := make([]UserSpec, 0, len(entries))
	for _, entry := range entries {
		u, err := ParseUserEntry(source, entry)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// ParseDatabaseEntry parses a single database declaration of the form
// "name[:owner]". An empty owner field is the same as no owner.
func ParseDatabaseEntry(source, entry string) (DatabaseSpec, error) {
	name, field, _, err := cutEntry(source, strings.TrimSpace(entry))
	if err != nil {
		return DatabaseSpec{}, err
	}

	spec := DatabaseSpec{Name: DatabaseName(name), Owner: RoleName(field)}
	if err := spec.Validate(); err != nil {
		return DatabaseSpec{}, fmt.Errorf("%s: %w", source, err)
	}
	return spec, nil
}

// ParseDatabases parses a POSTGRES_DATABASES-shaped string.
func ParseDatabases(source, raw string) ([]DatabaseSpec, error) {
	entries := SplitEntries(raw)
	dbs := make([]DatabaseSpec, 0, len(entries))
	for _, entry := range entries {
		d, err := ParseDatabaseEntry(source, entry)
		if err != nil {
			return nil, err
		}
		dbs = append(dbs, d)
	}
	return dbs, nil
}

// ParseDatabaseNames parses the indexed POSTGRES_DATABASES_<n> form: bare
// database names without owner fields, since the owner is implied by the
// accompanying user.
func ParseDatabaseNames(source, raw string) ([]DatabaseName, error) {
	entries := SplitEntries(raw)
	names := make([]DatabaseName, 0, len(entries))
	for _, entry := range entries {
		if strings.ContainsRune(entry, FieldDelimiter) {
			return nil, &MalformedEntryError{
				Source: source,
				Entry:  entry,
				Reason: fmt.Sprintf("owner fields are not allowed here, the owner is the user declared by the matching %s variable", "POSTGRES_USER_<n>"),
			}
		}
		name := DatabaseName(entry)
		if err := name.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// ParseSettingEntry parses a single server parameter declaration of the form
// "name:value". Unlike user and database entries the field is mandatory; an
// empty value is allowed and resets the parameter to the empty string.
func ParseSettingEntry(source, entry string) (SettingSpec, error) {
	name, field, hasField, err := cutEntry(source, strings.TrimSpace(entry))
	if err != nil {
		return SettingSpec{}, err
	}
	if !hasField {
		return SettingSpec{}, &MalformedEntryError{
			Source: source,
			Entry:  entry,
			Reason: fmt.Sprintf("expected name%cvalue", FieldDelimiter),
		}
	}

	spec := SettingSpec{Name: SettingName(name), Value: field}
	if err := spec.Validate(); err != nil {
		return SettingSpec{}, fmt.Errorf("%s: %w", source, err)
	}
	return spec, nil
}

// ParseSettings parses a POSTGRES_CONFIGS-shaped string.
func ParseSettings(source, raw string) ([]SettingSpec, error) {
	entries := SplitEntries(raw)
	settings := make([]SettingSpec, 0, len(entries))
	for _, entry := range entries {
		s, err := ParseSettingEntry(source, entry)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, nil
}
