// SPDX-License-Identifier: MPL-2.0

package pgspec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// maxIdentifierBytes mirrors the engine's NAMEDATALEN-1 limit. Longer names
// are truncated silently by the engine, which can collapse two distinct
// declarations into one object, so they are rejected up front.
const maxIdentifierBytes = 63

// --- Sentinel errors ---

var (
	// ErrConfigParse classifies every declaration failure detected before a
	// single engine command is issued. All parse and validation errors in
	// this package wrap it, so callers can match the whole family with
	// errors.Is(err, pgspec.ErrConfigParse).
	ErrConfigParse = errors.New("invalid provisioning declaration")

	// ErrInvalidRoleName is the sentinel error wrapped by InvalidRoleNameError.
	ErrInvalidRoleName = fmt.Errorf("%w: invalid role name", ErrConfigParse)
	// ErrInvalidDatabaseName is the sentinel error wrapped by InvalidDatabaseNameError.
	ErrInvalidDatabaseName = fmt.Errorf("%w: invalid database name", ErrConfigParse)
	// ErrInvalidSettingName is the sentinel error wrapped by InvalidSettingNameError.
	ErrInvalidSettingName = fmt.Errorf("%w: invalid setting name", ErrConfigParse)
)

// settingNamePattern follows the engine's GUC naming rules: one or more
// dot-separated identifiers, so both "max_connections" and customized
// options like "auto_explain.log_min_duration" are accepted.
var settingNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)

type (
	// RoleName is the name of a role to create in the engine. Names are
	// always used quoted, so most characters are allowed; the grammar
	// delimiters and control characters are rejected because they cannot
	// survive the env-variable syntax or a pg_hba.conf line.
	RoleName string

	// DatabaseName is the name of a database to create in the engine. It
	// follows the same rules as RoleName.
	DatabaseName string

	// SettingName is a configuration parameter applied through
	// ALTER SYSTEM SET.
	SettingName string

	// InvalidRoleNameError is returned when a RoleName fails validation.
	// It wraps ErrInvalidRoleName for errors.Is() compatibility.
	InvalidRoleNameError struct {
		Value  RoleName
		Reason string
	}

	// InvalidDatabaseNameError is returned when a DatabaseName fails validation.
	InvalidDatabaseNameError struct {
		Value  DatabaseName
		Reason string
	}

	// InvalidSettingNameError is returned when a SettingName fails validation.
	InvalidSettingNameError struct {
		Value  SettingName
		Reason string
	}
)

func (e *InvalidRoleNameError) Error() string {
	return fmt.Sprintf("invalid role name %q: %s", string(e.Value), e.Reason)
}

func (e *InvalidRoleNameError) Unwrap() error { return ErrInvalidRoleName }

func (e *InvalidDatabaseNameError) Error() string {
	return fmt.Sprintf("invalid database name %q: %s", string(e.Value), e.Reason)
}

func (e *InvalidDatabaseNameError) Unwrap() error { return ErrInvalidDatabaseName }

func (e *InvalidSettingNameError) Error() string {
	return fmt.Sprintf("invalid setting name %q: %s", string(e.Value), e.Reason)
}

func (e *InvalidSettingNameError) Unwrap() error { return ErrInvalidSettingName }

// identifierProblem reports why a role or database name is unusable, or ""
// when it is fine. Shared by RoleName and DatabaseName validation.
func identifierProblem(s string) string {
	switch {
	case s == "":
		return "must not be empty"
	case strings.ContainsRune(s, EntryDelimiter):
		return fmt.Sprintf("must not contain the entry delimiter %q", EntryDelimiter)
	case strings.ContainsRune(s, FieldDelimiter):
		return fmt.Sprintf("must not contain the field delimiter %q", FieldDelimiter)
	case strings.ContainsAny(s, `"\`):
		// Such names are legal for the engine but cannot be written into a
		// pg_hba.conf line.
		return "must not contain quotes or backslashes"
	case len(s) > maxIdentifierBytes:
		return fmt.Sprintf("must not exceed %d bytes", maxIdentifierBytes)
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return "must not contain control characters"
		}
	}
	return ""
}

// Validate checks that the role name is non-empty, within the engine's
// identifier length limit and free of reserved characters.
func (n RoleName) Validate() error {
	if reason := identifierProblem(string(n)); reason != "" {
		return &InvalidRoleNameError{Value: n, Reason: reason}
	}
	return nil
}

// String returns the role name as a plain string.
func (n RoleName) String() string { return string(n) }

// Validate checks that the database name is non-empty, within the engine's
// identifier length limit and free of reserved characters.
func (n DatabaseName) Validate() error {
	if reason := identifierProblem(string(n)); reason != "" {
		return &InvalidDatabaseNameError{Value: n, Reason: reason}
	}
	return nil
}

// String returns the database name as a plain string.
func (n DatabaseName) String() string { return string(n) }

// Validate checks that the setting name matches the engine's parameter
// naming rules. Values are not validated here; the engine decides whether a
// value fits the parameter when the setting is applied.
func (n SettingName) Validate() error {
	if n == "" {
		return &InvalidSettingNameError{Value: n, Reason: "must not be empty"}
	}
	if !settingNamePattern.MatchString(string(n)) {
		return &InvalidSettingNameError{Value: n, Reason: "must be dot-separated identifiers (letters, digits, underscores)"}
	}
	return nil
}

// String returns the setting name as a plain string.
func (n SettingName) String() string { return string(n) }
