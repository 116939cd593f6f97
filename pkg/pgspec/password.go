// SPDX-License-Identifier: MPL-2.0

package pgspec

// PasswordSpec carries the three password states a user declaration can
// express:
//
//   - unset (no ':' field): the role is created without a password and
//     cannot log in over password-authenticated connections.
//   - trust (':' with an empty field): the role gets no password but is
//     granted a trust line in pg_hba.conf, so it can log in without
//     credentials. Intended for development setups only.
//   - set (':' with a non-empty field): the role is created with the given
//     password.
type PasswordSpec struct {
	// Declared reports whether a password field was present at all.
	Declared bool
	// Value is the declared password. Meaningful only when Declared is true;
	// empty means trust login.
	Value string
}

// NewPassword returns a declared password spec. An empty value declares
// trust login.
func NewPassword(value string) PasswordSpec {
	return PasswordSpec{Declared: true, Value: value}
}

// IsTrust reports whether the declaration asks for passwordless trust login.
func (p PasswordSpec) IsTrust() bool { return p.Declared && p.Value == "" }

// IsSet reports whether a non-empty password was declared.
func (p PasswordSpec) IsSet() bool { return p.Declared && p.Value != "" }

// String renders the state without ever exposing the password value, so
// specs can be logged and printed safely.
func (p PasswordSpec) String() string {
	switch {
	case !p.Declared:
		return "<none>"
	case p.Value == "":
		return "<trust>"
	default:
		return "<redacted>"
	}
}
