// SPDX-License-Identifier: MPL-2.0

package admin

import "strings"

// QuoteLiteral escapes a value for embedding as a single-quoted SQL string
// literal. Quotes are doubled; when the value contains a backslash the E''
// form is used so the escaping does not depend on the server's
// standard_conforming_strings setting.
func QuoteLiteral(literal string) string {
	literal = strings.ReplaceAll(literal, `'`, `''`)
	if strings.Contains(literal, `\`) {
		return `E'` + strings.ReplaceAll(literal, `\`, `\\`) + `'`
	}
	return `'` + literal + `'`
}
