// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// This package defines error types that carry remediation steps, plus a small
// catalog of Markdown-formatted guidance for the failures an operator is most
// likely to hit while bringing a database container up.
package issue
