// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package pgctl

import "errors"

// Handoff requires execve semantics, which only unix platforms provide. The
// image this entrypoint ships in is Linux-only; this stub keeps the package
// compiling elsewhere for development.
func Handoff(_ []string) error {
	return errors.New("process handoff is only supported on unix platforms")
}
