// SPDX-License-Identifier: MPL-2.0

//go:build unix

package pgctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// Handoff replaces the current process with the given command, resolving
// the binary on PATH and passing the environment through. On success it
// never returns; the new program takes over the entrypoint's PID so it
// receives container signals directly.
func Handoff(argv []string) error {
	if len(argv) == 0 {
		return errors.New("handoff: empty command")
	}

	binary, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("handoff: %w", err)
	}

	if err := unix.Exec(binary, argv, os.Environ()); err != nil {
		return fmt.Errorf("handoff to %s: %w", binary, err)
	}
	return nil
}
