// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"strings"
	"testing"
)

// Unsetenv removes the environment variable for the duration of the test
// and restores the original value on cleanup. Like t.Setenv, it must not be
// used from parallel tests.
func Unsetenv(t testing.TB, name string) {
	t.Helper()

	original, had := os.LookupEnv(name)
	if !had {
		return
	}
	if err := os.Unsetenv(name); err != nil {
		t.Fatalf("failed to unset env %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := os.Setenv(name, original); err != nil {
			t.Errorf("failed to restore env %s: %v", name, err)
		}
	})
}

// ScrubEnv unsets every environment variable whose name starts with one of
// the given prefixes for the duration of the test. Tests that run the real
// configuration loading use it so provisioning variables from the host
// environment cannot leak into assertions.
func ScrubEnv(t testing.TB, prefixes ...string) {
	t.Helper()

	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		for _, prefix := range prefixes {
			if strings.HasPrefix(name, prefix) {
				Unsetenv(t, name)
				break
			}
		}
	}
}
