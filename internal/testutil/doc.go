// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions shared across test packages:
// environment scoping for tests that exercise the real process environment
// (ScrubEnv, Unsetenv) and a process-wide semaphore that throttles
// container-backed integration tests (ContainerSemaphore).
package testutil
