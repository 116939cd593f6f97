// SPDX-License-Identifier: MPL-2.0

// Package pgctl drives the engine's own command line tools during container
// initialization: preparing the data and socket directories, running initdb,
// appending client authentication rules, and starting and stopping the
// temporary bootstrap instance with pg_ctl.
//
// All commands run through a Runner, whose exec function is injectable so
// tests can record invocations without a real engine installation.
package pgctl
