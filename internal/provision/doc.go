// SPDX-License-Identifier: MPL-2.0

// Package provision orchestrates the one-shot first-boot pass: prepare the
// data directory, initialize the cluster, append the authentication rules
// the declarations ask for, start the temporary bootstrap instance, apply
// every declaration over administrative channels in declaration order, and
// stop the instance again so the real server can take over the data
// directory.
//
// The main entry point is the Provisioner:
//
//	p := provision.New(cluster, dialer)
//	err := p.Run(ctx, cfg.Registry, cfg.InitDBArgs)
//	// on success the data directory is ready for the real server
//
// The pass runs only when the data directory holds no cluster yet; an
// already bootstrapped directory skips everything. The provisioner is
// strictly sequential and fails on the first rejected step: a partially
// applied plan aborts startup rather than starting a server that does not
// match its declarations.
package provision
