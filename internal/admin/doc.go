// SPDX-License-Identifier: MPL-2.0

// Package admin is the administrative channel to the bootstrap engine
// instance: it connects over the local socket the temporary instance
// listens on and issues the role, database and configuration statements the
// provisioning plan calls for.
//
// DDL statements cannot take bind parameters, so identifiers and literals
// are escaped explicitly before interpolation. The statement builders are
// pure functions, which keeps the exact SQL under test without a live
// engine.
package admin
