// SPDX-License-Identifier: MPL-2.0

// Package config turns the container environment into a validated
// provisioning plan. It resolves variables with optional <VAR>_FILE
// indirection, decodes the fixed variable set, walks the indexed
// POSTGRES_USER_<n> family, folds in an optional CUE manifest and hands
// every declaration to a pgspec.Registry, which owns ordering and conflict
// rules. Loading fails on the first problem; nothing is ever provisioned
// from a partially understood environment.
package config
