// SPDX-License-Identifier: MPL-2.0

// Package pgspec defines the provisioning data model for the entrypoint:
// typed role, database and setting names, the delimiter grammar behind the
// POSTGRES_USERS / POSTGRES_DATABASES / POSTGRES_CONFIGS variables, and the
// Registry that collects declarations in order and rejects conflicts before
// a single engine command is issued.
//
// The grammar is deliberately small. A spec string is a '|'-separated list
// of entries, an entry is split on at most one ':' into a name and one
// field, and a leading '!' on a user name marks the role as superuser:
//
//	POSTGRES_USERS="app:s3cret|!admin:root|ro_user:"
//	POSTGRES_DATABASES="app_db:app|scratch"
//	POSTGRES_CONFIGS="max_connections:300|log_statement:all"
//
// Both delimiters are reserved: names containing '|' or ':' cannot be
// declared and entries with more than one ':' are rejected outright.
package pgspec
