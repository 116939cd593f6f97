// SPDX-License-Identifier: MPL-2.0

package admin

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the entrypoint cares about when explaining a rejected
// provisioning statement.
const (
	// DuplicateObjectCode indicates a role that already exists.
	DuplicateObjectCode = "42710"
	// DuplicateDatabaseCode indicates a database that already exists.
	DuplicateDatabaseCode = "42P04"
	// UndefinedObjectCode indicates an unrecognized configuration parameter.
	UndefinedObjectCode = "42704"
	// InvalidParameterValueCode indicates a rejected configuration value.
	InvalidParameterValueCode = "22023"
	// ReservedNameCode indicates a name reserved by the engine.
	ReservedNameCode = "42939"
)

var (
	// ErrProvisioning classifies every statement the engine rejected. A
	// rejected statement aborts the whole startup; there is no partial
	// provisioning.
	ErrProvisioning = errors.New("provisioning rejected by engine")

	// ErrDial is the sentinel error wrapped by DialError.
	ErrDial = errors.New("cannot reach bootstrap instance")
)

type (
	// OperationError reports one rejected administrative statement.
	OperationError struct {
		// Op names the operation, e.g. "create role".
		Op string
		// Object is the role, database or parameter the operation targeted.
		Object string
		// Database is the database the channel was connected to.
		Database string
		// Err is the underlying driver error.
		Err error
	}

	// DialError reports a failed connection to the bootstrap instance after
	// all attempts were exhausted.
	DialError struct {
		Host     string
		Database string
		Err      error
	}
)

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Object, e.Err)
}

func (e *OperationError) Unwrap() []error { return []error{ErrProvisioning, e.Err} }

func (e *DialError) Error() string {
	return fmt.Sprintf("connect to %s database %q: %v", e.Host, e.Database, e.Err)
}

func (e *DialError) Unwrap() []error { return []error{ErrDial, e.Err} }

// AsPgError extracts the driver's server error, exposing the SQLSTATE code
// for programmatic checks.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
