// SPDX-License-Identifier: MPL-2.0

package admin

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// Connection defaults for the bootstrap instance. The instance only listens
// on localhost and its socket directory, both unreachable from outside the
// container.
const (
	DefaultHost           = "/var/run/postgresql"
	DefaultPort           = 5432
	DefaultConnectTimeout = 5 * time.Second
	DefaultDialAttempts   = 5
	DefaultDialBackoff    = 200 * time.Millisecond
)

type (
	// Options configures how administrative connections are made. Host may
	// be a socket directory (leading slash) or a hostname; the hostname
	// form exists for tests that talk to a containerized engine over TCP.
	Options struct {
		Host           string
		Port           uint16
		User           pgspec.RoleName
		Password       string
		ConnectTimeout time.Duration
		DialAttempts   int
		DialBackoff    time.Duration
		Logger         *log.Logger
	}

	// Dialer opens administrative channels to the bootstrap instance,
	// retrying while it is still warming up.
	Dialer struct {
		opts Options
	}
)

// NewDialer creates a Dialer, filling unset options with defaults.
func NewDialer(opts Options) *Dialer {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.User == "" {
		opts.User = pgspec.SuperuserRole
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.DialAttempts == 0 {
		opts.DialAttempts = DefaultDialAttempts
	}
	if opts.DialBackoff == 0 {
		opts.DialBackoff = DefaultDialBackoff
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "admin"})
	}
	return &Dialer{opts: opts}
}

// Dial opens a channel to the given database. Connection failures are
// retried with backoff: pg_ctl waits for the postmaster, but the instance
// may still be settling when the first statement is due.
func (d *Dialer) Dial(ctx context.Context, database pgspec.DatabaseName) (*Channel, error) {
	dsn := buildDSN(d.opts, database)

	var conn *pgx.Conn
	err := retryWithBackoff(ctx, d.opts.DialAttempts, d.opts.DialBackoff, func(attempt int) (bool, error) {
		if attempt > 0 {
			d.opts.Logger.Debug("retrying bootstrap connection", "database", database, "attempt", attempt+1)
		}
		var connErr error
		conn, connErr = pgx.Connect(ctx, dsn)
		return connErr != nil, connErr
	})
	if err != nil {
		return nil, &DialError{Host: d.opts.Host, Database: database.String(), Err: err}
	}

	return &Channel{conn: conn, database: database}, nil
}

// buildDSN renders a keyword/value connection string. Every value is quoted
// so database names with spaces survive parsing.
func buildDSN(opts Options, database pgspec.DatabaseName) string {
	var b strings.Builder
	fmt.Fprintf(&b, "host=%s port=%d user=%s dbname=%s sslmode=disable",
		dsnQuote(opts.Host), opts.Port, dsnQuote(opts.User.String()), dsnQuote(database.String()))
	if opts.Password != "" {
		fmt.Fprintf(&b, " password=%s", dsnQuote(opts.Password))
	}
	if opts.ConnectTimeout > 0 {
		fmt.Fprintf(&b, " connect_timeout=%d", max(1, int(opts.ConnectTimeout.Seconds())))
	}
	return b.String()
}

// dsnQuote renders one keyword/value connection string value, escaping per
// the libpq rules.
func dsnQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
