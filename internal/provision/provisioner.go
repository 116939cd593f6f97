// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

type (
	// Cluster is the engine lifecycle surface the provisioner drives. It is
	// implemented by pgctl.Cluster; tests substitute a recorder.
	Cluster interface {
		// EnsureDataDir creates the data directory and repairs its
		// ownership and mode as far as privileges allow.
		EnsureDataDir() error
		// Bootstrapped reports whether the data directory already holds an
		// initialized cluster.
		Bootstrapped() (bool, error)
		// InitDB initializes a fresh cluster with the given extra arguments.
		InitDB(ctx context.Context, extraArgs []string) error
		// AppendAuthRules appends trust lines for the given roles plus the
		// password catch-all to the client authentication file.
		AppendAuthRules(trusted []pgspec.RoleName) error
		// Start brings up the bootstrap instance and waits for it.
		Start(ctx context.Context) error
		// Stop shuts the bootstrap instance down and waits for it.
		Stop(ctx context.Context) error
	}

	// Channel is one administrative connection to the bootstrap instance.
	// Schema statements act on the database the channel is connected to.
	Channel interface {
		AlterSuperuserPassword(ctx context.Context, password string) error
		CreateRole(ctx context.Context, u pgspec.UserSpec) error
		CreateDatabase(ctx context.Context, d pgspec.DatabaseSpec) error
		RevokePublicSchema(ctx context.Context) error
		GrantPublicSchema(ctx context.Context, owner pgspec.RoleName) error
		ApplySetting(ctx context.Context, s pgspec.SettingSpec) error
		Close(ctx context.Context) error
	}

	// Dialer opens administrative channels to specific databases.
	Dialer interface {
		Dial(ctx context.Context, database pgspec.DatabaseName) (Channel, error)
	}

	// ProvisionerOption customizes a Provisioner.
	ProvisionerOption func(*Provisioner)

	// Provisioner runs the first-boot pass against a cluster.
	Provisioner struct {
		cluster Cluster
		dialer  Dialer
		logger  *log.Logger
		banner  io.Writer
	}
)

// WithLogger overrides the provisioner's logger.
func WithLogger(logger *log.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// WithBannerOutput redirects the trust warning banner, which goes to stderr
// by default.
func WithBannerOutput(w io.Writer) ProvisionerOption {
	return func(p *Provisioner) {
		p.banner = w
	}
}

// New creates a Provisioner driving the given cluster and dialing
// administrative connections through the given dialer.
func New(cluster Cluster, dialer Dialer, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		cluster: cluster,
		dialer:  dialer,
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "provision"}),
		banner:  os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the first-boot pass. It returns nil without touching the
// engine when the data directory is already bootstrapped; otherwise the
// cluster is initialized, every declaration is applied, and the bootstrap
// instance is stopped again so the caller can hand off to the real server.
func (p *Provisioner) Run(ctx context.Context, reg *pgspec.Registry, initdbArgs []string) error {
	if err := p.cluster.EnsureDataDir(); err != nil {
		return err
	}

	done, err := p.cluster.Bootstrapped()
	if err != nil {
		return err
	}
	if done {
		p.logger.Info("database already created, skipping setup")
		return nil
	}

	p.logger.Debug("initializing cluster", "initdb_args", initdbArgs)
	if err := p.cluster.InitDB(ctx, initdbArgs); err != nil {
		return err
	}

	trusted := reg.TrustRoles()
	if err := p.cluster.AppendAuthRules(trusted); err != nil {
		return err
	}
	if len(trusted) > 0 {
		fmt.Fprintln(p.banner, trustWarningBanner(trusted))
	}

	if err := p.cluster.Start(ctx); err != nil {
		return err
	}

	if err := ApplyRegistry(ctx, p.dialer, reg, p.logger); err != nil {
		// The partially provisioned instance must not outlive the failed
		// bootstrap.
		if stopErr := p.cluster.Stop(ctx); stopErr != nil {
			p.logger.Error("stopping bootstrap instance failed", "err", stopErr)
		}
		return err
	}

	if err := p.cluster.Stop(ctx); err != nil {
		return err
	}

	p.logger.Info("PostgreSQL init process complete; ready for start up.")
	return nil
}
