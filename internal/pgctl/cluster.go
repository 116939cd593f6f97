// SPDX-License-Identifier: MPL-2.0

package pgctl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// Engine binaries, resolved on PATH by the image.
const (
	binInitDB = "initdb"
	binPGCtl  = "pg_ctl"
)

// SystemAccount is the unprivileged system account the engine runs as. It is
// distinct from the bootstrap database role of the same name.
const SystemAccount = "postgres"

// envPGUser is consulted by pg_ctl's wait mode when it probes the instance
// for readiness.
const envPGUser = "PGUSER"

// versionFile marks a data directory that already holds a cluster. Its
// presence is what makes the whole provisioning pass a one-shot operation.
const versionFile = "PG_VERSION"

type (
	// AccountLookupFunc resolves a system account name. It matches
	// user.Lookup so tests can substitute the current user.
	AccountLookupFunc func(name string) (*user.User, error)

	// ClusterOption configures a Cluster.
	ClusterOption func(*Cluster)

	// Cluster manages one data directory through its bootstrap lifecycle:
	// directory preparation, initdb, authentication rules and the temporary
	// local-only instance that provisioning talks to.
	Cluster struct {
		dataDir       string
		runDir        string
		runner        *Runner
		logger        *log.Logger
		lookupAccount AccountLookupFunc
	}
)

// --- Option Functions ---

// WithRunner sets the command runner, usually to inject a mock exec.
func WithRunner(r *Runner) ClusterOption {
	return func(c *Cluster) {
		c.runner = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) ClusterOption {
	return func(c *Cluster) {
		c.logger = logger
	}
}

// WithAccountLookup sets a custom system account resolver for testing.
func WithAccountLookup(fn AccountLookupFunc) ClusterOption {
	return func(c *Cluster) {
		c.lookupAccount = fn
	}
}

// --- Constructor ---

// NewCluster creates a Cluster for the given data and socket directories.
func NewCluster(dataDir, runDir string, opts ...ClusterOption) *Cluster {
	c := &Cluster{
		dataDir:       dataDir,
		runDir:        runDir,
		logger:        log.NewWithOptions(os.Stderr, log.Options{Prefix: "pgctl"}),
		lookupAccount: user.Lookup,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = NewRunner()
	}
	// pg_ctl's wait mode connects as PGUSER; default it to the bootstrap
	// superuser without clobbering an operator override.
	if _, ok := c.runner.envDefaults[envPGUser]; !ok {
		WithEnvDefault(envPGUser, pgspec.SuperuserRole.String())(c.runner)
	}
	return c
}

// --- Accessor Methods ---

// DataDir returns the cluster data directory.
func (c *Cluster) DataDir() string { return c.dataDir }

// RunDir returns the socket and lock directory.
func (c *Cluster) RunDir() string { return c.runDir }

// --- Directory Preparation ---

// Bootstrapped reports whether the data directory already holds a cluster.
func (c *Cluster) Bootstrapped() (bool, error) {
	info, err := os.Stat(filepath.Join(c.dataDir, versionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", versionFile, err)
	}
	return info.Mode().IsRegular(), nil
}

// PrepareDirectories creates the data and socket directories and hands them
// to the engine's system account. It is called while still running as root,
// before the re-exec drops privileges, so every failure is fatal.
func (c *Cluster) PrepareDirectories() error {
	if err := os.MkdirAll(c.dataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := c.chownTree(c.dataDir); err != nil {
		return err
	}
	if err := os.Chmod(c.dataDir, 0o700); err != nil {
		return fmt.Errorf("chmod data directory: %w", err)
	}

	if err := os.MkdirAll(c.runDir, 0o775); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	if err := c.chownTree(c.runDir); err != nil {
		return err
	}
	// Keep group ownership sticky so engine child processes can create
	// sockets and lock files next to each other.
	info, err := os.Stat(c.runDir)
	if err != nil {
		return fmt.Errorf("stat run directory: %w", err)
	}
	if err := os.Chmod(c.runDir, info.Mode().Perm()|os.ModeSetgid); err != nil {
		return fmt.Errorf("chmod run directory: %w", err)
	}
	return nil
}

// EnsureDataDir creates the data directory if missing and repairs ownership
// and permissions on a best-effort basis. By the time this runs the process
// is unprivileged, so the repairs may fail harmlessly on mounts that are
// already set up correctly.
func (c *Cluster) EnsureDataDir() error {
	if err := os.MkdirAll(c.dataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := c.chownTree(c.dataDir); err != nil {
		c.logger.Debug("data directory ownership left as is", "error", err)
	}
	if err := os.Chmod(c.dataDir, 0o700); err != nil {
		c.logger.Debug("data directory permissions left as is", "error", err)
	}
	return nil
}

// chownTree hands every file under root to the engine's system account.
func (c *Cluster) chownTree(root string) error {
	account, err := c.lookupAccount(SystemAccount)
	if err != nil {
		return fmt.Errorf("lookup account %s: %w", SystemAccount, err)
	}
	uid, err := strconv.Atoi(account.Uid)
	if err != nil {
		return fmt.Errorf("account %s has non-numeric uid %q", SystemAccount, account.Uid)
	}
	gid, err := strconv.Atoi(account.Gid)
	if err != nil {
		return fmt.Errorf("account %s has non-numeric gid %q", SystemAccount, account.Gid)
	}

	return filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := os.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
		return nil
	})
}

// --- Engine Lifecycle ---

// InitDB initializes the data directory with the bootstrap superuser and
// any extra initdb arguments from the configuration.
func (c *Cluster) InitDB(ctx context.Context, extraArgs []string) error {
	args := c.initdbArgs(extraArgs)
	c.logger.Debug("initializing data directory", "args", args)
	return c.runner.Run(ctx, binInitDB, args...)
}

// Start brings up the temporary bootstrap instance. It listens on localhost
// only: nothing outside the container can reach the engine until
// provisioning finished and the real server process takes over.
func (c *Cluster) Start(ctx context.Context) error {
	args := c.startArgs()
	c.logger.Debug("starting bootstrap instance", "args", args)
	return c.runner.Run(ctx, binPGCtl, args...)
}

// Stop shuts the bootstrap instance down again, waiting until the
// postmaster has exited so the real server does not race it for the data
// directory lock.
func (c *Cluster) Stop(ctx context.Context) error {
	args := c.stopArgs()
	c.logger.Debug("stopping bootstrap instance", "args", args)
	return c.runner.Run(ctx, binPGCtl, args...)
}

func (c *Cluster) initdbArgs(extraArgs []string) []string {
	args := []string{
		"--username=" + pgspec.SuperuserRole.String(),
		"--pgdata=" + c.dataDir,
	}
	return append(args, extraArgs...)
}

func (c *Cluster) startArgs() []string {
	// The socket directory is pinned to the run dir because that is where
	// the admin channel dials; the compiled-in default may differ.
	return []string{
		"-D", c.dataDir,
		"-o", fmt.Sprintf("-c listen_addresses='localhost' -c unix_socket_directories='%s'", c.runDir),
		"-w", "start",
	}
}

func (c *Cluster) stopArgs() []string {
	return []string{
		"-D", c.dataDir,
		"-m", "fast",
		"-w", "stop",
	}
}
