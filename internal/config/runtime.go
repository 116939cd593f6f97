// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"

	"github.com/spf13/viper"
)

// DefaultRunDir is where the engine keeps its unix socket and lock files.
// Debian-family images create it owned by postgres; the entrypoint repairs
// ownership when running as root.
const DefaultRunDir = "/var/run/postgresql"

// ErrMissingDataDir is returned when PGDATA is not set. There is no sane
// default: provisioning an unintended directory would hide volume mounting
// mistakes.
var ErrMissingDataDir = fmt.Errorf("%w: PGDATA must be set", pgspec.ErrConfigParse)

// RuntimeOptions are the entrypoint's own knobs, distinct from the
// provisioning declarations: where the cluster lives and how chatty the
// entrypoint is. They are layered viper-style, defaults first, then
// environment bindings.
type RuntimeOptions struct {
	// DataDir is the cluster data directory, taken from PGDATA.
	DataDir string `mapstructure:"data_dir"`
	// RunDir is the socket and lock directory, taken from POSTGRES_RUN_DIR.
	RunDir string `mapstructure:"run_dir"`
	// Verbose enables debug logging, taken from POSTGRES_ENTRYPOINT_VERBOSE.
	Verbose bool `mapstructure:"verbose"`
}

// loadRuntimeOptions reads the runtime knobs from the process environment.
func loadRuntimeOptions() (*RuntimeOptions, error) {
	v := viper.New()

	v.SetDefault("data_dir", "")
	v.SetDefault("run_dir", DefaultRunDir)
	v.SetDefault("verbose", false)

	// BindEnv never fails with both a key and a variable name.
	_ = v.BindEnv("data_dir", "PGDATA")
	_ = v.BindEnv("run_dir", "POSTGRES_RUN_DIR")
	_ = v.BindEnv("verbose", "POSTGRES_ENTRYPOINT_VERBOSE")

	var opts RuntimeOptions
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("decode runtime options: %w", err)
	}

	if opts.DataDir == "" {
		return nil, ErrMissingDataDir
	}
	return &opts, nil
}
