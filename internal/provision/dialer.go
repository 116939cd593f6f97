// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"

	"github.com/lmm-git/docker-postgres-multi/internal/admin"
	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// NewEngineDialer wraps the administrative dialer so the channels it opens
// satisfy the Channel interface.
func NewEngineDialer(d *admin.Dialer) Dialer {
	return engineDialer{d: d}
}

type engineDialer struct {
	d *admin.Dialer
}

func (e engineDialer) Dial(ctx context.Context, database pgspec.DatabaseName) (Channel, error) {
	ch, err := e.d.Dial(ctx, database)
	if err != nil {
		return nil, err
	}
	return ch, nil
}
