package gke

import (
	"context"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
)

func (d *driver) withMethodLogger(ctx context.Context, method string) (context.Context, func(err error)) {
	return providerdrv.WithMethodLogger(ctx, "GKE", method)
}
