package eks

import (
	"context"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
)

// withMethodLogger opens an EKS:<method> span.
//
//	ctx, cleanup := d.withMethodLogger(ctx, "ClusterProvision")
//	defer func() { cleanup(err) }()
func (d *driver) withMethodLogger(ctx context.Context, method string) (context.Context, func(err error)) {
	return providerdrv.WithMethodLogger(ctx, "EKS", method)
}
