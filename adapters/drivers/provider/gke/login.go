package gke

import (
	"context"
	"fmt"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

// Login checks application default credentials by fetching a token. When none
// are usable and the login is interactive, it runs
// `gcloud auth application-default login` on the terminal and retries once.
func (d *driver) Login(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterLoginOption) (id *model.Identity, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "Login")
	defer func() { cleanup(err) }()

	var o model.ClusterLoginOptions
	for _, opt := range opts {
		opt(&o)
	}

	id, err = d.checkCredentials(ctx)
	if err == nil {
		return id, nil
	}
	logging.FromContext(ctx).Warn(ctx, "GCP application default credentials are not usable", "err", err)
	if !o.Interactive || d.deps.Shell == nil {
		return nil, err
	}
	if err := d.deps.Shell.Attach(ctx, "gcloud", "auth", "application-default", "login"); err != nil {
		return nil, fmt.Errorf("gcp: %w: %v", model.ErrNotLoggedIn, err)
	}
	d.creds = nil
	return d.checkCredentials(ctx)
}

func (d *driver) checkCredentials(ctx context.Context) (*model.Identity, error) {
	creds, err := d.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := creds.TokenSource.Token(); err != nil {
		d.creds = nil
		return nil, fmt.Errorf("gcp: %w: %v", model.ErrNotLoggedIn, err)
	}
	project, err := d.project(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Identity{Provider: model.ProviderGCP, Account: project, Method: "application_default"}, nil
}
