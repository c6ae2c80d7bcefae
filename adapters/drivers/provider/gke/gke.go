// Package gke implements the GCP provider driver on Google Kubernetes Engine.
package gke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	container "google.golang.org/api/container/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
	"github.com/kompox/kprotect/domain/model"
)

// driver implements the GKE provider driver.
type driver struct {
	settings map[string]string
	deps     *providerdrv.Deps

	// findCredentials resolves application default credentials; tests replace it.
	findCredentials func(ctx context.Context) (*google.Credentials, error)
	// serviceOptions are extra client options; tests point them at a local server.
	serviceOptions []option.ClientOption
	pollInterval   time.Duration

	creds *google.Credentials
}

// ID returns the provider identifier.
func (d *driver) ID() string { return string(model.ProviderGCP) }

// init registers the GKE driver.
func init() {
	providerdrv.Register(string(model.ProviderGCP), func(settings map[string]string, deps *providerdrv.Deps) (providerdrv.Driver, error) {
		return newDriver(settings, deps), nil
	})
}

func newDriver(settings map[string]string, deps *providerdrv.Deps) *driver {
	if deps == nil {
		deps = &providerdrv.Deps{}
	}
	return &driver{
		settings: settings,
		deps:     deps,
		findCredentials: func(ctx context.Context) (*google.Credentials, error) {
			return google.FindDefaultCredentials(ctx, container.CloudPlatformScope)
		},
		pollInterval: 10 * time.Second,
	}
}

func isNotFound(err error) bool {
	var ge *googleapi.Error
	return errors.As(err, &ge) && ge.Code == http.StatusNotFound
}

// credentials returns cached application default credentials.
func (d *driver) credentials(ctx context.Context) (*google.Credentials, error) {
	if d.creds != nil {
		return d.creds, nil
	}
	creds, err := d.findCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcp: %w: %v", model.ErrNotLoggedIn, err)
	}
	d.creds = creds
	return creds, nil
}

// project returns the gcp_project setting or the project of the credentials.
func (d *driver) project(ctx context.Context) (string, error) {
	if p := providerdrv.Setting(d.settings, model.SettingGCPProject); p != "" {
		return p, nil
	}
	creds, err := d.credentials(ctx)
	if err != nil {
		return "", err
	}
	if creds.ProjectID == "" {
		return "", fmt.Errorf("%w: gcp project is required (--gcp-project)", model.ErrInvalidOptions)
	}
	return creds.ProjectID, nil
}

func (d *driver) service(ctx context.Context) (*container.Service, error) {
	opts := d.serviceOptions
	if len(opts) == 0 {
		creds, err := d.credentials(ctx)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithCredentials(creds)}
	}
	svc, err := container.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GKE client: %w", err)
	}
	return svc, nil
}

type location struct {
	project, region string
}

func (l location) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", l.project, l.region)
}

func (l location) cluster(name string) string { return l.parent() + "/clusters/" + name }

func (l location) operation(name string) string { return l.parent() + "/operations/" + name }

func (d *driver) location(ctx context.Context, cluster *model.Cluster) (location, error) {
	if cluster.Region == "" {
		return location{}, fmt.Errorf("%w: gcp region or zone (--region) is required", model.ErrInvalidOptions)
	}
	project, err := d.project(ctx)
	if err != nil {
		return location{}, err
	}
	return location{project: project, region: cluster.Region}, nil
}
