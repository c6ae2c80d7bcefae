package falcon

import (
	"context"
	"fmt"
	"sync"

	"github.com/kompox/kprotect/domain/model"
)

// Vendor implements model.VendorPort with a Client and an ImageResolver.
type Vendor struct {
	Client *Client
	Images *ImageResolver

	mu       sync.Mutex
	cid      string
	password string
	kpa      map[string]*KPAConfig
}

var _ model.VendorPort = (*Vendor)(nil)

// NewVendor returns a Vendor for creds using the registry of creds.Cloud.
func NewVendor(ctx context.Context, creds model.FalconCredentials, opts ...Option) (*Vendor, error) {
	c, err := NewClient(ctx, creds, opts...)
	if err != nil {
		return nil, err
	}
	cloud := creds.Cloud
	if cloud == "" {
		cloud = model.CloudUS1
	}
	return &Vendor{Client: c, Images: &ImageResolver{Cloud: cloud}}, nil
}

// Connect is a model.VendorConnector against the public vendor endpoints.
func Connect(ctx context.Context, creds model.FalconCredentials) (model.VendorPort, error) {
	return NewVendor(ctx, creds)
}

// CID returns the customer id, fetched once.
func (v *Vendor) CID(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cid != "" {
		return v.cid, nil
	}
	cid, err := v.Client.CID(ctx)
	if err != nil {
		return "", err
	}
	v.cid = cid
	return cid, nil
}

func (v *Vendor) registryPassword(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.password != "" {
		return v.password, nil
	}
	pw, err := v.Client.RegistryPassword(ctx)
	if err != nil {
		return "", err
	}
	v.password = pw
	return pw, nil
}

func (v *Vendor) kpaConfig(ctx context.Context, clusterName string) (*KPAConfig, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cfg, ok := v.kpa[clusterName]; ok {
		return cfg, nil
	}
	cfg, err := v.Client.KPAConfig(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	if v.kpa == nil {
		v.kpa = map[string]*KPAConfig{}
	}
	v.kpa[clusterName] = cfg
	return cfg, nil
}

// KPAValues returns the agent values for clusterName.
func (v *Vendor) KPAValues(ctx context.Context, clusterName string) (map[string]any, error) {
	cfg, err := v.kpaConfig(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	return cfg.Values, nil
}

// ResolveImage logs in to the vendor registry as the component user and picks
// the newest tag matching req.Version. KPA reads with the cluster's docker API
// token; everything else with the registry password.
func (v *Vendor) ResolveImage(ctx context.Context, req model.ImageRequest) (*model.VendorImage, error) {
	cid, err := v.CID(ctx)
	if err != nil {
		return nil, err
	}
	var password string
	if req.Component == model.ComponentKPA {
		if req.ClusterName == "" {
			return nil, fmt.Errorf("kpa image needs a cluster name: %w", model.ErrInvalidOptions)
		}
		cfg, err := v.kpaConfig(ctx, req.ClusterName)
		if err != nil {
			return nil, err
		}
		password = cfg.DockerAPIToken
	} else {
		if password, err = v.registryPassword(ctx); err != nil {
			return nil, err
		}
	}
	user := RegistryUsername(req.Component, cid)
	ref, err := v.Images.Resolve(ctx, ImageRequest{
		Component: req.Component,
		Mode:      req.Mode,
		Version:   req.Version,
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, err
	}
	return &model.VendorImage{ImageRef: ref, Username: user, Password: password}, nil
}
