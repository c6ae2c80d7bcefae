package model

import "context"

// ImageRequest selects one vendor component image.
type ImageRequest struct {
	Component Component
	Mode      SensorMode
	// Version is an optional tag prefix. Empty selects the newest tag.
	Version string
	// ClusterName scopes the KPA registry token.
	ClusterName string
}

// VendorImage is a resolved vendor image with the registry login that reads it.
type VendorImage struct {
	ImageRef
	Username string `json:"-"`
	Password string `json:"-"`
}

// VendorPort is the vendor API and registry side of component installs.
type VendorPort interface {
	CID(ctx context.Context) (string, error)
	ResolveImage(ctx context.Context, req ImageRequest) (*VendorImage, error)
	// KPAValues returns the agent helm values generated for clusterName.
	KPAValues(ctx context.Context, clusterName string) (map[string]any, error)
}

// VendorConnector opens a VendorPort for the given credentials.
type VendorConnector func(ctx context.Context, creds FalconCredentials) (VendorPort, error)

// MirrorPort copies vendor images into a private registry.
type MirrorPort interface {
	// Mirror copies src under target (host[/path]) keeping the repository
	// basename and tag. The returned ImageRef carries a pull token only when
	// nodes of clusterType cannot pull from target with their cloud identity.
	Mirror(ctx context.Context, src *VendorImage, target string, clusterType ClusterType) (ImageRef, error)
}
