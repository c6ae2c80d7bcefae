package model

import (
	"fmt"
	"strings"
)

// FalconCloud is a vendor cloud region.
type FalconCloud string

const (
	CloudUS1    FalconCloud = "us-1"
	CloudUS2    FalconCloud = "us-2"
	CloudEU1    FalconCloud = "eu-1"
	CloudUSGov1 FalconCloud = "us-gov-1"
)

// ParseFalconCloud parses a vendor cloud name. Empty selects us-1.
func ParseFalconCloud(s string) (FalconCloud, error) {
	switch FalconCloud(strings.ToLower(strings.TrimSpace(s))) {
	case "", CloudUS1:
		return CloudUS1, nil
	case CloudUS2:
		return CloudUS2, nil
	case CloudEU1:
		return CloudEU1, nil
	case CloudUSGov1:
		return CloudUSGov1, nil
	}
	return "", fmt.Errorf("%w: unknown falcon cloud %q (expected us-1, us-2, eu-1 or us-gov-1)", ErrInvalidOptions, s)
}

// APIBaseURL returns the vendor API endpoint.
func (c FalconCloud) APIBaseURL() string {
	switch c {
	case CloudUS2:
		return "https://api.us-2.crowdstrike.com"
	case CloudEU1:
		return "https://api.eu-1.crowdstrike.com"
	case CloudUSGov1:
		return "https://api.laggar.gcw.crowdstrike.com"
	}
	return "https://api.crowdstrike.com"
}

// RegistryHost returns the vendor image registry host.
func (c FalconCloud) RegistryHost() string {
	if c == CloudUSGov1 {
		return "registry.laggar.gcw.crowdstrike.com"
	}
	return "registry.crowdstrike.com"
}

// RegistrySegment returns the cloud path segment used in image repositories.
func (c FalconCloud) RegistrySegment() string {
	if c == CloudUSGov1 {
		return "gov1"
	}
	return string(c)
}

// FalconCredentials are the vendor API client credentials.
type FalconCredentials struct {
	ClientID     string
	ClientSecret string
	Cloud        FalconCloud
}

// Valid reports whether both halves of the credentials are set.
func (c FalconCredentials) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ImageRef is a fully resolved component image.
type ImageRef struct {
	Repository string // host/path without tag
	Tag        string
	// PullToken is the base64 encoded dockerconfigjson for the repository host.
	// Empty when the cluster pulls without a secret.
	PullToken string
}

// String returns repository:tag.
func (r ImageRef) String() string {
	if r.Tag == "" {
		return r.Repository
	}
	return r.Repository + ":" + r.Tag
}
