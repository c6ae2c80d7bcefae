// Package registry copies vendor images into private registries.
package registry

import (
	"regexp"
	"strings"

	"github.com/kompox/kprotect/domain/model"
)

var (
	ecrHost = regexp.MustCompile(`^\d{12}\.dkr\.ecr(-fips)?\.[a-z0-9-]+\.amazonaws\.com(\.cn)?$`)
	acrHost = regexp.MustCompile(`^[a-z0-9]+\.azurecr\.(io|cn|us)$`)
	gcrHost = regexp.MustCompile(`^([a-z]+\.)?gcr\.io$`)
	garHost = regexp.MustCompile(`^[a-z0-9-]+-docker\.pkg\.dev$`)
)

// Host returns the registry host of a URL such as https://host/path or host/path.
func Host(u string) string {
	u = strings.TrimPrefix(strings.TrimPrefix(u, "https://"), "http://")
	host, _, _ := strings.Cut(u, "/")
	return strings.ToLower(host)
}

// DetectType classifies a registry URL by its host.
func DetectType(u string) model.RegistryType {
	host := Host(u)
	switch {
	case ecrHost.MatchString(host):
		return model.RegistryECR
	case acrHost.MatchString(host):
		return model.RegistryACR
	case gcrHost.MatchString(host):
		return model.RegistryGCR
	case garHost.MatchString(host):
		return model.RegistryGAR
	case host == "docker.io" || host == "index.docker.io" || host == "registry-1.docker.io":
		return model.RegistryDockerHub
	case host == "quay.io":
		return model.RegistryQuay
	}
	return model.RegistryGeneric
}

// ECRRegion returns the AWS region of an ECR host, or "" for other hosts.
func ECRRegion(host string) string {
	if !ecrHost.MatchString(host) {
		return ""
	}
	parts := strings.Split(host, ".")
	// <account>.dkr.ecr.<region>.amazonaws.com
	return parts[3]
}

// NeedsPullSecret reports whether the cluster needs an image pull secret to
// pull from a registry of type t.
func NeedsPullSecret(t model.RegistryType, ct model.ClusterType) bool {
	return !t.NativeTo(ct)
}
