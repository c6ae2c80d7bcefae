// Package naming derives cloud resource names for clusters created by kprotect.
package naming

import (
	"crypto/sha1"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SuffixLength is the length of the random suffix appended to generated names.
const SuffixLength = 6

// DefaultPrefix is used for generated cluster names.
const DefaultPrefix = "kprotect"

// ShortHash returns the hex SHA1 prefix of length n (clamped to digest size).
func ShortHash(s string, n int) string {
	sum := sha1.Sum([]byte(s))
	h := fmt.Sprintf("%x", sum)
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}

// RandomSuffix returns a lowercase alphanumeric suffix of SuffixLength characters.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:SuffixLength]
}

// ClusterName returns "<prefix>-<suffix>".
func ClusterName(prefix, suffix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "-" + suffix
}

// ResourceGroupName returns the default Azure resource group of a cluster.
func ResourceGroupName(cluster string) string {
	return cluster + "-rg"
}

// NodegroupName returns the default EKS managed node group of a cluster.
func NodegroupName(cluster string) string {
	return cluster + "-ng"
}

// FargateProfileName returns the default EKS Fargate profile of a cluster.
func FargateProfileName(cluster string) string {
	return cluster + "-fp"
}

// ContextName returns the kubeconfig context name kprotect writes for a cluster.
// Region is hashed so that equally named clusters in two regions do not collide.
func ContextName(provider, region, cluster string) string {
	return fmt.Sprintf("kprotect-%s-%s-%s", provider, cluster, ShortHash(region, 4))
}
