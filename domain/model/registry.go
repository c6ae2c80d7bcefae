package model

// RegistryType classifies a container registry by its URL.
type RegistryType string

const (
	RegistryECR       RegistryType = "ecr"
	RegistryACR       RegistryType = "acr"
	RegistryGCR       RegistryType = "gcr"
	RegistryGAR       RegistryType = "gar"
	RegistryDockerHub RegistryType = "dockerhub"
	RegistryQuay      RegistryType = "quay"
	RegistryGeneric   RegistryType = "generic"
)

// NativeTo reports whether nodes of the cluster type can pull from the registry
// with their cloud identity, so no image pull secret is needed.
func (r RegistryType) NativeTo(t ClusterType) bool {
	switch r {
	case RegistryECR:
		return t.Provider() == ProviderAWS
	case RegistryACR:
		return t.Provider() == ProviderAzure
	case RegistryGCR, RegistryGAR:
		return t.Provider() == ProviderGCP
	}
	return false
}
