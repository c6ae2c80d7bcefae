package registry

import (
	"testing"

	"github.com/kompox/kprotect/domain/model"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		url  string
		want model.RegistryType
	}{
		{"123456789012.dkr.ecr.us-east-1.amazonaws.com/falcon", model.RegistryECR},
		{"https://123456789012.dkr.ecr.eu-west-2.amazonaws.com", model.RegistryECR},
		{"12345.dkr.ecr.us-east-1.amazonaws.com", model.RegistryGeneric},
		{"myregistry.azurecr.io/crowdstrike", model.RegistryACR},
		{"gcr.io/my-project", model.RegistryGCR},
		{"eu.gcr.io/my-project", model.RegistryGCR},
		{"us-central1-docker.pkg.dev/my-project/repo", model.RegistryGAR},
		{"docker.io/acme", model.RegistryDockerHub},
		{"quay.io/acme", model.RegistryQuay},
		{"harbor.example.com/library", model.RegistryGeneric},
		{"localhost:5000/x", model.RegistryGeneric},
	}
	for _, tt := range tests {
		if got := DetectType(tt.url); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestECRRegion(t *testing.T) {
	if got := ECRRegion("123456789012.dkr.ecr.ap-northeast-1.amazonaws.com"); got != "ap-northeast-1" {
		t.Errorf("got %q", got)
	}
	if got := ECRRegion("quay.io"); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestNeedsPullSecret(t *testing.T) {
	if NeedsPullSecret(model.RegistryECR, model.ClusterTypeEKSManagedNode) {
		t.Error("ecr on eks needs no secret")
	}
	if !NeedsPullSecret(model.RegistryECR, model.ClusterTypeAKS) {
		t.Error("ecr on aks needs a secret")
	}
	if !NeedsPullSecret(model.RegistryGeneric, model.ClusterTypeGKEStandard) {
		t.Error("generic registry always needs a secret")
	}
}
