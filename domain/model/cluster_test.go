package model

import (
	"errors"
	"testing"
)

func TestParseClusterType(t *testing.T) {
	tests := []struct {
		name     string
		provider CloudProvider
		input    string
		want     ClusterType
		wantErr  bool
	}{
		{name: "eks managed", provider: ProviderAWS, input: "eks-managed-node", want: ClusterTypeEKSManagedNode},
		{name: "case insensitive", provider: ProviderAWS, input: "EKS-Fargate", want: ClusterTypeEKSFargate},
		{name: "aks", provider: ProviderAzure, input: "aks", want: ClusterTypeAKS},
		{name: "autopilot", provider: ProviderGCP, input: "gke-autopilot", want: ClusterTypeGKEAutopilot},
		{name: "no provider check", provider: "", input: "gke-standard", want: ClusterTypeGKEStandard},
		{name: "wrong provider", provider: ProviderAzure, input: "eks-fargate", wantErr: true},
		{name: "unknown", provider: ProviderAWS, input: "eks-windows", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClusterType(tt.provider, tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOptions) {
					t.Fatalf("expected ErrInvalidOptions, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClusterTypeSensorMode(t *testing.T) {
	for _, ct := range []ClusterType{ClusterTypeEKSManagedNode, ClusterTypeEKSSelfManagedNode, ClusterTypeAKS, ClusterTypeGKEStandard, ClusterTypeGKEAutopilot} {
		if ct.SensorMode() != SensorModeDaemonset {
			t.Errorf("%s: want daemonset", ct)
		}
	}
	if ClusterTypeEKSFargate.SensorMode() != SensorModeSidecar {
		t.Errorf("eks-fargate: want sidecar")
	}
}

func TestDefaultClusterType(t *testing.T) {
	cases := map[CloudProvider]ClusterType{
		ProviderAWS:   ClusterTypeEKSManagedNode,
		ProviderAzure: ClusterTypeAKS,
		ProviderGCP:   ClusterTypeGKEStandard,
	}
	for p, want := range cases {
		if got := DefaultClusterType(p); got != want {
			t.Errorf("%s: got %q, want %q", p, got, want)
		}
	}
}

func TestParseComponents(t *testing.T) {
	all, err := ParseComponents("all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 || all[0] != ComponentSensor || all[3] != ComponentKPA {
		t.Errorf("unexpected expansion: %v", all)
	}
	// expansion must not alias the package slice
	all[0] = ComponentDemo
	if VendorComponents[0] != ComponentSensor {
		t.Fatal("VendorComponents was modified through the returned slice")
	}

	demo, err := ParseComponents("demo")
	if err != nil || len(demo) != 1 || demo[0] != ComponentDemo {
		t.Errorf("demo: got %v, %v", demo, err)
	}
	if demo[0].IsVendor() {
		t.Error("demo must not be a vendor component")
	}
	if _, err := ParseComponents("falcon"); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestFalconCloud(t *testing.T) {
	c, err := ParseFalconCloud("")
	if err != nil || c != CloudUS1 {
		t.Fatalf("default cloud: got %q, %v", c, err)
	}
	gov, err := ParseFalconCloud("US-GOV-1")
	if err != nil {
		t.Fatal(err)
	}
	if gov.RegistrySegment() != "gov1" {
		t.Errorf("segment = %q", gov.RegistrySegment())
	}
	if gov.RegistryHost() != "registry.laggar.gcw.crowdstrike.com" {
		t.Errorf("host = %q", gov.RegistryHost())
	}
	if CloudEU1.APIBaseURL() != "https://api.eu-1.crowdstrike.com" {
		t.Errorf("api = %q", CloudEU1.APIBaseURL())
	}
	if _, err := ParseFalconCloud("ap-1"); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestRegistryNativeTo(t *testing.T) {
	tests := []struct {
		reg  RegistryType
		ct   ClusterType
		want bool
	}{
		{RegistryECR, ClusterTypeEKSFargate, true},
		{RegistryECR, ClusterTypeAKS, false},
		{RegistryACR, ClusterTypeAKS, true},
		{RegistryGAR, ClusterTypeGKEAutopilot, true},
		{RegistryGCR, ClusterTypeGKEStandard, true},
		{RegistryDockerHub, ClusterTypeGKEStandard, false},
		{RegistryGeneric, ClusterTypeEKSManagedNode, false},
	}
	for _, tt := range tests {
		if got := tt.reg.NativeTo(tt.ct); got != tt.want {
			t.Errorf("%s on %s: got %v, want %v", tt.reg, tt.ct, got, tt.want)
		}
	}
}
