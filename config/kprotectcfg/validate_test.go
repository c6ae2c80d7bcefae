package kprotectcfg

import (
	"errors"
	"testing"

	"github.com/kompox/kprotect/domain/model"
)

func validRoot() *Root {
	return &Root{
		Falcon:  Falcon{ClientID: "id", ClientSecret: "secret", Cloud: "us-2"},
		Cluster: Cluster{Name: "kprotect-abc123", NodeCount: 2},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		provider model.CloudProvider
		mutate   func(r *Root)
		wantErr  bool
	}{
		{name: "valid", provider: model.ProviderAWS, mutate: func(r *Root) {}},
		{name: "bad cloud", provider: model.ProviderAWS, mutate: func(r *Root) { r.Falcon.Cloud = "mars-1" }, wantErr: true},
		{name: "type of other provider", provider: model.ProviderGCP, mutate: func(r *Root) { r.Cluster.Type = "aks" }, wantErr: true},
		{name: "type matches", provider: model.ProviderGCP, mutate: func(r *Root) { r.Cluster.Type = "gke-autopilot" }},
		{name: "bad gke name", provider: model.ProviderGCP, mutate: func(r *Root) { r.Cluster.Name = "9lives" }, wantErr: true},
		{name: "zero nodes", provider: model.ProviderAzure, mutate: func(r *Root) { r.Cluster.NodeCount = 0 }, wantErr: true},
		{name: "both sensor modes", provider: model.ProviderAWS, mutate: func(r *Root) { r.Sensor.KernelMode, r.Sensor.EBPFMode = true, true }, wantErr: true},
		{name: "registry host", provider: model.ProviderAWS, mutate: func(r *Root) { r.Registry.URL = "123456789012.dkr.ecr.us-east-1.amazonaws.com" }},
		{name: "registry repo with scheme", provider: model.ProviderAzure, mutate: func(r *Root) { r.Registry.URL = "https://myacr.azurecr.io/falcon/" }},
		{name: "bad registry", provider: model.ProviderAWS, mutate: func(r *Root) { r.Registry.URL = "bad registry!" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRoot()
			tt.mutate(r)
			err := r.Validate(tt.provider)
			if tt.wantErr {
				if !errors.Is(err, model.ErrInvalidOptions) {
					t.Fatalf("expected ErrInvalidOptions, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSensorBackendAndCredentials(t *testing.T) {
	r := validRoot()
	if r.SensorBackend() != "" {
		t.Error("expected no backend")
	}
	r.Sensor.EBPFMode = true
	if r.SensorBackend() != model.BackendBPF {
		t.Errorf("backend = %q", r.SensorBackend())
	}
	creds := r.FalconCredentials()
	if !creds.Valid() || creds.Cloud != model.CloudUS2 {
		t.Errorf("credentials = %+v", creds)
	}
	if got := RegistryRepository(" https://r.example.com/a/ "); got != "r.example.com/a" {
		t.Errorf("RegistryRepository = %q", got)
	}
}
