package main

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"golang.org/x/oauth2/google"

	"github.com/kompox/kprotect/adapters/registry"
	"github.com/kompox/kprotect/config/kprotectcfg"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/awsauth"
	"github.com/kompox/kprotect/internal/credstore"
)

const googleCloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// buildRegistryCredentials returns the cloud identity matching the target
// registry type. Other registries use the docker keychain.
func buildRegistryCredentials(ctx context.Context, cfg *kprotectcfg.Root) (*registry.Credentials, error) {
	target := kprotectcfg.RegistryRepository(cfg.Registry.URL)
	creds := &registry.Credentials{}
	switch registry.DetectType(target) {
	case model.RegistryECR:
		src := awsauth.Source{Profile: cfg.AWS.Profile, Store: credstore.Default()}
		awsCfg, _, err := src.Load(ctx, registry.ECRRegion(registry.Host(target)))
		if err != nil {
			return nil, fmt.Errorf("load aws config for ecr: %w", err)
		}
		creds.ECR = ecr.NewFromConfig(awsCfg)
	case model.RegistryACR:
		opts := &azidentity.DefaultAzureCredentialOptions{TenantID: cfg.Azure.TenantID}
		cred, err := azidentity.NewDefaultAzureCredential(opts)
		if err != nil {
			return nil, fmt.Errorf("azure credential for acr: %w", err)
		}
		creds.Azure = cred
	case model.RegistryGCR, model.RegistryGAR:
		ts, err := google.DefaultTokenSource(ctx, googleCloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("google credentials for %s: %w", registry.Host(target), err)
		}
		creds.Google = ts
	}
	return creds, nil
}
