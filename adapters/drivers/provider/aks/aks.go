// Package aks implements the Azure provider driver on Azure Kubernetes Service.
package aks

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/credstore"
)

// Auth methods accepted in the azure_auth_method setting.
const (
	authDefault           = "default"
	authClientSecret      = "client_secret"
	authManagedIdentity   = "managed_identity"
	authWorkloadIdentity  = "workload_identity"
	authAzureCLI          = "azure_cli"
	authAzureDeveloperCLI = "azure_developer_cli"
	authDeviceCode        = "device_code"
	authInteractive       = "interactive_browser"
)

// Keys of azure-sp.conf.
const (
	keyTenantID       = "AZURE_TENANT_ID"
	keyClientID       = "AZURE_CLIENT_ID"
	keyClientSecret   = "AZURE_CLIENT_SECRET"
	keySubscriptionID = "AZURE_SUBSCRIPTION_ID"
	keyTokenFile      = "AZURE_FEDERATED_TOKEN_FILE"
)

// driver implements the AKS provider driver.
type driver struct {
	settings map[string]string
	deps     *providerdrv.Deps

	// sp holds the service principal from azure-sp.conf, if any.
	sp map[string]string

	cred       azcore.TokenCredential
	authMethod string

	// newARM builds ARM clients; tests replace it.
	newARM func(subscriptionID string, cred azcore.TokenCredential) (armAPI, error)
	// newDeviceCode builds the credential used by the interactive fallback.
	newDeviceCode func(tenantID string) (azcore.TokenCredential, error)
}

// ID returns the provider identifier.
func (d *driver) ID() string { return string(model.ProviderAzure) }

// init registers the AKS driver.
func init() {
	providerdrv.Register(string(model.ProviderAzure), func(settings map[string]string, deps *providerdrv.Deps) (providerdrv.Driver, error) {
		return newDriver(settings, deps)
	})
}

func newDriver(settings map[string]string, deps *providerdrv.Deps) (*driver, error) {
	if deps == nil {
		deps = &providerdrv.Deps{}
	}
	d := &driver{settings: settings, deps: deps, newARM: newARMClients}
	d.newDeviceCode = d.deviceCodeCredential
	if deps.Creds != nil {
		sp, err := deps.Creds.Load(credstore.AzureServicePrincipal)
		if err != nil {
			return nil, err
		}
		d.sp = sp
	}
	cred, method, err := d.credential()
	if err != nil {
		return nil, err
	}
	d.cred, d.authMethod = cred, method
	return d, nil
}

// get returns a setting, falling back to azure-sp.conf and then the environment.
func (d *driver) get(settingKey, confKey string) string {
	if v := providerdrv.Setting(d.settings, settingKey); v != "" {
		return v
	}
	if v := d.sp[confKey]; v != "" {
		return v
	}
	return os.Getenv(confKey)
}

func (d *driver) tenantID() string { return d.get(model.SettingAzureTenantID, keyTenantID) }

func (d *driver) subscriptionID() string {
	return d.get(model.SettingAzureSubscriptionID, keySubscriptionID)
}

// credential builds the token credential for the configured auth method.
// A complete service principal in azure-sp.conf selects client_secret when
// no method is configured.
func (d *driver) credential() (azcore.TokenCredential, string, error) {
	method := providerdrv.Setting(d.settings, model.SettingAzureAuthMethod)
	if method == "" {
		method = authDefault
		if d.sp[keyClientID] != "" && d.sp[keyClientSecret] != "" && d.sp[keyTenantID] != "" {
			method = authClientSecret
		}
	}
	tenantID := d.tenantID()
	clientID := d.get("", keyClientID)

	var cred azcore.TokenCredential
	var err error
	switch method {
	case authDefault:
		cred, err = azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{TenantID: tenantID})
	case authClientSecret:
		secret := d.get("", keyClientSecret)
		if tenantID == "" || clientID == "" || secret == "" {
			return nil, "", fmt.Errorf("%w: client_secret auth requires AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_CLIENT_SECRET", model.ErrInvalidOptions)
		}
		cred, err = azidentity.NewClientSecretCredential(tenantID, clientID, secret, nil)
	case authManagedIdentity:
		opts := &azidentity.ManagedIdentityCredentialOptions{}
		if clientID != "" {
			opts.ID = azidentity.ClientID(clientID)
		}
		cred, err = azidentity.NewManagedIdentityCredential(opts)
	case authWorkloadIdentity:
		tokenFile := d.get("", keyTokenFile)
		if tenantID == "" || clientID == "" || tokenFile == "" {
			return nil, "", fmt.Errorf("%w: workload_identity auth requires AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_FEDERATED_TOKEN_FILE", model.ErrInvalidOptions)
		}
		cred, err = azidentity.NewWorkloadIdentityCredential(&azidentity.WorkloadIdentityCredentialOptions{
			TenantID:      tenantID,
			ClientID:      clientID,
			TokenFilePath: tokenFile,
		})
	case authAzureCLI:
		cred, err = azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{TenantID: tenantID})
	case authAzureDeveloperCLI:
		cred, err = azidentity.NewAzureDeveloperCLICredential(&azidentity.AzureDeveloperCLICredentialOptions{TenantID: tenantID})
	case authDeviceCode:
		cred, err = d.deviceCodeCredential(tenantID)
	case authInteractive:
		cred, err = azidentity.NewInteractiveBrowserCredential(&azidentity.InteractiveBrowserCredentialOptions{TenantID: tenantID})
	default:
		return nil, "", fmt.Errorf("%w: unsupported azure auth method %q", model.ErrInvalidOptions, method)
	}
	if err != nil {
		return nil, "", fmt.Errorf("create Azure credential: %w", err)
	}
	return cred, method, nil
}

func (d *driver) deviceCodeCredential(tenantID string) (azcore.TokenCredential, error) {
	return azidentity.NewDeviceCodeCredential(&azidentity.DeviceCodeCredentialOptions{
		TenantID: tenantID,
		UserPrompt: func(_ context.Context, msg azidentity.DeviceCodeMessage) error {
			var w io.Writer = os.Stderr
			if d.deps.Prompter != nil {
				w = d.deps.Prompter.Out
			}
			fmt.Fprintln(w, msg.Message)
			return nil
		},
	})
}

// arm returns ARM clients for the configured subscription.
func (d *driver) arm() (armAPI, error) {
	sub := d.subscriptionID()
	if sub == "" {
		return nil, fmt.Errorf("%w: azure subscription id is required (--azure-subscription-id or %s)", model.ErrInvalidOptions, keySubscriptionID)
	}
	return d.newARM(sub, d.cred)
}
