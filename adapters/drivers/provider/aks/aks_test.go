package aks

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice"
	"github.com/golang-jwt/jwt/v5"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/credstore"
	"github.com/kompox/kprotect/internal/terminal"
)

const testTenant = "00000000-0000-0000-0000-000000000000"

type fakeCredential struct {
	token string
	err   error
	calls int
}

func (f *fakeCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.calls++
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func testToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func notFound() error {
	return &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}
}

type mockARM struct {
	groups   map[string]string
	clusters map[string]armcontainerservice.ManagedCluster
	created  []armcontainerservice.ManagedCluster
}

func newMockARM() *mockARM {
	return &mockARM{groups: map[string]string{}, clusters: map[string]armcontainerservice.ManagedCluster{}}
}

func (m *mockARM) EnsureResourceGroup(_ context.Context, name, location string, _ map[string]*string) error {
	m.groups[name] = location
	return nil
}

func (m *mockARM) DeleteResourceGroup(_ context.Context, name string) error {
	if _, ok := m.groups[name]; !ok {
		return notFound()
	}
	delete(m.groups, name)
	for k := range m.clusters {
		if strings.HasPrefix(k, name+"/") {
			delete(m.clusters, k)
		}
	}
	return nil
}

func (m *mockARM) GetCluster(_ context.Context, rg, name string) (*armcontainerservice.ManagedCluster, error) {
	mc, ok := m.clusters[rg+"/"+name]
	if !ok {
		return nil, notFound()
	}
	return &mc, nil
}

func (m *mockARM) CreateCluster(_ context.Context, rg, name string, mc armcontainerservice.ManagedCluster) error {
	if _, ok := m.groups[rg]; !ok {
		return notFound()
	}
	mc.Properties.ProvisioningState = to.Ptr("Succeeded")
	mc.Properties.Fqdn = to.Ptr(name + ".hcp.eastus.azmk8s.io")
	m.clusters[rg+"/"+name] = mc
	m.created = append(m.created, mc)
	return nil
}

func (m *mockARM) DeleteCluster(_ context.Context, rg, name string) error {
	if _, ok := m.clusters[rg+"/"+name]; !ok {
		return notFound()
	}
	delete(m.clusters, rg+"/"+name)
	return nil
}

func (m *mockARM) ClusterKubeconfig(_ context.Context, rg, name string, admin bool) ([]byte, error) {
	if _, ok := m.clusters[rg+"/"+name]; !ok {
		return nil, notFound()
	}
	user := "clusterUser"
	if admin {
		user = "clusterAdmin"
	}
	return []byte("apiVersion: v1\nkind: Config\nusers:\n- name: " + user + "\n"), nil
}

func testDriver(t *testing.T, settings map[string]string, deps *providerdrv.Deps) (*driver, *mockARM, *fakeCredential) {
	t.Helper()
	if settings == nil {
		settings = map[string]string{}
	}
	if settings[model.SettingAzureAuthMethod] == "" {
		settings[model.SettingAzureAuthMethod] = authAzureCLI
	}
	if settings[model.SettingAzureSubscriptionID] == "" {
		settings[model.SettingAzureSubscriptionID] = "sub-123"
	}
	if deps == nil {
		deps = &providerdrv.Deps{}
	}
	if deps.Creds == nil {
		deps.Creds = &credstore.Store{Dir: t.TempDir()}
	}
	d, err := newDriver(settings, deps)
	if err != nil {
		t.Fatalf("newDriver: %v", err)
	}
	cred := &fakeCredential{token: testToken(t, jwt.MapClaims{"upn": "alice@example.com", "tid": testTenant})}
	d.cred = cred
	api := newMockARM()
	d.newARM = func(sub string, _ azcore.TokenCredential) (armAPI, error) {
		if sub != settings[model.SettingAzureSubscriptionID] {
			t.Errorf("subscription = %q", sub)
		}
		return api, nil
	}
	return d, api, cred
}

func testCluster(settings map[string]string) *model.Cluster {
	return &model.Cluster{
		Name:     "kprotect-abc123",
		Provider: model.ProviderAzure,
		Region:   "eastus",
		Type:     model.ClusterTypeAKS,
		Settings: settings,
	}
}

func TestCredentialSelection(t *testing.T) {
	store := &credstore.Store{Dir: t.TempDir()}
	if err := store.Save(credstore.AzureServicePrincipal, map[string]string{
		keyTenantID:     testTenant,
		keyClientID:     "app-id",
		keyClientSecret: "app-secret",
	}); err != nil {
		t.Fatal(err)
	}
	d, err := newDriver(map[string]string{}, &providerdrv.Deps{Creds: store})
	if err != nil {
		t.Fatalf("newDriver: %v", err)
	}
	if d.authMethod != authClientSecret {
		t.Errorf("method = %q, want client_secret from azure-sp.conf", d.authMethod)
	}
	if d.tenantID() != testTenant {
		t.Errorf("tenant = %q", d.tenantID())
	}

	tests := []struct {
		name     string
		settings map[string]string
	}{
		{"unsupported", map[string]string{model.SettingAzureAuthMethod: "client_certificate"}},
		{"workload identity without token file", map[string]string{model.SettingAzureAuthMethod: authWorkloadIdentity}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(keyTokenFile, "")
			_, err := newDriver(tt.settings, &providerdrv.Deps{Creds: &credstore.Store{Dir: t.TempDir()}})
			if !errors.Is(err, model.ErrInvalidOptions) {
				t.Fatalf("expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	d, _, _ := testDriver(t, nil, nil)
	id, err := d.Login(context.Background(), testCluster(nil))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if id.Subject != "alice@example.com" || id.Account != "sub-123" || id.Method != authAzureCLI {
		t.Errorf("identity = %+v", id)
	}
}

func TestIdentityFromToken(t *testing.T) {
	enc := base64.RawURLEncoding
	rs256 := enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(`{"oid":"obj-1","tid":"t-1"}`)) + ".c2ln"
	tests := []struct {
		name        string
		token       string
		sub         string
		wantSubject string
		wantAccount string
	}{
		{"upn first", testToken(t, jwt.MapClaims{"upn": "bob@example.com", "appid": "app"}), "sub-1", "bob@example.com", "sub-1"},
		{"app only", testToken(t, jwt.MapClaims{"appid": "app-1"}), "sub-1", "app-1", "sub-1"},
		{"registered subject", testToken(t, jwt.MapClaims{"sub": "s-1", "tid": "t-9"}), "", "s-1", "tenant:t-9"},
		{"unsigned claims still read", rs256, "", "obj-1", "tenant:t-1"},
		{"opaque", "not-a-jwt", "sub-1", "", "sub-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := identityFromToken(tt.token, tt.sub, authAzureCLI)
			if id.Subject != tt.wantSubject || id.Account != tt.wantAccount {
				t.Errorf("identity = %+v", id)
			}
		})
	}
}

func TestLoginFallsBackToDeviceCode(t *testing.T) {
	var out bytes.Buffer
	deps := &providerdrv.Deps{Prompter: terminal.NewPrompterWithIO(strings.NewReader(""), &out)}
	d, _, cred := testDriver(t, nil, deps)
	cred.err = errors.New("az login required")

	// Without interactive mode the failure is reported.
	if _, err := d.Login(context.Background(), testCluster(nil)); !errors.Is(err, model.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}

	device := &fakeCredential{token: testToken(t, jwt.MapClaims{"appid": "device-app"})}
	d.newDeviceCode = func(tenant string) (azcore.TokenCredential, error) { return device, nil }
	id, err := d.Login(context.Background(), testCluster(nil), model.WithClusterLoginInteractive(true))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if id.Method != authDeviceCode || id.Subject != "device-app" {
		t.Errorf("identity = %+v", id)
	}
	if d.cred != device {
		t.Error("device code credential not kept")
	}
	if !strings.Contains(out.String(), "device code") {
		t.Errorf("no notice printed: %q", out.String())
	}
}

func TestClusterLifecycle(t *testing.T) {
	d, api, _ := testDriver(t, nil, nil)
	cluster := testCluster(map[string]string{
		model.SettingNodeCount:         "3",
		model.SettingKubernetesVersion: "1.30",
	})
	ctx := context.Background()

	st, err := d.ClusterStatus(ctx, cluster)
	if err != nil || st.Provisioned {
		t.Fatalf("status before create = %+v, %v", st, err)
	}

	if err := d.ClusterProvision(ctx, cluster); err != nil {
		t.Fatalf("ClusterProvision: %v", err)
	}
	if api.groups["kprotect-abc123-rg"] != "eastus" {
		t.Errorf("resource group not created: %v", api.groups)
	}
	mc := api.created[0]
	pool := mc.Properties.AgentPoolProfiles[0]
	if *pool.Count != 3 || *pool.VMSize != defaultNodeSize || *pool.Name != systemPoolName {
		t.Errorf("pool = %+v", pool)
	}
	if *mc.Identity.Type != armcontainerservice.ResourceIdentityTypeSystemAssigned {
		t.Error("identity must be system assigned")
	}
	if *mc.Properties.KubernetesVersion != "1.30" {
		t.Error("kubernetes version not set")
	}

	if err := d.ClusterProvision(ctx, cluster); !errors.Is(err, model.ErrClusterExists) {
		t.Fatalf("expected ErrClusterExists, got %v", err)
	}
	if err := d.ClusterProvision(ctx, cluster, model.WithClusterProvisionForce()); err != nil {
		t.Fatalf("forced provision: %v", err)
	}
	if len(api.created) != 1 {
		t.Error("adoption must not recreate the cluster")
	}

	st, err = d.ClusterStatus(ctx, cluster)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Provisioned || !strings.HasPrefix(st.Endpoint, "https://kprotect-abc123.") {
		t.Errorf("status = %+v", st)
	}

	data, err := d.ClusterKubeconfig(ctx, cluster, model.WithClusterKubeconfigAdmin())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "clusterAdmin") {
		t.Errorf("admin kubeconfig not requested: %s", data)
	}

	if err := d.ClusterDeprovision(ctx, cluster); err != nil {
		t.Fatalf("ClusterDeprovision: %v", err)
	}
	if len(api.clusters) != 0 {
		t.Error("cluster not deleted")
	}
	if _, ok := api.groups["kprotect-abc123-rg"]; !ok {
		t.Error("resource group must survive without purge")
	}
	if err := d.ClusterDeprovision(ctx, cluster, model.WithClusterDeprovisionPurge()); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if len(api.groups) != 0 {
		t.Error("resource group not purged")
	}
	if _, err := d.ClusterKubeconfig(ctx, cluster); !errors.Is(err, model.ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}
}

func TestClusterProvisionRequiresSubscription(t *testing.T) {
	t.Setenv(keySubscriptionID, "")
	d, err := newDriver(map[string]string{model.SettingAzureAuthMethod: authAzureCLI}, &providerdrv.Deps{Creds: &credstore.Store{Dir: t.TempDir()}})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ClusterProvision(context.Background(), testCluster(nil)); !errors.Is(err, model.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestClusterValidate(t *testing.T) {
	t.Setenv(keySubscriptionID, "")
	dir := t.TempDir()
	deps := &providerdrv.Deps{Creds: &credstore.Store{Dir: dir}}
	d, err := newDriver(map[string]string{model.SettingAzureAuthMethod: authAzureCLI}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ClusterValidate(context.Background(), testCluster(nil)); !errors.Is(err, model.ErrInvalidOptions) || !strings.Contains(err.Error(), "subscription") {
		t.Fatalf("expected subscription error, got %v", err)
	}

	t.Setenv(keySubscriptionID, "sub-env")
	d, err = newDriver(map[string]string{model.SettingAzureAuthMethod: authAzureCLI}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ClusterValidate(context.Background(), testCluster(nil)); err != nil {
		t.Fatalf("subscription from environment: %v", err)
	}
	noRegion := testCluster(nil)
	noRegion.Region = ""
	if err := d.ClusterValidate(context.Background(), noRegion); !errors.Is(err, model.ErrInvalidOptions) {
		t.Fatalf("expected location error, got %v", err)
	}
}
