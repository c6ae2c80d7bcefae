package aks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

const armScope = "https://management.azure.com/.default"

// Login acquires an ARM token with the configured credential. When that fails
// and the login is interactive, it falls back to a device code login and keeps
// that credential for the rest of the run.
func (d *driver) Login(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterLoginOption) (id *model.Identity, err error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "Login")
	defer func() { cleanup(err) }()

	var o model.ClusterLoginOptions
	for _, opt := range opts {
		opt(&o)
	}

	req := policy.TokenRequestOptions{Scopes: []string{armScope}}
	tok, err := d.cred.GetToken(ctx, req)
	if err == nil {
		return identityFromToken(tok.Token, d.subscriptionID(), d.authMethod), nil
	}
	logging.FromContext(ctx).Warn(ctx, "Azure credential is not usable", "method", d.authMethod, "err", err)

	if !o.Interactive || d.deps.Prompter == nil || d.authMethod == authDeviceCode {
		return nil, fmt.Errorf("azure: %w: %v", model.ErrNotLoggedIn, err)
	}
	fmt.Fprintln(d.deps.Prompter.Out, "Azure credentials are not usable. Starting device code login.")
	cred, err := d.newDeviceCode(d.tenantID())
	if err != nil {
		return nil, fmt.Errorf("create Azure credential: %w", err)
	}
	tok, err = cred.GetToken(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("azure: %w: %v", model.ErrNotLoggedIn, err)
	}
	d.cred, d.authMethod = cred, authDeviceCode
	return identityFromToken(tok.Token, d.subscriptionID(), d.authMethod), nil
}

// tokenClaims are the Entra ID access token claims used to name the signed
// in principal.
type tokenClaims struct {
	jwt.RegisteredClaims
	UPN        string `json:"upn"`
	UniqueName string `json:"unique_name"`
	AppID      string `json:"appid"`
	OID        string `json:"oid"`
	TenantID   string `json:"tid"`
}

// identityFromToken reads the subject from an access token without verifying it.
// Opaque tokens leave Subject empty.
func identityFromToken(token, subscriptionID, method string) *model.Identity {
	id := &model.Identity{Provider: model.ProviderAzure, Account: subscriptionID, Method: method}
	var c tokenClaims
	// An unknown alg still yields the decoded claims.
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return id
	}
	for _, v := range []string{c.UPN, c.UniqueName, c.AppID, c.OID, c.Subject} {
		if v != "" {
			id.Subject = v
			break
		}
	}
	if id.Account == "" && c.TenantID != "" {
		id.Account = "tenant:" + c.TenantID
	}
	return id
}
