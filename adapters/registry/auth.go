package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/containers/azcontainerregistry"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"golang.org/x/oauth2"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

const (
	// ACRUsername is the fixed user of ACR refresh token logins.
	ACRUsername = "00000000-0000-0000-0000-000000000000"
	// GoogleUsername is the fixed user of GCR and Artifact Registry token logins.
	GoogleUsername = "oauth2accesstoken"

	armScope = "https://management.azure.com/.default"
)

// ECRAPI is the subset of the ECR client used here.
type ECRAPI interface {
	GetAuthorizationToken(ctx context.Context, in *ecr.GetAuthorizationTokenInput, opts ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
	DescribeRepositories(ctx context.Context, in *ecr.DescribeRepositoriesInput, opts ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
	CreateRepository(ctx context.Context, in *ecr.CreateRepositoryInput, opts ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error)
}

// Credentials holds the cloud identities used to log in to private registries.
// Only the field matching the registry type is consulted.
type Credentials struct {
	ECR    ECRAPI
	Azure  azcore.TokenCredential
	Google oauth2.TokenSource
	// Username and Password, when set, are used for any registry type.
	Username string
	Password string
	// HTTPClient carries the ACR token exchange.
	HTTPClient *http.Client
	// ACREndpoint overrides the https://<registry> endpoint of the exchange.
	ACREndpoint string
	// Keychain resolves generic registries; defaults to authn.DefaultKeychain.
	Keychain authn.Keychain
}

// Login is a resolved registry login.
type Login struct {
	Username string
	Password string
}

// Authenticator returns an authenticator for reg.
func (c *Credentials) Authenticator(ctx context.Context, reg name.Registry, t model.RegistryType) (authn.Authenticator, error) {
	l, err := c.Login(ctx, reg, t)
	if err != nil {
		return nil, err
	}
	if l == nil {
		kc := c.Keychain
		if kc == nil {
			kc = authn.DefaultKeychain
		}
		return kc.Resolve(reg)
	}
	return &authn.Basic{Username: l.Username, Password: l.Password}, nil
}

// Login resolves a username and password for reg. A nil Login without error
// means the keychain should be used.
func (c *Credentials) Login(ctx context.Context, reg name.Registry, t model.RegistryType) (*Login, error) {
	if c.Username != "" && c.Password != "" {
		return &Login{Username: c.Username, Password: c.Password}, nil
	}
	switch t {
	case model.RegistryECR:
		if c.ECR == nil {
			return nil, fmt.Errorf("ecr login needs AWS credentials: %w", model.ErrNotLoggedIn)
		}
		return ecrLogin(ctx, c.ECR)
	case model.RegistryACR:
		if c.Azure == nil {
			return nil, fmt.Errorf("acr login needs Azure credentials: %w", model.ErrNotLoggedIn)
		}
		host := reg.RegistryStr()
		endpoint := c.ACREndpoint
		if endpoint == "" {
			endpoint = "https://" + host
		}
		return acrLogin(ctx, c.httpClient(), c.Azure, host, endpoint)
	case model.RegistryGCR, model.RegistryGAR:
		if c.Google == nil {
			return nil, fmt.Errorf("%s login needs Google credentials: %w", t, model.ErrNotLoggedIn)
		}
		tok, err := c.Google.Token()
		if err != nil {
			return nil, fmt.Errorf("google access token: %w", err)
		}
		return &Login{Username: GoogleUsername, Password: tok.AccessToken}, nil
	}
	return nil, nil
}

func (c *Credentials) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func ecrLogin(ctx context.Context, api ECRAPI) (*Login, error) {
	out, err := api.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, fmt.Errorf("ecr get authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return nil, fmt.Errorf("ecr returned no authorization data")
	}
	raw, err := base64.StdEncoding.DecodeString(*out.AuthorizationData[0].AuthorizationToken)
	if err != nil {
		return nil, fmt.Errorf("decode ecr token: %w", err)
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, fmt.Errorf("malformed ecr token")
	}
	return &Login{Username: user, Password: pass}, nil
}

// acrLogin exchanges an AAD access token for an ACR refresh token.
func acrLogin(ctx context.Context, hc *http.Client, cred azcore.TokenCredential, host, endpoint string) (*Login, error) {
	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{armScope}})
	if err != nil {
		return nil, fmt.Errorf("azure access token: %w", err)
	}
	client, err := azcontainerregistry.NewAuthenticationClient(endpoint, &azcontainerregistry.AuthenticationClientOptions{
		ClientOptions: azcore.ClientOptions{Transport: hc},
	})
	if err != nil {
		return nil, fmt.Errorf("acr authentication client: %w", err)
	}
	logging.FromContext(ctx).Debug(ctx, "acr token exchange", "registry", host)
	resp, err := client.ExchangeAADAccessTokenForACRRefreshToken(ctx, azcontainerregistry.PostContentSchemaGrantTypeAccessToken, host,
		&azcontainerregistry.AuthenticationClientExchangeAADAccessTokenForACRRefreshTokenOptions{AccessToken: &tok.Token})
	if err != nil {
		return nil, fmt.Errorf("acr token exchange: %w", err)
	}
	if resp.RefreshToken == nil || *resp.RefreshToken == "" {
		return nil, fmt.Errorf("acr token exchange returned no refresh token")
	}
	return &Login{Username: ACRUsername, Password: *resp.RefreshToken}, nil
}
