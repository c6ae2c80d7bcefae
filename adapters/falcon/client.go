// Package falcon talks to the vendor API and the vendor image registry.
package falcon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"gopkg.in/yaml.v3"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

const (
	pathToken               = "/oauth2/token"
	pathCCID                = "/sensors/queries/installers/ccid/v1"
	pathRegistryCredentials = "/container-security/entities/image-registry-credentials/v1"
	pathKPAConfig           = "/kubernetes-protection/entities/integration/agent/v1"

	defaultHTTPTimeout = 60 * time.Second
)

// Client is an OAuth2 authenticated client of the vendor API.
type Client struct {
	BaseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	baseURL string
	base    *http.Client
}

// WithBaseURL overrides the API base URL derived from the cloud.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithHTTPClient sets the HTTP client used for token and API requests.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.base = c } }

// NewClient returns a client for creds. No request is made until the first call.
func NewClient(ctx context.Context, creds model.FalconCredentials, opts ...Option) (*Client, error) {
	if !creds.Valid() {
		return nil, fmt.Errorf("falcon client id and secret are required: %w", model.ErrInvalidOptions)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.baseURL == "" {
		cloud := creds.Cloud
		if cloud == "" {
			cloud = model.CloudUS1
		}
		o.baseURL = cloud.APIBaseURL()
	}
	if o.base == nil {
		o.base = &http.Client{Timeout: defaultHTTPTimeout}
	}
	base := strings.TrimRight(o.baseURL, "/")
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     base + pathToken,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, o.base)
	hc := cfg.Client(tokenCtx)
	hc.Timeout = o.base.Timeout
	return &Client{BaseURL: base, http: hc}, nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiResponse[T any] struct {
	Resources []T        `json:"resources"`
	Errors    []apiError `json:"errors"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug(ctx, "falcon api request", "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func getResources[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	var r apiResponse[T]
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	if len(r.Errors) > 0 {
		return nil, fmt.Errorf("GET %s: %d %s", path, r.Errors[0].Code, r.Errors[0].Message)
	}
	if len(r.Resources) == 0 {
		return nil, fmt.Errorf("GET %s: empty resources", path)
	}
	return r.Resources, nil
}

// CCID returns the customer ID with its checksum, e.g. 0123456789ABCDEF0123456789ABCDEF-12.
func (c *Client) CCID(ctx context.Context) (string, error) {
	res, err := getResources[string](ctx, c, pathCCID, nil)
	if err != nil {
		return "", err
	}
	return res[0], nil
}

// CID returns the lower case customer ID without the checksum.
func (c *Client) CID(ctx context.Context) (string, error) {
	ccid, err := c.CCID(ctx)
	if err != nil {
		return "", err
	}
	return CIDFromCCID(ccid), nil
}

// CIDFromCCID strips the checksum suffix and lower-cases ccid.
func CIDFromCCID(ccid string) string {
	cid, _, _ := strings.Cut(ccid, "-")
	return strings.ToLower(cid)
}

// RegistryPassword returns the vendor registry token.
func (c *Client) RegistryPassword(ctx context.Context) (string, error) {
	res, err := getResources[struct {
		Token string `json:"token"`
	}](ctx, c, pathRegistryCredentials, nil)
	if err != nil {
		return "", err
	}
	if res[0].Token == "" {
		return "", fmt.Errorf("registry credentials response has no token")
	}
	return res[0].Token, nil
}

// KPAConfig holds the agent values the API generates for one cluster.
type KPAConfig struct {
	Values         map[string]any
	DockerAPIToken string
}

// KPAConfig fetches the KPA helm values for clusterName.
func (c *Client) KPAConfig(ctx context.Context, clusterName string) (*KPAConfig, error) {
	q := url.Values{}
	q.Set("cluster_name", clusterName)
	q.Set("is_self_managed_cluster", "false")
	body, err := c.get(ctx, pathKPAConfig, q)
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("decode kpa config: %w", err)
	}
	cfg := &KPAConfig{Values: values}
	if cs, ok := values["crowdstrikeConfig"].(map[string]any); ok {
		cfg.DockerAPIToken, _ = cs["dockerAPIToken"].(string)
	}
	if cfg.DockerAPIToken == "" {
		return nil, fmt.Errorf("kpa config for %s has no dockerAPIToken", clusterName)
	}
	return cfg, nil
}
