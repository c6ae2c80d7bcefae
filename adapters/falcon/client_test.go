package falcon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kompox/kprotect/domain/model"
)

func newTestAPI(t *testing.T, handlers map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("client_id") != "id" || r.Form.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"bearer","expires_in":1799}`)
	})
	for path, h := range handlers {
		h := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), model.FalconCredentials{ClientID: "id", ClientSecret: "secret"},
		WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), model.FalconCredentials{ClientID: "id"})
	if !errors.Is(err, model.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestClient_CID(t *testing.T) {
	c := newTestAPI(t, map[string]http.HandlerFunc{
		pathCCID: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resources":["0123456789ABCDEF0123456789ABCDEF-12"],"errors":[]}`)
		},
	})
	ctx := context.Background()
	ccid, err := c.CCID(ctx)
	if err != nil {
		t.Fatalf("CCID: %v", err)
	}
	if ccid != "0123456789ABCDEF0123456789ABCDEF-12" {
		t.Errorf("ccid = %q", ccid)
	}
	cid, err := c.CID(ctx)
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	if cid != "0123456789abcdef0123456789abcdef" {
		t.Errorf("cid = %q", cid)
	}
}

func TestClient_APIErrors(t *testing.T) {
	c := newTestAPI(t, map[string]http.HandlerFunc{
		pathCCID: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resources":[],"errors":[{"code":403,"message":"access denied"}]}`)
		},
		pathRegistryCredentials: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "boom")
		},
	})
	if _, err := c.CCID(context.Background()); err == nil {
		t.Error("expected error from api errors")
	}
	if _, err := c.RegistryPassword(context.Background()); err == nil {
		t.Error("expected error from http 500")
	}
}

func TestClient_RegistryPassword(t *testing.T) {
	c := newTestAPI(t, map[string]http.HandlerFunc{
		pathRegistryCredentials: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resources":[{"token":"registry-token"}]}`)
		},
	})
	got, err := c.RegistryPassword(context.Background())
	if err != nil {
		t.Fatalf("RegistryPassword: %v", err)
	}
	if got != "registry-token" {
		t.Errorf("token = %q", got)
	}
}

func TestClient_KPAConfig(t *testing.T) {
	c := newTestAPI(t, map[string]http.HandlerFunc{
		pathKPAConfig: func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("cluster_name") != "kprotect-abc123" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, "image:\n  repository: registry.crowdstrike.com/kubernetes_protection/kpagent\n  tag: 0.2117.0\ncrowdstrikeConfig:\n  clusterName: kprotect-abc123\n  env: us-1\n  dockerAPIToken: docker-token\n")
		},
	})
	cfg, err := c.KPAConfig(context.Background(), "kprotect-abc123")
	if err != nil {
		t.Fatalf("KPAConfig: %v", err)
	}
	if cfg.DockerAPIToken != "docker-token" {
		t.Errorf("dockerAPIToken = %q", cfg.DockerAPIToken)
	}
	img, ok := cfg.Values["image"].(map[string]any)
	if !ok || img["tag"] != "0.2117.0" {
		t.Errorf("image values = %v", cfg.Values["image"])
	}
}
