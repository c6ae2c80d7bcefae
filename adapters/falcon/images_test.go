package falcon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/kompox/kprotect/domain/model"
)

func TestRepositoryPath(t *testing.T) {
	tests := []struct {
		c     model.Component
		mode  model.SensorMode
		cloud model.FalconCloud
		want  string
	}{
		{model.ComponentSensor, model.SensorModeDaemonset, model.CloudUS1, "falcon-sensor/us-1/release/falcon-sensor"},
		{model.ComponentSensor, model.SensorModeSidecar, model.CloudEU1, "falcon-container/eu-1/release/falcon-sensor"},
		{model.ComponentKAC, "", model.CloudUSGov1, "falcon-kac/gov1/release/falcon-kac"},
		{model.ComponentIAR, "", model.CloudUS2, "falcon-imageanalyzer/us-2/release/falcon-imageanalyzer"},
		{model.ComponentKPA, "", model.CloudEU1, "kubernetes_protection/kpagent"},
	}
	for _, tt := range tests {
		got, err := RepositoryPath(tt.c, tt.mode, tt.cloud)
		if err != nil {
			t.Fatalf("%s: %v", tt.c, err)
		}
		if got != tt.want {
			t.Errorf("%s/%s: got %q, want %q", tt.c, tt.mode, got, tt.want)
		}
	}
	if _, err := RepositoryPath(model.ComponentDemo, "", model.CloudUS1); err == nil {
		t.Error("demo has no vendor image")
	}
	if RegistryUsername(model.ComponentKPA, "abc") != "kp-abc" || RegistryUsername(model.ComponentIAR, "abc") != "fc-abc" {
		t.Error("unexpected registry usernames")
	}
}

func TestLatestTag(t *testing.T) {
	tags := []string{
		"latest",
		"sha256-0123.sig",
		"7.9.0-15802-1.falcon-linux.Release.US-1",
		"7.10.0-16303-1.falcon-linux.Release.US-1",
		"7.10.0-16205-1.falcon-linux.Release.US-1",
		"7.2.0-13603-1.falcon-linux.Release.US-1",
		"7.1.0-12000-1.falcon-linux.Release.US-1",
		"7.19.0-17000-1.falcon-linux.Release.US-1",
	}
	tests := []struct {
		prefix  string
		want    string
		wantErr bool
	}{
		{prefix: "", want: "7.19.0-17000-1.falcon-linux.Release.US-1"},
		{prefix: "7.1", want: "7.1.0-12000-1.falcon-linux.Release.US-1"},
		{prefix: "7.10", want: "7.10.0-16303-1.falcon-linux.Release.US-1"},
		{prefix: "7.", want: "7.19.0-17000-1.falcon-linux.Release.US-1"},
		{prefix: "7.1.0-12000-1.falcon-linux.Release.US-1", want: "7.1.0-12000-1.falcon-linux.Release.US-1"},
		{prefix: "7.9", want: "7.9.0-15802-1.falcon-linux.Release.US-1"},
		{prefix: "7.10.0-16205", want: "7.10.0-16205-1.falcon-linux.Release.US-1"},
		{prefix: "8.", wantErr: true},
	}
	for _, tt := range tests {
		t.Run("prefix="+tt.prefix, func(t *testing.T) {
			got, err := LatestTag(tags, tt.prefix)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
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
	if got, _ := LatestTag([]string{"1.0.9", "1.0.14", "1.0.2"}, ""); got != "1.0.14" {
		t.Errorf("numeric ordering: got %q", got)
	}
}

func TestPullToken(t *testing.T) {
	tok, err := PullToken("registry.crowdstrike.com", "fc-abc", "pw")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not base64: %v", err)
	}
	var cfg dockerConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("token is not dockerconfigjson: %v", err)
	}
	auth := cfg.Auths["registry.crowdstrike.com"].Auth
	if auth != base64.StdEncoding.EncodeToString([]byte("fc-abc:pw")) {
		t.Errorf("auth = %q", auth)
	}
	if _, err := PullToken("h", "", "pw"); err == nil {
		t.Error("expected error for empty username")
	}
}

func TestImageResolver_Resolve(t *testing.T) {
	srv := httptest.NewServer(registry.New())
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	host := u.Host

	img, err := random.Image(256, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, tag := range []string{"7.18.0-1603.Release.US-1", "7.19.0-1702.Release.US-1", "latest"} {
		ref, err := name.ParseReference(host+"/falcon-kac/us-1/release/falcon-kac:"+tag, name.Insecure)
		if err != nil {
			t.Fatal(err)
		}
		if err := remote.Write(ref, img); err != nil {
			t.Fatalf("push %s: %v", tag, err)
		}
	}

	r := &ImageResolver{Cloud: model.CloudUS1, Host: host, Insecure: true}
	got, err := r.Resolve(context.Background(), ImageRequest{
		Component: model.ComponentKAC,
		Username:  "fc-abc",
		Password:  "pw",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Repository != host+"/falcon-kac/us-1/release/falcon-kac" {
		t.Errorf("repository = %q", got.Repository)
	}
	if got.Tag != "7.19.0-1702.Release.US-1" {
		t.Errorf("tag = %q", got.Tag)
	}
	if got.PullToken == "" {
		t.Error("pull token missing")
	}

	if _, err := r.Resolve(context.Background(), ImageRequest{Component: model.ComponentKAC, Version: "9.", Username: "u", Password: "p"}); err == nil {
		t.Error("expected error for unmatched version")
	}
}
