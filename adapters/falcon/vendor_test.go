package falcon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/kompox/kprotect/domain/model"
)

func TestVendor_ResolveImage(t *testing.T) {
	ccidCalls := 0
	c := newTestAPI(t, map[string]http.HandlerFunc{
		pathCCID: func(w http.ResponseWriter, r *http.Request) {
			ccidCalls++
			fmt.Fprint(w, `{"resources":["0123456789ABCDEF0123456789ABCDEF-12"]}`)
		},
		pathRegistryCredentials: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resources":[{"token":"registry-token"}]}`)
		},
		pathKPAConfig: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "crowdstrikeConfig:\n  dockerAPIToken: docker-token\n")
		},
	})

	srv := httptest.NewServer(registry.New())
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	img, err := random.Image(128, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, ref := range []string{
		"/falcon-sensor/us-1/release/falcon-sensor:7.20.0-17306-1.falcon-linux.Release.US-1",
		"/kubernetes_protection/kpagent:0.2117.0",
	} {
		r, err := name.ParseReference(u.Host+ref, name.Insecure)
		if err != nil {
			t.Fatal(err)
		}
		if err := remote.Write(r, img); err != nil {
			t.Fatal(err)
		}
	}

	v := &Vendor{Client: c, Images: &ImageResolver{Cloud: model.CloudUS1, Host: u.Host, Insecure: true}}
	ctx := context.Background()

	sensor, err := v.ResolveImage(ctx, model.ImageRequest{Component: model.ComponentSensor, Mode: model.SensorModeDaemonset})
	if err != nil {
		t.Fatalf("sensor: %v", err)
	}
	if sensor.Username != "fc-0123456789abcdef0123456789abcdef" || sensor.Password != "registry-token" {
		t.Errorf("sensor login = %s / %s", sensor.Username, sensor.Password)
	}
	if sensor.Tag != "7.20.0-17306-1.falcon-linux.Release.US-1" {
		t.Errorf("sensor tag = %q", sensor.Tag)
	}

	if _, err := v.ResolveImage(ctx, model.ImageRequest{Component: model.ComponentKPA}); err == nil {
		t.Error("expected error for kpa without cluster name")
	}
	kpa, err := v.ResolveImage(ctx, model.ImageRequest{Component: model.ComponentKPA, ClusterName: "kprotect-abc123"})
	if err != nil {
		t.Fatalf("kpa: %v", err)
	}
	if kpa.Username != "kp-0123456789abcdef0123456789abcdef" || kpa.Password != "docker-token" {
		t.Errorf("kpa login = %s / %s", kpa.Username, kpa.Password)
	}
	if ccidCalls != 1 {
		t.Errorf("ccid fetched %d times, want 1", ccidCalls)
	}
}
