package registry

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/kompox/kprotect/domain/model"
)

func TestMirror(t *testing.T) {
	srcSrv := httptest.NewServer(registry.New())
	t.Cleanup(srcSrv.Close)
	dstSrv := httptest.NewServer(registry.New())
	t.Cleanup(dstSrv.Close)
	srcURL, _ := url.Parse(srcSrv.URL)
	dstURL, _ := url.Parse(dstSrv.URL)

	img, err := random.Image(128, 1)
	if err != nil {
		t.Fatal(err)
	}
	srcRef, err := name.ParseReference(srcURL.Host+"/falcon-kac/us-1/release/falcon-kac:7.19.0", name.Insecure)
	if err != nil {
		t.Fatal(err)
	}
	if err := remote.Write(srcRef, img); err != nil {
		t.Fatal(err)
	}

	m := &Mirror{
		Credentials: &Credentials{Username: "robot", Password: "pw"},
		Copier:      &Copier{Insecure: true},
	}
	src := &model.VendorImage{
		ImageRef: model.ImageRef{Repository: srcURL.Host + "/falcon-kac/us-1/release/falcon-kac", Tag: "7.19.0"},
		Username: "fc-abc",
		Password: "token",
	}
	got, err := m.Mirror(context.Background(), src, "http://"+dstURL.Host+"/mirror/", model.ClusterTypeEKSManagedNode)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if got.Repository != dstURL.Host+"/mirror/falcon-kac" || got.Tag != "7.19.0" {
		t.Errorf("mirrored to %s", got.String())
	}
	if got.PullToken == "" {
		t.Error("generic registry on EKS needs a pull token")
	}
	dstRef, _ := name.ParseReference(got.String(), name.Insecure)
	if _, err := remote.Head(dstRef); err != nil {
		t.Errorf("image not in destination: %v", err)
	}
}

func TestMirrorRejectsUnresolvedSource(t *testing.T) {
	m := &Mirror{}
	if _, err := m.Mirror(context.Background(), &model.VendorImage{}, "example.com", model.ClusterTypeAKS); err == nil {
		t.Error("expected error")
	}
}
