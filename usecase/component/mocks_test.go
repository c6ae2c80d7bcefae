package component

import (
	"context"
	"fmt"
	"strings"

	"github.com/kompox/kprotect/domain/model"
)

type mockClusterPort struct {
	calls []string
}

func (m *mockClusterPort) Validate(context.Context, *model.Cluster) error { return nil }

func (m *mockClusterPort) Login(_ context.Context, c *model.Cluster, _ ...model.ClusterLoginOption) (*model.Identity, error) {
	m.calls = append(m.calls, "login")
	return &model.Identity{Provider: c.Provider}, nil
}

func (m *mockClusterPort) Status(context.Context, *model.Cluster) (*model.ClusterStatus, error) {
	return &model.ClusterStatus{Provisioned: true}, nil
}

func (m *mockClusterPort) Provision(context.Context, *model.Cluster, ...model.ClusterProvisionOption) error {
	return nil
}

func (m *mockClusterPort) Deprovision(context.Context, *model.Cluster, ...model.ClusterDeprovisionOption) error {
	return nil
}

func (m *mockClusterPort) Kubeconfig(context.Context, *model.Cluster, ...model.ClusterKubeconfigOption) ([]byte, error) {
	m.calls = append(m.calls, "kubeconfig")
	return []byte("kubeconfig"), nil
}

// mockKube records every call against the cluster.
type mockKube struct {
	detected  model.ClusterType
	detectErr error
	waitErr   error
	// releases holds deployed release names.
	releases map[string]bool
	specs    []model.ReleaseSpec
	applied  []string
	deleted  []string
	calls    []string
	closed   bool
}

func newMockKube(detected model.ClusterType) *mockKube {
	return &mockKube{detected: detected, releases: map[string]bool{}}
}

func (m *mockKube) DetectClusterType(context.Context) (model.ClusterType, error) {
	return m.detected, m.detectErr
}

func (m *mockKube) EnsureNamespace(_ context.Context, name string, _ map[string]string) error {
	m.calls = append(m.calls, "ensure-ns "+name)
	return nil
}

func (m *mockKube) DeleteNamespace(_ context.Context, name string) error {
	m.calls = append(m.calls, "delete-ns "+name)
	return nil
}

func (m *mockKube) InstallRelease(_ context.Context, spec model.ReleaseSpec, upgradeOnly bool) (*model.Release, error) {
	if upgradeOnly && !m.releases[spec.Name] {
		return nil, fmt.Errorf("release %s: %w", spec.Name, model.ErrReleaseNotFound)
	}
	m.specs = append(m.specs, spec)
	m.releases[spec.Name] = true
	m.calls = append(m.calls, "install "+spec.Name)
	return &model.Release{Name: spec.Name, Namespace: spec.Namespace, Revision: 1, Status: "deployed"}, nil
}

func (m *mockKube) UninstallRelease(_ context.Context, name, _ string) (bool, error) {
	m.calls = append(m.calls, "uninstall "+name)
	ok := m.releases[name]
	delete(m.releases, name)
	return ok, nil
}

func (m *mockKube) ReleaseStatus(_ context.Context, name, namespace string) (*model.Release, error) {
	if !m.releases[name] {
		return nil, model.ErrReleaseNotFound
	}
	return &model.Release{Name: name, Namespace: namespace, Status: "deployed"}, nil
}

func (m *mockKube) WaitForPods(_ context.Context, w model.PodWait) error {
	m.calls = append(m.calls, "wait "+w.Selector)
	return m.waitErr
}

func (m *mockKube) ApplyManifests(_ context.Context, data []byte, namespace string) error {
	if !strings.Contains(string(data), "namespace: "+namespace) {
		return fmt.Errorf("manifest does not target %s", namespace)
	}
	m.applied = append(m.applied, namespace)
	return nil
}

// DeleteManifests reports one object per earlier apply into namespace.
func (m *mockKube) DeleteManifests(_ context.Context, _ []byte, namespace string) (int, error) {
	m.deleted = append(m.deleted, namespace)
	n := 0
	kept := m.applied[:0]
	for _, ns := range m.applied {
		if ns == namespace {
			n++
			continue
		}
		kept = append(kept, ns)
	}
	m.applied = kept
	return n, nil
}

func (m *mockKube) Close() { m.closed = true }

type mockVendor struct {
	kpa map[string]any
}

func (m *mockVendor) CID(context.Context) (string, error) { return "cid123", nil }

func (m *mockVendor) ResolveImage(_ context.Context, req model.ImageRequest) (*model.VendorImage, error) {
	repo := "registry.crowdstrike.com/" + string(req.Component)
	if req.Mode == model.SensorModeSidecar {
		repo += "-container"
	}
	return &model.VendorImage{
		ImageRef: model.ImageRef{Repository: repo, Tag: "1.0.0" + req.Version, PullToken: "vendor-token"},
		Username: "fc-cid123",
		Password: "pw",
	}, nil
}

func (m *mockVendor) KPAValues(context.Context, string) (map[string]any, error) {
	return m.kpa, nil
}

type mockMirror struct {
	targets []string
}

func (m *mockMirror) Mirror(_ context.Context, src *model.VendorImage, target string, _ model.ClusterType) (model.ImageRef, error) {
	m.targets = append(m.targets, target)
	return model.ImageRef{Repository: target + "/mirrored", Tag: src.Tag}, nil
}
