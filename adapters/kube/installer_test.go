package kube

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/cli"
	kubefake "helm.sh/helm/v3/pkg/kube/fake"
	"helm.sh/helm/v3/pkg/storage"
	"helm.sh/helm/v3/pkg/storage/driver"

	"github.com/kompox/kprotect/domain/model"
)

// memoryInstaller runs Helm actions against in-memory release storage and a
// printing kube client.
func memoryInstaller(t *testing.T) (*Installer, *action.Configuration) {
	t.Helper()
	cfg := &action.Configuration{
		Releases:     storage.Init(driver.NewMemory()),
		KubeClient:   &kubefake.PrintingKubeClient{Out: io.Discard},
		Capabilities: chartutil.DefaultCapabilities,
		Log:          func(format string, v ...any) { t.Logf(format, v...) },
	}
	inst := &Installer{
		settings: cli.New(),
		configure: func(context.Context, string) (*action.Configuration, error) {
			return cfg, nil
		},
	}
	return inst, cfg
}

// localChart writes a minimal chart and returns its directory.
func localChart(t *testing.T, version string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "falcon-test")
	if err := os.MkdirAll(filepath.Join(dir, "templates"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"Chart.yaml":               "apiVersion: v2\nname: falcon-test\nversion: " + version + "\nappVersion: \"7.10\"\n",
		"values.yaml":              "falcon:\n  cid: \"\"\n",
		"templates/configmap.yaml": "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: {{ .Release.Name }}\ndata:\n  cid: {{ .Values.falcon.cid | quote }}\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testSpec(chartDir string) model.ReleaseSpec {
	v := model.Values{}
	v.Set("falcon.cid", "ABC")
	return model.ReleaseSpec{
		Name:      "falcon-sensor",
		Namespace: "falcon-system",
		Chart:     model.ChartRef{Name: chartDir},
		Values:    v,
	}
}

func TestInstallOrUpgradeFallsBackToInstall(t *testing.T) {
	inst, cfg := memoryInstaller(t)
	ctx := context.Background()
	spec := testSpec(localChart(t, "1.0.0"))

	rel, err := inst.InstallOrUpgrade(ctx, spec)
	if err != nil {
		t.Fatalf("first InstallOrUpgrade: %v", err)
	}
	if rel.Revision != 1 || rel.Status != "deployed" || rel.Chart != "falcon-test" || rel.ChartVersion != "1.0.0" {
		t.Errorf("release = %+v", rel)
	}

	spec.Set = []string{"falcon.cid=XYZ"}
	rel, err = inst.InstallOrUpgrade(ctx, spec)
	if err != nil {
		t.Fatalf("second InstallOrUpgrade: %v", err)
	}
	if rel.Revision != 2 {
		t.Errorf("revision = %d, want 2", rel.Revision)
	}
	vals, err := action.NewGetValues(cfg).Run("falcon-sensor")
	if err != nil {
		t.Fatal(err)
	}
	if got := vals["falcon"].(map[string]any)["cid"]; got != "XYZ" {
		t.Errorf("falcon.cid = %v, want --set to win", got)
	}
}

func TestUpgradeRequiresRelease(t *testing.T) {
	inst, _ := memoryInstaller(t)
	ctx := context.Background()
	spec := testSpec(localChart(t, "1.0.0"))

	if _, err := inst.Upgrade(ctx, spec); !errors.Is(err, model.ErrReleaseNotFound) {
		t.Fatalf("expected ErrReleaseNotFound, got %v", err)
	}
	if _, err := inst.InstallOrUpgrade(ctx, spec); err != nil {
		t.Fatal(err)
	}
	spec.Chart.Name = localChart(t, "1.1.0")
	rel, err := inst.Upgrade(ctx, spec)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if rel.ChartVersion != "1.1.0" || rel.Revision != 2 {
		t.Errorf("release = %+v", rel)
	}
}

func TestUninstallAndStatus(t *testing.T) {
	inst, _ := memoryInstaller(t)
	ctx := context.Background()

	removed, err := inst.Uninstall(ctx, "falcon-sensor", "falcon-system")
	if err != nil || removed {
		t.Fatalf("missing release: removed=%v err=%v", removed, err)
	}
	if _, err := inst.Status(ctx, "falcon-sensor", "falcon-system"); !errors.Is(err, model.ErrReleaseNotFound) {
		t.Fatalf("expected ErrReleaseNotFound, got %v", err)
	}

	if _, err := inst.InstallOrUpgrade(ctx, testSpec(localChart(t, "1.0.0"))); err != nil {
		t.Fatal(err)
	}
	rel, err := inst.Status(ctx, "falcon-sensor", "falcon-system")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rel.Status != "deployed" || rel.AppVersion != "7.10" {
		t.Errorf("status = %+v", rel)
	}
	removed, err = inst.Uninstall(ctx, "falcon-sensor", "falcon-system")
	if err != nil || !removed {
		t.Fatalf("Uninstall: removed=%v err=%v", removed, err)
	}
	if _, err := inst.Status(ctx, "falcon-sensor", "falcon-system"); !errors.Is(err, model.ErrReleaseNotFound) {
		t.Errorf("release still present after uninstall: %v", err)
	}
}
