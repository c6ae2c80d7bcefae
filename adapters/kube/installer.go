package kube

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/release"
	helmdriver "helm.sh/helm/v3/pkg/storage/driver"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

// Installer runs Helm SDK actions against the cluster of a Client.
type Installer struct {
	Client *Client

	settings *cli.EnvSettings
	cleanup  func()
	// configure overrides the Helm action configuration; tests use it to
	// inject in-memory release storage.
	configure func(ctx context.Context, ns string) (*action.Configuration, error)
}

// NewInstaller prepares a Helm environment for c. Call Close when done.
func NewInstaller(c *Client) (*Installer, error) {
	if c == nil || len(c.Kubeconfig) == 0 {
		return nil, fmt.Errorf("kubeconfig is required for Helm operations")
	}
	path, cleanup, err := writeTempKubeconfig(c.Kubeconfig)
	if err != nil {
		return nil, err
	}
	settings := cli.New()
	settings.KubeConfig = path
	return &Installer{Client: c, settings: settings, cleanup: cleanup}, nil
}

// Close removes the temporary kubeconfig.
func (i *Installer) Close() {
	if i != nil && i.cleanup != nil {
		i.cleanup()
	}
}

// writeTempKubeconfig writes kubeconfig bytes to a temporary file and returns its path
// and a cleanup function to remove it.
func writeTempKubeconfig(kubeconfig []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "kprotect-kubeconfig-*.yaml")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp kubeconfig: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(kubeconfig); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", func() {}, fmt.Errorf("write temp kubeconfig: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", func() {}, fmt.Errorf("close temp kubeconfig: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}

func (i *Installer) configuration(ctx context.Context, ns string) (*action.Configuration, error) {
	if i.configure != nil {
		return i.configure(ctx, ns)
	}
	logger := logging.FromContext(ctx)
	cfg := new(action.Configuration)
	// settings.Namespace() is not used; every action gets the namespace explicitly
	if err := cfg.Init(i.settings.RESTClientGetter(), ns, "secret", func(format string, v ...any) {
		logger.Debugf(ctx, "helm: "+format, v...)
	}); err != nil {
		return nil, fmt.Errorf("init helm configuration: %w", err)
	}
	return cfg, nil
}

func (i *Installer) loadChart(ref model.ChartRef) (*chart.Chart, error) {
	cpo := action.ChartPathOptions{RepoURL: ref.RepoURL, Version: ref.Version}
	path, err := cpo.LocateChart(ref.Name, i.settings)
	if err != nil {
		return nil, fmt.Errorf("locate chart %s from %s: %w", ref.Name, ref.RepoURL, err)
	}
	ch, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load chart %s: %w", ref.Name, err)
	}
	return ch, nil
}

func releaseTimeout(spec model.ReleaseSpec) time.Duration {
	if spec.Timeout <= 0 {
		return 10 * time.Minute
	}
	return spec.Timeout
}

// InstallOrUpgrade upgrades the release, falling back to install when no
// deployed release exists (helm upgrade --install).
func (i *Installer) InstallOrUpgrade(ctx context.Context, spec model.ReleaseSpec) (*model.Release, error) {
	rel, err := i.upgrade(ctx, spec)
	if err == nil {
		return rel, nil
	}
	if !stdErrors.Is(err, helmdriver.ErrNoDeployedReleases) && !stdErrors.Is(err, helmdriver.ErrReleaseNotFound) {
		return nil, fmt.Errorf("helm upgrade %s: %w", spec.Name, err)
	}

	cfg, err := i.configuration(ctx, spec.Namespace)
	if err != nil {
		return nil, err
	}
	ch, err := i.loadChart(spec.Chart)
	if err != nil {
		return nil, err
	}
	vals, err := MergeUserValues(spec.Values, spec.ValueFiles, spec.Set)
	if err != nil {
		return nil, err
	}
	in := action.NewInstall(cfg)
	in.Namespace = spec.Namespace
	in.ReleaseName = spec.Name
	in.CreateNamespace = true
	in.Replace = true
	in.Timeout = releaseTimeout(spec)
	r, err := in.RunWithContext(ctx, ch, vals)
	if err != nil {
		return nil, fmt.Errorf("helm install %s: %w", spec.Name, err)
	}
	return toRelease(r), nil
}

// Upgrade upgrades an existing release and fails with model.ErrReleaseNotFound
// when it has never been installed.
func (i *Installer) Upgrade(ctx context.Context, spec model.ReleaseSpec) (*model.Release, error) {
	rel, err := i.upgrade(ctx, spec)
	if err != nil {
		if stdErrors.Is(err, helmdriver.ErrNoDeployedReleases) || stdErrors.Is(err, helmdriver.ErrReleaseNotFound) {
			return nil, fmt.Errorf("release %s in %s: %w", spec.Name, spec.Namespace, model.ErrReleaseNotFound)
		}
		return nil, fmt.Errorf("helm upgrade %s: %w", spec.Name, err)
	}
	return rel, nil
}

func (i *Installer) upgrade(ctx context.Context, spec model.ReleaseSpec) (*model.Release, error) {
	cfg, err := i.configuration(ctx, spec.Namespace)
	if err != nil {
		return nil, err
	}
	// Check for the release before fetching the chart so that a first install
	// does not download it twice.
	if _, err := action.NewHistory(cfg).Run(spec.Name); err != nil {
		return nil, err
	}
	ch, err := i.loadChart(spec.Chart)
	if err != nil {
		return nil, err
	}
	vals, err := MergeUserValues(spec.Values, spec.ValueFiles, spec.Set)
	if err != nil {
		return nil, err
	}
	up := action.NewUpgrade(cfg)
	up.Namespace = spec.Namespace
	up.Timeout = releaseTimeout(spec)
	r, err := up.RunWithContext(ctx, spec.Name, ch, vals)
	if err != nil {
		return nil, err
	}
	return toRelease(r), nil
}

// Uninstall removes a release. It returns false without error when the
// release does not exist.
func (i *Installer) Uninstall(ctx context.Context, name, namespace string) (bool, error) {
	cfg, err := i.configuration(ctx, namespace)
	if err != nil {
		return false, err
	}
	un := action.NewUninstall(cfg)
	un.Timeout = 5 * time.Minute
	if _, err := un.Run(name); err != nil {
		if stdErrors.Is(err, helmdriver.ErrReleaseNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("helm uninstall %s: %w", name, err)
	}
	return true, nil
}

// Status returns the deployed release or model.ErrReleaseNotFound.
func (i *Installer) Status(ctx context.Context, name, namespace string) (*model.Release, error) {
	cfg, err := i.configuration(ctx, namespace)
	if err != nil {
		return nil, err
	}
	r, err := action.NewStatus(cfg).Run(name)
	if err != nil {
		if stdErrors.Is(err, helmdriver.ErrReleaseNotFound) {
			return nil, fmt.Errorf("release %s in %s: %w", name, namespace, model.ErrReleaseNotFound)
		}
		return nil, fmt.Errorf("helm status %s: %w", name, err)
	}
	return toRelease(r), nil
}

func toRelease(r *release.Release) *model.Release {
	if r == nil {
		return nil
	}
	out := &model.Release{Name: r.Name, Namespace: r.Namespace, Revision: r.Version}
	if r.Info != nil {
		out.Status = r.Info.Status.String()
	}
	if r.Chart != nil && r.Chart.Metadata != nil {
		out.Chart = r.Chart.Metadata.Name
		out.ChartVersion = r.Chart.Metadata.Version
		out.AppVersion = r.Chart.Metadata.AppVersion
	}
	return out
}
