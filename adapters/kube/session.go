package kube

import (
	"context"
	"fmt"
	"time"

	"github.com/kompox/kprotect/domain/model"
)

// namespaceDeleteWait bounds how long uninstall waits for a namespace to go.
const namespaceDeleteWait = 3 * time.Minute

// Session binds a Client and its Helm Installer into a model.KubePort.
type Session struct {
	*Client
	installer *Installer
}

var _ model.KubePort = (*Session)(nil)

// Connect is a model.KubeConnector backed by client-go and the Helm SDK.
func Connect(ctx context.Context, kubeconfig []byte) (model.KubePort, error) {
	c, err := NewClientFromKubeconfig(ctx, kubeconfig, nil)
	if err != nil {
		return nil, err
	}
	inst, err := NewInstaller(c)
	if err != nil {
		return nil, err
	}
	return &Session{Client: c, installer: inst}, nil
}

func (s *Session) DeleteNamespace(ctx context.Context, name string) error {
	return s.Client.DeleteNamespace(ctx, name, namespaceDeleteWait)
}

func (s *Session) InstallRelease(ctx context.Context, spec model.ReleaseSpec, upgradeOnly bool) (*model.Release, error) {
	if upgradeOnly {
		return s.installer.Upgrade(ctx, spec)
	}
	return s.installer.InstallOrUpgrade(ctx, spec)
}

func (s *Session) UninstallRelease(ctx context.Context, name, namespace string) (bool, error) {
	return s.installer.Uninstall(ctx, name, namespace)
}

func (s *Session) ReleaseStatus(ctx context.Context, name, namespace string) (*model.Release, error) {
	return s.installer.Status(ctx, name, namespace)
}

func (s *Session) WaitForPods(ctx context.Context, w model.PodWait) error {
	states, err := s.WaitForPodsRunning(ctx, PodWaitOptions{Namespace: w.Namespace, Selector: w.Selector, Timeout: w.Timeout})
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no pods matched %s in %s", w.Selector, w.Namespace)
	}
	return nil
}

func (s *Session) ApplyManifests(ctx context.Context, data []byte, namespace string) error {
	return s.ServerSideApplyYAML(ctx, data, &ApplyOptions{DefaultNamespace: namespace})
}

func (s *Session) DeleteManifests(ctx context.Context, data []byte, namespace string) (int, error) {
	return s.DeleteYAML(ctx, data, &ApplyOptions{DefaultNamespace: namespace})
}

func (s *Session) Close() { s.installer.Close() }
