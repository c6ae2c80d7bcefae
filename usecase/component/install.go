package component

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

// InstallInput represents a command to install or upgrade components.
type InstallInput struct {
	Target
	Components []model.Component `json:"components"`
	Options    Options           `json:"-"`
}

// InstallOutput is the result of Install and Upgrade.
type InstallOutput struct {
	Cluster       *model.Cluster        `json:"cluster"`
	Installations []*model.Installation `json:"installations"`
}

// Install installs the components in order, upgrading releases that exist.
func (u *UseCase) Install(ctx context.Context, in *InstallInput) (*InstallOutput, error) {
	return u.install(ctx, in, false)
}

// Upgrade upgrades existing releases and fails for components never installed.
func (u *UseCase) Upgrade(ctx context.Context, in *InstallInput) (*InstallOutput, error) {
	if in != nil {
		for _, c := range in.Components {
			if !c.Upgradable() {
				return nil, fmt.Errorf("%w: %s cannot be upgraded; use install", model.ErrInvalidOptions, c)
			}
		}
	}
	return u.install(ctx, in, true)
}

func (u *UseCase) install(ctx context.Context, in *InstallInput, upgradeOnly bool) (*InstallOutput, error) {
	if in == nil {
		return nil, model.ErrInvalidOptions
	}
	logger := logging.FromContext(ctx)
	opts := &in.Options

	if err := Validate(in.Type, in.Components, opts); err != nil {
		return nil, err
	}
	if opts.Registry != "" && u.Mirror == nil {
		return nil, fmt.Errorf("%w: private registry copy is not available", model.ErrInvalidOptions)
	}

	s, err := u.open(ctx, in.Target, opts.Interactive)
	if err != nil {
		return nil, err
	}
	defer s.close()
	c := s.cluster
	if err := Validate(c.Type, in.Components, opts); err != nil {
		return nil, err
	}

	var vendor model.VendorPort
	var cid string
	for _, comp := range in.Components {
		if !comp.IsVendor() {
			continue
		}
		if vendor, err = u.VendorConnector(ctx, opts.Falcon); err != nil {
			return nil, err
		}
		if cid, err = vendor.CID(ctx); err != nil {
			return nil, fmt.Errorf("get customer id: %w", err)
		}
		break
	}

	out := &InstallOutput{Cluster: c}
	for _, comp := range in.Components {
		var inst *model.Installation
		if comp.IsVendor() {
			inst, err = u.installRelease(ctx, s, vendor, cid, comp, opts, upgradeOnly)
		} else {
			inst, err = u.applyBundle(ctx, s, comp, opts)
		}
		if inst != nil {
			u.record(ctx, s, inst)
			out.Installations = append(out.Installations, inst)
		}
		if err != nil {
			return out, fmt.Errorf("%s: %w", comp, err)
		}
		logger.Info(ctx, "component ready", "component", comp, "cluster", c.Name)
	}
	return out, nil
}

// installRelease resolves the image, copies it when a registry is set and
// runs the helm release. A returned Installation carries the final status even
// when err is set after the release was applied.
func (u *UseCase) installRelease(ctx context.Context, s *session, vendor model.VendorPort, cid string, comp model.Component, o *Options, upgradeOnly bool) (*model.Installation, error) {
	logger := logging.FromContext(ctx)
	rel, err := releaseFor(comp)
	if err != nil {
		return nil, err
	}
	c := s.cluster

	img, err := vendor.ResolveImage(ctx, model.ImageRequest{
		Component:   comp,
		Mode:        c.Type.SensorMode(),
		Version:     o.Versions[comp],
		ClusterName: c.Name,
	})
	if err != nil {
		return nil, err
	}
	ref := img.ImageRef
	if o.Registry != "" {
		err := u.step(ctx, fmt.Sprintf("Copying %s to %s", comp, o.Registry), DefaultCopyTimeout, func(ctx context.Context) error {
			var err error
			ref, err = u.Mirror.Mirror(ctx, img, o.Registry, c.Type)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("copy image: %w", err)
		}
		logger.Info(ctx, "image copied", "component", comp, "image", ref.String())
	}

	var kpa map[string]any
	if comp == model.ComponentKPA {
		if kpa, err = vendor.KPAValues(ctx, c.Name); err != nil {
			return nil, err
		}
	}
	spec := model.ReleaseSpec{
		Name:      rel.Name,
		Namespace: rel.Namespace,
		Chart:     rel.Chart,
		Values: chartValues(valueInput{
			Component:   comp,
			ClusterType: c.Type,
			ClusterName: c.Name,
			CID:         cid,
			Image:       ref,
			Options:     o,
			KPA:         kpa,
		}),
		ValueFiles: o.ValueFiles,
		Set:        o.Set,
		Timeout:    o.helmTimeout(),
	}

	verb := "Installing"
	if upgradeOnly {
		verb = "Upgrading"
	}
	var res *model.Release
	err = u.step(ctx, fmt.Sprintf("%s %s", verb, rel.Name), o.helmTimeout()+time.Minute, func(ctx context.Context) error {
		var err error
		res, err = s.kube.InstallRelease(ctx, spec, upgradeOnly)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "release deployed", "release", res.Name, "namespace", res.Namespace, "chart_version", res.ChartVersion, "revision", res.Revision)

	inst := &model.Installation{
		ClusterID: c.ID,
		Component: comp,
		Release:   rel.Name,
		Namespace: rel.Namespace,
		Image:     ref.Repository,
		Tag:       ref.Tag,
	}
	return inst, u.waitPods(ctx, s, inst, rel.Selector, o)
}

func (u *UseCase) applyBundle(ctx context.Context, s *session, comp model.Component, o *Options) (*model.Installation, error) {
	b, ok := bundles[comp]
	if !ok {
		return nil, fmt.Errorf("%w: unknown component %s", model.ErrInvalidOptions, comp)
	}
	if err := s.kube.ApplyManifests(ctx, b.Manifest, b.Namespace); err != nil {
		return nil, err
	}
	inst := &model.Installation{ClusterID: s.cluster.ID, Component: comp, Namespace: b.Namespace}
	if b.Selector == "" {
		inst.Status = model.InstallationDeployed
		return inst, nil
	}
	return inst, u.waitPods(ctx, s, inst, b.Selector, o)
}

// waitPods polls until the selected pods are Running and sets inst.Status.
func (u *UseCase) waitPods(ctx context.Context, s *session, inst *model.Installation, selector string, o *Options) error {
	timeout := o.waitTimeout()
	w := model.PodWait{Namespace: inst.Namespace, Selector: selector, Timeout: timeout}
	err := u.step(ctx, fmt.Sprintf("Waiting for %s pods", inst.Component), timeout+time.Minute, func(ctx context.Context) error {
		return s.kube.WaitForPods(ctx, w)
	})
	switch {
	case err == nil:
		inst.Status = model.InstallationDeployed
	case errors.Is(err, model.ErrTimeout):
		inst.Status = model.InstallationTimeout
	default:
		inst.Status = model.InstallationFailed
	}
	return err
}

// record stores inst for recorded clusters. Failures only log.
func (u *UseCase) record(ctx context.Context, s *session, inst *model.Installation) {
	if !s.recorded {
		return
	}
	if err := u.Repos.Installation.Upsert(ctx, inst); err != nil {
		logging.FromContext(ctx).Warn(ctx, "failed to record installation", "component", inst.Component, "err", err)
	}
}
