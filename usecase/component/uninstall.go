package component

import (
	"context"
	"errors"
	"fmt"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

// UninstallInput represents a command to remove components.
type UninstallInput struct {
	Target
	Components  []model.Component `json:"components"`
	Interactive bool              `json:"interactive,omitempty"`
}

// UninstallOutput lists the components that were present.
type UninstallOutput struct {
	Cluster *model.Cluster    `json:"cluster"`
	Removed []model.Component `json:"removed"`
}

// Uninstall removes components in reverse order. Missing releases and
// namespaces are not errors.
func (u *UseCase) Uninstall(ctx context.Context, in *UninstallInput) (*UninstallOutput, error) {
	if in == nil || len(in.Components) == 0 {
		return nil, fmt.Errorf("%w: no component selected", model.ErrInvalidOptions)
	}
	logger := logging.FromContext(ctx)
	s, err := u.open(ctx, in.Target, in.Interactive)
	if err != nil {
		return nil, err
	}
	defer s.close()

	out := &UninstallOutput{Cluster: s.cluster, Removed: []model.Component{}}
	for i := len(in.Components) - 1; i >= 0; i-- {
		comp := in.Components[i]
		removed, err := u.uninstallOne(ctx, s, comp)
		if err != nil {
			return out, fmt.Errorf("%s: %w", comp, err)
		}
		if removed {
			out.Removed = append(out.Removed, comp)
		} else {
			logger.Info(ctx, "component not installed", "component", comp)
		}
		if s.recorded {
			if err := u.Repos.Installation.Delete(ctx, s.cluster.ID, comp); err != nil && !errors.Is(err, model.ErrInstallationNotFound) {
				logger.Warn(ctx, "failed to forget installation", "component", comp, "err", err)
			}
		}
	}
	return out, nil
}

func (u *UseCase) uninstallOne(ctx context.Context, s *session, comp model.Component) (bool, error) {
	if b, ok := bundles[comp]; ok {
		n, err := s.kube.DeleteManifests(ctx, b.Manifest, b.Namespace)
		if err != nil {
			return false, err
		}
		return n > 0, s.kube.DeleteNamespace(ctx, b.Namespace)
	}
	rel, err := releaseFor(comp)
	if err != nil {
		return false, err
	}
	var removed bool
	err = u.step(ctx, fmt.Sprintf("Removing %s", rel.Name), DefaultHelmTimeout, func(ctx context.Context) error {
		var err error
		if removed, err = s.kube.UninstallRelease(ctx, rel.Name, rel.Namespace); err != nil {
			return err
		}
		return s.kube.DeleteNamespace(ctx, rel.Namespace)
	})
	return removed, err
}
