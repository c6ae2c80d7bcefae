package component

import (
	"context"
	"errors"

	"github.com/kompox/kprotect/domain/model"
)

// ReleaseState is the live state of one vendor component.
type ReleaseState struct {
	Component model.Component `json:"component"`
	Release   *model.Release  `json:"release,omitempty"`
}

// StatusInput represents a command to inspect installed releases.
type StatusInput struct {
	Target
	Interactive bool `json:"interactive,omitempty"`
}

// StatusOutput reports the cluster and each vendor release found on it.
type StatusOutput struct {
	Cluster  *model.Cluster `json:"cluster"`
	Releases []ReleaseState `json:"releases"`
}

// Status reads the helm release of every vendor component.
func (u *UseCase) Status(ctx context.Context, in *StatusInput) (*StatusOutput, error) {
	if in == nil {
		return nil, model.ErrInvalidOptions
	}
	s, err := u.open(ctx, in.Target, in.Interactive)
	if err != nil {
		return nil, err
	}
	defer s.close()
	out := &StatusOutput{Cluster: s.cluster, Releases: []ReleaseState{}}
	for _, comp := range model.VendorComponents {
		rel := releases[comp]
		r, err := s.kube.ReleaseStatus(ctx, rel.Name, rel.Namespace)
		if err != nil && !errors.Is(err, model.ErrReleaseNotFound) {
			return nil, err
		}
		out.Releases = append(out.Releases, ReleaseState{Component: comp, Release: r})
	}
	return out, nil
}
