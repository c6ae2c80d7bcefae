package cluster

import (
	"context"

	"github.com/kompox/kprotect/domain/model"
)

// LoginInput represents a command to check or establish a cloud login.
type LoginInput struct {
	Target
	Interactive bool `json:"interactive,omitempty"`
}

// Login runs the provider login check, with the interactive fallback when allowed.
func (u *UseCase) Login(ctx context.Context, in *LoginInput) (*model.Identity, error) {
	if in == nil {
		return nil, model.ErrClusterInvalid
	}
	c, _, err := u.Resolve(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	return u.ClusterPort.Login(ctx, c, model.WithClusterLoginInteractive(in.Interactive))
}
