package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/naming"
)

// Suffix returns the cached random suffix, generating and storing it on first use.
func (u *UseCase) Suffix(ctx context.Context) (string, error) {
	v, ok, err := u.Repos.Setting.GetSetting(ctx, SettingSuffix)
	if err != nil {
		return "", fmt.Errorf("read name suffix: %w", err)
	}
	if ok && v != "" {
		return v, nil
	}
	v = naming.RandomSuffix()
	if err := u.Repos.Setting.PutSetting(ctx, SettingSuffix, v); err != nil {
		return "", fmt.Errorf("store name suffix: %w", err)
	}
	return v, nil
}

// DefaultName returns kprotect-<suffix>.
func (u *UseCase) DefaultName(ctx context.Context) (string, error) {
	suffix, err := u.Suffix(ctx)
	if err != nil {
		return "", err
	}
	return naming.ClusterName(naming.DefaultPrefix, suffix), nil
}

// Resolve returns the recorded cluster for t, with t's non-empty fields
// applied on top, or a transient cluster when none is recorded. The second
// result reports whether a record exists.
func (u *UseCase) Resolve(ctx context.Context, t Target) (*model.Cluster, bool, error) {
	if _, err := model.ParseCloudProvider(string(t.Provider)); err != nil {
		return nil, false, err
	}
	if t.Name == "" {
		name, err := u.DefaultName(ctx)
		if err != nil {
			return nil, false, err
		}
		t.Name = name
	}
	c, err := u.Repos.Cluster.FindByName(ctx, t.Provider, t.Name)
	switch {
	case err == nil:
		if t.Region != "" {
			c.Region = t.Region
		}
		if t.Type != "" {
			c.Type = t.Type
		}
		if c.Settings == nil {
			c.Settings = map[string]string{}
		}
		for k, v := range t.Settings {
			if v != "" {
				c.Settings[k] = v
			}
		}
		return c, true, nil
	case errors.Is(err, model.ErrClusterNotFound):
		c = &model.Cluster{
			Name:     t.Name,
			Provider: t.Provider,
			Region:   t.Region,
			Type:     t.Type,
			Settings: map[string]string{},
		}
		for k, v := range t.Settings {
			if v != "" {
				c.Settings[k] = v
			}
		}
		return c, false, nil
	default:
		return nil, false, err
	}
}
