package domain

import (
	"context"

	"github.com/kompox/kprotect/domain/model"
)

// ClusterRepository stores and retrieves Cluster aggregates.
type ClusterRepository interface {
	Create(ctx context.Context, c *model.Cluster) error
	Get(ctx context.Context, id string) (*model.Cluster, error)
	FindByName(ctx context.Context, provider model.CloudProvider, name string) (*model.Cluster, error)
	List(ctx context.Context) ([]*model.Cluster, error)
	Update(ctx context.Context, c *model.Cluster) error
	Delete(ctx context.Context, id string) error
}

// InstallationRepository stores components installed into clusters.
type InstallationRepository interface {
	// Upsert creates or replaces the installation keyed by cluster and component.
	Upsert(ctx context.Context, in *model.Installation) error
	Get(ctx context.Context, clusterID string, component model.Component) (*model.Installation, error)
	ListByCluster(ctx context.Context, clusterID string) ([]*model.Installation, error)
	Delete(ctx context.Context, clusterID string, component model.Component) error
}

// SettingRepository stores small tool-wide values such as the cached name suffix.
type SettingRepository interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}
