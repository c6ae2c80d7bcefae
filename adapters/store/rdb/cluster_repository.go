package rdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kompox/kprotect/domain"
	"github.com/kompox/kprotect/domain/model"
)

type ClusterRepository struct{ db *gorm.DB }

func NewClusterRepository(db *gorm.DB) *ClusterRepository { return &ClusterRepository{db: db} }

func clusterToRecord(c *model.Cluster) (*ClusterRecord, error) {
	settings := ""
	if len(c.Settings) > 0 {
		b, err := json.Marshal(c.Settings)
		if err != nil {
			return nil, err
		}
		settings = string(b)
	}
	return &ClusterRecord{
		ID: c.ID, Name: c.Name, Provider: string(c.Provider), Region: c.Region, Type: string(c.Type),
		Suffix: c.Suffix, Context: c.Context, Settings: settings, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}, nil
}

func clusterToModel(r *ClusterRecord) (*model.Cluster, error) {
	c := &model.Cluster{
		ID: r.ID, Name: r.Name, Provider: model.CloudProvider(r.Provider), Region: r.Region, Type: model.ClusterType(r.Type),
		Suffix: r.Suffix, Context: r.Context, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.Settings != "" {
		if err := json.Unmarshal([]byte(r.Settings), &c.Settings); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *ClusterRepository) Create(ctx context.Context, c *model.Cluster) error {
	if c.ID == "" {
		c.ID = "clus-" + uuid.NewString()
	}
	rec, err := clusterToRecord(c)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return model.ErrClusterExists
		}
		return err
	}
	c.CreatedAt, c.UpdatedAt = rec.CreatedAt, rec.UpdatedAt
	return nil
}

func (r *ClusterRepository) first(ctx context.Context, query string, args ...any) (*model.Cluster, error) {
	var rec ClusterRecord
	if err := r.db.WithContext(ctx).Where(query, args...).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrClusterNotFound
		}
		return nil, err
	}
	return clusterToModel(&rec)
}

func (r *ClusterRepository) Get(ctx context.Context, id string) (*model.Cluster, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ClusterRepository) FindByName(ctx context.Context, provider model.CloudProvider, name string) (*model.Cluster, error) {
	return r.first(ctx, "provider = ? AND name = ?", string(provider), name)
}

func (r *ClusterRepository) List(ctx context.Context) ([]*model.Cluster, error) {
	var recs []ClusterRecord
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Cluster, 0, len(recs))
	for i := range recs {
		c, err := clusterToModel(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *ClusterRepository) Update(ctx context.Context, c *model.Cluster) error {
	rec, err := clusterToRecord(c)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&ClusterRecord{}).Where("id = ?", rec.ID).
		Select("name", "provider", "region", "type", "suffix", "context", "settings", "updated_at").Updates(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrClusterNotFound
	}
	return nil
}

// Delete removes the cluster and its installations.
func (r *ClusterRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&InstallationRecord{}, "cluster_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&ClusterRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrClusterNotFound
		}
		return nil
	})
}

var _ domain.ClusterRepository = (*ClusterRepository)(nil)
