package rdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kompox/kprotect/domain"
	"github.com/kompox/kprotect/domain/model"
)

type InstallationRepository struct{ db *gorm.DB }

func NewInstallationRepository(db *gorm.DB) *InstallationRepository {
	return &InstallationRepository{db: db}
}

func installationToModel(r *InstallationRecord) *model.Installation {
	return &model.Installation{
		ID: r.ID, ClusterID: r.ClusterID, Component: model.Component(r.Component), Release: r.Release,
		Namespace: r.Namespace, Image: r.Image, Tag: r.Tag, Status: model.InstallationStatus(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r *InstallationRepository) Upsert(ctx context.Context, in *model.Installation) error {
	db := r.db.WithContext(ctx)
	var n int64
	if err := db.Model(&ClusterRecord{}).Where("id = ?", in.ClusterID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return model.ErrClusterNotFound
	}
	now := time.Now().UTC()
	var prev InstallationRecord
	err := db.Where("cluster_id = ? AND component = ?", in.ClusterID, string(in.Component)).First(&prev).Error
	switch {
	case err == nil:
		in.ID, in.CreatedAt = prev.ID, prev.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		if in.ID == "" {
			in.ID = "inst-" + uuid.NewString()
		}
		in.CreatedAt = now
	default:
		return err
	}
	in.UpdatedAt = now
	rec := &InstallationRecord{
		ID: in.ID, ClusterID: in.ClusterID, Component: string(in.Component), Release: in.Release,
		Namespace: in.Namespace, Image: in.Image, Tag: in.Tag, Status: string(in.Status),
		CreatedAt: in.CreatedAt, UpdatedAt: in.UpdatedAt,
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

func (r *InstallationRepository) Get(ctx context.Context, clusterID string, component model.Component) (*model.Installation, error) {
	var rec InstallationRecord
	err := r.db.WithContext(ctx).Where("cluster_id = ? AND component = ?", clusterID, string(component)).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrInstallationNotFound
		}
		return nil, err
	}
	return installationToModel(&rec), nil
}

func (r *InstallationRepository) ListByCluster(ctx context.Context, clusterID string) ([]*model.Installation, error) {
	var recs []InstallationRecord
	if err := r.db.WithContext(ctx).Where("cluster_id = ?", clusterID).Order("component ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Installation, 0, len(recs))
	for i := range recs {
		out = append(out, installationToModel(&recs[i]))
	}
	return out, nil
}

func (r *InstallationRepository) Delete(ctx context.Context, clusterID string, component model.Component) error {
	res := r.db.WithContext(ctx).Delete(&InstallationRecord{}, "cluster_id = ? AND component = ?", clusterID, string(component))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrInstallationNotFound
	}
	return nil
}

var _ domain.InstallationRepository = (*InstallationRepository)(nil)
