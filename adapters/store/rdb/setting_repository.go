package rdb

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kompox/kprotect/domain"
)

type SettingRepository struct{ db *gorm.DB }

func NewSettingRepository(db *gorm.DB) *SettingRepository { return &SettingRepository{db: db} }

func (r *SettingRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var rec SettingRecord
	if err := r.db.WithContext(ctx).First(&rec, "name = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.Value, true, nil
}

func (r *SettingRepository) PutSetting(ctx context.Context, key, value string) error {
	rec := &SettingRecord{Name: key, Value: value, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

var _ domain.SettingRepository = (*SettingRepository)(nil)
