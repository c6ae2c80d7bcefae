package rdb

import "time"

// ClusterRecord persistence model
type ClusterRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:idx_clusters_provider_name"`
	Provider  string    `gorm:"type:text;not null;uniqueIndex:idx_clusters_provider_name"`
	Region    string    `gorm:"type:text"`
	Type      string    `gorm:"type:text"`
	Suffix    string    `gorm:"type:text"`
	Context   string    `gorm:"type:text"`
	Settings  string    `gorm:"type:text"` // JSON encoded map[string]string
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ClusterRecord) TableName() string { return "clusters" }

// InstallationRecord persistence model
type InstallationRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	ClusterID string    `gorm:"type:text;not null;uniqueIndex:idx_installations_cluster_component"` // references Cluster
	Component string    `gorm:"type:text;not null;uniqueIndex:idx_installations_cluster_component"`
	Release   string    `gorm:"type:text"`
	Namespace string    `gorm:"type:text"`
	Image     string    `gorm:"type:text"`
	Tag       string    `gorm:"type:text"`
	Status    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (InstallationRecord) TableName() string { return "installations" }

// SettingRecord persistence model
type SettingRecord struct {
	Name      string    `gorm:"primaryKey;type:text;not null"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (SettingRecord) TableName() string { return "settings" }
