package rdb

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/kompox/kprotect/domain/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenFromURL("sqlite::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// a single connection keeps the in-memory database alive across calls
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestOpenFromURL_Unsupported(t *testing.T) {
	if _, err := OpenFromURL("postgres://x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClusterRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewClusterRepository(openTestDB(t))

	c := &model.Cluster{
		Name: "kprotect-abc123", Provider: model.ProviderAWS, Region: "us-east-1",
		Type: model.ClusterTypeEKSManagedNode, Suffix: "abc123",
		Settings: map[string]string{"node_count": "2"},
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("id not assigned")
	}
	dup := &model.Cluster{Name: "kprotect-abc123", Provider: model.ProviderAWS}
	if err := repo.Create(ctx, dup); !errors.Is(err, model.ErrClusterExists) {
		t.Errorf("expected ErrClusterExists, got %v", err)
	}

	got, err := repo.FindByName(ctx, model.ProviderAWS, "kprotect-abc123")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != c.ID || got.Setting("node_count") != "2" || got.Type != model.ClusterTypeEKSManagedNode {
		t.Errorf("unexpected cluster: %+v", got)
	}
	if _, err := repo.FindByName(ctx, model.ProviderAzure, "kprotect-abc123"); !errors.Is(err, model.ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}

	got.Context = "kprotect-aws-kprotect-abc123-1a2b"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := repo.Get(ctx, c.ID)
	if again.Context != got.Context {
		t.Errorf("context not updated: %q", again.Context)
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}

	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, c.ID); !errors.Is(err, model.ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}
}

func TestInstallationRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	clusters := NewClusterRepository(db)
	repo := NewInstallationRepository(db)

	if err := repo.Upsert(ctx, &model.Installation{ClusterID: "missing", Component: model.ComponentKAC}); !errors.Is(err, model.ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}

	c := &model.Cluster{Name: "c1", Provider: model.ProviderGCP}
	if err := clusters.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	in := &model.Installation{ClusterID: c.ID, Component: model.ComponentSensor, Release: "falcon-sensor", Namespace: "falcon-system", Tag: "7.10.0", Status: model.InstallationTimeout}
	if err := repo.Upsert(ctx, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	firstID := in.ID
	in2 := &model.Installation{ClusterID: c.ID, Component: model.ComponentSensor, Release: "falcon-sensor", Namespace: "falcon-system", Tag: "7.11.0", Status: model.InstallationDeployed}
	if err := repo.Upsert(ctx, in2); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if in2.ID != firstID {
		t.Errorf("upsert changed id: %s != %s", in2.ID, firstID)
	}
	got, err := repo.Get(ctx, c.ID, model.ComponentSensor)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag != "7.11.0" || got.Status != model.InstallationDeployed {
		t.Errorf("unexpected installation: %+v", got)
	}
	if err := repo.Upsert(ctx, &model.Installation{ClusterID: c.ID, Component: model.ComponentKAC, Namespace: "falcon-kac"}); err != nil {
		t.Fatal(err)
	}
	list, err := repo.ListByCluster(ctx, c.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}

	if err := repo.Delete(ctx, c.ID, model.ComponentKAC); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, c.ID, model.ComponentKAC); !errors.Is(err, model.ErrInstallationNotFound) {
		t.Errorf("expected ErrInstallationNotFound, got %v", err)
	}

	// deleting the cluster drops its installations
	if err := clusters.Delete(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ := repo.ListByCluster(ctx, c.ID); len(list) != 0 {
		t.Errorf("installations left behind: %v", list)
	}
}

func TestSettingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingRepository(openTestDB(t))
	if _, ok, err := repo.GetSetting(ctx, "suffix"); err != nil || ok {
		t.Fatalf("unexpected: %v %v", ok, err)
	}
	for _, v := range []string{"abc123", "def456"} {
		if err := repo.PutSetting(ctx, "suffix", v); err != nil {
			t.Fatal(err)
		}
	}
	v, ok, err := repo.GetSetting(ctx, "suffix")
	if err != nil || !ok || v != "def456" {
		t.Errorf("got %q %v %v", v, ok, err)
	}
}
