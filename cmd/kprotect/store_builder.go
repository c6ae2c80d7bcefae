package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kompox/kprotect/adapters/store/inmem"
	"github.com/kompox/kprotect/adapters/store/rdb"
	"github.com/kompox/kprotect/domain"
)

// repos bundles the state store repositories.
type repos struct {
	Cluster      domain.ClusterRepository
	Installation domain.InstallationRepository
	Setting      domain.SettingRepository
}

// getDBURL extracts the db-url flag value from command hierarchy.
func getDBURL(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("db-url"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return defaultDBURL()
}

// buildRepositories opens the state store named by db-url.
// file: URLs load a YAML document into the in-memory store and write it back
// on every change.
func buildRepositories(cmd *cobra.Command) (*repos, error) {
	dbURL := getDBURL(cmd)

	switch {
	case strings.HasPrefix(dbURL, "file:"):
		filePath := strings.TrimPrefix(dbURL, "file:")
		if filePath == "" {
			return nil, fmt.Errorf("file path is required for file: URL")
		}
		store, err := inmem.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open state from %s: %w", filePath, err)
		}
		return &repos{Cluster: store.ClusterRepo, Installation: store.InstallationRepo, Setting: store.SettingRepo}, nil

	case strings.HasPrefix(dbURL, "sqlite:") || strings.HasPrefix(dbURL, "sqlite3:"):
		db, err := rdb.OpenFromURL(dbURL)
		if err != nil {
			return nil, err
		}
		if err := rdb.AutoMigrate(db); err != nil {
			return nil, err
		}
		return &repos{
			Cluster:      rdb.NewClusterRepository(db),
			Installation: rdb.NewInstallationRepository(db),
			Setting:      rdb.NewSettingRepository(db),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported db scheme: %s", dbURL)
	}
}
