// Package inmem is a thread-safe in-memory state store, optionally persisted
// to a YAML file after every change.
package inmem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/kompox/kprotect/domain"
	"github.com/kompox/kprotect/domain/model"
)

// Store provides a unified interface for all in-memory repositories.
type Store struct {
	ClusterRepo      *ClusterRepository
	InstallationRepo *InstallationRepository
	SettingRepo      *SettingRepository

	mu            sync.RWMutex
	path          string
	seq           int64
	clusters      map[string]*model.Cluster
	installations map[string]*model.Installation // key: clusterID/component
	settings      map[string]string
}

// document is the on-disk layout of a persisted store.
type document struct {
	Clusters      []*model.Cluster      `json:"clusters,omitempty"`
	Installations []*model.Installation `json:"installations,omitempty"`
	Settings      map[string]string     `json:"settings,omitempty"`
}

// NewStore creates a new in-memory store that is never persisted.
func NewStore() *Store {
	s := &Store{
		clusters:      map[string]*model.Cluster{},
		installations: map[string]*model.Installation{},
		settings:      map[string]string{},
	}
	s.ClusterRepo = &ClusterRepository{s: s}
	s.InstallationRepo = &InstallationRepository{s: s}
	s.SettingRepo = &SettingRepository{s: s}
	return s
}

// Open loads the store from a YAML file. A missing file yields an empty store
// that is created on the first change.
func Open(path string) (*Store, error) {
	s := NewStore()
	s.path = path
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	for _, c := range doc.Clusters {
		s.clusters[c.ID] = c
	}
	for _, in := range doc.Installations {
		s.installations[installationKey(in.ClusterID, in.Component)] = in
	}
	for k, v := range doc.Settings {
		s.settings[k] = v
	}
	return s, nil
}

// Path returns the backing file, or "" for a volatile store.
func (s *Store) Path() string { return s.path }

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), s.seq)
}

// persist writes the store to its file. Callers hold s.mu.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	doc := document{Settings: s.settings}
	for _, c := range s.clusters {
		doc.Clusters = append(doc.Clusters, c)
	}
	sort.Slice(doc.Clusters, func(i, j int) bool { return doc.Clusters[i].ID < doc.Clusters[j].ID })
	for _, in := range s.installations {
		doc.Installations = append(doc.Installations, in)
	}
	sort.Slice(doc.Installations, func(i, j int) bool {
		return installationKey(doc.Installations[i].ClusterID, doc.Installations[i].Component) <
			installationKey(doc.Installations[j].ClusterID, doc.Installations[j].Component)
	})
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.yml")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func installationKey(clusterID string, c model.Component) string {
	return clusterID + "/" + string(c)
}

// Compile-time assertions
var _ domain.ClusterRepository = (*ClusterRepository)(nil)
var _ domain.InstallationRepository = (*InstallationRepository)(nil)
var _ domain.SettingRepository = (*SettingRepository)(nil)
