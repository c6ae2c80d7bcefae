package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/kompox/kprotect/domain/model"
)

// ClusterRepository stores clusters in a Store.
type ClusterRepository struct{ s *Store }

func cloneCluster(c *model.Cluster) *model.Cluster {
	cp := *c
	if c.Settings != nil {
		cp.Settings = make(map[string]string, len(c.Settings))
		for k, v := range c.Settings {
			cp.Settings[k] = v
		}
	}
	return &cp
}

func (r *ClusterRepository) Create(_ context.Context, c *model.Cluster) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.clusters {
		if v.Provider == c.Provider && v.Name == c.Name {
			return model.ErrClusterExists
		}
	}
	if c.ID == "" {
		c.ID = r.s.nextID("clus")
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.s.clusters[c.ID] = cloneCluster(c)
	return r.s.persist()
}

func (r *ClusterRepository) Get(_ context.Context, id string) (*model.Cluster, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.clusters[id]
	if !ok {
		return nil, model.ErrClusterNotFound
	}
	return cloneCluster(v), nil
}

func (r *ClusterRepository) FindByName(_ context.Context, provider model.CloudProvider, name string) (*model.Cluster, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.clusters {
		if v.Provider == provider && v.Name == name {
			return cloneCluster(v), nil
		}
	}
	return nil, model.ErrClusterNotFound
}

func (r *ClusterRepository) List(_ context.Context) ([]*model.Cluster, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Cluster, 0, len(r.s.clusters))
	for _, v := range r.s.clusters {
		out = append(out, cloneCluster(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ClusterRepository) Update(_ context.Context, c *model.Cluster) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clusters[c.ID]; !ok {
		return model.ErrClusterNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	r.s.clusters[c.ID] = cloneCluster(c)
	return r.s.persist()
}

// Delete removes the cluster and its installations.
func (r *ClusterRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clusters[id]; !ok {
		return model.ErrClusterNotFound
	}
	delete(r.s.clusters, id)
	for k, in := range r.s.installations {
		if in.ClusterID == id {
			delete(r.s.installations, k)
		}
	}
	return r.s.persist()
}
