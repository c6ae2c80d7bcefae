package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/kompox/kprotect/domain/model"
)

// InstallationRepository stores component installations in a Store.
type InstallationRepository struct{ s *Store }

func (r *InstallationRepository) Upsert(_ context.Context, in *model.Installation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clusters[in.ClusterID]; !ok {
		return model.ErrClusterNotFound
	}
	key := installationKey(in.ClusterID, in.Component)
	now := time.Now().UTC()
	if prev, ok := r.s.installations[key]; ok {
		in.ID = prev.ID
		in.CreatedAt = prev.CreatedAt
	} else {
		if in.ID == "" {
			in.ID = r.s.nextID("inst")
		}
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	cp := *in
	r.s.installations[key] = &cp
	return r.s.persist()
}

func (r *InstallationRepository) Get(_ context.Context, clusterID string, component model.Component) (*model.Installation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.installations[installationKey(clusterID, component)]
	if !ok {
		return nil, model.ErrInstallationNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *InstallationRepository) ListByCluster(_ context.Context, clusterID string) ([]*model.Installation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Installation
	for _, v := range r.s.installations {
		if v.ClusterID == clusterID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out, nil
}

func (r *InstallationRepository) Delete(_ context.Context, clusterID string, component model.Component) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := installationKey(clusterID, component)
	if _, ok := r.s.installations[key]; !ok {
		return model.ErrInstallationNotFound
	}
	delete(r.s.installations, key)
	return r.s.persist()
}
