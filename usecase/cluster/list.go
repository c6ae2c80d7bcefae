package cluster

import (
	"context"

	"github.com/kompox/kprotect/domain/model"
)

// ListInput represents a command to list recorded clusters.
type ListInput struct {
	// Provider filters by cloud when set.
	Provider model.CloudProvider `json:"provider,omitempty"`
}

// ListItem is one recorded cluster with its installations.
type ListItem struct {
	Cluster       *model.Cluster        `json:"cluster"`
	Installations []*model.Installation `json:"installations,omitempty"`
}

// ListOutput is the result of List.
type ListOutput struct {
	Items []ListItem `json:"items"`
}

// List returns the recorded clusters. It does not contact the clouds.
func (u *UseCase) List(ctx context.Context, in *ListInput) (*ListOutput, error) {
	if in == nil {
		in = &ListInput{}
	}
	clusters, err := u.Repos.Cluster.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &ListOutput{Items: []ListItem{}}
	for _, c := range clusters {
		if in.Provider != "" && c.Provider != in.Provider {
			continue
		}
		items, err := u.Repos.Installation.ListByCluster(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, ListItem{Cluster: c, Installations: items})
	}
	return out, nil
}
