package gke

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	container "google.golang.org/api/container/v1"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/kubeconfig"
	"github.com/kompox/kprotect/internal/logging"
)

const (
	defaultMachineType = "e2-standard-4"
	defaultNodeCount   = 2
)

// waitOperation polls a GKE operation until it is DONE.
func (d *driver) waitOperation(ctx context.Context, svc *container.Service, loc location, op *container.Operation) error {
	logger := logging.FromContext(ctx)
	for op.Status != "DONE" {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for operation %s: %w", op.Name, ctx.Err())
		case <-time.After(d.pollInterval):
		}
		next, err := svc.Projects.Locations.Operations.Get(loc.operation(op.Name)).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("get operation %s: %w", op.Name, err)
		}
		if next.Status != op.Status {
			logger.Debug(ctx, "operation progress", "operation", next.Name, "type", next.OperationType, "status", next.Status)
		}
		op = next
	}
	if op.Error != nil && op.Error.Message != "" {
		return fmt.Errorf("operation %s failed: %s", op.Name, op.Error.Message)
	}
	return nil
}

// ClusterValidate requires a region and a project, taken from the settings or
// the project of the application default credentials.
func (d *driver) ClusterValidate(ctx context.Context, cluster *model.Cluster) error {
	if cluster.Region == "" {
		return fmt.Errorf("%w: gcp region or zone (--region) is required", model.ErrInvalidOptions)
	}
	if providerdrv.Setting(d.settings, model.SettingGCPProject) == "" {
		creds, err := d.credentials(ctx)
		if err != nil || creds.ProjectID == "" {
			return fmt.Errorf("%w: gcp project is required (--gcp-project)", model.ErrInvalidOptions)
		}
	}
	_, err := providerdrv.NodeCount(cluster, defaultNodeCount)
	return err
}

// ClusterProvision creates a Standard or Autopilot cluster and waits for the operation.
func (d *driver) ClusterProvision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterProvisionOption) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterProvision")
	defer func() { cleanup(err) }()

	var o model.ClusterProvisionOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.FromContext(ctx)

	if err := d.ClusterValidate(ctx, cluster); err != nil {
		return err
	}
	nodeCount, err := providerdrv.NodeCount(cluster, defaultNodeCount)
	if err != nil {
		return err
	}
	loc, err := d.location(ctx, cluster)
	if err != nil {
		return err
	}
	svc, err := d.service(ctx)
	if err != nil {
		return err
	}

	_, err = svc.Projects.Locations.Clusters.Get(loc.cluster(cluster.Name)).Context(ctx).Do()
	switch {
	case err == nil:
		if !o.Force {
			return fmt.Errorf("GKE cluster %s in %s: %w", cluster.Name, loc.parent(), model.ErrClusterExists)
		}
		logger.Info(ctx, "adopting existing GKE cluster", "cluster", cluster.Name)
		return nil
	case !isNotFound(err):
		return fmt.Errorf("get GKE cluster %s: %w", cluster.Name, err)
	}

	gc := &container.Cluster{
		Name:                  cluster.Name,
		InitialClusterVersion: cluster.Setting(model.SettingKubernetesVersion),
		ResourceLabels:        map[string]string{"managed-by": "kprotect"},
	}
	if cluster.Type == model.ClusterTypeGKEAutopilot {
		gc.Autopilot = &container.Autopilot{Enabled: true}
	} else {
		gc.InitialNodeCount = int64(nodeCount)
		gc.NodeConfig = &container.NodeConfig{MachineType: cluster.SettingOr(model.SettingNodeSize, defaultMachineType)}
	}
	op, err := svc.Projects.Locations.Clusters.Create(loc.parent(), &container.CreateClusterRequest{Cluster: gc}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create GKE cluster %s: %w", cluster.Name, err)
	}
	logger.Info(ctx, "GKE cluster creation started", "cluster", cluster.Name, "operation", op.Name, "autopilot", gc.Autopilot != nil)
	return d.waitOperation(ctx, svc, loc, op)
}

// ClusterDeprovision deletes the cluster. A missing cluster is success.
func (d *driver) ClusterDeprovision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterDeprovisionOption) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterDeprovision")
	defer func() { cleanup(err) }()

	loc, err := d.location(ctx, cluster)
	if err != nil {
		return err
	}
	svc, err := d.service(ctx)
	if err != nil {
		return err
	}
	op, err := svc.Projects.Locations.Clusters.Delete(loc.cluster(cluster.Name)).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			logging.FromContext(ctx).Info(ctx, "GKE cluster already gone", "cluster", cluster.Name)
			return nil
		}
		return fmt.Errorf("delete GKE cluster %s: %w", cluster.Name, err)
	}
	return d.waitOperation(ctx, svc, loc, op)
}

func (d *driver) getCluster(ctx context.Context, cluster *model.Cluster) (*container.Cluster, error) {
	loc, err := d.location(ctx, cluster)
	if err != nil {
		return nil, err
	}
	svc, err := d.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Projects.Locations.Clusters.Get(loc.cluster(cluster.Name)).Context(ctx).Do()
}

// ClusterStatus returns the status of a GKE cluster.
func (d *driver) ClusterStatus(ctx context.Context, cluster *model.Cluster) (*model.ClusterStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	gc, err := d.getCluster(ctx, cluster)
	if err != nil {
		if isNotFound(err) {
			return &model.ClusterStatus{State: "NOT_FOUND"}, nil
		}
		return nil, fmt.Errorf("get GKE cluster %s: %w", cluster.Name, err)
	}
	st := &model.ClusterStatus{
		Provisioned: gc.Status == "RUNNING",
		State:       gc.Status,
		Version:     gc.CurrentMasterVersion,
	}
	if gc.Endpoint != "" {
		st.Endpoint = "https://" + gc.Endpoint
	}
	return st, nil
}

// ClusterKubeconfig builds a kubeconfig that authenticates with gke-gcloud-auth-plugin.
func (d *driver) ClusterKubeconfig(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterKubeconfigOption) (data []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterKubeconfig")
	defer func() { cleanup(err) }()

	gc, err := d.getCluster(ctx, cluster)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("GKE cluster %s: %w", cluster.Name, model.ErrClusterNotFound)
		}
		return nil, fmt.Errorf("get GKE cluster %s: %w", cluster.Name, err)
	}
	var ca []byte
	if gc.MasterAuth != nil && gc.MasterAuth.ClusterCaCertificate != "" {
		ca, err = base64.StdEncoding.DecodeString(gc.MasterAuth.ClusterCaCertificate)
		if err != nil {
			return nil, fmt.Errorf("decode cluster CA: %w", err)
		}
	}
	server := ""
	if gc.Endpoint != "" {
		server = "https://" + gc.Endpoint
	}
	return kubeconfig.BuildExec(cluster.Name, server, ca, &clientcmdapi.ExecConfig{
		APIVersion:         "client.authentication.k8s.io/v1beta1",
		Command:            "gke-gcloud-auth-plugin",
		InstallHint:        "Install gke-gcloud-auth-plugin: gcloud components install gke-gcloud-auth-plugin",
		ProvideClusterInfo: true,
		InteractiveMode:    clientcmdapi.IfAvailableExecInteractiveMode,
	})
}
