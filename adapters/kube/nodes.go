package kube

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kompox/kprotect/domain/model"
)

// Node labels used to recognize managed Kubernetes flavors.
const (
	labelEKSComputeType = "eks.amazonaws.com/compute-type"
	labelEKSNodegroup   = "eks.amazonaws.com/nodegroup"
	labelEksctlNodegrp  = "alpha.eksctl.io/nodegroup-name"
	labelAKSCluster     = "kubernetes.azure.com/cluster"
	labelAKSAgentpool   = "kubernetes.azure.com/agentpool"
	labelGKENodepool    = "cloud.google.com/gke-nodepool"

	// Autopilot names its nodes gk3-<cluster>-<pool>-<hash>.
	autopilotNodePrefix = "gk3-"
)

// DetectClusterType lists the nodes and classifies the cluster by node labels.
func (c *Client) DetectClusterType(ctx context.Context) (model.ClusterType, error) {
	if c == nil || c.Clientset == nil {
		return "", fmt.Errorf("kube client is not initialized")
	}
	list, err := c.Clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("list nodes: %w", err)
	}
	return ClassifyNodes(list.Items)
}

// ClassifyNodes derives the cluster type from a node list.
// EKS Fargate is reported only when every node is a Fargate node.
func ClassifyNodes(nodes []corev1.Node) (model.ClusterType, error) {
	if len(nodes) == 0 {
		return "", fmt.Errorf("cannot detect cluster type: cluster has no nodes")
	}
	var fargate, eksManaged, aws, aks, gke, autopilot int
	for i := range nodes {
		n := &nodes[i]
		l := n.Labels
		switch {
		case l[labelEKSComputeType] == "fargate":
			fargate++
		case l[labelEKSNodegroup] != "":
			eksManaged++
		case l[labelEksctlNodegrp] != "" || strings.HasPrefix(n.Spec.ProviderID, "aws://"):
			aws++
		case l[labelAKSCluster] != "" || l[labelAKSAgentpool] != "" || strings.HasPrefix(n.Spec.ProviderID, "azure://"):
			aks++
		case strings.HasPrefix(n.Name, autopilotNodePrefix):
			autopilot++
		case l[labelGKENodepool] != "" || strings.HasPrefix(n.Spec.ProviderID, "gce://"):
			gke++
		}
	}
	switch {
	case fargate == len(nodes):
		return model.ClusterTypeEKSFargate, nil
	case eksManaged > 0:
		return model.ClusterTypeEKSManagedNode, nil
	case aws > 0 || fargate > 0:
		return model.ClusterTypeEKSSelfManagedNode, nil
	case aks > 0:
		return model.ClusterTypeAKS, nil
	case autopilot > 0:
		return model.ClusterTypeGKEAutopilot, nil
	case gke > 0:
		return model.ClusterTypeGKEStandard, nil
	}
	return "", fmt.Errorf("cannot detect cluster type from labels of %d nodes", len(nodes))
}
