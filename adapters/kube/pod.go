package kube

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

// PodWaitOptions selects the pods to wait for.
type PodWaitOptions struct {
	Namespace string
	Selector  string        // label selector, e.g. app.kubernetes.io/name=falcon-sensor
	Timeout   time.Duration // default 5m
	Interval  time.Duration // default 5s
	MinPods   int           // default 1
}

// PodState is a short view of a pod used in progress and error messages.
type PodState struct {
	Name   string
	Phase  corev1.PodPhase
	Reason string // first waiting reason of a container, e.g. ImagePullBackOff
}

func (s PodState) String() string {
	if s.Reason != "" {
		return fmt.Sprintf("%s=%s(%s)", s.Name, s.Phase, s.Reason)
	}
	return fmt.Sprintf("%s=%s", s.Name, s.Phase)
}

// WaitForPodsRunning polls the pods matching opts until at least MinPods exist
// and every one of them is Running. On timeout the returned error wraps
// model.ErrTimeout and lists the last observed pod states.
func (c *Client) WaitForPodsRunning(ctx context.Context, opts PodWaitOptions) ([]PodState, error) {
	if c == nil || c.Clientset == nil {
		return nil, fmt.Errorf("kube client is not initialized")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.MinPods <= 0 {
		opts.MinPods = 1
	}
	logger := logging.FromContext(ctx)

	var last []PodState
	err := wait.PollUntilContextTimeout(ctx, opts.Interval, opts.Timeout, true, func(ctx context.Context) (bool, error) {
		list, err := c.Clientset.CoreV1().Pods(opts.Namespace).List(ctx, metav1.ListOptions{LabelSelector: opts.Selector})
		if err != nil {
			// transient API errors keep polling
			logger.Debug(ctx, "list pods failed", "namespace", opts.Namespace, "err", err)
			return false, nil
		}
		last = podStates(list.Items)
		if len(last) < opts.MinPods {
			return false, nil
		}
		for _, s := range last {
			if s.Phase != corev1.PodRunning {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return last, ctx.Err()
		}
		if wait.Interrupted(err) {
			return last, fmt.Errorf("pods %q in %s not running after %s [%s]: %w", opts.Selector, opts.Namespace, opts.Timeout, joinStates(last), model.ErrTimeout)
		}
		return last, err
	}
	return last, nil
}

func podStates(pods []corev1.Pod) []PodState {
	out := make([]PodState, 0, len(pods))
	for i := range pods {
		p := &pods[i]
		if p.DeletionTimestamp != nil {
			continue
		}
		s := PodState{Name: p.Name, Phase: p.Status.Phase}
		for _, cs := range append(p.Status.InitContainerStatuses, p.Status.ContainerStatuses...) {
			if cs.State.Waiting != nil && cs.State.Waiting.Reason != "" {
				s.Reason = cs.State.Waiting.Reason
				break
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func joinStates(states []PodState) string {
	if len(states) == 0 {
		return "no pods"
	}
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}
