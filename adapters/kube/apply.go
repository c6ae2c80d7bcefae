package kube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	meta "k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/restmapper"
)

// ApplyOptions configures server-side apply operations.
type ApplyOptions struct {
	// DefaultNamespace is used when a namespaced resource omits metadata.namespace.
	DefaultNamespace string
	// FieldManager sets the field manager for SSA; defaults to "kprotect".
	FieldManager string
	// ForceConflicts forces apply on conflicts when true.
	ForceConflicts bool
}

func (o *ApplyOptions) defaults() {
	if o.FieldManager == "" {
		o.FieldManager = "kprotect"
	}
	if o.DefaultNamespace == "" {
		o.DefaultNamespace = "default"
	}
}

// DecodeManifests splits a multi-document YAML/JSON stream into objects,
// skipping empty documents.
func DecodeManifests(data []byte) ([]*unstructured.Unstructured, error) {
	var out []*unstructured.Unstructured
	dec := utilyaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096)
	for {
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if len(raw) == 0 {
			continue
		}
		u := &unstructured.Unstructured{Object: raw}
		if u.GetKind() == "" || u.GetAPIVersion() == "" {
			return nil, fmt.Errorf("manifest document without apiVersion/kind")
		}
		if u.GetName() == "" {
			return nil, fmt.Errorf("object %s missing metadata.name", u.GetKind())
		}
		out = append(out, u)
	}
	return out, nil
}

type dynamicClients struct {
	dy     dynamic.Interface
	mapper meta.RESTMapper
}

func (c *Client) dynamicClients() (*dynamicClients, error) {
	if c != nil && c.dyn != nil {
		return c.dyn, nil
	}
	if c == nil || c.RESTConfig == nil {
		return nil, fmt.Errorf("kube client is not initialized")
	}
	dc, err := discovery.NewDiscoveryClientForConfig(c.RESTConfig)
	if err != nil {
		return nil, fmt.Errorf("create discovery client: %w", err)
	}
	dy, err := dynamic.NewForConfig(c.RESTConfig)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}
	return &dynamicClients{dy: dy, mapper: restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(dc))}, nil
}

// resourceFor resolves the dynamic resource interface of u, filling in the
// default namespace for namespaced kinds.
func (d *dynamicClients) resourceFor(u *unstructured.Unstructured, defaultNS string) (dynamic.ResourceInterface, error) {
	gvk := schema.FromAPIVersionAndKind(u.GetAPIVersion(), u.GetKind())
	mapping, err := d.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("rest mapping %s: %w", gvk.String(), err)
	}
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return d.dy.Resource(mapping.Resource), nil
	}
	if u.GetNamespace() == "" {
		u.SetNamespace(defaultNS)
	}
	return d.dy.Resource(mapping.Resource).Namespace(u.GetNamespace()), nil
}

// ServerSideApplyYAML performs server-side apply for a multi-document YAML/JSON byte stream.
// Documents are applied in order, so namespaces should come first.
func (c *Client) ServerSideApplyYAML(ctx context.Context, data []byte, opts *ApplyOptions) error {
	if opts == nil {
		opts = &ApplyOptions{}
	}
	opts.defaults()
	objs, err := DecodeManifests(data)
	if err != nil {
		return err
	}
	d, err := c.dynamicClients()
	if err != nil {
		return err
	}
	force := opts.ForceConflicts
	for _, u := range objs {
		ri, err := d.resourceFor(u, opts.DefaultNamespace)
		if err != nil {
			return err
		}
		body, err := json.Marshal(u.Object)
		if err != nil {
			return fmt.Errorf("marshal %s/%s: %w", u.GetKind(), u.GetName(), err)
		}
		if _, err := ri.Patch(ctx, u.GetName(), types.ApplyPatchType, body, metav1.PatchOptions{FieldManager: opts.FieldManager, Force: &force}); err != nil {
			return fmt.Errorf("apply %s %s: %w", u.GetKind(), u.GetName(), err)
		}
	}
	return nil
}

// DeleteYAML deletes the objects of a manifest stream in reverse order and
// returns how many of them existed.
func (c *Client) DeleteYAML(ctx context.Context, data []byte, opts *ApplyOptions) (int, error) {
	if opts == nil {
		opts = &ApplyOptions{}
	}
	opts.defaults()
	objs, err := DecodeManifests(data)
	if err != nil {
		return 0, err
	}
	d, err := c.dynamicClients()
	if err != nil {
		return 0, err
	}
	policy := metav1.DeletePropagationBackground
	deleted := 0
	for i := len(objs) - 1; i >= 0; i-- {
		u := objs[i]
		ri, err := d.resourceFor(u, opts.DefaultNamespace)
		if err != nil {
			if meta.IsNoMatchError(err) {
				continue
			}
			return deleted, err
		}
		err = ri.Delete(ctx, u.GetName(), metav1.DeleteOptions{PropagationPolicy: &policy})
		switch {
		case err == nil:
			deleted++
		case !apierrors.IsNotFound(err):
			return deleted, fmt.Errorf("delete %s %s: %w", u.GetKind(), u.GetName(), err)
		}
	}
	return deleted, nil
}
