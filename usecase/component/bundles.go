package component

import (
	_ "embed"

	"github.com/kompox/kprotect/domain/model"
)

var (
	//go:embed manifests/demo.yaml
	demoManifest []byte
	//go:embed manifests/misconfigs.yaml
	misconfigsManifest []byte
)

// bundle is a set of plain manifests applied with server-side apply.
type bundle struct {
	Namespace string
	Manifest  []byte
	// Selector picks the pods to wait for; empty skips the wait.
	Selector string
}

var bundles = map[model.Component]bundle{
	model.ComponentDemo: {
		Namespace: "kprotect-demo",
		Manifest:  demoManifest,
		Selector:  "app.kubernetes.io/part-of=kprotect-demo",
	},
	model.ComponentMisconfigs: {
		Namespace: "kprotect-misconfig",
		Manifest:  misconfigsManifest,
	},
}
