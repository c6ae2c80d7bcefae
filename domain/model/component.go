package model

import (
	"fmt"
	"strings"
	"time"
)

// Component is a unit that kprotect installs into a cluster.
type Component string

const (
	ComponentSensor     Component = "sensor"     // EDR sensor
	ComponentKAC        Component = "kac"        // Kubernetes admission controller
	ComponentIAR        Component = "iar"        // image assessment at runtime
	ComponentKPA        Component = "kpa"        // Kubernetes protection agent
	ComponentDemo       Component = "demo"       // vulnerable demo applications
	ComponentMisconfigs Component = "misconfigs" // synthetic misconfigurations
)

// ComponentAll expands to every vendor component.
const ComponentAll = "all"

// VendorComponents lists the vendor agents in install order.
var VendorComponents = []Component{ComponentSensor, ComponentKAC, ComponentIAR, ComponentKPA}

var allComponents = []Component{ComponentSensor, ComponentKAC, ComponentIAR, ComponentKPA, ComponentDemo, ComponentMisconfigs}

// ParseComponents parses a resource argument. "all" expands to the vendor components.
func ParseComponents(s string) ([]Component, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == ComponentAll {
		out := make([]Component, len(VendorComponents))
		copy(out, VendorComponents)
		return out, nil
	}
	for _, c := range allComponents {
		if Component(s) == c {
			return []Component{c}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown resource %q (expected sensor, kac, iar, kpa, demo, misconfigs or all)", ErrInvalidOptions, s)
}

// IsVendor reports whether the component is a vendor agent that needs API credentials.
func (c Component) IsVendor() bool {
	for _, v := range VendorComponents {
		if c == v {
			return true
		}
	}
	return false
}

// Upgradable reports whether the component is delivered by a Helm release.
func (c Component) Upgradable() bool { return c.IsVendor() }

// SensorMode is the EDR sensor deployment topology.
type SensorMode string

const (
	SensorModeDaemonset SensorMode = "daemonset"
	SensorModeSidecar   SensorMode = "sidecar"
)

// SensorBackend selects the daemonset sensor implementation.
type SensorBackend string

const (
	BackendKernel SensorBackend = "kernel"
	BackendBPF    SensorBackend = "bpf"
)

// InstallationStatus records the last known state of a component.
type InstallationStatus string

const (
	InstallationDeployed InstallationStatus = "deployed"
	InstallationTimeout  InstallationStatus = "timeout"
	InstallationFailed   InstallationStatus = "failed"
)

// Installation is a component installed into a cluster.
type Installation struct {
	ID        string             `json:"id"`
	ClusterID string             `json:"clusterId"`
	Component Component          `json:"component"`
	Release   string             `json:"release,omitempty"`
	Namespace string             `json:"namespace"`
	Image     string             `json:"image,omitempty"`
	Tag       string             `json:"tag,omitempty"`
	Status    InstallationStatus `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
