package component

import (
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/kompox/kprotect/domain/model"
)

// Validate checks the parameter combinations of an install. An empty cluster
// type skips the checks that depend on it.
func Validate(ct model.ClusterType, comps []model.Component, o *Options) error {
	if len(comps) == 0 {
		return fmt.Errorf("%w: no component selected", model.ErrInvalidOptions)
	}
	if o == nil {
		o = &Options{}
	}
	if o.KernelMode && o.EBPFMode {
		return fmt.Errorf("%w: --kernel-mode and --ebpf-mode are mutually exclusive", model.ErrInvalidOptions)
	}
	vendor, sensor := false, false
	for _, c := range comps {
		vendor = vendor || c.IsVendor()
		sensor = sensor || c == model.ComponentSensor
	}
	if vendor && !o.Falcon.Valid() {
		return fmt.Errorf("%w: --falcon-client-id and --falcon-client-secret are required", model.ErrInvalidOptions)
	}
	if o.Registry != "" {
		if _, err := name.NewRepository(o.Registry+"/falcon-sensor", name.StrictValidation); err != nil {
			return fmt.Errorf("%w: invalid --registry %q: %v", model.ErrInvalidOptions, o.Registry, err)
		}
	}
	if !sensor || ct == "" {
		return nil
	}
	switch ct.SensorMode() {
	case model.SensorModeSidecar:
		if o.KernelMode || o.EBPFMode {
			return fmt.Errorf("%w: %s runs the sensor as a sidecar; --kernel-mode and --ebpf-mode do not apply", model.ErrInvalidOptions, ct)
		}
	default:
		if ct == model.ClusterTypeGKEAutopilot && o.KernelMode {
			return fmt.Errorf("%w: %s supports only --ebpf-mode", model.ErrInvalidOptions, ct)
		}
		if !o.KernelMode && !o.EBPFMode {
			return fmt.Errorf("%w: %s needs --kernel-mode or --ebpf-mode for the sensor", model.ErrInvalidOptions, ct)
		}
	}
	return nil
}
