// Package models assembles the shipped device capability models into
// the default registry.
package models

import (
	"sync"

	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc/models/imx500"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc/models/qnnpack"
)

// Registry returns the process-wide registry of shipped device models.
// It is built exactly once, before the first resolution that uses it,
// and never mutated afterwards.
var Registry = sync.OnceValue(func() *tpc.Registry {
	return tpc.MustNewRegistry(
		imx500.Device(),
		qnnpack.Device(),
	)
})

// Resolve resolves against the default registry.
func Resolve(device tpc.DeviceType, version string) (*tpc.CapabilityDescriptor, error) {
	return Registry().Resolve(device, version)
}
