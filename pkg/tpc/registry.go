package tpc

import (
	"fmt"
	"sort"
)

// Factory builds a fresh CapabilityDescriptor. Factories must be pure:
// no I/O, no shared state, same content on every call.
type Factory func() *CapabilityDescriptor

// Device declares one device type for registry construction.
type Device struct {
	Type DeviceType

	// Versions maps version strings to descriptor factories. Keys are
	// canonicalized during NewRegistry.
	Versions map[string]Factory

	// Latest names the version returned by Registry.Latest. Required.
	Latest string

	// Probe, when non-nil, reports whether the backing runtime for
	// this device is available. A failing probe turns every resolution
	// into ErrBackendUnavailable instead of silently substituting a
	// different implementation.
	Probe func() bool
}

type deviceEntry struct {
	versions map[string]Factory
	latest   string
	probe    func() bool
}

// Registry is a write-once mapping from device type and version to a
// descriptor factory. Build it with NewRegistry before first use; it
// is never mutated afterwards, so it is safe for concurrent readers.
type Registry struct {
	devices map[DeviceType]deviceEntry
}

// NewRegistry validates the device declarations and builds a registry.
func NewRegistry(devices ...Device) (*Registry, error) {
	r := &Registry{devices: make(map[DeviceType]deviceEntry, len(devices))}
	for _, d := range devices {
		if d.Type == "" {
			return nil, fmt.Errorf("tpc: device with empty type")
		}
		if _, ok := r.devices[d.Type]; ok {
			return nil, fmt.Errorf("tpc: duplicate device type %q", d.Type)
		}
		if len(d.Versions) == 0 {
			return nil, fmt.Errorf("tpc: device %q has no versions", d.Type)
		}
		entry := deviceEntry{
			versions: make(map[string]Factory, len(d.Versions)),
			latest:   CanonicalVersion(d.Latest),
			probe:    d.Probe,
		}
		for v, f := range d.Versions {
			cv := CanonicalVersion(v)
			if f == nil {
				return nil, fmt.Errorf("tpc: device %q version %q has nil factory", d.Type, cv)
			}
			if _, ok := entry.versions[cv]; ok {
				return nil, fmt.Errorf("tpc: device %q version %q registered twice", d.Type, cv)
			}
			entry.versions[cv] = f
		}
		if _, ok := entry.versions[entry.latest]; !ok {
			return nil, fmt.Errorf("tpc: device %q latest version %q not registered", d.Type, entry.latest)
		}
		r.devices[d.Type] = entry
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on invalid declarations.
// Intended for process-init assembly of the shipped registry.
func MustNewRegistry(devices ...Device) *Registry {
	r, err := NewRegistry(devices...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the capability descriptor for the given device type
// and version. The version is canonicalized before lookup; the match
// is exact and there is no fallback to a latest or default version.
func (r *Registry) Resolve(device DeviceType, version string) (*CapabilityDescriptor, error) {
	entry, ok := r.devices[device]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, device)
	}
	if entry.probe != nil && !entry.probe() {
		return nil, fmt.Errorf("%w: device %q", ErrBackendUnavailable, device)
	}
	cv := CanonicalVersion(version)
	factory, ok := entry.versions[cv]
	if !ok {
		return nil, fmt.Errorf("%w: %q for device %q", ErrUnknownVersion, cv, device)
	}
	return factory(), nil
}

// Latest resolves the newest registered version of a device. This is
// the explicit opt-in path; Resolve never falls back to it.
func (r *Registry) Latest(device DeviceType) (*CapabilityDescriptor, error) {
	entry, ok := r.devices[device]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, device)
	}
	return r.Resolve(device, entry.latest)
}

// LatestVersion returns the version string Latest resolves for device.
func (r *Registry) LatestVersion(device DeviceType) (string, error) {
	entry, ok := r.devices[device]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDeviceType, device)
	}
	return entry.latest, nil
}

// Devices lists the registered device types in stable order.
func (r *Registry) Devices() []DeviceType {
	out := make([]DeviceType, 0, len(r.devices))
	for d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Versions lists the registered versions of a device in stable order.
func (r *Registry) Versions(device DeviceType) ([]string, error) {
	entry, ok := r.devices[device]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, device)
	}
	out := make([]string, 0, len(entry.versions))
	for v := range entry.versions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
