// Package tpc implements target platform capabilities: versioned,
// immutable descriptions of the quantization schemes a deployment
// target supports.
//
// Capabilities are resolved through a Registry that maps a device type
// and a version string to a descriptor factory. The registry is built
// once, before first use, and is read-only afterwards, so concurrent
// Resolve calls need no locking.
package tpc

import (
	"strconv"
	"strings"
)

// DeviceType identifies a target hardware/software profile.
type DeviceType string

// Shipped device profiles.
const (
	DeviceIMX500  DeviceType = "imx500"
	DeviceQNNPack DeviceType = "qnnpack"
)

// CanonicalVersion normalizes a version string before registry lookup.
// Whitespace is trimmed and a bare integer gains a ".0" suffix, so a
// numeric-looking value and its dotted string form ("1" and "1.0")
// resolve to the same entry. Anything else is matched exactly; there
// is no semantic-version ordering.
func CanonicalVersion(version string) string {
	s := strings.TrimSpace(version)
	if s == "" {
		return s
	}
	if _, err := strconv.Atoi(s); err == nil {
		return s + ".0"
	}
	return s
}
