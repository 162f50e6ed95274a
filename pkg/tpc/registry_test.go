package tpc

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testDescriptor(device DeviceType, version string) *CapabilityDescriptor {
	return &CapabilityDescriptor{
		Schema:  SchemaVersion,
		Device:  device,
		Version: version,
		Default: OpConfig{
			ActivationNBits:    8,
			ActivationMethod:   Symmetric,
			QuantizeActivation: true,
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(Device{
		Type: "deviceA",
		Versions: map[string]Factory{
			"1.0": func() *CapabilityDescriptor { return testDescriptor("deviceA", "1.0") },
		},
		Latest: "1.0",
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestResolveRegisteredPair(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	d, err := r.Resolve("deviceA", "1.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d == nil {
		t.Fatal("Resolve returned nil descriptor")
	}
	if d.Device != "deviceA" || d.Version != "1.0" {
		t.Fatalf("unexpected descriptor identity: %s %s", d.Device, d.Version)
	}
}

func TestResolveUnknownDevice(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	for _, version := range []string{"1.0", "2.0", "", "garbage"} {
		_, err := r.Resolve("deviceB", version)
		if !errors.Is(err, ErrUnknownDeviceType) {
			t.Fatalf("version %q: got %v, want ErrUnknownDeviceType", version, err)
		}
	}
}

func TestResolveUnknownVersion(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	_, err := r.Resolve("deviceA", "2.0")
	if !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("got %v, want ErrUnknownVersion", err)
	}
	if errors.Is(err, ErrUnknownDeviceType) {
		t.Fatalf("unknown version must not report unknown device: %v", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	first, err := r.Resolve("deviceA", "1.0")
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := r.Resolve("deviceA", "1.0")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first == second {
		t.Fatal("factories must build fresh descriptors per call")
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("descriptors differ between calls (-first +second):\n%s", diff)
	}
}

func TestResolveNoFallbackToLatest(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(Device{
		Type: "deviceA",
		Versions: map[string]Factory{
			"1.0": func() *CapabilityDescriptor { return testDescriptor("deviceA", "1.0") },
			"2.0": func() *CapabilityDescriptor { return testDescriptor("deviceA", "2.0") },
		},
		Latest: "2.0",
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if _, err := r.Resolve("deviceA", "3.0"); !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("unregistered version must not resolve: %v", err)
	}

	latest, err := r.Latest("deviceA")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Version != "2.0" {
		t.Fatalf("Latest version: got %q, want %q", latest.Version, "2.0")
	}
}

func TestCanonicalVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.0"},
		{"1", "1.0"},
		{" 1.0 ", "1.0"},
		{"2", "2.0"},
		{"1.1", "1.1"},
		{"", ""},
		{"v1", "v1"},
	}
	for _, tt := range tests {
		if got := CanonicalVersion(tt.in); got != tt.want {
			t.Fatalf("CanonicalVersion(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNumericVersionResolvesLikeString(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	// A float-typed version formats as "1"; it must resolve like "1.0".
	numeric := strconv.FormatFloat(1.0, 'f', -1, 64)
	fromNumeric, err := r.Resolve("deviceA", numeric)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", numeric, err)
	}
	fromString, err := r.Resolve("deviceA", "1.0")
	if err != nil {
		t.Fatalf("Resolve(\"1.0\"): %v", err)
	}
	if diff := cmp.Diff(fromString, fromNumeric); diff != "" {
		t.Fatalf("numeric and string versions resolved differently:\n%s", diff)
	}
}

func TestBackendProbe(t *testing.T) {
	t.Parallel()

	available := true
	r, err := NewRegistry(Device{
		Type: "optional",
		Versions: map[string]Factory{
			"1.0": func() *CapabilityDescriptor { return testDescriptor("optional", "1.0") },
		},
		Latest: "1.0",
		Probe:  func() bool { return available },
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if _, err := r.Resolve("optional", "1.0"); err != nil {
		t.Fatalf("available backend: %v", err)
	}

	available = false
	if _, err := r.Resolve("optional", "1.0"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("got %v, want ErrBackendUnavailable", err)
	}
}

func TestNewRegistryValidation(t *testing.T) {
	t.Parallel()

	factory := func() *CapabilityDescriptor { return testDescriptor("d", "1.0") }

	tests := []struct {
		name    string
		devices []Device
	}{
		{
			name:    "empty type",
			devices: []Device{{Type: "", Versions: map[string]Factory{"1.0": factory}, Latest: "1.0"}},
		},
		{
			name: "duplicate device",
			devices: []Device{
				{Type: "d", Versions: map[string]Factory{"1.0": factory}, Latest: "1.0"},
				{Type: "d", Versions: map[string]Factory{"1.0": factory}, Latest: "1.0"},
			},
		},
		{
			name:    "no versions",
			devices: []Device{{Type: "d", Latest: "1.0"}},
		},
		{
			name:    "nil factory",
			devices: []Device{{Type: "d", Versions: map[string]Factory{"1.0": nil}, Latest: "1.0"}},
		},
		{
			name: "colliding canonical versions",
			devices: []Device{{
				Type:     "d",
				Versions: map[string]Factory{"1": factory, "1.0": factory},
				Latest:   "1.0",
			}},
		},
		{
			name:    "latest not registered",
			devices: []Device{{Type: "d", Versions: map[string]Factory{"1.0": factory}, Latest: "9.0"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewRegistry(tt.devices...); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestDevicesAndVersionsListing(t *testing.T) {
	t.Parallel()

	factory := func() *CapabilityDescriptor { return testDescriptor("d", "1.0") }
	r, err := NewRegistry(
		Device{Type: "beta", Versions: map[string]Factory{"1.0": factory, "1.1": factory}, Latest: "1.1"},
		Device{Type: "alpha", Versions: map[string]Factory{"1.0": factory}, Latest: "1.0"},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	devices := r.Devices()
	if diff := cmp.Diff([]DeviceType{"alpha", "beta"}, devices); diff != "" {
		t.Fatalf("Devices mismatch:\n%s", diff)
	}

	versions, err := r.Versions("beta")
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if diff := cmp.Diff([]string{"1.0", "1.1"}, versions); diff != "" {
		t.Fatalf("Versions mismatch:\n%s", diff)
	}

	if _, err := r.Versions("missing"); !errors.Is(err, ErrUnknownDeviceType) {
		t.Fatalf("got %v, want ErrUnknownDeviceType", err)
	}
}

func TestModelAdapterPassThrough(t *testing.T) {
	t.Parallel()

	d := testDescriptor("deviceA", "1.0")
	for _, name := range []string{"legacy_name", "", "anything"} {
		if got := ModelAdapter(name, d); got != d {
			t.Fatalf("ModelAdapter(%q) did not return its argument", name)
		}
	}
	if got := ModelAdapter("nil descriptor", nil); got != nil {
		t.Fatal("ModelAdapter(nil) must return nil")
	}
}
