package tpc

// ModelAdapter is a compatibility shim for callers that expect the
// legacy "generate model for framework" call shape: it accepts a name,
// ignores it, and returns the already-resolved descriptor unchanged.
// New code should call Registry.Resolve directly.
func ModelAdapter(name string, d *CapabilityDescriptor) *CapabilityDescriptor {
	_ = name
	return d
}
