package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	CapabilityObjectStorage BackendCapability = "object_storage"
	CapabilityNamespace     BackendCapability = "namespace"
	CapabilityPersistent    BackendCapability = "persistent"
	CapabilityReadOnly      BackendCapability = "readonly"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities  []BackendCapability `json:"capabilities"`
	MaxObjectSize int64               `json:"max_object_size"` // 0 means unlimited
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	return bc != nil && slices.Contains(bc.Capabilities, cap)
}

// IsReadOnly reports whether every mutation must be refused.
func (bc *BackendCapabilities) IsReadOnly() bool {
	return bc.Contains(CapabilityReadOnly)
}

// Exceeds reports whether an object of size bytes is above the backend limit.
func (bc *BackendCapabilities) Exceeds(size int64) bool {
	return bc != nil && bc.MaxObjectSize > 0 && size > bc.MaxObjectSize
}
