package ephemeral

import (
	"context"
	"sync"

	"github.com/mwantia/mountfs/backend"
	"github.com/tidwall/btree"
)

// EphemeralBackend keeps every object in memory. Keys are indexed in an
// ordered B-tree so that children of a directory form one contiguous range;
// file contents are stored separately under a generated ID.
type EphemeralBackend struct {
	mu sync.RWMutex

	keys  *btree.Map[string, *object]
	datas map[string][]byte

	maxObjectSize int64
}

type object struct {
	id   string
	stat backend.ObjectStat
}

var _ backend.ObjectStorageBackend = (*EphemeralBackend)(nil)

// NewEphemeralBackend creates an empty in-memory backend. A maxObjectSize
// of 0 uses the default limit of 10 MB, a negative value removes it.
func NewEphemeralBackend(maxObjectSize int64) *EphemeralBackend {
	if maxObjectSize == 0 {
		maxObjectSize = 10485760 // 10 MB
	}
	if maxObjectSize < 0 {
		maxObjectSize = 0
	}

	return &EphemeralBackend{
		keys:          btree.NewMap[string, *object](0),
		datas:         make(map[string][]byte),
		maxObjectSize: maxObjectSize,
	}
}

// Name returns the identifier name defined for this backend
func (*EphemeralBackend) Name() string {
	return "ephemeral"
}

// Open is part of the lifecycle behaviour and gets called before the backend is used.
func (eb *EphemeralBackend) Open(ctx context.Context) error {
	// No initialization needed - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when the backend is released.
func (eb *EphemeralBackend) Close(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.keys.Clear()
	clear(eb.datas)

	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (eb *EphemeralBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
		},
		MaxObjectSize: eb.maxObjectSize,
	}
}
