package ephemeral

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/data"
)

// This file contains internal "unsafe" methods that perform operations without acquiring locks.
// These methods MUST only be called when the caller already holds the appropriate lock.

// readUnsafe returns the object stored at key.
// MUST be called while holding at least a read lock.
func (eb *EphemeralBackend) readUnsafe(key string) (*object, error) {
	obj, exists := eb.keys.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}
	return obj, nil
}

// createUnsafe inserts a new object after checking its parent.
// MUST be called while holding a write lock.
func (eb *EphemeralBackend) createUnsafe(key string, fileType data.FileType) (*object, error) {
	if key == "" {
		return nil, data.ErrExist
	}

	if _, exists := eb.keys.Get(key); exists {
		return nil, data.ErrExist
	}

	if parentKey := data.ParentPath(key); parentKey != "" {
		parent, err := eb.readUnsafe(parentKey)
		if err != nil {
			return nil, err
		}
		if !parent.stat.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	now := time.Now()
	obj := &object{
		id: uuid.Must(uuid.NewV7()).String(),
		stat: backend.ObjectStat{
			Key:        key,
			Type:       fileType,
			CreateTime: now,
			ModifyTime: now,
			AccessTime: now,
		},
	}

	eb.keys.Set(key, obj)
	return obj, nil
}

// childrenUnsafe calls fn for every key strictly beneath key, in order.
// MUST be called while holding at least a read lock.
func (eb *EphemeralBackend) childrenUnsafe(key string, fn func(childKey string, obj *object) bool) {
	prefix := ""
	if key != "" {
		prefix = key + data.PathSeparator
	}

	eb.keys.Ascend(prefix, func(childKey string, obj *object) bool {
		if !strings.HasPrefix(childKey, prefix) {
			return false
		}
		if childKey == key {
			return true
		}
		return fn(childKey, obj)
	})
}

// deleteUnsafe removes a single object and its content.
// MUST be called while holding a write lock.
func (eb *EphemeralBackend) deleteUnsafe(key string) {
	if obj, ok := eb.keys.Delete(key); ok {
		delete(eb.datas, obj.id)
	}
}
