package ephemeral

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/data"
)

func (eb *EphemeralBackend) CreateObject(ctx context.Context, key string, fileType data.FileType) (*backend.ObjectStat, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	obj, err := eb.createUnsafe(key, fileType)
	if err != nil {
		return nil, err
	}

	stat := obj.stat
	return &stat, nil
}

func (eb *EphemeralBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	obj, err := eb.readUnsafe(key)
	if err != nil {
		return 0, err
	}

	if obj.stat.IsDir() {
		return 0, data.ErrIsDirectory
	}

	if offset >= obj.stat.Size {
		return 0, io.EOF
	}

	buffer, exists := eb.datas[obj.id]
	if !exists {
		return 0, io.EOF
	}

	n := copy(buf, buffer[offset:obj.stat.Size])
	return n, nil
}

func (eb *EphemeralBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	obj, err := eb.readUnsafe(key)
	if err != nil {
		return 0, err
	}

	if obj.stat.IsDir() {
		return 0, data.ErrIsDirectory
	}

	writeEnd := offset + int64(len(buf))
	newSize := max(writeEnd, obj.stat.Size)

	buffer := eb.datas[obj.id]
	if int64(len(buffer)) < newSize {
		expanded := make([]byte, newSize)
		copy(expanded, buffer)
		buffer = expanded
	}

	copy(buffer[offset:], buf)

	eb.datas[obj.id] = buffer
	obj.stat.Size = newSize
	obj.stat.ModifyTime = time.Now()

	return len(buf), nil
}

func (eb *EphemeralBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if key == "" {
		return data.ErrPermission
	}

	obj, err := eb.readUnsafe(key)
	if err != nil {
		return err
	}

	if obj.stat.IsDir() {
		var children []string
		eb.childrenUnsafe(key, func(childKey string, _ *object) bool {
			children = append(children, childKey)
			// Without force one child is enough to refuse
			return force
		})

		if len(children) > 0 && !force {
			return data.ErrDirectoryNotEmpty
		}

		for _, childKey := range children {
			eb.deleteUnsafe(childKey)
		}
	}

	eb.deleteUnsafe(key)
	return nil
}

func (eb *EphemeralBackend) ListObjects(ctx context.Context, key string) ([]*backend.ObjectStat, error) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Root directory is implicit
	if key != "" {
		obj, err := eb.readUnsafe(key)
		if err != nil {
			return nil, err
		}

		if !obj.stat.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	prefixLen := 0
	if key != "" {
		prefixLen = len(key) + 1
	}

	result := make([]*backend.ObjectStat, 0)
	eb.childrenUnsafe(key, func(childKey string, obj *object) bool {
		// Only direct children, nested keys have another separator
		if !strings.Contains(childKey[prefixLen:], data.PathSeparator) {
			stat := obj.stat
			result = append(result, &stat)
		}
		return true
	})

	return result, nil
}

func (eb *EphemeralBackend) HeadObject(ctx context.Context, key string) (*backend.ObjectStat, error) {
	if key == "" {
		return backend.RootStat(), nil
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	obj, err := eb.readUnsafe(key)
	if err != nil {
		return nil, err
	}

	stat := obj.stat
	return &stat, nil
}

func (eb *EphemeralBackend) TruncateObject(ctx context.Context, key string, size int64) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	obj, err := eb.readUnsafe(key)
	if err != nil {
		return err
	}

	if obj.stat.IsDir() {
		return data.ErrIsDirectory
	}

	if size == obj.stat.Size {
		return nil // No changes needed
	}

	buffer := eb.datas[obj.id]
	if size < int64(len(buffer)) {
		eb.datas[obj.id] = buffer[:size]
	} else {
		expanded := make([]byte, size)
		copy(expanded, buffer)
		eb.datas[obj.id] = expanded
	}

	obj.stat.Size = size
	obj.stat.ModifyTime = time.Now()
	return nil
}
