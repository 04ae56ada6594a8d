package consul

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/data"
)

// CreateObject creates a new object (file or directory)
func (cb *ConsulBackend) CreateObject(ctx context.Context, key string, fileType data.FileType) (*backend.ObjectStat, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if key == "" {
		return nil, data.ErrExist
	}

	if _, err := cb.headUnsafe(ctx, key); err == nil {
		return nil, data.ErrExist
	} else if err != data.ErrNotExist {
		return nil, err
	}

	// Verify parent directory exists (except for root)
	if parentKey := data.ParentPath(key); parentKey != "" {
		parent, err := cb.headUnsafe(ctx, parentKey)
		if err != nil {
			return nil, err
		}
		if !parent.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	now := time.Now()
	consulKey := cb.buildKey(key)
	if fileType.IsDir() {
		consulKey = cb.buildDirKey(key)
	}

	// ModifyIndex 0 makes the CAS succeed only if the key does not exist yet
	pair := &api.KVPair{
		Key:   consulKey,
		Flags: uint64(now.Unix()),
		Value: []byte{},
	}

	ok, _, err := cb.kv.CAS(pair, cb.writeOptions(ctx))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, data.ErrExist
	}

	return &backend.ObjectStat{
		Key:        key,
		Type:       fileType,
		ModifyTime: now,
	}, nil
}

// ReadObject reads data from an object at a given offset
func (cb *ConsulBackend) ReadObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	pair, err := cb.fileUnsafe(ctx, key)
	if err != nil {
		return 0, err
	}

	size := int64(len(pair.Value))
	if offset >= size {
		return 0, io.EOF
	}

	n := copy(dat, pair.Value[offset:])
	return n, nil
}

// WriteObject writes data to an object at a given offset
func (cb *ConsulBackend) WriteObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair, err := cb.fileUnsafe(ctx, key)
	if err != nil {
		return 0, err
	}

	writeEnd := offset + int64(len(dat))

	// Check size constraint from capabilities
	if caps := cb.GetCapabilities(); caps.Exceeds(writeEnd) {
		return 0, fmt.Errorf("%w: %d > %d bytes (Consul KV limit: 512KB)", data.ErrObjectTooLarge, writeEnd, caps.MaxObjectSize)
	}

	buffer := pair.Value
	if writeEnd > int64(len(buffer)) {
		expanded := make([]byte, writeEnd)
		copy(expanded, buffer)
		buffer = expanded
	}

	copy(buffer[offset:], dat)

	pair.Value = buffer
	pair.Flags = uint64(time.Now().Unix())
	if _, err := cb.kv.Put(pair, cb.writeOptions(ctx)); err != nil {
		return 0, err
	}

	return len(dat), nil
}

// DeleteObject deletes an object (file or directory)
func (cb *ConsulBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if key == "" {
		return data.ErrPermission
	}

	stat, err := cb.headUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if !stat.IsDir() {
		_, err := cb.kv.Delete(cb.buildKey(key), cb.writeOptions(ctx))
		return err
	}

	prefix := cb.buildDirKey(key)
	if !force {
		keys, _, err := cb.kv.Keys(prefix, "/", cb.queryOptions(ctx))
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k != prefix {
				return data.ErrDirectoryNotEmpty
			}
		}
	}

	// Removes the marker together with everything beneath it
	_, err = cb.kv.DeleteTree(prefix, cb.writeOptions(ctx))
	return err
}

// ListObjects lists the direct children of a directory
func (cb *ConsulBackend) ListObjects(ctx context.Context, key string) ([]*backend.ObjectStat, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if key != "" {
		stat, err := cb.headUnsafe(ctx, key)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	prefix := cb.buildDirKey(key)

	// Separator "/" tells Consul to only return one level
	consulKeys, _, err := cb.kv.Keys(prefix, "/", cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}

	result := make([]*backend.ObjectStat, 0, len(consulKeys))
	seen := make(map[string]bool, len(consulKeys))

	for _, consulKey := range consulKeys {
		// Skip the marker of the listed directory itself
		if consulKey == prefix {
			continue
		}

		rel := strings.TrimPrefix(consulKey, cb.prefix)
		if strings.HasSuffix(rel, "/") {
			childKey := strings.TrimSuffix(rel, "/")
			if seen[childKey] {
				continue
			}
			seen[childKey] = true

			result = append(result, &backend.ObjectStat{
				Key:  childKey,
				Type: data.FileTypeDirectory,
			})
			continue
		}

		pair, _, err := cb.kv.Get(consulKey, cb.queryOptions(ctx))
		if err != nil {
			return nil, err
		}
		if pair == nil {
			// Removed while listing
			continue
		}

		seen[rel] = true
		result = append(result, toObjectStat(rel, pair))
	}

	return result, nil
}

// HeadObject returns metadata about an object
func (cb *ConsulBackend) HeadObject(ctx context.Context, key string) (*backend.ObjectStat, error) {
	if key == "" {
		return backend.RootStat(), nil
	}

	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.headUnsafe(ctx, key)
}

// TruncateObject truncates an object to a specific size
func (cb *ConsulBackend) TruncateObject(ctx context.Context, key string, size int64) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair, err := cb.fileUnsafe(ctx, key)
	if err != nil {
		return err
	}

	currentSize := int64(len(pair.Value))
	if size == currentSize {
		return nil // No changes needed
	}

	if caps := cb.GetCapabilities(); caps.Exceeds(size) {
		return fmt.Errorf("%w: %d > %d bytes (Consul KV limit: 512KB)", data.ErrObjectTooLarge, size, caps.MaxObjectSize)
	}

	if size < currentSize {
		pair.Value = pair.Value[:size]
	} else {
		expanded := make([]byte, size)
		copy(expanded, pair.Value)
		pair.Value = expanded
	}

	pair.Flags = uint64(time.Now().Unix())
	_, err = cb.kv.Put(pair, cb.writeOptions(ctx))
	return err
}

// Helper methods

// headUnsafe resolves key to a file, a directory marker or an implicit
// directory created by other Consul clients.
// MUST be called while holding at least a read lock.
func (cb *ConsulBackend) headUnsafe(ctx context.Context, key string) (*backend.ObjectStat, error) {
	if key == "" {
		return backend.RootStat(), nil
	}

	pair, _, err := cb.kv.Get(cb.buildKey(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair != nil {
		return toObjectStat(key, pair), nil
	}

	// Any key below the directory prefix, including its own marker
	keys, _, err := cb.kv.Keys(cb.buildDirKey(key), "/", cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		return &backend.ObjectStat{
			Key:  key,
			Type: data.FileTypeDirectory,
		}, nil
	}

	return nil, data.ErrNotExist
}

// fileUnsafe returns the KV entry of the file at key.
// MUST be called while holding at least a read lock.
func (cb *ConsulBackend) fileUnsafe(ctx context.Context, key string) (*api.KVPair, error) {
	stat, err := cb.headUnsafe(ctx, key)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, data.ErrIsDirectory
	}

	pair, _, err := cb.kv.Get(cb.buildKey(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, data.ErrNotExist
	}

	return pair, nil
}

func (cb *ConsulBackend) queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{}).WithContext(ctx)
}

func (cb *ConsulBackend) writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}

// toObjectStat converts a file entry; its flags hold the modification time
func toObjectStat(key string, pair *api.KVPair) *backend.ObjectStat {
	stat := &backend.ObjectStat{
		Key:  key,
		Type: data.FileTypeFile,
		Size: int64(len(pair.Value)),
	}

	if pair.Flags > 0 {
		stat.ModifyTime = time.Unix(int64(pair.Flags), 0)
	}

	return stat
}
