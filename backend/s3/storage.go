package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/data"
)

const directoryContentType = "application/x-directory"

func (sb *S3Backend) CreateObject(ctx context.Context, key string, fileType data.FileType) (*backend.ObjectStat, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if key == "" {
		return nil, data.ErrExist
	}

	if _, err := sb.headUnsafe(ctx, key); err == nil {
		return nil, data.ErrExist
	} else if err != data.ErrNotExist {
		return nil, err
	}

	if parentKey := data.ParentPath(key); parentKey != "" {
		parent, err := sb.headUnsafe(ctx, parentKey)
		if err != nil {
			return nil, err
		}
		if !parent.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	now := time.Now()

	// For directories, create a zero-byte object with trailing slash
	objectKey, opts := sb.buildKey(key), minio.PutObjectOptions{}
	if fileType.IsDir() {
		objectKey = sb.buildDirKey(key)
		opts.ContentType = directoryContentType
	}

	if _, err := sb.client.PutObject(ctx, sb.config.Bucket, objectKey, bytes.NewReader([]byte{}), 0, opts); err != nil {
		return nil, err
	}

	return &backend.ObjectStat{
		Key:        key,
		Type:       fileType,
		CreateTime: now,
		ModifyTime: now,
	}, nil
}

func (sb *S3Backend) ReadObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	stat, err := sb.headUnsafe(ctx, key)
	if err != nil {
		return 0, err
	}

	if stat.IsDir() {
		return 0, data.ErrIsDirectory
	}

	if offset >= stat.Size {
		return 0, io.EOF
	}

	if len(dat) == 0 {
		return 0, nil
	}

	end := min(offset+int64(len(dat)), stat.Size) - 1

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, end); err != nil {
		return 0, err
	}

	object, err := sb.client.GetObject(ctx, sb.config.Bucket, sb.buildKey(key), opts)
	if err != nil {
		return 0, err
	}
	defer object.Close()

	n, err := io.ReadFull(object, dat[:end-offset+1])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return n, err
	}

	return n, nil
}

func (sb *S3Backend) WriteObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// S3 doesn't support partial writes - we need to read-modify-write
	existing, err := sb.contentUnsafe(ctx, key)
	if err != nil {
		return 0, err
	}

	writeEnd := offset + int64(len(dat))
	newSize := max(writeEnd, int64(len(existing)))

	buffer := make([]byte, newSize)
	copy(buffer, existing)
	copy(buffer[offset:], dat)

	if err := sb.putUnsafe(ctx, key, buffer); err != nil {
		return 0, err
	}

	return len(dat), nil
}

func (sb *S3Backend) DeleteObject(ctx context.Context, key string, force bool) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if key == "" {
		return data.ErrPermission
	}

	stat, err := sb.headUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if !stat.IsDir() {
		return sb.client.RemoveObject(ctx, sb.config.Bucket, sb.buildKey(key), minio.RemoveObjectOptions{})
	}

	prefix := sb.buildDirKey(key)
	if !force {
		empty, err := sb.isEmptyUnsafe(ctx, prefix)
		if err != nil {
			return err
		}
		if !empty {
			return data.ErrDirectoryNotEmpty
		}
	}

	objectsCh := sb.client.ListObjects(ctx, sb.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	// Collect objects to delete, the marker itself is part of the listing
	var keysToDelete []string
	for object := range objectsCh {
		if object.Err != nil {
			return object.Err
		}
		keysToDelete = append(keysToDelete, object.Key)
	}

	errs := data.Errors{}
	for _, objectKey := range keysToDelete {
		if err := sb.client.RemoveObject(ctx, sb.config.Bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
			errs.Add(err)
		}
	}

	return errs.Errors()
}

func (sb *S3Backend) ListObjects(ctx context.Context, key string) ([]*backend.ObjectStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if key != "" {
		stat, err := sb.headUnsafe(ctx, key)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	prefix := sb.buildDirKey(key)

	// Non-recursive listing returns files and common prefixes of subdirectories
	objectsCh := sb.client.ListObjects(ctx, sb.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	})

	stats := make([]*backend.ObjectStat, 0)
	for object := range objectsCh {
		if object.Err != nil {
			return nil, object.Err
		}

		// Skip the directory marker itself
		if object.Key == prefix {
			continue
		}

		rel := strings.TrimPrefix(object.Key, sb.prefix)
		stats = append(stats, sb.toObjectStat(rel, object))
	}

	return stats, nil
}

func (sb *S3Backend) HeadObject(ctx context.Context, key string) (*backend.ObjectStat, error) {
	if key == "" {
		return backend.RootStat(), nil
	}

	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.headUnsafe(ctx, key)
}

func (sb *S3Backend) TruncateObject(ctx context.Context, key string, size int64) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	existing, err := sb.contentUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if int64(len(existing)) == size {
		return nil // No changes needed
	}

	buffer := make([]byte, size)
	copy(buffer, existing)

	return sb.putUnsafe(ctx, key, buffer)
}

// Helper methods

// headUnsafe resolves key to a file, a directory marker or an implicit
// directory that only exists through objects beneath it.
func (sb *S3Backend) headUnsafe(ctx context.Context, key string) (*backend.ObjectStat, error) {
	if key == "" {
		return backend.RootStat(), nil
	}

	objInfo, err := sb.client.StatObject(ctx, sb.config.Bucket, sb.buildKey(key), minio.StatObjectOptions{})
	if err == nil {
		return sb.toObjectStat(key, objInfo), nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	prefix := sb.buildDirKey(key)
	objInfo, err = sb.client.StatObject(ctx, sb.config.Bucket, prefix, minio.StatObjectOptions{})
	if err == nil {
		return sb.toObjectStat(key+"/", objInfo), nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	empty, err := sb.isEmptyUnsafe(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if !empty {
		return &backend.ObjectStat{
			Key:  key,
			Type: data.FileTypeDirectory,
		}, nil
	}

	return nil, data.ErrNotExist
}

// isEmptyUnsafe reports whether no object other than the marker lives
// below prefix.
func (sb *S3Backend) isEmptyUnsafe(ctx context.Context, prefix string) (bool, error) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectsCh := sb.client.ListObjects(listCtx, sb.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
		MaxKeys:   2,
	})

	for object := range objectsCh {
		if object.Err != nil {
			return false, object.Err
		}
		if object.Key != prefix {
			return false, nil
		}
	}

	return true, nil
}

func (sb *S3Backend) contentUnsafe(ctx context.Context, key string) ([]byte, error) {
	stat, err := sb.headUnsafe(ctx, key)
	if err != nil {
		return nil, err
	}

	if stat.IsDir() {
		return nil, data.ErrIsDirectory
	}

	if stat.Size == 0 {
		return nil, nil
	}

	object, err := sb.client.GetObject(ctx, sb.config.Bucket, sb.buildKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	return io.ReadAll(object)
}

func (sb *S3Backend) putUnsafe(ctx context.Context, key string, content []byte) error {
	_, err := sb.client.PutObject(ctx, sb.config.Bucket, sb.buildKey(key), bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{})
	return err
}

// toObjectStat converts minio.ObjectInfo; keys ending in "/" are directories
func (sb *S3Backend) toObjectStat(key string, objInfo minio.ObjectInfo) *backend.ObjectStat {
	isDir := strings.HasSuffix(key, "/") || objInfo.ContentType == directoryContentType
	if isDir {
		return &backend.ObjectStat{
			Key:        strings.TrimSuffix(key, "/"),
			Type:       data.FileTypeDirectory,
			ModifyTime: objInfo.LastModified,
		}
	}

	return &backend.ObjectStat{
		Key:        key,
		Type:       data.FileTypeFile,
		Size:       objInfo.Size,
		ETag:       objInfo.ETag,
		ModifyTime: objInfo.LastModified,
	}
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
