package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/data"
)

const selectStat = `SELECT key, is_dir, size, create_time, modify_time, access_time FROM vfs_objects`

func (sb *SQLiteBackend) CreateObject(ctx context.Context, key string, fileType data.FileType) (*backend.ObjectStat, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if key == "" {
		return nil, data.ErrExist
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := sb.headTx(ctx, tx, key); err == nil {
		return nil, data.ErrExist
	} else if !errors.Is(err, data.ErrNotExist) {
		return nil, err
	}

	parentKey := data.ParentPath(key)
	if parentKey != "" {
		parent, err := sb.headTx(ctx, tx, parentKey)
		if err != nil {
			return nil, err
		}
		if !parent.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vfs_objects (namespace, key, parent, is_dir, size, content, create_time, modify_time, access_time)
		VALUES (?, ?, ?, ?, 0, NULL, ?, ?, ?)
	`, sb.namespace, key, parentKey, fileType.IsDir(), now.Unix(), now.Unix(), now.Unix())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &backend.ObjectStat{
		Key:        key,
		Type:       fileType,
		CreateTime: now,
		ModifyTime: now,
		AccessTime: now,
	}, nil
}

func (sb *SQLiteBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	var isDir bool
	var content []byte
	err := sb.db.QueryRowContext(ctx,
		"SELECT is_dir, content FROM vfs_objects WHERE namespace = ? AND key = ?",
		sb.namespace, key).Scan(&isDir, &content)
	if err == sql.ErrNoRows {
		return 0, data.ErrNotExist
	}
	if err != nil {
		return 0, err
	}

	if isDir {
		return 0, data.ErrIsDirectory
	}

	if offset >= int64(len(content)) {
		return 0, io.EOF
	}

	n := copy(buf, content[offset:])
	return n, nil
}

func (sb *SQLiteBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	content, err := sb.contentTx(ctx, tx, key)
	if err != nil {
		return 0, err
	}

	writeEnd := offset + int64(len(buf))
	if int64(len(content)) < writeEnd {
		expanded := make([]byte, writeEnd)
		copy(expanded, content)
		content = expanded
	}

	copy(content[offset:], buf)

	if err := sb.storeTx(ctx, tx, key, content); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return len(buf), nil
}

func (sb *SQLiteBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if key == "" {
		return data.ErrPermission
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stat, err := sb.headTx(ctx, tx, key)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		prefix := key + data.PathSeparator

		if !force {
			var children int
			err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM vfs_objects WHERE namespace = ? AND parent = ?",
				sb.namespace, key).Scan(&children)
			if err != nil {
				return err
			}
			if children > 0 {
				return data.ErrDirectoryNotEmpty
			}
		}

		_, err = tx.ExecContext(ctx,
			"DELETE FROM vfs_objects WHERE namespace = ? AND substr(key, 1, length(?)) = ?",
			sb.namespace, prefix, prefix)
		if err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM vfs_objects WHERE namespace = ? AND key = ?",
		sb.namespace, key); err != nil {
		return err
	}

	return tx.Commit()
}

func (sb *SQLiteBackend) ListObjects(ctx context.Context, key string) ([]*backend.ObjectStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Root directory is implicit
	if key != "" {
		stat, err := sb.headTx(ctx, tx, key)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	rows, err := tx.QueryContext(ctx,
		selectStat+" WHERE namespace = ? AND parent = ? ORDER BY key",
		sb.namespace, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*backend.ObjectStat, 0)
	for rows.Next() {
		stat, err := scanStat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, stat)
	}

	return result, rows.Err()
}

func (sb *SQLiteBackend) HeadObject(ctx context.Context, key string) (*backend.ObjectStat, error) {
	if key == "" {
		return backend.RootStat(), nil
	}

	sb.mu.RLock()
	defer sb.mu.RUnlock()

	row := sb.db.QueryRowContext(ctx,
		selectStat+" WHERE namespace = ? AND key = ?",
		sb.namespace, key)
	return scanStat(row)
}

func (sb *SQLiteBackend) TruncateObject(ctx context.Context, key string, size int64) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	content, err := sb.contentTx(ctx, tx, key)
	if err != nil {
		return err
	}

	if size == int64(len(content)) {
		return nil // No changes needed
	}

	if size < int64(len(content)) {
		content = content[:size]
	} else {
		expanded := make([]byte, size)
		copy(expanded, content)
		content = expanded
	}

	if err := sb.storeTx(ctx, tx, key, content); err != nil {
		return err
	}

	return tx.Commit()
}

// Helper methods

type scanner interface {
	Scan(dest ...any) error
}

func scanStat(row scanner) (*backend.ObjectStat, error) {
	var stat backend.ObjectStat
	var isDir bool
	var createTime, modifyTime, accessTime int64

	err := row.Scan(&stat.Key, &isDir, &stat.Size, &createTime, &modifyTime, &accessTime)
	if err == sql.ErrNoRows {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	stat.Type = data.FileTypeFile
	if isDir {
		stat.Type = data.FileTypeDirectory
		stat.Size = 0
	}

	stat.CreateTime = time.Unix(createTime, 0)
	stat.ModifyTime = time.Unix(modifyTime, 0)
	stat.AccessTime = time.Unix(accessTime, 0)
	return &stat, nil
}

func (sb *SQLiteBackend) headTx(ctx context.Context, tx *sql.Tx, key string) (*backend.ObjectStat, error) {
	if key == "" {
		return backend.RootStat(), nil
	}

	row := tx.QueryRowContext(ctx,
		selectStat+" WHERE namespace = ? AND key = ?",
		sb.namespace, key)
	return scanStat(row)
}

// contentTx loads the content of the file at key.
func (sb *SQLiteBackend) contentTx(ctx context.Context, tx *sql.Tx, key string) ([]byte, error) {
	var isDir bool
	var content []byte

	err := tx.QueryRowContext(ctx,
		"SELECT is_dir, content FROM vfs_objects WHERE namespace = ? AND key = ?",
		sb.namespace, key).Scan(&isDir, &content)
	if err == sql.ErrNoRows {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	if isDir {
		return nil, data.ErrIsDirectory
	}

	return content, nil
}

func (sb *SQLiteBackend) storeTx(ctx context.Context, tx *sql.Tx, key string, content []byte) error {
	now := time.Now().Unix()
	_, err := tx.ExecContext(ctx, `
		UPDATE vfs_objects SET content = ?, size = ?, modify_time = ?, access_time = ?
		WHERE namespace = ? AND key = ?
	`, content, len(content), now, now, sb.namespace, key)
	return err
}
