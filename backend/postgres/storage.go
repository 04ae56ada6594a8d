package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/data"
)

const selectStat = `SELECT key, is_dir, size, create_time, modify_time, access_time FROM vfs_objects`

func (pb *PostgresBackend) CreateObject(ctx context.Context, key string, fileType data.FileType) (*backend.ObjectStat, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if key == "" {
		return nil, data.ErrExist
	}

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	parentKey := data.ParentPath(key)
	if parentKey != "" {
		parent, err := pb.headTx(ctx, tx, parentKey)
		if err != nil {
			return nil, err
		}
		if !parent.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	now := time.Now()
	tag, err := tx.Exec(ctx, `
		INSERT INTO vfs_objects (namespace, key, parent, is_dir, size, content, create_time, modify_time, access_time)
		VALUES ($1, $2, $3, $4, 0, NULL, $5, $5, $5)
		ON CONFLICT (namespace, key) DO NOTHING
	`, pb.namespace, key, parentKey, fileType.IsDir(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert object: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return nil, data.ErrExist
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &backend.ObjectStat{
		Key:        key,
		Type:       fileType,
		CreateTime: now,
		ModifyTime: now,
		AccessTime: now,
	}, nil
}

func (pb *PostgresBackend) ReadObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	content, err := pb.contentTx(ctx, pb.pool, key)
	if err != nil {
		return 0, err
	}

	if offset >= int64(len(content)) {
		return 0, io.EOF
	}

	n := copy(dat, content[offset:])
	return n, nil
}

func (pb *PostgresBackend) WriteObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	content, err := pb.contentTx(ctx, tx, key)
	if err != nil {
		return 0, err
	}

	writeEnd := offset + int64(len(dat))
	if int64(len(content)) < writeEnd {
		expanded := make([]byte, writeEnd)
		copy(expanded, content)
		content = expanded
	}

	copy(content[offset:], dat)

	if err := pb.storeTx(ctx, tx, key, content); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(dat), nil
}

func (pb *PostgresBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if key == "" {
		return data.ErrPermission
	}

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stat, err := pb.headTx(ctx, tx, key)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		prefix := key + data.PathSeparator

		if !force {
			var children int64
			err := tx.QueryRow(ctx,
				"SELECT COUNT(*) FROM vfs_objects WHERE namespace = $1 AND parent = $2",
				pb.namespace, key).Scan(&children)
			if err != nil {
				return err
			}
			if children > 0 {
				return data.ErrDirectoryNotEmpty
			}
		}

		if _, err := tx.Exec(ctx,
			"DELETE FROM vfs_objects WHERE namespace = $1 AND left(key, char_length($2)) = $2",
			pb.namespace, prefix); err != nil {
			return fmt.Errorf("failed to delete children: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM vfs_objects WHERE namespace = $1 AND key = $2",
		pb.namespace, key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return tx.Commit(ctx)
}

func (pb *PostgresBackend) ListObjects(ctx context.Context, key string) ([]*backend.ObjectStat, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	// Root directory is implicit
	if key != "" {
		stat, err := pb.headTx(ctx, pb.pool, key)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			return nil, data.ErrNotDirectory
		}
	}

	rows, err := pb.pool.Query(ctx,
		selectStat+" WHERE namespace = $1 AND parent = $2 ORDER BY key",
		pb.namespace, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
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

func (pb *PostgresBackend) HeadObject(ctx context.Context, key string) (*backend.ObjectStat, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	return pb.headTx(ctx, pb.pool, key)
}

func (pb *PostgresBackend) TruncateObject(ctx context.Context, key string, size int64) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	content, err := pb.contentTx(ctx, tx, key)
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

	if err := pb.storeTx(ctx, tx, key, content); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Helper methods

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanStat(row pgx.Row) (*backend.ObjectStat, error) {
	var stat backend.ObjectStat
	var isDir bool
	var createTime, modifyTime, accessTime int64

	err := row.Scan(&stat.Key, &isDir, &stat.Size, &createTime, &modifyTime, &accessTime)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (pb *PostgresBackend) headTx(ctx context.Context, q querier, key string) (*backend.ObjectStat, error) {
	if key == "" {
		return backend.RootStat(), nil
	}

	row := q.QueryRow(ctx,
		selectStat+" WHERE namespace = $1 AND key = $2",
		pb.namespace, key)
	return scanStat(row)
}

func (pb *PostgresBackend) contentTx(ctx context.Context, q querier, key string) ([]byte, error) {
	var isDir bool
	var content []byte

	err := q.QueryRow(ctx,
		"SELECT is_dir, content FROM vfs_objects WHERE namespace = $1 AND key = $2",
		pb.namespace, key).Scan(&isDir, &content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query data: %w", err)
	}

	if isDir {
		return nil, data.ErrIsDirectory
	}

	return content, nil
}

func (pb *PostgresBackend) storeTx(ctx context.Context, tx pgx.Tx, key string, content []byte) error {
	now := time.Now().Unix()
	_, err := tx.Exec(ctx, `
		UPDATE vfs_objects SET content = $1, size = $2, modify_time = $3, access_time = $3
		WHERE namespace = $4 AND key = $5
	`, content, int64(len(content)), now, pb.namespace, key)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}
