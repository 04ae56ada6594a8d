package sqlite

import (
	"context"
	"database/sql"
	"sync"

	"github.com/mwantia/mountfs/backend"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend stores objects in a single SQLite table. Several backends
// can share one database file by using different namespaces.
type SQLiteBackend struct {
	mu sync.RWMutex
	db *sql.DB

	namespace string
}

var _ backend.ObjectStorageBackend = (*SQLiteBackend)(nil)

// NewSQLiteBackend creates a new SQLite-backed object storage.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(dbPath, namespace string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Every connection to ":memory:" is its own database, and a single
	// writer avoids SQLITE_BUSY on files as well
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	backend := &SQLiteBackend{
		db:        db,
		namespace: namespace,
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return backend, nil
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vfs_objects (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		parent TEXT NOT NULL,
		is_dir INTEGER NOT NULL,
		size INTEGER NOT NULL DEFAULT 0 CHECK(size >= 0),
		content BLOB,
		create_time INTEGER NOT NULL,
		modify_time INTEGER NOT NULL,
		access_time INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	CREATE INDEX IF NOT EXISTS idx_vfs_objects_parent ON vfs_objects(namespace, parent);
	`

	_, err := sb.db.Exec(schema)
	return err
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called before the backend is used.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Verify database connection
	return sb.db.PingContext(ctx)
}

// Close is part of the lifecycle behaviour and gets called when the backend is released.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityNamespace,
			backend.CapabilityPersistent,
		},
	}
}
