// Package sqlite implements the SQLite workbook backend. SQLite serves as
// the query engine while JSONL files in DataDir remain the source of truth:
// tables.jsonl registers every table, cells/<table_id>.jsonl holds one line
// per row, and cache.jsonl holds the compile cache.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Backend implements types.Workbook and types.Cache.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dataDir  string
	db       *sql.DB
	now      func() time.Time

	// Sync strategy state
	syncStrategy  string         // immediate, on_close or batch
	batchSize     int            // queued writes that trigger a flush
	batchInterval time.Duration  // time between batch flushes
	pendingWrites []pendingWrite // JSONL writes not yet persisted
	batchTimer    *time.Timer    // interval flush timer
	batchMu       sync.Mutex     // protects pendingWrites and batchTimer
}

// pendingWrite is a deferred JSONL rewrite. Writes with the same target are
// coalesced because persist always reads the current database state.
type pendingWrite struct {
	target  string
	persist func() error
}

// NewBackend creates a detached backend. Call Attach to use it.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach validates config, rebuilds the SQLite database from the JSONL
// files in DataDir and starts the batch timer when needed.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	b.dataDir = dataDir

	// The database is a cache of the JSONL files; start fresh every time.
	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	b.db = db
	b.config = config

	if err := b.initJSONLFiles(); err != nil {
		db.Close()
		return err
	}
	if err := b.loadAllJSONL(); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.syncStrategy = config.GetSyncStrategy()
	b.batchSize = config.GetBatchSize()
	b.batchInterval = config.GetBatchInterval()
	b.pendingWrites = nil
	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}
	return nil
}

// Detach flushes pending writes and closes the database. After Detach all
// operations return ErrWorkbookDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// Table returns the named table.
func (b *Backend) Table(name string) (types.Grid, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrWorkbookDetached
	}
	return b.lookupTable(name)
}

func (b *Backend) lookupTable(name string) (*sheet, error) {
	var id string
	err := b.db.QueryRow("SELECT table_id FROM tables WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrTableNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up table %s: %w", name, err)
	}
	return &sheet{b: b, id: id, name: name}, nil
}

// CreateTable returns the named table, registering it when missing.
func (b *Backend) CreateTable(name string) (types.Grid, error) {
	if err := types.ValidateTableName(name); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrWorkbookDetached
	}
	if s, err := b.lookupTable(name); err == nil {
		return s, nil
	} else if !errors.Is(err, types.ErrTableNotFound) {
		return nil, err
	}

	id := generateUUID()
	createdAt := b.now().UTC().Format(time.RFC3339)
	if _, err := b.db.Exec(
		"INSERT INTO tables (table_id, name, header_rows, created_at) VALUES (?, ?, 0, ?)",
		id, name, createdAt,
	); err != nil {
		return nil, fmt.Errorf("registering table %s: %w", name, err)
	}
	if err := b.persist(tablesFile, b.persistTablesJSONL); err != nil {
		return nil, err
	}
	s := &sheet{b: b, id: id, name: name}
	if err := b.persist(s.id, s.persistCellsJSONL); err != nil {
		return nil, err
	}
	return s, nil
}

// Tables lists table names in creation order.
func (b *Backend) Tables() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrWorkbookDetached
	}
	rows, err := b.db.Query("SELECT name FROM tables ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// generateUUID generates a UUID v7 for table IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// persistTablesJSONL rewrites tables.jsonl from the registry.
func (b *Backend) persistTablesJSONL() error {
	rows, err := b.db.Query("SELECT table_id, name, header_rows, created_at FROM tables ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("reading tables for JSONL: %w", err)
	}
	defer rows.Close()

	var records []tableJSON
	for rows.Next() {
		var t tableJSON
		if err := rows.Scan(&t.TableID, &t.Name, &t.HeaderRows, &t.CreatedAt); err != nil {
			return fmt.Errorf("scanning table for JSONL: %w", err)
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, tablesFile), records)
}

// Sync strategy methods

// persist runs fn now under the immediate strategy and queues it otherwise.
// The caller must hold b.mu.
func (b *Backend) persist(target string, fn func() error) error {
	if b.shouldPersistImmediately() {
		return fn()
	}
	b.queueWrite(target, fn)
	return nil
}

// shouldPersistImmediately returns true if JSONL writes should happen immediately.
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// queueWrite adds a write to the pending queue. For the batch strategy the
// queue is flushed once it holds batchSize distinct targets.
// The caller must hold b.mu.
func (b *Backend) queueWrite(target string, persist func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	for _, pw := range b.pendingWrites {
		if pw.target == target {
			return
		}
	}
	b.pendingWrites = append(b.pendingWrites, pendingWrite{target: target, persist: persist})

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		_ = b.flushPendingWritesBatchLocked()
	}
}

// flushPendingWritesLocked flushes all pending writes to JSONL files.
// The caller must hold b.mu.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked executes all pending writes. Failed writes
// stay queued for the next flush.
// The caller must hold b.batchMu.
func (b *Backend) flushPendingWritesBatchLocked() error {
	var failed []pendingWrite
	var errs []error
	for _, pw := range b.pendingWrites {
		if err := pw.persist(); err != nil {
			failed = append(failed, pw)
			errs = append(errs, fmt.Errorf("flush %s: %w", pw.target, err))
		}
	}
	b.pendingWrites = failed
	return errors.Join(errs...)
}

// startBatchTimer starts the batch interval timer for periodic flushes.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}
		_ = b.flushPendingWritesLocked()

		b.batchMu.Lock()
		if b.batchTimer != nil {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
