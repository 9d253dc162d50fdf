// Package xlsx stores a workbook as a single .xlsx file, one sheet per
// table. Tables live in memory while attached and the file is rewritten
// according to the sync strategy. Header rows are kept as frozen panes so
// they stay pinned when the file is opened in a spreadsheet application.
package xlsx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/sheetform/internal/memory"
	"github.com/mesh-intelligence/sheetform/internal/paths"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// CacheSheet is the hidden sheet holding the compile cache. It cannot be
// used as a table name.
const CacheSheet = "_cache"

// Backend implements types.Workbook and types.Cache on an .xlsx file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	path     string
	grids    map[string]*memory.Grid
	order    []string
	cache    *memory.Cache
	now      func() time.Time
	logger   *slog.Logger

	syncStrategy  string
	batchSize     int
	batchInterval time.Duration
	batchTimer    *time.Timer

	// dirtyMu guards the write counter bumped by grid hooks.
	dirtyMu sync.Mutex
	writes  int
}

// NewBackend returns a detached backend.
func NewBackend() *Backend {
	return &Backend{now: time.Now, logger: slog.Default()}
}

// Path returns the workbook file of the current attachment.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Attach validates config and loads the workbook file when it exists.
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
	path := config.WorkbookFile
	if path == "" {
		path = paths.WorkbookFile(dataDir)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b.path = path
	b.grids = make(map[string]*memory.Grid)
	b.order = nil
	b.cache = memory.NewCacheWithClock(b.now)
	b.writes = 0

	if err := b.load(); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	b.syncStrategy = config.GetSyncStrategy()
	b.batchSize = config.GetBatchSize()
	b.batchInterval = config.GetBatchInterval()
	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}
	return nil
}

// Detach writes pending changes and releases the tables. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.stopBatchTimer()
	if err := b.flushLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}
	b.attached = false
	b.grids = nil
	b.order = nil
	return nil
}

// Table returns the named table.
func (b *Backend) Table(name string) (types.Grid, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrWorkbookDetached
	}
	g, ok := b.grids[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrTableNotFound, name)
	}
	return &sheet{Grid: g, b: b}, nil
}

// CreateTable returns the named table, adding a sheet when missing. Sheet
// names are unique regardless of case, so a name that differs from an
// existing one only by case is rejected.
func (b *Backend) CreateTable(name string) (types.Grid, error) {
	if err := types.ValidateTableName(name); err != nil {
		return nil, err
	}
	if strings.EqualFold(name, CacheSheet) {
		return nil, fmt.Errorf("%w: %s is reserved", types.ErrInvalidTableName, name)
	}

	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return nil, types.ErrWorkbookDetached
	}
	if g, ok := b.grids[name]; ok {
		b.mu.Unlock()
		return &sheet{Grid: g, b: b}, nil
	}
	for _, existing := range b.order {
		if strings.EqualFold(existing, name) {
			b.mu.Unlock()
			return nil, fmt.Errorf("%w: %s collides with %s", types.ErrInvalidTableName, name, existing)
		}
	}
	g := b.addGridLocked(name)
	b.mu.Unlock()

	b.markDirty(name)
	return &sheet{Grid: g, b: b}, b.afterWrite()
}

func (b *Backend) addGridLocked(name string) *memory.Grid {
	g := memory.NewGridWithHook(name, b.markDirty)
	b.grids[name] = g
	b.order = append(b.order, name)
	return g
}

// Tables lists table names in sheet order.
func (b *Backend) Tables() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrWorkbookDetached
	}
	return append([]string(nil), b.order...), nil
}

// Get implements types.Cache.
func (b *Backend) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return "", false, types.ErrWorkbookDetached
	}
	return b.cache.Get(key)
}

// Put implements types.Cache.
func (b *Backend) Put(key, value string, ttl time.Duration) error {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return types.ErrWorkbookDetached
	}
	err := b.cache.Put(key, value, ttl)
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	b.markDirty(CacheSheet)
	return b.afterWrite()
}

// markDirty counts a mutation. Grids call it after every write.
func (b *Backend) markDirty(string) {
	b.dirtyMu.Lock()
	b.writes++
	b.dirtyMu.Unlock()
}

func (b *Backend) pendingWrites() int {
	b.dirtyMu.Lock()
	defer b.dirtyMu.Unlock()
	return b.writes
}

// afterWrite saves the file when the sync strategy asks for it.
func (b *Backend) afterWrite() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil
	}
	switch b.syncStrategy {
	case types.SyncOnClose:
		return nil
	case types.SyncBatch:
		if b.pendingWrites() < b.batchSize {
			return nil
		}
	}
	return b.flushLocked()
}

// flushLocked saves the workbook when there are unsaved writes.
// The caller must hold b.mu.
func (b *Backend) flushLocked() error {
	b.dirtyMu.Lock()
	pending := b.writes
	b.dirtyMu.Unlock()
	if pending == 0 {
		return nil
	}
	if err := b.save(); err != nil {
		return err
	}
	b.dirtyMu.Lock()
	b.writes -= pending
	b.dirtyMu.Unlock()
	return nil
}

func (b *Backend) startBatchTimer() {
	if b.batchTimer != nil {
		return
	}
	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.attached {
			return
		}
		if err := b.flushLocked(); err != nil {
			b.logger.Warn("batch save failed", "path", b.path, "error", err)
		}
		if b.batchTimer != nil {
			b.batchTimer.Reset(b.batchInterval)
		}
	})
}

func (b *Backend) stopBatchTimer() {
	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}

// sheet wraps a memory grid so writes go through the sync strategy and
// every call fails once the backend is detached.
type sheet struct {
	*memory.Grid
	b *Backend
}

func (s *sheet) check() error {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	if !s.b.attached || s.b.grids[s.Name()] != s.Grid {
		return types.ErrWorkbookDetached
	}
	return nil
}

func (s *sheet) Get(row, col, height, width int) ([][]any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.Grid.Get(row, col, height, width)
}

func (s *sheet) Set(row, col int, values [][]any) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.Grid.Set(row, col, values); err != nil {
		return err
	}
	return s.b.afterWrite()
}

func (s *sheet) LastRow() (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.Grid.LastRow()
}

func (s *sheet) LastColumn() (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.Grid.LastColumn()
}

func (s *sheet) Clear() error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.Grid.Clear(); err != nil {
		return err
	}
	return s.b.afterWrite()
}

func (s *sheet) HeaderRows() (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.Grid.HeaderRows()
}

func (s *sheet) SetHeaderRows(n int) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.Grid.SetHeaderRows(n); err != nil {
		return err
	}
	return s.b.afterWrite()
}
