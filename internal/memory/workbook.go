package memory

import (
	"sync"
	"time"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Workbook keeps every table in memory. It also serves as the compile cache.
type Workbook struct {
	mu       sync.RWMutex
	attached bool
	grids    map[string]*Grid
	order    []string
	cache    *Cache
}

// NewWorkbook returns a detached in-memory workbook.
func NewWorkbook() *Workbook {
	return &Workbook{grids: make(map[string]*Grid)}
}

// Attach validates config and makes the workbook usable. Tables created in
// an earlier attachment are kept.
func (w *Workbook) Attach(config types.Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if w.cache == nil {
		w.cache = NewCache()
	}
	w.attached = true
	return nil
}

// Detach marks the workbook detached. Idempotent.
func (w *Workbook) Detach() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attached = false
	return nil
}

// Table returns an existing table.
func (w *Workbook) Table(name string) (types.Grid, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.attached {
		return nil, types.ErrWorkbookDetached
	}
	g, ok := w.grids[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return g, nil
}

// CreateTable returns the named table, creating it when missing.
func (w *Workbook) CreateTable(name string) (types.Grid, error) {
	if err := types.ValidateTableName(name); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.attached {
		return nil, types.ErrWorkbookDetached
	}
	if g, ok := w.grids[name]; ok {
		return g, nil
	}
	g := NewGrid(name)
	w.grids[name] = g
	w.order = append(w.order, name)
	return g, nil
}

// Tables lists table names in creation order.
func (w *Workbook) Tables() ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.attached {
		return nil, types.ErrWorkbookDetached
	}
	return append([]string(nil), w.order...), nil
}

// Get implements types.Cache.
func (w *Workbook) Get(key string) (string, bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.attached {
		return "", false, types.ErrWorkbookDetached
	}
	return w.cache.Get(key)
}

// Put implements types.Cache.
func (w *Workbook) Put(key, value string, ttl time.Duration) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.attached {
		return types.ErrWorkbookDetached
	}
	return w.cache.Put(key, value, ttl)
}
