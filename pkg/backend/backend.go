// Package backend is the public entry point for opening a workbook. It
// hides the storage implementations behind types.Workbook.
package backend

import (
	"fmt"

	"github.com/mesh-intelligence/sheetform/internal/memory"
	"github.com/mesh-intelligence/sheetform/internal/sqlite"
	"github.com/mesh-intelligence/sheetform/internal/xlsx"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// New returns a detached workbook for the named backend.
//
// Example:
//
//	wb, err := backend.New(types.BackendSQLite)
//	if err != nil {
//	    return err
//	}
//	err = wb.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".sheetform",
//	})
//	defer wb.Detach()
func New(name string) (types.Workbook, error) {
	switch name {
	case "":
		return nil, types.ErrBackendEmpty
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendXLSX:
		return xlsx.NewBackend(), nil
	case types.BackendMemory:
		return memory.NewWorkbook(), nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrBackendUnknown, name)
}

// Open creates the backend named by config and attaches it.
func Open(config types.Config) (types.Workbook, error) {
	wb, err := New(config.Backend)
	if err != nil {
		return nil, err
	}
	if err := wb.Attach(config); err != nil {
		return nil, err
	}
	return wb, nil
}

// CacheOf returns the compile cache wb provides, or nil when it has none.
func CacheOf(wb types.Workbook) types.Cache {
	c, _ := wb.(types.Cache)
	return c
}
