package types

import "time"

// Grid provides rectangular cell access for a single named table.
// Rows and columns are 1-based. A blank cell reads as "". Writing "" or nil
// blanks a cell.
type Grid interface {
	// Name returns the table name.
	Name() string

	// Get returns a height x width block of cells whose top-left corner is
	// (row, col). Cells past the used extent read as "".
	Get(row, col, height, width int) ([][]any, error)

	// Set writes values with the top-left corner at (row, col). Rows may have
	// different lengths.
	Set(row, col int, values [][]any) error

	// LastRow returns the last row holding a non-blank cell, or 0.
	LastRow() (int, error)

	// LastColumn returns the last column holding a non-blank cell, or 0.
	LastColumn() (int, error)

	// Clear blanks every cell. The header row count is left unchanged.
	Clear() error

	// HeaderRows returns how many leading rows are marked as header.
	HeaderRows() (int, error)

	// SetHeaderRows marks the first n rows as header.
	SetHeaderRows(n int) error
}

// Workbook is a named collection of Grids behind a storage backend.
// Callers attach to a backend, access tables by name, and detach when done.
type Workbook interface {
	// Attach connects the Workbook to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach flushes pending writes and releases backend resources.
	// Idempotent: multiple calls succeed.
	Detach() error

	// Table returns the Grid for an existing table.
	// Returns ErrTableNotFound if no table has that name.
	Table(name string) (Grid, error)

	// CreateTable returns the named table, creating it when missing.
	CreateTable(name string) (Grid, error)

	// Tables lists table names in creation order.
	Tables() ([]string, error)
}

// Cache is a string cache with per-entry expiry. Backends that can hold a
// cache implement it alongside Workbook.
type Cache interface {
	// Get returns the cached value and true, or false when the key is
	// missing or expired.
	Get(key string) (string, bool, error)

	// Put stores value under key for ttl. A ttl <= 0 stores without expiry.
	Put(key, value string, ttl time.Duration) error
}

// Standard table names.
const (
	// RecordsTable holds upserted answers keyed by the identity path.
	RecordsTable = "records"

	// StructureTable holds a declaration grid (L1..L9 cells, no header row).
	StructureTable = "structure"
)
