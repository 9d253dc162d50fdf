package sqlite

// Schema DDL. The tables registry names every sheet; cells holds one row per
// non-blank cell with its value JSON-encoded.
const (
	createTables = `CREATE TABLE tables (
    table_id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    header_rows INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);`

	createCells = `CREATE TABLE cells (
    table_id TEXT NOT NULL,
    row_num INTEGER NOT NULL,
    col_num INTEGER NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (table_id, row_num, col_num)
);`

	createCache = `CREATE TABLE cache (
    cache_key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    expires_at TEXT
);`
)

// Index DDL for range scans.
const (
	idxCellsTableRow = `CREATE INDEX idx_cells_table_row ON cells(table_id, row_num);`
	idxCellsTableCol = `CREATE INDEX idx_cells_table_col ON cells(table_id, col_num);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createTables,
	createCells,
	createCache,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxCellsTableRow,
	idxCellsTableCol,
}
