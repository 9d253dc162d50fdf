package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// sheet implements types.Grid for one registered table.
type sheet struct {
	b    *Backend
	id   string
	name string
}

// Name returns the table name.
func (s *sheet) Name() string { return s.name }

func checkRange(row, col, height, width int) error {
	if row < 1 || col < 1 || height < 0 || width < 0 {
		return fmt.Errorf("%w: row=%d col=%d height=%d width=%d", types.ErrInvalidRange, row, col, height, width)
	}
	return nil
}

// encodeCell stores a value as JSON so numbers and booleans keep their type.
func encodeCell(v any) (string, error) {
	switch x := v.(type) {
	case types.List:
		v = string(x)
	case types.Existence:
		v = int(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding cell: %w", err)
	}
	return string(data), nil
}

func decodeCell(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	if v == nil {
		return ""
	}
	return v
}

// Get returns a height x width block starting at (row, col).
func (s *sheet) Get(row, col, height, width int) ([][]any, error) {
	if err := checkRange(row, col, height, width); err != nil {
		return nil, err
	}
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	if !s.b.attached {
		return nil, types.ErrWorkbookDetached
	}

	out := make([][]any, height)
	for r := range out {
		out[r] = make([]any, width)
		for c := range out[r] {
			out[r][c] = ""
		}
	}
	if height == 0 || width == 0 {
		return out, nil
	}

	rows, err := s.b.db.Query(
		`SELECT row_num, col_num, value FROM cells
		 WHERE table_id = ? AND row_num BETWEEN ? AND ? AND col_num BETWEEN ? AND ?`,
		s.id, row, row+height-1, col, col+width-1,
	)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var r, c int
		var value string
		if err := rows.Scan(&r, &c, &value); err != nil {
			return nil, err
		}
		out[r-row][c-col] = decodeCell(value)
	}
	return out, rows.Err()
}

// Set writes values with the top-left corner at (row, col) in a single
// transaction. Blank values delete their cells.
func (s *sheet) Set(row, col int, values [][]any) error {
	if err := checkRange(row, col, len(values), 0); err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if !s.b.attached {
		return types.ErrWorkbookDetached
	}

	tx, err := s.b.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert, err := tx.Prepare(`INSERT INTO cells (table_id, row_num, col_num, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (table_id, row_num, col_num) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return err
	}
	defer upsert.Close()
	del, err := tx.Prepare("DELETE FROM cells WHERE table_id = ? AND row_num = ? AND col_num = ?")
	if err != nil {
		return err
	}
	defer del.Close()

	for r, line := range values {
		for c, v := range line {
			if types.IsBlank(v) {
				if _, err := del.Exec(s.id, row+r, col+c); err != nil {
					return err
				}
				continue
			}
			enc, err := encodeCell(v)
			if err != nil {
				return err
			}
			if _, err := upsert.Exec(s.id, row+r, col+c, enc); err != nil {
				return fmt.Errorf("writing %s: %w", s.name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return s.b.persist(s.id, s.persistCellsJSONL)
}

func (s *sheet) maxOf(column string) (int, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	if !s.b.attached {
		return 0, types.ErrWorkbookDetached
	}
	var n sql.NullInt64
	err := s.b.db.QueryRow("SELECT MAX("+column+") FROM cells WHERE table_id = ?", s.id).Scan(&n)
	if err != nil {
		return 0, err
	}
	return int(n.Int64), nil
}

// LastRow returns the last row with a non-blank cell.
func (s *sheet) LastRow() (int, error) { return s.maxOf("row_num") }

// LastColumn returns the last column with a non-blank cell.
func (s *sheet) LastColumn() (int, error) { return s.maxOf("col_num") }

// Clear deletes every cell of the table.
func (s *sheet) Clear() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if !s.b.attached {
		return types.ErrWorkbookDetached
	}
	if _, err := s.b.db.Exec("DELETE FROM cells WHERE table_id = ?", s.id); err != nil {
		return fmt.Errorf("clearing %s: %w", s.name, err)
	}
	return s.b.persist(s.id, s.persistCellsJSONL)
}

// HeaderRows returns the stored header row count.
func (s *sheet) HeaderRows() (int, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	if !s.b.attached {
		return 0, types.ErrWorkbookDetached
	}
	var n int
	if err := s.b.db.QueryRow("SELECT header_rows FROM tables WHERE table_id = ?", s.id).Scan(&n); err != nil {
		return 0, fmt.Errorf("reading header rows of %s: %w", s.name, err)
	}
	return n, nil
}

// SetHeaderRows records the header row count in the registry.
func (s *sheet) SetHeaderRows(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: header rows %d", types.ErrInvalidRange, n)
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if !s.b.attached {
		return types.ErrWorkbookDetached
	}
	if _, err := s.b.db.Exec("UPDATE tables SET header_rows = ? WHERE table_id = ?", n, s.id); err != nil {
		return fmt.Errorf("setting header rows of %s: %w", s.name, err)
	}
	return s.b.persist(tablesFile, s.b.persistTablesJSONL)
}

// persistCellsJSONL rewrites cells/<table_id>.jsonl with one line per
// non-empty row.
func (s *sheet) persistCellsJSONL() error {
	rows, err := s.b.db.Query(
		"SELECT row_num, col_num, value FROM cells WHERE table_id = ? ORDER BY row_num, col_num", s.id)
	if err != nil {
		return fmt.Errorf("reading cells for JSONL: %w", err)
	}
	defer rows.Close()

	var records []rowJSON
	for rows.Next() {
		var r, c int
		var value string
		if err := rows.Scan(&r, &c, &value); err != nil {
			return fmt.Errorf("scanning cell for JSONL: %w", err)
		}
		if len(records) == 0 || records[len(records)-1].Row != r {
			records = append(records, rowJSON{Row: r})
		}
		cur := &records[len(records)-1]
		for len(cur.Values) < c {
			cur.Values = append(cur.Values, nil)
		}
		cur.Values[c-1] = decodeCell(value)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(cellsPath(s.b.dataDir, s.id), records)
}
