package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// initJSONLFiles creates the registry, cache file and cells directory when
// they do not exist yet.
func (b *Backend) initJSONLFiles() error {
	if err := os.MkdirAll(filepath.Join(b.dataDir, cellsDir), 0o755); err != nil {
		return err
	}
	for _, name := range []string{tablesFile, cacheFile} {
		if err := touch(filepath.Join(b.dataDir, name)); err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
	}
	return nil
}

// loadAllJSONL reads the registry, every table's cells and the cache into
// SQLite in one transaction. Malformed lines and records that violate
// constraints are skipped. Expired cache entries are dropped.
func (b *Backend) loadAllJSONL() error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	records, err := readJSONL(filepath.Join(b.dataDir, tablesFile))
	if err != nil {
		return err
	}
	var ids []string
	for _, rec := range records {
		var t tableJSON
		if json.Unmarshal(rec, &t) != nil || t.TableID == "" || t.Name == "" {
			continue
		}
		if _, err := tx.Exec(
			"INSERT INTO tables (table_id, name, header_rows, created_at) VALUES (?, ?, ?, ?)",
			t.TableID, t.Name, t.HeaderRows, t.CreatedAt,
		); err != nil {
			continue
		}
		ids = append(ids, t.TableID)
	}

	for _, id := range ids {
		if err := loadCells(tx, id, cellsPath(b.dataDir, id)); err != nil {
			return err
		}
	}

	if err := b.loadCache(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

func loadCells(tx *sql.Tx, tableID, path string) error {
	records, err := readJSONL(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO cells (table_id, row_num, col_num, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing cell insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var r rowJSON
		if json.Unmarshal(rec, &r) != nil || r.Row < 1 {
			continue
		}
		for i, v := range r.Values {
			if v == nil || v == "" {
				continue
			}
			enc, err := encodeCell(v)
			if err != nil {
				continue
			}
			if _, err := stmt.Exec(tableID, r.Row, i+1, enc); err != nil {
				return fmt.Errorf("loading cells of %s: %w", tableID, err)
			}
		}
	}
	return nil
}

func (b *Backend) loadCache(tx *sql.Tx) error {
	records, err := readJSONL(filepath.Join(b.dataDir, cacheFile))
	if err != nil {
		return err
	}
	now := b.now()
	for _, rec := range records {
		var c cacheJSON
		if json.Unmarshal(rec, &c) != nil || c.Key == "" {
			continue
		}
		var expires any
		if c.ExpiresAt != "" {
			t, err := time.Parse(time.RFC3339Nano, c.ExpiresAt)
			if err != nil || !now.Before(t) {
				continue
			}
			expires = c.ExpiresAt
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO cache (cache_key, value, expires_at) VALUES (?, ?, ?)",
			c.Key, c.Value, expires,
		); err != nil {
			return fmt.Errorf("loading cache: %w", err)
		}
	}
	return nil
}
