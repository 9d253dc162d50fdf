package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Get returns the cached value for key. Expired entries are removed.
func (b *Backend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", false, types.ErrWorkbookDetached
	}

	var value string
	var expires sql.NullString
	err := b.db.QueryRow("SELECT value, expires_at FROM cache WHERE cache_key = ?", key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cache: %w", err)
	}
	if expires.Valid {
		t, err := time.Parse(time.RFC3339Nano, expires.String)
		if err != nil || !b.now().Before(t) {
			if _, err := b.db.Exec("DELETE FROM cache WHERE cache_key = ?", key); err != nil {
				return "", false, fmt.Errorf("evicting cache entry: %w", err)
			}
			return "", false, b.persist(cacheFile, b.persistCacheJSONL)
		}
	}
	return value, true, nil
}

// Put stores value under key. A ttl <= 0 stores without expiry.
func (b *Backend) Put(key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrWorkbookDetached
	}

	var expires any
	if ttl > 0 {
		expires = b.now().Add(ttl).UTC().Format(time.RFC3339Nano)
	}
	if _, err := b.db.Exec(
		`INSERT INTO cache (cache_key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expires,
	); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return b.persist(cacheFile, b.persistCacheJSONL)
}

// persistCacheJSONL rewrites cache.jsonl.
func (b *Backend) persistCacheJSONL() error {
	rows, err := b.db.Query("SELECT cache_key, value, expires_at FROM cache ORDER BY cache_key")
	if err != nil {
		return fmt.Errorf("reading cache for JSONL: %w", err)
	}
	defer rows.Close()

	var records []cacheJSON
	for rows.Next() {
		var c cacheJSON
		var expires sql.NullString
		if err := rows.Scan(&c.Key, &c.Value, &expires); err != nil {
			return fmt.Errorf("scanning cache for JSONL: %w", err)
		}
		c.ExpiresAt = expires.String
		records = append(records, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, cacheFile), records)
}
