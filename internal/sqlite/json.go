package sqlite

// JSON record structures that mirror the files in DataDir.

// tableJSON is one line of tables.jsonl.
type tableJSON struct {
	TableID    string `json:"table_id"`
	Name       string `json:"name"`
	HeaderRows int    `json:"header_rows"`
	CreatedAt  string `json:"created_at"`
}

// rowJSON is one line of cells/<table_id>.jsonl. Values[i] is column i+1;
// blank cells are null.
type rowJSON struct {
	Row    int   `json:"row"`
	Values []any `json:"values"`
}

// cacheJSON is one line of cache.jsonl. ExpiresAt is empty for entries
// that never expire.
type cacheJSON struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	ExpiresAt string `json:"expires_at,omitempty"`
}
