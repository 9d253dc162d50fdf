package types

// Entry is a flattened (Path, Value) pair.
type Entry struct {
	Path  Path
	Value any
}

// Column is one table column: the path it stores and its kind.
type Column struct {
	Path Path
	Kind Kind
}

// Schema is the ordered column list encoded in a table's header rows.
type Schema []Column

// Paths returns the column paths in order.
func (s Schema) Paths() []Path {
	out := make([]Path, len(s))
	for i, c := range s {
		out[i] = c.Path
	}
	return out
}

// Index maps each path key to its 1-based column number.
func (s Schema) Index() map[string]int {
	idx := make(map[string]int, len(s))
	for i, c := range s {
		idx[c.Path.Key()] = i + 1
	}
	return idx
}

// Column returns the 1-based column for p, or 0 when p is not in the schema.
func (s Schema) Column(p Path) int {
	key := p.Key()
	for i, c := range s {
		if c.Path.Key() == key {
			return i + 1
		}
	}
	return 0
}

// Kind returns the kind of the column storing p, or KindScalar when absent.
func (s Schema) Kind(p Path) Kind {
	if col := s.Column(p); col > 0 {
		return s[col-1].Kind
	}
	return KindScalar
}
