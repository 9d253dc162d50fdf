package types

import (
	"strconv"
	"strings"
)

// MaxDepth is the deepest path the codec and header encoding support.
const MaxDepth = 9

// NullSegment fills unused header levels. It cannot be a path segment.
const NullSegment = "NULL"

// pathSeparator joins segments into a canonical key. Segments are free text
// from JSON keys and header cells, neither of which carries ASCII unit
// separators.
const pathSeparator = "\x1f"

// Path locates a value inside nested data as an ordered list of segments.
// Segments that parse as positive integers address 1-based array slots.
type Path []string

// Key returns the canonical string form used for lookups and ordering.
func (p Path) Key() string {
	return strings.Join(p, pathSeparator)
}

// String renders the path for messages, e.g. "system.id".
func (p Path) String() string {
	if len(p) == 0 {
		return "(root)"
	}
	return strings.Join(p, ".")
}

// Compare orders paths by their canonical keys.
func (p Path) Compare(q Path) int {
	return strings.Compare(p.Key(), q.Key())
}

// Child returns a new path with seg appended. The receiver is not modified.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Equal reports whether p and q have the same segments.
func (p Path) Equal(q Path) bool {
	return p.Key() == q.Key() && len(p) == len(q)
}

// PathFromKey splits a canonical key back into a Path.
func PathFromKey(key string) Path {
	if key == "" {
		return Path{}
	}
	return Path(strings.Split(key, pathSeparator))
}

// Index reports whether seg addresses an array slot and returns the 0-based
// index. Only canonical positive integers ("1", "12", not "01" or "0") qualify.
func Index(seg string) (int, bool) {
	n, err := strconv.Atoi(seg)
	if err != nil || n < 1 || strconv.Itoa(n) != seg {
		return 0, false
	}
	return n - 1, true
}

// Reserved paths stamped by the upsert engine.
var (
	IDPath        = Path{"system", "id"}
	CreatedAtPath = Path{"system", "created_at"}
	UpdatedAtPath = Path{"system", "updated_at"}
)
