package types

import "strings"

// Kind is the inferred storage category of a column.
type Kind string

// Column kinds.
const (
	KindScalar    Kind = "SCALAR"
	KindList      Kind = "LIST"
	KindExistence Kind = "EXISTENCE"
)

// legacyExistence is the spelling older header blocks used for EXISTENCE.
const legacyExistence = "EXISTENSE"

// ParseKind reads a header kind tag. Unknown or blank tags read as
// KindScalar, matching how headers without a kind row are treated.
func ParseKind(s string) Kind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindList):
		return KindList
	case string(KindExistence), legacyExistence:
		return KindExistence
	default:
		return KindScalar
	}
}

// Existence marks that an object existed at a path. Its cell form is the
// number 1.
type Existence int

// Marker is the existence marker emitted by the flattener.
const Marker Existence = 1

// List is a list serialized as a JSON array string. It is emitted by the
// flattener and written to cells as a plain string.
type List string

// LooksLikeList reports whether s has the shape of a serialized list.
// This is the heuristic applied to values read back from a table, where the
// List type has been lost.
func LooksLikeList(s string) bool {
	return len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']'
}

// InferKind classifies a single flattened value. It returns false for values
// that carry no kind signal (plain scalars).
func InferKind(v any) (Kind, bool) {
	switch x := v.(type) {
	case List:
		return KindList, true
	case string:
		if LooksLikeList(x) {
			return KindList, true
		}
	case Existence:
		return KindExistence, true
	}
	return KindScalar, false
}
