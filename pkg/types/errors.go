package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every specific error below wraps exactly one class so callers
// can branch with errors.Is(err, ErrValidation) and friends.
var (
	ErrFormatViolation = errors.New("format violation")
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrStructural      = errors.New("structural error")
)

// Codec and upsert errors.
var (
	ErrListContainsObject     = fmt.Errorf("%w: lists may not contain objects", ErrFormatViolation)
	ErrReservedSegment        = fmt.Errorf("%w: keys may not be empty or %s", ErrFormatViolation, NullSegment)
	ErrPayloadNotObject       = fmt.Errorf("%w: payload must be an object", ErrFormatViolation)
	ErrPathMismatch           = fmt.Errorf("%w: path does not match existing structure", ErrFormatViolation)
	ErrTableNotFound          = fmt.Errorf("%w: table", ErrNotFound)
	ErrIdentityColumnNotFound = fmt.Errorf("%w: identity column", ErrNotFound)
	ErrRowNotFound            = fmt.Errorf("%w: row", ErrNotFound)
)

// Declaration errors.
var (
	ErrMalformedHeader    = fmt.Errorf("%w: declaration header must name L1 through L9", ErrFormatViolation)
	ErrInvalidType        = fmt.Errorf("%w: invalid type", ErrValidation)
	ErrInvalidPattern     = fmt.Errorf("%w: invalid pattern", ErrValidation)
	ErrMixedSelectors     = fmt.Errorf("%w: mixed selector kinds", ErrValidation)
	ErrNonSelectorSibling = fmt.Errorf("%w: non-selector sibling in selector group", ErrValidation)
	ErrDuplicateID        = fmt.Errorf("%w: duplicate node id", ErrValidation)
	ErrEmptyDeclaration   = fmt.Errorf("%w: declaration has no data rows", ErrStructural)
	ErrNoRootNode         = fmt.Errorf("%w: no parentless node", ErrStructural)
)

// Workbook lifecycle and configuration errors.
var (
	ErrWorkbookDetached    = errors.New("workbook is detached")
	ErrAlreadyAttached     = errors.New("workbook is already attached")
	ErrInvalidTableName    = errors.New("invalid table name")
	ErrInvalidRange        = errors.New("invalid cell range")
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
	ErrBatchSizeInvalid    = errors.New("batch size must be positive")
)

// PathError records a codec failure at a specific path.
type PathError struct {
	Op   string
	Path Path
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// NodeError records a declaration failure at a node. Path is the ancestor
// title chain joined with " > ".
type NodeError struct {
	Path  string
	Title string
	Type  string
	Err   error
}

func (e *NodeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Type != "" {
		fmt.Fprintf(&b, " %q", e.Type)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	return b.String()
}

func (e *NodeError) Unwrap() error { return e.Err }

// ValidationErrors is the full list of violations found in a declaration
// tree. An empty list means the tree is valid.
type ValidationErrors []*NodeError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes every violation to errors.Is and errors.As.
func (ve ValidationErrors) Unwrap() []error {
	errs := make([]error, len(ve))
	for i, e := range ve {
		errs[i] = e
	}
	return errs
}

// UnflattenError lists the entries that could not be placed because their
// path disagreed with structure already built. The partially built object is
// still returned alongside it.
type UnflattenError struct {
	Skipped []Path
}

func (e *UnflattenError) Error() string {
	keys := make([]string, len(e.Skipped))
	for i, p := range e.Skipped {
		keys[i] = p.String()
	}
	return fmt.Sprintf("%v: skipped %s", ErrPathMismatch, strings.Join(keys, ", "))
}

func (e *UnflattenError) Unwrap() error { return ErrPathMismatch }
