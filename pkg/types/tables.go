package types

import (
	"strings"
	"unicode/utf8"
)

// MaxTableNameLength bounds table names so they fit sheet name limits of
// spreadsheet formats.
const MaxTableNameLength = 31

// ValidateTableName checks that name can be used by every backend.
// Returns ErrInvalidTableName on failure.
func ValidateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidTableName
	}
	if utf8.RuneCountInString(name) > MaxTableNameLength {
		return ErrInvalidTableName
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return ErrInvalidTableName
	}
	return nil
}
