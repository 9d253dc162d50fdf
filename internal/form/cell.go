// Package form turns a declaration grid into a validated node tree and
// compiles the tree into a self-contained HTML form.
//
// A declaration grid has up to nine columns, L1..L9, one per hierarchy
// level. Each non-empty cell reads title[/type[/hint]], with a literal slash
// written as \/.
package form

import (
	"strings"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Levels is the number of hierarchy columns in a declaration grid.
const Levels = types.MaxDepth

const (
	cellDelimiter = '/'
	cellEscape    = '\\'
)

// ParseCell splits cell text into title, type and hint. Only unescaped
// slashes separate parts and the hint keeps any further slashes. Blank text
// yields an empty Cell.
func ParseCell(text string) types.Cell {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Cell{}
	}

	parts := make([]string, 0, 3)
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == cellEscape && i+1 < len(runes) && runes[i+1] == cellDelimiter:
			b.WriteRune(cellDelimiter)
			i++
		case r == cellDelimiter && len(parts) < 2:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	parts = append(parts, b.String())

	cell := types.Cell{Title: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		cell.Type = NormalizeType(parts[1])
	}
	if len(parts) > 2 {
		cell.Hint = strings.TrimSpace(parts[2])
	}
	return cell
}

// NormalizeType maps legacy selector spellings (RADIO, CHECKBOX, SELECT,
// DROPDOWN and upper-cased selector: forms) to their canonical selector:
// tags. Other types are returned trimmed and otherwise unchanged.
func NormalizeType(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(s) {
	case "RADIO", "SELECTOR:RADIO":
		return types.SelectorRadio
	case "CHECKBOX", "SELECTOR:CHECKBOX":
		return types.SelectorCheckbox
	case "SELECT", "DROPDOWN", "SELECTOR:DROPDOWN":
		return types.SelectorDropdown
	}
	return s
}

// ParseGrid parses every cell of a text grid. Rows are padded or cut to
// Levels cells.
func ParseGrid(grid [][]string) [][]types.Cell {
	out := make([][]types.Cell, len(grid))
	for r, row := range grid {
		out[r] = make([]types.Cell, Levels)
		for c := 0; c < Levels && c < len(row); c++ {
			out[r][c] = ParseCell(row[c])
		}
	}
	return out
}
