// Package memory implements in-process storage for tables and the compile
// cache. Nothing is persisted; the xlsx backend reuses Grid as its in-core
// sheet representation.
package memory

import (
	"fmt"
	"sync"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Grid is a rectangular, growable matrix of cells guarded by a mutex.
type Grid struct {
	mu         sync.RWMutex
	name       string
	cells      [][]any
	headerRows int

	// onChange runs after every successful mutation, outside the lock.
	onChange func(name string)
}

// NewGrid returns an empty grid.
func NewGrid(name string) *Grid {
	return &Grid{name: name}
}

// NewGridWithHook returns an empty grid that calls onChange after writes.
func NewGridWithHook(name string, onChange func(name string)) *Grid {
	return &Grid{name: name, onChange: onChange}
}

// Name returns the table name.
func (g *Grid) Name() string { return g.name }

func checkRange(row, col, height, width int) error {
	if row < 1 || col < 1 || height < 0 || width < 0 {
		return fmt.Errorf("%w: row=%d col=%d height=%d width=%d", types.ErrInvalidRange, row, col, height, width)
	}
	return nil
}

// Get returns a height x width block starting at (row, col).
func (g *Grid) Get(row, col, height, width int) ([][]any, error) {
	if err := checkRange(row, col, height, width); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([][]any, height)
	for r := 0; r < height; r++ {
		out[r] = make([]any, width)
		for c := 0; c < width; c++ {
			out[r][c] = g.cellLocked(row+r, col+c)
		}
	}
	return out, nil
}

func (g *Grid) cellLocked(row, col int) any {
	if row > len(g.cells) {
		return ""
	}
	line := g.cells[row-1]
	if col > len(line) || line[col-1] == nil {
		return ""
	}
	return line[col-1]
}

// Set writes values with the top-left corner at (row, col).
func (g *Grid) Set(row, col int, values [][]any) error {
	if err := checkRange(row, col, len(values), 0); err != nil {
		return err
	}
	g.mu.Lock()
	for r, line := range values {
		for c, v := range line {
			g.setLocked(row+r, col+c, v)
		}
	}
	g.mu.Unlock()
	g.changed()
	return nil
}

func (g *Grid) setLocked(row, col int, v any) {
	if types.IsBlank(v) {
		if row <= len(g.cells) && col <= len(g.cells[row-1]) {
			g.cells[row-1][col-1] = nil
		}
		return
	}
	for len(g.cells) < row {
		g.cells = append(g.cells, nil)
	}
	line := g.cells[row-1]
	for len(line) < col {
		line = append(line, nil)
	}
	line[col-1] = v
	g.cells[row-1] = line
}

// LastRow returns the last row with a non-blank cell.
func (g *Grid) LastRow() (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for r := len(g.cells); r > 0; r-- {
		for _, v := range g.cells[r-1] {
			if !types.IsBlank(v) {
				return r, nil
			}
		}
	}
	return 0, nil
}

// LastColumn returns the last column with a non-blank cell.
func (g *Grid) LastColumn() (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	last := 0
	for _, line := range g.cells {
		for c := len(line); c > last; c-- {
			if !types.IsBlank(line[c-1]) {
				last = c
				break
			}
		}
	}
	return last, nil
}

// Clear blanks every cell.
func (g *Grid) Clear() error {
	g.mu.Lock()
	g.cells = nil
	g.mu.Unlock()
	g.changed()
	return nil
}

// HeaderRows returns the number of header rows.
func (g *Grid) HeaderRows() (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.headerRows, nil
}

// SetHeaderRows marks the first n rows as header.
func (g *Grid) SetHeaderRows(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: header rows %d", types.ErrInvalidRange, n)
	}
	g.mu.Lock()
	g.headerRows = n
	g.mu.Unlock()
	g.changed()
	return nil
}

// Snapshot returns a copy of the used cells, trimmed to the last non-blank
// row.
func (g *Grid) Snapshot() [][]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([][]any, len(g.cells))
	for i, line := range g.cells {
		out[i] = append([]any(nil), line...)
	}
	for len(out) > 0 && blankLine(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

// Load replaces the grid contents without firing the change hook.
func (g *Grid) Load(cells [][]any, headerRows int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cells = nil
	for r, line := range cells {
		for c, v := range line {
			g.setLocked(r+1, c+1, v)
		}
	}
	g.headerRows = headerRows
}

func (g *Grid) changed() {
	if g.onChange != nil {
		g.onChange(g.name)
	}
}

func blankLine(line []any) bool {
	for _, v := range line {
		if !types.IsBlank(v) {
			return false
		}
	}
	return true
}
