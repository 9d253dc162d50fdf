package form

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// GridFromTable reads the used range of g, at most Levels columns wide, as a
// trimmed text grid. Tables holding a declaration carry no L1..L9 header
// row.
func GridFromTable(g types.Grid) ([][]string, error) {
	lastRow, err := g.LastRow()
	if err != nil {
		return nil, err
	}
	lastCol, err := g.LastColumn()
	if err != nil {
		return nil, err
	}
	lastCol = min(lastCol, Levels)
	if lastRow == 0 || lastCol == 0 {
		return nil, nil
	}
	cells, err := g.Get(1, 1, lastRow, lastCol)
	if err != nil {
		return nil, fmt.Errorf("reading declaration %s: %w", g.Name(), err)
	}
	grid := make([][]string, len(cells))
	for r, line := range cells {
		grid[r] = make([]string, len(line))
		for c, v := range line {
			grid[r][c] = strings.TrimSpace(types.CellText(v))
		}
	}
	return grid, nil
}

// WriteGridToTable replaces the contents of g with grid.
func WriteGridToTable(g types.Grid, grid [][]string) error {
	if err := g.Clear(); err != nil {
		return err
	}
	if err := g.SetHeaderRows(0); err != nil {
		return err
	}
	values := make([][]any, len(grid))
	for r, row := range grid {
		values[r] = make([]any, len(row))
		for c, s := range row {
			values[r][c] = s
		}
	}
	if len(values) == 0 {
		return nil
	}
	return g.Set(1, 1, values)
}
