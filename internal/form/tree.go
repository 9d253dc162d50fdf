package form

import (
	"fmt"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

type position struct {
	row, level int
}

// BuildTree links the non-empty cells of rows into a tree.
//
// A cell's parent is the nearest non-empty cell to its left on the same row.
// When there is none, it is the nearest non-empty cell above, in the
// column immediately to the left. Cells with no parent are roots; several
// roots are gathered under a synthetic ROOT node. Every cell becomes its own
// node, so identical text on different rows is never merged.
func BuildTree(rows [][]types.Cell) (*types.Node, error) {
	if len(rows) == 0 {
		return nil, types.ErrEmptyDeclaration
	}

	nodes := make(map[position]*types.Node)
	var roots []*types.Node
	for r, row := range rows {
		for level := 0; level < Levels && level < len(row); level++ {
			cell := row[level]
			if cell.Empty() {
				continue
			}
			n := &types.Node{Title: cell.Title, Type: cell.Type, Hint: cell.Hint, Children: []*types.Node{}}
			nodes[position{r, level}] = n

			if parent := nodes[parentOf(rows, r, level)]; parent != nil {
				parent.Children = append(parent.Children, n)
			} else {
				roots = append(roots, n)
			}
		}
	}

	switch len(roots) {
	case 0:
		return nil, fmt.Errorf("%w: %d rows hold no cells", types.ErrNoRootNode, len(rows))
	case 1:
		return roots[0], nil
	}
	return types.NewSyntheticRoot(roots), nil
}

// parentOf returns the position of the parent cell of (row, level), or a
// position holding no node.
func parentOf(rows [][]types.Cell, row, level int) position {
	none := position{-1, -1}
	if level == 0 {
		return none
	}
	for l := level - 1; l >= 0; l-- {
		if !cellAt(rows, row, l).Empty() {
			return position{row, l}
		}
	}
	for r := row - 1; r >= 0; r-- {
		if !cellAt(rows, r, level-1).Empty() {
			return position{r, level - 1}
		}
	}
	return none
}

func cellAt(rows [][]types.Cell, row, level int) types.Cell {
	if level < len(rows[row]) {
		return rows[row][level]
	}
	return types.Cell{}
}
