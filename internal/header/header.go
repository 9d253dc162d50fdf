// Package header derives column schemas from flattened rows and stores them
// as a block of header rows at the top of a table.
//
// The block is always Rows tall. Row 1 holds the kind tag of each column and
// rows 2 through 10 hold the path segments L1..L9, with Null filling levels
// a path does not reach.
package header

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Header block geometry.
const (
	Rows = types.MaxDepth + 1
	Null = types.NullSegment
)

// DeriveSchema sorts and deduplicates paths and assigns each a kind. The kind
// of a path is taken from the first value in rows (scanned in order) that
// carries a kind signal; paths with no such value are SCALAR. Empty paths are
// dropped.
func DeriveSchema(paths []types.Path, rows ...[]types.Entry) types.Schema {
	seen := make(map[string]bool, len(paths))
	unique := make([]types.Path, 0, len(paths))
	for _, p := range paths {
		if len(p) == 0 || seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		unique = append(unique, p)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Compare(unique[j]) < 0
	})

	kinds := make(map[string]types.Kind)
	for _, row := range rows {
		for _, e := range row {
			key := e.Path.Key()
			if _, done := kinds[key]; done || !seen[key] {
				continue
			}
			if k, ok := types.InferKind(e.Value); ok {
				kinds[key] = k
			}
		}
	}

	schema := make(types.Schema, len(unique))
	for i, p := range unique {
		k, ok := kinds[p.Key()]
		if !ok {
			k = types.KindScalar
		}
		schema[i] = types.Column{Path: p, Kind: k}
	}
	return schema
}

// Materialize clears g and writes the header block for schema, then marks
// the block as the table's header rows.
func Materialize(g types.Grid, schema types.Schema) error {
	if err := g.Clear(); err != nil {
		return fmt.Errorf("clearing %s: %w", g.Name(), err)
	}
	if len(schema) > 0 {
		block := make([][]any, Rows)
		for r := range block {
			block[r] = make([]any, len(schema))
		}
		for c, col := range schema {
			block[0][c] = string(col.Kind)
			for level := 1; level < Rows; level++ {
				if level <= len(col.Path) {
					block[level][c] = col.Path[level-1]
				} else {
					block[level][c] = Null
				}
			}
		}
		if err := g.Set(1, 1, block); err != nil {
			return fmt.Errorf("writing header of %s: %w", g.Name(), err)
		}
	}
	if err := g.SetHeaderRows(Rows); err != nil {
		return fmt.Errorf("freezing header of %s: %w", g.Name(), err)
	}
	return nil
}

// Read reconstructs the schema stored in g. Column positions are preserved:
// a column whose path cells are all Null or blank yields a Column with an
// empty path. A table with no header rows or no columns has an empty schema.
func Read(g types.Grid) (types.Schema, error) {
	headerRows, err := g.HeaderRows()
	if err != nil {
		return nil, err
	}
	lastCol, err := g.LastColumn()
	if err != nil {
		return nil, err
	}
	if headerRows == 0 || lastCol == 0 {
		return nil, nil
	}

	block, err := g.Get(1, 1, Rows, lastCol)
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", g.Name(), err)
	}
	schema := make(types.Schema, lastCol)
	for c := 0; c < lastCol; c++ {
		var p types.Path
		for level := 1; level < Rows; level++ {
			seg := types.CellText(block[level][c])
			if seg == "" || seg == Null {
				continue
			}
			p = append(p, seg)
		}
		schema[c] = types.Column{Path: p, Kind: types.ParseKind(types.CellText(block[0][c]))}
	}
	return schema, nil
}

// DataRange returns the header row count and the last used row of g. Data
// rows are headerRows+1 through lastRow; there are none when lastRow <=
// headerRows.
func DataRange(g types.Grid) (headerRows, lastRow int, err error) {
	if headerRows, err = g.HeaderRows(); err != nil {
		return 0, 0, err
	}
	if lastRow, err = g.LastRow(); err != nil {
		return 0, 0, err
	}
	return headerRows, lastRow, nil
}

// Empty reports whether g holds no rows beyond its header.
func Empty(g types.Grid) (bool, error) {
	headerRows, lastRow, err := DataRange(g)
	if err != nil {
		return false, err
	}
	return lastRow <= headerRows, nil
}
