package records

import (
	"github.com/mesh-intelligence/sheetform/internal/header"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// column returns the data cells of column col and the row number of the
// first one.
func column(g types.Grid, col int) ([]any, int, error) {
	headerRows, lastRow, err := header.DataRange(g)
	if err != nil {
		return nil, 0, err
	}
	if lastRow <= headerRows {
		return nil, headerRows + 1, nil
	}
	cells, err := g.Get(headerRows+1, col, lastRow-headerRows, 1)
	if err != nil {
		return nil, 0, err
	}
	out := make([]any, len(cells))
	for i, line := range cells {
		out[i] = line[0]
	}
	return out, headerRows + 1, nil
}

// dataBlock returns every data row at the schema's width and the row number
// of the first one.
func dataBlock(g types.Grid, schema types.Schema) ([][]any, int, error) {
	headerRows, lastRow, err := header.DataRange(g)
	if err != nil {
		return nil, 0, err
	}
	if lastRow <= headerRows || len(schema) == 0 {
		return nil, headerRows + 1, nil
	}
	block, err := g.Get(headerRows+1, 1, lastRow-headerRows, len(schema))
	if err != nil {
		return nil, 0, err
	}
	return block, headerRows + 1, nil
}

// readRows returns the raw non-blank cells of every data row keyed by
// schema path.
func readRows(g types.Grid, schema types.Schema) ([][]types.Entry, error) {
	block, _, err := dataBlock(g, schema)
	if err != nil {
		return nil, err
	}
	rows := make([][]types.Entry, len(block))
	for i, line := range block {
		for c, v := range line {
			if len(schema[c].Path) == 0 || types.IsBlank(v) {
				continue
			}
			rows[i] = append(rows[i], types.Entry{Path: schema[c].Path, Value: v})
		}
	}
	return rows, nil
}

// buildRow lays entries out at the schema's width. Entries for paths outside
// the schema are dropped.
func buildRow(schema types.Schema, entries []types.Entry) []any {
	index := schema.Index()
	values := make([]any, len(schema))
	for i := range values {
		values[i] = ""
	}
	for _, en := range entries {
		if col := index[en.Path.Key()]; col > 0 {
			values[col-1] = cellValue(en.Value)
		}
	}
	return values
}

// cellValue converts codec sentinels into plain cell values.
func cellValue(v any) any {
	switch x := v.(type) {
	case types.Existence:
		return int(x)
	case types.List:
		return string(x)
	case nil:
		return ""
	}
	return v
}

// decodeRow turns stored cells back into entries for Unflatten, using the
// column kinds to restore markers and lists. Blank cells are skipped.
func decodeRow(schema types.Schema, line []any) []types.Entry {
	var out []types.Entry
	for c, v := range line {
		if c >= len(schema) || len(schema[c].Path) == 0 || types.IsBlank(v) {
			continue
		}
		out = append(out, types.Entry{Path: schema[c].Path, Value: decodeCell(schema[c].Kind, v)})
	}
	return out
}

func decodeCell(kind types.Kind, v any) any {
	switch kind {
	case types.KindExistence:
		if n, ok := types.CellInt(v); ok && n == 1 {
			return types.Marker
		}
	case types.KindList:
		if s, ok := v.(string); ok && types.LooksLikeList(s) {
			return types.List(s)
		}
	}
	return v
}

// lookup returns the value at p inside obj.
func lookup(obj map[string]any, p types.Path) (any, bool) {
	var cur any = obj
	for _, seg := range p {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// checkReserved fails when a reserved path is blocked by a non-object, so
// stamping cannot fail after the table has been touched.
func checkReserved(obj map[string]any) error {
	for _, p := range []types.Path{types.IDPath, types.CreatedAtPath, types.UpdatedAtPath} {
		var cur any = obj
		for i, seg := range p[:len(p)-1] {
			m, ok := cur.(map[string]any)
			if !ok {
				return &types.PathError{Op: "save", Path: p[:i], Err: types.ErrPathMismatch}
			}
			if cur, ok = m[seg]; !ok || cur == nil {
				break
			}
			if _, ok := cur.(map[string]any); !ok {
				return &types.PathError{Op: "save", Path: p[:i+1], Err: types.ErrPathMismatch}
			}
		}
	}
	return nil
}

// stamp returns a copy of obj carrying a new identity and both timestamps.
func stamp(obj map[string]any, id int, now string) (map[string]any, error) {
	var err error
	for _, set := range []types.Entry{
		{Path: types.IDPath, Value: id},
		{Path: types.CreatedAtPath, Value: now},
		{Path: types.UpdatedAtPath, Value: now},
	} {
		if obj, err = withValue(obj, set.Path, 0, set.Value); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// withValue copies every object along p[depth:] and stores v at its end.
func withValue(obj map[string]any, p types.Path, depth int, v any) (map[string]any, error) {
	out := make(map[string]any, len(obj)+1)
	for k, x := range obj {
		out[k] = x
	}
	seg := p[depth]
	if depth == len(p)-1 {
		out[seg] = v
		return out, nil
	}
	child := map[string]any{}
	if existing := obj[seg]; existing != nil {
		m, ok := existing.(map[string]any)
		if !ok {
			return nil, &types.PathError{Op: "stamp", Path: p[:depth+1], Err: types.ErrPathMismatch}
		}
		child = m
	}
	sub, err := withValue(child, p, depth+1, v)
	if err != nil {
		return nil, err
	}
	out[seg] = sub
	return out, nil
}
