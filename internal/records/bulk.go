package records

import (
	"fmt"

	"github.com/mesh-intelligence/sheetform/internal/codec"
	"github.com/mesh-intelligence/sheetform/internal/header"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// WriteResult reports what WriteAll stored.
type WriteResult struct {
	Rows       int `json:"rows"`
	Columns    int `json:"cols"`
	HeaderRows int `json:"header_rows"`
}

// WriteAll replaces the contents of the named table with objects. The table
// is created when missing. The schema is derived from every object, so the
// header is the union of all their paths. Nothing is written when an object
// fails to flatten; an empty input leaves the table untouched.
func (e *Engine) WriteAll(name string, objects []any) (WriteResult, error) {
	if len(objects) == 0 {
		return WriteResult{}, nil
	}
	rows := make([][]types.Entry, len(objects))
	var paths []types.Path
	for i, obj := range objects {
		flat, err := codec.FlattenObject(obj)
		if err != nil {
			return WriteResult{}, fmt.Errorf("object %d: %w", i+1, err)
		}
		rows[i] = flat
		paths = append(paths, codec.Paths(flat)...)
	}

	g, err := e.wb.CreateTable(name)
	if err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", name, err)
	}
	schema := header.DeriveSchema(paths, rows...)
	if err := header.Materialize(g, schema); err != nil {
		return WriteResult{}, err
	}

	block := make([][]any, len(rows))
	for i, flat := range rows {
		block[i] = buildRow(schema, flat)
	}
	if len(schema) > 0 {
		if err := g.Set(header.Rows+1, 1, block); err != nil {
			return WriteResult{}, fmt.Errorf("writing rows of %s: %w", name, err)
		}
	}
	e.logger.Debug("table written", "table", name, "rows", len(block), "columns", len(schema))
	return WriteResult{Rows: len(block), Columns: len(schema), HeaderRows: header.Rows}, nil
}

// ReadAll rebuilds every data row of the named table. LIST columns come
// back as arrays; a LIST cell that does not parse is returned as text.
func (e *Engine) ReadAll(name string) ([]map[string]any, error) {
	g, err := e.wb.Table(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	schema, err := header.Read(g)
	if err != nil {
		return nil, err
	}
	block, first, err := dataBlock(g, schema)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(block))
	for i, line := range block {
		obj, err := e.rebuild(name, first+i, schema, line)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}
