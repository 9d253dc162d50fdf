package records

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/sheetform/internal/codec"
	"github.com/mesh-intelligence/sheetform/internal/header"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Record is one stored row rebuilt as an object.
type Record struct {
	Row     int            `json:"row"`
	ID      any            `json:"id"`
	Data    map[string]any `json:"data"`
	Summary map[string]any `json:"summary,omitempty"`
}

// GetByID rebuilds the row of the identity table whose system.id cell
// matches id. Cells are compared by their text so 3, 3.0 and "3" all match.
func (e *Engine) GetByID(id any) (map[string]any, error) {
	g, err := e.wb.Table(e.table)
	if err != nil {
		return nil, fmt.Errorf("get %v from %s: %w", id, e.table, err)
	}
	schema, err := header.Read(g)
	if err != nil {
		return nil, err
	}
	col := schema.Column(types.IDPath)
	if col == 0 {
		return nil, fmt.Errorf("%w: %s has no %s column", types.ErrIdentityColumnNotFound, e.table, types.IDPath)
	}
	ids, first, err := column(g, col)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", types.ErrRowNotFound, e.table)
	}

	key := types.CellText(id)
	row := 0
	for i, v := range ids {
		if types.CellText(v) == key {
			row = first + i
			break
		}
	}
	if row == 0 {
		return nil, fmt.Errorf("%w: id %s", types.ErrRowNotFound, key)
	}

	cells, err := g.Get(row, 1, 1, len(schema))
	if err != nil {
		return nil, err
	}
	return e.rebuild(e.table, row, schema, cells[0])
}

// List rebuilds every data row of the identity table in row order. An empty
// table yields an empty list.
func (e *Engine) List() ([]Record, error) {
	g, err := e.wb.Table(e.table)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", e.table, err)
	}
	schema, err := header.Read(g)
	if err != nil {
		return nil, err
	}
	block, first, err := dataBlock(g, schema)
	if err != nil {
		return nil, err
	}

	idCol := schema.Column(types.IDPath)
	out := make([]Record, 0, len(block))
	for i, line := range block {
		data, err := e.rebuild(e.table, first+i, schema, line)
		if err != nil {
			return nil, err
		}
		rec := Record{Row: first + i, Data: data, Summary: map[string]any{}}
		if idCol > 0 {
			rec.ID = line[idCol-1]
		}
		for _, p := range e.summary {
			if v, ok := lookup(data, p); ok {
				rec.Summary[p.String()] = v
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// rebuild unflattens one stored row. Path conflicts are logged and the
// partial object returned unless strict mode is on.
func (e *Engine) rebuild(table string, row int, schema types.Schema, line []any) (map[string]any, error) {
	obj, err := codec.Unflatten(decodeRow(schema, line))
	if err == nil {
		return obj, nil
	}
	var ue *types.UnflattenError
	if errors.As(err, &ue) && !e.strict {
		e.logger.Warn("row rebuilt with skipped paths", "table", table, "row", row, "skipped", len(ue.Skipped), "error", err)
		return obj, nil
	}
	return nil, fmt.Errorf("row %d of %s: %w", row, table, err)
}
