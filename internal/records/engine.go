// Package records stores nested answer objects as rows of a wide table.
//
// Each object is flattened into (path, value) entries whose paths name the
// table's columns. The column schema lives in the table's header block and
// grows as new paths appear. One table, the identity table, numbers its rows
// through the system.id path and stamps creation and update times.
package records

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/sheetform/internal/codec"
	"github.com/mesh-intelligence/sheetform/internal/header"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// TimeFormat is the layout of the created and updated stamps.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Engine performs upserts and reads against tables of a Workbook. It holds
// no lock: concurrent Save calls on the same table must be serialized by the
// caller.
type Engine struct {
	wb      types.Workbook
	table   string
	logger  *slog.Logger
	now     func() time.Time
	strict  bool
	summary []types.Path
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source used for stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithStrictUnflatten makes reads fail when a stored row cannot be rebuilt
// cleanly instead of logging and returning the partial object.
func WithStrictUnflatten(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithSummaryPaths sets the paths projected into Record.Summary by List.
func WithSummaryPaths(paths ...types.Path) Option {
	return func(e *Engine) { e.summary = paths }
}

// New returns an Engine whose identity table is table.
func New(wb types.Workbook, table string, opts ...Option) *Engine {
	e := &Engine{
		wb:      wb,
		table:   table,
		logger:  slog.Default(),
		now:     time.Now,
		summary: []types.Path{types.IDPath, types.CreatedAtPath, types.UpdatedAtPath},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Save upserts payload into the identity table.
//
// A payload whose system.id matches an existing row overwrites the cells of
// the paths it reaches, leaves the other cells of that row as they were and
// refreshes system.updated_at. Any other payload is appended with the next
// identity (one more than the largest numeric id in the table) and fresh
// created and updated stamps. The caller's payload is never modified.
//
// Flattening and reserved-path errors are reported before anything is
// written. A missing identity table is an error; it is not created here.
func (e *Engine) Save(payload any) (types.SaveResult, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return types.SaveResult{}, types.ErrPayloadNotObject
	}
	flat, err := codec.FlattenObject(obj)
	if err != nil {
		return types.SaveResult{}, err
	}
	if err := checkReserved(obj); err != nil {
		return types.SaveResult{}, err
	}

	g, err := e.wb.Table(e.table)
	if err != nil {
		return types.SaveResult{}, fmt.Errorf("save into %s: %w", e.table, err)
	}

	empty, err := header.Empty(g)
	if err != nil {
		return types.SaveResult{}, err
	}
	if empty {
		schema := header.DeriveSchema(codec.Paths(flat), flat)
		if err := header.Materialize(g, schema); err != nil {
			return types.SaveResult{}, err
		}
	}

	schema, err := header.Read(g)
	if err != nil {
		return types.SaveResult{}, err
	}
	if schema, err = e.ensureColumns(g, schema, flat); err != nil {
		return types.SaveResult{}, err
	}

	now := e.now().UTC().Format(TimeFormat)
	row, id, err := e.findRow(g, schema, obj)
	if err != nil {
		return types.SaveResult{}, err
	}

	var keep []types.Entry
	if row == 0 {
		newID, err := e.nextID(g, schema)
		if err != nil {
			return types.SaveResult{}, err
		}
		id = newID
		if obj, err = stamp(obj, newID, now); err != nil {
			return types.SaveResult{}, err
		}
		if flat, err = codec.FlattenObject(obj); err != nil {
			return types.SaveResult{}, err
		}
		if schema, err = e.ensureColumns(g, schema, flat); err != nil {
			return types.SaveResult{}, err
		}
		headerRows, lastRow, err := header.DataRange(g)
		if err != nil {
			return types.SaveResult{}, err
		}
		row = max(lastRow, headerRows) + 1
	} else {
		keep, err = e.storedEntries(g, schema, row)
		if err != nil {
			return types.SaveResult{}, err
		}
	}

	values := buildRow(schema, append(keep, flat...))
	if col := schema.Column(types.UpdatedAtPath); col > 0 {
		values[col-1] = now
	}
	if err := g.Set(row, 1, [][]any{values}); err != nil {
		return types.SaveResult{}, fmt.Errorf("writing row %d of %s: %w", row, e.table, err)
	}

	if col := schema.Column(types.IDPath); col > 0 {
		id = values[col-1]
	}
	e.logger.Debug("record saved", "table", e.table, "row", row, "id", id)
	return types.SaveResult{
		OK:      true,
		Row:     row,
		ID:      id,
		Message: fmt.Sprintf("saved row %d", row),
	}, nil
}

// findRow returns the data row whose identity cell equals the payload's
// system.id, or 0 when there is none.
func (e *Engine) findRow(g types.Grid, schema types.Schema, obj map[string]any) (int, any, error) {
	col := schema.Column(types.IDPath)
	want, ok := lookup(obj, types.IDPath)
	if col == 0 || !ok || types.IsBlank(want) {
		return 0, nil, nil
	}
	ids, first, err := column(g, col)
	if err != nil {
		return 0, nil, err
	}
	key := types.CellText(want)
	for i, v := range ids {
		if types.CellText(v) == key {
			return first + i, want, nil
		}
	}
	return 0, nil, nil
}

// nextID returns one more than the largest integer in the identity column.
func (e *Engine) nextID(g types.Grid, schema types.Schema) (int, error) {
	col := schema.Column(types.IDPath)
	if col == 0 {
		return 1, nil
	}
	ids, _, err := column(g, col)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, v := range ids {
		if n, ok := types.CellInt(v); ok && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// storedEntries returns the non-blank cells of row keyed by path. An update
// lays its payload over them, so cells the payload does not reach keep
// their content.
func (e *Engine) storedEntries(g types.Grid, schema types.Schema, row int) ([]types.Entry, error) {
	cells, err := g.Get(row, 1, 1, len(schema))
	if err != nil {
		return nil, err
	}
	var out []types.Entry
	for c, v := range cells[0] {
		if len(schema[c].Path) == 0 || types.IsBlank(v) {
			continue
		}
		out = append(out, types.Entry{Path: schema[c].Path, Value: v})
	}
	return out, nil
}

// ensureColumns grows the header when flat carries paths missing from
// schema. Existing data rows are read under the old schema and rewritten
// under the new one so every value stays under its path.
func (e *Engine) ensureColumns(g types.Grid, schema types.Schema, flat []types.Entry) (types.Schema, error) {
	index := schema.Index()
	var added []types.Path
	for _, en := range flat {
		if len(en.Path) > 0 && index[en.Path.Key()] == 0 {
			added = append(added, en.Path)
		}
	}
	if len(added) == 0 {
		return schema, nil
	}

	var paths []types.Path
	for _, c := range schema {
		if len(c.Path) > 0 {
			paths = append(paths, c.Path)
		}
	}
	paths = append(paths, added...)
	next := header.DeriveSchema(paths, flat, priorKinds(schema))

	rows, err := readRows(g, schema)
	if err != nil {
		return nil, err
	}
	if err := header.Materialize(g, next); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		block := make([][]any, len(rows))
		for i, r := range rows {
			block[i] = buildRow(next, r)
		}
		if err := g.Set(header.Rows+1, 1, block); err != nil {
			return nil, fmt.Errorf("migrating rows of %s: %w", g.Name(), err)
		}
	}
	e.logger.Info("schema grown", "table", g.Name(), "added", len(added), "columns", len(next), "rows", len(rows))
	return next, nil
}

// priorKinds turns the kinds of an existing schema into sample entries so a
// column keeps its kind when the current payload says nothing about it.
func priorKinds(schema types.Schema) []types.Entry {
	var out []types.Entry
	for _, c := range schema {
		switch c.Kind {
		case types.KindExistence:
			out = append(out, types.Entry{Path: c.Path, Value: types.Marker})
		case types.KindList:
			out = append(out, types.Entry{Path: c.Path, Value: types.List("[]")})
		}
	}
	return out
}
