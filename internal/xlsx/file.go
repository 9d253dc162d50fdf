package xlsx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// chunkRunes keeps cache values under the spreadsheet cell length limit.
const chunkRunes = excelize.TotalCellChars - 767

// load reads b.path into memory grids. A missing file leaves the workbook
// empty. The caller must hold b.mu.
func (b *Backend) load() error {
	if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		cells, err := readSheet(f, name)
		if err != nil {
			return err
		}
		if name == CacheSheet {
			b.loadCache(cells)
			continue
		}
		headerRows := 0
		if panes, err := f.GetPanes(name); err == nil && panes.Freeze {
			headerRows = panes.YSplit
		}
		b.addGridLocked(name).Load(cells, headerRows)
	}
	return nil
}

// readSheet returns the used range of a sheet with numbers and booleans
// restored from the cell types.
func readSheet(f *excelize.File, name string) ([][]any, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", name, err)
	}
	out := make([][]any, len(rows))
	for r, row := range rows {
		out[r] = make([]any, len(row))
		for c, raw := range row {
			if raw == "" {
				out[r][c] = ""
				continue
			}
			addr, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			kind, err := f.GetCellType(name, addr)
			if err != nil {
				return nil, err
			}
			out[r][c] = typedValue(kind, raw)
		}
	}
	return out, nil
}

func typedValue(kind excelize.CellType, raw string) any {
	switch kind {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	}
	return raw
}

// loadCache restores cache rows: key, expiry, then the value in chunks.
func (b *Backend) loadCache(cells [][]any) {
	for _, row := range cells {
		if len(row) == 0 {
			continue
		}
		key := types.CellText(row[0])
		if key == "" {
			continue
		}
		var expires time.Time
		if len(row) < 2 {
			b.cache.Restore(key, "", expires)
			continue
		}
		if s := types.CellText(row[1]); s != "" {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				continue
			}
			expires = t
		}
		var value strings.Builder
		for _, part := range row[2:] {
			value.WriteString(types.CellText(part))
		}
		b.cache.Restore(key, value.String(), expires)
	}
}

// save writes every table and the cache to a temporary file and renames it
// over b.path. The caller must hold b.mu.
func (b *Backend) save() error {
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	names := append(append([]string(nil), b.order...), CacheSheet)
	for i, name := range names {
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	for _, name := range b.order {
		g := b.grids[name]
		if err := writeRows(f, name, g.Snapshot()); err != nil {
			return err
		}
		headerRows, _ := g.HeaderRows()
		if headerRows > 0 {
			topLeft, err := excelize.CoordinatesToCellName(1, headerRows+1)
			if err != nil {
				return err
			}
			if err := f.SetPanes(name, &excelize.Panes{
				Freeze:      true,
				YSplit:      headerRows,
				TopLeftCell: topLeft,
				ActivePane:  "bottomLeft",
			}); err != nil {
				return fmt.Errorf("freezing header of %s: %w", name, err)
			}
		}
	}

	if err := writeRows(f, CacheSheet, b.cacheRows()); err != nil {
		return err
	}
	if len(b.order) > 0 {
		if err := f.SetSheetVisible(CacheSheet, false); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".sheetform-*.xlsx")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing workbook: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, name string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			if types.IsBlank(v) {
				continue
			}
			addr, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, addr, cellValue(v)); err != nil {
				return fmt.Errorf("writing %s!%s: %w", name, addr, err)
			}
		}
	}
	return nil
}

func cellValue(v any) any {
	switch x := v.(type) {
	case types.List:
		return string(x)
	case types.Existence:
		return int(x)
	}
	return v
}

func (b *Backend) cacheRows() [][]any {
	var rows [][]any
	b.cache.Each(func(key, value string, expires time.Time) {
		exp := ""
		if !expires.IsZero() {
			exp = expires.UTC().Format(time.RFC3339Nano)
		}
		row := []any{key, exp}
		for _, part := range chunk(value, chunkRunes) {
			row = append(row, part)
		}
		rows = append(rows, row)
	})
	return rows
}

// chunk splits s into pieces of at most n runes.
func chunk(s string, n int) []string {
	var out []string
	for s != "" {
		if utf8.RuneCountInString(s) <= n {
			out = append(out, s)
			break
		}
		i, count := 0, 0
		for count < n {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			count++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}
