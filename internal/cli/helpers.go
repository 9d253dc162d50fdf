package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sheetform/internal/form"
	"github.com/mesh-intelligence/sheetform/internal/records"
	"github.com/mesh-intelligence/sheetform/pkg/backend"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
	headColor = color.New(color.Bold)
)

// withWorkbook attaches the configured backend, runs fn and detaches. A
// detach failure is reported only when fn succeeded.
func withWorkbook(fn func(wb types.Workbook) error) (err error) {
	wb, err := backend.Open(cfg.workbookConfig())
	if err != nil {
		if types.IsConfigError(err) {
			return fmt.Errorf("attach backend: %w", err)
		}
		return sysErr(fmt.Errorf("attach backend: %w", err))
	}
	logger.Debug("workbook attached", "backend", cfg.Backend, "data_dir", cfg.DataDir)
	defer func() {
		if derr := wb.Detach(); derr != nil && err == nil {
			err = sysErr(fmt.Errorf("detach backend: %w", derr))
		}
	}()
	return fn(wb)
}

// newEngine returns a records engine over the configured identity table.
func newEngine(wb types.Workbook) *records.Engine {
	opts := []records.Option{
		records.WithLogger(logger),
		records.WithStrictUnflatten(cfg.StrictUnflatten),
	}
	if len(cfg.SummaryPaths) > 0 {
		opts = append(opts, records.WithSummaryPaths(cfg.SummaryPaths...))
	}
	return records.New(wb, cfg.IdentityTable, opts...)
}

// readInput reads the named file, or standard input for "" and "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, sysErr(fmt.Errorf("read stdin: %w", err))
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return nil, sysErr(fmt.Errorf("read %s: %w", name, err))
	}
	return data, nil
}

// decodeJSON parses data keeping numbers exact.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrFormatViolation, err)
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers turns json.Number into int when integral and float64
// otherwise.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	}
	return v
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	return writeJSON(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeCompactJSON writes v as one line of JSON.
func writeCompactJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// declarationFlags selects where a declaration grid is read from.
type declarationFlags struct {
	fromTable string
	sniff     bool
}

func (d *declarationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.fromTable, "from-table", "", "read the declaration from a workbook table instead of a CSV file")
	cmd.Flags().BoolVar(&d.sniff, "sniff", false, "detect the CSV delimiter from the header line")
}

// loadGrid returns the declaration grid named by args or the --from-table
// flag. The CSV path "-" reads standard input.
func (d *declarationFlags) loadGrid(cmd *cobra.Command, args []string) ([][]string, error) {
	if d.fromTable != "" {
		var grid [][]string
		err := withWorkbook(func(wb types.Workbook) error {
			g, err := wb.Table(d.fromTable)
			if err != nil {
				return err
			}
			grid, err = form.GridFromTable(g)
			return err
		})
		return grid, err
	}
	if len(args) == 0 {
		return nil, errors.New("a declaration CSV file or --from-table is required")
	}
	data, err := readInput(cmd, args[0])
	if err != nil {
		return nil, err
	}
	delim := form.DefaultDelimiter
	if d.sniff {
		delim = form.SniffDelimiter(string(data))
	}
	return form.ReadDeclarationCSV(bytes.NewReader(data), delim)
}

// printViolations lists each validation error on its own line.
func printViolations(w io.Writer, ve types.ValidationErrors) {
	for _, e := range ve {
		fmt.Fprintf(w, "%s %s\n", errColor.Sprint("✗"), e.Error())
	}
	fmt.Fprintf(w, "%d violation(s)\n", len(ve))
}

// summaryText renders a record summary as key=value pairs in path order.
func summaryText(rec records.Record) string {
	parts := make([]string, 0, len(cfg.SummaryPaths)+3)
	for _, p := range summaryPaths() {
		if v, ok := rec.Summary[p.String()]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", p, types.CellText(v)))
		}
	}
	return strings.Join(parts, " ")
}

func summaryPaths() []types.Path {
	if len(cfg.SummaryPaths) > 0 {
		return cfg.SummaryPaths
	}
	return []types.Path{types.IDPath, types.CreatedAtPath, types.UpdatedAtPath}
}
