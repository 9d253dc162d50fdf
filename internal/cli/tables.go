package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Write every row of a table as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []map[string]any
			err := withWorkbook(func(wb types.Workbook) error {
				var err error
				rows, err = newEngine(wb).ReadAll(args[0])
				return err
			})
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			for _, row := range rows {
				if err := writeCompactJSON(&buf, row); err != nil {
					return err
				}
			}
			if out == "" || out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return sysErr(fmt.Errorf("write %s: %w", out, err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d row(s) from %s to %s\n", okColor.Sprint("exported"), len(rows), args[0], out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <table> <rows.jsonl|->",
		Short: "Replace a table with JSON objects",
		Long: `Import reads one JSON object per line, or a single JSON array of objects,
and replaces the contents of the table with them. The header is derived
from the union of every object's paths.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			objects, err := decodeObjects(data)
			if err != nil {
				return err
			}
			return withWorkbook(func(wb types.Workbook) error {
				res, err := newEngine(wb).WriteAll(args[0], objects)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d row(s), %d column(s) into %s\n",
					okColor.Sprint("imported"), res.Rows, res.Columns, args[0])
				return nil
			})
		},
	}
}

// decodeObjects parses a JSON array or JSON lines. Blank lines are skipped.
func decodeObjects(data []byte) ([]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		v, err := decodeJSON(trimmed)
		if err != nil {
			return nil, err
		}
		return v.([]any), nil
	}
	var objects []any
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		v, err := decodeJSON(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		objects = append(objects, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return objects, nil
}
