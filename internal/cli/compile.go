package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sheetform/internal/form"
	"github.com/mesh-intelligence/sheetform/pkg/backend"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func newCompileCmd() *cobra.Command {
	var (
		decl      declarationFlags
		out       string
		refresh   bool
		saveTable string
	)
	cmd := &cobra.Command{
		Use:   "compile [declaration.csv|-]",
		Short: "Compile a declaration into an HTML form",
		Long: `Compile reads an L1..L9 declaration grid, validates it and renders a
self-contained HTML form. Rendered forms are cached in the workbook by the
signature of their grid; --refresh bypasses the cache.

Example:
  sheetform compile intake.csv --out intake.html
  sheetform compile --from-table structure`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := decl.loadGrid(cmd, args)
			if err != nil {
				return err
			}
			var res form.Result
			err = withWorkbook(func(wb types.Workbook) error {
				if saveTable != "" {
					g, err := wb.CreateTable(saveTable)
					if err != nil {
						return err
					}
					if err := form.WriteGridToTable(g, grid); err != nil {
						return fmt.Errorf("save declaration to %s: %w", saveTable, err)
					}
				}
				c := form.NewCompiler(backend.CacheOf(wb),
					form.WithCacheTTL(cfg.CacheTTL),
					form.WithCompilerLogger(logger),
					form.WithRenderOptions(cfg.Render),
				)
				r, err := c.Compile(grid, refresh)
				res = r
				return err
			})
			var ve types.ValidationErrors
			if errors.As(err, &ve) {
				printViolations(cmd.ErrOrStderr(), ve)
				return fmt.Errorf("declaration has %d violation(s)", len(ve))
			}
			if err != nil {
				return err
			}
			if cfg.DebugTree && res.Tree != nil {
				if err := writeTree(cmd.ErrOrStderr(), res.Tree, "yaml"); err != nil {
					return err
				}
			}

			if out == "" || out == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), res.HTML)
				return err
			}
			if err := os.WriteFile(out, []byte(res.HTML), 0o644); err != nil {
				return sysErr(fmt.Errorf("write %s: %w", out, err))
			}
			state := "compiled"
			if res.Cached {
				state = "cached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s)\n", okColor.Sprint("wrote"), out, state, res.Signature)
			return nil
		},
	}
	decl.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the HTML form to this file instead of stdout")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore any cached rendering")
	cmd.Flags().StringVar(&saveTable, "save-table", "", "also store the declaration grid in this table")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var decl declarationFlags
	cmd := &cobra.Command{
		Use:   "validate [declaration.csv|-]",
		Short: "Check a declaration for violations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := decl.loadGrid(cmd, args)
			if err != nil {
				return err
			}
			_, err = form.Build(grid)
			var ve types.ValidationErrors
			if errors.As(err, &ve) {
				if flags.jsonMode {
					msgs := make([]string, len(ve))
					for i, e := range ve {
						msgs[i] = e.Error()
					}
					if err := printJSON(cmd, map[string]any{"ok": false, "violations": msgs}); err != nil {
						return err
					}
				} else {
					printViolations(cmd.OutOrStdout(), ve)
				}
				return fmt.Errorf("declaration has %d violation(s)", len(ve))
			}
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, map[string]any{"ok": true, "violations": []string{}})
			}
			fmt.Fprintln(cmd.OutOrStdout(), okColor.Sprint("OK"))
			return nil
		},
	}
	decl.register(cmd)
	return cmd
}

func newTreeCmd() *cobra.Command {
	var (
		decl   declarationFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "tree [declaration.csv|-]",
		Short: "Print the declaration tree with node ids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (valid: json, yaml)", format)
			}
			grid, err := decl.loadGrid(cmd, args)
			if err != nil {
				return err
			}
			root, err := form.Build(grid)
			var ve types.ValidationErrors
			if errors.As(err, &ve) {
				printViolations(cmd.ErrOrStderr(), ve)
			} else if err != nil {
				return err
			}
			if werr := writeTree(cmd.OutOrStdout(), root, format); werr != nil {
				return werr
			}
			if ve != nil {
				return fmt.Errorf("declaration has %d violation(s)", len(ve))
			}
			return nil
		},
	}
	decl.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func writeTree(w io.Writer, root *types.Node, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return fmt.Errorf("encode tree: %w", err)
		}
		return enc.Close()
	}
	return writeJSON(w, root)
}
