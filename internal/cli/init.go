package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sheetform/internal/form"
	"github.com/mesh-intelligence/sheetform/internal/paths"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func newInitCmd() *cobra.Command {
	var decl declarationFlags
	cmd := &cobra.Command{
		Use:   "init [declaration.csv]",
		Short: "Initialize sheetform storage",
		Long: `Create the configuration and data directories, attach the storage backend
and create the records and structure tables. When a declaration CSV is
given it is stored in the structure table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var grid [][]string
			if len(args) > 0 {
				g, err := decl.loadGrid(cmd, args)
				if err != nil {
					return err
				}
				grid = g
			}
			err := withWorkbook(func(wb types.Workbook) error {
				if _, err := wb.CreateTable(cfg.IdentityTable); err != nil {
					return fmt.Errorf("create %s: %w", cfg.IdentityTable, err)
				}
				structure, err := wb.CreateTable(types.StructureTable)
				if err != nil {
					return fmt.Errorf("create %s: %w", types.StructureTable, err)
				}
				if grid != nil {
					return form.WriteGridToTable(structure, grid)
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sheetform initialized (%s backend, config %s)\n",
				cfg.Backend, paths.ConfigFile(cfg.ConfigDir))
			return nil
		},
	}
	cmd.Flags().BoolVar(&decl.sniff, "sniff", false, "detect the CSV delimiter from the header line")
	return cmd
}
