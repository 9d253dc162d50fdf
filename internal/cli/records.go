package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sheetform/internal/records"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save [answers.json|-]",
		Short: "Upsert a JSON answer object into the records table",
		Long: `Save flattens a JSON object and upserts it into the identity table. An
object whose system.id matches a stored row overwrites that row; any other
object is appended with the next id.

Example:
  sheetform save answers.json
  echo '{"name":"Ann"}' | sheetform save -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) > 0 {
				name = args[0]
			}
			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			payload, err := decodeJSON(data)
			if err == nil {
				err = withWorkbook(func(wb types.Workbook) error {
					if _, err := wb.CreateTable(cfg.IdentityTable); err != nil {
						return err
					}
					res, err := newEngine(wb).Save(payload)
					if err != nil {
						return err
					}
					return printJSON(cmd, res)
				})
			}
			if err != nil {
				if perr := printJSON(cmd, types.SaveResult{OK: false, Message: err.Error()}); perr != nil {
					return perr
				}
				return err
			}
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored record by its system.id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkbook(func(wb types.Workbook) error {
				obj, err := newEngine(wb).GetByID(args[0])
				if err != nil {
					if isNotFound(err) {
						return fmt.Errorf("record %q not found in %s: %w", args[0], cfg.IdentityTable, err)
					}
					return err
				}
				return printJSON(cmd, obj)
			})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		Long: `List prints one line per stored record with its row, id and the configured
summary paths. With --json the full records are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkbook(func(wb types.Workbook) error {
				recs, err := newEngine(wb).List()
				if err != nil {
					return err
				}
				if flags.jsonMode {
					if recs == nil {
						recs = []records.Record{}
					}
					return printJSON(cmd, recs)
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), dimColor.Sprint("no records"))
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, headColor.Sprint("ROW")+"\t"+headColor.Sprint("ID")+"\t"+headColor.Sprint("SUMMARY"))
				for _, r := range recs {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Row, types.CellText(r.ID), summaryText(r))
				}
				return tw.Flush()
			})
		},
	}
}
