package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the sheetform release.
const Version = "0.3.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sheetform version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "sheetform", Version)
		},
	}
}
