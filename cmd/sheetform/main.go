// Command sheetform compiles spreadsheet form declarations into HTML and
// stores submitted answers in workbook tables.
package main

import (
	"os"

	"github.com/mesh-intelligence/sheetform/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
