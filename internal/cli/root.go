// Package cli implements the sheetform command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
	verbose   bool
}

var (
	flags rootFlags

	// cfg and logger are set by the root PersistentPreRunE.
	cfg    settings
	logger = slog.Default()
)

// NewRootCmd creates the top-level "sheetform" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sheetform",
		Short: "Compile form declarations and store answers in tables",
		Long: `sheetform turns an L1..L9 declaration grid into a self-contained HTML form
and upserts submitted JSON answers into a workbook table whose header rows
describe every flattened path.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			s, err := loadSettings()
			if err != nil {
				return err
			}
			cfg = s
			logger = newLogger(cmd.ErrOrStderr(), s.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/sheetform)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.sheetform)")
	root.PersistentFlags().StringVar(&flags.backend, "backend", "", "storage backend: sqlite, xlsx or memory (overrides config.yaml)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newCompileCmd(),
		newValidateCmd(),
		newTreeCmd(),
		newSaveCmd(),
		newGetCmd(),
		newListCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(root.ErrOrStderr(), color.New(color.FgRed).Sprint("error:"), err)
	return exitCode(err)
}

// systemError marks failures of the environment rather than the input.
type systemError struct{ err error }

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysErr(err error) error {
	if err == nil {
		return nil
	}
	return &systemError{err: err}
}

// exitCode maps an error to exitSysError when it is a system failure and
// exitUserError otherwise.
func exitCode(err error) int {
	var se *systemError
	if errors.As(err, &se) {
		return exitSysError
	}
	return exitUserError
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if flags.verbose {
		lvl = slog.LevelDebug
	} else if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// isNotFound reports whether err is any not-found error.
func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
