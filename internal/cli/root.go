package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
	noLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "bldm-localizer [dir]",
	Short: "Localize BLDM configuration exports for a new environment",
	Long: `Rewrite a BLDM XML or CAR configuration export so it works in a new
environment: prefix collector and distributor paths, point SFTP settings at a
new host, and mark collectors as stopped by default.

The original export is never modified. Results are written to the
"Modified files" folder, along with a mkdir script for every path the
localized configuration expects to exist.

Running without a subcommand starts the interactive workflow, same as
'bldm-localizer localize'.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return localizeCommand(cmd, firstArg(args), "", KindAny)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./.bldm-localizer.yaml, then the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write debug detail to the log file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noLog, "no-log", false, "don't write a log file for this run")
}

// Execute runs the root command and exits with the matching status code.
func Execute() {
	err := rootCmd.Execute()
	os.Exit(handleError(err, os.Stderr))
}

// handleError prints err to w and returns the process exit code. A cancelled
// run is a clean exit.
func handleError(err error, w io.Writer) int {
	if err == nil {
		return 0
	}
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}

	var e *errors.Error
	if stderrors.As(err, &e) && e.Code == errors.ErrCancelled {
		fmt.Fprintln(w, e.Message)
		return 0
	}

	if isUnknownCommandError(err) {
		if name := extractUnknownCommand(err); name != "" {
			fmt.Fprintf(w, "✗ Unknown command %q\n\n  Run 'bldm-localizer --help' to see the available commands\n", name)
			return 1
		}
	}

	fmt.Fprint(w, err.Error())
	if !strings.HasSuffix(err.Error(), "\n") {
		fmt.Fprintln(w)
	}
	return 1
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "bldm-localizer"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
