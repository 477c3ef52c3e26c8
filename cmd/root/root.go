// Package root builds CodeRAG's cobra command tree.
//
// Grounded on the teacher's cmd/root/root.go: a persistent --debug flag
// gating slog output, PersistentPreRunE wiring logging before any
// subcommand runs, SilenceErrors/SilenceUsage so command errors are
// printed once, by the caller, not by cobra itself.
package root

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/pkg/logging"
)

type rootFlags struct {
	debugMode   bool
	logFilePath string
	logFile     io.Closer
}

// NewRootCmd builds CodeRAG's command tree: `coderag serve` (the default
// action) plus `coderag version`.
func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "coderag",
		Short: "coderag - local documentation retrieval for AI coding assistants",
		Long:  "coderag indexes documentation sites into a local vector store and serves search_docs/list_docs/crawl_docs/manage_docs/reload_docs over MCP stdio.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.setupLogging(); err != nil {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: levelFor(flags.debugMode),
				})))
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("failed to close log file", "error", err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to debug log file (default: ~/.coderag/coderag.debug.log; only used with --debug)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the command tree, printing any resulting error exactly
// once and translating it into a process exit code the way the teacher's
// Execute/processErr pair does.
func Execute(stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}
	return nil
}

func levelFor(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// setupLogging configures slog. Without --debug, logs are discarded
// entirely: coderag's stdout/stdin are the MCP transport, so nothing may
// write there, and stderr should stay quiet unless the operator asked
// for diagnostics. With --debug, logs go to a rotating file (spec's
// ambient logging stack, grounded on the teacher's pkg/logging).
func (f *rootFlags) setupLogging() error {
	if !f.debugMode {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	path := cmp.Or(strings.TrimSpace(f.logFilePath), filepath.Join(home, ".coderag", "coderag.debug.log"))

	logFile, err := logging.NewRotatingFile(path)
	if err != nil {
		return err
	}
	f.logFile = logFile

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return nil
}
