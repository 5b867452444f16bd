// Package cli implements the passgap command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/passgap/internal/core"
	"github.com/JonMunkholm/passgap/internal/logging"
)

const defaultMaxFileSize = 10 << 20

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	logLevel    string
	logFormat   string
	maxFileSize int64
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// NewRootCommand builds the passgap command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "passgap",
		Short: "Find the passwords in one export that are missing from another",
		Long: `passgap compares two password manager CSV exports and lists the entries
of the first that have no counterpart in the second. The missing entries
can be written as a CSV ready to import into Apple Passwords.`,
		Version:       fmt.Sprintf("%s %s/%s", version(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.maxFileSize < 0 {
				return errors.New("--max-file-size must not be negative")
			}
			// Logs go to stderr; stdout may carry the export.
			logging.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	pf.Int64Var(&opts.maxFileSize, "max-file-size", defaultMaxFileSize, "maximum export size in bytes (0 disables the limit)")

	root.AddCommand(newCompareCommand(opts))
	root.AddCommand(newInspectCommand(opts))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %s\n", core.FormatUserError(err))
		fmt.Fprintf(root.ErrOrStderr(), "Detail: %v\n", err)
		os.Exit(1)
	}
}

// loadExport reads and parses one export file. An empty file gives a
// source with no records.
func loadExport(ctx context.Context, path string, maxBytes int64) (core.Source, error) {
	if err := ctx.Err(); err != nil {
		return core.Source{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return core.Source{}, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	src, err := core.ParseReader(f, maxBytes)
	if err != nil {
		return core.Source{}, fmt.Errorf("%s: %w", path, err)
	}

	logging.WithFields(ctx, "file", path).Info("export loaded",
		"records", len(src.Records),
		"mapped_columns", len(src.Mapping),
	)
	return src, nil
}
