package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/passgap/internal/core"
)

type compareOptions struct {
	strict      bool
	output      string
	summaryOnly bool
}

func newCompareCommand(global *globalOptions) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare <source-a.csv> <source-b.csv>",
		Short: "Write the entries of source A that are missing from source B",
		Long: `Compares two exports and writes the entries of source A with no match in
source B as an Apple Passwords CSV. By default entries match on domain and
username; --strict matches on the full URL instead.

Counts are printed to stderr.`,
		Example: `  passgap compare chrome.csv apple.csv
  passgap compare --strict -o - bitwarden.csv apple.csv > missing.csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, args, global, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "match on the full URL instead of the domain")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file ("-" for stdout, default missing-passwords-<date>.csv)`)
	cmd.Flags().BoolVar(&opts.summaryOnly, "summary-only", false, "print the counts without writing an export")
	return cmd
}

func runCompare(cmd *cobra.Command, args []string, global *globalOptions, opts *compareOptions) error {
	var srcA, srcB core.Source

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		srcA, err = loadExport(ctx, args[0], global.maxFileSize)
		return err
	})
	g.Go(func() error {
		var err error
		srcB, err = loadExport(ctx, args[1], global.maxFileSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	missing := core.ComputeMissing(srcA.Records, srcB.Records, opts.strict)
	summary := core.Summarize(srcA.Records, srcB.Records, missing, opts.strict)

	stderr := cmd.ErrOrStderr()
	printSummary(stderr, summary)

	if opts.summaryOnly {
		return nil
	}

	body := core.GenerateCSV(missing)
	switch opts.output {
	case "-":
		_, err := io.WriteString(cmd.OutOrStdout(), body)
		return err
	case "":
		opts.output = core.ExportFilename(time.Now())
	}

	// The export holds passwords in clear text.
	if err := os.WriteFile(opts.output, []byte(body), 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(stderr, "Wrote %d entries to %s\n", summary.Missing, opts.output)
	return nil
}

func printSummary(w io.Writer, s core.Summary) {
	mode := "domain + username"
	if s.Strict {
		mode = "url + username"
	}
	fmt.Fprintf(w, "Source A: %d entries\n", s.SourceA)
	fmt.Fprintf(w, "Source B: %d entries\n", s.SourceB)
	fmt.Fprintf(w, "Missing:  %d (matched on %s)\n", s.Missing, mode)
}
