package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/passgap/internal/core"
)

func newInspectCommand(global *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file.csv>",
		Short: "Show how an export's columns are recognised",
		Long: `Prints the header mapping detected for an export, the headers that were
ignored and the number of entries that would be compared. Fields with no
matching column are listed with the header names that would be recognised.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := loadExport(cmd.Context(), args[0], global.maxFileSize)
			if err != nil {
				return err
			}
			summary := src.Describe("", filepath.Base(args[0]))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return printInspect(cmd, summary, unmatchedFields(src.Mapping))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// unmatchedFields returns the export fields that no column was mapped to.
func unmatchedFields(m core.HeaderMapping) []core.Field {
	var out []core.Field
	for _, f := range core.ExportFields {
		if _, ok := m.ColumnFor(f); !ok {
			out = append(out, f)
		}
	}
	return out
}

func printInspect(cmd *cobra.Command, s core.SlotSummary, unmatched []core.Field) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:    %s\n", s.FileName)
	fmt.Fprintf(out, "Entries: %d\n\n", s.Records)

	if len(s.Columns) == 0 {
		fmt.Fprintln(out, "No columns recognised.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tHEADER\tFIELD")
		for _, c := range s.Columns {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", c.Index, c.Header, c.Field)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.Unmapped) > 0 {
		fmt.Fprintf(out, "\nIgnored: %s\n", strings.Join(s.Unmapped, ", "))
	}

	if len(unmatched) > 0 {
		fmt.Fprintln(out, "\nNot found:")
		for _, f := range unmatched {
			fmt.Fprintf(out, "  %-9s accepts %s\n", f, strings.Join(core.Synonyms(f), ", "))
		}
	}
	return nil
}
