package cmd

import (
	"errors"
	"fmt"
	"strings"

	"clubhours/batch"
	"clubhours/config"

	"github.com/spf13/cobra"
)

var (
	importInputs   []string
	importFormat   string
	importSheet    string
	importBackfill = backfillAuto
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import historical logs from CSV, TSV or Excel files",
	Long: `Read source files and reconcile every row against the stored logs.

A row matches a stored log when the member email, the calendar day and the
credited hours (within 0.01) agree. Matches are merged field by field, everything
else is created. Importing the same file twice changes nothing.

Rows without a member email are skipped. Unparseable dates and timestamps fall
back to the import time and are logged.
When --format is omitted, format is inferred from each input file extension.`,
	Example: `
  # Import multiple exports
  clubhours import -i history.csv -i sheet-2024-11.xlsx

  # Import an Excel "Unicode Text" export and tag rows with a sheet id
  clubhours import -i sheet.txt --format tsv --sheet sheet-2024-11

  # Reclassify legacy activity types right after the import
  clubhours import -i legacy.csv --backfill on
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		shouldBackfill := importBackfill.enabled(cfg.Import.BackfillAfterImport)

		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		out := cmd.OutOrStdout()
		result, err := eng.ImportFiles(cmd.Context(), importInputs, importFormat, importSheet)
		if result != nil {
			fmt.Fprintf(out, "Import completed. Files: %d, Rows processed: %d, Created: %d, Updated: %d, Skipped: %d, Groups: %d\n",
				len(importInputs),
				result.Processed,
				result.Created,
				result.Updated,
				result.Skipped,
				result.Groups,
			)
		}
		if err != nil {
			var partial *batch.PartialCommitError
			if errors.As(err, &partial) {
				fmt.Fprintf(out, "Import stopped after %d of %d groups. Re-run the import to finish.\n", partial.GroupsCommitted, partial.TotalGroups)
			}
			return err
		}

		if shouldBackfill {
			updated, err := eng.BackfillLegacyTypes(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Backfill completed. Rows reclassified: %d\n", updated)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringArrayVarP(&importInputs, "input", "i", nil, "Input file path (repeatable)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Input format: csv|tsv|excel (optional, inferred from extension when omitted)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "Source sheet id for rows without a SourceSheet column")
	importCmd.Flags().Var(&importBackfill, "backfill", "Rewrite free-text activity types of all stored logs to their canonical kind once the import has committed: auto (import.backfill_after_import), on or off")

	_ = importCmd.MarkFlagRequired("input")
}

// backfillMode selects whether the legacy-type backfill runs after an import.
// auto defers to import.backfill_after_import.
type backfillMode string

const (
	backfillAuto backfillMode = "auto"
	backfillOn   backfillMode = "on"
	backfillOff  backfillMode = "off"
)

func (m *backfillMode) String() string {
	return string(*m)
}

func (m *backfillMode) Set(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		*m = backfillAuto
	case "on", "true", "yes":
		*m = backfillOn
	case "off", "false", "no":
		*m = backfillOff
	default:
		return fmt.Errorf("invalid backfill mode %q (supported: auto|on|off)", value)
	}
	return nil
}

func (m *backfillMode) Type() string {
	return "auto|on|off"
}

func (m backfillMode) enabled(configDefault bool) bool {
	switch m {
	case backfillOn:
		return true
	case backfillOff:
		return false
	default:
		return configDefault
	}
}
