package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"clubhours/output"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportMode   string
	exportOutput string
	exportYear   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export logs or member summaries to CSV/Excel",
	Long: `Export stored logs.

Modes:
- logs: every stored log in the import schema, so the file can be imported again
- summary: one row per member with lifetime, fiscal-year, special and maintenance
  hours plus standard and blue voucher counts

Output format can be selected explicitly via --format or inferred from --output extension.`,
	Example: `
  # Export all logs to CSV
  clubhours export --output ./logs.csv

  # Export all logs to Excel
  clubhours export --output ./logs.xlsx

  # Export the member summary for the fiscal year starting October 2024
  clubhours export --mode summary --year 2024 --output ./summary.xlsx
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := exportFormat
		if strings.TrimSpace(format) == "" {
			format = detectExportFormat(exportOutput)
		}

		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		out := cmd.OutOrStdout()
		mode := strings.TrimSpace(strings.ToLower(exportMode))
		switch mode {
		case "", "logs":
			writer, writerErr := output.WriterForFormat(format)
			if writerErr != nil {
				return writerErr
			}
			rows, err := eng.ExportAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := writer.Write(exportOutput, rows); err != nil {
				return err
			}
			fmt.Fprintf(out, "Export completed. Rows: %d, Mode: logs, Format: %s, File: %s\n", len(rows), format, exportOutput)
		case "summary":
			aggregates, err := eng.GetAggregates(cmd.Context(), exportYear)
			if err != nil {
				return err
			}
			if err := output.WriteMemberSummaries(exportOutput, format, aggregates); err != nil {
				return err
			}
			fmt.Fprintf(out, "Export completed. Members: %d, Fiscal year: %d, Mode: summary, Format: %s, File: %s\n",
				len(aggregates.Members), aggregates.FiscalYear, format, exportOutput)
		default:
			return fmt.Errorf("unsupported export mode: %s (supported: logs, summary)", exportMode)
		}
		return nil
	},
}

func detectExportFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "csv":
		return "csv"
	case "xlsx", "xlsm", "xls":
		return "excel"
	default:
		return "csv"
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportMode, "mode", "logs", "Export mode: logs|summary")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv|excel (optional, inferred from output extension)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	exportCmd.Flags().IntVar(&exportYear, "year", 0, "Fiscal start year for summary mode (default: current fiscal year)")

	_ = exportCmd.MarkFlagRequired("output")
}
