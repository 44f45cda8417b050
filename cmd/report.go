package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"clubhours/report"

	"github.com/spf13/cobra"
)

var (
	reportYear   int
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print member totals and voucher eligibility for a fiscal year",
	Long: `Print the per-member aggregate table for one fiscal year (October 1 to September 30).

Standard vouchers: none below 50 fiscal-year hours, then one per 25 hours.
Blue vouchers: one per 8 maintenance clock hours, rounded half up.`,
	Example: `
  # Current fiscal year as a table
  clubhours report

  # Fiscal year starting October 2024 as JSON
  clubhours report --year 2024 --format json
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		aggregates, err := eng.GetAggregates(cmd.Context(), reportYear)
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(reportFormat)) {
		case "", "table":
			return writeReportTable(cmd.OutOrStdout(), aggregates)
		case "json":
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(aggregates)
		default:
			return fmt.Errorf("unsupported report format: %s (supported: table, json)", reportFormat)
		}
	},
}

func writeReportTable(out io.Writer, aggregates report.Aggregates) error {
	fmt.Fprintf(out, "Fiscal year %d (%s to %s). Active sessions: %d, Pending approval: %d\n\n",
		aggregates.FiscalYear,
		aggregates.WindowStart.Format("2006-01-02"),
		aggregates.WindowEnd.AddDate(0, 0, -1).Format("2006-01-02"),
		aggregates.Active,
		aggregates.Pending,
	)

	table := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(table, "Member\tName\tLifetime\tFiscal year\tSpecial\tMaint. clock\tVouchers\tBlue\t")
	for _, member := range aggregates.Members {
		fmt.Fprintf(table, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%d\t\n",
			member.MemberEmail,
			member.MemberName,
			member.LifetimeHours,
			member.FiscalYearHours,
			member.SpecialHours,
			member.MaintenanceClockHours,
			member.StandardVouchers,
			member.BlueVouchers,
		)
	}
	return table.Flush()
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntVar(&reportYear, "year", 0, "Fiscal start year, e.g. 2024 for Oct 2024 to Sep 2025 (default: current)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "table", "Output format: table|json")
}
