package cmd

import (
	"fmt"
	"strings"
	"time"

	"clubhours/internal/timeutil"

	"github.com/spf13/cobra"
)

var checkoutStart string

var checkoutCmd = &cobra.Command{
	Use:   "checkout <session-id>",
	Short: "Close an active session and credit its hours",
	Long: `Close an active session. Elapsed time counts at least 0.25 hours and is
rounded half up to two decimals, then multiplied by 2 for Maintenance and Setup.

The session moves to pending and waits for approval. Checking out a session
that is not active fails without changing it.`,
	Example: `
  # Check out using the stored check-in time
  clubhours checkout 6f1c2d3e-...

  # Check out with a corrected start time
  clubhours checkout 6f1c2d3e-... --start "2025-03-10 17:45"
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		var start time.Time
		if strings.TrimSpace(checkoutStart) != "" {
			start, err = timeutil.ParseTimestamp(checkoutStart, eng.Location())
			if err != nil {
				return fmt.Errorf("invalid --start value: %w", err)
			}
		}

		credit, err := eng.CheckOut(cmd.Context(), args[0], start)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Checked out. Session: %s, Clock hours: %.2f, Credited hours: %.2f, Status: pending\n",
			args[0],
			credit.ClockHours,
			credit.CreditedHours,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)

	checkoutCmd.Flags().StringVar(&checkoutStart, "start", "", "Session start override (default: stored check-in time)")
}
