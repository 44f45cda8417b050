package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve <log-id>...",
	Short: "Approve pending log entries",
	Example: `
  # Approve two checked-out sessions
  clubhours approve 6f1c2d3e-... 9a8b7c6d-...
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		for _, id := range args {
			entry, err := eng.Approve(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Approved %s (%s, %.2f credited hours)\n", entry.ID, entry.MemberEmail, entry.CreditedHours)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)
}
