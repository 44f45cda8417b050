package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Reclassify stored logs that carry legacy activity labels",
	Long: `Scan every stored log and rewrite legacy activity labels such as "cleaning duty"
or "MAINT" to Standard, Maintenance or Setup. The maintenance flag follows the new type.

Running it again finds nothing to change.`,
	Example: `
  clubhours backfill
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		updated, err := eng.BackfillLegacyTypes(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backfill completed. Rows reclassified: %d\n", updated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
