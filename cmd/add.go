package cmd

import (
	"fmt"
	"strings"

	"clubhours/internal/timeutil"
	"clubhours/session"
	"clubhours/worklog"

	"github.com/spf13/cobra"
)

var (
	addEmail    string
	addName     string
	addDate     string
	addHours    float64
	addType     string
	addActivity string
	addStatus   string
	addSheet    string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record hours directly without a timed session",
	Long: `Record a log entry entered by an administrator. Credited hours are computed from
the clock hours and the activity type. Entries are approved unless --status pending is given.`,
	Example: `
  # Record two hours of setup work for a past day
  clubhours add --email bob@example.org --date 2025-01-11 --hours 2 --type Setup --sheet sheet-2025-01
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		input := session.AddInput{
			MemberEmail:   addEmail,
			MemberName:    addName,
			ActivityType:  addType,
			Activity:      addActivity,
			ClockHours:    addHours,
			SourceSheetID: addSheet,
		}
		if strings.TrimSpace(addDate) != "" {
			input.Date, err = timeutil.ParseTimestamp(addDate, eng.Location())
			if err != nil {
				return fmt.Errorf("invalid --date value: %w", err)
			}
		}
		if strings.TrimSpace(addStatus) != "" {
			status, ok := worklog.ParseStatus(addStatus)
			if !ok {
				return fmt.Errorf("invalid --status value %q (supported: pending, approved)", addStatus)
			}
			input.Status = status
		}

		entry, err := eng.AddEntry(cmd.Context(), input)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s. Member: %s, Clock hours: %.2f, Credited hours: %.2f, Status: %s\n",
			entry.ID,
			entry.MemberEmail,
			entry.ClockHours,
			entry.CreditedHours,
			entry.Status,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addEmail, "email", "", "Member email")
	addCmd.Flags().StringVar(&addName, "name", "", "Member display name")
	addCmd.Flags().StringVar(&addDate, "date", "", "Work date (default: now)")
	addCmd.Flags().Float64Var(&addHours, "hours", 0, "Clock hours worked")
	addCmd.Flags().StringVarP(&addType, "type", "t", "", "Activity type: Standard|Maintenance|Setup")
	addCmd.Flags().StringVar(&addActivity, "activity", "", "Activity description")
	addCmd.Flags().StringVar(&addStatus, "status", "", "Status: pending|approved (default approved)")
	addCmd.Flags().StringVar(&addSheet, "sheet", "", "Source sign-in sheet id")

	_ = addCmd.MarkFlagRequired("email")
	_ = addCmd.MarkFlagRequired("hours")
}
