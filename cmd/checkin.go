package cmd

import (
	"fmt"

	"clubhours/session"

	"github.com/spf13/cobra"
)

var (
	checkinEmail    string
	checkinName     string
	checkinType     string
	checkinActivity string
)

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Open a work session for a member",
	Long: `Open a timed work session. The session stays active with zero hours until it is checked out.

The activity type is classified on entry: names containing "cleaning" or "maint"
become Maintenance, names containing "trial" or "setup" become Setup, everything
else is Standard.`,
	Example: `
  # Start a maintenance session
  clubhours checkin --email ann@example.org --name "Ann" --type Maintenance --activity "Mat cleaning"
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		entry, err := eng.CheckIn(cmd.Context(), session.CheckInInput{
			MemberEmail:  checkinEmail,
			MemberName:   checkinName,
			ActivityType: checkinType,
			Activity:     checkinActivity,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Checked in. Session: %s, Member: %s, Type: %s, Started: %s\n",
			entry.ID,
			entry.MemberEmail,
			entry.ActivityType,
			entry.Date.Format("2006-01-02 15:04"),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkinCmd)

	checkinCmd.Flags().StringVar(&checkinEmail, "email", "", "Member email")
	checkinCmd.Flags().StringVar(&checkinName, "name", "", "Member display name")
	checkinCmd.Flags().StringVarP(&checkinType, "type", "t", "", "Activity type: Standard|Maintenance|Setup (free text is classified)")
	checkinCmd.Flags().StringVar(&checkinActivity, "activity", "", "Activity description")

	_ = checkinCmd.MarkFlagRequired("email")
}
