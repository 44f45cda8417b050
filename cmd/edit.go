package cmd

import (
	"fmt"
	"time"

	"clubhours/internal/timeutil"
	"clubhours/worklog"

	"github.com/spf13/cobra"
)

// editValues holds the edit flag values. Only flags set on the command line
// become part of the patch.
type editValues struct {
	email    string
	name     string
	date     string
	kind     string
	activity string
	clock    float64
	credited float64
	status   string
	sheet    string
	rollover string
}

var editFlags editValues

var editCmd = &cobra.Command{
	Use:   "edit <log-id>",
	Short: "Correct fields of a log entry",
	Long: `Apply an administrative correction to one log entry. Flags that are not given
keep their stored value.

Changing --type or --clock recomputes credited hours unless --credited is also given.`,
	Example: `
  # Reclassify an entry as maintenance
  clubhours edit 6f1c2d3e-... --type Maintenance

  # Fix clock hours and mark the entry as rolled over
  clubhours edit 6f1c2d3e-... --clock 1.5 --rollover Yes
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, release, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		patch, err := buildEditPatch(args[0], editFlags, cmd.Flags().Changed, eng.Location())
		if err != nil {
			return err
		}
		entry, err := eng.Edit(cmd.Context(), patch)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s. Type: %s, Clock hours: %.2f, Credited hours: %.2f, Status: %s\n",
			entry.ID,
			entry.ActivityType,
			entry.ClockHours,
			entry.CreditedHours,
			entry.Status,
		)
		return nil
	},
}

func buildEditPatch(id string, values editValues, changed func(name string) bool, loc *time.Location) (worklog.Patch, error) {
	patch := worklog.Patch{ID: id}
	if changed("email") {
		patch.MemberEmail = &values.email
	}
	if changed("name") {
		patch.MemberName = &values.name
	}
	if changed("date") {
		date, err := timeutil.ParseTimestamp(values.date, loc)
		if err != nil {
			return worklog.Patch{}, fmt.Errorf("invalid --date value: %w", err)
		}
		patch.Date = &date
	}
	if changed("type") {
		kind := worklog.Kind(values.kind)
		patch.ActivityType = &kind
	}
	if changed("activity") {
		patch.Activity = &values.activity
	}
	if changed("clock") {
		patch.ClockHours = &values.clock
	}
	if changed("credited") {
		patch.CreditedHours = &values.credited
	}
	if changed("status") {
		status, ok := worklog.ParseStatus(values.status)
		if !ok {
			return worklog.Patch{}, fmt.Errorf("invalid --status value %q (supported: active, pending, approved)", values.status)
		}
		patch.Status = &status
	}
	if changed("sheet") {
		patch.SourceSheetID = &values.sheet
	}
	if changed("rollover") {
		rollover := worklog.ParseRollover(values.rollover)
		patch.Rollover = &rollover
	}
	return patch, nil
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringVar(&editFlags.email, "email", "", "Member email")
	editCmd.Flags().StringVar(&editFlags.name, "name", "", "Member display name")
	editCmd.Flags().StringVar(&editFlags.date, "date", "", "Work date")
	editCmd.Flags().StringVarP(&editFlags.kind, "type", "t", "", "Activity type: Standard|Maintenance|Setup")
	editCmd.Flags().StringVar(&editFlags.activity, "activity", "", "Activity description")
	editCmd.Flags().Float64Var(&editFlags.clock, "clock", 0, "Clock hours")
	editCmd.Flags().Float64Var(&editFlags.credited, "credited", 0, "Credited hours (skips recomputation)")
	editCmd.Flags().StringVar(&editFlags.status, "status", "", "Status: active|pending|approved")
	editCmd.Flags().StringVar(&editFlags.sheet, "sheet", "", "Source sign-in sheet id")
	editCmd.Flags().StringVar(&editFlags.rollover, "rollover", "", "Fiscal year rollover: Yes|No")
}
