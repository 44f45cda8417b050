package web

import (
	"fmt"
	"strings"
	"time"

	"clubhours/internal/timeutil"
	"clubhours/session"
	"clubhours/worklog"
)

type EntryView struct {
	ID                 string  `json:"id"`
	MemberEmail        string  `json:"memberEmail"`
	MemberName         string  `json:"memberName,omitempty"`
	Date               string  `json:"date"`
	ActivityType       string  `json:"activityType"`
	IsMaintenance      bool    `json:"isMaintenanceFlag"`
	Activity           string  `json:"activity,omitempty"`
	ClockHours         float64 `json:"clockHours"`
	CreditedHours      float64 `json:"creditedHours"`
	Status             string  `json:"status"`
	SourceSheetID      string  `json:"sourceSheetId,omitempty"`
	FiscalYearRollover string  `json:"fiscalYearRollover"`
	ImportedAt         *string `json:"importedAt,omitempty"`
}

func BuildEntryView(entry worklog.Entry) EntryView {
	view := EntryView{
		ID:                 entry.ID,
		MemberEmail:        entry.MemberEmail,
		MemberName:         entry.MemberName,
		Date:               entry.Date.Format(time.RFC3339),
		ActivityType:       string(entry.ActivityType),
		IsMaintenance:      entry.IsMaintenance,
		Activity:           entry.Activity,
		ClockHours:         entry.ClockHours,
		CreditedHours:      entry.CreditedHours,
		Status:             string(entry.Status),
		SourceSheetID:      entry.SourceSheetID,
		FiscalYearRollover: string(entry.Rollover),
	}
	if entry.ImportedAt != nil {
		importedAt := entry.ImportedAt.Format(time.RFC3339)
		view.ImportedAt = &importedAt
	}
	return view
}

func BuildEntryViews(entries []worklog.Entry) []EntryView {
	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, BuildEntryView(entry))
	}
	return views
}

type checkInRequest struct {
	MemberEmail  string `json:"memberEmail"`
	MemberName   string `json:"memberName"`
	ActivityType string `json:"activityType"`
	Activity     string `json:"activity"`
}

func (r checkInRequest) input() session.CheckInInput {
	return session.CheckInInput{
		MemberEmail:  r.MemberEmail,
		MemberName:   r.MemberName,
		ActivityType: r.ActivityType,
		Activity:     r.Activity,
	}
}

type checkOutRequest struct {
	// SessionStart overrides the stored date as the session start. Optional.
	SessionStart string `json:"sessionStart"`
}

type creditResponse struct {
	ClockHours    float64 `json:"clockHours"`
	CreditedHours float64 `json:"creditedHours"`
}

type addLogRequest struct {
	MemberEmail   string  `json:"memberEmail"`
	MemberName    string  `json:"memberName"`
	Date          string  `json:"date"`
	ActivityType  string  `json:"activityType"`
	Activity      string  `json:"activity"`
	ClockHours    float64 `json:"clockHours"`
	Status        string  `json:"status"`
	SourceSheetID string  `json:"sourceSheetId"`
}

func (r addLogRequest) input(loc *time.Location) (session.AddInput, error) {
	input := session.AddInput{
		MemberEmail:   r.MemberEmail,
		MemberName:    r.MemberName,
		ActivityType:  r.ActivityType,
		Activity:      r.Activity,
		ClockHours:    r.ClockHours,
		SourceSheetID: r.SourceSheetID,
	}
	if strings.TrimSpace(r.Date) != "" {
		date, err := timeutil.ParseTimestamp(r.Date, loc)
		if err != nil {
			return session.AddInput{}, fmt.Errorf("%w: invalid date: %v", worklog.ErrValidation, err)
		}
		input.Date = date
	}
	if strings.TrimSpace(r.Status) != "" {
		status, ok := worklog.ParseStatus(r.Status)
		if !ok {
			return session.AddInput{}, fmt.Errorf("%w: unknown status %q", worklog.ErrValidation, r.Status)
		}
		input.Status = status
	}
	return input, nil
}

// editLogRequest mirrors worklog.Patch. Absent fields are left unchanged.
type editLogRequest struct {
	MemberEmail        *string  `json:"memberEmail"`
	MemberName         *string  `json:"memberName"`
	Date               *string  `json:"date"`
	ActivityType       *string  `json:"activityType"`
	Activity           *string  `json:"activity"`
	ClockHours         *float64 `json:"clockHours"`
	CreditedHours      *float64 `json:"creditedHours"`
	Status             *string  `json:"status"`
	SourceSheetID      *string  `json:"sourceSheetId"`
	FiscalYearRollover *string  `json:"fiscalYearRollover"`
}

func (r editLogRequest) patch(id string, loc *time.Location) (worklog.Patch, error) {
	patch := worklog.Patch{
		ID:            id,
		MemberEmail:   r.MemberEmail,
		MemberName:    r.MemberName,
		Activity:      r.Activity,
		ClockHours:    r.ClockHours,
		CreditedHours: r.CreditedHours,
		SourceSheetID: r.SourceSheetID,
	}
	if r.Date != nil {
		date, err := timeutil.ParseTimestamp(*r.Date, loc)
		if err != nil {
			return worklog.Patch{}, fmt.Errorf("%w: invalid date: %v", worklog.ErrValidation, err)
		}
		patch.Date = &date
	}
	if r.ActivityType != nil {
		kind := worklog.Kind(strings.TrimSpace(*r.ActivityType))
		patch.ActivityType = &kind
	}
	if r.Status != nil {
		status, ok := worklog.ParseStatus(*r.Status)
		if !ok {
			return worklog.Patch{}, fmt.Errorf("%w: unknown status %q", worklog.ErrValidation, *r.Status)
		}
		patch.Status = &status
	}
	if r.FiscalYearRollover != nil {
		rollover := worklog.ParseRollover(*r.FiscalYearRollover)
		patch.Rollover = &rollover
	}
	return patch, nil
}

type bulkLogRequest struct {
	Entries []addLogRequest `json:"entries"`
}

type bulkLogResponse struct {
	GroupsCommitted int      `json:"groupsCommitted"`
	TotalGroups     int      `json:"totalGroups"`
	CreatedIDs      []string `json:"createdIds"`
}

type importResponse struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Groups    int `json:"groups"`
}
