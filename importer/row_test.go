package importer

import (
	"errors"
	"io"
	"testing"
	"time"

	"clubhours/worklog"

	"github.com/sirupsen/logrus"
)

var fixedNow = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

func newTestCoercer() *Coercer {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewCoercer(log, WithNow(func() time.Time { return fixedNow }), WithLocation(time.UTC))
}

func record(values map[string]string) Record {
	return RecordFromMap(2, values)
}

func TestCoerce_FullRow(t *testing.T) {
	t.Parallel()

	row, err := newTestCoercer().Coerce(record(map[string]string{
		"MemberEmail":        " Ann@Example.com ",
		"MemberName":         "Ann",
		"Date":               "2024-03-01",
		"importedAt":         "2024-03-05T08:00:00Z",
		"Hours":              "5",
		"clockHours":         "2,5",
		"Activity":           "Ring setup",
		"type":               "Trial Setup",
		"Status":             "Pending",
		"SourceSheet":        "sheet-9",
		"FiscalYearRollover": "yes",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if row.MemberEmail != "ann@example.com" {
		t.Fatalf("expected normalized email, got %q", row.MemberEmail)
	}
	if row.Hours != 5 || row.ClockHours != 2.5 {
		t.Fatalf("unexpected hours: %v / %v", row.Hours, row.ClockHours)
	}
	if !row.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %s", row.Date)
	}
	if row.ActivityType == nil || *row.ActivityType != worklog.KindSetup {
		t.Fatalf("expected setup kind, got %v", row.ActivityType)
	}
	if row.Status == nil || *row.Status != worklog.StatusPending {
		t.Fatalf("expected pending status, got %v", row.Status)
	}
	if row.Rollover == nil || *row.Rollover != worklog.RolloverYes {
		t.Fatalf("expected rollover yes, got %v", row.Rollover)
	}
	if row.MemberName == nil || *row.MemberName != "Ann" || row.SourceSheetID == nil || *row.SourceSheetID != "sheet-9" {
		t.Fatalf("unexpected optional fields: %+v", row)
	}
}

func TestCoerce_NegativeHoursFallBack(t *testing.T) {
	t.Parallel()

	row, err := newTestCoercer().Coerce(record(map[string]string{
		"MemberEmail": "a@x.com",
		"Date":        "2024-03-01",
		"Hours":       "-3",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Hours != 0 || row.ClockHours != 0 {
		t.Fatalf("expected negative hours replaced by 0, got %v / %v", row.Hours, row.ClockHours)
	}

	row, err = newTestCoercer().Coerce(record(map[string]string{
		"MemberEmail": "a@x.com",
		"Hours":       "4",
		"clockHours":  "-2",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Hours != 4 || row.ClockHours != 4 {
		t.Fatalf("expected negative clock hours to fall back to Hours, got %v / %v", row.Hours, row.ClockHours)
	}
}

func TestCoerce_MissingEmailIsSkipped(t *testing.T) {
	t.Parallel()

	_, err := newTestCoercer().Coerce(record(map[string]string{"MemberName": "Nobody", "Hours": "3"}))
	var skip *SkipError
	if !errors.As(err, &skip) {
		t.Fatalf("expected SkipError, got %v", err)
	}
	if skip.RowNumber != 2 {
		t.Fatalf("expected row number 2, got %d", skip.RowNumber)
	}
}

func TestCoerce_EmailAlias(t *testing.T) {
	t.Parallel()

	row, err := newTestCoercer().Coerce(record(map[string]string{"Email": "b@x.com"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.MemberEmail != "b@x.com" {
		t.Fatalf("expected alias email, got %q", row.MemberEmail)
	}
}

func TestCoerce_Fallbacks(t *testing.T) {
	t.Parallel()

	row, err := newTestCoercer().Coerce(record(map[string]string{
		"MemberEmail": "a@x.com",
		"Hours":       "lots",
		"Date":        "someday",
		"Status":      "archived",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Hours != 0 || row.ClockHours != 0 {
		t.Fatalf("expected zero hours fallback, got %v / %v", row.Hours, row.ClockHours)
	}
	if !row.Date.Equal(fixedNow) || !row.ImportedAt.Equal(fixedNow) {
		t.Fatalf("expected now fallback, got date=%s importedAt=%s", row.Date, row.ImportedAt)
	}
	if row.Status == nil || *row.Status != worklog.StatusApproved {
		t.Fatalf("expected approved fallback, got %v", row.Status)
	}
	if row.MemberName != nil || row.ActivityType != nil || row.SourceSheetID != nil {
		t.Fatalf("expected absent optionals to stay nil: %+v", row)
	}
}

func TestCoerce_ClockHoursFallsBackToHours(t *testing.T) {
	t.Parallel()

	row, err := newTestCoercer().Coerce(record(map[string]string{"MemberEmail": "a@x.com", "Hours": "4.5"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.ClockHours != 4.5 {
		t.Fatalf("expected clock hours 4.5, got %v", row.ClockHours)
	}
}

func TestCoerce_MaintenanceFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flag  string
		kind  string
		want  worklog.Kind
		isNil bool
	}{
		{name: "true flag", flag: "TRUE", want: worklog.KindMaintenance},
		{name: "yes flag lower", flag: "yes", want: worklog.KindMaintenance},
		{name: "false flag", flag: "FALSE", isNil: true},
		{name: "type wins", flag: "TRUE", kind: "Regular", want: worklog.KindStandard},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			values := map[string]string{"MemberEmail": "a@x.com", "isMaintenance": tc.flag}
			if tc.kind != "" {
				values["type"] = tc.kind
			}
			row, err := newTestCoercer().Coerce(record(values))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.isNil {
				if row.ActivityType != nil {
					t.Fatalf("expected no kind, got %s", *row.ActivityType)
				}
				return
			}
			if row.ActivityType == nil || *row.ActivityType != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, row.ActivityType)
			}
		})
	}
}

func TestRowEntryAndPatch(t *testing.T) {
	t.Parallel()

	row, err := newTestCoercer().Coerce(record(map[string]string{
		"MemberEmail": "a@x.com",
		"Date":        "2024-03-01",
		"Hours":       "6",
		"clockHours":  "3",
		"type":        "cleaning",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := row.Entry("sheet-1")
	if entry.Status != worklog.StatusApproved || entry.Rollover != worklog.RolloverNo {
		t.Fatalf("unexpected defaults: %+v", entry)
	}
	if !entry.IsMaintenance || entry.SourceSheetID != "sheet-1" || entry.CreditedHours != 6 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	existing := worklog.Entry{
		ID:          "x",
		MemberEmail: "a@x.com",
		MemberName:  "Kept Name",
		Activity:    "Kept activity",
		Status:      worklog.StatusPending,
	}
	merged := row.Patch("x").Apply(existing)
	if merged.MemberName != "Kept Name" || merged.Activity != "Kept activity" || merged.Status != worklog.StatusPending {
		t.Fatalf("expected absent fields to be preserved, got %+v", merged)
	}
	if merged.CreditedHours != 6 || merged.ClockHours != 3 || merged.ActivityType != worklog.KindMaintenance {
		t.Fatalf("expected row values to be written, got %+v", merged)
	}
	if merged.ImportedAt == nil || !merged.ImportedAt.Equal(fixedNow) {
		t.Fatalf("expected importedAt to be written, got %v", merged.ImportedAt)
	}
}
