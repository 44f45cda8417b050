// Package report computes per-member hour totals and voucher eligibility from
// a snapshot of log entries. Every function is a pure read over its input.
package report

import (
	"math"
	"sort"
	"time"

	"clubhours/internal/timeutil"
	"clubhours/worklog"
)

// UnknownMember is the bucket for entries without a member email.
const UnknownMember = "unknown"

const (
	voucherThresholdHours = 50.0
	voucherBlockHours     = 25.0
	blueVoucherBlockHours = 8.0
)

// MemberTotals is one member's row in the aggregate table.
type MemberTotals struct {
	MemberEmail           string  `json:"memberEmail"`
	MemberName            string  `json:"memberName,omitempty"`
	LifetimeHours         float64 `json:"lifetimeHours"`
	FiscalYearHours       float64 `json:"fiscalYearHours"`
	SpecialHours          float64 `json:"specialHours"`
	MaintenanceClockHours float64 `json:"maintenanceClockHours"`
	StandardVouchers      int     `json:"standardVouchers"`
	BlueVouchers          int     `json:"blueVouchers"`
}

type Aggregates struct {
	FiscalYear  int            `json:"fiscalYear"`
	WindowStart time.Time      `json:"windowStart"`
	WindowEnd   time.Time      `json:"windowEnd"`
	Members     []MemberTotals `json:"members"`
	Active      int            `json:"activeSessions"`
	Pending     int            `json:"pendingApprovals"`
}

// Options controls which fiscal year Build reports on.
type Options struct {
	// AsOf picks the fiscal year containing this instant. Zero means now.
	AsOf time.Time
	// FiscalYear, when non-zero, is the calendar year the fiscal year starts in
	// and takes precedence over AsOf.
	FiscalYear int
	Location   *time.Location
}

// Window resolves the fiscal window the options describe.
func (o Options) Window() timeutil.Window {
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	if o.FiscalYear != 0 {
		return timeutil.FiscalYearStarting(o.FiscalYear, loc)
	}
	asOf := o.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return timeutil.FiscalWindow(asOf.In(loc))
}

func memberKey(entry worklog.Entry) string {
	if entry.MemberEmail == "" {
		return UnknownMember
	}
	return entry.MemberEmail
}

// LifetimeHours sums credited hours per member across all entries.
func LifetimeHours(entries []worklog.Entry) map[string]float64 {
	totals := make(map[string]float64)
	for _, entry := range entries {
		totals[memberKey(entry)] += entry.CreditedHours
	}
	return totals
}

// FiscalYearHours sums credited hours per member for entries dated inside window.
func FiscalYearHours(entries []worklog.Entry, window timeutil.Window) map[string]float64 {
	totals := make(map[string]float64)
	for _, entry := range entries {
		if window.Contains(entry.Date) {
			totals[memberKey(entry)] += entry.CreditedHours
		}
	}
	return totals
}

// SpecialHours sums clock hours of Maintenance and Setup entries inside window.
func SpecialHours(entries []worklog.Entry, window timeutil.Window) map[string]float64 {
	totals := make(map[string]float64)
	for _, entry := range entries {
		if window.Contains(entry.Date) && entry.ActivityType.Special() {
			totals[memberKey(entry)] += entry.ClockHours
		}
	}
	return totals
}

// MaintenanceClockHours sums clock hours of Maintenance entries inside window.
func MaintenanceClockHours(entries []worklog.Entry, window timeutil.Window) map[string]float64 {
	totals := make(map[string]float64)
	for _, entry := range entries {
		if window.Contains(entry.Date) && entry.ActivityType == worklog.KindMaintenance {
			totals[memberKey(entry)] += entry.ClockHours
		}
	}
	return totals
}

// StandardVouchers is zero below 50 fiscal hours, then one per full 25 hours.
func StandardVouchers(fiscalYearHours float64) int {
	if fiscalYearHours < voucherThresholdHours {
		return 0
	}
	return int(math.Floor(fiscalYearHours / voucherBlockHours))
}

// BlueVouchers is maintenance clock hours over 8, rounded half up.
func BlueVouchers(maintenanceClockHours float64) int {
	return int(math.Floor(maintenanceClockHours/blueVoucherBlockHours + 0.5))
}

// ActiveSessions returns open sessions, newest first.
func ActiveSessions(entries []worklog.Entry) []worklog.Entry {
	return byStatus(entries, worklog.StatusActive)
}

// PendingQueue returns checked-out sessions awaiting approval, newest first.
func PendingQueue(entries []worklog.Entry) []worklog.Entry {
	return byStatus(entries, worklog.StatusPending)
}

// BySheet returns the entries transcribed from one sign-in sheet, newest first.
func BySheet(entries []worklog.Entry, sheetID string) []worklog.Entry {
	result := make([]worklog.Entry, 0)
	for _, entry := range entries {
		if sheetID != "" && entry.SourceSheetID == sheetID {
			result = append(result, entry)
		}
	}
	sortNewestFirst(result)
	return result
}

func byStatus(entries []worklog.Entry, status worklog.Status) []worklog.Entry {
	result := make([]worklog.Entry, 0)
	for _, entry := range entries {
		if entry.Status == status {
			result = append(result, entry)
		}
	}
	sortNewestFirst(result)
	return result
}

func sortNewestFirst(entries []worklog.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}

// Build computes the full aggregate table for the fiscal window. Members are
// sorted by email; the unknown bucket sorts like any other key.
func Build(entries []worklog.Entry, window timeutil.Window) Aggregates {
	lifetime := LifetimeHours(entries)
	fiscal := FiscalYearHours(entries, window)
	special := SpecialHours(entries, window)
	maintenance := MaintenanceClockHours(entries, window)

	names := make(map[string]string, len(lifetime))
	latest := make(map[string]time.Time, len(lifetime))
	active, pending := 0, 0
	for _, entry := range entries {
		key := memberKey(entry)
		if entry.MemberName != "" && !entry.Date.Before(latest[key]) {
			names[key] = entry.MemberName
			latest[key] = entry.Date
		}
		switch entry.Status {
		case worklog.StatusActive:
			active++
		case worklog.StatusPending:
			pending++
		}
	}

	keys := make([]string, 0, len(lifetime))
	for key := range lifetime {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	members := make([]MemberTotals, 0, len(keys))
	for _, key := range keys {
		fiscalHours := timeutil.RoundHours(fiscal[key])
		maintenanceHours := timeutil.RoundHours(maintenance[key])
		members = append(members, MemberTotals{
			MemberEmail:           key,
			MemberName:            names[key],
			LifetimeHours:         timeutil.RoundHours(lifetime[key]),
			FiscalYearHours:       fiscalHours,
			SpecialHours:          timeutil.RoundHours(special[key]),
			MaintenanceClockHours: maintenanceHours,
			StandardVouchers:      StandardVouchers(fiscal[key]),
			BlueVouchers:          BlueVouchers(maintenance[key]),
		})
	}

	return Aggregates{
		FiscalYear:  window.Start.Year(),
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Members:     members,
		Active:      active,
		Pending:     pending,
	}
}

// Member returns the totals for one member, if present.
func (a Aggregates) Member(email string) (MemberTotals, bool) {
	key := worklog.NormalizeEmail(email)
	if key == "" {
		key = UnknownMember
	}
	for _, member := range a.Members {
		if member.MemberEmail == key {
			return member, true
		}
	}
	return MemberTotals{}, false
}
