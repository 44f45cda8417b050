package report

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"clubhours/internal/timeutil"
	"clubhours/storage"
	"clubhours/worklog"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fy2024 = timeutil.FiscalYearStarting(2024, time.UTC)

func day(year int, month time.Month, d, hour, minute int) time.Time {
	return time.Date(year, month, d, hour, minute, 0, 0, time.UTC)
}

func entry(email string, date time.Time, kind worklog.Kind, clock float64, status worklog.Status) worklog.Entry {
	return worklog.Entry{
		MemberEmail:   email,
		Date:          date,
		ActivityType:  kind,
		ClockHours:    clock,
		CreditedHours: worklog.Credit(clock, kind),
		Status:        status,
	}.Normalize()
}

func TestStandardVouchers(t *testing.T) {
	tests := []struct {
		hours float64
		want  int
	}{
		{hours: 0, want: 0},
		{hours: 49.99, want: 0},
		{hours: 50, want: 2},
		{hours: 74.99, want: 2},
		{hours: 75, want: 3},
		{hours: 100, want: 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StandardVouchers(tt.hours), "hours %.2f", tt.hours)
	}
}

func TestBlueVouchers_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, 0, BlueVouchers(0))
	assert.Equal(t, 0, BlueVouchers(3.99))
	assert.Equal(t, 1, BlueVouchers(4))
	assert.Equal(t, 2, BlueVouchers(12))
	assert.Equal(t, 2, BlueVouchers(19.99))
	assert.Equal(t, 3, BlueVouchers(20))
}

func TestFiscalYearHours_WindowBoundary(t *testing.T) {
	entries := []worklog.Entry{
		entry("a@x.com", day(2024, time.September, 30, 23, 59), worklog.KindStandard, 3, worklog.StatusApproved),
		entry("a@x.com", day(2024, time.October, 1, 0, 0), worklog.KindStandard, 5, worklog.StatusApproved),
		entry("a@x.com", day(2025, time.September, 30, 23, 59), worklog.KindStandard, 7, worklog.StatusApproved),
		entry("a@x.com", day(2025, time.October, 1, 0, 0), worklog.KindStandard, 11, worklog.StatusApproved),
	}

	fiscal := FiscalYearHours(entries, fy2024)
	assert.Equal(t, 12.0, fiscal["a@x.com"])

	lifetime := LifetimeHours(entries)
	assert.Equal(t, 26.0, lifetime["a@x.com"])
}

func TestSpecialAndMaintenanceHoursUseClockHours(t *testing.T) {
	entries := []worklog.Entry{
		entry("a@x.com", day(2024, time.November, 2, 9, 0), worklog.KindMaintenance, 3, worklog.StatusApproved),
		entry("a@x.com", day(2024, time.November, 9, 9, 0), worklog.KindSetup, 2, worklog.StatusApproved),
		entry("a@x.com", day(2024, time.November, 16, 9, 0), worklog.KindStandard, 4, worklog.StatusApproved),
		entry("a@x.com", day(2023, time.November, 16, 9, 0), worklog.KindMaintenance, 8, worklog.StatusApproved),
	}

	assert.Equal(t, 5.0, SpecialHours(entries, fy2024)["a@x.com"])
	assert.Equal(t, 3.0, MaintenanceClockHours(entries, fy2024)["a@x.com"])
}

func TestBuild_MemberTable(t *testing.T) {
	entries := []worklog.Entry{
		entry("a@x.com", day(2024, time.October, 5, 9, 0), worklog.KindMaintenance, 12, worklog.StatusApproved),
		entry("a@x.com", day(2024, time.December, 5, 9, 0), worklog.KindStandard, 27, worklog.StatusPending),
		entry("", day(2024, time.December, 6, 9, 0), worklog.KindStandard, 1, worklog.StatusApproved),
		entry("b@x.com", day(2025, time.January, 3, 9, 0), worklog.KindStandard, 0, worklog.StatusActive),
	}
	entries[0].MemberName = "Ann"

	aggregates := Build(entries, fy2024)
	require.Len(t, aggregates.Members, 3)
	assert.Equal(t, 2024, aggregates.FiscalYear)
	assert.Equal(t, 1, aggregates.Active)
	assert.Equal(t, 1, aggregates.Pending)

	ann, ok := aggregates.Member("A@X.com")
	require.True(t, ok)
	assert.Equal(t, "Ann", ann.MemberName)
	assert.Equal(t, 51.0, ann.FiscalYearHours)
	assert.Equal(t, 12.0, ann.SpecialHours)
	assert.Equal(t, 2, ann.StandardVouchers)
	assert.Equal(t, 2, ann.BlueVouchers)

	unknown, ok := aggregates.Member("")
	require.True(t, ok)
	assert.Equal(t, UnknownMember, unknown.MemberEmail)
	assert.Equal(t, 1.0, unknown.LifetimeHours)
}

func TestQueuesSortNewestFirst(t *testing.T) {
	entries := []worklog.Entry{
		entry("a@x.com", day(2025, time.January, 1, 9, 0), worklog.KindStandard, 0, worklog.StatusActive),
		entry("b@x.com", day(2025, time.January, 3, 9, 0), worklog.KindStandard, 0, worklog.StatusActive),
		entry("c@x.com", day(2025, time.January, 2, 9, 0), worklog.KindStandard, 1, worklog.StatusPending),
		entry("d@x.com", day(2025, time.January, 4, 9, 0), worklog.KindStandard, 1, worklog.StatusApproved),
	}
	entries[3].SourceSheetID = "sheet-1"

	active := ActiveSessions(entries)
	require.Len(t, active, 2)
	assert.Equal(t, "b@x.com", active[0].MemberEmail)

	pending := PendingQueue(entries)
	require.Len(t, pending, 1)
	assert.Equal(t, "c@x.com", pending[0].MemberEmail)

	assert.Len(t, BySheet(entries, "sheet-1"), 1)
	assert.Empty(t, BySheet(entries, ""))
}

func TestOptionsWindow(t *testing.T) {
	opts := Options{AsOf: day(2025, time.February, 1, 0, 0), Location: time.UTC}
	assert.Equal(t, fy2024, opts.Window())

	opts.FiscalYear = 2022
	assert.Equal(t, 2022, opts.Window().Start.Year())
	assert.Equal(t, time.October, opts.Window().Start.Month())
}

func TestCache_RecomputesAfterChange(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	ctx := context.Background()

	store := storage.NewMemoryStore(
		entry("a@x.com", day(2024, time.November, 1, 9, 0), worklog.KindStandard, 40, worklog.StatusApproved),
	)
	cache, err := NewCache(ctx, store, time.Minute, log)
	require.NoError(t, err)
	defer cache.Close()

	opts := Options{FiscalYear: 2024, Location: time.UTC}
	first, err := cache.Aggregates(ctx, opts)
	require.NoError(t, err)
	member, _ := first.Member("a@x.com")
	assert.Equal(t, 0, member.StandardVouchers)

	_, err = store.Insert(ctx, entry("a@x.com", day(2024, time.December, 1, 9, 0), worklog.KindStandard, 10, worklog.StatusApproved))
	require.NoError(t, err)

	second, err := cache.Aggregates(ctx, opts)
	require.NoError(t, err)
	member, _ = second.Member("a@x.com")
	assert.Equal(t, 50.0, member.FiscalYearHours)
	assert.Equal(t, 2, member.StandardVouchers)
}

func TestCache_SeesWritesFromAnotherStoreOnTheSameFile(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "clubhours_test.db")
	served, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	defer served.Close()
	other, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	defer other.Close()

	cache, err := NewCache(ctx, served, time.Hour, log)
	require.NoError(t, err)
	defer cache.Close()

	opts := Options{FiscalYear: 2024, Location: time.UTC}
	before, err := cache.Aggregates(ctx, opts)
	require.NoError(t, err)
	assert.Empty(t, before.Members)

	_, err = other.Insert(ctx, entry("a@x.com", day(2024, time.November, 1, 9, 0), worklog.KindStandard, 60, worklog.StatusApproved))
	require.NoError(t, err)

	after, err := cache.Aggregates(ctx, opts)
	require.NoError(t, err)
	member, ok := after.Member("a@x.com")
	require.True(t, ok)
	assert.Equal(t, 60.0, member.FiscalYearHours)
	assert.Equal(t, 2, member.StandardVouchers)
}
