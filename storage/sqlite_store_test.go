package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"clubhours/worklog"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "clubhours_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// repositories runs each contract test against every local store.
func repositories(t *testing.T) map[string]func(t *testing.T) worklog.Repository {
	t.Helper()
	return map[string]func(t *testing.T) worklog.Repository{
		"sqlite": func(t *testing.T) worklog.Repository { return openTestSQLite(t) },
		"memory": func(t *testing.T) worklog.Repository { return NewMemoryStore() },
	}
}

func TestRepository_InsertAssignsIDAndNormalizes(t *testing.T) {
	t.Parallel()

	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			imported := mustParseRFC3339(t, "2025-01-05T12:00:00Z")
			inserted, err := repo.Insert(ctx, worklog.Entry{
				MemberEmail:   " Ann@Example.com ",
				MemberName:    "Ann",
				Date:          mustParseRFC3339(t, "2025-01-04T09:30:00+01:00"),
				ActivityType:  worklog.KindMaintenance,
				ClockHours:    1.5,
				CreditedHours: 3,
				Status:        worklog.StatusApproved,
				SourceSheetID: "4821",
				ImportedAt:    &imported,
			})
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
			if inserted.ID == "" {
				t.Fatalf("expected generated id")
			}

			got, err := repo.Get(ctx, inserted.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.MemberEmail != "ann@example.com" {
				t.Fatalf("expected normalized email, got %q", got.MemberEmail)
			}
			if !got.IsMaintenance || got.Rollover != worklog.RolloverNo {
				t.Fatalf("unexpected derived fields: %+v", got)
			}
			if !got.Date.Equal(mustParseRFC3339(t, "2025-01-04T08:30:00Z")) {
				t.Fatalf("unexpected date: %s", got.Date)
			}
			if got.ImportedAt == nil || !got.ImportedAt.Equal(imported) {
				t.Fatalf("unexpected importedAt: %v", got.ImportedAt)
			}
			if got.CreditedHours != 3 || got.ClockHours != 1.5 || got.SourceSheetID != "4821" {
				t.Fatalf("unexpected stored values: %+v", got)
			}
		})
	}
}

func TestRepository_GetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			_, err := repo.Get(context.Background(), "missing")
			if !errors.Is(err, worklog.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, worklog.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on delete, got %v", err)
			}
		})
	}
}

func TestRepository_UpdateHonorsExpectedStatus(t *testing.T) {
	t.Parallel()

	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			entry, err := repo.Insert(ctx, worklog.Entry{
				MemberEmail: "a@x.com",
				Date:        mustParseRFC3339(t, "2025-02-01T10:00:00Z"),
				Status:      worklog.StatusActive,
			})
			if err != nil {
				t.Fatalf("insert: %v", err)
			}

			active := worklog.StatusActive
			pending := worklog.StatusPending
			patch := worklog.Patch{ID: entry.ID, Status: &pending, ExpectStatus: &active}

			updated, err := repo.Update(ctx, patch)
			if err != nil {
				t.Fatalf("first update: %v", err)
			}
			if updated.Status != worklog.StatusPending {
				t.Fatalf("expected pending, got %s", updated.Status)
			}

			if _, err := repo.Update(ctx, patch); !errors.Is(err, worklog.ErrNotFound) {
				t.Fatalf("expected ErrNotFound for stale precondition, got %v", err)
			}
		})
	}
}

func TestRepository_QueryFiltersAndSortsDescending(t *testing.T) {
	t.Parallel()

	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			_, err := repo.CommitGroup(ctx, []worklog.Entry{
				{MemberEmail: "a@x.com", Date: mustParseRFC3339(t, "2025-01-01T10:00:00Z"), Status: worklog.StatusPending},
				{MemberEmail: "a@x.com", Date: mustParseRFC3339(t, "2025-03-01T10:00:00Z"), Status: worklog.StatusPending},
				{MemberEmail: "b@x.com", Date: mustParseRFC3339(t, "2025-02-01T10:00:00Z"), Status: worklog.StatusApproved, SourceSheetID: "77"},
			}, nil)
			if err != nil {
				t.Fatalf("commit group: %v", err)
			}

			pending, err := repo.Query(ctx, worklog.Filter{Status: worklog.StatusPending})
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(pending) != 2 {
				t.Fatalf("expected 2 pending entries, got %d", len(pending))
			}
			if !pending[0].Date.After(pending[1].Date) {
				t.Fatalf("expected descending date order, got %s then %s", pending[0].Date, pending[1].Date)
			}

			bySheet, err := repo.Query(ctx, worklog.Filter{SourceSheetID: "77"})
			if err != nil {
				t.Fatalf("query by sheet: %v", err)
			}
			if len(bySheet) != 1 || bySheet[0].MemberEmail != "b@x.com" {
				t.Fatalf("unexpected sheet query result: %+v", bySheet)
			}

			window, err := repo.Query(ctx, worklog.Filter{
				From: mustParseRFC3339(t, "2025-01-15T00:00:00Z"),
				To:   mustParseRFC3339(t, "2025-03-01T10:00:00Z"),
			})
			if err != nil {
				t.Fatalf("query by window: %v", err)
			}
			if len(window) != 1 || window[0].MemberEmail != "b@x.com" {
				t.Fatalf("unexpected window query result: %+v", window)
			}
		})
	}
}

func TestRepository_CommitGroupIsAtomic(t *testing.T) {
	t.Parallel()

	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			name := "ghost"
			_, err := repo.CommitGroup(ctx,
				[]worklog.Entry{{MemberEmail: "a@x.com", Date: mustParseRFC3339(t, "2025-01-01T10:00:00Z")}},
				[]worklog.Patch{{ID: "does-not-exist", MemberName: &name}},
			)
			if !errors.Is(err, worklog.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			all, err := repo.Query(ctx, worklog.Filter{})
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(all) != 0 {
				t.Fatalf("expected failed group to leave no rows, got %d", len(all))
			}
		})
	}
}

func TestRepository_SubscribeDeliversSnapshots(t *testing.T) {
	t.Parallel()

	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			var snapshots [][]worklog.Entry
			cancel := repo.Subscribe(worklog.Filter{Status: worklog.StatusActive}, func(entries []worklog.Entry) {
				snapshots = append(snapshots, entries)
			})

			if _, err := repo.Insert(ctx, worklog.Entry{MemberEmail: "a@x.com", Date: time.Now(), Status: worklog.StatusActive}); err != nil {
				t.Fatalf("insert: %v", err)
			}
			cancel()
			if _, err := repo.Insert(ctx, worklog.Entry{MemberEmail: "b@x.com", Date: time.Now(), Status: worklog.StatusActive}); err != nil {
				t.Fatalf("insert: %v", err)
			}

			if len(snapshots) != 2 {
				t.Fatalf("expected initial and one change snapshot, got %d", len(snapshots))
			}
			if len(snapshots[0]) != 0 || len(snapshots[1]) != 1 {
				t.Fatalf("unexpected snapshot sizes: %d, %d", len(snapshots[0]), len(snapshots[1]))
			}
		})
	}
}

func TestRepository_WatchAndRevision(t *testing.T) {
	t.Parallel()

	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			signals := 0
			cancel := repo.Watch(func() { signals++ })

			start, err := repo.Revision(ctx)
			if err != nil {
				t.Fatalf("revision: %v", err)
			}
			entry, err := repo.Insert(ctx, worklog.Entry{MemberEmail: "a@x.com", Date: time.Now(), Status: worklog.StatusActive})
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
			if err := repo.Delete(ctx, entry.ID); err != nil {
				t.Fatalf("delete: %v", err)
			}
			cancel()
			if _, err := repo.Insert(ctx, worklog.Entry{MemberEmail: "b@x.com", Date: time.Now()}); err != nil {
				t.Fatalf("insert: %v", err)
			}

			end, err := repo.Revision(ctx)
			if err != nil {
				t.Fatalf("revision: %v", err)
			}
			if signals != 2 {
				t.Fatalf("expected 2 watch signals before cancel, got %d", signals)
			}
			if end <= start {
				t.Fatalf("expected revision to grow, got %d -> %d", start, end)
			}
		})
	}
}

func TestSQLiteStore_RevisionSeesOtherConnections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clubhours_test.db")
	reader, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	t.Cleanup(func() { _ = reader.Close() })
	writer, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	t.Cleanup(func() { _ = writer.Close() })
	ctx := context.Background()

	before, err := reader.Revision(ctx)
	if err != nil {
		t.Fatalf("revision: %v", err)
	}
	if _, err := writer.CommitGroup(ctx, []worklog.Entry{
		{MemberEmail: "a@x.com", Date: mustParseRFC3339(t, "2025-01-01T10:00:00Z")},
		{MemberEmail: "b@x.com", Date: mustParseRFC3339(t, "2025-01-02T10:00:00Z")},
	}, nil); err != nil {
		t.Fatalf("commit group: %v", err)
	}

	after, err := reader.Revision(ctx)
	if err != nil {
		t.Fatalf("revision: %v", err)
	}
	if after != before+2 {
		t.Fatalf("expected revision %d, got %d", before+2, after)
	}
}

func TestSQLiteStore_DeleteAll(t *testing.T) {
	t.Parallel()

	store := openTestSQLite(t)
	ctx := context.Background()

	if _, err := store.CommitGroup(ctx, []worklog.Entry{
		{MemberEmail: "a@x.com", Date: mustParseRFC3339(t, "2025-01-01T10:00:00Z")},
		{MemberEmail: "b@x.com", Date: mustParseRFC3339(t, "2025-01-02T10:00:00Z")},
	}, nil); err != nil {
		t.Fatalf("commit group: %v", err)
	}

	deleted, err := store.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", deleted)
	}
}

func TestSQLiteStore_PreservesLegacyTypeLabel(t *testing.T) {
	t.Parallel()

	store := openTestSQLite(t)
	ctx := context.Background()

	entry, err := store.Insert(ctx, worklog.Entry{
		MemberEmail:  "a@x.com",
		Date:         mustParseRFC3339(t, "2023-05-01T10:00:00Z"),
		ActivityType: worklog.Kind("cleaning duty"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ActivityType != worklog.Kind("cleaning duty") {
		t.Fatalf("expected legacy label to survive storage, got %q", got.ActivityType)
	}
}

func mustParseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed
}
