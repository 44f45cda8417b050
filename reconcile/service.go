// Package reconcile merges imported rows into the stored log set without
// creating duplicates, and rewrites legacy activity labels.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"time"

	"clubhours/batch"
	"clubhours/importer"
	"clubhours/internal/classify"
	"clubhours/internal/observability"
	"clubhours/internal/timeutil"
	"clubhours/worklog"

	"github.com/sirupsen/logrus"
)

// HoursTolerance is how far credited hours may differ for a row to still match a record.
const HoursTolerance = 0.01

// Querier loads the stored record set.
type Querier interface {
	Query(ctx context.Context, filter worklog.Filter) ([]worklog.Entry, error)
}

type Result struct {
	Processed int
	Created   int
	Updated   int
	Skipped   int
	Groups    int
}

type RunOptions struct {
	// Existing is the full stored record set. When nil, Run loads it first.
	Existing []worklog.Entry
	// SheetID stamps created records whose row names no source sheet.
	SheetID string
}

type Importer struct {
	repo      Querier
	committer *batch.Committer
	location  *time.Location
	log       logrus.FieldLogger
}

// NewImporter builds an importer that compares calendar days in loc.
func NewImporter(repo Querier, committer *batch.Committer, loc *time.Location, log logrus.FieldLogger) *Importer {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Importer{repo: repo, committer: committer, location: loc, log: log}
}

// rowOp records which planned operation a row was folded into.
type rowOp struct {
	created     bool
	createIndex int
	patchIndex  int
}

// committed reports whether the operation carrying this row reached the store.
// Creates are committed before updates, both in order.
func (op rowOp) committed(commit *batch.Result) bool {
	if commit == nil {
		return false
	}
	if op.createIndex >= 0 {
		return op.createIndex < len(commit.CreatedIDs)
	}
	return op.patchIndex < commit.Updated
}

// candidate is a record rows can match: stored (createIndex < 0) or created
// earlier in the same run.
type candidate struct {
	entry       worklog.Entry
	createIndex int
	patchIndex  int
}

// Run matches rows in input order and commits the resulting creates and
// updates through the batch committer. On a partial commit the returned
// Result counts only rows whose operation was in a committed group.
func (i *Importer) Run(ctx context.Context, rows []importer.Row, opts RunOptions) (*Result, error) {
	existing := opts.Existing
	if existing == nil {
		loaded, err := i.repo.Query(ctx, worklog.Filter{})
		if err != nil {
			return nil, fmt.Errorf("load existing logs: %w", err)
		}
		existing = loaded
	}

	candidates := make([]*candidate, 0, len(existing)+len(rows))
	for _, entry := range existing {
		candidates = append(candidates, &candidate{entry: entry, createIndex: -1, patchIndex: -1})
	}

	creates := make([]worklog.Entry, 0, len(rows))
	updates := make([]worklog.Patch, 0)
	ops := make([]rowOp, 0, len(rows))

	for _, row := range rows {
		match := i.findMatch(candidates, row)
		switch {
		case match == nil:
			entry := row.Entry(opts.SheetID)
			creates = append(creates, entry)
			candidates = append(candidates, &candidate{entry: entry, createIndex: len(creates) - 1, patchIndex: -1})
			ops = append(ops, rowOp{created: true, createIndex: len(creates) - 1, patchIndex: -1})
		case match.createIndex >= 0:
			merged := row.Patch("").Apply(match.entry)
			creates[match.createIndex] = merged
			match.entry = merged
			ops = append(ops, rowOp{createIndex: match.createIndex, patchIndex: -1})
		default:
			patch := row.Patch(match.entry.ID)
			if match.patchIndex >= 0 {
				patch = overlay(updates[match.patchIndex], patch)
				updates[match.patchIndex] = patch
			} else {
				updates = append(updates, patch)
				match.patchIndex = len(updates) - 1
			}
			match.entry = patch.Apply(match.entry)
			ops = append(ops, rowOp{createIndex: -1, patchIndex: match.patchIndex})
		}
	}

	commit, err := i.committer.Commit(ctx, creates, updates)
	result := &Result{}
	if commit != nil {
		result.Groups = commit.GroupsCommitted
	}
	for _, op := range ops {
		if !op.committed(commit) {
			continue
		}
		if op.created {
			result.Created++
		} else {
			result.Updated++
		}
		result.Processed++
	}
	if err != nil {
		return result, fmt.Errorf("commit import: %w", err)
	}

	observability.RecordImportRows("created", result.Created)
	observability.RecordImportRows("updated", result.Updated)
	i.log.WithFields(logrus.Fields{
		"rows":    len(rows),
		"created": result.Created,
		"updated": result.Updated,
		"groups":  result.Groups,
	}).Info("import reconciled")
	return result, nil
}

func (i *Importer) findMatch(candidates []*candidate, row importer.Row) *candidate {
	for _, c := range candidates {
		if Matches(c.entry, row, i.location) {
			return c
		}
	}
	return nil
}

// Matches reports whether row identifies the stored entry: same member,
// same calendar day in loc, credited hours within HoursTolerance.
func Matches(entry worklog.Entry, row importer.Row, loc *time.Location) bool {
	if worklog.NormalizeEmail(entry.MemberEmail) != row.MemberEmail {
		return false
	}
	if !timeutil.SameDayIn(entry.Date, row.Date, loc) {
		return false
	}
	return math.Abs(entry.CreditedHours-row.Hours) < HoursTolerance
}

// overlay returns base with every field next sets written over it.
func overlay(base, next worklog.Patch) worklog.Patch {
	if next.MemberEmail != nil {
		base.MemberEmail = next.MemberEmail
	}
	if next.MemberName != nil {
		base.MemberName = next.MemberName
	}
	if next.Date != nil {
		base.Date = next.Date
	}
	if next.ActivityType != nil {
		base.ActivityType = next.ActivityType
	}
	if next.Activity != nil {
		base.Activity = next.Activity
	}
	if next.ClockHours != nil {
		base.ClockHours = next.ClockHours
	}
	if next.CreditedHours != nil {
		base.CreditedHours = next.CreditedHours
	}
	if next.Status != nil {
		base.Status = next.Status
	}
	if next.SourceSheetID != nil {
		base.SourceSheetID = next.SourceSheetID
	}
	if next.Rollover != nil {
		base.Rollover = next.Rollover
	}
	if next.ImportedAt != nil {
		base.ImportedAt = next.ImportedAt
	}
	return base
}

// BackfillLegacyTypes rewrites stored free-text activity labels to their
// canonical kind. Only the type (and the maintenance flag derived from it)
// changes, and only for records whose label differs. It returns the number of
// records updated.
func BackfillLegacyTypes(ctx context.Context, repo Querier, committer *batch.Committer, log logrus.FieldLogger) (int, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	entries, err := repo.Query(ctx, worklog.Filter{})
	if err != nil {
		return 0, fmt.Errorf("load logs for backfill: %w", err)
	}

	updates := make([]worklog.Patch, 0)
	for _, entry := range entries {
		canonical, changed := classify.NeedsRewrite(entry.ActivityType)
		if !changed {
			continue
		}
		kind := canonical
		updates = append(updates, worklog.Patch{ID: entry.ID, ActivityType: &kind})
		log.WithFields(logrus.Fields{
			"id":   entry.ID,
			"from": entry.ActivityType,
			"to":   canonical,
		}).Debug("legacy activity type queued for rewrite")
	}

	commit, err := committer.Commit(ctx, nil, updates)
	if err != nil {
		updated := 0
		if commit != nil {
			updated = commit.Updated
		}
		return updated, fmt.Errorf("commit backfill: %w", err)
	}

	log.WithFields(logrus.Fields{"scanned": len(entries), "updated": len(updates)}).Info("legacy activity types backfilled")
	return len(updates), nil
}
