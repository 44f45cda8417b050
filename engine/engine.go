// Package engine wires the session lifecycle, import reconciliation, batch
// commits and aggregation over one repository.
package engine

import (
	"context"
	"fmt"
	"time"

	"clubhours/batch"
	"clubhours/importer"
	"clubhours/output"
	"clubhours/reconcile"
	"clubhours/report"
	"clubhours/session"
	"clubhours/worklog"

	"github.com/sirupsen/logrus"
)

type Options struct {
	// GroupLimit caps operations per atomic group. Zero uses batch.DefaultLimit.
	GroupLimit int
	// Location is used for calendar-day matching and fiscal windows.
	Location *time.Location
	// CacheTTL bounds how long an aggregate table is reused without changes.
	CacheTTL time.Duration
	Now      func() time.Time
	Logger   logrus.FieldLogger
}

type Engine struct {
	repo      worklog.Repository
	sessions  *session.Service
	committer *batch.Committer
	importer  *reconcile.Importer
	coercer   *importer.Coercer
	cache     *report.Cache
	location  *time.Location
	now       func() time.Time
	log       logrus.FieldLogger
}

func New(ctx context.Context, repo worklog.Repository, opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	cache, err := report.NewCache(ctx, repo, opts.CacheTTL, log.WithField("component", "report"))
	if err != nil {
		return nil, err
	}

	committer := batch.NewCommitter(repo, opts.GroupLimit, log.WithField("component", "batch"))
	return &Engine{
		repo:      repo,
		sessions:  session.NewService(repo, log.WithField("component", "session"), session.WithClock(now)),
		committer: committer,
		importer:  reconcile.NewImporter(repo, committer, loc, log.WithField("component", "import")),
		coercer:   importer.NewCoercer(log.WithField("component", "import"), importer.WithNow(now), importer.WithLocation(loc)),
		cache:     cache,
		location:  loc,
		now:       now,
		log:       log,
	}, nil
}

func (e *Engine) Close() error {
	return e.cache.Close()
}

// Location is the zone used for calendar days and fiscal windows.
func (e *Engine) Location() *time.Location {
	return e.location
}

func (e *Engine) CheckIn(ctx context.Context, input session.CheckInInput) (worklog.Entry, error) {
	return e.sessions.CheckIn(ctx, input)
}

func (e *Engine) CheckOut(ctx context.Context, id string, sessionStart time.Time) (session.Credit, error) {
	return e.sessions.CheckOut(ctx, id, sessionStart)
}

func (e *Engine) AddEntry(ctx context.Context, input session.AddInput) (worklog.Entry, error) {
	return e.sessions.AddEntry(ctx, input)
}

// AddBulk stores entries transcribed from one sign-in sheet. Every entry is
// approved, stamped with sheetID and committed through the batch coordinator.
func (e *Engine) AddBulk(ctx context.Context, inputs []session.AddInput, sheetID string) (*batch.Result, error) {
	now := e.now()
	creates := make([]worklog.Entry, 0, len(inputs))
	for i, input := range inputs {
		input.Status = worklog.StatusApproved
		input.SourceSheetID = sheetID
		entry, err := session.BuildEntry(input, now)
		if err != nil {
			return nil, fmt.Errorf("bulk entry %d: %w", i+1, err)
		}
		creates = append(creates, entry)
	}

	result, err := e.committer.Commit(ctx, creates, nil)
	if err != nil {
		return result, fmt.Errorf("add bulk: %w", err)
	}
	e.log.WithFields(logrus.Fields{"sheet": sheetID, "entries": len(creates)}).Info("bulk entries added")
	return result, nil
}

func (e *Engine) Edit(ctx context.Context, patch worklog.Patch) (worklog.Entry, error) {
	return e.sessions.Edit(ctx, patch)
}

func (e *Engine) Approve(ctx context.Context, id string) (worklog.Entry, error) {
	return e.sessions.Approve(ctx, id)
}

func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.sessions.Delete(ctx, id)
}

// ImportRows coerces raw records and reconciles them against the stored set.
// Records without a member email are counted as skipped.
func (e *Engine) ImportRows(ctx context.Context, records []importer.Record, sheetID string) (*reconcile.Result, error) {
	rows, skipped := e.coercer.CoerceAll(records)
	return e.importRows(ctx, rows, len(skipped), sheetID)
}

// ImportFiles reads CSV, TSV or Excel files and imports their rows.
func (e *Engine) ImportFiles(ctx context.Context, paths []string, format, sheetID string) (*reconcile.Result, error) {
	read, err := importer.ReadFiles(paths, format, e.coercer)
	if err != nil {
		return nil, err
	}
	return e.importRows(ctx, read.Rows, len(read.Skipped), sheetID)
}

func (e *Engine) importRows(ctx context.Context, rows []importer.Row, skipped int, sheetID string) (*reconcile.Result, error) {
	result, err := e.importer.Run(ctx, rows, reconcile.RunOptions{SheetID: sheetID})
	if result != nil {
		result.Skipped = skipped
	}
	return result, err
}

// ExportAll returns every stored record in the export schema.
func (e *Engine) ExportAll(ctx context.Context) ([]output.ExportRow, error) {
	entries, err := e.repo.Query(ctx, worklog.Filter{})
	if err != nil {
		return nil, fmt.Errorf("export logs: %w", err)
	}
	return output.ExportRows(entries), nil
}

// GetAggregates reports on the fiscal year starting in October of fiscalYear,
// or on the current fiscal year when fiscalYear is 0.
func (e *Engine) GetAggregates(ctx context.Context, fiscalYear int) (report.Aggregates, error) {
	return e.cache.Aggregates(ctx, report.Options{
		AsOf:       e.now(),
		FiscalYear: fiscalYear,
		Location:   e.location,
	})
}

func (e *Engine) BackfillLegacyTypes(ctx context.Context) (int, error) {
	return reconcile.BackfillLegacyTypes(ctx, e.repo, e.committer, e.log.WithField("component", "backfill"))
}

// ActiveSessions lists open sessions, newest first.
func (e *Engine) ActiveSessions(ctx context.Context) ([]worklog.Entry, error) {
	entries, err := e.byFilter(ctx, worklog.Filter{Status: worklog.StatusActive})
	if err != nil {
		return nil, err
	}
	return report.ActiveSessions(entries), nil
}

// PendingQueue lists checked-out sessions awaiting approval, newest first.
func (e *Engine) PendingQueue(ctx context.Context) ([]worklog.Entry, error) {
	entries, err := e.byFilter(ctx, worklog.Filter{Status: worklog.StatusPending})
	if err != nil {
		return nil, err
	}
	return report.PendingQueue(entries), nil
}

func (e *Engine) LogsBySheet(ctx context.Context, sheetID string) ([]worklog.Entry, error) {
	if sheetID == "" {
		return []worklog.Entry{}, nil
	}
	entries, err := e.byFilter(ctx, worklog.Filter{SourceSheetID: sheetID})
	if err != nil {
		return nil, err
	}
	return report.BySheet(entries, sheetID), nil
}

func (e *Engine) MemberLogs(ctx context.Context, email string) ([]worklog.Entry, error) {
	if worklog.NormalizeEmail(email) == "" {
		return nil, fmt.Errorf("member logs: %w: member email is required", worklog.ErrValidation)
	}
	return e.byFilter(ctx, worklog.Filter{MemberEmail: email})
}

func (e *Engine) Get(ctx context.Context, id string) (worklog.Entry, error) {
	return e.repo.Get(ctx, id)
}

func (e *Engine) byFilter(ctx context.Context, filter worklog.Filter) ([]worklog.Entry, error) {
	entries, err := e.repo.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	return entries, nil
}
