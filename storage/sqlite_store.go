package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubhours/worklog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timestampLayout keeps stored timestamps fixed-width so TEXT ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db   *sql.DB
	subs *subscriptions
}

var _ worklog.Repository = (*SQLiteStore)(nil)

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	// A single connection serialises writers and avoids SQLITE_BUSY between groups.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, subs: newSubscriptions()}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS logs (
	id TEXT PRIMARY KEY,
	member_email TEXT NOT NULL,
	member_name TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL,
	activity_type TEXT NOT NULL,
	is_maintenance INTEGER NOT NULL DEFAULT 0,
	activity TEXT NOT NULL DEFAULT '',
	clock_hours REAL NOT NULL DEFAULT 0 CHECK(clock_hours >= 0),
	credited_hours REAL NOT NULL DEFAULT 0 CHECK(credited_hours >= 0),
	status TEXT NOT NULL CHECK(status IN ('active', 'pending', 'approved')),
	source_sheet_id TEXT NOT NULL DEFAULT '',
	fiscal_year_rollover TEXT NOT NULL DEFAULT 'No',
	imported_at TEXT,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_logs_member_date ON logs(member_email, date);
CREATE INDEX IF NOT EXISTS idx_logs_status ON logs(status);
CREATE TABLE IF NOT EXISTS logs_revision (
	id INTEGER PRIMARY KEY CHECK(id = 1),
	revision INTEGER NOT NULL
);
INSERT OR IGNORE INTO logs_revision (id, revision) VALUES (1, 0);
CREATE TRIGGER IF NOT EXISTS logs_revision_insert AFTER INSERT ON logs
BEGIN
	UPDATE logs_revision SET revision = revision + 1 WHERE id = 1;
END;
CREATE TRIGGER IF NOT EXISTS logs_revision_update AFTER UPDATE ON logs
BEGIN
	UPDATE logs_revision SET revision = revision + 1 WHERE id = 1;
END;
CREATE TRIGGER IF NOT EXISTS logs_revision_delete AFTER DELETE ON logs
BEGIN
	UPDATE logs_revision SET revision = revision + 1 WHERE id = 1;
END;
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const selectColumns = `
SELECT
	id,
	member_email,
	member_name,
	date,
	activity_type,
	is_maintenance,
	activity,
	clock_hours,
	credited_hours,
	status,
	source_sheet_id,
	fiscal_year_rollover,
	imported_at
FROM logs`

const insertStmt = `
INSERT INTO logs (
	id,
	member_email,
	member_name,
	date,
	activity_type,
	is_maintenance,
	activity,
	clock_hours,
	credited_hours,
	status,
	source_sheet_id,
	fiscal_year_rollover,
	imported_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

const updateStmt = `
UPDATE logs
SET member_email = ?,
	member_name = ?,
	date = ?,
	activity_type = ?,
	is_maintenance = ?,
	activity = ?,
	clock_hours = ?,
	credited_hours = ?,
	status = ?,
	source_sheet_id = ?,
	fiscal_year_rollover = ?,
	imported_at = ?
WHERE id = ?;`

func (s *SQLiteStore) Query(ctx context.Context, filter worklog.Filter) ([]worklog.Entry, error) {
	where, args := buildWhere(filter)
	rows, err := s.db.QueryContext(ctx, selectColumns+where+" ORDER BY date DESC, id;", args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	entries := make([]worklog.Entry, 0, 256)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}

	return entries, nil
}

func (s *SQLiteStore) Subscribe(filter worklog.Filter, onChange func([]worklog.Entry)) func() {
	return s.subs.add(filter, onChange, s.Query)
}

func (s *SQLiteStore) Watch(onChange func()) func() {
	return s.subs.watch(onChange)
}

// Revision reads the counter the logs triggers maintain, so commits from
// other processes on the same file are visible too.
func (s *SQLiteStore) Revision(ctx context.Context) (int64, error) {
	var revision int64
	if err := s.db.QueryRowContext(ctx, `SELECT revision FROM logs_revision WHERE id = 1;`).Scan(&revision); err != nil {
		return 0, fmt.Errorf("read logs revision: %w", err)
	}
	return revision, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (worklog.Entry, error) {
	return getEntry(ctx, s.db, id)
}

// Insert stores one entry and returns it with its assigned ID.
func (s *SQLiteStore) Insert(ctx context.Context, entry worklog.Entry) (worklog.Entry, error) {
	entry = prepareCreate(entry)
	if _, err := s.db.ExecContext(ctx, insertStmt, insertArgs(entry)...); err != nil {
		return worklog.Entry{}, fmt.Errorf("insert log %s: %w", entry.ID, err)
	}
	s.subs.notify(s.Query)
	return entry, nil
}

// Update applies a patch inside a transaction so the status precondition is atomic.
func (s *SQLiteStore) Update(ctx context.Context, patch worklog.Patch) (worklog.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("begin transaction: %w", err)
	}

	updated, err := applyPatch(ctx, tx, patch)
	if err != nil {
		_ = tx.Rollback()
		return worklog.Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return worklog.Entry{}, fmt.Errorf("commit update transaction: %w", err)
	}

	s.subs.notify(s.Query)
	return updated, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("log id must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM logs WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete log %s: %w", id, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read deleted row count: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete log %s: %w", id, worklog.ErrNotFound)
	}

	s.subs.notify(s.Query)
	return nil
}

// CommitGroup writes creates and updates in one transaction.
func (s *SQLiteStore) CommitGroup(ctx context.Context, creates []worklog.Entry, updates []worklog.Patch) ([]string, error) {
	if len(creates) == 0 && len(updates) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(creates))
	for _, entry := range creates {
		entry = prepareCreate(entry)
		if _, err := stmt.ExecContext(ctx, insertArgs(entry)...); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert log %s: %w", entry.ID, err)
		}
		ids = append(ids, entry.ID)
	}

	for _, patch := range updates {
		if _, err := applyPatch(ctx, tx, patch); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit group transaction: %w", err)
	}

	s.subs.notify(s.Query)
	return ids, nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM logs;`)
	if err != nil {
		return 0, fmt.Errorf("delete logs: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read deleted row count: %w", err)
	}
	s.subs.notify(s.Query)
	return rows, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getEntry(ctx context.Context, q queryer, id string) (worklog.Entry, error) {
	if strings.TrimSpace(id) == "" {
		return worklog.Entry{}, fmt.Errorf("log id must not be empty")
	}

	entry, err := scanEntry(q.QueryRowContext(ctx, selectColumns+" WHERE id = ?;", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worklog.Entry{}, fmt.Errorf("log %s: %w", id, worklog.ErrNotFound)
		}
		return worklog.Entry{}, fmt.Errorf("query log %s: %w", id, err)
	}
	return entry, nil
}

func applyPatch(ctx context.Context, tx *sql.Tx, patch worklog.Patch) (worklog.Entry, error) {
	current, err := getEntry(ctx, tx, patch.ID)
	if err != nil {
		return worklog.Entry{}, err
	}
	if !patch.Allows(current) {
		return worklog.Entry{}, fmt.Errorf("log %s has status %s: %w", patch.ID, current.Status, worklog.ErrNotFound)
	}

	updated := patch.Apply(current)
	args := append(insertArgs(updated)[1:], updated.ID)
	if _, err := tx.ExecContext(ctx, updateStmt, args...); err != nil {
		return worklog.Entry{}, fmt.Errorf("update log %s: %w", patch.ID, err)
	}
	return updated, nil
}

func prepareCreate(entry worklog.Entry) worklog.Entry {
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	return entry.Normalize()
}

func insertArgs(entry worklog.Entry) []any {
	var importedAt any
	if entry.ImportedAt != nil {
		importedAt = formatTime(*entry.ImportedAt)
	}

	return []any{
		entry.ID,
		entry.MemberEmail,
		entry.MemberName,
		formatTime(entry.Date),
		string(entry.ActivityType),
		boolToInt(entry.IsMaintenance),
		entry.Activity,
		entry.ClockHours,
		entry.CreditedHours,
		string(entry.Status),
		entry.SourceSheetID,
		string(entry.Rollover),
		importedAt,
	}
}

func scanEntry(row scanner) (worklog.Entry, error) {
	var (
		entry         worklog.Entry
		dateRaw       string
		kind          string
		maintenance   int
		status        string
		rollover      string
		importedAtRaw sql.NullString
	)

	if err := row.Scan(
		&entry.ID,
		&entry.MemberEmail,
		&entry.MemberName,
		&dateRaw,
		&kind,
		&maintenance,
		&entry.Activity,
		&entry.ClockHours,
		&entry.CreditedHours,
		&status,
		&entry.SourceSheetID,
		&rollover,
		&importedAtRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worklog.Entry{}, err
		}
		return worklog.Entry{}, fmt.Errorf("scan log: %w", err)
	}

	entry.ActivityType = worklog.Kind(kind)
	entry.IsMaintenance = maintenance != 0
	entry.Status = worklog.Status(status)
	entry.Rollover = worklog.Rollover(rollover)

	var err error
	entry.Date, err = time.Parse(time.RFC3339Nano, dateRaw)
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("parse date %q: %w", dateRaw, err)
	}
	if importedAtRaw.Valid && importedAtRaw.String != "" {
		importedAt, err := time.Parse(time.RFC3339Nano, importedAtRaw.String)
		if err != nil {
			return worklog.Entry{}, fmt.Errorf("parse imported_at %q: %w", importedAtRaw.String, err)
		}
		entry.ImportedAt = &importedAt
	}

	return entry, nil
}

func buildWhere(filter worklog.Filter) (string, []any) {
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 5)

	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.MemberEmail != "" {
		clauses = append(clauses, "member_email = ?")
		args = append(args, worklog.NormalizeEmail(filter.MemberEmail))
	}
	if filter.SourceSheetID != "" {
		clauses = append(clauses, "source_sheet_id = ?")
		args = append(args, filter.SourceSheetID)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "date < ?")
		args = append(args, formatTime(filter.To))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
