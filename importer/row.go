package importer

import (
	"fmt"
	"time"

	"clubhours/internal/classify"
	"clubhours/internal/observability"
	"clubhours/internal/timeutil"
	"clubhours/worklog"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Row is a coerced import row. Pointer fields are nil when the source cell
// was absent or empty; reconciliation keeps the stored value for those.
type Row struct {
	RowNumber   int
	MemberEmail string    `validate:"required"`
	Date        time.Time `validate:"required"`
	ImportedAt  time.Time `validate:"required"`
	Hours       float64   `validate:"gte=0"`
	ClockHours  float64   `validate:"gte=0"`

	MemberName    *string
	Activity      *string
	ActivityType  *worklog.Kind
	Status        *worklog.Status
	SourceSheetID *string
	Rollover      *worklog.Rollover
}

// SkipError explains why a record did not become a Row.
type SkipError struct {
	RowNumber int
	Reason    string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("row %d skipped: %s", e.RowNumber, e.Reason)
}

// Coercer turns loosely typed records into Rows. Unparseable numbers and
// dates fall back to 0 and now and are logged, never rejected.
type Coercer struct {
	now      func() time.Time
	location *time.Location
	log      logrus.FieldLogger
	validate *validator.Validate
}

type CoercerOption func(*Coercer)

func WithNow(now func() time.Time) CoercerOption {
	return func(c *Coercer) {
		c.now = now
	}
}

// WithLocation sets the zone for timestamps that carry no offset.
func WithLocation(loc *time.Location) CoercerOption {
	return func(c *Coercer) {
		if loc != nil {
			c.location = loc
		}
	}
}

func NewCoercer(log logrus.FieldLogger, opts ...CoercerOption) *Coercer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Coercer{
		now:      time.Now,
		location: time.Local,
		log:      log,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Coerce converts one record. A missing member email yields a *SkipError.
func (c *Coercer) Coerce(record Record) (Row, error) {
	now := c.now()
	email, _ := record.Lookup("MemberEmail", "Email")
	row := Row{
		RowNumber:   record.RowNumber,
		MemberEmail: worklog.NormalizeEmail(email),
	}
	if row.MemberEmail == "" {
		return Row{}, &SkipError{RowNumber: record.RowNumber, Reason: "missing member email"}
	}
	if err := c.validate.Var(row.MemberEmail, "email"); err != nil {
		c.log.WithFields(logrus.Fields{"row": record.RowNumber, "email": row.MemberEmail}).
			Warn("member email is not a valid address, importing anyway")
	}

	row.Hours = c.hours(record, "Hours", 0)
	row.ClockHours = c.hours(record, "clockHours", row.Hours)
	row.Date = c.timestamp(record, "Date", now)
	row.ImportedAt = c.timestamp(record, "importedAt", now)

	if value, ok := record.Lookup("MemberName"); ok {
		row.MemberName = &value
	}
	if value, ok := record.Lookup("Activity"); ok {
		row.Activity = &value
	}
	if value, ok := record.Lookup("SourceSheet", "SourceSheetID"); ok {
		row.SourceSheetID = &value
	}
	if value, ok := record.Lookup("FiscalYearRollover"); ok {
		rollover := worklog.ParseRollover(value)
		row.Rollover = &rollover
	}
	if value, ok := record.Lookup("Status"); ok {
		status, known := worklog.ParseStatus(value)
		if !known {
			status = worklog.StatusApproved
			c.fallback(record.RowNumber, "status", value, status)
		}
		row.Status = &status
	}

	if value, ok := record.Lookup("type", "ActivityType"); ok {
		kind := classify.Normalize(value)
		row.ActivityType = &kind
	} else if value, ok := record.Lookup("isMaintenance"); ok && parseFlag(value) {
		kind := worklog.KindMaintenance
		row.ActivityType = &kind
	}

	if err := c.validate.Struct(row); err != nil {
		return Row{}, &SkipError{RowNumber: record.RowNumber, Reason: err.Error()}
	}
	return row, nil
}

// CoerceAll converts records in order and collects the skipped ones.
func (c *Coercer) CoerceAll(records []Record) ([]Row, []*SkipError) {
	rows := make([]Row, 0, len(records))
	skipped := make([]*SkipError, 0)
	for _, record := range records {
		row, err := c.Coerce(record)
		if err != nil {
			skip, ok := err.(*SkipError)
			if !ok {
				skip = &SkipError{RowNumber: record.RowNumber, Reason: err.Error()}
			}
			c.log.WithField("row", skip.RowNumber).Info(skip.Reason)
			skipped = append(skipped, skip)
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

func (c *Coercer) hours(record Record, key string, fallback float64) float64 {
	raw, ok := record.Lookup(key)
	if !ok {
		return fallback
	}
	value, err := parseHours(raw)
	if err != nil {
		c.fallback(record.RowNumber, key, raw, fallback)
		return fallback
	}
	return value
}

func (c *Coercer) timestamp(record Record, key string, fallback time.Time) time.Time {
	raw, ok := record.Lookup(key)
	if !ok {
		return fallback
	}
	value, err := timeutil.ParseTimestamp(raw, c.location)
	if err != nil {
		c.fallback(record.RowNumber, key, raw, fallback)
		return fallback
	}
	return value
}

func (c *Coercer) fallback(rowNumber int, field, raw string, substitute any) {
	observability.RecordParseFallback(field)
	c.log.WithFields(logrus.Fields{
		"row":        rowNumber,
		"field":      field,
		"value":      raw,
		"substitute": substitute,
	}).Warn("unparseable import value replaced by default")
}

// Entry builds the record a Row creates when nothing matches it.
func (r Row) Entry(defaultSheetID string) worklog.Entry {
	importedAt := r.ImportedAt
	entry := worklog.Entry{
		MemberEmail:   r.MemberEmail,
		Date:          r.Date,
		ActivityType:  worklog.KindStandard,
		ClockHours:    r.ClockHours,
		CreditedHours: r.Hours,
		Status:        worklog.StatusApproved,
		SourceSheetID: defaultSheetID,
		Rollover:      worklog.RolloverNo,
		ImportedAt:    &importedAt,
	}
	if r.MemberName != nil {
		entry.MemberName = *r.MemberName
	}
	if r.Activity != nil {
		entry.Activity = *r.Activity
	}
	if r.ActivityType != nil {
		entry.ActivityType = *r.ActivityType
	}
	if r.Status != nil {
		entry.Status = *r.Status
	}
	if r.SourceSheetID != nil {
		entry.SourceSheetID = *r.SourceSheetID
	}
	if r.Rollover != nil {
		entry.Rollover = *r.Rollover
	}
	return entry.Normalize()
}

// Patch builds the merge update a Row applies to the record it matched.
// Date, hours, clock hours and importedAt are always written.
func (r Row) Patch(id string) worklog.Patch {
	date := r.Date
	hours := r.Hours
	clock := r.ClockHours
	importedAt := r.ImportedAt
	email := r.MemberEmail
	return worklog.Patch{
		ID:            id,
		MemberEmail:   &email,
		Date:          &date,
		CreditedHours: &hours,
		ClockHours:    &clock,
		ImportedAt:    &importedAt,
		MemberName:    r.MemberName,
		Activity:      r.Activity,
		ActivityType:  r.ActivityType,
		Status:        r.Status,
		SourceSheetID: r.SourceSheetID,
		Rollover:      r.Rollover,
	}
}
