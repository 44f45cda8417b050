package worklog

import (
	"context"
	"time"
)

// Patch is a sparse update of one entry. Nil fields keep their stored value.
type Patch struct {
	ID string

	MemberEmail   *string
	MemberName    *string
	Date          *time.Time
	ActivityType  *Kind
	Activity      *string
	ClockHours    *float64
	CreditedHours *float64
	Status        *Status
	SourceSheetID *string
	Rollover      *Rollover
	ImportedAt    *time.Time

	// ExpectStatus, when set, makes the update conditional on the stored
	// status. Stores check it atomically and return ErrNotFound on mismatch.
	ExpectStatus *Status
}

func (p Patch) Apply(e Entry) Entry {
	if p.MemberEmail != nil {
		e.MemberEmail = *p.MemberEmail
	}
	if p.MemberName != nil {
		e.MemberName = *p.MemberName
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.ActivityType != nil {
		e.ActivityType = *p.ActivityType
	}
	if p.Activity != nil {
		e.Activity = *p.Activity
	}
	if p.ClockHours != nil {
		e.ClockHours = *p.ClockHours
	}
	if p.CreditedHours != nil {
		e.CreditedHours = *p.CreditedHours
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.SourceSheetID != nil {
		e.SourceSheetID = *p.SourceSheetID
	}
	if p.Rollover != nil {
		e.Rollover = *p.Rollover
	}
	if p.ImportedAt != nil {
		importedAt := *p.ImportedAt
		e.ImportedAt = &importedAt
	}
	return e.Normalize()
}

// Allows reports whether the precondition holds for the stored entry.
func (p Patch) Allows(e Entry) bool {
	return p.ExpectStatus == nil || *p.ExpectStatus == e.Status
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	Status        Status
	MemberEmail   string
	SourceSheetID string
	From          time.Time
	To            time.Time
}

func (f Filter) Matches(e Entry) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.MemberEmail != "" && e.MemberEmail != NormalizeEmail(f.MemberEmail) {
		return false
	}
	if f.SourceSheetID != "" && e.SourceSheetID != f.SourceSheetID {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Date.Before(f.To) {
		return false
	}
	return true
}

// Repository is the persistence contract shared by every store.
type Repository interface {
	Query(ctx context.Context, filter Filter) ([]Entry, error)
	// Subscribe calls onChange with a fresh snapshot for filter after every
	// committed mutation until the returned cancel func is called.
	Subscribe(filter Filter, onChange func([]Entry)) (cancel func())
	// Watch calls onChange after every mutation committed through this
	// store. No snapshot is read.
	Watch(onChange func()) (cancel func())
	// Revision returns a counter that grows with every committed mutation,
	// including those made by other processes sharing the same database.
	Revision(ctx context.Context) (int64, error)
	Get(ctx context.Context, id string) (Entry, error)
	Insert(ctx context.Context, entry Entry) (Entry, error)
	Update(ctx context.Context, patch Patch) (Entry, error)
	Delete(ctx context.Context, id string) error
	// CommitGroup applies creates and updates atomically and returns the IDs
	// assigned to the creates in input order.
	CommitGroup(ctx context.Context, creates []Entry, updates []Patch) ([]string, error)
}
