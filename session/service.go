// Package session drives single log entries through check-in, check-out,
// approval and administrative edits.
package session

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"clubhours/internal/classify"
	"clubhours/internal/observability"
	"clubhours/internal/timeutil"
	"clubhours/worklog"

	"github.com/sirupsen/logrus"
)

// MinimumClockHours is the smallest billable session length.
const MinimumClockHours = 0.25

// Store is the subset of the repository the lifecycle needs.
type Store interface {
	Get(ctx context.Context, id string) (worklog.Entry, error)
	Insert(ctx context.Context, entry worklog.Entry) (worklog.Entry, error)
	Update(ctx context.Context, patch worklog.Patch) (worklog.Entry, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store Store
	now   func() time.Time
	log   logrus.FieldLogger
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store Store, log logrus.FieldLogger, opts ...Option) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	service := &Service{store: store, now: time.Now, log: log}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type CheckInInput struct {
	MemberEmail  string
	MemberName   string
	ActivityType string
	Activity     string
}

// Credit is the outcome of a check-out.
type Credit struct {
	ClockHours    float64
	CreditedHours float64
}

// CheckIn opens a session: status active, no hours, dated now.
func (s *Service) CheckIn(ctx context.Context, input CheckInInput) (worklog.Entry, error) {
	if strings.TrimSpace(input.MemberEmail) == "" {
		return worklog.Entry{}, fmt.Errorf("check in: %w: member email is required", worklog.ErrValidation)
	}

	entry, err := s.store.Insert(ctx, worklog.Entry{
		MemberEmail:  input.MemberEmail,
		MemberName:   strings.TrimSpace(input.MemberName),
		Date:         s.now(),
		ActivityType: classify.Normalize(input.ActivityType),
		Activity:     strings.TrimSpace(input.Activity),
		Status:       worklog.StatusActive,
		Rollover:     worklog.RolloverNo,
	})
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("check in: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"id":     entry.ID,
		"member": entry.MemberEmail,
		"kind":   entry.ActivityType,
	}).Info("session checked in")
	return entry, nil
}

// CheckOut closes an active session. A zero sessionStart uses the entry's
// check-in date. Missing or non-active entries yield worklog.ErrNotFound.
func (s *Service) CheckOut(ctx context.Context, id string, sessionStart time.Time) (Credit, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Credit{}, fmt.Errorf("check out: %w", err)
	}
	if entry.Status != worklog.StatusActive {
		return Credit{}, fmt.Errorf("check out %s: status is %s: %w", id, entry.Status, worklog.ErrNotFound)
	}

	if sessionStart.IsZero() {
		sessionStart = entry.Date
	}
	now := s.now()
	clock := ClockHours(now.Sub(sessionStart))

	kind := entry.ActivityType
	if !kind.Valid() {
		kind = classify.Normalize(string(kind))
	}
	credit := Credit{ClockHours: clock, CreditedHours: worklog.Credit(clock, kind)}

	active := worklog.StatusActive
	pending := worklog.StatusPending
	_, err = s.store.Update(ctx, worklog.Patch{
		ID:            id,
		ActivityType:  &kind,
		ClockHours:    &credit.ClockHours,
		CreditedHours: &credit.CreditedHours,
		Status:        &pending,
		ExpectStatus:  &active,
	})
	if err != nil {
		return Credit{}, fmt.Errorf("check out: %w", err)
	}

	observability.RecordCheckout(string(kind), credit.CreditedHours, now)
	s.log.WithFields(logrus.Fields{
		"id":       id,
		"member":   entry.MemberEmail,
		"kind":     kind,
		"clock":    credit.ClockHours,
		"credited": credit.CreditedHours,
	}).Info("session checked out")
	return credit, nil
}

// ClockHours converts an elapsed duration into billable clock hours:
// at least MinimumClockHours, rounded half-up to two decimals.
func ClockHours(elapsed time.Duration) float64 {
	return timeutil.RoundHours(math.Max(MinimumClockHours, elapsed.Hours()))
}

type AddInput struct {
	MemberEmail   string
	MemberName    string
	Date          time.Time
	ActivityType  string
	Activity      string
	ClockHours    float64
	Status        worklog.Status
	SourceSheetID string
}

// AddEntry records hours entered directly by an administrator, skipping the timer.
func (s *Service) AddEntry(ctx context.Context, input AddInput) (worklog.Entry, error) {
	entry, err := BuildEntry(input, s.now())
	if err != nil {
		return worklog.Entry{}, err
	}

	stored, err := s.store.Insert(ctx, entry)
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("add entry: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"id":       stored.ID,
		"member":   stored.MemberEmail,
		"credited": stored.CreditedHours,
	}).Info("entry added")
	return stored, nil
}

// BuildEntry validates an administrator entry and computes its credited hours.
func BuildEntry(input AddInput, now time.Time) (worklog.Entry, error) {
	if strings.TrimSpace(input.MemberEmail) == "" {
		return worklog.Entry{}, fmt.Errorf("add entry: %w: member email is required", worklog.ErrValidation)
	}
	if input.ClockHours < 0 || math.IsNaN(input.ClockHours) {
		return worklog.Entry{}, fmt.Errorf("add entry: %w: clock hours must not be negative", worklog.ErrValidation)
	}

	status := input.Status
	if status == "" {
		status = worklog.StatusApproved
	}
	if status != worklog.StatusPending && status != worklog.StatusApproved {
		return worklog.Entry{}, fmt.Errorf("add entry: %w: status %q is not allowed for direct entries", worklog.ErrValidation, status)
	}

	date := input.Date
	if date.IsZero() {
		date = now
	}
	kind := classify.Normalize(input.ActivityType)

	return worklog.Entry{
		MemberEmail:   input.MemberEmail,
		MemberName:    strings.TrimSpace(input.MemberName),
		Date:          date,
		ActivityType:  kind,
		Activity:      strings.TrimSpace(input.Activity),
		ClockHours:    input.ClockHours,
		CreditedHours: worklog.Credit(input.ClockHours, kind),
		Status:        status,
		SourceSheetID: strings.TrimSpace(input.SourceSheetID),
		Rollover:      worklog.RolloverNo,
	}, nil
}

// Edit applies an administrative correction. When the kind or clock hours
// change without explicit credited hours, credited hours are recomputed.
func (s *Service) Edit(ctx context.Context, patch worklog.Patch) (worklog.Entry, error) {
	if patch.Status != nil {
		if _, ok := worklog.ParseStatus(string(*patch.Status)); !ok {
			return worklog.Entry{}, fmt.Errorf("edit %s: %w: unknown status %q", patch.ID, worklog.ErrValidation, *patch.Status)
		}
	}
	if patch.ClockHours != nil && *patch.ClockHours < 0 {
		return worklog.Entry{}, fmt.Errorf("edit %s: %w: clock hours must not be negative", patch.ID, worklog.ErrValidation)
	}
	if patch.CreditedHours != nil && *patch.CreditedHours < 0 {
		return worklog.Entry{}, fmt.Errorf("edit %s: %w: credited hours must not be negative", patch.ID, worklog.ErrValidation)
	}
	if patch.MemberEmail != nil && strings.TrimSpace(*patch.MemberEmail) == "" {
		return worklog.Entry{}, fmt.Errorf("edit %s: %w: member email must not be empty", patch.ID, worklog.ErrValidation)
	}
	if patch.ActivityType != nil {
		kind := classify.Normalize(string(*patch.ActivityType))
		patch.ActivityType = &kind
	}

	if (patch.ActivityType != nil || patch.ClockHours != nil) && patch.CreditedHours == nil {
		current, err := s.store.Get(ctx, patch.ID)
		if err != nil {
			return worklog.Entry{}, fmt.Errorf("edit: %w", err)
		}
		next := patch.Apply(current)
		if next.Status != worklog.StatusActive {
			credited := worklog.Credit(next.ClockHours, next.ActivityType)
			patch.CreditedHours = &credited
		}
	}

	updated, err := s.store.Update(ctx, patch)
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("edit: %w", err)
	}
	s.log.WithField("id", updated.ID).Info("entry edited")
	return updated, nil
}

// Approve moves an entry to the terminal approved status.
func (s *Service) Approve(ctx context.Context, id string) (worklog.Entry, error) {
	approved := worklog.StatusApproved
	return s.Edit(ctx, worklog.Patch{ID: id, Status: &approved})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.log.WithField("id", id).Info("entry deleted")
	return nil
}
