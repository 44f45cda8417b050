package worklog

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist or is not in the
	// state an operation requires.
	ErrNotFound = errors.New("log entry not found")
	// ErrValidation is returned when required identity is missing.
	ErrValidation = errors.New("validation failed")
)

// Kind is the canonical activity type of a log entry.
type Kind string

const (
	KindStandard    Kind = "Standard"
	KindMaintenance Kind = "Maintenance"
	KindSetup       Kind = "Setup"
)

var multipliers = map[Kind]float64{
	KindStandard:    1,
	KindMaintenance: 2,
	KindSetup:       2,
}

// Multiplier returns the credit multiplier for the kind. Unknown kinds count as standard.
func (k Kind) Multiplier() float64 {
	if m, ok := multipliers[k]; ok {
		return m
	}
	return 1
}

// Special reports whether hours of this kind count as special (multiplier-eligible) hours.
func (k Kind) Special() bool {
	return k == KindMaintenance || k == KindSetup
}

func (k Kind) Valid() bool {
	_, ok := multipliers[k]
	return ok
}

type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// ParseStatus maps a raw status token to a Status. The second value is false
// for unknown tokens.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return StatusActive, true
	case "pending":
		return StatusPending, true
	case "approved":
		return StatusApproved, true
	default:
		return "", false
	}
}

type Rollover string

const (
	RolloverYes Rollover = "Yes"
	RolloverNo  Rollover = "No"
)

func ParseRollover(raw string) Rollover {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "y":
		return RolloverYes
	default:
		return RolloverNo
	}
}

// Entry is one volunteer service log record.
type Entry struct {
	ID            string
	MemberEmail   string
	MemberName    string
	Date          time.Time
	ActivityType  Kind
	IsMaintenance bool
	Activity      string
	ClockHours    float64
	CreditedHours float64
	Status        Status
	SourceSheetID string
	Rollover      Rollover
	ImportedAt    *time.Time
}

// NormalizeEmail is the identity form used for storage and matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize brings derived fields in line with the canonical ones. Every write
// path calls it before persisting. Legacy free-text kinds are left as stored;
// classify.Normalize and the backfill rewrite them.
func (e Entry) Normalize() Entry {
	e.MemberEmail = NormalizeEmail(e.MemberEmail)
	if e.ActivityType == "" {
		e.ActivityType = KindStandard
	}
	e.IsMaintenance = e.ActivityType == KindMaintenance
	if e.Rollover == "" {
		e.Rollover = RolloverNo
	}
	if e.Status == "" {
		e.Status = StatusApproved
	}
	return e
}

// Credit returns clock hours multiplied by the kind's multiplier.
func Credit(clockHours float64, kind Kind) float64 {
	return clockHours * kind.Multiplier()
}
