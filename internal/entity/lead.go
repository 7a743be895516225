package entity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrActiveLeadExists = errors.New("an active lead already exists for this email")
	ErrInvalidStatus    = errors.New("invalid lead status")
	ErrStaleLead        = errors.New("lead was modified since it was loaded")
)

type Status string

const (
	StatusNew           Status = "NEW"
	StatusQualified     Status = "QUALIFIED"
	StatusRejected      Status = "REJECTED"
	StatusMeetingBooked Status = "MEETING_BOOKED"
	StatusProposalSent  Status = "PROPOSAL_SENT"
	StatusWon           Status = "WON"
	StatusLost          Status = "LOST"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusNew,
	StatusQualified,
	StatusMeetingBooked,
	StatusProposalSent,
	StatusWon,
	StatusLost,
	StatusRejected,
}

// TerminalStatuses are the statuses that release the email for a new lead.
var TerminalStatuses = []Status{StatusWon, StatusLost, StatusRejected}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusNew, StatusQualified, StatusRejected, StatusMeetingBooked,
		StatusProposalSent, StatusWon, StatusLost:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Timeline event texts written by the engines.
const (
	EventAutoRejected   = "Auto-Rejected: budget too low"
	EventAutoQualified  = "Auto-Qualified: high budget"
	EventManualReview   = "Needs manual review"
	EventReminderSent   = "24h Reminder Sent"
	EventProposalSent   = "Proposal sent"
	eventUpdatedForm    = "Updated via form (budget=%d)"
	eventStatusOverride = "Status changed manually to %s"
)

func UpdatedViaFormEvent(budget int64) string {
	return fmt.Sprintf(eventUpdatedForm, budget)
}

func StatusChangedEvent(s Status) string {
	return fmt.Sprintf(eventStatusOverride, s)
}

type TimelineItem struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

type Lead struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Budget      int64          `json:"budget"`
	ServiceType string         `json:"service_type"`
	Status      Status         `json:"status"`
	Timeline    []TimelineItem `json:"timeline"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// persisted is the number of timeline items already stored.
	persisted int
}

func NewLead(name, email, phone, serviceType string, budget int64, now time.Time) *Lead {
	return &Lead{
		ID:          uuid.New().String(),
		Name:        name,
		Email:       NormalizeEmail(email),
		Phone:       phone,
		Budget:      budget,
		ServiceType: serviceType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AppendEvent adds an item to the timeline. Timestamps never go backwards:
// an event stamped before the last item takes the last item's timestamp.
func (l *Lead) AppendEvent(event string, at time.Time) {
	if n := len(l.Timeline); n > 0 && at.Before(l.Timeline[n-1].Timestamp) {
		at = l.Timeline[n-1].Timestamp
	}
	l.Timeline = append(l.Timeline, TimelineItem{Event: event, Timestamp: at})
	l.UpdatedAt = at
}

func (l *Lead) HasEvent(event string) bool {
	for _, item := range l.Timeline {
		if item.Event == event {
			return true
		}
	}
	return false
}

// PendingEvents returns the timeline items appended since the lead was loaded.
func (l *Lead) PendingEvents() []TimelineItem {
	if l.persisted >= len(l.Timeline) {
		return nil
	}
	return l.Timeline[l.persisted:]
}

// MarkPersisted records that every timeline item is stored.
func (l *Lead) MarkPersisted() {
	l.persisted = len(l.Timeline)
}

func (l *Lead) IsNew() bool {
	return l.Status == ""
}

func (l *Lead) IsActive() bool {
	return l.Status != "" && !l.Status.IsTerminal()
}

// NormalizeEmail reduces an address to its lower-case addr-spec, so
// "Ada <ada@example.com>" and "ada@example.com" are the same key.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if addr, err := mail.ParseAddress(email); err == nil {
		email = addr.Address
	}
	return strings.ToLower(email)
}

// LeadFilter narrows FindLeads results.
type LeadFilter struct {
	Status        Status
	CreatedBefore time.Time
	// WithoutEvent excludes leads whose timeline contains this event.
	WithoutEvent string
}

type LeadRepositoryInterface interface {
	// Create stores a new lead and its timeline. Returns ErrActiveLeadExists
	// when another active lead owns the email.
	Create(ctx context.Context, lead *Lead) error
	// Save updates the lead row and appends its pending timeline items.
	Save(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindActiveByEmail(ctx context.Context, email string) (*Lead, error)
	FindLatestByEmail(ctx context.Context, email string) (*Lead, error)
	FindAll(ctx context.Context) ([]*Lead, error)
	FindLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error)
}
