package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotTaken       = errors.New("this slot is already booked")
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidTimeSlot = errors.New("invalid time slot")
	ErrInvalidDate     = errors.New("invalid booking date")
)

type BookingStatus string

const (
	BookingScheduled BookingStatus = "SCHEDULED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// TimeSlots are the bookable slots of a day, in display order.
var TimeSlots = []string{
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
	"05:00 PM",
}

const (
	DateLayout     = "2006-01-02"
	timeSlotLayout = "03:04 PM"
)

func ValidTimeSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// ParseBookingDate accepts YYYY-MM-DD or RFC3339 and returns the UTC calendar date.
func ParseBookingDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

type Booking struct {
	ID          string        `json:"id"`
	LeadID      string        `json:"lead_id"`
	ClientName  string        `json:"client_name"`
	ClientEmail string        `json:"client_email"`
	Date        time.Time     `json:"date"`
	TimeSlot    string        `json:"time_slot"`
	MeetingLink string        `json:"meeting_link"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewBooking snapshots the lead's contact data into a scheduled booking.
func NewBooking(lead *Lead, date time.Time, slot, meetingLink string, now time.Time) *Booking {
	return &Booking{
		ID:          uuid.New().String(),
		LeadID:      lead.ID,
		ClientName:  lead.Name,
		ClientEmail: lead.Email,
		Date:        date,
		TimeSlot:    slot,
		MeetingLink: meetingLink,
		Status:      BookingScheduled,
		CreatedAt:   now,
	}
}

// StartsAt combines the booking date and slot label into an instant in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	clock, err := time.Parse(timeSlotLayout, b.TimeSlot)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, b.TimeSlot)
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

type BookingRepositoryInterface interface {
	// Create returns ErrSlotTaken when (date, time slot) is already booked.
	Create(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id string) error
	FindBySlot(ctx context.Context, date time.Time, slot string) (*Booking, error)
	FindByDate(ctx context.Context, date time.Time) ([]*Booking, error)
}
