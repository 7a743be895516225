package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/usecase"
)

func bookedLead(t *testing.T, repo entity.LeadRepositoryInterface, email string) *entity.Lead {
	t.Helper()
	lead, err := newSubmit(repo, &RecordingNotifier{}, t0).Execute(context.Background(), submitInput(email, 60000))
	require.NoError(t, err)
	return lead
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()
	store, notifier := newStore()
	lead := bookedLead(t, store.Leads(), "ada@example.com")

	uc := usecase.NewCreateBookingUseCase(store.Bookings(), store.Leads(), notifier, "", nil)
	uc.Clock = fixedClock(t0.Add(time.Hour))

	booking, err := uc.Execute(ctx, usecase.CreateBookingInput{
		LeadID: lead.ID, Date: "2026-07-01T00:00:00Z", TimeSlot: "02:00 PM",
	})
	require.NoError(t, err)

	assert.Equal(t, lead.ID, booking.LeadID)
	assert.Equal(t, "Ada Lovelace", booking.ClientName)
	assert.Equal(t, "ada@example.com", booking.ClientEmail)
	assert.Equal(t, "2026-07-01", booking.Date.Format(entity.DateLayout))
	assert.Equal(t, entity.BookingScheduled, booking.Status)
	assert.True(t, strings.HasPrefix(booking.MeetingLink, "https://meet.google.com/"), booking.MeetingLink)
	code := strings.TrimPrefix(booking.MeetingLink, "https://meet.google.com/")
	assert.Len(t, code, 26)
	assert.Equal(t, strings.ToLower(code), code)

	stored, err := store.Leads().FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusMeetingBooked, stored.Status)
	assert.Equal(t, "Status changed manually to MEETING_BOOKED", stored.Timeline[len(stored.Timeline)-1].Event)

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, entity.NotifyBookingConfirmation, sent[0].Kind)
	assert.Equal(t, booking.MeetingLink, sent[0].MeetingLink)
	assert.Equal(t, "2026-07-01", sent[0].MeetingDate)
	assert.Equal(t, "02:00 PM", sent[0].TimeSlot)
}

func TestCreateBooking_SlotIsExclusive(t *testing.T) {
	ctx := context.Background()
	store, notifier := newStore()
	first := bookedLead(t, store.Leads(), "ada@example.com")
	second := bookedLead(t, store.Leads(), "grace@example.com")

	uc := usecase.NewCreateBookingUseCase(store.Bookings(), store.Leads(), notifier, "https://meet.example.com/", nil)

	original, err := uc.Execute(ctx, usecase.CreateBookingInput{LeadID: first.ID, Date: "2026-07-01", TimeSlot: "10:00 AM"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(original.MeetingLink, "https://meet.example.com/"))

	_, err = uc.Execute(ctx, usecase.CreateBookingInput{LeadID: second.ID, Date: "2026-07-01", TimeSlot: "10:00 AM"})
	assert.Equal(t, usecase.CodeSlotTaken, usecase.ErrorCode(err))

	held, err := store.Bookings().FindBySlot(ctx, original.Date, "10:00 AM")
	require.NoError(t, err)
	assert.Equal(t, first.ID, held.LeadID, "the first booking is never overwritten")

	other, err := store.Leads().FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusQualified, other.Status)
	assert.Len(t, notifier.Sent(), 1)
}

func TestCreateBooking_Invalid(t *testing.T) {
	store, notifier := newStore()
	uc := usecase.NewCreateBookingUseCase(store.Bookings(), store.Leads(), notifier, "", nil)

	_, err := uc.Execute(context.Background(), usecase.CreateBookingInput{LeadID: "x", Date: "July 1st", TimeSlot: "09:00 AM"})
	require.Error(t, err)
	assert.Equal(t, usecase.CodeValidation, usecase.ErrorCode(err))
	assert.Contains(t, err.Error(), "date:")
	assert.Contains(t, err.Error(), "timeSlot:")

	_, err = uc.Execute(context.Background(), usecase.CreateBookingInput{LeadID: "missing", Date: "2026-07-01", TimeSlot: "10:00 AM"})
	assert.Equal(t, usecase.CodeLeadNotFound, usecase.ErrorCode(err))

	free, err := usecase.NewAvailableSlotsUseCase(store.Bookings()).Execute(context.Background(), "2026-07-01")
	require.NoError(t, err)
	assert.Equal(t, entity.TimeSlots, free, "failed attempts must not hold a slot")
}

func TestCreateBooking_CompensatesWhenLeadSaveFails(t *testing.T) {
	ctx := context.Background()
	store, notifier := newStore()

	lead := entity.NewLead("Ada", "ada@example.com", "5550102030", "Web App", 60000, t0)
	lead.Status = entity.StatusQualified

	leads := new(MockLeadRepository)
	leads.On("FindByID", mock.Anything, lead.ID).Return(lead, nil)
	leads.On("Save", mock.Anything, lead).Return(errBoom)

	uc := usecase.NewCreateBookingUseCase(store.Bookings(), leads, notifier, "", nil)
	_, err := uc.Execute(ctx, usecase.CreateBookingInput{LeadID: lead.ID, Date: "2026-07-01", TimeSlot: "03:00 PM"})

	require.Error(t, err)
	assert.Equal(t, usecase.CodeStorage, usecase.ErrorCode(err))
	assert.ErrorIs(t, err, errBoom)

	_, err = store.Bookings().FindBySlot(ctx, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), "03:00 PM")
	assert.ErrorIs(t, err, entity.ErrBookingNotFound, "the booking is rolled back")
	assert.Empty(t, notifier.Sent())
	leads.AssertExpectations(t)
}

func TestCreateBooking_RejectedLeadWithNewerActiveLead(t *testing.T) {
	ctx := context.Background()
	store, notifier := newStore()

	rejected, err := newSubmit(store.Leads(), notifier, t0).Execute(ctx, submitInput("ada@example.com", 1000))
	require.NoError(t, err)
	_, err = newSubmit(store.Leads(), notifier, t0.Add(time.Hour)).Execute(ctx, submitInput("ada@example.com", 20000))
	require.NoError(t, err)

	uc := usecase.NewCreateBookingUseCase(store.Bookings(), store.Leads(), notifier, "", nil)
	_, err = uc.Execute(ctx, usecase.CreateBookingInput{LeadID: rejected.ID, Date: "2026-07-01", TimeSlot: "04:00 PM"})

	require.Error(t, err)
	assert.True(t, usecase.IsDomainError(err))
	assert.Equal(t, usecase.CodeActiveLeadExists, usecase.ErrorCode(err))

	_, err = store.Bookings().FindBySlot(ctx, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), "04:00 PM")
	assert.ErrorIs(t, err, entity.ErrBookingNotFound, "the booking is rolled back")

	stored, err := store.Leads().FindByID(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, stored.Status)
}

func TestAvailableSlots(t *testing.T) {
	ctx := context.Background()
	store, notifier := newStore()
	lead := bookedLead(t, store.Leads(), "ada@example.com")

	_, err := usecase.NewCreateBookingUseCase(store.Bookings(), store.Leads(), notifier, "", nil).
		Execute(ctx, usecase.CreateBookingInput{LeadID: lead.ID, Date: "2026-07-01", TimeSlot: "12:00 PM"})
	require.NoError(t, err)

	uc := usecase.NewAvailableSlotsUseCase(store.Bookings())

	free, err := uc.Execute(ctx, "2026-07-01T15:30:00Z")
	require.NoError(t, err)
	assert.NotContains(t, free, "12:00 PM")
	assert.Len(t, free, len(entity.TimeSlots)-1)

	other, err := uc.Execute(ctx, "2026-07-02")
	require.NoError(t, err)
	assert.Equal(t, entity.TimeSlots, other)

	_, err = uc.Execute(ctx, "tomorrow")
	assert.Equal(t, usecase.CodeValidation, usecase.ErrorCode(err))
}
