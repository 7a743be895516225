package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/infra/metrics"
)

const DefaultMeetingBaseURL = "https://meet.google.com"

type CreateBookingUseCase struct {
	Repo           entity.BookingRepositoryInterface
	LeadRepo       entity.LeadRepositoryInterface
	Notifier       Notifier
	MeetingBaseURL string
	Logger         *zap.Logger
	Clock          Clock
}

func NewCreateBookingUseCase(
	repo entity.BookingRepositoryInterface,
	leadRepo entity.LeadRepositoryInterface,
	notifier Notifier,
	meetingBaseURL string,
	logger *zap.Logger,
) *CreateBookingUseCase {
	if meetingBaseURL == "" {
		meetingBaseURL = DefaultMeetingBaseURL
	}
	return &CreateBookingUseCase{
		Repo:           repo,
		LeadRepo:       leadRepo,
		Notifier:       notifier,
		MeetingBaseURL: strings.TrimRight(meetingBaseURL, "/"),
		Logger:         orNop(logger),
	}
}

var errSlotTaken = &DomainError{
	Code:    CodeSlotTaken,
	Message: "this slot is already booked, please choose another",
	Err:     entity.ErrSlotTaken,
}

// Execute reserves (date, time slot) for a lead. Slots are exclusive across
// all leads; a taken slot is never overwritten.
func (uc *CreateBookingUseCase) Execute(ctx context.Context, input CreateBookingInput) (*entity.Booking, error) {
	if errs := ValidateCreateBookingInput(input); len(errs) > 0 {
		metrics.RecordBooking("invalid")
		return nil, validationFailed(errs)
	}
	date, _ := entity.ParseBookingDate(input.Date)

	if _, err := uc.Repo.FindBySlot(ctx, date, input.TimeSlot); err == nil {
		metrics.RecordBooking("conflict")
		return nil, errSlotTaken
	} else if !errors.Is(err, entity.ErrBookingNotFound) {
		return nil, storageError(err)
	}

	lead, err := findLead(ctx, uc.LeadRepo, input.LeadID)
	if err != nil {
		metrics.RecordBooking("lead_not_found")
		return nil, err
	}

	now := uc.Clock.now()
	booking := entity.NewBooking(lead, date, input.TimeSlot, uc.meetingLink(), now)

	tx := NewTransaction(uc.Logger)
	tx.AddOperation("create booking",
		func(ctx context.Context) error { return uc.Repo.Create(ctx, booking) },
		func(ctx context.Context) error { return uc.Repo.Delete(ctx, booking.ID) },
	)
	tx.AddOperation("mark lead meeting booked",
		func(ctx context.Context) error {
			applyStatus(lead, entity.StatusMeetingBooked, entity.StatusChangedEvent(entity.StatusMeetingBooked), now)
			return uc.LeadRepo.Save(ctx, lead)
		},
		nil,
	)
	if err := tx.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrSlotTaken) {
			metrics.RecordBooking("conflict")
			return nil, errSlotTaken
		}
		if errors.Is(err, entity.ErrActiveLeadExists) {
			metrics.RecordBooking("conflict")
			return nil, &DomainError{
				Code:    CodeActiveLeadExists,
				Message: "another active lead already uses this email",
				Err:     err,
			}
		}
		metrics.RecordBooking("error")
		return nil, storageError(err)
	}
	metrics.RecordBooking("created")

	uc.Logger.Info("meeting booked",
		zap.String("booking_id", booking.ID),
		zap.String("lead_id", lead.ID),
		zap.String("date", booking.Date.Format(entity.DateLayout)),
		zap.String("time_slot", booking.TimeSlot))

	dispatch(ctx, uc.Logger, uc.Notifier, &entity.Notification{
		Kind:        entity.NotifyBookingConfirmation,
		LeadID:      lead.ID,
		To:          booking.ClientEmail,
		Name:        booking.ClientName,
		MeetingLink: booking.MeetingLink,
		MeetingDate: booking.Date.Format(entity.DateLayout),
		TimeSlot:    booking.TimeSlot,
	})
	return booking, nil
}

func (uc *CreateBookingUseCase) meetingLink() string {
	return uc.MeetingBaseURL + "/" + strings.ToLower(ulid.Make().String())
}

type AvailableSlotsUseCase struct {
	Repo entity.BookingRepositoryInterface
}

func NewAvailableSlotsUseCase(repo entity.BookingRepositoryInterface) *AvailableSlotsUseCase {
	return &AvailableSlotsUseCase{Repo: repo}
}

// Execute returns the slots of the day that nobody has booked yet.
func (uc *AvailableSlotsUseCase) Execute(ctx context.Context, rawDate string) ([]string, error) {
	date, err := entity.ParseBookingDate(rawDate)
	if err != nil {
		return nil, validationFailed([]ValidationError{{"date", "must be a valid date (YYYY-MM-DD or ISO8601)"}})
	}

	booked, err := uc.Repo.FindByDate(ctx, date)
	if err != nil {
		return nil, storageError(err)
	}
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b.TimeSlot] = true
	}

	free := make([]string, 0, len(entity.TimeSlots))
	for _, slot := range entity.TimeSlots {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}
