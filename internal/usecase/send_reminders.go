package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/infra/metrics"
)

const DefaultReminderAge = 24 * time.Hour

// SendRemindersUseCase nudges qualified leads that have not booked a meeting.
// The reminder marker on the timeline is what keeps a lead from being
// reminded twice.
type SendRemindersUseCase struct {
	Repo           entity.LeadRepositoryInterface
	Notifier       Notifier
	BookingBaseURL string
	MinAge         time.Duration
	Logger         *zap.Logger
	Clock          Clock
}

func NewSendRemindersUseCase(
	repo entity.LeadRepositoryInterface,
	notifier Notifier,
	bookingBaseURL string,
	logger *zap.Logger,
) *SendRemindersUseCase {
	return &SendRemindersUseCase{
		Repo:           repo,
		Notifier:       notifier,
		BookingBaseURL: strings.TrimRight(bookingBaseURL, "/"),
		MinAge:         DefaultReminderAge,
		Logger:         orNop(logger),
	}
}

// Execute runs one sweep and returns how many leads were reminded.
func (uc *SendRemindersUseCase) Execute(ctx context.Context) (int, error) {
	now := uc.Clock.now()
	leads, err := uc.Repo.FindLeads(ctx, entity.LeadFilter{
		Status:        entity.StatusQualified,
		CreatedBefore: now.Add(-uc.MinAge),
		WithoutEvent:  entity.EventReminderSent,
	})
	if err != nil {
		return 0, storageError(err)
	}
	if len(leads) == 0 {
		uc.Logger.Debug("no leads due for a reminder")
		return 0, nil
	}

	var errs []error
	sent := 0
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		// Guard against a store that ignored the filter.
		if lead.HasEvent(entity.EventReminderSent) {
			continue
		}

		lead.AppendEvent(entity.EventReminderSent, now)
		if err := uc.Repo.Save(ctx, lead); err != nil {
			uc.Logger.Error("reminder marker not saved", zap.String("lead_id", lead.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		sent++

		dispatch(ctx, uc.Logger, uc.Notifier, &entity.Notification{
			Kind:        entity.NotifyReminder,
			LeadID:      lead.ID,
			To:          lead.Email,
			Name:        lead.Name,
			BookingLink: uc.BookingBaseURL + "/" + lead.ID,
		})
	}

	metrics.RecordReminders(sent)
	uc.Logger.Info("reminder sweep finished", zap.Int("due", len(leads)), zap.Int("sent", sent))

	if len(errs) > 0 {
		return sent, storageError(errors.Join(errs...))
	}
	return sent, nil
}
