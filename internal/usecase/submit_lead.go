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

type SubmitLeadUseCase struct {
	Repo           entity.LeadRepositoryInterface
	Notifier       Notifier
	Rules          TriageRules
	BookingBaseURL string
	Logger         *zap.Logger
	Clock          Clock
}

func NewSubmitLeadUseCase(
	repo entity.LeadRepositoryInterface,
	notifier Notifier,
	rules TriageRules,
	bookingBaseURL string,
	logger *zap.Logger,
) *SubmitLeadUseCase {
	return &SubmitLeadUseCase{
		Repo:           repo,
		Notifier:       notifier,
		Rules:          rules,
		BookingBaseURL: strings.TrimRight(bookingBaseURL, "/"),
		Logger:         orNop(logger),
	}
}

// Execute creates a lead, or updates the caller's active lead when one exists
// for the email, and runs budget triage over the result.
func (uc *SubmitLeadUseCase) Execute(ctx context.Context, input SubmitLeadInput) (*entity.Lead, error) {
	if errs := ValidateSubmitLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	email := entity.NormalizeEmail(input.Email)
	now := uc.Clock.now()

	existing, err := uc.Repo.FindActiveByEmail(ctx, email)
	if err == nil {
		return uc.update(ctx, existing, input, now)
	}
	if !errors.Is(err, entity.ErrLeadNotFound) {
		return nil, storageError(err)
	}

	// A rejected inquiry resubmitted inside the rejection bucket is the same
	// inquiry: no new lead, no second rejection email.
	previous, err := uc.Repo.FindLatestByEmail(ctx, email)
	switch {
	case err == nil:
		if previous.Status == entity.StatusRejected && uc.Rules.Decide(input.Budget) == entity.StatusRejected {
			return uc.update(ctx, previous, input, now)
		}
	case !errors.Is(err, entity.ErrLeadNotFound):
		return nil, storageError(err)
	}

	lead := entity.NewLead(input.Name, email, input.Phone, input.ServiceType, input.Budget, now)
	notification := uc.triage(lead, now)

	if err := uc.Repo.Create(ctx, lead); err != nil {
		if !errors.Is(err, entity.ErrActiveLeadExists) {
			return nil, storageError(err)
		}
		// Lost the race against a concurrent submission for the same email.
		winner, ferr := uc.Repo.FindActiveByEmail(ctx, email)
		if ferr != nil {
			return nil, storageError(ferr)
		}
		return uc.update(ctx, winner, input, now)
	}

	uc.Logger.Info("lead created",
		zap.String("lead_id", lead.ID),
		zap.String("status", lead.Status.String()),
		zap.Int64("budget", lead.Budget))

	dispatch(ctx, uc.Logger, uc.Notifier, notification)
	return lead, nil
}

// update refreshes an existing lead from a form resubmission. The email is
// the lookup key and never changes.
func (uc *SubmitLeadUseCase) update(ctx context.Context, lead *entity.Lead, input SubmitLeadInput, now time.Time) (*entity.Lead, error) {
	budget := input.Budget
	lead.Name = input.Name
	lead.Phone = input.Phone
	lead.ServiceType = input.ServiceType
	lead.Budget = budget
	lead.AppendEvent(entity.UpdatedViaFormEvent(budget), now)

	var notification *entity.Notification
	if drivesStatus(lead.Status) {
		notification = uc.triage(lead, now)
	}

	if err := uc.Repo.Save(ctx, lead); err != nil {
		return nil, storageError(err)
	}

	uc.Logger.Info("lead updated via form",
		zap.String("lead_id", lead.ID),
		zap.String("status", lead.Status.String()),
		zap.Int64("budget", budget))

	dispatch(ctx, uc.Logger, uc.Notifier, notification)
	return lead, nil
}

// triage moves the lead to the status its budget calls for. Nothing is
// appended or returned when the status does not change.
func (uc *SubmitLeadUseCase) triage(lead *entity.Lead, now time.Time) *entity.Notification {
	target := uc.Rules.Decide(lead.Budget)
	if target == lead.Status {
		return nil
	}
	created := lead.IsNew()
	lead.Status = target
	metrics.RecordLeadTriaged(string(target))

	n := &entity.Notification{LeadID: lead.ID, To: lead.Email, Name: lead.Name}

	switch target {
	case entity.StatusRejected:
		lead.AppendEvent(entity.EventAutoRejected, now)
		n.Kind = entity.NotifyRejection
	case entity.StatusQualified:
		lead.AppendEvent(entity.EventAutoQualified, now)
		n.Kind = entity.NotifyQualification
		n.BookingLink = uc.BookingBaseURL + "/" + lead.ID
	default:
		lead.AppendEvent(entity.EventManualReview, now)
		if !created {
			return nil
		}
		n.Kind = entity.NotifyAcknowledgement
	}
	return n
}
