package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
)

// UpdateLeadStatusUseCase is the dashboard's manual override. Any status of
// the enumeration may follow any other.
type UpdateLeadStatusUseCase struct {
	Repo   entity.LeadRepositoryInterface
	Logger *zap.Logger
	Clock  Clock
}

func NewUpdateLeadStatusUseCase(repo entity.LeadRepositoryInterface, logger *zap.Logger) *UpdateLeadStatusUseCase {
	return &UpdateLeadStatusUseCase{Repo: repo, Logger: orNop(logger)}
}

func (uc *UpdateLeadStatusUseCase) Execute(ctx context.Context, input UpdateLeadStatusInput) (*entity.Lead, error) {
	status, err := entity.ParseStatus(input.Status)
	if err != nil {
		return nil, &DomainError{Code: CodeInvalidStatus, Message: err.Error(), Err: err}
	}

	lead, err := findLead(ctx, uc.Repo, input.ID)
	if err != nil {
		return nil, err
	}

	previous := lead.Status
	applyStatus(lead, status, entity.StatusChangedEvent(status), uc.Clock.now())

	if err := uc.Repo.Save(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrActiveLeadExists) {
			return nil, &DomainError{
				Code:    CodeActiveLeadExists,
				Message: "another active lead already uses this email",
				Err:     err,
			}
		}
		return nil, storageError(err)
	}

	uc.Logger.Info("lead status changed",
		zap.String("lead_id", lead.ID),
		zap.String("from", previous.String()),
		zap.String("to", status.String()))
	return lead, nil
}

type ListLeadsUseCase struct {
	Repo entity.LeadRepositoryInterface
}

func NewListLeadsUseCase(repo entity.LeadRepositoryInterface) *ListLeadsUseCase {
	return &ListLeadsUseCase{Repo: repo}
}

func (uc *ListLeadsUseCase) Execute(ctx context.Context) ([]*entity.Lead, error) {
	leads, err := uc.Repo.FindAll(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return leads, nil
}

// Get loads a single lead.
func (uc *ListLeadsUseCase) Get(ctx context.Context, id string) (*entity.Lead, error) {
	return findLead(ctx, uc.Repo, id)
}

func findLead(ctx context.Context, repo entity.LeadRepositoryInterface, id string) (*entity.Lead, error) {
	lead, err := repo.FindByID(ctx, id)
	if errors.Is(err, entity.ErrLeadNotFound) {
		return nil, &DomainError{Code: CodeLeadNotFound, Message: "lead not found", Err: err}
	}
	if err != nil {
		return nil, storageError(err)
	}
	return lead, nil
}
