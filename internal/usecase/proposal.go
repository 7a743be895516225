package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
)

const (
	ProposalFilename    = "Proposal.pdf"
	ProposalContentType = "application/pdf"
)

// GenerateProposalUseCase renders the proposal document for a lead. It has
// no side effects.
type GenerateProposalUseCase struct {
	Repo     entity.LeadRepositoryInterface
	Renderer ProposalRenderer
	Clock    Clock
}

func NewGenerateProposalUseCase(repo entity.LeadRepositoryInterface, renderer ProposalRenderer) *GenerateProposalUseCase {
	return &GenerateProposalUseCase{Repo: repo, Renderer: renderer}
}

func (uc *GenerateProposalUseCase) Execute(ctx context.Context, leadID string) ([]byte, error) {
	lead, err := findLead(ctx, uc.Repo, leadID)
	if err != nil {
		return nil, err
	}
	return uc.render(lead)
}

func (uc *GenerateProposalUseCase) render(lead *entity.Lead) ([]byte, error) {
	pdf, err := uc.Renderer.Render(lead, uc.Clock.now())
	if err != nil {
		return nil, &TechnicalError{Code: "PROPOSAL_RENDER_FAILED", Message: "could not render proposal", Err: err}
	}
	return pdf, nil
}

// SendProposalUseCase emails the proposal to the client and moves the lead
// to PROPOSAL_SENT.
type SendProposalUseCase struct {
	Proposals *GenerateProposalUseCase
	Notifier  Notifier
	Logger    *zap.Logger
	Clock     Clock
}

func NewSendProposalUseCase(proposals *GenerateProposalUseCase, notifier Notifier, logger *zap.Logger) *SendProposalUseCase {
	return &SendProposalUseCase{Proposals: proposals, Notifier: notifier, Logger: orNop(logger)}
}

func (uc *SendProposalUseCase) Execute(ctx context.Context, leadID string) (bool, error) {
	lead, err := findLead(ctx, uc.Proposals.Repo, leadID)
	if err != nil {
		return false, err
	}

	pdf, err := uc.Proposals.render(lead)
	if err != nil {
		return false, err
	}

	applyStatus(lead, entity.StatusProposalSent, entity.EventProposalSent, uc.Clock.now())
	if err := uc.Proposals.Repo.Save(ctx, lead); err != nil {
		return false, storageError(err)
	}

	uc.Logger.Info("proposal sent", zap.String("lead_id", lead.ID), zap.Int("pdf_bytes", len(pdf)))

	dispatch(ctx, uc.Logger, uc.Notifier, &entity.Notification{
		Kind:   entity.NotifyProposal,
		LeadID: lead.ID,
		To:     lead.Email,
		Name:   lead.Name,
		Attachments: []entity.Attachment{{
			Filename:    ProposalFilename,
			ContentType: ProposalContentType,
			Content:     pdf,
		}},
	})
	return true, nil
}
