package handlers

import (
	"context"
	_ "embed"
	"errors"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/infra/http/middleware"
	"github.com/xavierca1/salespilot/internal/usecase"
)

//go:embed schema.graphql
var schemaSDL string

// Resolver is the GraphQL root. Each field delegates to one use case.
type Resolver struct {
	SubmitLeadUC     *usecase.SubmitLeadUseCase
	UpdateStatusUC   *usecase.UpdateLeadStatusUseCase
	ListLeadsUC      *usecase.ListLeadsUseCase
	CreateBookingUC  *usecase.CreateBookingUseCase
	AvailableSlotsUC *usecase.AvailableSlotsUseCase
	SendProposalUC   *usecase.SendProposalUseCase
	SignupUC         *usecase.SignupUseCase
	LoginUC          *usecase.LoginUseCase
	Logger           *zap.Logger
}

// NewGraphQLHandler parses the schema against r and returns the POST handler.
func NewGraphQLHandler(r *Resolver) (http.Handler, error) {
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	schema, err := graphql.ParseSchema(schemaSDL, r, graphql.MaxDepth(8))
	if err != nil {
		return nil, err
	}
	return &relay.Handler{Schema: schema}, nil
}

// gqlError carries the machine-readable code in extensions.code.
type gqlError struct {
	code    string
	message string
}

func (e *gqlError) Error() string { return e.message }

func (e *gqlError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func (r *Resolver) fail(ctx context.Context, op string, err error) error {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		return &gqlError{code: de.Code, message: de.Message}
	}
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		r.Logger.Error("graphql operation failed", zap.String("operation", op), zap.Error(err))
		return &gqlError{code: te.Code, message: "internal error, please retry later"}
	}
	r.Logger.Error("graphql operation failed", zap.String("operation", op), zap.Error(err))
	return &gqlError{code: "INTERNAL_SERVER_ERROR", message: "internal error"}
}

func (r *Resolver) requireAuth(ctx context.Context) error {
	if _, ok := middleware.ClaimsFrom(ctx); !ok {
		return &gqlError{code: usecase.CodeUnauthenticated, message: usecase.ErrUnauthenticated().Error()}
	}
	return nil
}

func (r *Resolver) Leads(ctx context.Context) ([]*leadResolver, error) {
	if err := r.requireAuth(ctx); err != nil {
		return nil, err
	}
	leads, err := r.ListLeadsUC.Execute(ctx)
	if err != nil {
		return nil, r.fail(ctx, "leads", err)
	}
	return leadResolvers(leads), nil
}

func (r *Resolver) Lead(ctx context.Context, args struct{ ID graphql.ID }) (*leadResolver, error) {
	if err := r.requireAuth(ctx); err != nil {
		return nil, err
	}
	lead, err := r.ListLeadsUC.Get(ctx, string(args.ID))
	if err != nil {
		return nil, r.fail(ctx, "lead", err)
	}
	return &leadResolver{lead}, nil
}

func (r *Resolver) AvailableSlots(ctx context.Context, args struct{ Date string }) ([]string, error) {
	slots, err := r.AvailableSlotsUC.Execute(ctx, args.Date)
	if err != nil {
		return nil, r.fail(ctx, "availableSlots", err)
	}
	return slots, nil
}

type leadArgs struct {
	Name        string
	Email       string
	Phone       string
	Budget      int32
	ServiceType string
}

func (r *Resolver) SubmitLead(ctx context.Context, args leadArgs) (*leadResolver, error) {
	lead, err := r.SubmitLeadUC.Execute(ctx, usecase.SubmitLeadInput{
		Name:        args.Name,
		Email:       args.Email,
		Phone:       args.Phone,
		Budget:      int64(args.Budget),
		ServiceType: args.ServiceType,
	})
	if err != nil {
		return nil, r.fail(ctx, "submitLead", err)
	}
	return &leadResolver{lead}, nil
}

// CreateLead accepts the input-object form of SubmitLead.
func (r *Resolver) CreateLead(ctx context.Context, args struct{ CreateLeadInput leadArgs }) (*leadResolver, error) {
	return r.SubmitLead(ctx, args.CreateLeadInput)
}

func (r *Resolver) UpdateLeadStatus(ctx context.Context, args struct {
	ID     graphql.ID
	Status string
}) (*leadResolver, error) {
	if err := r.requireAuth(ctx); err != nil {
		return nil, err
	}
	lead, err := r.UpdateStatusUC.Execute(ctx, usecase.UpdateLeadStatusInput{ID: string(args.ID), Status: args.Status})
	if err != nil {
		return nil, r.fail(ctx, "updateLeadStatus", err)
	}
	return &leadResolver{lead}, nil
}

func (r *Resolver) SendProposal(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	if err := r.requireAuth(ctx); err != nil {
		return false, err
	}
	ok, err := r.SendProposalUC.Execute(ctx, string(args.ID))
	if err != nil {
		return false, r.fail(ctx, "sendProposal", err)
	}
	return ok, nil
}

func (r *Resolver) CreateBooking(ctx context.Context, args struct {
	LeadID   graphql.ID
	Date     string
	TimeSlot string
}) (*bookingResolver, error) {
	b, err := r.CreateBookingUC.Execute(ctx, usecase.CreateBookingInput{
		LeadID:   string(args.LeadID),
		Date:     args.Date,
		TimeSlot: args.TimeSlot,
	})
	if err != nil {
		return nil, r.fail(ctx, "createBooking", err)
	}
	return &bookingResolver{b}, nil
}

type credentialArgs struct {
	Email    string
	Password string
}

func (r *Resolver) Login(ctx context.Context, args credentialArgs) (*loginResolver, error) {
	out, err := r.LoginUC.Execute(ctx, usecase.CredentialsInput{Email: args.Email, Password: args.Password})
	if err != nil {
		return nil, r.fail(ctx, "login", err)
	}
	return &loginResolver{out}, nil
}

func (r *Resolver) Signup(ctx context.Context, args credentialArgs) (*userResolver, error) {
	out, err := r.SignupUC.Execute(ctx, usecase.CredentialsInput{Email: args.Email, Password: args.Password})
	if err != nil {
		return nil, r.fail(ctx, "signup", err)
	}
	return &userResolver{out}, nil
}
