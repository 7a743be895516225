package handlers

import (
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/usecase"
)

type leadResolver struct{ l *entity.Lead }

func (r *leadResolver) ID() graphql.ID      { return graphql.ID(r.l.ID) }
func (r *leadResolver) Name() string        { return r.l.Name }
func (r *leadResolver) Email() string       { return r.l.Email }
func (r *leadResolver) Phone() string       { return r.l.Phone }
func (r *leadResolver) Budget() int32       { return int32(r.l.Budget) }
func (r *leadResolver) ServiceType() string { return r.l.ServiceType }
func (r *leadResolver) Status() string      { return string(r.l.Status) }
func (r *leadResolver) CreatedAt() string   { return r.l.CreatedAt.UTC().Format(time.RFC3339) }
func (r *leadResolver) UpdatedAt() string   { return r.l.UpdatedAt.UTC().Format(time.RFC3339) }

func (r *leadResolver) Timeline() []*timelineResolver {
	out := make([]*timelineResolver, len(r.l.Timeline))
	for i := range r.l.Timeline {
		out[i] = &timelineResolver{r.l.Timeline[i]}
	}
	return out
}

type timelineResolver struct{ t entity.TimelineItem }

func (r *timelineResolver) Event() string     { return r.t.Event }
func (r *timelineResolver) Timestamp() string { return r.t.Timestamp.UTC().Format(time.RFC3339Nano) }

type bookingResolver struct{ b *entity.Booking }

func (r *bookingResolver) ID() graphql.ID      { return graphql.ID(r.b.ID) }
func (r *bookingResolver) LeadID() graphql.ID  { return graphql.ID(r.b.LeadID) }
func (r *bookingResolver) ClientName() string  { return r.b.ClientName }
func (r *bookingResolver) ClientEmail() string { return r.b.ClientEmail }
func (r *bookingResolver) Date() string        { return r.b.Date.Format(entity.DateLayout) }
func (r *bookingResolver) TimeSlot() string    { return r.b.TimeSlot }
func (r *bookingResolver) MeetingLink() string { return r.b.MeetingLink }
func (r *bookingResolver) Status() string      { return string(r.b.Status) }

type loginResolver struct{ out *usecase.LoginOutput }

func (r *loginResolver) AccessToken() string { return r.out.AccessToken }

type userResolver struct{ out *usecase.SignupOutput }

func (r *userResolver) Email() string { return r.out.Email }

func leadResolvers(leads []*entity.Lead) []*leadResolver {
	out := make([]*leadResolver, len(leads))
	for i, l := range leads {
		out[i] = &leadResolver{l}
	}
	return out
}
