package mail

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/xavierca1/salespilot/internal/entity"
)

const meetingLength = 30 * time.Minute

// InviteBuilder renders an iCalendar REQUEST for a booked call.
type InviteBuilder struct {
	Organizer string
	// Location the slot labels are expressed in. Nil means UTC.
	Location *time.Location
	Now      func() time.Time
}

func (b InviteBuilder) Build(n entity.Notification) ([]byte, error) {
	date, err := entity.ParseBookingDate(n.MeetingDate)
	if err != nil {
		return nil, err
	}
	start, err := (&entity.Booking{Date: date, TimeSlot: n.TimeSlot}).StartsAt(b.Location)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if b.Now != nil {
		now = b.Now()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//SalesPilot//Discovery Call//EN")

	event := cal.AddEvent(fmt.Sprintf("%s-%s@salespilot", n.LeadID, start.UTC().Format("20060102T150405")))
	event.SetDtStampTime(now)
	event.SetStartAt(start)
	event.SetEndAt(start.Add(meetingLength))
	event.SetSummary("Discovery call")
	event.SetDescription("Join: " + n.MeetingLink)
	event.SetLocation(n.MeetingLink)
	event.SetURL(n.MeetingLink)
	if b.Organizer != "" {
		event.SetOrganizer("mailto:" + b.Organizer)
	}
	event.AddAttendee(n.To,
		ics.CalendarUserTypeIndividual,
		ics.ParticipationStatusNeedsAction,
		ics.ParticipationRoleReqParticipant,
		ics.WithRSVP(true),
		ics.WithCN(n.Name),
	)

	return []byte(cal.Serialize()), nil
}
