package mail

// EmailData is the view model every template renders.
type EmailData struct {
	Name        string
	Team        string
	BookingLink string
	MeetingLink string
	MeetingDate string
	TimeSlot    string
}

type emailTemplate struct {
	file    string
	subject string
}
