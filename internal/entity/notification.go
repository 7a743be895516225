package entity

type NotificationKind string

const (
	NotifyAcknowledgement     NotificationKind = "ACKNOWLEDGEMENT"
	NotifyQualification       NotificationKind = "QUALIFICATION"
	NotifyRejection           NotificationKind = "REJECTION"
	NotifyReminder            NotificationKind = "REMINDER"
	NotifyProposal            NotificationKind = "PROPOSAL"
	NotifyBookingConfirmation NotificationKind = "BOOKING_CONFIRMATION"
)

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Notification is a transactional email waiting to be delivered.
type Notification struct {
	Kind   NotificationKind `json:"kind"`
	LeadID string           `json:"lead_id"`
	To     string           `json:"to"`
	Name   string           `json:"name"`

	BookingLink string `json:"booking_link,omitempty"`
	MeetingLink string `json:"meeting_link,omitempty"`
	MeetingDate string `json:"meeting_date,omitempty"`
	TimeSlot    string `json:"time_slot,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
}
