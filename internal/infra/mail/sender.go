package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/infra/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = map[entity.NotificationKind]emailTemplate{
	entity.NotifyAcknowledgement:     {file: "acknowledgement.html", subject: "We have received your project inquiry"},
	entity.NotifyQualification:       {file: "qualification.html", subject: "Good News! Your Project is Qualified"},
	entity.NotifyRejection:           {file: "rejection.html", subject: "Update regarding your project inquiry"},
	entity.NotifyReminder:            {file: "reminder.html", subject: "Reminder: Let's schedule your project discussion"},
	entity.NotifyProposal:            {file: "proposal.html", subject: "Project Proposal - SalesPilot"},
	entity.NotifyBookingConfirmation: {file: "booking_confirmation.html", subject: "Your discovery call is booked"},
}

// Dialer delivers composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	From   string
	Team   string
	Dialer Dialer
	Invite InviteBuilder
	Logger *zap.Logger

	parsed *template.Template
}

func NewEmailSender(host string, port int, user, password, from string, logger *zap.Logger) (*EmailSender, error) {
	return NewEmailSenderWithDialer(gomail.NewDialer(host, port, user, password), from, logger)
}

func NewEmailSenderWithDialer(d Dialer, from string, logger *zap.Logger) (*EmailSender, error) {
	parsed, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailSender{
		From:   from,
		Team:   "Sales Team",
		Dialer: d,
		Invite: InviteBuilder{Organizer: from},
		Logger: logger,
		parsed: parsed,
	}, nil
}

// Deliver renders and sends n. The SMTP exchange itself is not cancellable;
// ctx is only checked before dialing.
func (s *EmailSender) Deliver(ctx context.Context, n entity.Notification) error {
	m, err := s.Compose(n)
	if err != nil {
		metrics.RecordNotification(string(n.Kind), "render_failed")
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Dialer.DialAndSend(m); err != nil {
		metrics.RecordNotification(string(n.Kind), "failed")
		return fmt.Errorf("send %s email over SMTP: %w", n.Kind, err)
	}

	metrics.RecordNotification(string(n.Kind), "sent")
	s.Logger.Info("email sent",
		zap.String("kind", string(n.Kind)),
		zap.String("lead_id", n.LeadID),
		zap.String("to", n.To))
	return nil
}

// Compose builds the MIME message for n without sending it.
func (s *EmailSender) Compose(n entity.Notification) (*gomail.Message, error) {
	tmpl, ok := templates[n.Kind]
	if !ok {
		return nil, fmt.Errorf("no email template for %q", n.Kind)
	}

	data := EmailData{
		Name:        n.Name,
		Team:        s.Team,
		BookingLink: n.BookingLink,
		MeetingLink: n.MeetingLink,
		MeetingDate: n.MeetingDate,
		TimeSlot:    n.TimeSlot,
	}
	var body bytes.Buffer
	if err := s.parsed.ExecuteTemplate(&body, tmpl.file, data); err != nil {
		return nil, fmt.Errorf("render %s template: %w", tmpl.file, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", tmpl.subject)
	m.SetBody("text/html", body.String())

	for _, a := range n.Attachments {
		attach(m, a)
	}

	if n.Kind == entity.NotifyBookingConfirmation {
		ics, err := s.Invite.Build(n)
		if err != nil {
			s.Logger.Warn("calendar invite skipped", zap.String("lead_id", n.LeadID), zap.Error(err))
		} else {
			attach(m, entity.Attachment{Filename: "invite.ics", ContentType: "text/calendar; method=REQUEST", Content: ics})
		}
	}
	return m, nil
}

func attach(m *gomail.Message, a entity.Attachment) {
	content := a.Content
	settings := []gomail.FileSetting{
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}),
	}
	if a.ContentType != "" {
		settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
	}
	m.Attach(a.Filename, settings...)
}
