package inquiry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lexsite/lexsite/backend/go-services/internal/mail"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/lexsite/lexsite/backend/go-services/pkg/metrics"
)

var ErrDelivery = errors.New("inquiry could not be delivered")

// Service stores inquiries and notifies the firm by email.
type Service struct {
	repo   Repository
	mailer mail.Mailer
	to     string
	now    func() time.Time
}

// NewService notifies the firm at to.
func NewService(repo Repository, mailer mail.Mailer, to string) *Service {
	return &Service{repo: repo, mailer: mailer, to: to, now: time.Now}
}

// Submit stores in and emails it to the firm. A failed email leaves the record
// with status failed and returns ErrDelivery. Consultation requesters also get
// an acknowledgement, on a best effort basis.
func (s *Service) Submit(ctx context.Context, in *Inquiry) (*Inquiry, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("unknown inquiry kind %q", in.Kind)
	}
	in.ID = uuid.NewString()
	in.CreatedAt = s.now().UTC()
	in.Status = StatusPending
	if err := s.repo.Create(ctx, in); err != nil {
		metrics.Inquiries.WithLabelValues(string(in.Kind), "store_error").Inc()
		return nil, fmt.Errorf("store inquiry: %w", err)
	}

	if err := s.mailer.Send(ctx, s.notification(in)); err != nil {
		logger.Errorf("%s %s: notify firm: %v", in.Kind, in.ID, err)
		metrics.Inquiries.WithLabelValues(string(in.Kind), "failed").Inc()
		in.Status, in.DeliveryError = StatusFailed, err.Error()
		if uerr := s.repo.UpdateStatus(ctx, in.ID, StatusFailed, err.Error()); uerr != nil {
			logger.Errorf("%s %s: record failure: %v", in.Kind, in.ID, uerr)
		}
		return in, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	in.Status = StatusSent
	if err := s.repo.UpdateStatus(ctx, in.ID, StatusSent, ""); err != nil {
		logger.Warnf("%s %s: record delivery: %v", in.Kind, in.ID, err)
	}
	metrics.Inquiries.WithLabelValues(string(in.Kind), "sent").Inc()

	if in.Kind == KindConsultation {
		if err := s.mailer.Send(ctx, acknowledgement(in)); err != nil {
			logger.Warnf("consultation %s: acknowledgement to requester failed: %v", in.ID, err)
		}
	}
	logger.Infof("%s %s delivered", in.Kind, in.ID)
	return in, nil
}

func (s *Service) List(ctx context.Context, kind Kind, limit int) ([]*Inquiry, error) {
	return s.repo.List(ctx, kind, limit)
}

func (s *Service) notification(in *Inquiry) *mail.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nEmail: %s\n", in.Name, in.Email)
	if in.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", in.Phone)
	}
	if in.PracticeArea != "" {
		fmt.Fprintf(&b, "Practice area: %s\n", in.PracticeArea)
	}
	if in.PreferredDate != nil {
		fmt.Fprintf(&b, "Preferred date: %s\n", in.PreferredDate.Format(time.RFC1123))
	}
	if in.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", in.Message)
	}
	fmt.Fprintf(&b, "\nReference: %s\n", in.ID)

	msg := &mail.Message{To: []string{s.to}, ReplyTo: in.Email, Body: b.String()}
	switch in.Kind {
	case KindConsultation:
		msg.Subject = "Consultation request from " + in.Name
		if in.PreferredDate != nil {
			msg.Attachments = []mail.Attachment{{
				Filename:    "consultation.ics",
				ContentType: "text/calendar; charset=utf-8; method=REQUEST",
				Data:        calendarEntry(in),
			}}
		}
	default:
		subject := in.Subject
		if subject == "" {
			subject = "New message"
		}
		msg.Subject = "Contact form: " + subject + " (" + in.Name + ")"
	}
	return msg
}

func acknowledgement(in *Inquiry) *mail.Message {
	body := fmt.Sprintf("Dear %s,\n\nthank you for your consultation request. We will contact you shortly to confirm an appointment.\n\nReference: %s\n", in.Name, in.ID)
	return &mail.Message{To: []string{in.Email}, Subject: "Your consultation request", Body: body}
}

// calendarEntry renders a one hour tentative event at the preferred date.
func calendarEntry(in *Inquiry) []byte {
	const layout = "20060102T150405Z"
	start := in.PreferredDate.UTC()
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//lexsite//consultations//EN",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:" + icsText(in.ID),
		"DTSTAMP:" + in.CreatedAt.UTC().Format(layout),
		"DTSTART:" + start.Format(layout),
		"DTEND:" + start.Add(time.Hour).Format(layout),
		"SUMMARY:" + icsText("Consultation with "+in.Name),
		"STATUS:TENTATIVE",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(foldLine(l))
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}

// icsText escapes an iCalendar TEXT value. Line breaks become \n and other
// control characters are dropped.
func icsText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', ';', ',':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			b.WriteString(`\n`)
		case '\n':
			b.WriteString(`\n`)
		default:
			if c < 0x20 || c == 0x7f {
				continue
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// foldLine splits content lines longer than 75 octets; continuation lines
// start with a space. Multi-byte runes are never split.
func foldLine(l string) string {
	const limit = 75
	if len(l) <= limit {
		return l
	}
	var b strings.Builder
	width := limit
	for len(l) > width {
		cut := width
		for cut > 0 && !utf8.RuneStart(l[cut]) {
			cut--
		}
		b.WriteString(l[:cut])
		b.WriteString("\r\n ")
		l = l[cut:]
		width = limit - 1
	}
	b.WriteString(l)
	return b.String()
}
