// Package mail sends the firm's notification emails.
package mail

import (
	"context"
	"errors"
	"sync"

	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
)

var ErrNoRecipients = errors.New("mail: no recipients")

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a plain text email.
type Message struct {
	To          []string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// LogMailer logs messages instead of sending them and keeps a copy of each.
type LogMailer struct {
	mu   sync.Mutex
	sent []Message
	// Err, when set, is returned by Send.
	Err error
}

func (m *LogMailer) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if m.Err != nil {
		return m.Err
	}
	logger.Infof("mail (not sent): to=%v subject=%q attachments=%d", msg.To, msg.Subject, len(msg.Attachments))
	m.mu.Lock()
	m.sent = append(m.sent, *msg)
	m.mu.Unlock()
	return nil
}

// Sent returns the messages passed to Send.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
