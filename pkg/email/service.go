package email

import (
	"context"
	"sync"
	"time"
)

// Sender delivers a rendered message to a list of recipients.
type Sender interface {
	Send(ctx context.Context, to []string, msg Message) error
}

// Message is a rendered email with plain text and optional HTML bodies.
type Message struct {
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP settings
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// MockSender implements Sender for testing
type MockSender struct {
	mu   sync.Mutex
	sent []SentEmail
	err  error
}

// SentEmail represents an email that was sent via MockSender
type SentEmail struct {
	To      []string
	Message Message
	SentAt  time.Time
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

// FailWith makes every following Send return err.
func (m *MockSender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockSender) Send(_ context.Context, to []string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, SentEmail{
		To:      append([]string(nil), to...),
		Message: msg,
		SentAt:  time.Now(),
	})
	return nil
}

// GetSentEmails returns all sent emails (for testing)
func (m *MockSender) GetSentEmails() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}

// GetLastSentEmail returns the last sent email (for testing)
func (m *MockSender) GetLastSentEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	last := m.sent[len(m.sent)-1]
	return &last
}
